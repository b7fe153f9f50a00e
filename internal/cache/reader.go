package cache

import (
	"context"

	"threatsync/pkg/models"
)

// Category names a cached provider data-set.
type Category string

const (
	OnlineAgents    Category = "onlineAgents"
	OfflineAgents   Category = "offlineAgents"
	Vulnerabilities Category = "vulnerabilities"
)

// AgentEntry is one cached agent record. Data is nil when the payload is
// missing or could not be decoded.
type AgentEntry struct {
	ID   string
	Data *models.Agent
}

// Reader is the read contract over previously fetched provider data.
type Reader interface {
	// FetchSucceeded reports whether every named data-set completed its last
	// fetch without error.
	FetchSucceeded(ctx context.Context, names ...Category) (bool, error)
	// IDs returns the cached ids of a data-set in fetch order.
	IDs(ctx context.Context, category Category) ([]string, error)
	// Entries returns one entry per id, in id order.
	Entries(ctx context.Context, category Category, ids []string) ([]AgentEntry, error)
	// VulnerabilityData loads a single vulnerability record, or nil if absent
	// or undecodable.
	VulnerabilityData(ctx context.Context, id string) (*models.VulnerabilityData, error)
}

// PresentAgents drops entries without data.
func PresentAgents(entries []AgentEntry) []*models.Agent {
	out := make([]*models.Agent, 0, len(entries))
	for _, e := range entries {
		if e.Data == nil {
			continue
		}
		out = append(out, e.Data)
	}
	return out
}
