package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"threatsync/internal/cache"
	"threatsync/pkg/models"
)

type fakeCache struct {
	failed  map[cache.Category]bool
	agents  map[cache.Category][]*models.Agent
	vulnIDs []string
	vulns   map[string]*models.VulnerabilityData
	vulnErr error

	mu      sync.Mutex
	fetched []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		failed: map[cache.Category]bool{},
		agents: map[cache.Category][]*models.Agent{},
		vulns:  map[string]*models.VulnerabilityData{},
	}
}

func (c *fakeCache) FetchSucceeded(ctx context.Context, names ...cache.Category) (bool, error) {
	for _, n := range names {
		if c.failed[n] {
			return false, nil
		}
	}
	return true, nil
}

func (c *fakeCache) IDs(ctx context.Context, category cache.Category) ([]string, error) {
	if category == cache.Vulnerabilities {
		return c.vulnIDs, nil
	}
	var ids []string
	for _, a := range c.agents[category] {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (c *fakeCache) Entries(ctx context.Context, category cache.Category, ids []string) ([]cache.AgentEntry, error) {
	out := make([]cache.AgentEntry, 0, len(ids))
	for i, id := range ids {
		out = append(out, cache.AgentEntry{ID: id, Data: c.agents[category][i]})
	}
	return out, nil
}

func (c *fakeCache) VulnerabilityData(ctx context.Context, id string) (*models.VulnerabilityData, error) {
	c.mu.Lock()
	c.fetched = append(c.fetched, id)
	c.mu.Unlock()
	if c.vulnErr != nil {
		return nil, c.vulnErr
	}
	return c.vulns[id], nil
}

// memoryGraph is an in-memory graph store that applies operations.
type memoryGraph struct {
	records    map[string]map[string]json.RawMessage
	reads      int
	writes     int
	publishErr error
	closed     bool
}

func newMemoryGraph() *memoryGraph {
	return &memoryGraph{records: map[string]map[string]json.RawMessage{}}
}

func (g *memoryGraph) bucket(category, graphType string) map[string]json.RawMessage {
	name := category + ":" + graphType
	b, ok := g.records[name]
	if !ok {
		b = map[string]json.RawMessage{}
		g.records[name] = b
	}
	return b
}

func (g *memoryGraph) list(category, graphType string) []json.RawMessage {
	g.reads++
	b := g.bucket(category, graphType)
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		out = append(out, b[k])
	}
	return out
}

func (g *memoryGraph) FindEntitiesByType(ctx context.Context, entityType string) ([]json.RawMessage, error) {
	return g.list(models.CategoryEntity, entityType), nil
}

func (g *memoryGraph) FindRelationshipsByType(ctx context.Context, relType string) ([]json.RawMessage, error) {
	return g.list(models.CategoryRelationship, relType), nil
}

func (g *memoryGraph) put(category string, rec interface {
	GraphKey() string
	GraphType() string
}) {
	raw, err := json.Marshal(rec)
	if err != nil {
		panic(err)
	}
	g.bucket(category, rec.GraphType())[rec.GraphKey()] = raw
}

func (g *memoryGraph) WriteOperations(ctx context.Context, runID string, ops []models.Operation) error {
	if g.publishErr != nil {
		return g.publishErr
	}
	g.writes++
	for _, op := range ops {
		b := g.bucket(op.Category, op.Type)
		switch op.Kind {
		case models.OperationDelete:
			delete(b, op.Key)
		default:
			raw, err := json.Marshal(op.Data)
			if err != nil {
				return err
			}
			b[op.Key] = raw
		}
	}
	return nil
}

func (g *memoryGraph) Close() error {
	g.closed = true
	return nil
}

type recordingWriter struct {
	batches [][]models.Operation
	runIDs  []string
	err     error
}

func (w *recordingWriter) WriteOperations(ctx context.Context, runID string, ops []models.Operation) error {
	w.batches = append(w.batches, ops)
	w.runIDs = append(w.runIDs, runID)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

var errPublish = errors.New("graph unavailable")
