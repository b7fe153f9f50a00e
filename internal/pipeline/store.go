package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"threatsync/pkg/models"
)

// GraphReader looks up the records currently stored in the graph.
type GraphReader interface {
	FindEntitiesByType(ctx context.Context, entityType string) ([]json.RawMessage, error)
	FindRelationshipsByType(ctx context.Context, relType string) ([]json.RawMessage, error)
}

// OperationWriter applies or records a batch of graph operations.
type OperationWriter interface {
	WriteOperations(ctx context.Context, runID string, ops []models.Operation) error
	Close() error
}

func decodeRecords[T any, PT interface{ *T }](raws []json.RawMessage) ([]PT, error) {
	out := make([]PT, 0, len(raws))
	for i, raw := range raws {
		rec := new(T)
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("decode stored record %d: %w", i, err)
		}
		out = append(out, PT(rec))
	}
	return out, nil
}
