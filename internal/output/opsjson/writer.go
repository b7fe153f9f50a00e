package opsjson

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"threatsync/internal/logger"
	"threatsync/pkg/models"
)

// Row is one operation line in the output file.
type Row struct {
	RunID     string               `json:"run_id"`
	Timestamp time.Time            `json:"ts"`
	Op        models.OperationKind `json:"op"`
	Category  string               `json:"category"`
	Type      string               `json:"type"`
	Key       string               `json:"key"`
	Data      interface{}          `json:"data,omitempty"`
}

// Writer appends graph operations to a JSON lines file. It serves both as
// the plan output and as the file audit sink.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	now     func() time.Time
	mu      sync.Mutex
}

// NewWriter creates a JSONL operation writer. With truncate set the file is
// rewritten instead of appended to.
func NewWriter(path string, truncate bool) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if truncate {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}

	logger.Infof("Operations JSON writer initialized: %s", path)
	return &Writer{
		file:    f,
		encoder: json.NewEncoder(f),
		now:     time.Now,
	}, nil
}

// WriteOperations writes one line per operation.
func (w *Writer) WriteOperations(ctx context.Context, runID string, ops []models.Operation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := w.now().UTC()
	for _, op := range ops {
		row := Row{
			RunID:     runID,
			Timestamp: ts,
			Op:        op.Kind,
			Category:  op.Category,
			Type:      op.Type,
			Key:       op.Key,
			Data:      op.Data,
		}
		if err := w.encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to encode operation row: %w", err)
		}
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		err := w.file.Close()
		w.file = nil
		return err
	}
	return nil
}
