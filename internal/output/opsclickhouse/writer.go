package opsclickhouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threatsync/pkg/models"
)

// Config configures the ClickHouse HTTP writer.
type Config struct {
	URL      string
	Database string
	Table    string
	Username string
	Password string
	Timeout  time.Duration
	Headers  map[string]string
}

// row matches the columns of the operations table.
type row struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"ts"`
	Op        string `json:"op"`
	Category  string `json:"category"`
	Type      string `json:"type"`
	Key       string `json:"key"`
	Data      string `json:"data"`
}

// Writer records graph operations in ClickHouse via HTTP JSONEachRow.
type Writer struct {
	endpoint string
	headers  map[string]string
	client   *http.Client
	now      func() time.Time
}

// NewWriter creates a ClickHouse HTTP writer.
func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("clickhouse URL is empty")
	}
	if cfg.Database == "" {
		cfg.Database = "default"
	}
	if cfg.Table == "" {
		cfg.Table = "operations"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	q := fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", quoteIdent(cfg.Database), quoteIdent(cfg.Table))
	endpoint := strings.TrimRight(cfg.URL, "/") + "/?query=" + url.QueryEscape(q)

	headers := map[string]string{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	if cfg.Username != "" {
		headers["X-ClickHouse-User"] = cfg.Username
	}
	if cfg.Password != "" {
		headers["X-ClickHouse-Key"] = cfg.Password
	}

	return &Writer{
		endpoint: endpoint,
		headers:  headers,
		client:   &http.Client{Timeout: timeout},
		now:      time.Now,
	}, nil
}

// WriteOperations inserts one row per operation. The record payload is
// stored as a JSON string.
func (w *Writer) WriteOperations(ctx context.Context, runID string, ops []models.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	ts := w.now().UTC().Format("2006-01-02 15:04:05")
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, op := range ops {
		data := ""
		if op.Data != nil {
			raw, err := json.Marshal(op.Data)
			if err != nil {
				return fmt.Errorf("failed to marshal %s payload: %w", op.Key, err)
			}
			data = string(raw)
		}
		r := row{
			RunID:     runID,
			Timestamp: ts,
			Op:        string(op.Kind),
			Category:  op.Category,
			Type:      op.Type,
			Key:       op.Key,
			Data:      data,
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to marshal operation row: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("clickhouse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("clickhouse request failed with status %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Close releases resources.
func (w *Writer) Close() error {
	return nil
}

func quoteIdent(v string) string {
	if v == "" {
		return ""
	}
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}
