package graphhttp

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

// Config configures the HTTP graph store client.
type Config struct {
	URL     string
	Timeout time.Duration
	Headers map[string]string
}

// Store talks to a remote graph service over HTTP.
type Store struct {
	baseURL string
	headers map[string]string
	client  *http.Client
}

type operationsRequest struct {
	RunID      string             `json:"runId"`
	Operations []models.Operation `json:"operations"`
}

// NewStore creates an HTTP graph store client.
func NewStore(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("graph store URL is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// FindEntitiesByType lists stored entities of entityType.
func (s *Store) FindEntitiesByType(ctx context.Context, entityType string) ([]json.RawMessage, error) {
	return s.find(ctx, "entities", entityType)
}

// FindRelationshipsByType lists stored relationships of relType.
func (s *Store) FindRelationshipsByType(ctx context.Context, relType string) ([]json.RawMessage, error) {
	return s.find(ctx, "relationships", relType)
}

func (s *Store) find(ctx context.Context, resource, graphType string) ([]json.RawMessage, error) {
	endpoint := s.baseURL + "/" + resource + "?type=" + url.QueryEscape(graphType)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("list %s failed with status %s", resource, resp.Status)
	}

	var out []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", resource, err)
	}
	return out, nil
}

// WriteOperations posts a batch of operations.
func (s *Store) WriteOperations(ctx context.Context, runID string, ops []models.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	body, err := json.Marshal(operationsRequest{RunID: runID, Operations: ops})
	if err != nil {
		return fmt.Errorf("failed to marshal operations: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/operations", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http request failed with status %s", resp.Status)
	}
	return nil
}

func (s *Store) setHeaders(req *http.Request) {
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
}

// Close releases HTTP resources.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
