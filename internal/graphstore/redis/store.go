// Package redis keeps graph entities and relationships in Redis hashes, one
// hash per type keyed by record key.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"threatsync/pkg/models"
)

// Config configures Redis access for the graph store.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// Store reads and applies graph operations over Redis hashes.
type Store struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

// NewStore constructs a Redis-backed graph store.
func NewStore(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "threatsync:graph"
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis graph store: %w", err)
	}

	return &Store{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix), now: time.Now}, nil
}

// FindEntitiesByType returns the stored entities of entityType ordered by key.
func (s *Store) FindEntitiesByType(ctx context.Context, entityType string) ([]json.RawMessage, error) {
	return s.findByType(ctx, models.CategoryEntity, entityType)
}

// FindRelationshipsByType returns the stored relationships of relType ordered by key.
func (s *Store) FindRelationshipsByType(ctx context.Context, relType string) ([]json.RawMessage, error) {
	return s.findByType(ctx, models.CategoryRelationship, relType)
}

func (s *Store) findByType(ctx context.Context, category, graphType string) ([]json.RawMessage, error) {
	hash, err := s.client.HGetAll(ctx, s.typeKey(category, graphType)).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s %s records: %w", graphType, category, err)
	}
	if len(hash) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(hash))
	for k := range hash {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		out = append(out, json.RawMessage(hash[k]))
	}
	return out, nil
}

// WriteOperations applies ops in a single transaction and records the run
// in the store's meta hash.
func (s *Store) WriteOperations(ctx context.Context, runID string, ops []models.Operation) error {
	if len(ops) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()

	var summary models.OperationsSummary
	for _, op := range ops {
		key := s.typeKey(op.Category, op.Type)
		switch op.Kind {
		case models.OperationCreate, models.OperationUpdate:
			raw, err := json.Marshal(op.Data)
			if err != nil {
				return fmt.Errorf("encode %s %s: %w", op.Type, op.Key, err)
			}
			pipe.HSet(ctx, key, op.Key, string(raw))
			if op.Kind == models.OperationCreate {
				summary.Created++
			} else {
				summary.Updated++
			}
		case models.OperationDelete:
			pipe.HDel(ctx, key, op.Key)
			summary.Deleted++
		default:
			return fmt.Errorf("unknown operation %q for %s", op.Kind, op.Key)
		}
	}

	pipe.HSet(ctx, s.metaKey(),
		"last_run_id", runID,
		"last_write_at", strconv.FormatInt(s.now().Unix(), 10),
	)
	pipe.HIncrBy(ctx, s.metaKey(), "created", int64(summary.Created))
	pipe.HIncrBy(ctx, s.metaKey(), "updated", int64(summary.Updated))
	pipe.HIncrBy(ctx, s.metaKey(), "deleted", int64(summary.Deleted))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("apply graph operations: %w", err)
	}
	return nil
}

// LastRunID returns the run id of the most recent write, or "" if none.
func (s *Store) LastRunID(ctx context.Context) (string, error) {
	id, err := s.client.HGet(ctx, s.metaKey(), "last_run_id").Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read graph meta: %w", err)
	}
	return id, nil
}

// Close closes Redis resources.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) typeKey(category, graphType string) string {
	if category == models.CategoryRelationship {
		return s.prefix + ":relationships:" + graphType
	}
	return s.prefix + ":entities:" + graphType
}

func (s *Store) metaKey() string {
	return s.prefix + ":meta"
}
