package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"threatsync/internal/logger"
	"threatsync/internal/transform/threatstack"
	"threatsync/pkg/models"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// RedisConfig configures Redis access for the provider cache.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore reads and writes cached provider data-sets.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a Redis-backed cache store.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "threatsync:cache"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis cache: %w", err)
	}

	return &RedisStore{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix)}, nil
}

// FetchSucceeded reports whether all named data-sets were fetched successfully.
// A data-set with no recorded status has not succeeded.
func (s *RedisStore) FetchSucceeded(ctx context.Context, names ...Category) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(names))
	for _, name := range names {
		cmds = append(cmds, pipe.HGet(ctx, s.fetchKey(name), "status"))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return false, fmt.Errorf("read fetch status: %w", err)
	}
	for i, cmd := range cmds {
		status, err := cmd.Result()
		if err == redis.Nil {
			logger.Debugf("No fetch status recorded for %s", names[i])
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("read fetch status for %s: %w", names[i], err)
		}
		if status != statusSuccess {
			return false, nil
		}
	}
	return true, nil
}

// IDs returns the cached ids of a data-set.
func (s *RedisStore) IDs(ctx context.Context, category Category) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.idsKey(category), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s ids: %w", category, err)
	}
	return ids, nil
}

// Entries loads agent records for ids. Missing or undecodable payloads yield
// entries with nil Data.
func (s *RedisStore) Entries(ctx context.Context, category Category, ids []string) ([]AgentEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.entryKey(category, id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s entries: %w", category, err)
	}

	entries := make([]AgentEntry, 0, len(ids))
	for i, v := range values {
		entry := AgentEntry{ID: ids[i]}
		if raw, ok := v.(string); ok && raw != "" {
			agent, err := threatstack.ParseAgent([]byte(raw))
			if err != nil {
				logger.Warnf("Failed to decode cached %s entry %s: %v", category, ids[i], err)
			} else {
				entry.Data = agent
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// VulnerabilityData loads one vulnerability record on demand. A missing or
// undecodable payload yields nil data.
func (s *RedisStore) VulnerabilityData(ctx context.Context, id string) (*models.VulnerabilityData, error) {
	raw, err := s.client.Get(ctx, s.entryKey(Vulnerabilities, id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vulnerability %s: %w", id, err)
	}
	data, err := threatstack.ParseVulnerability(raw)
	if err != nil {
		logger.Warnf("Failed to decode cached vulnerability %s: %v", id, err)
		return nil, nil
	}
	return data, nil
}

// WriteFetchStatus records the outcome of a data-set fetch.
func (s *RedisStore) WriteFetchStatus(ctx context.Context, category Category, fetchErr error) error {
	status := statusSuccess
	msg := ""
	if fetchErr != nil {
		status = statusError
		msg = fetchErr.Error()
	}
	err := s.client.HSet(ctx, s.fetchKey(category),
		"status", status,
		"error", msg,
		"completed_at", strconv.FormatInt(time.Now().Unix(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("write fetch status for %s: %w", category, err)
	}
	return nil
}

// WriteEntries replaces a data-set with the given raw payloads keyed by id.
func (s *RedisStore) WriteEntries(ctx context.Context, category Category, ids []string, payloads []json.RawMessage) error {
	if len(ids) != len(payloads) {
		return fmt.Errorf("write %s entries: %d ids for %d payloads", category, len(ids), len(payloads))
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.idsKey(category))
	for i, id := range ids {
		pipe.Set(ctx, s.entryKey(category, id), []byte(payloads[i]), 0)
	}
	if len(ids) > 0 {
		members := make([]interface{}, 0, len(ids))
		for _, id := range ids {
			members = append(members, id)
		}
		pipe.RPush(ctx, s.idsKey(category), members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write %s entries: %w", category, err)
	}
	return nil
}

// Close closes Redis resources.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) fetchKey(category Category) string {
	return s.prefix + ":fetch:" + string(category)
}

func (s *RedisStore) idsKey(category Category) string {
	return s.prefix + ":ids:" + string(category)
}

func (s *RedisStore) entryKey(category Category, id string) string {
	return s.prefix + ":entry:" + string(category) + ":" + id
}
