package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"threatsync/internal/cache"
	"threatsync/internal/logger"
	"threatsync/internal/transform/threatstack"
)

// fixture is the seed file layout. Failed lists data-sets whose fetch is
// recorded as failed; every other data-set is recorded as successful.
type fixture struct {
	OnlineAgents    []json.RawMessage `json:"onlineAgents"`
	OfflineAgents   []json.RawMessage `json:"offlineAgents"`
	Vulnerabilities []json.RawMessage `json:"vulnerabilities"`
	Failed          []cache.Category  `json:"failed"`
}

type cacheWriter interface {
	WriteEntries(ctx context.Context, category cache.Category, ids []string, payloads []json.RawMessage) error
	WriteFetchStatus(ctx context.Context, category cache.Category, fetchErr error) error
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fx fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

func agentIDs(payloads []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(payloads))
	for i, raw := range payloads {
		agent, err := threatstack.ParseAgent(raw)
		if err != nil {
			return nil, fmt.Errorf("agent %d: %w", i, err)
		}
		ids = append(ids, agent.ID)
	}
	return ids, nil
}

// vulnerabilityIDs uses the record's "id" field, falling back to its position.
func vulnerabilityIDs(payloads []json.RawMessage) ([]string, error) {
	ids := make([]string, 0, len(payloads))
	for i, raw := range payloads {
		if _, err := threatstack.ParseVulnerability(raw); err != nil {
			return nil, fmt.Errorf("vulnerability %d: %w", i, err)
		}
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, fmt.Errorf("vulnerability %d id: %w", i, err)
		}
		if head.ID == "" {
			head.ID = "vuln-" + strconv.Itoa(i+1)
		}
		ids = append(ids, head.ID)
	}
	return ids, nil
}

func seedCache(ctx context.Context, w cacheWriter, fx *fixture) error {
	failed := map[cache.Category]bool{}
	for _, c := range fx.Failed {
		failed[c] = true
	}

	sets := []struct {
		category cache.Category
		payloads []json.RawMessage
		ids      func([]json.RawMessage) ([]string, error)
	}{
		{cache.OnlineAgents, fx.OnlineAgents, agentIDs},
		{cache.OfflineAgents, fx.OfflineAgents, agentIDs},
		{cache.Vulnerabilities, fx.Vulnerabilities, vulnerabilityIDs},
	}
	for _, set := range sets {
		ids, err := set.ids(set.payloads)
		if err != nil {
			return fmt.Errorf("seed %s: %w", set.category, err)
		}
		if err := w.WriteEntries(ctx, set.category, ids, set.payloads); err != nil {
			return err
		}
		var fetchErr error
		if failed[set.category] {
			fetchErr = errors.New("fetch marked failed by fixture")
		}
		if err := w.WriteFetchStatus(ctx, set.category, fetchErr); err != nil {
			return err
		}
		logger.Infof("Seeded %s: entries=%d failed=%t", set.category, len(ids), failed[set.category])
	}
	return nil
}

func runSeed(args []string) int {
	var configArg, fixturePath string
	switch len(args) {
	case 1:
		fixturePath = args[0]
	case 2:
		configArg, fixturePath = args[0], args[1]
	default:
		usage()
		return 2
	}

	cfg, _, err := loadConfig(configArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	ts := cfg.ThreatSync
	if err := logger.Init(ts.Logging.Enabled, ts.Logging.Level, ts.Logging.File, ts.Logging.Console); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}

	fx, err := loadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load fixture: %v\n", err)
		return 1
	}

	store, err := cache.NewRedisStore(cache.RedisConfig{
		Addr:      ts.Cache.Redis.Addr,
		Password:  ts.Cache.Redis.Password,
		DB:        ts.Cache.Redis.DB,
		KeyPrefix: ts.Cache.Redis.KeyPrefix,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open cache: %v\n", err)
		return 1
	}
	defer store.Close()

	if err := seedCache(context.Background(), store, fx); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		return 1
	}
	fmt.Printf("seeded online=%d offline=%d vulnerabilities=%d\n",
		len(fx.OnlineAgents), len(fx.OfflineAgents), len(fx.Vulnerabilities))
	return 0
}
