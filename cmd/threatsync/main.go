package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"threatsync/config"
	"threatsync/internal/cache"
	"threatsync/internal/graphstore/graphhttp"
	graphredis "threatsync/internal/graphstore/redis"
	"threatsync/internal/logger"
	"threatsync/internal/metrics"
	"threatsync/internal/output/opsclickhouse"
	"threatsync/internal/output/opsjson"
	"threatsync/internal/pipeline"
	"threatsync/internal/rules"
	"threatsync/pkg/models"
)

const defaultConfigName = "threatsync.yml"

type graphStore interface {
	pipeline.GraphReader
	pipeline.OperationWriter
}

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), defaultConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return defaultConfigName
}

func applyDefaults(cfg *config.Config) {
	ts := &cfg.ThreatSync

	if ts.Cache.Redis.Addr == "" {
		ts.Cache.Redis.Addr = "127.0.0.1:6379"
	}
	if ts.Cache.Redis.KeyPrefix == "" {
		ts.Cache.Redis.KeyPrefix = "threatsync:cache"
	}

	if ts.Graph.Mode == "" {
		ts.Graph.Mode = "redis"
	}
	if ts.Graph.Redis.Addr == "" {
		ts.Graph.Redis.Addr = ts.Cache.Redis.Addr
	}
	if ts.Graph.Redis.KeyPrefix == "" {
		ts.Graph.Redis.KeyPrefix = "threatsync:graph"
	}
	if ts.Graph.HTTP.Timeout <= 0 {
		ts.Graph.HTTP.Timeout = 10 * time.Second
	}

	if ts.Audit.Mode == "" {
		ts.Audit.Mode = "none"
	}
	if ts.Audit.File.Path == "" {
		ts.Audit.File.Path = "output/operations.jsonl"
	}
	if ts.Audit.ClickHouse.Database == "" {
		ts.Audit.ClickHouse.Database = "threatsync"
	}
	if ts.Audit.ClickHouse.Table == "" {
		ts.Audit.ClickHouse.Table = "operations"
	}

	if ts.Plan.File.Path == "" {
		ts.Plan.File.Path = "output/plan.jsonl"
	}

	if ts.Logging.Level == "" {
		ts.Logging.Level = "info"
	}
}

func loadConfig(configArg string) (*config.Config, string, error) {
	configPath := findConfigFile(configArg)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, configPath, err
	}
	cfg.ApplyEnv()
	applyDefaults(cfg)
	return cfg, configPath, nil
}

func openGraphStore(cfg config.GraphConfig) (graphStore, error) {
	switch cfg.Mode {
	case "redis":
		s, err := graphredis.NewStore(graphredis.Config{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Graph store: redis (%s)", cfg.Redis.Addr)
		return s, nil
	case "http":
		s, err := graphhttp.NewStore(graphhttp.Config{
			URL:     cfg.HTTP.URL,
			Timeout: cfg.HTTP.Timeout,
			Headers: cfg.HTTP.Headers,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Graph store: http (%s)", cfg.HTTP.URL)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown graph mode: %s", cfg.Mode)
	}
}

func openAuditWriter(cfg config.AuditConfig) (pipeline.OperationWriter, error) {
	switch cfg.Mode {
	case "none":
		return nil, nil
	case "file":
		w, err := opsjson.NewWriter(cfg.File.Path, false)
		if err != nil {
			return nil, err
		}
		logger.Infof("Audit mode: file (%s)", cfg.File.Path)
		return w, nil
	case "clickhouse":
		w, err := opsclickhouse.NewWriter(opsclickhouse.Config{
			URL:      cfg.ClickHouse.URL,
			Database: cfg.ClickHouse.Database,
			Table:    cfg.ClickHouse.Table,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
			Timeout:  cfg.ClickHouse.Timeout,
			Headers:  cfg.ClickHouse.Headers,
		})
		if err != nil {
			return nil, err
		}
		logger.Infof("Audit mode: clickhouse (%s/%s.%s)", cfg.ClickHouse.URL, cfg.ClickHouse.Database, cfg.ClickHouse.Table)
		return w, nil
	default:
		return nil, fmt.Errorf("unknown audit mode: %s", cfg.Mode)
	}
}

func loadRules(cfg config.RulesConfig) (rules.Engine, error) {
	if !cfg.Enabled {
		return &rules.NoopEngine{}, nil
	}
	if strings.TrimSpace(cfg.Path) == "" {
		logger.Warnf("Rules enabled but rules.path is empty; finding tagging disabled")
		return &rules.NoopEngine{}, nil
	}
	engine, stats, err := rules.NewSigmaEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("load sigma rules from %s: %w", cfg.Path, err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		engine.Len(), stats.SkippedComplex, stats.SkippedDatasource, stats.SkippedInvalid, stats.TotalFiles)
	if engine.Len() == 0 {
		logger.Warnf("No compatible Sigma rules loaded; finding tagging is effectively disabled")
	}
	return engine, nil
}

func runSync(args []string, plan bool) int {
	configArg := ""
	if len(args) > 0 {
		configArg = args[0]
	}

	cfg, configPath, err := loadConfig(configArg)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	ts := cfg.ThreatSync

	if err := logger.Init(ts.Logging.Enabled, ts.Logging.Level, ts.Logging.File, ts.Logging.Console); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	logger.Infof("ThreatSync starting (plan=%t)", plan)
	logger.Infof("Config loaded from: %s", configPath)

	if ts.Provider.OrgID == "" {
		fmt.Fprintf(os.Stderr, "provider org id is empty; set provider.org_id or %s\n", config.EnvOrgID)
		return 1
	}

	engine, err := loadRules(ts.Rules)
	if err != nil {
		logger.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	cacheStore, err := cache.NewRedisStore(cache.RedisConfig{
		Addr:      ts.Cache.Redis.Addr,
		Password:  ts.Cache.Redis.Password,
		DB:        ts.Cache.Redis.DB,
		KeyPrefix: ts.Cache.Redis.KeyPrefix,
	})
	if err != nil {
		logger.Errorf("Failed to open cache: %v", err)
		fmt.Fprintf(os.Stderr, "failed to open cache: %v\n", err)
		return 1
	}
	defer cacheStore.Close()

	graph, err := openGraphStore(ts.Graph)
	if err != nil {
		logger.Errorf("Failed to open graph store: %v", err)
		fmt.Fprintf(os.Stderr, "failed to open graph store: %v\n", err)
		return 1
	}

	var publisher pipeline.OperationWriter = graph
	if plan {
		w, err := opsjson.NewWriter(ts.Plan.File.Path, true)
		if err != nil {
			graph.Close()
			fmt.Fprintf(os.Stderr, "failed to open plan file: %v\n", err)
			return 1
		}
		publisher = w
		defer graph.Close()
		logger.Infof("Plan mode: operations written to %s", ts.Plan.File.Path)
	}

	audit, err := openAuditWriter(ts.Audit)
	if err != nil {
		publisher.Close()
		fmt.Fprintf(os.Stderr, "failed to open audit sink: %v\n", err)
		return 1
	}
	if plan {
		// Nothing is applied in plan mode, so there is nothing to audit.
		if audit != nil {
			audit.Close()
		}
		audit = nil
	}

	recorder := metrics.NewRecorder()
	pipe := pipeline.NewSyncPipeline(pipeline.Config{
		Organization: models.Organization{OrgName: ts.Provider.OrgName, OrgID: ts.Provider.OrgID},
		Cache:        cacheStore,
		Graph:        graph,
		Publisher:    publisher,
		Audit:        audit,
		Rules:        engine,
		Metrics:      recorder,
	})
	defer func() {
		if err := pipe.Close(); err != nil {
			logger.Errorf("Error closing pipeline: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logPreviousRun(ctx, graph)

	result, runErr := pipe.Run(ctx)

	if ts.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(ts.Metrics.Textfile); err != nil {
			logger.Errorf("Failed to write metrics textfile: %v", err)
		}
	}

	if runErr != nil {
		logger.Errorf("Synchronization failed: %v", runErr)
		if msg, ok := pipeline.Exposed(runErr); ok {
			fmt.Fprintln(os.Stderr, msg)
		} else if errors.Is(runErr, context.Canceled) {
			fmt.Fprintln(os.Stderr, "synchronization interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "synchronization failed: %v\n", runErr)
		}
		return 1
	}

	printSummary(result, plan)
	return 0
}

type runHistory interface {
	LastRunID(ctx context.Context) (string, error)
}

func logPreviousRun(ctx context.Context, graph graphStore) {
	h, ok := graph.(runHistory)
	if !ok {
		return
	}
	id, err := h.LastRunID(ctx)
	if err != nil {
		logger.Warnf("Failed to read previous run id: %v", err)
		return
	}
	if id == "" {
		logger.Infof("No previous run recorded in graph store")
		return
	}
	logger.Infof("Previous run applied to graph store: %s", id)
}

func printSummary(res *pipeline.Result, plan bool) {
	verb := "applied"
	if plan {
		verb = "planned"
	}
	for _, step := range res.Steps {
		fmt.Printf("%-16s created=%d updated=%d deleted=%d\n",
			step.Name, step.Summary.Created, step.Summary.Updated, step.Summary.Deleted)
	}
	for _, name := range res.Skipped {
		fmt.Printf("%-16s skipped\n", name)
	}
	fmt.Printf("run=%s %s created=%d updated=%d deleted=%d\n",
		res.RunID, verb, res.Summary.Created, res.Summary.Updated, res.Summary.Deleted)
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  threatsync sync [config]             synchronize cached provider data into the graph
  threatsync plan [config]             write the operations a sync would apply to the plan file
  threatsync seed [config] <fixture>   load a JSON fixture into the provider cache
`)
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "sync":
			os.Exit(runSync(os.Args[2:], false))
		case "plan":
			os.Exit(runSync(os.Args[2:], true))
		case "seed":
			os.Exit(runSeed(os.Args[2:]))
		case "-h", "--help", "help":
			usage()
			return
		default:
			// Backward-compatible mode: first arg is config path.
			os.Exit(runSync(os.Args[1:], false))
		}
	}

	os.Exit(runSync(nil, false))
}
