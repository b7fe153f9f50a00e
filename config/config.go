package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the provider organization.
const (
	EnvOrgName = "TS_ORG_NAME"
	EnvOrgID   = "TS_ORG_ID"
)

// Config is the root configuration.
type Config struct {
	ThreatSync ThreatSyncConfig `yaml:"threatsync"`
}

// ThreatSyncConfig is the project configuration.
type ThreatSyncConfig struct {
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Graph    GraphConfig    `yaml:"graph"`
	Rules    RulesConfig    `yaml:"rules"`
	Audit    AuditConfig    `yaml:"audit"`
	Plan     PlanConfig     `yaml:"plan"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProviderConfig identifies the provider organization being synchronized.
type ProviderConfig struct {
	OrgName string `yaml:"org_name"`
	OrgID   string `yaml:"org_id"`
}

// CacheConfig controls the provider cache.
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis"`
}

// GraphConfig selects and configures the graph store.
type GraphConfig struct {
	Mode  string           `yaml:"mode"` // redis|http
	Redis RedisConfig      `yaml:"redis"`
	HTTP  HTTPOutputConfig `yaml:"http"`
}

// RedisConfig controls Redis access.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// RulesConfig controls finding rules.
type RulesConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AuditConfig controls the operation history sink.
type AuditConfig struct {
	Mode       string                 `yaml:"mode"` // none|file|clickhouse
	File       FileOutputConfig       `yaml:"file"`
	ClickHouse ClickHouseOutputConfig `yaml:"clickhouse"`
}

// PlanConfig controls plan output.
type PlanConfig struct {
	File FileOutputConfig `yaml:"file"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// ClickHouseOutputConfig config for ClickHouse HTTP JSONEachRow writes.
type ClickHouseOutputConfig struct {
	URL      string            `yaml:"url"`
	Database string            `yaml:"database"`
	Table    string            `yaml:"table"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	Timeout  time.Duration     `yaml:"timeout"`
	Headers  map[string]string `yaml:"headers"`
}

// FileOutputConfig config for local JSON output.
type FileOutputConfig struct {
	Path string `yaml:"path"`
}

// HTTPOutputConfig config for remote endpoints.
type HTTPOutputConfig struct {
	URL     string            `yaml:"url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnv overrides the provider organization from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvOrgName)); v != "" {
		c.ThreatSync.Provider.OrgName = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOrgID)); v != "" {
		c.ThreatSync.Provider.OrgID = v
	}
}
