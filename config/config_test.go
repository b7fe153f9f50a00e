package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
threatsync:
  provider:
    org_name: Acme
    org_id: org-1
  cache:
    redis:
      addr: 10.0.0.1:6379
      key_prefix: acme:cache
  graph:
    mode: http
    http:
      url: http://graph.local/api
      timeout: 3s
      headers:
        Authorization: Bearer x
  audit:
    mode: clickhouse
    clickhouse:
      url: http://ch:8123
      table: ops
  logging:
    enabled: true
    level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "threatsync.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	ts := cfg.ThreatSync
	assert.Equal(t, "Acme", ts.Provider.OrgName)
	assert.Equal(t, "org-1", ts.Provider.OrgID)
	assert.Equal(t, "10.0.0.1:6379", ts.Cache.Redis.Addr)
	assert.Equal(t, "acme:cache", ts.Cache.Redis.KeyPrefix)
	assert.Equal(t, "http", ts.Graph.Mode)
	assert.Equal(t, 3*time.Second, ts.Graph.HTTP.Timeout)
	assert.Equal(t, "Bearer x", ts.Graph.HTTP.Headers["Authorization"])
	assert.Equal(t, "ops", ts.Audit.ClickHouse.Table)
	assert.True(t, ts.Logging.Enabled)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "threatsync: [not, a, map"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	t.Setenv(EnvOrgName, "")
	t.Setenv(EnvOrgID, "org-env")
	cfg.ApplyEnv()

	assert.Equal(t, "Acme", cfg.ThreatSync.Provider.OrgName)
	assert.Equal(t, "org-env", cfg.ThreatSync.Provider.OrgID)
}
