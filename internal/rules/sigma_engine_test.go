package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threatsync/pkg/models"
)

const criticalOpenSSLRule = `title: Critical OpenSSL exposure
id: ts-vuln-001
level: high
logsource:
  product: threatstack
  category: vulnerability
detection:
  sel:
    severity: critical
    reportedPackage|contains: openssl
  condition: sel
tags:
  - attack.initial_access
  - attack.t1190
`

const windowsRule = `title: Windows only
logsource:
  product: windows
  service: sysmon
detection:
  sel:
    EventID: 1
  condition: sel
`

const keywordRule = `title: Keyword search
logsource:
  category: vulnerability
detection:
  keywords:
    - openssl
  condition: keywords
`

func writeRule(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestNewSigmaEngineLoadsCompatibleRules(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "openssl.yml", criticalOpenSSLRule)
	writeRule(t, dir, "windows.yaml", windowsRule)
	writeRule(t, dir, "keywords.yml", keywordRule)
	writeRule(t, dir, "broken.yml", "title: [unterminated")
	writeRule(t, dir, "README.md", "not a rule")

	engine, stats, err := NewSigmaEngine(dir)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 1, stats.Loaded)
	assert.Equal(t, 1, stats.SkippedDatasource)
	assert.Equal(t, 1, stats.SkippedComplex)
	assert.Equal(t, 1, stats.SkippedInvalid)
	assert.Equal(t, 1, engine.Len())
}

func TestSigmaEngineApply(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "openssl.yml", criticalOpenSSLRule)

	engine, _, err := NewSigmaEngine(filepath.Join(dir, "openssl.yml"))
	require.NoError(t, err)

	ctx := context.Background()
	tags := engine.Apply(ctx, &models.Vulnerability{CVENumber: "CVE-1", Severity: "critical", ReportedPackage: "openssl-libs"})
	require.Len(t, tags, 1)
	assert.Equal(t, "ts-vuln-001", tags[0].ID)
	assert.Equal(t, "high", tags[0].Severity)
	assert.Equal(t, "initial-access", tags[0].Tactic)
	assert.Equal(t, "T1190", tags[0].Technique)

	assert.Empty(t, engine.Apply(ctx, &models.Vulnerability{CVENumber: "CVE-2", Severity: "low", ReportedPackage: "openssl-libs"}))
	assert.Empty(t, engine.Apply(ctx, nil))

	var nilEngine *SigmaEngine
	assert.Empty(t, nilEngine.Apply(ctx, &models.Vulnerability{}))
	assert.Zero(t, nilEngine.Len())
}

func TestNewSigmaEngineRejectsBadPaths(t *testing.T) {
	_, _, err := NewSigmaEngine(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	dir := t.TempDir()
	writeRule(t, dir, "rule.txt", criticalOpenSSLRule)
	_, _, err = NewSigmaEngine(filepath.Join(dir, "rule.txt"))
	require.Error(t, err)
}

func TestNoopEngine(t *testing.T) {
	var engine Engine = &NoopEngine{}
	assert.Nil(t, engine.Apply(context.Background(), &models.Vulnerability{}))
}
