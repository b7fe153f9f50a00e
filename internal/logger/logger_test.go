package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, parseLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, parseLevel("error"))
	assert.Equal(t, logrus.InfoLevel, parseLevel("bogus"))
}

func TestInitWriterFiltersByLevel(t *testing.T) {
	t.Cleanup(func() { globalLogger = nil })

	var buf bytes.Buffer
	InitWriter("warn", &buf)

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden 1")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestDisabledLoggerIsSilent(t *testing.T) {
	require.NoError(t, Init(false, "debug", "", true))
	Errorf("nothing")
	WithFields(Fields{"k": "v"}).Info("nothing")
}

func TestInitCreatesLogFile(t *testing.T) {
	t.Cleanup(func() { globalLogger = nil })

	path := filepath.Join(t.TempDir(), "logs", "threatsync.log")
	require.NoError(t, Init(true, "info", path, false))

	Infof("run started")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "run started")
}
