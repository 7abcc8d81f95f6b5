package logsetup

import (
	"path/filepath"
	"testing"

	"github.com/memsqld/memsqld/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutLogFileReturnsDevelopmentLogger(t *testing.T) {
	cfg := config.Defaults()
	log, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, log)
	log.Info("hello")
}

func TestNewWithLogFileBuildsRotatingCore(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogFilename = filepath.Join(t.TempDir(), "sqlmockd.log")
	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("hello to a file")
	if err := log.Sync(); err != nil {
		t.Logf("Sync() = %v (stderr-backed sync errors are expected on some platforms)", err)
	}
}

func TestNewRejectsBadLogLevel(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = "not-a-level"
	_, err := New(cfg)
	require.Error(t, err, "New() with an invalid LogLevel should return an error")
}
