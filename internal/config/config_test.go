package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsAreServable(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.EqualValues(t, 5432, cfg.PgPort)
	assert.EqualValues(t, 3306, cfg.MysqlPort)
	assert.EqualValues(t, 10, cfg.MaxConnections)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.EqualValues(t, 100, cfg.LogMaxSize)
	assert.Empty(t, cfg.DocumentPath, "DocumentPath should default empty, required to be set explicitly")
	assert.False(t, cfg.Watch)
}
