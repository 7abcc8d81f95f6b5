package main

import (
	"testing"

	"github.com/memsqld/memsqld/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestApplyEnvOverridesSetsFields(t *testing.T) {
	t.Setenv("MEMSQLD_DOCUMENT", "/tmp/doc.yaml")
	t.Setenv("MEMSQLD_HOST", "10.0.0.5")
	t.Setenv("MEMSQLD_PG_PORT", "15432")

	got := config.Defaults()
	applyEnvOverrides(&got)

	assert.Equal(t, "/tmp/doc.yaml", got.DocumentPath)
	assert.Equal(t, "10.0.0.5", got.Host)
	assert.EqualValues(t, 15432, got.PgPort)
}

func TestApplyEnvOverridesLeavesDefaultsWhenUnset(t *testing.T) {
	got := config.Defaults()
	applyEnvOverrides(&got)
	assert.Equal(t, "0.0.0.0", got.Host)
	assert.EqualValues(t, 5432, got.PgPort)
}

func TestParseProtocolSelectorDefaultsBoth(t *testing.T) {
	pg, mysql := parseProtocolSelector("pg,mysql")
	assert.True(t, pg)
	assert.True(t, mysql)
}

func TestParseProtocolSelectorSingleProtocol(t *testing.T) {
	pg, mysql := parseProtocolSelector("mysql")
	assert.False(t, pg)
	assert.True(t, mysql)
}

func TestParseProtocolSelectorUnknownNameIsIgnored(t *testing.T) {
	pg, mysql := parseProtocolSelector("parcel")
	assert.False(t, pg)
	assert.False(t, mysql)
}
