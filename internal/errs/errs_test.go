package errs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParseErrorCarriesWireCodes(t *testing.T) {
	err := NewParseError(context.Background(), "unexpected token %q", "FROM")
	assert.Equal(t, `unexpected token "FROM"`, err.Error())
	assert.Equal(t, KindParse, err.Kind)
	assert.EqualValues(t, 1064, err.MySQLCode)
	assert.Equal(t, "42000", err.SQLState)
	assert.Equal(t, "42601", err.PgCode)
}

func TestNewCancellationErrorHasNoArgs(t *testing.T) {
	err := NewCancellationError(context.Background())
	assert.Equal(t, KindCancellation, err.Kind)
	assert.Equal(t, "query canceled", err.Error())
}

func TestAsAndIsKind(t *testing.T) {
	var err error = NewSchemaError(context.Background(), "no such table")
	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindSchema, e.Kind)

	assert.True(t, IsKind(err, KindSchema))
	assert.False(t, IsKind(err, KindAuth))
	assert.False(t, IsKind(nil, KindSchema))
}

func TestKindStringCoversAllMembers(t *testing.T) {
	kinds := []Kind{KindParse, KindSchema, KindType, KindConstraint, KindFeature, KindProtocol, KindAuth, KindIo, KindCancellation}
	seen := map[string]bool{}
	for _, k := range kinds {
		s := k.String()
		assert.NotEqual(t, "UnknownError", s)
		assert.False(t, seen[s], "duplicate Kind.String() value %q", s)
		seen[s] = true
	}
}
