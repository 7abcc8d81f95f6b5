package parseradapter

import (
	"context"
	"testing"

	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamCountNoPlaceholders(t *testing.T) {
	stmt, err := ParseOne(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, 0, ParamCount(stmt))
}

func TestParamCountFindsHighestIndex(t *testing.T) {
	stmt, err := ParseOne(context.Background(), "SELECT id FROM t WHERE a = $1 AND b = $3 OR c = $2")
	require.NoError(t, err)
	assert.Equal(t, 3, ParamCount(stmt))
}

func TestParamCountReachesIntoSubquery(t *testing.T) {
	stmt, err := ParseOne(context.Background(), "SELECT id FROM t WHERE id IN (SELECT id FROM u WHERE x = $1)")
	require.NoError(t, err)
	assert.Equal(t, 1, ParamCount(stmt))
}

func TestParseOneRejectsMultipleStatements(t *testing.T) {
	_, err := ParseOne(context.Background(), "SELECT 1; SELECT 2")
	assert.Error(t, err, "ParseOne should reject more than one statement")
}

func TestParseSplitsOnStatementBoundaries(t *testing.T) {
	stmts, err := Parse(context.Background(), "SELECT 1; SELECT 2")
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.IsType(t, &sqlast.SelectStatement{}, stmts[0])
}

func TestParseInvalidSQLReturnsParseError(t *testing.T) {
	_, err := ParseOne(context.Background(), "SELEC 1 FORM")
	require.Error(t, err)
}
