package docloader

import (
	"context"
	"testing"

	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnDefBaseTypes(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		def  string
		kind sqlval.Kind
	}{
		{"INTEGER", sqlval.KInteger},
		{"INT", sqlval.KInteger},
		{"BIGINT", sqlval.KBigInt},
		{"VARCHAR(100)", sqlval.KText},
		{"TEXT", sqlval.KText},
		{"BOOLEAN", sqlval.KBoolean},
		{"DECIMAL(10,2)", sqlval.KDecimal},
		{"FLOAT", sqlval.KFloat},
		{"TIMESTAMP", sqlval.KTimestamp},
		{"DATE", sqlval.KDate},
		{"UUID", sqlval.KUuid},
		{"JSON", sqlval.KJson},
	}
	for _, c := range cases {
		pc, err := parseColumnDef(ctx, "col", c.def)
		require.NoError(t, err, c.def)
		assert.Equal(t, c.kind, pc.sqlType.Kind, c.def)
	}
}

func TestParseColumnDefModifiers(t *testing.T) {
	ctx := context.Background()

	pc, err := parseColumnDef(ctx, "id", "INTEGER PRIMARY KEY")
	require.NoError(t, err)
	assert.True(t, pc.primaryKey)
	assert.False(t, pc.nullable)

	pc, err = parseColumnDef(ctx, "name", "VARCHAR(100) NOT NULL UNIQUE")
	require.NoError(t, err)
	assert.False(t, pc.nullable)
	assert.True(t, pc.unique)

	pc, err = parseColumnDef(ctx, "status", "INTEGER DEFAULT 1")
	require.NoError(t, err)
	assert.True(t, pc.hasDefault)
	assert.Equal(t, "1", pc.defaultLit)

	pc, err = parseColumnDef(ctx, "owner_id", "INTEGER REFERENCES users(id)")
	require.NoError(t, err)
	require.NotNil(t, pc.references)
	assert.Equal(t, "USERS", pc.references.Table)
	assert.Equal(t, "ID", pc.references.Column)
}

func TestParseColumnDefUnknownType(t *testing.T) {
	_, err := parseColumnDef(context.Background(), "col", "NOTATYPE")
	assert.Error(t, err, "expected an error for an unknown base type")
}

func TestVarcharDecimalArgs(t *testing.T) {
	ctx := context.Background()

	pc, err := parseColumnDef(ctx, "name", "VARCHAR(42)")
	require.NoError(t, err)
	assert.EqualValues(t, 42, pc.sqlType.Len)

	pc, err = parseColumnDef(ctx, "price", "DECIMAL(12,4)")
	require.NoError(t, err)
	assert.EqualValues(t, 12, pc.sqlType.Precision)
	assert.EqualValues(t, 4, pc.sqlType.Scale)
}
