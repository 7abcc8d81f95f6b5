package catalog

import (
	"testing"

	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTablePKLookup(t *testing.T) {
	cols := []Column{
		{Name: "id", Type: sqlval.TypeInteger, PrimaryKey: true},
		{Name: "name", Type: sqlval.TypeText},
	}
	rows := []Row{
		{sqlval.Integer(1), sqlval.Text("a")},
		{sqlval.Integer(2), sqlval.Text("b")},
	}
	tbl := NewTable("t", cols, rows)

	row, ok := tbl.LookupPK(sqlval.Integer(2))
	require.True(t, ok)
	assert.Equal(t, "b", row[1].AsText())

	_, ok = tbl.LookupPK(sqlval.Integer(99))
	assert.False(t, ok, "LookupPK(99) should miss")

	_, ok = tbl.LookupPK(sqlval.Null())
	assert.False(t, ok, "LookupPK(Null) should never match, per the distinct-Null rule")
}

func TestTableColumnIndexCaseInsensitive(t *testing.T) {
	tbl := NewTable("t", []Column{{Name: "Name", Type: sqlval.TypeText}}, nil)
	assert.Equal(t, 0, tbl.ColumnIndex("name"))
	assert.Equal(t, -1, tbl.ColumnIndex("missing"))
}

func TestDatabaseAnonymousAuth(t *testing.T) {
	db := NewDatabase("d", nil)
	assert.True(t, db.Authenticate("anyone", "whatever"), "a nil Auth descriptor should accept any credentials")
}

func TestDatabaseAuthOverride(t *testing.T) {
	db := NewDatabase("d", &AuthConfig{Username: "root", Password: "secret"})
	assert.True(t, db.Authenticate("root", "secret"))
	assert.False(t, db.Authenticate("root", "wrong"))
}

func TestDatabaseTableOrderPreserved(t *testing.T) {
	db := NewDatabase("d", nil)
	db.AddTable(NewTable("b", nil, nil))
	db.AddTable(NewTable("a", nil, nil))
	assert.Equal(t, []string{"b", "a"}, db.TableNames())
}
