package docloader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
database:
  name: shop
  auth:
    username: admin
    password: secret
tables:
  users:
    columns:
      id: "INTEGER PRIMARY KEY"
      name: "VARCHAR(100) NOT NULL"
      active: "BOOLEAN DEFAULT true"
    data:
      - id: 1
        name: Alice
        active: true
      - id: 2
        name: Bob
  orders:
    columns:
      id: "INTEGER PRIMARY KEY"
      user_id: "INTEGER REFERENCES users(id)"
      total: "DECIMAL(10,2) NOT NULL"
    data:
      - id: 100
        user_id: 1
        total: 42.50
`

func TestParseAndBuild(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, "shop", doc.Database.Name)
	require.NotNil(t, doc.Database.Auth)
	assert.Equal(t, "admin", doc.Database.Auth.Username)
	require.Len(t, doc.Tables, 2)
	assert.Equal(t, "users", doc.Tables[0].Name)
	assert.Equal(t, "orders", doc.Tables[1].Name)

	db, err := Build(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, db.Auth)
	assert.Equal(t, "secret", db.Auth.Password)

	users, ok := db.Table("users")
	require.True(t, ok, "users table missing")
	require.Len(t, users.Rows, 2)
	activeIdx := users.ColumnIndex("active")
	assert.False(t, users.Rows[1][activeIdx].IsNull(), "row 2's active column should have fallen back to its DEFAULT, not NULL")

	orders, ok := db.Table("orders")
	require.True(t, ok, "orders table missing")
	assert.Len(t, orders.Rows, 1)
}

func TestBuildRejectsUnknownForeignKeyTarget(t *testing.T) {
	const bad = `
database:
  name: shop
tables:
  orders:
    columns:
      id: "INTEGER PRIMARY KEY"
      user_id: "INTEGER REFERENCES missing_table(id)"
    data:
      - id: 1
        user_id: 1
`
	doc, err := Parse([]byte(bad))
	require.NoError(t, err)
	_, err = Build(context.Background(), doc)
	assert.Error(t, err, "expected a schema error for a REFERENCES target that doesn't exist")
}

func TestBuildRejectsMissingRequiredColumn(t *testing.T) {
	const bad = `
database:
  name: shop
tables:
  users:
    columns:
      id: "INTEGER PRIMARY KEY"
      name: "VARCHAR(100) NOT NULL"
    data:
      - id: 1
`
	doc, err := Parse([]byte(bad))
	require.NoError(t, err)
	_, err = Build(context.Background(), doc)
	assert.Error(t, err, "expected a constraint error for an omitted NOT NULL column with no default")
}
