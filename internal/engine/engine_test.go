package engine

import (
	"context"
	"testing"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/parseradapter"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *catalog.Database {
	t.Helper()
	db := catalog.NewDatabase("test", nil)
	cols := []catalog.Column{
		{Name: "id", Type: sqlval.TypeInteger, PrimaryKey: true},
		{Name: "dept", Type: sqlval.TypeText, Nullable: true},
		{Name: "salary", Type: sqlval.TypeInteger, Nullable: true},
	}
	rows := []catalog.Row{
		{sqlval.Integer(1), sqlval.Text("eng"), sqlval.Integer(100)},
		{sqlval.Integer(2), sqlval.Text("eng"), sqlval.Integer(200)},
		{sqlval.Integer(3), sqlval.Text("sales"), sqlval.Integer(150)},
	}
	db.AddTable(catalog.NewTable("employees", cols, rows))
	return db
}

func usersOrdersDB(t *testing.T) *catalog.Database {
	t.Helper()
	db := catalog.NewDatabase("test", nil)
	userCols := []catalog.Column{
		{Name: "id", Type: sqlval.TypeInteger, PrimaryKey: true},
		{Name: "name", Type: sqlval.TypeText},
	}
	userRows := []catalog.Row{
		{sqlval.Integer(1), sqlval.Text("a")},
		{sqlval.Integer(2), sqlval.Text("b")},
	}
	db.AddTable(catalog.NewTable("users", userCols, userRows))

	orderCols := []catalog.Column{
		{Name: "user_id", Type: sqlval.TypeInteger},
		{Name: "total", Type: sqlval.TypeInteger},
	}
	orderRows := []catalog.Row{
		{sqlval.Integer(1), sqlval.Integer(10)},
		{sqlval.Integer(1), sqlval.Integer(20)},
	}
	db.AddTable(catalog.NewTable("orders", orderCols, orderRows))
	return db
}

func execSelect(t *testing.T, db *catalog.Database, sql string) *Result {
	t.Helper()
	stmt, err := parseradapter.ParseOne(context.Background(), sql)
	require.NoError(t, err, "parse %q", sql)
	sel, ok := stmt.(*sqlast.SelectStatement)
	require.True(t, ok, "%q did not parse to a SelectStatement", sql)
	res, err := New(db).ExecuteSelect(context.Background(), sel)
	require.NoError(t, err, "execute %q", sql)
	return res
}

func TestSimpleSelect(t *testing.T) {
	db := testDB(t)
	res := execSelect(t, db, "SELECT id, dept FROM employees WHERE salary > 120 ORDER BY id")
	require.Len(t, res.Rows, 2)
	assert.EqualValues(t, 2, res.Rows[0][0].AsInt())
}

// Spec §8 scenario 1: boolean filter plus ORDER BY.
func TestBooleanFilterOrdering(t *testing.T) {
	db := catalog.NewDatabase("test", nil)
	cols := []catalog.Column{
		{Name: "id", Type: sqlval.TypeInteger, PrimaryKey: true},
		{Name: "name", Type: sqlval.TypeText},
		{Name: "is_active", Type: sqlval.TypeBoolean},
	}
	rows := []catalog.Row{
		{sqlval.Integer(1), sqlval.Text("a"), sqlval.Boolean(true)},
		{sqlval.Integer(2), sqlval.Text("b"), sqlval.Boolean(false)},
		{sqlval.Integer(3), sqlval.Text("c"), sqlval.Boolean(true)},
	}
	db.AddTable(catalog.NewTable("users", cols, rows))

	res := execSelect(t, db, "SELECT name FROM users WHERE is_active = true ORDER BY id")
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "a", res.Rows[0][0].AsText())
	assert.Equal(t, "c", res.Rows[1][0].AsText())
}

// Spec §8 scenario 2: SUM/COUNT(*)/COUNT(expr) over a DECIMAL column with
// a NULL, including the BigInt/Decimal type-preservation rule.
func TestDecimalSumAndCountSkipsNull(t *testing.T) {
	db := catalog.NewDatabase("test", nil)
	cols := []catalog.Column{
		{Name: "id", Type: sqlval.TypeInteger, PrimaryKey: true},
		{Name: "amount", Type: sqlval.DecimalType(10, 2), Nullable: true},
	}
	rows := []catalog.Row{
		{sqlval.Integer(1), sqlval.Decimal(decimal.NewFromFloat(10.00))},
		{sqlval.Integer(2), sqlval.Decimal(decimal.NewFromFloat(20.50))},
		{sqlval.Integer(3), sqlval.Null()},
	}
	db.AddTable(catalog.NewTable("orders", cols, rows))

	res := execSelect(t, db, "SELECT SUM(amount), COUNT(*), COUNT(amount) FROM orders")
	require.Len(t, res.Rows, 1)
	sum := res.Rows[0][0]
	assert.Equal(t, sqlval.KDecimal, sum.Kind)
	assert.True(t, sum.AsDecimal().Equal(decimal.NewFromFloat(30.50)))
	assert.EqualValues(t, 3, res.Rows[0][1].AsInt())
	assert.EqualValues(t, 2, res.Rows[0][2].AsInt())
}

// Spec §8 scenario 3: LEFT JOIN with no matching right row still emits
// one row per left row, with the aggregate over the Null-padded side
// falling back to 0 via COUNT's empty-group rule.
func TestLeftJoinGroupByCountsZeroForUnmatched(t *testing.T) {
	db := usersOrdersDB(t)
	res := execSelect(t, db,
		"SELECT u.name, COUNT(o.total) FROM users u LEFT JOIN orders o ON o.user_id = u.id GROUP BY u.name ORDER BY u.name")
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "a", res.Rows[0][0].AsText())
	assert.EqualValues(t, 2, res.Rows[0][1].AsInt())
	assert.Equal(t, "b", res.Rows[1][0].AsText())
	assert.EqualValues(t, 0, res.Rows[1][1].AsInt())
}

// Spec §8 scenario 4: a CTE referencing no table, just literals.
func TestCTEArithmeticOnLiterals(t *testing.T) {
	db := catalog.NewDatabase("test", nil)
	res := execSelect(t, db, "WITH r AS (SELECT 1 a, 2 b) SELECT a+b FROM r")
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 3, res.Rows[0][0].AsInt())
}

// Spec §8 scenario 6: DISTINCT ON with an ORDER BY beginning with the
// DISTINCT ON expressions, keeping the first row per group.
func TestDistinctOnKeepsFirstPerGroupUnderOrderBy(t *testing.T) {
	db := catalog.NewDatabase("test", nil)
	cols := []catalog.Column{
		{Name: "dept", Type: sqlval.TypeText},
		{Name: "name", Type: sqlval.TypeText},
		{Name: "salary", Type: sqlval.TypeInteger},
	}
	rows := []catalog.Row{
		{sqlval.Text("eng"), sqlval.Text("x"), sqlval.Integer(100)},
		{sqlval.Text("eng"), sqlval.Text("y"), sqlval.Integer(200)},
		{sqlval.Text("sales"), sqlval.Text("z"), sqlval.Integer(150)},
	}
	db.AddTable(catalog.NewTable("emp", cols, rows))

	res := execSelect(t, db, "SELECT DISTINCT ON (dept) dept, name, salary FROM emp ORDER BY dept, salary DESC")
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "eng", res.Rows[0][0].AsText())
	assert.Equal(t, "y", res.Rows[0][1].AsText())
	assert.Equal(t, "sales", res.Rows[1][0].AsText())
	assert.Equal(t, "z", res.Rows[1][1].AsText())
}

func TestUnionAllPreservesMultiplicity(t *testing.T) {
	db := testDB(t)
	res := execSelect(t, db, "SELECT dept FROM employees WHERE dept = 'eng' UNION ALL SELECT dept FROM employees WHERE dept = 'eng'")
	assert.Len(t, res.Rows, 2)
}

func TestUnionDedupesRows(t *testing.T) {
	db := testDB(t)
	res := execSelect(t, db, "SELECT dept FROM employees WHERE dept = 'eng' UNION SELECT dept FROM employees WHERE dept = 'eng'")
	assert.Len(t, res.Rows, 1)
}

func TestSetOpArityMismatchFails(t *testing.T) {
	db := testDB(t)
	stmt, err := parseradapter.ParseOne(context.Background(), "SELECT id, dept FROM employees UNION SELECT id FROM employees")
	require.NoError(t, err)
	sel := stmt.(*sqlast.SelectStatement)
	_, err = New(db).ExecuteSelect(context.Background(), sel)
	assert.Error(t, err, "mismatched set-operation arity should fail with a SchemaError")
}

func TestWindowFunctionPartitioning(t *testing.T) {
	db := testDB(t)
	res := execSelect(t, db, "SELECT id, dept, ROW_NUMBER() OVER (PARTITION BY dept ORDER BY salary) AS rn FROM employees ORDER BY id")
	require.Len(t, res.Rows, 3)
	rnIdx := -1
	for i, c := range res.Columns {
		if c.Name == "rn" {
			rnIdx = i
		}
	}
	require.GreaterOrEqual(t, rnIdx, 0, "no rn column in result")
	for _, row := range res.Rows {
		assert.False(t, row[rnIdx].IsNull(), "ROW_NUMBER() should never be NULL")
	}
}

func TestRankProducesGapsAfterTies(t *testing.T) {
	db := testDB(t)
	res := execSelect(t, db, "SELECT id, RANK() OVER (ORDER BY dept) AS r FROM employees ORDER BY id")
	require.Len(t, res.Rows, 3)
	rIdx := -1
	for i, c := range res.Columns {
		if c.Name == "r" {
			rIdx = i
		}
	}
	require.GreaterOrEqual(t, rIdx, 0)
	// rows 1,2 are both "eng" (tie at rank 1); row 3 is "sales" (rank 3, a gap after the tie).
	assert.EqualValues(t, 1, res.Rows[0][rIdx].AsInt())
	assert.EqualValues(t, 1, res.Rows[1][rIdx].AsInt())
	assert.EqualValues(t, 3, res.Rows[2][rIdx].AsInt())
}

func TestNotInWithNullOnRightYieldsNoRows(t *testing.T) {
	db := usersOrdersDB(t)
	// NULL IN the subquery's column forces every NOT IN comparison to
	// Null, so no row passes the WHERE filter.
	orders, _ := db.Table("orders")
	orders.Rows = append(orders.Rows, catalog.Row{sqlval.Null(), sqlval.Integer(5)})
	res := execSelect(t, db, "SELECT id FROM users WHERE id NOT IN (SELECT user_id FROM orders)")
	assert.Empty(t, res.Rows)
}

func TestExistsSubqueryCorrelated(t *testing.T) {
	db := usersOrdersDB(t)
	res := execSelect(t, db, "SELECT name FROM users u WHERE EXISTS (SELECT 1 FROM orders o WHERE o.user_id = u.id) ORDER BY u.id")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "a", res.Rows[0][0].AsText())
}

func TestDescribeColumnsWithPlaceholder(t *testing.T) {
	db := testDB(t)
	stmt, err := parseradapter.ParseOne(context.Background(), "SELECT id, dept FROM employees WHERE id = $1")
	require.NoError(t, err)
	sel := stmt.(*sqlast.SelectStatement)

	cols, err := New(db).DescribeColumns(context.Background(), sel)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "dept", cols[1].Name)
}
