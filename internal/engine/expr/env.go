// Package expr evaluates scalar SQL expressions against a row context
// spanning possibly many joined aliases, an ambient database snapshot
// (for correlated subqueries), and any outer CTE map.
package expr

import (
	"context"
	"strings"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// Row is a flat row plus an alias index: the natural representation for
// a row that may span multiple joined tables.
type Row struct {
	Aliases []string
	Names   []string
	Values  []sqlval.Value
}

// NewRow builds a Row from one table's columns under a given alias.
func NewRow(alias string, cols []catalog.Column, vals []sqlval.Value) *Row {
	r := &Row{Aliases: make([]string, len(cols)), Names: make([]string, len(cols)), Values: vals}
	for i, c := range cols {
		r.Aliases[i] = alias
		r.Names[i] = c.Name
	}
	return r
}

// Concat joins two rows end-to-end, used by the join engine to build the
// candidate row before a join predicate is evaluated.
func Concat(a, b *Row) *Row {
	out := &Row{
		Aliases: append(append([]string{}, a.Aliases...), b.Aliases...),
		Names:   append(append([]string{}, a.Names...), b.Names...),
		Values:  append(append([]sqlval.Value{}, a.Values...), b.Values...),
	}
	return out
}

// Lookup resolves a (possibly qualified) column reference. An unqualified
// reference that matches more than one alias is ambiguous.
func (r *Row) Lookup(table, name string) (sqlval.Value, bool, error) {
	found := -1
	for i := range r.Values {
		if !strings.EqualFold(r.Names[i], name) {
			continue
		}
		if table != "" && !strings.EqualFold(r.Aliases[i], table) {
			continue
		}
		if table == "" && found >= 0 {
			return sqlval.Null(), false, ambiguousErr(name)
		}
		found = i
		if table != "" {
			break
		}
	}
	if found < 0 {
		return sqlval.Null(), false, nil
	}
	return r.Values[found], true, nil
}

// Star expands every column of every aliased relation in the row, in order.
func (r *Row) Star() []sqlval.Value {
	return append([]sqlval.Value{}, r.Values...)
}

// TableStar expands every column belonging to one alias.
func (r *Row) TableStar(table string) []sqlval.Value {
	var out []sqlval.Value
	for i := range r.Values {
		if strings.EqualFold(r.Aliases[i], table) {
			out = append(out, r.Values[i])
		}
	}
	return out
}

type ambiguityError struct{ name string }

func ambiguousErr(name string) error { return &ambiguityError{name: name} }
func (e *ambiguityError) Error() string {
	return "ambiguous column reference: " + e.name
}

// Relation is a named tabular source with a schema and materialized
// rows: the uniform shape shared by CTE results, derived tables, and
// physical tables alike.
type Relation struct {
	Name    string
	Columns []catalog.Column
	Rows    []catalog.Row
}

// SubqueryRunner lets the expression evaluator execute a correlated or
// uncorrelated subquery without importing the executor package, which
// would create an import cycle (engine imports expr to evaluate scalar
// expressions; expr needs to invoke engine to run subqueries).
type SubqueryRunner interface {
	RunQuery(ctx context.Context, query *sqlast.SelectStatement, env *Env) (*Relation, error)
}

// Env is the evaluation context: the ambient database snapshot, any
// visible CTE results, and a chain of outer rows for correlated
// subqueries, plus the precomputed aggregate/window values the executor
// substitutes in before projecting a grouped or windowed row.
type Env struct {
	Ctx  context.Context
	DB   *catalog.Database
	CTEs map[string]*Relation
	Runner SubqueryRunner

	// Outer chains to the enclosing query's row+env for correlated
	// subquery column resolution.
	Outer    *Row
	OuterEnv *Env

	// Params holds the extended-query-protocol bound parameter values, in
	// 1-based positional order; Placeholder.Index indexes into it.
	Params []sqlval.Value

	// Aliases, when projecting, makes output-column aliases visible to
	// ORDER BY sort keys per the supplemented "sort by output alias" feature.
	Aliases map[string]sqlval.Value

	// Aggregates and Windows hold precomputed per-row values keyed by the
	// AST node's identity, substituted in by the executor's GROUP BY and
	// window phases before projection re-evaluates the expression tree.
	Aggregates map[sqlast.Expr]sqlval.Value
	Windows    map[sqlast.Expr]sqlval.Value

	// memo caches subquery results for the lifetime of the enclosing
	// query. The cache key includes the calling row's identity so a
	// correlated subquery (whose result legitimately varies per outer
	// row) is never served a stale answer: a fresh *Row per outer-row
	// iteration defeats the cache for correlated cases. An uncorrelated
	// subquery is keyed the same way, so it is run again for each distinct
	// *Row and reuses a result only when evaluated again against the same
	// *Row.
	memo map[memoKey]*Relation
}

type memoKey struct {
	q   *sqlast.SelectStatement
	row *Row
}

func (e *Env) memoGet(q *sqlast.SelectStatement, row *Row) (*Relation, bool) {
	if e.memo == nil {
		return nil, false
	}
	r, ok := e.memo[memoKey{q, row}]
	return r, ok
}

func (e *Env) memoPut(q *sqlast.SelectStatement, row *Row, r *Relation) {
	if e.memo == nil {
		e.memo = make(map[memoKey]*Relation)
	}
	e.memo[memoKey{q, row}] = r
}

// Child derives a per-row evaluation env for a subquery, with outerRow as
// the row correlated references resolve against. It carries over the
// parent's memo map as it stands; results are cached per (statement,
// row) pair, so a different outer row always re-runs the subquery.
func (e *Env) Child(outerRow *Row) *Env {
	return &Env{
		Ctx: e.Ctx, DB: e.DB, CTEs: e.CTEs, Runner: e.Runner, Params: e.Params,
		Outer: outerRow, OuterEnv: e, memo: e.memo,
	}
}
