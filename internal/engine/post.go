package engine

import (
	"sort"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// compareValue orders two values for ORDER BY / window ordering,
// applying the default NULLS LAST for ASC / NULLS FIRST for DESC rule
// unless the clause set NULLS FIRST/LAST explicitly.
func compareValue(a, b sqlval.Value, desc, nullsFirst bool) int {
	if a.IsNull() && b.IsNull() {
		return 0
	}
	if a.IsNull() {
		if nullsFirst {
			return -1
		}
		return 1
	}
	if b.IsNull() {
		if nullsFirst {
			return 1
		}
		return -1
	}
	c := sqlval.Compare(a, b)
	if desc {
		c = -c
	}
	return c
}

func nullsFirstFor(oi *sqlast.OrderItem) bool {
	if oi.NullsSet {
		return oi.NullsFirst
	}
	return oi.Desc
}

func compareSortTuples(a, b []sqlval.Value, items []*sqlast.OrderItem) int {
	for i := range items {
		if c := compareValue(a[i], b[i], items[i].Desc, nullsFirstFor(items[i])); c != 0 {
			return c
		}
	}
	return 0
}

func stableSortInts(order []int, cmp func(a, b int) int) {
	sort.SliceStable(order, func(i, j int) bool { return cmp(order[i], order[j]) < 0 })
}

// sortRowCtxs evaluates each ORDER BY key against its own row/env (so a
// key may reference a source column not present in the projection, an
// output alias, or an aggregate/window value already substituted into
// that ctx's env) and reorders ctxs in place, stably.
func sortRowCtxs(ctxs []*rowCtx, orderBy []*sqlast.OrderItem) error {
	if len(orderBy) == 0 {
		return nil
	}
	keys := make([][]sqlval.Value, len(ctxs))
	for i, c := range ctxs {
		key := make([]sqlval.Value, len(orderBy))
		for j, oi := range orderBy {
			v, err := expr.Eval(c.env, c.row, oi.Expr)
			if err != nil {
				return err
			}
			key[j] = v
		}
		keys[i] = key
	}
	order := make([]int, len(ctxs))
	for i := range order {
		order[i] = i
	}
	stableSortInts(order, func(a, b int) int { return compareSortTuples(keys[a], keys[b], orderBy) })
	sorted := make([]*rowCtx, len(ctxs))
	for i, idx := range order {
		sorted[i] = ctxs[idx]
	}
	copy(ctxs, sorted)
	return nil
}

// applyLimitOffset slices a final row list per LIMIT/OFFSET, evaluated
// as constant expressions against an empty row context.
func applyLimitOffset(env *expr.Env, n int, limit *sqlast.LimitClause) (start, end int, err error) {
	start, end = 0, n
	if limit == nil {
		return start, end, nil
	}
	if limit.Offset != nil {
		v, err := expr.Eval(env, nil, limit.Offset)
		if err != nil {
			return 0, 0, err
		}
		start = int(v.AsInt())
		if start < 0 {
			start = 0
		}
		if start > n {
			start = n
		}
	}
	if limit.Count != nil {
		v, err := expr.Eval(env, nil, limit.Count)
		if err != nil {
			return 0, 0, err
		}
		c := int(v.AsInt())
		if c < 0 {
			c = 0
		}
		end = start + c
		if end > n {
			end = n
		}
	}
	return start, end, nil
}

// applyOrderLimit is the generic ORDER BY/LIMIT pass used for relations
// that no longer carry per-row source context: set-operation results
// and parenthesized sub-SELECT bodies. Sort keys resolve against the
// final projected schema only (by column name or 1-based ordinal),
// matching standard SQL's restriction that a set operation's ORDER BY
// may only reference the combined output columns.
func applyOrderLimit(env *expr.Env, rel *expr.Relation, orderBy []*sqlast.OrderItem, limit *sqlast.LimitClause) (*expr.Relation, error) {
	rows := rel.Rows
	if len(orderBy) > 0 {
		names := make([]string, len(rel.Columns))
		for i, c := range rel.Columns {
			names[i] = c.Name
		}
		keys := make([][]sqlval.Value, len(rows))
		for i, r := range rows {
			key := make([]sqlval.Value, len(orderBy))
			synth := &expr.Row{Aliases: make([]string, len(names)), Names: names, Values: r}
			for j, oi := range orderBy {
				if pos, ok := ordinalOf(oi.Expr); ok && pos >= 1 && pos <= len(r) {
					key[j] = r[pos-1]
					continue
				}
				v, err := expr.Eval(env, synth, oi.Expr)
				if err != nil {
					return nil, err
				}
				key[j] = v
			}
			keys[i] = key
		}
		order := make([]int, len(rows))
		for i := range order {
			order[i] = i
		}
		stableSortInts(order, func(a, b int) int { return compareSortTuples(keys[a], keys[b], orderBy) })
		sorted := make([]catalog.Row, len(rows))
		for i, idx := range order {
			sorted[i] = rows[idx]
		}
		rows = sorted
	}
	start, end, err := applyLimitOffset(env, len(rows), limit)
	if err != nil {
		return nil, err
	}
	return &expr.Relation{Name: rel.Name, Columns: rel.Columns, Rows: rows[start:end]}, nil
}

func ordinalOf(e sqlast.Expr) (int, bool) {
	if lit, ok := e.(*sqlast.IntLiteral); ok {
		return int(lit.Value), true
	}
	return 0, false
}
