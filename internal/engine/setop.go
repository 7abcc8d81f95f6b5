package engine

import (
	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// runSetOp evaluates both sides, checks arity, unifies column types
// (text widens when the sides disagree; otherwise the left side's types
// win), and combines per the UNION/INTERSECT/EXCEPT [ALL] rules.
func (ex *Executor) runSetOp(env *expr.Env, n *sqlast.SetOpClause) (*expr.Relation, error) {
	left, err := ex.runSelectBody(env, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ex.runSelectBody(env, n.Right)
	if err != nil {
		return nil, err
	}
	if len(left.Columns) != len(right.Columns) {
		return nil, errs.NewSchemaError(env.Ctx, "each %s query must have the same number of columns", n.Op)
	}
	columns := unifyColumns(left.Columns, right.Columns)

	var rows []catalog.Row
	switch n.Op {
	case "UNION":
		rows = append(append([]catalog.Row{}, left.Rows...), right.Rows...)
		if !n.All {
			rows = dedupeRows(rows)
		}
	case "INTERSECT":
		rows = intersectRows(left.Rows, right.Rows, n.All)
	case "EXCEPT":
		rows = exceptRows(left.Rows, right.Rows, n.All)
	default:
		return nil, errs.NewFeatureError(env.Ctx, "unsupported set operator %q", n.Op)
	}
	return &expr.Relation{Columns: columns, Rows: rows}, nil
}

// unifyColumns keeps the left side's column names/types unless the two
// sides disagree on a numeric-vs-text shape, in which case the wider
// text type wins, per the set-operation-handling design.
func unifyColumns(left, right []catalog.Column) []catalog.Column {
	out := make([]catalog.Column, len(left))
	for i, l := range left {
		r := right[i]
		c := l
		if l.Type.Kind != r.Type.Kind {
			if l.Type.Kind == sqlval.KText || r.Type.Kind == sqlval.KText {
				c.Type = sqlval.TypeText
			}
		}
		out[i] = c
	}
	return out
}

func dedupeRows(rows []catalog.Row) []catalog.Row {
	var out []catalog.Row
	for _, r := range rows {
		dup := false
		for _, o := range out {
			if sqlval.EquivalentRow(r, o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

func intersectRows(left, right []catalog.Row, all bool) []catalog.Row {
	var out []catalog.Row
	used := make([]bool, len(right))
	for _, l := range left {
		for ri, r := range right {
			if used[ri] && all {
				continue
			}
			if sqlval.EquivalentRow(l, r) {
				out = append(out, l)
				used[ri] = true
				break
			}
		}
	}
	if !all {
		out = dedupeRows(out)
	}
	return out
}

func exceptRows(left, right []catalog.Row, all bool) []catalog.Row {
	var out []catalog.Row
	used := make([]bool, len(right))
	for _, l := range left {
		matched := false
		for ri, r := range right {
			if used[ri] && all {
				continue
			}
			if sqlval.EquivalentRow(l, r) {
				matched = true
				used[ri] = true
				break
			}
		}
		if !matched {
			out = append(out, l)
		}
	}
	if !all {
		out = dedupeRows(out)
	}
	return out
}
