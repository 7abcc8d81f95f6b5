package engine

import (
	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// source is the executor's working shape for a FROM-list relation: a
// flat column list plus the per-column owning alias, and the
// already-materialized rows as *expr.Row so join predicates and the
// projection phase can resolve qualified references uniformly, per the
// "row context spanning multiple aliases" design note.
type source struct {
	columns []catalog.Column
	aliases []string
	rows    []*expr.Row
}

func sourceFromRelation(alias string, rel *expr.Relation) *source {
	rows := make([]*expr.Row, len(rel.Rows))
	for i, r := range rel.Rows {
		rows[i] = expr.NewRow(alias, rel.Columns, append([]sqlval.Value{}, r...))
	}
	aliases := make([]string, len(rel.Columns))
	for i := range aliases {
		aliases[i] = alias
	}
	return &source{columns: rel.Columns, aliases: aliases, rows: rows}
}

func sourceFromTable(alias string, t *catalog.Table) *source {
	rows := make([]*expr.Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = expr.NewRow(alias, t.Columns, append([]sqlval.Value{}, r...))
	}
	aliases := make([]string, len(t.Columns))
	for i := range aliases {
		aliases[i] = alias
	}
	return &source{columns: t.Columns, aliases: aliases, rows: rows}
}

// resolveFrom folds a comma-separated FROM list into an implicit CROSS
// chain, per the legacy comma-form handling named in the join design.
func (ex *Executor) resolveFrom(env *expr.Env, list []sqlast.TableExpr) (*source, error) {
	if len(list) == 0 {
		return &source{rows: []*expr.Row{expr.NewRow("", nil, nil)}}, nil
	}
	cur, err := ex.resolveTableExpr(env, list[0])
	if err != nil {
		return nil, err
	}
	for _, te := range list[1:] {
		next, err := ex.resolveTableExpr(env, te)
		if err != nil {
			return nil, err
		}
		cur, err = joinSources(env, "CROSS", cur, next, nil)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// resolveTableExpr implements the single resolution chain named in the
// design note: CTE map -> derived-table alias -> physical table, first
// hit wins; a JoinExpr recurses into both sides first.
func (ex *Executor) resolveTableExpr(env *expr.Env, te sqlast.TableExpr) (*source, error) {
	switch n := te.(type) {
	case *sqlast.TableName:
		if rel, ok := env.CTEs[lower(n.Name)]; ok {
			return sourceFromRelation(n.Name, rel), nil
		}
		tbl, ok := env.DB.Table(n.Name)
		if !ok {
			return nil, errs.NewSchemaError(env.Ctx, "table not found: %s", n.Name)
		}
		return sourceFromTable(n.Name, tbl), nil
	case *sqlast.AliasedTable:
		src, err := ex.resolveTableExpr(env, n.Expr)
		if err != nil {
			return nil, err
		}
		return renameSource(src, n.Alias), nil
	case *sqlast.Subquery:
		rel, err := ex.runSelectStatement(env, n.Query)
		if err != nil {
			return nil, err
		}
		return sourceFromRelation("", rel), nil
	case *sqlast.JoinExpr:
		left, err := ex.resolveTableExpr(env, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := ex.resolveTableExpr(env, n.Right)
		if err != nil {
			return nil, err
		}
		return joinSources(env, n.Kind, left, right, n.On)
	default:
		return nil, errs.NewFeatureError(env.Ctx, "unsupported FROM entry %T", te)
	}
}

// renameSource overrides every column's owning alias, the effect of an
// explicit table alias: once aliased, only the new name qualifies the
// columns, whether the underlying source was a bare table, a derived
// table, or an entire parenthesized join.
func renameSource(src *source, alias string) *source {
	aliases := make([]string, len(src.aliases))
	for i := range aliases {
		aliases[i] = alias
	}
	rows := make([]*expr.Row, len(src.rows))
	for i, r := range src.rows {
		rows[i] = &expr.Row{Aliases: aliases, Names: r.Names, Values: r.Values}
	}
	return &source{columns: src.columns, aliases: aliases, rows: rows}
}

// joinSources evaluates one JOIN step. Candidate rows are built by
// concatenating a left row with a right row and evaluating the
// predicate against that combined row; LEFT/RIGHT/FULL emit a
// Null-padded row on the optional side when no match is found, per the
// join-assembly design.
func joinSources(env *expr.Env, kind string, left, right *source, on sqlast.Expr) (*source, error) {
	columns := append(append([]catalog.Column{}, left.columns...), right.columns...)
	aliases := append(append([]string{}, left.aliases...), right.aliases...)
	nullRight := nullRow(right)
	nullLeft := nullRow(left)

	test := func(l, r *expr.Row) (bool, error) {
		if on == nil {
			return true, nil
		}
		combined := expr.Concat(l, r)
		v, err := evalPredicate(env, combined, on)
		if err != nil {
			return false, err
		}
		return v, nil
	}

	var out []*expr.Row
	switch kind {
	case "", "INNER", "CROSS":
		for _, l := range left.rows {
			for _, r := range right.rows {
				ok, err := test(l, r)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, expr.Concat(l, r))
				}
			}
		}
	case "LEFT":
		for _, l := range left.rows {
			matched := false
			for _, r := range right.rows {
				ok, err := test(l, r)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, expr.Concat(l, r))
					matched = true
				}
			}
			if !matched {
				out = append(out, expr.Concat(l, nullRight))
			}
		}
	case "RIGHT":
		for _, r := range right.rows {
			matched := false
			for _, l := range left.rows {
				ok, err := test(l, r)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, expr.Concat(l, r))
					matched = true
				}
			}
			if !matched {
				out = append(out, expr.Concat(nullLeft, r))
			}
		}
	case "FULL":
		rightMatched := make([]bool, len(right.rows))
		for _, l := range left.rows {
			matched := false
			for ri, r := range right.rows {
				ok, err := test(l, r)
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, expr.Concat(l, r))
					matched = true
					rightMatched[ri] = true
				}
			}
			if !matched {
				out = append(out, expr.Concat(l, nullRight))
			}
		}
		for ri, r := range right.rows {
			if !rightMatched[ri] {
				out = append(out, expr.Concat(nullLeft, r))
			}
		}
	default:
		return nil, errs.NewFeatureError(env.Ctx, "unsupported join kind %q", kind)
	}
	return &source{columns: columns, aliases: aliases, rows: out}, nil
}

func nullRow(s *source) *expr.Row {
	vals := make([]sqlval.Value, len(s.columns))
	for i := range vals {
		vals[i] = sqlval.Null()
	}
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return &expr.Row{Aliases: s.aliases, Names: names, Values: vals}
}

// evalPredicate evaluates a join/where predicate to a plain bool,
// treating Null (and any non-Boolean-true result) as not-passing per
// the three-valued filter rule.
func evalPredicate(env *expr.Env, row *expr.Row, e sqlast.Expr) (bool, error) {
	v, err := expr.Eval(env, row, e)
	if err != nil {
		return false, err
	}
	return !v.IsNull() && v.AsBool(), nil
}
