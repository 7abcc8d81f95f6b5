package engine

import (
	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// rowCtx pairs one output row with the row/env context that produced it,
// so later phases (windows, ORDER BY, DISTINCT ON) can re-evaluate
// arbitrary expressions - including ones referencing source columns that
// never made it into the projection - against exactly the context that
// row came from.
type rowCtx struct {
	row *expr.Row
	env *expr.Env
	out []sqlval.Value
}

func childRowEnv(env *expr.Env) *expr.Env {
	return &expr.Env{Ctx: env.Ctx, DB: env.DB, CTEs: env.CTEs, Runner: env.Runner, Params: env.Params, Outer: env.Outer, OuterEnv: env.OuterEnv}
}

// runSelectClause runs a SelectClause with no statement-level ORDER
// BY/LIMIT visible to it, the shape used when a SelectClause is one side
// of a set operation or a CTE/derived-table body; those bind their own
// ORDER BY/LIMIT (if any) at the enclosing SelectStatement level instead.
func (ex *Executor) runSelectClause(env *expr.Env, sc *sqlast.SelectClause) (*expr.Relation, error) {
	return ex.runSelectClauseImpl(env, sc, nil, nil)
}

// runSelectClauseFull is the entry point used when this SelectClause is
// the whole body of its enclosing SelectStatement, so that statement's
// ORDER BY/LIMIT (and any aggregate/window expressions appearing only in
// ORDER BY) participate in the same pipeline pass.
func (ex *Executor) runSelectClauseFull(env *expr.Env, sc *sqlast.SelectClause, orderBy []*sqlast.OrderItem, limit *sqlast.LimitClause) (*expr.Relation, error) {
	return ex.runSelectClauseImpl(env, sc, orderBy, limit)
}

func (ex *Executor) runSelectClauseImpl(env *expr.Env, sc *sqlast.SelectClause, orderBy []*sqlast.OrderItem, limit *sqlast.LimitClause) (*expr.Relation, error) {
	src, err := ex.resolveFrom(env, sc.From)
	if err != nil {
		return nil, err
	}

	var filtered []*expr.Row
	for _, r := range src.rows {
		if sc.Where == nil {
			filtered = append(filtered, r)
			continue
		}
		ok, err := evalPredicate(env, r, sc.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, r)
		}
	}

	scanExprs := make([]sqlast.Expr, 0, len(sc.Exprs)+len(orderBy)+1)
	for _, se := range sc.Exprs {
		scanExprs = append(scanExprs, se.Expr)
	}
	if sc.Having != nil {
		scanExprs = append(scanExprs, sc.Having)
	}
	for _, oi := range orderBy {
		scanExprs = append(scanExprs, oi.Expr)
	}
	aggFuncs := collectFuncCalls(scanExprs, func(fc *sqlast.FuncCall) bool { return expr.IsAggregateName(fc.Name) })
	windowFuncs := collectFuncCalls(scanExprs, func(fc *sqlast.FuncCall) bool {
		return fc.Over != nil || expr.IsWindowName(fc.Name)
	})

	var ctxs []*rowCtx
	if len(sc.GroupBy) > 0 || len(aggFuncs) > 0 {
		groups, err := partitionRows(env, filtered, sc.GroupBy)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			aggVals, err := computeAggregates(env, g, aggFuncs)
			if err != nil {
				return nil, err
			}
			cenv := childRowEnv(env)
			cenv.Aggregates = aggVals
			var rep *expr.Row
			if len(g.rows) > 0 {
				rep = g.rows[0]
			}
			ctxs = append(ctxs, &rowCtx{row: rep, env: cenv})
		}
		if sc.Having != nil {
			var kept []*rowCtx
			for _, c := range ctxs {
				v, err := expr.Eval(c.env, c.row, sc.Having)
				if err != nil {
					return nil, err
				}
				if !v.IsNull() && v.AsBool() {
					kept = append(kept, c)
				}
			}
			ctxs = kept
		}
	} else {
		for _, r := range filtered {
			ctxs = append(ctxs, &rowCtx{row: r, env: childRowEnv(env)})
		}
	}

	if len(windowFuncs) > 0 {
		if err := computeWindows(env, ctxs, windowFuncs); err != nil {
			return nil, err
		}
	}

	items := expandSelectExprs(src, sc.Exprs)
	columns := make([]catalog.Column, len(items))
	haveColumns := false
	for _, c := range ctxs {
		out := make([]sqlval.Value, len(items))
		for j, it := range items {
			v, err := expr.Eval(c.env, c.row, it.Expr)
			if err != nil {
				return nil, err
			}
			out[j] = v
			if !haveColumns {
				name := it.Alias
				if name == "" {
					name = defaultColumnName(it.Expr)
				}
				columns[j] = columnFor(name, v)
			}
		}
		haveColumns = true
		c.out = out
		c.env.Aliases = map[string]sqlval.Value{}
		for j, it := range items {
			name := it.Alias
			if name == "" {
				name = defaultColumnName(it.Expr)
			}
			c.env.Aliases[lower(name)] = out[j]
		}
	}
	if !haveColumns {
		for j, it := range items {
			name := it.Alias
			if name == "" {
				name = defaultColumnName(it.Expr)
			}
			columns[j] = catalog.Column{Name: name, Type: sqlval.TypeNull, Nullable: true}
		}
	}

	if sc.Distinct && len(sc.DistinctOn) == 0 {
		ctxs = dedupeCtxs(ctxs)
	}

	if err := sortRowCtxs(ctxs, orderBy); err != nil {
		return nil, err
	}

	if len(sc.DistinctOn) > 0 {
		var err error
		ctxs, err = distinctOn(ctxs, sc.DistinctOn)
		if err != nil {
			return nil, err
		}
	}

	start, end, err := applyLimitOffset(env, len(ctxs), limit)
	if err != nil {
		return nil, err
	}
	ctxs = ctxs[start:end]

	rows := make([]catalog.Row, len(ctxs))
	for i, c := range ctxs {
		rows[i] = c.out
	}
	return &expr.Relation{Columns: columns, Rows: rows}, nil
}

func dedupeCtxs(ctxs []*rowCtx) []*rowCtx {
	var out []*rowCtx
	for _, c := range ctxs {
		dup := false
		for _, o := range out {
			if sqlval.EquivalentRow(c.out, o.out) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// distinctOn keeps the first row per DISTINCT ON key, in the order ctxs
// is already in (which must be the post-ORDER-BY order, per the
// DISTINCT ON design note that it keeps "the first row per group under
// the current ORDER BY").
func distinctOn(ctxs []*rowCtx, on []sqlast.Expr) ([]*rowCtx, error) {
	var out []*rowCtx
	var keys [][]sqlval.Value
	for _, c := range ctxs {
		key := make([]sqlval.Value, len(on))
		for i, e := range on {
			v, err := expr.Eval(c.env, c.row, e)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
		seen := false
		for _, k := range keys {
			if sqlval.EquivalentRow(k, key) {
				seen = true
				break
			}
		}
		if !seen {
			keys = append(keys, key)
			out = append(out, c)
		}
	}
	return out, nil
}
