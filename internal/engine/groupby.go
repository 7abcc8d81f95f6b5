package engine

import (
	"github.com/memsqld/memsqld/internal/engine/expr"
	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/shopspring/decimal"
)

// group is one GROUP BY partition: its key tuple plus its rows; rows whose
// key tuples are Equivalent (Null = Null, per the grouping design note)
// join the same partition.
type group struct {
	key  []sqlval.Value
	rows []*expr.Row
}

// partitionRows buckets rows by their GROUP BY expression tuple, in
// first-seen group order, so output without an ORDER BY is at least
// deterministic run-to-run for a fixed input order.
func partitionRows(env *expr.Env, rows []*expr.Row, groupBy []sqlast.Expr) ([]*group, error) {
	if len(groupBy) == 0 {
		// No GROUP BY but an aggregate is present: the whole filtered row
		// set is a single implicit group, present even when rows is empty.
		return []*group{{rows: rows}}, nil
	}
	var groups []*group
	for _, r := range rows {
		key := make([]sqlval.Value, len(groupBy))
		for i, ge := range groupBy {
			v, err := expr.Eval(env, r, ge)
			if err != nil {
				return nil, err
			}
			key[i] = v
		}
		found := false
		for _, g := range groups {
			if sqlval.EquivalentRow(g.key, key) {
				g.rows = append(g.rows, r)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, &group{key: key, rows: []*expr.Row{r}})
		}
	}
	return groups, nil
}

// computeAggregates evaluates every collected aggregate FuncCall node
// over one group's rows, keyed by AST node identity so evalFuncCall can
// substitute the precomputed value back in during projection.
func computeAggregates(env *expr.Env, g *group, aggFuncs []*sqlast.FuncCall) (map[sqlast.Expr]sqlval.Value, error) {
	out := make(map[sqlast.Expr]sqlval.Value, len(aggFuncs))
	for _, fc := range aggFuncs {
		v, err := computeOneAggregate(env, g.rows, fc)
		if err != nil {
			return nil, err
		}
		out[fc] = v
	}
	return out, nil
}

func computeOneAggregate(env *expr.Env, rows []*expr.Row, fc *sqlast.FuncCall) (sqlval.Value, error) {
	switch upper(fc.Name) {
	case "COUNT":
		if fc.Star {
			return sqlval.BigInt(int64(len(rows))), nil
		}
		if len(fc.Args) != 1 {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "COUNT requires exactly one argument")
		}
		if fc.Distinct {
			seen := map[string]bool{}
			for _, r := range rows {
				v, err := expr.Eval(env, r, fc.Args[0])
				if err != nil {
					return sqlval.Null(), err
				}
				if v.IsNull() {
					continue
				}
				seen[v.String()] = true
			}
			return sqlval.BigInt(int64(len(seen))), nil
		}
		n := int64(0)
		for _, r := range rows {
			v, err := expr.Eval(env, r, fc.Args[0])
			if err != nil {
				return sqlval.Null(), err
			}
			if !v.IsNull() {
				n++
			}
		}
		return sqlval.BigInt(n), nil
	case "SUM":
		return aggSum(env, rows, fc)
	case "AVG":
		return aggAvg(env, rows, fc)
	case "MIN":
		return aggMinMax(env, rows, fc, true)
	case "MAX":
		return aggMinMax(env, rows, fc, false)
	default:
		return sqlval.Null(), errs.NewFeatureError(env.Ctx, "unsupported aggregate function %s", fc.Name)
	}
}

func aggValues(env *expr.Env, rows []*expr.Row, fc *sqlast.FuncCall) ([]sqlval.Value, error) {
	if len(fc.Args) != 1 {
		return nil, errs.NewTypeError(env.Ctx, "%s requires exactly one argument", fc.Name)
	}
	var out []sqlval.Value
	for _, r := range rows {
		v, err := expr.Eval(env, r, fc.Args[0])
		if err != nil {
			return nil, err
		}
		if v.IsNull() {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// aggSum promotes Integer inputs to BigInt per the type-preservation
// property, keeps Decimal exact, and keeps Float binary.
func aggSum(env *expr.Env, rows []*expr.Row, fc *sqlast.FuncCall) (sqlval.Value, error) {
	vals, err := aggValues(env, rows, fc)
	if err != nil {
		return sqlval.Null(), err
	}
	if len(vals) == 0 {
		return sqlval.Null(), nil
	}
	if hasKind(vals, sqlval.KFloat) {
		var s float64
		for _, v := range vals {
			s += v.AsFloat()
		}
		return sqlval.Float(s), nil
	}
	if hasKind(vals, sqlval.KDecimal) {
		s := decimal.Zero
		for _, v := range vals {
			s = s.Add(v.AsDecimal())
		}
		return sqlval.Decimal(s), nil
	}
	var s int64
	for _, v := range vals {
		s += v.AsInt()
	}
	return sqlval.BigInt(s), nil
}

func aggAvg(env *expr.Env, rows []*expr.Row, fc *sqlast.FuncCall) (sqlval.Value, error) {
	vals, err := aggValues(env, rows, fc)
	if err != nil {
		return sqlval.Null(), err
	}
	if len(vals) == 0 {
		return sqlval.Null(), nil
	}
	if hasKind(vals, sqlval.KFloat) {
		var s float64
		for _, v := range vals {
			s += v.AsFloat()
		}
		return sqlval.Float(s / float64(len(vals))), nil
	}
	s := decimal.Zero
	for _, v := range vals {
		s = s.Add(v.AsDecimal())
	}
	return sqlval.Decimal(s.DivRound(decimal.NewFromInt(int64(len(vals))), 6)), nil
}

func aggMinMax(env *expr.Env, rows []*expr.Row, fc *sqlast.FuncCall, min bool) (sqlval.Value, error) {
	vals, err := aggValues(env, rows, fc)
	if err != nil {
		return sqlval.Null(), err
	}
	if len(vals) == 0 {
		return sqlval.Null(), nil
	}
	best := vals[0]
	for _, v := range vals[1:] {
		c := sqlval.Compare(v, best)
		if (min && c < 0) || (!min && c > 0) {
			best = v
		}
	}
	return best, nil
}

func hasKind(vals []sqlval.Value, k sqlval.Kind) bool {
	for _, v := range vals {
		if v.Kind == k {
			return true
		}
	}
	return false
}
