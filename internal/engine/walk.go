package engine

import "github.com/memsqld/memsqld/internal/sqlast"

// walkExpr visits e and every expression reachable from it (not
// descending into subquery bodies, which have their own independent
// evaluation scope), calling visit on each node. Used to collect
// aggregate and window FuncCall nodes out of a projection/HAVING/ORDER BY
// list before grouping, per the "precomputed aggregate/window values"
// design in expr.Env.
func walkExpr(e sqlast.Expr, visit func(sqlast.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch n := e.(type) {
	case *sqlast.UnaryExpr:
		walkExpr(n.Expr, visit)
	case *sqlast.BinaryExpr:
		walkExpr(n.Left, visit)
		walkExpr(n.Right, visit)
	case *sqlast.ParenExpr:
		walkExpr(n.Expr, visit)
	case *sqlast.BetweenExpr:
		walkExpr(n.Expr, visit)
		walkExpr(n.Low, visit)
		walkExpr(n.High, visit)
	case *sqlast.InExpr:
		walkExpr(n.Expr, visit)
		for _, le := range n.List {
			walkExpr(le, visit)
		}
	case *sqlast.IsNullExpr:
		walkExpr(n.Expr, visit)
	case *sqlast.LikeExpr:
		walkExpr(n.Expr, visit)
		walkExpr(n.Pattern, visit)
	case *sqlast.CaseExpr:
		walkExpr(n.Operand, visit)
		for _, w := range n.Whens {
			walkExpr(w.Cond, visit)
			walkExpr(w.Result, visit)
		}
		walkExpr(n.Else, visit)
	case *sqlast.FuncCall:
		for _, a := range n.Args {
			walkExpr(a, visit)
		}
	}
}

// collectFuncCalls walks every expression in exprs and returns the
// FuncCall nodes for which match reports true, in first-seen order with
// duplicates (by node identity) removed.
func collectFuncCalls(exprs []sqlast.Expr, match func(*sqlast.FuncCall) bool) []*sqlast.FuncCall {
	seen := map[*sqlast.FuncCall]bool{}
	var out []*sqlast.FuncCall
	for _, e := range exprs {
		walkExpr(e, func(n sqlast.Expr) {
			fc, ok := n.(*sqlast.FuncCall)
			if !ok || !match(fc) || seen[fc] {
				return
			}
			seen[fc] = true
			out = append(out, fc)
		})
	}
	return out
}
