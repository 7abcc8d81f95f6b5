package parseradapter

import "github.com/memsqld/memsqld/internal/sqlast"

// ParamCount reports the highest `$N` placeholder index reachable from
// stmt, the count protocol A's Describe-of-statement step needs to emit
// a ParameterDescription of the right length before any Bind has
// happened. A statement with no placeholders reports 0.
func ParamCount(stmt sqlast.Statement) int {
	max := 0
	note := func(e sqlast.Expr) {
		if p, ok := e.(*sqlast.Placeholder); ok && p.Index > max {
			max = p.Index
		}
	}
	switch s := stmt.(type) {
	case *sqlast.SelectStatement:
		walkSelectStatement(s, note)
	}
	return max
}

func walkSelectStatement(s *sqlast.SelectStatement, note func(sqlast.Expr)) {
	if s == nil {
		return
	}
	if s.With != nil {
		for _, cte := range s.With.CTEs {
			walkSelectStatement(cte.Query, note)
		}
	}
	walkSelectBody(s.Body, note)
	for _, oi := range s.OrderBy {
		walkExprTree(oi.Expr, note)
	}
	if s.Limit != nil {
		walkExprTree(s.Limit.Count, note)
		walkExprTree(s.Limit.Offset, note)
	}
}

func walkSelectBody(b sqlast.SelectBody, note func(sqlast.Expr)) {
	switch n := b.(type) {
	case *sqlast.SelectClause:
		for _, se := range n.Exprs {
			walkExprTree(se.Expr, note)
		}
		walkTableExprs(n.From, note)
		walkExprTree(n.Where, note)
		for _, ge := range n.GroupBy {
			walkExprTree(ge, note)
		}
		walkExprTree(n.Having, note)
		for _, e := range n.DistinctOn {
			walkExprTree(e, note)
		}
	case *sqlast.SetOpClause:
		walkSelectBody(n.Left, note)
		walkSelectBody(n.Right, note)
	case *sqlast.SubSelectBody:
		walkSelectStatement(n.Stmt, note)
	}
}

func walkTableExprs(list []sqlast.TableExpr, note func(sqlast.Expr)) {
	for _, te := range list {
		walkTableExpr(te, note)
	}
}

func walkTableExpr(te sqlast.TableExpr, note func(sqlast.Expr)) {
	switch n := te.(type) {
	case *sqlast.AliasedTable:
		walkTableExpr(n.Expr, note)
	case *sqlast.Subquery:
		walkSelectStatement(n.Query, note)
	case *sqlast.JoinExpr:
		walkTableExpr(n.Left, note)
		walkTableExpr(n.Right, note)
		walkExprTree(n.On, note)
	}
}

// walkExprTree visits e and everything reachable from it, including the
// bodies of IN, EXISTS and scalar subqueries, whose `$N` markers share
// the enclosing statement's numbering.
func walkExprTree(e sqlast.Expr, note func(sqlast.Expr)) {
	if e == nil {
		return
	}
	note(e)
	switch n := e.(type) {
	case *sqlast.UnaryExpr:
		walkExprTree(n.Expr, note)
	case *sqlast.BinaryExpr:
		walkExprTree(n.Left, note)
		walkExprTree(n.Right, note)
	case *sqlast.ParenExpr:
		walkExprTree(n.Expr, note)
	case *sqlast.BetweenExpr:
		walkExprTree(n.Expr, note)
		walkExprTree(n.Low, note)
		walkExprTree(n.High, note)
	case *sqlast.InExpr:
		walkExprTree(n.Expr, note)
		for _, le := range n.List {
			walkExprTree(le, note)
		}
		walkSelectStatement(n.Subquery, note)
	case *sqlast.IsNullExpr:
		walkExprTree(n.Expr, note)
	case *sqlast.LikeExpr:
		walkExprTree(n.Expr, note)
		walkExprTree(n.Pattern, note)
	case *sqlast.CaseExpr:
		walkExprTree(n.Operand, note)
		for _, w := range n.Whens {
			walkExprTree(w.Cond, note)
			walkExprTree(w.Result, note)
		}
		walkExprTree(n.Else, note)
	case *sqlast.FuncCall:
		for _, a := range n.Args {
			walkExprTree(a, note)
		}
	case *sqlast.ExistsExpr:
		walkSelectStatement(n.Query, note)
	case *sqlast.ScalarSubquery:
		walkSelectStatement(n.Query, note)
	}
}
