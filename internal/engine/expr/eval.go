package expr

import (
	"context"
	"strings"

	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/shopspring/decimal"
)

// Eval evaluates e against row under env, propagating Null through every
// operator the way SQL's three-valued logic requires.
func Eval(env *Env, row *Row, e sqlast.Expr) (sqlval.Value, error) {
	switch n := e.(type) {
	case *sqlast.NullLiteral:
		return sqlval.Null(), nil
	case *sqlast.IntLiteral:
		return sqlval.Integer(n.Value), nil
	case *sqlast.FloatLiteral:
		return sqlval.Float(n.Value), nil
	case *sqlast.DecimalLiteral:
		d, err := decimal.NewFromString(n.Text)
		if err != nil {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "invalid numeric literal %q", n.Text)
		}
		return sqlval.Decimal(d), nil
	case *sqlast.StringLiteral:
		return sqlval.Text(n.Value), nil
	case *sqlast.BoolLiteral:
		return sqlval.Boolean(n.Value), nil
	case *sqlast.DateLiteral:
		d, err := parseDate(n.Text)
		if err != nil {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "invalid date literal %q", n.Text)
		}
		return sqlval.DateVal(d), nil
	case *sqlast.TimeLiteral:
		t, err := parseTime(n.Text)
		if err != nil {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "invalid time literal %q", n.Text)
		}
		return sqlval.TimeVal(t), nil
	case *sqlast.TimestampLiteral:
		ts, err := parseTimestamp(n.Text)
		if err != nil {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "invalid timestamp literal %q", n.Text)
		}
		return sqlval.TimestampVal(ts), nil
	case *sqlast.ColumnRef:
		return evalColumnRef(env, row, n)
	case *sqlast.Placeholder:
		if n.Index < 1 || n.Index > len(env.Params) {
			return sqlval.Null(), errs.NewProtocolError(env.Ctx, "no bound value for parameter $%d", n.Index)
		}
		return env.Params[n.Index-1], nil
	case *sqlast.ParenExpr:
		return Eval(env, row, n.Expr)
	case *sqlast.UnaryExpr:
		return evalUnary(env, row, n)
	case *sqlast.BinaryExpr:
		return evalBinary(env, row, n)
	case *sqlast.BetweenExpr:
		return evalBetween(env, row, n)
	case *sqlast.InExpr:
		return evalIn(env, row, n)
	case *sqlast.IsNullExpr:
		v, err := Eval(env, row, n.Expr)
		if err != nil {
			return sqlval.Null(), err
		}
		isNull := v.IsNull()
		if n.Not {
			return sqlval.Boolean(!isNull), nil
		}
		return sqlval.Boolean(isNull), nil
	case *sqlast.LikeExpr:
		return evalLike(env, row, n)
	case *sqlast.CaseExpr:
		return evalCase(env, row, n)
	case *sqlast.FuncCall:
		return evalFuncCall(env, row, n)
	case *sqlast.ExistsExpr:
		return evalExists(env, row, n)
	case *sqlast.ScalarSubquery:
		return evalScalarSubquery(env, row, n)
	case *sqlast.Star, *sqlast.TableStar:
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "'*' is not a valid scalar expression here")
	default:
		return sqlval.Null(), errs.NewFeatureError(env.Ctx, "unsupported expression node %T", e)
	}
}

func evalColumnRef(env *Env, row *Row, n *sqlast.ColumnRef) (sqlval.Value, error) {
	if sysVal, ok := systemVariable(n.Name); ok {
		return sysVal, nil
	}
	// An unqualified name that matches a projection alias resolves there
	// first, ahead of the FROM-list row - this is what lets ORDER BY
	// reference a SELECT-list alias that shadows a source column, and what
	// lets ORDER BY name an expression that exists only in the projection
	// list. HAVING runs before the projection, so aliases are not visible
	// there.
	if env.Aliases != nil && n.Table == "" {
		if v, ok := env.Aliases[strings.ToLower(n.Name)]; ok {
			return v, nil
		}
	}
	if row != nil {
		v, ok, err := row.Lookup(n.Table, n.Name)
		if err != nil {
			return sqlval.Null(), errs.NewSchemaError(env.Ctx, "%s", err.Error())
		}
		if ok {
			return v, nil
		}
	}
	// Correlated reference: walk outward through enclosing query rows.
	for outer, outerEnv := env.Outer, env.OuterEnv; outer != nil; {
		v, ok, err := outer.Lookup(n.Table, n.Name)
		if err != nil {
			return sqlval.Null(), errs.NewSchemaError(env.Ctx, "%s", err.Error())
		}
		if ok {
			return v, nil
		}
		if outerEnv == nil {
			break
		}
		outer, outerEnv = outerEnv.Outer, outerEnv.OuterEnv
	}
	qualified := n.Name
	if n.Table != "" {
		qualified = n.Table + "." + n.Name
	}
	return sqlval.Null(), errs.NewSchemaError(env.Ctx, "unknown column %q", qualified)
}

func evalUnary(env *Env, row *Row, n *sqlast.UnaryExpr) (sqlval.Value, error) {
	v, err := Eval(env, row, n.Expr)
	if err != nil {
		return sqlval.Null(), err
	}
	switch n.Op {
	case "NOT":
		if v.IsNull() {
			return sqlval.Null(), nil
		}
		return sqlval.Boolean(!v.AsBool()), nil
	case "-":
		if v.IsNull() {
			return sqlval.Null(), nil
		}
		return negate(v)
	default:
		return sqlval.Null(), errs.NewFeatureError(env.Ctx, "unsupported unary operator %q", n.Op)
	}
}

func negate(v sqlval.Value) (sqlval.Value, error) {
	switch v.Kind {
	case sqlval.KInteger:
		return sqlval.Integer(-v.AsInt()), nil
	case sqlval.KBigInt:
		return sqlval.BigInt(-v.AsInt()), nil
	case sqlval.KFloat:
		return sqlval.Float(-v.AsFloat()), nil
	case sqlval.KDecimal:
		return sqlval.Decimal(v.AsDecimal().Neg()), nil
	default:
		return sqlval.Null(), errs.NewTypeError(context.Background(), "cannot negate a %s value", v.Type())
	}
}

func evalBinary(env *Env, row *Row, n *sqlast.BinaryExpr) (sqlval.Value, error) {
	switch n.Op {
	case "AND":
		return evalAnd(env, row, n)
	case "OR":
		return evalOr(env, row, n)
	}
	l, err := Eval(env, row, n.Left)
	if err != nil {
		return sqlval.Null(), err
	}
	r, err := Eval(env, row, n.Right)
	if err != nil {
		return sqlval.Null(), err
	}
	switch n.Op {
	case "+", "-", "*", "/", "%":
		if dv, ok := dateArith(n.Op, l, r); ok {
			return dv, nil
		}
		return arith(env, n.Op, l, r)
	case "=", "<>", "<", "<=", ">", ">=":
		return compareOp(n.Op, l, r)
	case "||":
		return concatOp(l, r), nil
	default:
		return sqlval.Null(), errs.NewFeatureError(env.Ctx, "unsupported operator %q", n.Op)
	}
}

// evalAnd/evalOr implement SQL three-valued truth tables:
// AND short-circuits to false on either operand being false regardless of
// the other's nullity; OR short-circuits to true symmetrically.
func evalAnd(env *Env, row *Row, n *sqlast.BinaryExpr) (sqlval.Value, error) {
	l, err := Eval(env, row, n.Left)
	if err != nil {
		return sqlval.Null(), err
	}
	if !l.IsNull() && !l.AsBool() {
		return sqlval.Boolean(false), nil
	}
	r, err := Eval(env, row, n.Right)
	if err != nil {
		return sqlval.Null(), err
	}
	if !r.IsNull() && !r.AsBool() {
		return sqlval.Boolean(false), nil
	}
	if l.IsNull() || r.IsNull() {
		return sqlval.Null(), nil
	}
	return sqlval.Boolean(true), nil
}

func evalOr(env *Env, row *Row, n *sqlast.BinaryExpr) (sqlval.Value, error) {
	l, err := Eval(env, row, n.Left)
	if err != nil {
		return sqlval.Null(), err
	}
	if !l.IsNull() && l.AsBool() {
		return sqlval.Boolean(true), nil
	}
	r, err := Eval(env, row, n.Right)
	if err != nil {
		return sqlval.Null(), err
	}
	if !r.IsNull() && r.AsBool() {
		return sqlval.Boolean(true), nil
	}
	if l.IsNull() || r.IsNull() {
		return sqlval.Null(), nil
	}
	return sqlval.Boolean(false), nil
}

func isNumericKind(k sqlval.Kind) bool {
	return k == sqlval.KInteger || k == sqlval.KBigInt || k == sqlval.KFloat || k == sqlval.KDecimal
}

// arith implements numeric promotion: Integer⊕Integer stays Integer
// unless it overflows to BigInt; any Float operand promotes the result
// to Float; Decimal operands keep Decimal, growing scale by operator.
func arith(env *Env, op string, l, r sqlval.Value) (sqlval.Value, error) {
	if l.IsNull() || r.IsNull() {
		return sqlval.Null(), nil
	}
	if !isNumericKind(l.Kind) || !isNumericKind(r.Kind) {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "arithmetic requires numeric operands, got %s and %s", l.Type(), r.Type())
	}
	if op == "/" && isZero(r) {
		return sqlval.Null(), nil // division by zero returns Null rather than erroring
	}
	if op == "%" && isZero(r) {
		return sqlval.Null(), nil
	}
	if l.Kind == sqlval.KFloat || r.Kind == sqlval.KFloat {
		lf, rf := l.AsFloat(), r.AsFloat()
		switch op {
		case "+":
			return sqlval.Float(lf + rf), nil
		case "-":
			return sqlval.Float(lf - rf), nil
		case "*":
			return sqlval.Float(lf * rf), nil
		case "/":
			return sqlval.Float(lf / rf), nil
		case "%":
			return sqlval.Float(float64(int64(lf) % int64(rf))), nil
		}
	}
	if l.Kind == sqlval.KDecimal || r.Kind == sqlval.KDecimal {
		ld, rd := l.AsDecimal(), r.AsDecimal()
		switch op {
		case "+":
			return sqlval.Decimal(ld.Add(rd)), nil
		case "-":
			return sqlval.Decimal(ld.Sub(rd)), nil
		case "*":
			return sqlval.Decimal(ld.Mul(rd)), nil
		case "/":
			return sqlval.Decimal(ld.DivRound(rd, int32(maxScale(l, r)+4))), nil
		case "%":
			return sqlval.Decimal(ld.Mod(rd)), nil
		}
	}
	// Integer/BigInt: truncating integer division per §9's open-question resolution.
	li, ri := l.AsInt(), r.AsInt()
	bigInput := l.Kind == sqlval.KBigInt || r.Kind == sqlval.KBigInt
	var result int64
	switch op {
	case "+":
		result = li + ri
		if overflowsAdd(li, ri, result) {
			bigInput = true
		}
	case "-":
		result = li - ri
		if overflowsSub(li, ri, result) {
			bigInput = true
		}
	case "*":
		result = li * ri
		if li != 0 && result/li != ri {
			bigInput = true
		}
	case "/":
		result = li / ri
	case "%":
		result = li % ri
	}
	if bigInput {
		return sqlval.BigInt(result), nil
	}
	return sqlval.Integer(result), nil
}

func overflowsAdd(a, b, sum int64) bool {
	return (b > 0 && sum < a) || (b < 0 && sum > a)
}
func overflowsSub(a, b, diff int64) bool {
	return (b < 0 && diff < a) || (b > 0 && diff > a)
}

func maxScale(vs ...sqlval.Value) int {
	m := 0
	for _, v := range vs {
		if v.Kind == sqlval.KDecimal {
			if s := v.Type().Scale; s > m {
				m = s
			}
		}
	}
	return m
}

func isZero(v sqlval.Value) bool {
	switch v.Kind {
	case sqlval.KInteger, sqlval.KBigInt:
		return v.AsInt() == 0
	case sqlval.KFloat:
		return v.AsFloat() == 0
	case sqlval.KDecimal:
		return v.AsDecimal().IsZero()
	default:
		return false
	}
}

// compareOp implements SQL three-valued comparison: Null propagates,
// supports date/time arithmetic's "Date - Date = integer day count" and
// "Date ± Integer = Date" special cases via the binary '+'/'-' path, kept
// here distinct since comparisons never mix kinds the way arithmetic does.
func compareOp(op string, l, r sqlval.Value) (sqlval.Value, error) {
	if l.IsNull() || r.IsNull() {
		return sqlval.Null(), nil
	}
	c := sqlval.Compare(l, r)
	var result bool
	switch op {
	case "=":
		result = c == 0
	case "<>":
		result = c != 0
	case "<":
		result = c < 0
	case "<=":
		result = c <= 0
	case ">":
		result = c > 0
	case ">=":
		result = c >= 0
	}
	return sqlval.Boolean(result), nil
}

func concatOp(l, r sqlval.Value) sqlval.Value {
	ls, rs := "", ""
	if !l.IsNull() {
		ls = l.AsText()
	}
	if !r.IsNull() {
		rs = r.AsText()
	}
	return sqlval.Text(ls + rs)
}

// evalBetween implements `expr [NOT] BETWEEN low AND high`: inclusive on
// both ends, Null if any operand is Null.
func evalBetween(env *Env, row *Row, n *sqlast.BetweenExpr) (sqlval.Value, error) {
	v, err := Eval(env, row, n.Expr)
	if err != nil {
		return sqlval.Null(), err
	}
	lo, err := Eval(env, row, n.Low)
	if err != nil {
		return sqlval.Null(), err
	}
	hi, err := Eval(env, row, n.High)
	if err != nil {
		return sqlval.Null(), err
	}
	if v.IsNull() || lo.IsNull() || hi.IsNull() {
		return sqlval.Null(), nil
	}
	in := sqlval.Compare(v, lo) >= 0 && sqlval.Compare(v, hi) <= 0
	if n.Not {
		in = !in
	}
	return sqlval.Boolean(in), nil
}

// evalIn implements `[NOT] IN (list|subquery)` with SQL Null semantics:
// a Null on the right side of NOT IN (and of IN, for a non-match) makes
// the whole result Null rather than false.
func evalIn(env *Env, row *Row, n *sqlast.InExpr) (sqlval.Value, error) {
	v, err := Eval(env, row, n.Expr)
	if err != nil {
		return sqlval.Null(), err
	}
	var candidates []sqlval.Value
	if n.Subquery != nil {
		rel, err := env.runSubquery(row, n.Subquery)
		if err != nil {
			return sqlval.Null(), err
		}
		if len(rel.Columns) != 1 {
			return sqlval.Null(), errs.NewSchemaError(env.Ctx, "IN subquery must return exactly one column")
		}
		for _, r := range rel.Rows {
			candidates = append(candidates, r[0])
		}
	} else {
		for _, ce := range n.List {
			cv, err := Eval(env, row, ce)
			if err != nil {
				return sqlval.Null(), err
			}
			candidates = append(candidates, cv)
		}
	}
	if v.IsNull() {
		return sqlval.Null(), nil
	}
	sawNull := false
	matched := false
	for _, cv := range candidates {
		if cv.IsNull() {
			sawNull = true
			continue
		}
		if sqlval.Compare(v, cv) == 0 {
			matched = true
			break
		}
	}
	var result sqlval.Value
	switch {
	case matched:
		result = sqlval.Boolean(true)
	case sawNull:
		result = sqlval.Null()
	default:
		// empty or all-non-matching list with no Null: IN is false, NOT IN
		// is true, including the empty-list case.
		result = sqlval.Boolean(false)
	}
	if n.Not && !result.IsNull() {
		return sqlval.Boolean(!result.AsBool()), nil
	}
	return result, nil
}

// evalLike implements SQL LIKE with '%' (zero-or-more) and '_' (exactly one).
func evalLike(env *Env, row *Row, n *sqlast.LikeExpr) (sqlval.Value, error) {
	v, err := Eval(env, row, n.Expr)
	if err != nil {
		return sqlval.Null(), err
	}
	p, err := Eval(env, row, n.Pattern)
	if err != nil {
		return sqlval.Null(), err
	}
	if v.IsNull() || p.IsNull() {
		return sqlval.Null(), nil
	}
	matched := likeMatch(v.AsText(), p.AsText())
	if n.Not {
		matched = !matched
	}
	return sqlval.Boolean(matched), nil
}

func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		for i := 0; i <= len(s); i++ {
			if likeMatchRunes(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}

func evalCase(env *Env, row *Row, n *sqlast.CaseExpr) (sqlval.Value, error) {
	var operand sqlval.Value
	hasOperand := n.Operand != nil
	if hasOperand {
		v, err := Eval(env, row, n.Operand)
		if err != nil {
			return sqlval.Null(), err
		}
		operand = v
	}
	for _, w := range n.Whens {
		if hasOperand {
			cv, err := Eval(env, row, w.Cond)
			if err != nil {
				return sqlval.Null(), err
			}
			if !cv.IsNull() && !operand.IsNull() && sqlval.Compare(operand, cv) == 0 {
				return Eval(env, row, w.Result)
			}
			continue
		}
		cond, err := Eval(env, row, w.Cond)
		if err != nil {
			return sqlval.Null(), err
		}
		if !cond.IsNull() && cond.AsBool() {
			return Eval(env, row, w.Result)
		}
	}
	if n.Else != nil {
		return Eval(env, row, n.Else)
	}
	return sqlval.Null(), nil
}

func evalExists(env *Env, row *Row, n *sqlast.ExistsExpr) (sqlval.Value, error) {
	rel, err := env.runSubquery(row, n.Query)
	if err != nil {
		return sqlval.Null(), err
	}
	exists := len(rel.Rows) > 0
	if n.Not {
		exists = !exists
	}
	return sqlval.Boolean(exists), nil
}

// evalScalarSubquery implements the scalar subquery shape: exactly one
// row, one column, else an error; zero rows yields Null.
func evalScalarSubquery(env *Env, row *Row, n *sqlast.ScalarSubquery) (sqlval.Value, error) {
	rel, err := env.runSubquery(row, n.Query)
	if err != nil {
		return sqlval.Null(), err
	}
	if len(rel.Columns) != 1 {
		return sqlval.Null(), errs.NewSchemaError(env.Ctx, "scalar subquery must return exactly one column")
	}
	if len(rel.Rows) == 0 {
		return sqlval.Null(), nil
	}
	if len(rel.Rows) > 1 {
		return sqlval.Null(), errs.NewSchemaError(env.Ctx, "scalar subquery returned more than one row")
	}
	return rel.Rows[0][0], nil
}

// runSubquery dispatches to the Runner, memoizing each result under the
// (statement, calling row) pair; correlated or not, a subquery evaluated
// against a different row is run again.
func (env *Env) runSubquery(row *Row, q *sqlast.SelectStatement) (*Relation, error) {
	if rel, ok := env.memoGet(q, row); ok {
		return rel, nil
	}
	child := env.Child(row)
	rel, err := env.Runner.RunQuery(env.Ctx, q, child)
	if err != nil {
		return nil, err
	}
	env.memoPut(q, row, rel)
	return rel, nil
}
