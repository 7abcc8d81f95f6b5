package expr

import (
	"strings"
	gotime "time"

	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

func parseDate(s string) (sqlval.Date, error) {
	t, err := gotime.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return sqlval.Date{}, err
	}
	return sqlval.DateFromTime(t), nil
}

func parseTime(s string) (sqlval.Time, error) {
	s = strings.TrimSpace(s)
	layout := "15:04:05"
	if strings.Contains(s, ".") {
		layout = "15:04:05.999999"
	}
	t, err := gotime.Parse(layout, s)
	if err != nil {
		return sqlval.Time{}, err
	}
	return sqlval.Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Micros: t.Nanosecond() / 1000}, nil
}

func parseTimestamp(s string) (sqlval.Timestamp, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}
	var lastErr error
	for _, l := range layouts {
		t, err := gotime.Parse(l, s)
		if err == nil {
			return sqlval.TimestampFromTime(t), nil
		}
		lastErr = err
	}
	return sqlval.Timestamp{}, lastErr
}

// systemVariable answers the server-variable probes mainstream drivers
// issue right after authentication.
func systemVariable(name string) (sqlval.Value, bool) {
	key := strings.ToLower(strings.TrimLeft(name, "@"))
	switch key {
	case "version":
		return sqlval.Text(ServerVersion), true
	case "version_comment":
		return sqlval.Text("memsqld"), true
	case "max_allowed_packet":
		return sqlval.Integer(67108864), true
	case "system_time_zone", "time_zone":
		return sqlval.Text("UTC"), true
	case "auto_increment_increment":
		return sqlval.Integer(1), true
	}
	return sqlval.Value{}, false
}

// ServerVersion is the version string both wire protocols' handshake
// packets advertise and SELECT @@version reports, kept as one constant
// so a client sees the same answer from either question.
const ServerVersion = "8.0.34-memsqld"

// SystemVariable exposes systemVariable to the wire-protocol packages so
// a bare `SELECT @@variable` probe can be answered without a full parse.
func SystemVariable(name string) (sqlval.Value, bool) { return systemVariable(name) }

// aggregateNames is consulted by the executor to decide whether a
// FuncCall belongs to the GROUP BY pre-pass rather than the scalar
// function library.
var aggregateNames = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

func IsAggregateName(name string) bool { return aggregateNames[strings.ToUpper(name)] }

var windowNames = map[string]bool{
	"ROW_NUMBER": true, "RANK": true, "DENSE_RANK": true,
}

func IsWindowName(name string) bool { return windowNames[strings.ToUpper(name)] }

func evalFuncCall(env *Env, row *Row, n *sqlast.FuncCall) (sqlval.Value, error) {
	if n.Over != nil || IsWindowName(n.Name) {
		if v, ok := env.Windows[n]; ok {
			return v, nil
		}
		return sqlval.Null(), errs.NewFeatureError(env.Ctx, "window function %s used outside a valid window context", n.Name)
	}
	if IsAggregateName(n.Name) {
		if v, ok := env.Aggregates[n]; ok {
			return v, nil
		}
		return sqlval.Null(), errs.NewSchemaError(env.Ctx, "aggregate function %s used outside GROUP BY context", n.Name)
	}

	args := make([]sqlval.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(env, row, a)
		if err != nil {
			return sqlval.Null(), err
		}
		args[i] = v
	}
	return callScalar(env, n.Name, args)
}

func callScalar(env *Env, name string, args []sqlval.Value) (sqlval.Value, error) {
	switch strings.ToUpper(name) {
	// --- string family ---
	case "UPPER":
		return nullMap1(env, args, func(v sqlval.Value) sqlval.Value { return sqlval.Text(strings.ToUpper(v.AsText())) })
	case "LOWER":
		return nullMap1(env, args, func(v sqlval.Value) sqlval.Value { return sqlval.Text(strings.ToLower(v.AsText())) })
	case "TRIM":
		return nullMap1(env, args, func(v sqlval.Value) sqlval.Value { return sqlval.Text(strings.TrimSpace(v.AsText())) })
	case "LENGTH", "CHAR_LENGTH":
		return nullMap1(env, args, func(v sqlval.Value) sqlval.Value { return sqlval.Integer(int64(len([]rune(v.AsText())))) })
	case "SUBSTRING", "SUBSTR":
		return fnSubstring(env, args)
	case "LEFT":
		return fnLeft(env, args)
	case "RIGHT":
		return fnRight(env, args)
	case "POSITION", "STRPOS":
		return fnPosition(env, args)
	case "CONCAT":
		return fnConcat(args), nil

	// --- numeric family ---
	case "ABS":
		return fnAbs(env, args)
	case "ROUND":
		return fnRound(env, args)
	case "CEIL", "CEILING":
		return fnCeilFloor(env, args, true)
	case "FLOOR":
		return fnCeilFloor(env, args, false)
	case "MOD":
		if len(args) != 2 {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "MOD requires 2 arguments")
		}
		return arith(env, "%", args[0], args[1])

	// --- null handling ---
	case "COALESCE":
		for _, a := range args {
			if !a.IsNull() {
				return a, nil
			}
		}
		return sqlval.Null(), nil
	case "NULLIF":
		if len(args) != 2 {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "NULLIF requires 2 arguments")
		}
		if !args[0].IsNull() && !args[1].IsNull() && sqlval.Compare(args[0], args[1]) == 0 {
			return sqlval.Null(), nil
		}
		return args[0], nil
	case "ZEROIFNULL":
		if len(args) != 1 {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "ZEROIFNULL requires 1 argument")
		}
		if args[0].IsNull() {
			return sqlval.Integer(0), nil
		}
		return args[0], nil
	case "NULLIFZERO":
		if len(args) != 1 {
			return sqlval.Null(), errs.NewTypeError(env.Ctx, "NULLIFZERO requires 1 argument")
		}
		if isZero(args[0]) {
			return sqlval.Null(), nil
		}
		return args[0], nil

	// --- date/time family ---
	case "ADD_MONTHS":
		return fnAddMonths(env, args)
	case "LAST_DAY":
		return fnLastDay(env, args)
	case "EXTRACT", "DATE_PART":
		return fnExtract(env, args)

	// --- system family ---
	case "VERSION":
		return sqlval.Text(ServerVersion), nil
	case "NOW", "CURRENT_TIMESTAMP", "LOCALTIMESTAMP":
		return sqlval.TimestampVal(sqlval.TimestampFromTime(gotime.Now().UTC())), nil
	case "CURRENT_DATE":
		return sqlval.DateVal(sqlval.DateFromTime(gotime.Now().UTC())), nil
	case "CURRENT_SCHEMA", "CURRENT_DATABASE", "DATABASE":
		if env.DB != nil {
			return sqlval.Text(env.DB.Name), nil
		}
		return sqlval.Null(), nil

	default:
		return sqlval.Null(), errs.NewFeatureError(env.Ctx, "unknown function %s", name)
	}
}

func nullMap1(env *Env, args []sqlval.Value, f func(sqlval.Value) sqlval.Value) (sqlval.Value, error) {
	if len(args) != 1 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "function requires exactly 1 argument")
	}
	if args[0].IsNull() {
		return sqlval.Null(), nil
	}
	return f(args[0]), nil
}

func fnSubstring(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "SUBSTRING requires 2 or 3 arguments")
	}
	if anyNull(args) {
		return sqlval.Null(), nil
	}
	s := []rune(args[0].AsText())
	start := int(args[1].AsInt())
	if start < 1 {
		start = 1
	}
	if start > len(s)+1 {
		return sqlval.Text(""), nil
	}
	end := len(s) + 1
	if len(args) == 3 {
		l := int(args[2].AsInt())
		if l < 0 {
			l = 0
		}
		if start+l < end {
			end = start + l
		}
	}
	return sqlval.Text(string(s[start-1 : end-1])), nil
}

func fnLeft(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) != 2 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "LEFT requires 2 arguments")
	}
	if anyNull(args) {
		return sqlval.Null(), nil
	}
	s := []rune(args[0].AsText())
	n := int(args[1].AsInt())
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return sqlval.Text(string(s[:n])), nil
}

func fnRight(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) != 2 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "RIGHT requires 2 arguments")
	}
	if anyNull(args) {
		return sqlval.Null(), nil
	}
	s := []rune(args[0].AsText())
	n := int(args[1].AsInt())
	if n < 0 {
		n = 0
	}
	if n > len(s) {
		n = len(s)
	}
	return sqlval.Text(string(s[len(s)-n:])), nil
}

func fnPosition(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) != 2 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "POSITION requires 2 arguments")
	}
	if anyNull(args) {
		return sqlval.Null(), nil
	}
	sub, s := args[0].AsText(), args[1].AsText()
	idx := strings.Index(s, sub)
	if idx < 0 {
		return sqlval.Integer(0), nil
	}
	return sqlval.Integer(int64(len([]rune(s[:idx])) + 1)), nil
}

func fnConcat(args []sqlval.Value) sqlval.Value {
	var sb strings.Builder
	for _, a := range args {
		if !a.IsNull() {
			sb.WriteString(a.AsText())
		}
	}
	return sqlval.Text(sb.String())
}

func anyNull(args []sqlval.Value) bool {
	for _, a := range args {
		if a.IsNull() {
			return true
		}
	}
	return false
}

func fnAbs(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) != 1 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "ABS requires 1 argument")
	}
	v := args[0]
	if v.IsNull() {
		return sqlval.Null(), nil
	}
	switch v.Kind {
	case sqlval.KInteger:
		if v.AsInt() < 0 {
			return sqlval.Integer(-v.AsInt()), nil
		}
		return v, nil
	case sqlval.KBigInt:
		if v.AsInt() < 0 {
			return sqlval.BigInt(-v.AsInt()), nil
		}
		return v, nil
	case sqlval.KFloat:
		f := v.AsFloat()
		if f < 0 {
			f = -f
		}
		return sqlval.Float(f), nil
	case sqlval.KDecimal:
		return sqlval.Decimal(v.AsDecimal().Abs()), nil
	default:
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "ABS requires a numeric argument")
	}
}

func fnRound(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "ROUND requires 1 or 2 arguments")
	}
	if args[0].IsNull() {
		return sqlval.Null(), nil
	}
	digits := int32(0)
	if len(args) == 2 {
		if args[1].IsNull() {
			return sqlval.Null(), nil
		}
		digits = int32(args[1].AsInt())
	}
	if args[0].Kind == sqlval.KFloat {
		mult := 1.0
		for i := int32(0); i < digits; i++ {
			mult *= 10
		}
		return sqlval.Float(roundHalfAwayFromZero(args[0].AsFloat()*mult) / mult), nil
	}
	return sqlval.Decimal(args[0].AsDecimal().Round(digits)), nil
}

func roundHalfAwayFromZero(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

func fnCeilFloor(env *Env, args []sqlval.Value, ceil bool) (sqlval.Value, error) {
	if len(args) != 1 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "function requires 1 argument")
	}
	if args[0].IsNull() {
		return sqlval.Null(), nil
	}
	d := args[0].AsDecimal()
	if ceil {
		return sqlval.Decimal(d.Ceil()), nil
	}
	return sqlval.Decimal(d.Floor()), nil
}

func fnAddMonths(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) != 2 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "ADD_MONTHS requires 2 arguments")
	}
	if anyNull(args) {
		return sqlval.Null(), nil
	}
	d := args[0].AsDate()
	n := int(args[1].AsInt())
	t := d.ToTime().AddDate(0, n, 0)
	return sqlval.DateVal(sqlval.DateFromTime(t)), nil
}

func fnLastDay(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) != 1 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "LAST_DAY requires 1 argument")
	}
	if args[0].IsNull() {
		return sqlval.Null(), nil
	}
	d := args[0].AsDate()
	firstNext := gotime.Date(d.Year, gotime.Month(d.Month), 1, 0, 0, 0, 0, gotime.UTC).AddDate(0, 1, 0)
	last := firstNext.AddDate(0, 0, -1)
	return sqlval.DateVal(sqlval.DateFromTime(last)), nil
}

// fnExtract implements the named extraction fields. It expects args[0]
// to be the field-name literal the parser produced.
func fnExtract(env *Env, args []sqlval.Value) (sqlval.Value, error) {
	if len(args) != 2 {
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "EXTRACT requires field and source")
	}
	if args[1].IsNull() {
		return sqlval.Null(), nil
	}
	field := strings.ToUpper(args[0].AsText())
	var t gotime.Time
	switch args[1].Kind {
	case sqlval.KDate:
		t = args[1].AsDate().ToTime()
	case sqlval.KTimestamp:
		t = args[1].AsTimestamp().ToTime()
	default:
		return sqlval.Null(), errs.NewTypeError(env.Ctx, "EXTRACT requires a date or timestamp source")
	}
	switch field {
	case "YEAR":
		return sqlval.Integer(int64(t.Year())), nil
	case "MONTH":
		return sqlval.Integer(int64(t.Month())), nil
	case "DAY":
		return sqlval.Integer(int64(t.Day())), nil
	case "HOUR":
		return sqlval.Integer(int64(t.Hour())), nil
	case "MINUTE":
		return sqlval.Integer(int64(t.Minute())), nil
	case "SECOND":
		return sqlval.Integer(int64(t.Second())), nil
	case "QUARTER":
		return sqlval.Integer(int64((int(t.Month())-1)/3 + 1)), nil
	case "WEEK":
		_, wk := t.ISOWeek()
		return sqlval.Integer(int64(wk)), nil
	case "DOW":
		return sqlval.Integer(int64(t.Weekday())), nil
	case "DOY":
		return sqlval.Integer(int64(t.YearDay())), nil
	case "CENTURY":
		return sqlval.Integer(int64(t.Year()/100 + 1)), nil
	case "DECADE":
		return sqlval.Integer(int64(t.Year() / 10)), nil
	case "EPOCH":
		return sqlval.Integer(t.Unix()), nil
	default:
		return sqlval.Null(), errs.NewFeatureError(env.Ctx, "unsupported EXTRACT field %s", field)
	}
}

// dateArith implements `Date ± Integer` and `Date - Date`, the two
// Date-specific arithmetic cases that fall outside the general numeric
// promotion rule.
func dateArith(op string, l, r sqlval.Value) (sqlval.Value, bool) {
	if l.Kind != sqlval.KDate || (op != "+" && op != "-") {
		return sqlval.Value{}, false
	}
	switch {
	case r.IsNull():
		return sqlval.Null(), true
	case r.Kind == sqlval.KDate && op == "-":
		return sqlval.Integer(int64(l.AsDate().Sub(r.AsDate()))), true
	case isNumericKind(r.Kind) && (op == "+" || op == "-"):
		n := int(r.AsInt())
		if op == "-" {
			n = -n
		}
		return sqlval.DateVal(l.AsDate().AddDays(n)), true
	default:
		return sqlval.Value{}, false
	}
}
