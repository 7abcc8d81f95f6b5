package docloader

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	gotime "time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// convertValue turns one decoded YAML scalar into an sqlval.Value typed
// as t, the same (yaml value, sql type) match parse_value reduces over:
// a handful of YAML scalar kinds (nil, bool, number, string, and the
// occasional library-decoded time.Time) fanned out across the value
// universe's Kinds.
func convertValue(ctx context.Context, colName string, raw any, t sqlval.SqlType) (sqlval.Value, error) {
	if raw == nil {
		return sqlval.Null(), nil
	}

	switch t.Kind {
	case sqlval.KInteger, sqlval.KBigInt:
		n, err := toInt64(raw)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		if t.Kind == sqlval.KBigInt {
			return sqlval.BigInt(n), nil
		}
		return sqlval.Integer(n), nil

	case sqlval.KFloat:
		f, err := toFloat64(raw)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.Float(f), nil

	case sqlval.KDecimal:
		switch v := raw.(type) {
		case string:
			d, err := decimal.NewFromString(v)
			if err != nil {
				return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: invalid decimal %q", colName, v)
			}
			return sqlval.Decimal(d), nil
		default:
			f, err := toFloat64(raw)
			if err != nil {
				return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
			}
			return sqlval.Decimal(decimal.NewFromFloat(f)), nil
		}

	case sqlval.KBoolean:
		b, err := toBool(raw)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.Boolean(b), nil

	case sqlval.KText:
		s, err := toStringScalar(raw)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.Text(s), nil

	case sqlval.KChar:
		s, err := toStringScalar(raw)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.Char(s, t.Len), nil

	case sqlval.KDate:
		tv, err := toDateTime(raw, "2006-01-02")
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.DateVal(sqlval.DateFromTime(tv)), nil

	case sqlval.KTime:
		s, err := toStringScalar(raw)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		tv, err := parseTimeOfDay(s)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.TimeVal(tv), nil

	case sqlval.KTimestamp:
		tv, err := toDateTime(raw, "2006-01-02 15:04:05")
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.TimestampVal(sqlval.TimestampFromTime(tv)), nil

	case sqlval.KUuid:
		s, err := toStringScalar(raw)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: invalid UUID %q", colName, s)
		}
		return sqlval.UuidVal(id), nil

	case sqlval.KJson:
		return jsonValue(ctx, colName, raw)

	default:
		return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: unsupported target type %s", colName, t)
	}
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func toFloat64(raw any) (float64, error) {
	switch v := raw.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "TRUE", "1":
			return true, nil
		case "FALSE", "0":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean %q", v)
	default:
		return false, fmt.Errorf("expected boolean, got %T", raw)
	}
}

func toStringScalar(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case gotime.Time:
		return v.Format(gotime.RFC3339), nil
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		return "", fmt.Errorf("expected string, got %T", raw)
	}
}

// toDateTime accepts either a library-parsed time.Time (yaml.v3 decodes
// "!!timestamp"-tagged scalars this way) or a plain string in layout,
// falling back to RFC3339 the way parse_value's date/timestamp branch
// tries its primary format before the ISO one.
func toDateTime(raw any, layout string) (gotime.Time, error) {
	if tv, ok := raw.(gotime.Time); ok {
		return tv, nil
	}
	s, err := toStringScalar(raw)
	if err != nil {
		return gotime.Time{}, err
	}
	if tv, err := gotime.Parse(layout, s); err == nil {
		return tv, nil
	}
	if tv, err := gotime.Parse(gotime.RFC3339, s); err == nil {
		return tv, nil
	}
	return gotime.Time{}, fmt.Errorf("invalid date/time %q", s)
}

func parseTimeOfDay(s string) (sqlval.Time, error) {
	for _, layout := range []string{"15:04:05.999999", "15:04:05", "15:04"} {
		if tv, err := gotime.Parse(layout, s); err == nil {
			return sqlval.Time{Hour: tv.Hour(), Minute: tv.Minute(), Second: tv.Second(), Micros: tv.Nanosecond() / 1000}, nil
		}
	}
	return sqlval.Time{}, fmt.Errorf("invalid time %q", s)
}

func jsonValue(ctx context.Context, colName string, raw any) (sqlval.Value, error) {
	switch v := raw.(type) {
	case string:
		return sqlval.JsonVal(sqlval.JSON{Raw: []byte(v)}), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return sqlval.Value{}, errs.NewTypeError(ctx, "column %q: %v", colName, err)
		}
		return sqlval.JsonVal(sqlval.JSON{Raw: b}), nil
	}
}
