// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlval

import (
	"encoding/json"
	"fmt"
	"strings"
	gotime "time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Date is a calendar date, stored as days are elsewhere in this package:
// whole-day granularity, no time-of-day component.
type Date struct {
	Year, Month, Day int
}

func DateFromTime(t gotime.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

func (d Date) ToTime() gotime.Time {
	return gotime.Date(d.Year, gotime.Month(d.Month), d.Day, 0, 0, 0, 0, gotime.UTC)
}

func (d Date) AddDays(n int) Date {
	return DateFromTime(d.ToTime().AddDate(0, 0, n))
}

func (d Date) Sub(o Date) int {
	return int(d.ToTime().Sub(o.ToTime()).Hours() / 24)
}

func (d Date) String() string {
	return d.ToTime().Format("2006-01-02")
}

// Time is a time-of-day value with optional fractional-second precision.
type Time struct {
	Hour, Minute, Second, Micros int
}

func (t Time) String() string {
	if t.Micros == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%06d", t.Hour, t.Minute, t.Second, t.Micros)
}

// Timestamp is a date+time value with no timezone, per the data model.
type Timestamp struct {
	Date Date
	Time Time
}

func TimestampFromTime(t gotime.Time) Timestamp {
	return Timestamp{Date: DateFromTime(t), Time: Time{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(), Micros: t.Nanosecond() / 1000}}
}

func (ts Timestamp) ToTime() gotime.Time {
	d, t := ts.Date, ts.Time
	return gotime.Date(d.Year, gotime.Month(d.Month), d.Day, t.Hour, t.Minute, t.Second, t.Micros*1000, gotime.UTC)
}

func (ts Timestamp) String() string {
	return ts.Date.String() + " " + ts.Time.String()
}

// JSON wraps a raw JSON document so a round trip through the engine never
// reformats whitespace or key order, mirroring the "store raw, parse
// lazily" intent of MatrixOne's container/bytejson.
type JSON struct {
	Raw json.RawMessage
}

func (j JSON) String() string {
	return string(j.Raw)
}

// Value is the tagged sum over the data model's value universe. Only one
// of the typed fields is meaningful for a given Kind; IsNull short-circuits
// everything else.
type Value struct {
	Kind Kind

	i   int64
	big int64 // BigInt payload, kept distinct from Integer for clarity at call sites
	f   float64
	dec decimal.Decimal
	b   bool
	s   string // Text and Char payload
	d   Date
	t   Time
	ts  Timestamp
	u   uuid.UUID
	j   JSON
}

func Null() Value                 { return Value{Kind: KNull} }
func Integer(v int64) Value       { return Value{Kind: KInteger, i: v} }
func BigInt(v int64) Value        { return Value{Kind: KBigInt, big: v} }
func Float(v float64) Value       { return Value{Kind: KFloat, f: v} }
func Decimal(v decimal.Decimal) Value { return Value{Kind: KDecimal, dec: v} }
func Boolean(v bool) Value        { return Value{Kind: KBoolean, b: v} }
func Text(v string) Value         { return Value{Kind: KText, s: v} }
func Char(v string, n int) Value  { return Value{Kind: KChar, s: padChar(v, n)} }
func DateVal(v Date) Value        { return Value{Kind: KDate, d: v} }
func TimeVal(v Time) Value        { return Value{Kind: KTime, t: v} }
func TimestampVal(v Timestamp) Value { return Value{Kind: KTimestamp, ts: v} }
func UuidVal(v uuid.UUID) Value   { return Value{Kind: KUuid, u: v} }
func JsonVal(v JSON) Value        { return Value{Kind: KJson, j: v} }

func padChar(s string, n int) string {
	if n <= 0 || len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func (v Value) IsNull() bool { return v.Kind == KNull }

func (v Value) AsInt() int64 {
	switch v.Kind {
	case KInteger:
		return v.i
	case KBigInt:
		return v.big
	case KFloat:
		return int64(v.f)
	case KDecimal:
		return v.dec.IntPart()
	default:
		return 0
	}
}

func (v Value) AsFloat() float64 {
	switch v.Kind {
	case KInteger:
		return float64(v.i)
	case KBigInt:
		return float64(v.big)
	case KFloat:
		return v.f
	case KDecimal:
		f, _ := v.dec.Float64()
		return f
	default:
		return 0
	}
}

func (v Value) AsDecimal() decimal.Decimal {
	switch v.Kind {
	case KInteger:
		return decimal.NewFromInt(v.i)
	case KBigInt:
		return decimal.NewFromInt(v.big)
	case KFloat:
		return decimal.NewFromFloat(v.f)
	case KDecimal:
		return v.dec
	default:
		return decimal.Zero
	}
}

func (v Value) AsBool() bool { return v.b }
func (v Value) AsText() string {
	switch v.Kind {
	case KText, KChar:
		return v.s
	default:
		return v.String()
	}
}
func (v Value) AsDate() Date           { return v.d }
func (v Value) AsTime() Time           { return v.t }
func (v Value) AsTimestamp() Timestamp { return v.ts }
func (v Value) AsUuid() uuid.UUID      { return v.u }
func (v Value) AsJSON() JSON           { return v.j }

// String renders the value the way a client would expect to see it echoed
// back in a text-format row, used by both the text-format row codec and
// error messages.
func (v Value) String() string {
	switch v.Kind {
	case KNull:
		return "NULL"
	case KInteger:
		return fmt.Sprintf("%d", v.i)
	case KBigInt:
		return fmt.Sprintf("%d", v.big)
	case KFloat:
		return fmt.Sprintf("%v", v.f)
	case KDecimal:
		return v.dec.String()
	case KBoolean:
		if v.b {
			return "t"
		}
		return "f"
	case KText, KChar:
		return v.s
	case KDate:
		return v.d.String()
	case KTime:
		return v.t.String()
	case KTimestamp:
		return v.ts.String()
	case KUuid:
		return v.u.String()
	case KJson:
		return v.j.String()
	default:
		return ""
	}
}

// Type infers the SqlType tag that describes this value, used where the
// schema itself doesn't carry one (e.g. literals, derived-table columns).
func (v Value) Type() SqlType {
	switch v.Kind {
	case KInteger:
		return TypeInteger
	case KBigInt:
		return TypeBigInt
	case KFloat:
		return TypeFloat
	case KDecimal:
		exp := -v.dec.Exponent()
		if exp < 0 {
			exp = 0
		}
		return DecimalType(38, int(exp))
	case KBoolean:
		return TypeBoolean
	case KText:
		return TypeText
	case KChar:
		return CharType(len(v.s))
	case KDate:
		return TypeDate
	case KTime:
		return TypeTime
	case KTimestamp:
		return TypeTimestamp
	case KUuid:
		return TypeUuid
	case KJson:
		return TypeJson
	default:
		return TypeNull
	}
}
