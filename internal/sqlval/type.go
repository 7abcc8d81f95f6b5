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

import "fmt"

// Kind is the tag of the Value sum type described in the data model.
type Kind int

const (
	KNull Kind = iota
	KInteger
	KBigInt
	KFloat
	KDecimal
	KBoolean
	KText
	KChar
	KDate
	KTime
	KTimestamp
	KUuid
	KJson
)

// SqlType mirrors Kind with the size/precision metadata clients need to
// see in a RowDescription / column-definition packet.
type SqlType struct {
	Kind Kind
	// Len is Char(n)/Varchar(n)'s declared length, 0 if unbounded.
	Len int
	// Precision/Scale apply to Decimal(p,s).
	Precision int
	Scale     int
}

func (t SqlType) String() string {
	switch t.Kind {
	case KChar:
		return fmt.Sprintf("CHAR(%d)", t.Len)
	case KText:
		if t.Len > 0 {
			return fmt.Sprintf("VARCHAR(%d)", t.Len)
		}
		return "TEXT"
	case KDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case KInteger:
		return "INTEGER"
	case KBigInt:
		return "BIGINT"
	case KFloat:
		return "DOUBLE"
	case KBoolean:
		return "BOOLEAN"
	case KDate:
		return "DATE"
	case KTime:
		return "TIME"
	case KTimestamp:
		return "TIMESTAMP"
	case KUuid:
		return "UUID"
	case KJson:
		return "JSON"
	default:
		return "NULL"
	}
}

// Common pre-built types, used pervasively by the expression evaluator's
// function library where the result type doesn't depend on the input.
var (
	TypeInteger   = SqlType{Kind: KInteger}
	TypeBigInt    = SqlType{Kind: KBigInt}
	TypeFloat     = SqlType{Kind: KFloat}
	TypeBoolean   = SqlType{Kind: KBoolean}
	TypeText      = SqlType{Kind: KText}
	TypeDate      = SqlType{Kind: KDate}
	TypeTime      = SqlType{Kind: KTime}
	TypeTimestamp = SqlType{Kind: KTimestamp}
	TypeUuid      = SqlType{Kind: KUuid}
	TypeJson      = SqlType{Kind: KJson}
	TypeNull      = SqlType{Kind: KNull}
)

func DecimalType(precision, scale int) SqlType {
	return SqlType{Kind: KDecimal, Precision: precision, Scale: scale}
}

func CharType(n int) SqlType {
	return SqlType{Kind: KChar, Len: n}
}

func VarcharType(n int) SqlType {
	return SqlType{Kind: KText, Len: n}
}
