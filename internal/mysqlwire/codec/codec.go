// Package codec turns catalog columns and sqlval values into the column
// type tags and text-protocol row bytes a MySQL column-definition/row
// packet needs, grounded on the MYSQL_TYPE_* constants used throughout
// mysql_protocol.go's column-definition and resultset-row construction.
package codec

import (
	"strconv"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// ColumnType is a MYSQL_TYPE_* wire tag.
type ColumnType byte

const (
	TypeDecimal    ColumnType = 0
	TypeTiny       ColumnType = 1
	TypeShort      ColumnType = 2
	TypeLong       ColumnType = 3
	TypeFloat      ColumnType = 4
	TypeDouble     ColumnType = 5
	TypeNull       ColumnType = 6
	TypeTimestamp  ColumnType = 7
	TypeLongLong   ColumnType = 8
	TypeDate       ColumnType = 10
	TypeTime       ColumnType = 11
	TypeDateTime   ColumnType = 12
	TypeVarchar    ColumnType = 15
	TypeJSON       ColumnType = 245
	TypeNewDecimal ColumnType = 246
	TypeVarString  ColumnType = 253
	TypeString     ColumnType = 254
)

// MysqlCharsetUTF8 is the charset ID column-definition packets carry for
// every text-shaped column this engine ever emits.
const MysqlCharsetUTF8 = 0x21

// TypeFor maps a column's SqlType to its wire column-type tag.
func TypeFor(t sqlval.SqlType) ColumnType {
	switch t.Kind {
	case sqlval.KInteger:
		return TypeLong
	case sqlval.KBigInt:
		return TypeLongLong
	case sqlval.KFloat:
		return TypeDouble
	case sqlval.KDecimal:
		return TypeNewDecimal
	case sqlval.KBoolean:
		return TypeTiny
	case sqlval.KText:
		return TypeVarString
	case sqlval.KChar:
		return TypeString
	case sqlval.KDate:
		return TypeDate
	case sqlval.KTime:
		return TypeTime
	case sqlval.KTimestamp:
		return TypeDateTime
	case sqlval.KUuid:
		return TypeVarString
	case sqlval.KJson:
		return TypeJSON
	default:
		return TypeNull
	}
}

// ColumnLength answers a column-definition packet's declared display
// length; the protocol tolerates an approximate value for every type
// that isn't a fixed-width numeric.
func ColumnLength(t sqlval.SqlType) uint32 {
	switch t.Kind {
	case sqlval.KInteger:
		return 11
	case sqlval.KBigInt:
		return 20
	case sqlval.KFloat:
		return 22
	case sqlval.KBoolean:
		return 1
	case sqlval.KUuid:
		return 36
	case sqlval.KChar:
		if t.Len > 0 {
			return uint32(t.Len)
		}
		return 255
	default:
		if t.Len > 0 {
			return uint32(t.Len)
		}
		return 255
	}
}

// EncodeText renders v the way a text-protocol resultset row encodes a
// value: the raw text, or (handled by the caller writing a 0xFB marker)
// absent for SQL NULL.
func EncodeText(v sqlval.Value) (text string, isNull bool) {
	if v.IsNull() {
		return "", true
	}
	switch v.Kind {
	case sqlval.KBoolean:
		if v.AsBool() {
			return "1", false
		}
		return "0", false
	case sqlval.KFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64), false
	default:
		return v.String(), false
	}
}

// ColumnInfo is this package's column-shaped answer, independent of
// whatever packet-writer shape internal/mysqlwire builds around it.
type ColumnInfo struct {
	Name    string
	Type    ColumnType
	Length  uint32
	Charset uint16
}

// Describe builds one ColumnInfo per output column, in column order.
func Describe(cols []catalog.Column) []ColumnInfo {
	out := make([]ColumnInfo, len(cols))
	for i, c := range cols {
		charset := uint16(MysqlCharsetUTF8)
		if isNumericType(c.Type) {
			charset = 0x3f // "binary", matching numeric columns in mysql_protocol.go
		}
		out[i] = ColumnInfo{Name: c.Name, Type: TypeFor(c.Type), Length: ColumnLength(c.Type), Charset: charset}
	}
	return out
}

func isNumericType(t sqlval.SqlType) bool {
	switch t.Kind {
	case sqlval.KInteger, sqlval.KBigInt, sqlval.KFloat, sqlval.KDecimal, sqlval.KBoolean:
		return true
	default:
		return false
	}
}

// EncodeRow renders one catalog.Row as parallel text/isNull slices, the
// shape internal/mysqlwire's row-packet writer consumes directly.
func EncodeRow(row catalog.Row) (texts []string, nulls []bool) {
	texts = make([]string, len(row))
	nulls = make([]bool, len(row))
	for i, v := range row {
		texts[i], nulls[i] = EncodeText(v)
	}
	return texts, nulls
}
