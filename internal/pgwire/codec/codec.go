// Package codec turns catalog columns and sqlval values into the OIDs
// and text-format byte strings a RowDescription/DataRow pair needs,
// grounded on the type-mapping table and on lib/pq/oid's numbering
// (reproduced locally in internal/pgwire/oid).
package codec

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/pgwire/oid"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// OidFor maps a column's SqlType to the Postgres built-in type OID a
// RowDescription's DataTypeOID field names.
func OidFor(t sqlval.SqlType) oid.Oid {
	switch t.Kind {
	case sqlval.KInteger:
		return oid.T_int4
	case sqlval.KBigInt:
		return oid.T_int8
	case sqlval.KFloat:
		return oid.T_float8
	case sqlval.KDecimal:
		return oid.T_numeric
	case sqlval.KBoolean:
		return oid.T_bool
	case sqlval.KText:
		return oid.T_text
	case sqlval.KChar:
		return oid.T_bpchar
	case sqlval.KDate:
		return oid.T_date
	case sqlval.KTime:
		return oid.T_time
	case sqlval.KTimestamp:
		return oid.T_timestamp
	case sqlval.KUuid:
		return oid.T_uuid
	case sqlval.KJson:
		return oid.T_json
	default:
		return oid.T_unknown
	}
}

// TypeSize answers a RowDescription's DataTypeSize field the way
// Postgres's own catalog does: -1 for every variable-length type, the
// fixed wire width otherwise.
func TypeSize(t sqlval.SqlType) int16 {
	switch t.Kind {
	case sqlval.KInteger:
		return 4
	case sqlval.KBigInt:
		return 8
	case sqlval.KFloat:
		return 8
	case sqlval.KBoolean:
		return 1
	case sqlval.KUuid:
		return 16
	default:
		return -1
	}
}

// EncodeText renders v in Postgres's text wire format, nil for SQL NULL.
func EncodeText(v sqlval.Value) []byte {
	if v.IsNull() {
		return nil
	}
	switch v.Kind {
	case sqlval.KBoolean:
		if v.AsBool() {
			return []byte("t")
		}
		return []byte("f")
	case sqlval.KFloat:
		return []byte(strconv.FormatFloat(v.AsFloat(), 'g', -1, 64))
	default:
		return []byte(v.String())
	}
}

// DecodeText parses a client-supplied text-format Bind parameter into a
// Value of the given target Kind, the counterpart to EncodeText used
// when the extended-query protocol's format code for a parameter is 0
// (text).
func DecodeText(k sqlval.Kind, raw []byte) (sqlval.Value, error) {
	if raw == nil {
		return sqlval.Null(), nil
	}
	s := string(raw)
	switch k {
	case sqlval.KInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return sqlval.Null(), err
		}
		return sqlval.Integer(n), nil
	case sqlval.KBigInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return sqlval.Null(), err
		}
		return sqlval.BigInt(n), nil
	case sqlval.KFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return sqlval.Null(), err
		}
		return sqlval.Float(f), nil
	case sqlval.KBoolean:
		return sqlval.Boolean(s == "t" || s == "true" || s == "1"), nil
	default:
		return sqlval.Text(s), nil
	}
}

// FieldInfo is the codec's column-shaped answer, independent of
// pgproto3's FieldDescription so this package never needs to import it;
// internal/pgwire converts this into a wire FieldDescription.
type FieldInfo struct {
	Name         string
	DataTypeOID  oid.Oid
	DataTypeSize int16
}

// Describe builds one FieldInfo per output column, in column order.
func Describe(cols []catalog.Column) []FieldInfo {
	out := make([]FieldInfo, len(cols))
	for i, c := range cols {
		out[i] = FieldInfo{Name: c.Name, DataTypeOID: OidFor(c.Type), DataTypeSize: TypeSize(c.Type)}
	}
	return out
}

// encodeBinary renders v in Postgres's binary wire format for the
// fixed-width scalar kinds decodeBinary (internal/pgwire/extended.go)
// already accepts on the parameter side; ok is false for any kind
// without a binary encoding, signaling the caller to fall back to text.
func encodeBinary(v sqlval.Value) (b []byte, ok bool) {
	switch v.Kind {
	case sqlval.KInteger:
		b = make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(int32(v.AsInt())))
		return b, true
	case sqlval.KBigInt:
		b = make([]byte, 8)
		binary.BigEndian.PutUint64(b, uint64(v.AsInt()))
		return b, true
	case sqlval.KFloat:
		b = make([]byte, 8)
		binary.BigEndian.PutUint64(b, math.Float64bits(v.AsFloat()))
		return b, true
	case sqlval.KBoolean:
		if v.AsBool() {
			return []byte{1}, true
		}
		return []byte{0}, true
	default:
		return nil, false
	}
}

// ResolveFormats decides, per result column, the wire format (0 text, 1
// binary) that will actually be sent: binary is only honored for kinds
// encodeBinary supports, so a column RowDescription advertises as
// binary is always one EncodeRow can actually render that way. requested
// follows the Bind message's format-code rule (empty means all text, a
// single entry applies to every column, otherwise one per column).
func ResolveFormats(cols []catalog.Column, requested []int16) []int16 {
	out := make([]int16, len(cols))
	for i, c := range cols {
		if formatFor(requested, i) == 1 && supportsBinary(c.Type.Kind) {
			out[i] = 1
		}
	}
	return out
}

func formatFor(formats []int16, i int) int16 {
	switch len(formats) {
	case 0:
		return 0
	case 1:
		return formats[0]
	default:
		if i < len(formats) {
			return formats[i]
		}
		return 0
	}
}

func supportsBinary(k sqlval.Kind) bool {
	switch k {
	case sqlval.KInteger, sqlval.KBigInt, sqlval.KFloat, sqlval.KBoolean:
		return true
	default:
		return false
	}
}

// EncodeValue renders v per format (0 text, 1 binary), falling back to
// text whenever binary isn't implemented for v's kind.
func EncodeValue(v sqlval.Value, format int16) []byte {
	if v.IsNull() {
		return nil
	}
	if format == 1 {
		if b, ok := encodeBinary(v); ok {
			return b
		}
	}
	return EncodeText(v)
}

// EncodeRow renders one catalog.Row as the [][]byte DataRow.Values
// shape, honoring formats per column (as resolved by ResolveFormats) so
// the bytes sent always match whatever format RowDescription advertised
// for that column. A nil formats renders every column as text.
func EncodeRow(row catalog.Row, formats []int16) [][]byte {
	out := make([][]byte, len(row))
	for i, v := range row {
		f := int16(0)
		if i < len(formats) {
			f = formats[i]
		}
		out[i] = EncodeValue(v, f)
	}
	return out
}
