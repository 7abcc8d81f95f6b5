package pgwire

import (
	"encoding/binary"
	"math"

	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/parseradapter"
	"github.com/memsqld/memsqld/internal/pgwire/oid"
	"github.com/memsqld/memsqld/internal/pgwire/codec"
	"github.com/memsqld/memsqld/internal/sqlast"
	"github.com/memsqld/memsqld/internal/sqlval"
)

// preparedStatement is one entry of the extended-query protocol's
// `statements: name -> (parsed AST, param types)` map named in the
// protocol state machine design.
type preparedStatement struct {
	stmt       sqlast.Statement
	sql        string
	paramOIDs  []uint32 // client-declared hints from Parse; 0 means unspecified
	paramCount int
}

// boundPortal is the matching `portals: name -> (statement, bound
// params, result formats)` entry.
type boundPortal struct {
	stmtName      string
	stmt          sqlast.Statement
	params        []sqlval.Value
	resultFormats []int16
}

// extendedState holds the per-connection maps the extended flow reads
// and writes across Parse/Bind/Describe/Execute/Sync.
type extendedState struct {
	statements map[string]*preparedStatement
	portals    map[string]*boundPortal
}

func newExtendedState() *extendedState {
	return &extendedState{statements: map[string]*preparedStatement{}, portals: map[string]*boundPortal{}}
}

func (c *conn) handleParse(body []byte) error {
	fr := &fieldReader{data: body}
	name, ok := fr.cstring()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Parse message")
	}
	sql, ok := fr.cstring()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Parse message")
	}
	numParams, ok := fr.int16()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Parse message")
	}
	oids := make([]uint32, numParams)
	for i := range oids {
		v, ok := fr.int32()
		if !ok {
			return errs.NewProtocolError(c.ctx, "malformed Parse message")
		}
		oids[i] = uint32(v)
	}
	stmt, err := parseradapter.ParseOne(c.ctx, sql)
	if err != nil {
		return err
	}
	c.ext.statements[name] = &preparedStatement{
		stmt:       stmt,
		sql:        sql,
		paramOIDs:  oids,
		paramCount: parseradapter.ParamCount(stmt),
	}
	return writeParseComplete(c.bw)
}

func (c *conn) handleBind(body []byte) error {
	fr := &fieldReader{data: body}
	portalName, ok := fr.cstring()
	stmtName, ok2 := fr.cstring()
	if !ok || !ok2 {
		return errs.NewProtocolError(c.ctx, "malformed Bind message")
	}
	ps, ok := c.ext.statements[stmtName]
	if !ok {
		return errs.NewProtocolError(c.ctx, "unknown prepared statement %q", stmtName)
	}

	numFormats, ok := fr.int16()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Bind message")
	}
	formats := make([]int16, numFormats)
	for i := range formats {
		v, ok := fr.int16()
		if !ok {
			return errs.NewProtocolError(c.ctx, "malformed Bind message")
		}
		formats[i] = v
	}
	formatFor := func(i int) int16 {
		if len(formats) == 0 {
			return 0
		}
		if len(formats) == 1 {
			return formats[0]
		}
		return formats[i]
	}

	numParams, ok := fr.int16()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Bind message")
	}
	params := make([]sqlval.Value, numParams)
	for i := range params {
		n, ok := fr.int32()
		if !ok {
			return errs.NewProtocolError(c.ctx, "malformed Bind message")
		}
		if n < 0 {
			params[i] = sqlval.Null()
			continue
		}
		raw, ok := fr.bytes(int(n))
		if !ok {
			return errs.NewProtocolError(c.ctx, "malformed Bind message")
		}
		var hint uint32
		if i < len(ps.paramOIDs) {
			hint = ps.paramOIDs[i]
		}
		v, err := decodeParam(formatFor(i), hint, raw)
		if err != nil {
			return errs.NewTypeError(c.ctx, "parameter $%d: %v", i+1, err)
		}
		params[i] = v
	}

	numResultFormats, ok := fr.int16()
	if !ok {
		return errs.NewProtocolError(c.ctx, "malformed Bind message")
	}
	resultFormats := make([]int16, numResultFormats)
	for i := range resultFormats {
		v, ok := fr.int16()
		if !ok {
			return errs.NewProtocolError(c.ctx, "malformed Bind message")
		}
		resultFormats[i] = v
	}

	c.ext.portals[portalName] = &boundPortal{stmtName: stmtName, stmt: ps.stmt, params: params, resultFormats: resultFormats}
	return writeBindComplete(c.bw)
}

// decodeParam decodes one Bind parameter value per its format code (0
// text, 1 binary), using the client-declared OID hint to pick a target
// Kind when one was given; an unhinted parameter decodes as text.
func decodeParam(format int16, oidHint uint32, raw []byte) (sqlval.Value, error) {
	kind := kindForOid(oid.Oid(oidHint))
	if format == 0 {
		return codec.DecodeText(kind, raw)
	}
	return decodeBinary(kind, raw)
}

func kindForOid(o oid.Oid) sqlval.Kind {
	switch o {
	case oid.T_int4:
		return sqlval.KInteger
	case oid.T_int8:
		return sqlval.KBigInt
	case oid.T_int2:
		return sqlval.KInteger
	case oid.T_float4, oid.T_float8:
		return sqlval.KFloat
	case oid.T_bool:
		return sqlval.KBoolean
	case oid.T_numeric:
		return sqlval.KDecimal
	case oid.T_date:
		return sqlval.KDate
	case oid.T_time:
		return sqlval.KTime
	case oid.T_timestamp:
		return sqlval.KTimestamp
	case oid.T_uuid:
		return sqlval.KUuid
	case oid.T_json:
		return sqlval.KJson
	default:
		return sqlval.KText
	}
}

// decodeBinary decodes the fixed-width binary representations stock
// drivers send for the common scalar types; anything else is treated
// as opaque text, matching the text-format fallback already used when
// a client declares no OID hint at all.
func decodeBinary(kind sqlval.Kind, raw []byte) (sqlval.Value, error) {
	if raw == nil {
		return sqlval.Null(), nil
	}
	switch kind {
	case sqlval.KInteger:
		if len(raw) != 4 {
			return codec.DecodeText(kind, raw)
		}
		return sqlval.Integer(int64(int32(binary.BigEndian.Uint32(raw)))), nil
	case sqlval.KBigInt:
		if len(raw) != 8 {
			return codec.DecodeText(kind, raw)
		}
		return sqlval.BigInt(int64(binary.BigEndian.Uint64(raw))), nil
	case sqlval.KFloat:
		if len(raw) != 8 {
			return codec.DecodeText(kind, raw)
		}
		return sqlval.Float(math.Float64frombits(binary.BigEndian.Uint64(raw))), nil
	case sqlval.KBoolean:
		if len(raw) != 1 {
			return codec.DecodeText(kind, raw)
		}
		return sqlval.Boolean(raw[0] != 0), nil
	default:
		return sqlval.Text(string(raw)), nil
	}
}
