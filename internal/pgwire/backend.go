package pgwire

import (
	"bufio"

	"github.com/memsqld/memsqld/internal/errs"
	"github.com/memsqld/memsqld/internal/pgwire/codec"
)

// Backend message type tags.
const (
	msgAuthentication      = 'R'
	msgParameterStatus     = 'S'
	msgBackendKeyData      = 'K'
	msgReadyForQuery       = 'Z'
	msgRowDescription      = 'T'
	msgDataRow             = 'D'
	msgCommandComplete     = 'C'
	msgEmptyQueryResponse  = 'I'
	msgErrorResponse       = 'E'
	msgParseComplete       = '1'
	msgBindComplete        = '2'
	msgCloseComplete       = '3'
	msgParameterDesc       = 't'
	msgNoData              = 'n'
	msgPortalSuspended     = 's'
)

// Frontend message type tags.
const (
	cmdQuery           = 'Q'
	cmdParse           = 'P'
	cmdBind            = 'B'
	cmdDescribe        = 'D'
	cmdExecute         = 'E'
	cmdSync            = 'S'
	cmdClose           = 'C'
	cmdTerminate       = 'X'
	cmdFlush           = 'H'
	cmdPasswordMessage = 'p'
)

func writeAuthCleartextPassword(w *bufio.Writer) error {
	body := (&messageBuf{}).int32(3).buf
	return writeMessage(w, msgAuthentication, body)
}

func writeAuthOk(w *bufio.Writer) error {
	body := (&messageBuf{}).int32(0).buf
	return writeMessage(w, msgAuthentication, body)
}

func writeParameterStatus(w *bufio.Writer, name, value string) error {
	body := (&messageBuf{}).cstring(name).cstring(value).buf
	return writeMessage(w, msgParameterStatus, body)
}

func writeBackendKeyData(w *bufio.Writer, processID, secretKey int32) error {
	body := (&messageBuf{}).int32(processID).int32(secretKey).buf
	return writeMessage(w, msgBackendKeyData, body)
}

// Transaction-status bytes ReadyForQuery reports; this server never
// opens a real transaction block, so it is always 'I' (idle).
const txStatusIdle = 'I'

func writeReadyForQuery(w *bufio.Writer) error {
	return writeMessage(w, msgReadyForQuery, []byte{txStatusIdle})
}

func writeRowDescription(w *bufio.Writer, fields []codec.FieldInfo, formatCodes []int16) error {
	m := &messageBuf{}
	m.int16(int16(len(fields)))
	for i, f := range fields {
		fc := int16(0)
		if formatCodes != nil && i < len(formatCodes) {
			fc = formatCodes[i]
		}
		m.cstring(f.Name).
			int32(0).        // table OID, unknown for a computed result set
			int16(0).        // column attribute number
			uint32(uint32(f.DataTypeOID)).
			int16(f.DataTypeSize).
			int32(-1). // type modifier
			int16(fc)
	}
	return writeMessage(w, msgRowDescription, m.buf)
}

func writeDataRow(w *bufio.Writer, values [][]byte) error {
	m := &messageBuf{}
	m.int16(int16(len(values)))
	for _, v := range values {
		m.lenencBytes(v)
	}
	return writeMessage(w, msgDataRow, m.buf)
}

func writeCommandComplete(w *bufio.Writer, tag string) error {
	body := (&messageBuf{}).cstring(tag).buf
	return writeMessage(w, msgCommandComplete, body)
}

func writeEmptyQueryResponse(w *bufio.Writer) error {
	return writeMessage(w, msgEmptyQueryResponse, nil)
}

func writeParseComplete(w *bufio.Writer) error  { return writeMessage(w, msgParseComplete, nil) }
func writeBindComplete(w *bufio.Writer) error   { return writeMessage(w, msgBindComplete, nil) }
func writeCloseComplete(w *bufio.Writer) error  { return writeMessage(w, msgCloseComplete, nil) }
func writeNoData(w *bufio.Writer) error         { return writeMessage(w, msgNoData, nil) }
func writePortalSuspended(w *bufio.Writer) error { return writeMessage(w, msgPortalSuspended, nil) }

func writeParameterDescription(w *bufio.Writer, oids []uint32) error {
	m := &messageBuf{}
	m.int16(int16(len(oids)))
	for _, o := range oids {
		m.uint32(o)
	}
	return writeMessage(w, msgParameterDesc, m.buf)
}

// writeErrorResponse renders an *errs.Error as ErrorResponse's minimal
// required field set: severity, SQLSTATE code, and message text.
func writeErrorResponse(w *bufio.Writer, e *errs.Error) error {
	if e == nil {
		e = errs.NewFeatureError(nil, "internal error")
	}
	m := &messageBuf{}
	m.byte('S').cstring(severityFor(e.Kind))
	m.byte('C').cstring(e.PgCode)
	m.byte('M').cstring(e.Error())
	m.byte(0)
	return writeMessage(w, msgErrorResponse, m.buf)
}

func severityFor(k errs.Kind) string {
	switch k {
	case errs.KindCancellation:
		return "FATAL"
	default:
		return "ERROR"
	}
}
