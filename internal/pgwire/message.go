// Package pgwire implements protocol family A: the Postgres message wire
// format, startup/auth negotiation, and the simple and extended query
// flows, grounded on yydzero/mnt/libpq's pqbuffer.go message-framing
// helper for the raw read/write shape and on the Postgres frontend/backend
// protocol documentation for message layout (this server implements the
// backend side only; no pgproto3 dependency is pulled in since the
// teacher's own examples frame protocol A's transport as a bare
// bufio.Reader/Writer pair, not a borrowed message library).
package pgwire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// sslRequestCode and cancelRequestCode are the two "fake" startup codes
// a client may send in place of a real protocol-version number.
const (
	sslRequestCode    = 80877103
	cancelRequestCode = 80877102
	protocolVersion30 = 196608 // 3.0, the only startup version this server accepts
)

// readStartupMessage reads the length-prefixed, type-byte-less message
// every connection begins with: either a real StartupMessage (carrying
// protocolVersion30 and a list of key/value parameters) or one of the
// two fake request codes.
func readStartupMessage(r *bufio.Reader) (code int32, payload []byte, err error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	length := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if length < 8 {
		return 0, nil, fmt.Errorf("pgwire: startup message too short (%d bytes)", length)
	}
	rest := make([]byte, length-4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return 0, nil, err
	}
	code = int32(binary.BigEndian.Uint32(rest[:4]))
	return code, rest[4:], nil
}

// readMessage reads one regular frontend message: a one-byte type tag
// followed by a four-byte length (self-inclusive) and that many bytes
// of body.
func readMessage(r *bufio.Reader) (msgType byte, body []byte, err error) {
	msgType, err = r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return 0, nil, err
	}
	length := int32(binary.BigEndian.Uint32(lenBuf[:]))
	if length < 4 {
		return 0, nil, fmt.Errorf("pgwire: message length %d too short", length)
	}
	body = make([]byte, length-4)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return msgType, body, nil
}

func writeMessage(w *bufio.Writer, msgType byte, body []byte) error {
	if err := w.WriteByte(msgType); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)+4))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return nil
}

// messageBuf accumulates a message body with the int16/int32/string
// encoders Postgres's binary layout needs.
type messageBuf struct {
	buf []byte
}

func (m *messageBuf) int16(v int16) *messageBuf {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(v))
	m.buf = append(m.buf, b[:]...)
	return m
}

func (m *messageBuf) int32(v int32) *messageBuf {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	m.buf = append(m.buf, b[:]...)
	return m
}

func (m *messageBuf) uint32(v uint32) *messageBuf {
	return m.int32(int32(v))
}

func (m *messageBuf) cstring(s string) *messageBuf {
	m.buf = append(m.buf, s...)
	m.buf = append(m.buf, 0)
	return m
}

func (m *messageBuf) byte(b byte) *messageBuf {
	m.buf = append(m.buf, b)
	return m
}

func (m *messageBuf) bytes(b []byte) *messageBuf {
	m.buf = append(m.buf, b...)
	return m
}

// lenencBytes appends a 4-byte length (−1 for nil, meaning SQL NULL)
// followed by the bytes themselves, the shape every DataRow/Bind
// parameter value uses.
func (m *messageBuf) lenencBytes(b []byte) *messageBuf {
	if b == nil {
		return m.int32(-1)
	}
	return m.int32(int32(len(b))).bytes(b)
}

// fieldReader walks a startup parameter list or similar
// NUL-terminated-string-pair sequence.
type fieldReader struct {
	data []byte
	pos  int
}

func (f *fieldReader) cstring() (string, bool) {
	start := f.pos
	for f.pos < len(f.data) && f.data[f.pos] != 0 {
		f.pos++
	}
	if f.pos >= len(f.data) {
		return "", false
	}
	s := string(f.data[start:f.pos])
	f.pos++
	return s, true
}

func (f *fieldReader) int16() (int16, bool) {
	if f.pos+2 > len(f.data) {
		return 0, false
	}
	v := int16(binary.BigEndian.Uint16(f.data[f.pos:]))
	f.pos += 2
	return v, true
}

func (f *fieldReader) int32() (int32, bool) {
	if f.pos+4 > len(f.data) {
		return 0, false
	}
	v := int32(binary.BigEndian.Uint32(f.data[f.pos:]))
	f.pos += 4
	return v, true
}

func (f *fieldReader) bytes(n int) ([]byte, bool) {
	if f.pos+n > len(f.data) {
		return nil, false
	}
	b := f.data[f.pos : f.pos+n]
	f.pos += n
	return b, true
}

// startupParams splits a StartupMessage's trailing key/value list
// (NUL-terminated strings, pairwise, ending in a final NUL) into a map.
func startupParams(data []byte) map[string]string {
	fr := &fieldReader{data: data}
	out := map[string]string{}
	for {
		k, ok := fr.cstring()
		if !ok || k == "" {
			return out
		}
		v, ok := fr.cstring()
		if !ok {
			return out
		}
		out[k] = v
	}
}
