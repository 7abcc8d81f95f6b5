package pgwire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, writeMessage(w, 'R', []byte("payload")))
	require.NoError(t, w.Flush())

	r := bufio.NewReader(&buf)
	msgType, body, err := readMessage(r)
	require.NoError(t, err)
	assert.Equal(t, byte('R'), msgType)
	assert.Equal(t, "payload", string(body))
}

func TestStartupParamsParsing(t *testing.T) {
	var data []byte
	data = append(data, "user\x00"...)
	data = append(data, "alice\x00"...)
	data = append(data, "database\x00"...)
	data = append(data, "postgres\x00"...)
	data = append(data, 0)

	params := startupParams(data)
	assert.Equal(t, "alice", params["user"])
	assert.Equal(t, "postgres", params["database"])
}

func TestMessageBufLenencBytesNullMarker(t *testing.T) {
	m := &messageBuf{}
	m.lenencBytes(nil)
	require.Len(t, m.buf, 4)
	fr := &fieldReader{data: m.buf}
	n, ok := fr.int32()
	require.True(t, ok)
	assert.EqualValues(t, -1, n, "lenencBytes(nil) encoded length")
}

func TestFieldReaderCstring(t *testing.T) {
	fr := &fieldReader{data: []byte("hello\x00world\x00")}
	s, ok := fr.cstring()
	require.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok = fr.cstring()
	require.True(t, ok)
	assert.Equal(t, "world", s)
}
