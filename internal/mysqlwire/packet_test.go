package mysqlwire

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	pw := newPacketWriter(bufio.NewWriter(&buf))
	payload := []byte("hello packet")
	require.NoError(t, pw.writePacket(payload))

	pr := newPacketReader(bufio.NewReader(&buf))
	got, err := pr.readPacket()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPacketSequenceMismatchErrors(t *testing.T) {
	var buf bytes.Buffer
	pw := newPacketWriter(bufio.NewWriter(&buf))
	_ = pw.writePacket([]byte("one"))
	_ = pw.writePacket([]byte("two"))

	pr := newPacketReader(bufio.NewReader(&buf))
	_, err := pr.readPacket()
	require.NoError(t, err)
	// pr.seq is now 1, matching the second packet's seq, so this should
	// still succeed; force a mismatch by resetting the reader's own seq.
	pr.seq = 5
	_, err = pr.readPacket()
	assert.Error(t, err, "readPacket with a mismatched sequence number should error")
}

func TestLenencIntRoundTrip(t *testing.T) {
	cases := []uint64{0, 250, 251, 1<<16 - 1, 1 << 16, 1<<24 - 1, 1 << 24, 1 << 40}
	for _, v := range cases {
		buf := putLenencInt(nil, v)
		got, pos, ok := readLenencInt(buf, 0)
		require.True(t, ok, v)
		assert.Equal(t, v, got)
		assert.Equal(t, len(buf), pos)
	}
}

func TestLenencStrAndNulStr(t *testing.T) {
	buf := putLenencStr(nil, "abc")
	n, pos, ok := readLenencInt(buf, 0)
	require.True(t, ok)
	require.EqualValues(t, 3, n)
	assert.Equal(t, "abc", string(buf[pos:pos+int(n)]))

	nbuf := putNulStr(nil, "xyz")
	s, next, ok := readNulStr(nbuf, 0)
	require.True(t, ok)
	assert.Equal(t, "xyz", s)
	assert.Equal(t, len(nbuf), next)
}

func TestPacketSplitsAtMaxPayloadSize(t *testing.T) {
	var buf bytes.Buffer
	pw := newPacketWriter(bufio.NewWriter(&buf))
	payload := make([]byte, maxPayloadSize+10)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, pw.writePacket(payload))

	pr := newPacketReader(bufio.NewReader(&buf))
	got, err := pr.readPacket()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
