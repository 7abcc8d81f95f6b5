package codec

import (
	"testing"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/pgwire/oid"
	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOidForKnownKinds(t *testing.T) {
	cases := []struct {
		t    sqlval.SqlType
		want oid.Oid
	}{
		{sqlval.TypeInteger, oid.T_int4},
		{sqlval.TypeBigInt, oid.T_int8},
		{sqlval.TypeText, oid.T_text},
		{sqlval.TypeBoolean, oid.T_bool},
		{sqlval.TypeUuid, oid.T_uuid},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, OidFor(c.t), "OidFor(%v)", c.t.Kind)
	}
}

func TestEncodeTextNullIsNilBytes(t *testing.T) {
	assert.Nil(t, EncodeText(sqlval.Null()))
}

func TestEncodeTextBoolean(t *testing.T) {
	assert.Equal(t, "t", string(EncodeText(sqlval.Boolean(true))))
	assert.Equal(t, "f", string(EncodeText(sqlval.Boolean(false))))
}

func TestDecodeTextRoundTrip(t *testing.T) {
	v, err := DecodeText(sqlval.KInteger, []byte("42"))
	require.NoError(t, err)
	assert.EqualValues(t, 42, v.AsInt())

	v, err = DecodeText(sqlval.KText, nil)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = DecodeText(sqlval.KInteger, []byte("not-a-number"))
	assert.Error(t, err)
}

func TestDescribeAndEncodeRow(t *testing.T) {
	cols := []catalog.Column{
		{Name: "id", Type: sqlval.TypeInteger},
		{Name: "name", Type: sqlval.TypeText},
	}
	fields := Describe(cols)
	require.Len(t, fields, 2)
	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, oid.T_int4, fields[0].DataTypeOID)

	row := catalog.Row{sqlval.Integer(7), sqlval.Null()}
	enc := EncodeRow(row, nil)
	assert.Equal(t, "7", string(enc[0]))
	assert.Nil(t, enc[1], "NULL should encode as nil")
}

func TestResolveFormatsFallsBackToTextForUnsupportedKinds(t *testing.T) {
	cols := []catalog.Column{
		{Name: "id", Type: sqlval.TypeInteger},
		{Name: "name", Type: sqlval.TypeText},
	}
	formats := ResolveFormats(cols, []int16{1, 1})
	assert.EqualValues(t, 1, formats[0], "integer supports binary")
	assert.EqualValues(t, 0, formats[1], "text falls back to the format EncodeRow can actually produce")
}

func TestEncodeRowHonorsBinaryFormat(t *testing.T) {
	cols := []catalog.Column{{Name: "id", Type: sqlval.TypeInteger}}
	formats := ResolveFormats(cols, []int16{1})
	row := catalog.Row{sqlval.Integer(7)}
	enc := EncodeRow(row, formats)
	require.Len(t, enc[0], 4, "binary int4 is 4 bytes, not the text digit")
}
