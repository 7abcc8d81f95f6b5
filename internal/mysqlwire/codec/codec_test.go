package codec

import (
	"testing"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/stretchr/testify/assert"
)

func TestTypeForKnownKinds(t *testing.T) {
	cases := []struct {
		t    sqlval.SqlType
		want ColumnType
	}{
		{sqlval.TypeInteger, TypeLong},
		{sqlval.TypeBigInt, TypeLongLong},
		{sqlval.TypeText, TypeVarString},
		{sqlval.TypeBoolean, TypeTiny},
		{sqlval.TypeJson, TypeJSON},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, TypeFor(c.t), "TypeFor(%v)", c.t.Kind)
	}
}

func TestEncodeTextNull(t *testing.T) {
	text, isNull := EncodeText(sqlval.Null())
	assert.True(t, isNull)
	assert.Empty(t, text)
}

func TestEncodeTextBoolean(t *testing.T) {
	text, isNull := EncodeText(sqlval.Boolean(true))
	assert.False(t, isNull)
	assert.Equal(t, "1", text)

	text, isNull = EncodeText(sqlval.Boolean(false))
	assert.False(t, isNull)
	assert.Equal(t, "0", text)
}

func TestDescribeChoosesBinaryCharsetForNumerics(t *testing.T) {
	cols := []catalog.Column{
		{Name: "n", Type: sqlval.TypeInteger},
		{Name: "s", Type: sqlval.TypeText},
	}
	info := Describe(cols)
	assert.EqualValues(t, 0x3f, info[0].Charset)
	assert.EqualValues(t, MysqlCharsetUTF8, info[1].Charset)
}

func TestEncodeRowParallelSlices(t *testing.T) {
	row := catalog.Row{sqlval.Integer(5), sqlval.Null()}
	texts, nulls := EncodeRow(row)
	assert.Equal(t, "5", texts[0])
	assert.False(t, nulls[0])
	assert.True(t, nulls[1], "EncodeRow()[1] should be marked null")
}
