package sqlval

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNullIsNull(t *testing.T) {
	assert.True(t, Null().IsNull())
	assert.False(t, Integer(0).IsNull())
}

func TestAsIntAcrossNumericKinds(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want int64
	}{
		{"integer", Integer(42), 42},
		{"bigint", BigInt(9000), 9000},
		{"float", Float(3.9), 3},
		{"decimal", Decimal(decimal.NewFromInt(7)), 7},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.v.AsInt(), c.name)
	}
}

func TestCharPadding(t *testing.T) {
	v := Char("ab", 5)
	assert.Equal(t, "ab   ", v.AsText())
	assert.Equal(t, "abcdef", Char("abcdef", 3).AsText(), "Char should not truncate a value longer than n")
}

func TestValueStringFormatting(t *testing.T) {
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "t", Boolean(true).String())
	assert.Equal(t, "f", Boolean(false).String())
	assert.Equal(t, "hi", Text("hi").String())
}

func TestValueTypeInference(t *testing.T) {
	assert.Equal(t, KInteger, Integer(1).Type().Kind)
	assert.Equal(t, KText, Text("x").Type().Kind)
	assert.Equal(t, KChar, Char("x", 3).Type().Kind)
}
