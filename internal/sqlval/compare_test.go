package sqlval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareNumericCrossKind(t *testing.T) {
	assert.Less(t, Compare(Integer(1), Float(2.0)), 0)
	assert.Equal(t, 0, Compare(BigInt(5), Integer(5)))
}

func TestCompareStrings(t *testing.T) {
	assert.Less(t, Compare(Text("a"), Text("b")), 0)
}

func TestEquivalentNullHandling(t *testing.T) {
	assert.True(t, Equivalent(Null(), Null()), "Null should be Equivalent to Null, unlike SQL's three-valued =")
	assert.False(t, Equivalent(Null(), Integer(0)), "Null should never be Equivalent to a non-null value")
	assert.True(t, Equivalent(Integer(3), BigInt(3)), "numeric kinds should be Equivalent across Integer/BigInt")
}

func TestEquivalentRow(t *testing.T) {
	a := []Value{Integer(1), Text("x")}
	b := []Value{Integer(1), Text("x")}
	c := []Value{Integer(1), Text("y")}
	assert.True(t, EquivalentRow(a, b), "identical rows should be EquivalentRow")
	assert.False(t, EquivalentRow(a, c), "rows differing in one column should not be EquivalentRow")
	assert.False(t, EquivalentRow(a, []Value{Integer(1)}), "rows of different length should not be EquivalentRow")
}
