package engine

import (
	"testing"

	"github.com/memsqld/memsqld/internal/catalog"
	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/stretchr/testify/assert"
)

func intRows(vs ...int64) []catalog.Row {
	out := make([]catalog.Row, len(vs))
	for i, v := range vs {
		out[i] = catalog.Row{sqlval.Integer(v)}
	}
	return out
}

func TestExceptRowsPlainDedupesAndSubtracts(t *testing.T) {
	left := intRows(1, 1, 2)
	right := intRows(1)
	got := exceptRows(left, right, false)
	assert.Equal(t, intRows(2), got)
}

func TestExceptAllPreservesMultiplicity(t *testing.T) {
	left := intRows(1, 1, 2)
	right := intRows(1)
	got := exceptRows(left, right, true)
	assert.Equal(t, intRows(1, 2), got)
}

func TestExceptAllConsumesOneRightRowPerDuplicate(t *testing.T) {
	left := intRows(1, 1, 1)
	right := intRows(1, 1)
	got := exceptRows(left, right, true)
	assert.Equal(t, intRows(1), got)
}
