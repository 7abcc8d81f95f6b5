package docloader

import (
	"context"
	"testing"

	"github.com/memsqld/memsqld/internal/sqlval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertValueNull(t *testing.T) {
	v, err := convertValue(context.Background(), "col", nil, sqlval.TypeInteger)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestConvertValueInteger(t *testing.T) {
	v, err := convertValue(context.Background(), "col", 42, sqlval.TypeInteger)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v.AsInt())
}

func TestConvertValueBoolean(t *testing.T) {
	v, err := convertValue(context.Background(), "col", true, sqlval.TypeBoolean)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestConvertValueText(t *testing.T) {
	v, err := convertValue(context.Background(), "col", "hello", sqlval.TypeText)
	require.NoError(t, err)
	assert.Equal(t, "hello", v.AsText())
}

func TestConvertValueDate(t *testing.T) {
	v, err := convertValue(context.Background(), "col", "2024-03-15", sqlval.TypeDate)
	require.NoError(t, err)
	d := v.AsDate()
	assert.Equal(t, 2024, d.Year)
	assert.Equal(t, 3, int(d.Month))
	assert.Equal(t, 15, d.Day)
}

func TestConvertValueTimestamp(t *testing.T) {
	v, err := convertValue(context.Background(), "col", "2024-03-15 10:30:00", sqlval.TypeTimestamp)
	require.NoError(t, err)
	ts := v.AsTimestamp()
	assert.Equal(t, 2024, ts.Date.Year)
	assert.Equal(t, 10, ts.Time.Hour)
	assert.Equal(t, 30, ts.Time.Minute)
}

func TestConvertValueUuid(t *testing.T) {
	const id = "123e4567-e89b-12d3-a456-426614174000"
	v, err := convertValue(context.Background(), "col", id, sqlval.TypeUuid)
	require.NoError(t, err)
	assert.Equal(t, id, v.AsUuid().String())
}

func TestConvertValueTypeMismatch(t *testing.T) {
	_, err := convertValue(context.Background(), "col", "not a bool", sqlval.TypeBoolean)
	assert.Error(t, err, "expected a type error converting a string into a boolean column")
}

func TestConvertValueDecimalFromNumber(t *testing.T) {
	v, err := convertValue(context.Background(), "col", 3.5, sqlval.DecimalType(10, 2))
	require.NoError(t, err)
	assert.Equal(t, 3.5, v.AsFloat())
}
