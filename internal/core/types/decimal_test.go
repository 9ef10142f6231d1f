package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityString(t *testing.T) {
	tests := []struct {
		in   Quantity
		want string
	}{
		{0, "0.0000"},
		{NewQuantityFromFloat64(2.5), "2.5000"},
		{NewQuantityFromFloat64(-1.25), "-1.2500"},
		{NewQuantityFromInt64Scaled(1), "0.0001"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.String())
	}
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Quantity
	}{
		{"number", "2.5", NewQuantityFromFloat64(2.5)},
		{"string", `"2.5"`, NewQuantityFromFloat64(2.5)},
		{"negative", "-1.25", NewQuantityFromFloat64(-1.25)},
		{"integer", "40", NewQuantityFromFloat64(40)},
		{"null", "null", 0},
		{"extra digits truncated", "1.23456", NewQuantityFromInt64Scaled(12345)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quantity
			require.NoError(t, json.Unmarshal([]byte(tt.in), &q))
			assert.Equal(t, tt.want, q)
		})
	}

	data, err := json.Marshal(NewQuantityFromFloat64(2.5))
	require.NoError(t, err)
	assert.Equal(t, "2.5000", string(data))
}

func TestQuantityDecimalIsExact(t *testing.T) {
	q := NewQuantityFromFloat64(0.1)
	assert.Equal(t, "0.1", q.Decimal().String())

	// math on the scaled integer never drifts the way floats do
	sum := Quantity(0)
	for i := 0; i < 10; i++ {
		sum += q
	}
	assert.Equal(t, NewQuantityFromFloat64(1), sum)
}

func TestNewQuantityFromDecimal(t *testing.T) {
	d := MustMoney("3.14159")
	assert.Equal(t, NewQuantityFromInt64Scaled(31416), NewQuantityFromDecimal(d))
}
