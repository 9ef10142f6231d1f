package item

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"stockbook/internal/core/types"
)

func TestValidate(t *testing.T) {
	ctx := context.Background()

	ok := New("PEN-01", "Ball Pen", "pcs")
	assert.NoError(t, ok.Validate(ctx))

	noSKU := New("  ", "Ball Pen", "pcs")
	assert.Error(t, noSKU.Validate(ctx))

	noName := New("PEN-01", "", "pcs")
	assert.Error(t, noName.Validate(ctx))

	badThreshold := New("PEN-01", "Ball Pen", "pcs")
	badThreshold.LowStockThreshold = types.NewQuantityFromFloat64(-1)
	assert.Error(t, badThreshold.Validate(ctx))
}

func TestNormalizedSKU(t *testing.T) {
	it := New(" Pen-01 ", "Ball Pen", "pcs")
	assert.Equal(t, "pen-01", it.NormalizedSKU())
}

func TestLowStock(t *testing.T) {
	it := New("PEN-01", "Ball Pen", "pcs")

	// Zero threshold never alerts, even at zero quantity.
	assert.False(t, it.LowStock())

	it.LowStockThreshold = types.NewQuantityFromFloat64(5)
	it.QuantityOnHand = types.NewQuantityFromFloat64(5)
	assert.True(t, it.LowStock(), "at the threshold counts as low")

	it.QuantityOnHand = types.NewQuantityFromFloat64(5.0001)
	assert.False(t, it.LowStock())

	it.QuantityOnHand = types.NewQuantityFromFloat64(-2)
	assert.True(t, it.LowStock())
}
