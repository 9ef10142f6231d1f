package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockbook/internal/core/types"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func money(s string) types.Money { return types.MustMoney(s) }

func TestCeilCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1"},
		{"1.01", "2"},
		{"1.99", "2"},
		{"130.00001", "131"},
		{"-1.5", "-1"},
	}

	for _, tt := range tests {
		got := CeilCurrency(money(tt.in))
		assert.True(t, got.Equal(money(tt.want)), "ceil(%s): want %s, got %s", tt.in, tt.want, got)
	}
}

func TestPriceFromCost(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		gst       string
		margin    string
		want      string
	}{
		// ceil(100 * 1.18) = 118; ceil(118 * 1.10) = ceil(129.8) = 130
		{"standard gst and margin", "100", "18", "10", "130"},
		{"zero percentages pass through whole amounts", "100", "0", "0", "100"},
		{"zero percentages still ceil fractional cost", "99.10", "0", "0", "100"},
		// ceil(10.50*1.05) = ceil(11.025) = 12; ceil(12*1.10) = ceil(13.2) = 14
		{"intermediate ceil feeds margin step", "10.50", "5", "10", "14"},
		{"zero cost", "0", "18", "10", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PriceFromCost(money(tt.base), money(tt.gst), money(tt.margin))
			assert.True(t, got.Equal(money(tt.want)), "want %s, got %s", tt.want, got)
		})
	}
}

func TestPriceFromCostOrderMatters(t *testing.T) {
	// Reassociating the two ceiling steps produces a different price; the
	// fixed order is part of the contract.
	base, gst, margin := money("10.50"), money("5"), money("10")

	fixed := PriceFromCost(base, gst, margin)
	reassociated := CeilCurrency(base.Mul(onePlusPct(gst)).Mul(onePlusPct(margin)))

	assert.True(t, fixed.Equal(money("14")))
	assert.True(t, reassociated.Equal(money("13")))
}

func TestLineFigures(t *testing.T) {
	// qty 3 at 10.40: subtotal ceil(31.2) = 32
	assert.True(t, LineSubtotal(qty(3), money("10.40")).Equal(money("32")))

	// tax ceil(31.2 * 0.18) = ceil(5.616) = 6
	assert.True(t, LineTax(qty(3), money("10.40"), money("18")).Equal(money("6")))

	// cost ceil(3 * 7.33) = ceil(21.99) = 22
	assert.True(t, LineCost(qty(3), money("7.33")).Equal(money("22")))
}

func TestLineMargin(t *testing.T) {
	// per-unit ceil(10.40) - ceil(7.33) = 11 - 8 = 3; ceil(3*3) = 9
	assert.True(t, LineMargin(qty(3), money("10.40"), money("7.33")).Equal(money("9")))

	// Cost above price clamps to zero rather than going negative.
	assert.True(t, LineMargin(qty(5), money("8"), money("12")).Equal(money("0")))

	// Fractional quantity still ceils the line figure.
	assert.True(t, LineMargin(qty(2.5), money("10"), money("6")).Equal(money("10")))
}

func TestPerLineCeilingIsNotSumThenCeil(t *testing.T) {
	// Three lines of 10.10: per-line ceiling gives 11+11+11 = 33,
	// sum-then-ceil would give ceil(30.3) = 31.
	total := types.Zero()
	for i := 0; i < 3; i++ {
		total = total.Add(LineSubtotal(qty(1), money("10.10")))
	}
	assert.True(t, total.Equal(money("33")))
}
