package costing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockbook/internal/core/types"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func money(s string) types.Money { return types.MustMoney(s) }

func TestReceive(t *testing.T) {
	tests := []struct {
		name     string
		start    State
		qty      types.Quantity
		cost     types.Money
		wantQty  types.Quantity
		wantCost string
	}{
		{
			name:     "into empty stock adopts incoming cost",
			start:    Zero(),
			qty:      qty(10),
			cost:     money("5"),
			wantQty:  qty(10),
			wantCost: "5",
		},
		{
			name:     "blends with existing stock",
			start:    State{Quantity: qty(10), AverageCost: money("10")},
			qty:      qty(10),
			cost:     money("20"),
			wantQty:  qty(20),
			wantCost: "15",
		},
		{
			name:     "doubles quantity and averages cost",
			start:    State{Quantity: qty(10), AverageCost: money("100")},
			qty:      qty(10),
			cost:     money("200"),
			wantQty:  qty(20),
			wantCost: "150",
		},
		{
			name:     "uneven blend keeps full precision",
			start:    State{Quantity: qty(3), AverageCost: money("7")},
			qty:      qty(1),
			cost:     money("10"),
			wantQty:  qty(4),
			wantCost: "7.75",
		},
		{
			name:     "receive onto zero quantity with stale cost resets cost",
			start:    State{Quantity: qty(0), AverageCost: money("99")},
			qty:      qty(5),
			cost:     money("12"),
			wantQty:  qty(5),
			wantCost: "12",
		},
		{
			name:     "zero cost receive dilutes average",
			start:    State{Quantity: qty(10), AverageCost: money("10")},
			qty:      qty(10),
			cost:     money("0"),
			wantQty:  qty(20),
			wantCost: "5",
		},
		{
			name:     "negative start uses literal arithmetic",
			start:    State{Quantity: qty(-5), AverageCost: money("10")},
			qty:      qty(10),
			cost:     money("16"),
			wantQty:  qty(5),
			wantCost: "22",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Receive(tt.start, tt.qty, tt.cost)
			assert.Equal(t, tt.wantQty, got.Quantity)
			assert.True(t, got.AverageCost.Equal(money(tt.wantCost)),
				"average cost: want %s, got %s", tt.wantCost, got.AverageCost)
		})
	}
}

func TestReceiveNetsToZeroQuantity(t *testing.T) {
	// Receiving exactly the negative balance lands on Q1 == 0, where the
	// division is undefined; the incoming cost becomes the new basis.
	start := State{Quantity: qty(-10), AverageCost: money("10")}
	got := Receive(start, qty(10), money("20"))

	assert.Equal(t, qty(0), got.Quantity)
	assert.True(t, got.AverageCost.Equal(money("20")))
}

func TestShiftNeverTouchesCost(t *testing.T) {
	start := State{Quantity: qty(10), AverageCost: money("7.25")}

	issued := Shift(start, qty(-4))
	assert.Equal(t, qty(6), issued.Quantity)
	assert.True(t, issued.AverageCost.Equal(money("7.25")))

	returned := Shift(issued, qty(3))
	assert.Equal(t, qty(9), returned.Quantity)
	assert.True(t, returned.AverageCost.Equal(money("7.25")))

	oversold := Shift(returned, qty(-20))
	assert.Equal(t, qty(-11), oversold.Quantity)
	assert.True(t, oversold.AverageCost.Equal(money("7.25")))
}

func TestReceiveIssueRoundTrip(t *testing.T) {
	// Issue then an equal return must restore the exact starting state.
	start := State{Quantity: qty(12), AverageCost: money("3.3333")}

	after := Shift(Shift(start, qty(-5)), qty(5))
	assert.Equal(t, start.Quantity, after.Quantity)
	assert.True(t, start.AverageCost.Equal(after.AverageCost))
}

func TestReceiveSequenceMatchesFold(t *testing.T) {
	// Incremental application and a replay over the same moves agree.
	state := Zero()
	state = Receive(state, qty(10), money("10"))
	state = Shift(state, qty(-3))
	state = Receive(state, qty(7), money("24"))
	state = Shift(state, qty(-2))

	replay := Zero()
	replay = Receive(replay, qty(10), money("10"))
	replay = Shift(replay, qty(-3))
	replay = Receive(replay, qty(7), money("24"))
	replay = Shift(replay, qty(-2))

	assert.Equal(t, state.Quantity, replay.Quantity)
	assert.True(t, state.AverageCost.Equal(replay.AverageCost))
	assert.Equal(t, qty(12), state.Quantity)
	// (7*10 + 7*24) / 14 = 17
	assert.True(t, state.AverageCost.Equal(money("17")))
}
