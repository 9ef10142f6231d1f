// Package costing implements the weighted-average costing rules.
//
// Only receipts change the average unit cost. Issues, returns and adjustments
// move quantity at the last known average; the cost basis of what leaves
// stock is never recomputed.
package costing

import (
	"github.com/shopspring/decimal"

	"stockbook/internal/core/types"
)

// State is an item's costed position: on-hand quantity and moving-average
// unit cost.
type State struct {
	Quantity    types.Quantity
	AverageCost types.Money
}

// Zero returns the empty state.
func Zero() State {
	return State{Quantity: 0, AverageCost: decimal.Zero}
}

// Receive applies a receipt of qty units at unitCost and returns the new state.
//
//	Q1 = Q0 + q
//	C1 = Q1 == 0 ? c : (Q0*C0 + q*c) / Q1
//
// A negative Q0 (prior oversell) goes through the same arithmetic; the
// formula is deliberately not special-cased.
func Receive(s State, qty types.Quantity, unitCost types.Money) State {
	q1 := s.Quantity + qty
	if q1 == 0 {
		// Received exactly back to zero: the old basis is fully consumed.
		return State{Quantity: 0, AverageCost: unitCost}
	}

	oldValue := s.Quantity.Decimal().Mul(s.AverageCost)
	newValue := qty.Decimal().Mul(unitCost)
	avg := oldValue.Add(newValue).Div(q1.Decimal())

	return State{Quantity: q1, AverageCost: avg}
}

// Shift applies a quantity-only delta (issue, return, adjust). The average
// cost carries over unchanged.
func Shift(s State, delta types.Quantity) State {
	return State{Quantity: s.Quantity + delta, AverageCost: s.AverageCost}
}
