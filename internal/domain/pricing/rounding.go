// Package pricing provides the currency rounding policy and price-from-cost
// derivation shared by the engine and its invoicing/estimate collaborators.
// Screens must use these functions so displayed totals match engine-computed
// totals bit-for-bit.
package pricing

import (
	"github.com/shopspring/decimal"

	"stockbook/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// CeilCurrency rounds a currency amount up to the next whole unit
// ("rupee-ceiling"). Applied per line before summation; summing first and
// ceiling once is not equivalent and must never be substituted.
func CeilCurrency(amount types.Money) types.Money {
	return amount.Ceil()
}

// PriceFromCost derives a selling price from a base cost:
//
//	price = ceil(ceil(base * (1 + gst/100)) * (1 + margin/100))
//
// GST is ceiling-rounded first, then margin is applied to that rounded,
// GST-inclusive figure and ceiling-rounded again. The order is fixed;
// reassociating the two steps changes the result.
func PriceFromCost(baseCost, gstPct, marginPct types.Money) types.Money {
	withGST := CeilCurrency(baseCost.Mul(onePlusPct(gstPct)))
	return CeilCurrency(withGST.Mul(onePlusPct(marginPct)))
}

// LineSubtotal is the counterparty-facing amount of one line.
func LineSubtotal(qty types.Quantity, unitPrice types.Money) types.Money {
	return CeilCurrency(qty.Decimal().Mul(unitPrice))
}

// LineTax is the ceiling-rounded tax for one line.
func LineTax(qty types.Quantity, unitPrice, taxPct types.Money) types.Money {
	return CeilCurrency(qty.Decimal().Mul(unitPrice).Mul(taxPct).Div(hundred))
}

// LineCost is the ceiling-rounded cost basis of one line, priced at the
// average cost frozen when the line was sold.
func LineCost(qty types.Quantity, baseCostAtSale types.Money) types.Money {
	return CeilCurrency(qty.Decimal().Mul(baseCostAtSale))
}

// LineMargin is the per-line margin for reporting:
//
//	margin = ceil(qty * max(0, ceil(unit_price) - ceil(base_cost_at_sale)))
//
// Never negative, even when a historical cost exceeds the sold price.
func LineMargin(qty types.Quantity, unitPrice, baseCostAtSale types.Money) types.Money {
	perUnit := CeilCurrency(unitPrice).Sub(CeilCurrency(baseCostAtSale))
	if perUnit.IsNegative() {
		perUnit = decimal.Zero
	}
	return CeilCurrency(qty.Decimal().Mul(perUnit))
}

func onePlusPct(pct types.Money) types.Money {
	return decimal.NewFromInt(1).Add(pct.Div(hundred))
}
