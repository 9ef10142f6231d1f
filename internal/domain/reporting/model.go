// Package reporting projects invoice-time cost and margin figures from
// frozen line snapshots. Historical reports reflect cost at time of sale,
// never current cost.
package reporting

import (
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// DocumentKind distinguishes sales from returns. Every aggregate figure of a
// return document is the negation of the same computation on a sale.
type DocumentKind string

const (
	DocumentSale   DocumentKind = "sale"
	DocumentReturn DocumentKind = "return"
)

// ParseDocumentKind validates a document kind string.
func ParseDocumentKind(s string) (DocumentKind, error) {
	switch DocumentKind(s) {
	case DocumentSale, DocumentReturn:
		return DocumentKind(s), nil
	default:
		return "", apperror.NewValidation("document kind must be sale or return").
			WithDetail("kind", s)
	}
}

// Sign returns +1 for sales, -1 for returns.
func (k DocumentKind) Sign() int64 {
	if k == DocumentReturn {
		return -1
	}
	return 1
}

// LineSnapshot is a frozen reporting record created once at invoice time.
// UnitPrice, TaxRate and BaseCostAtSale are copied at save time and never
// recalculated afterward.
type LineSnapshot struct {
	ID           id.ID        `db:"id" json:"id"`
	DocumentNo   string       `db:"document_no" json:"documentNo"`
	DocumentKind DocumentKind `db:"document_kind" json:"documentKind"`
	LineNo       int          `db:"line_no" json:"lineNo"`

	ItemID    id.ID          `db:"item_id" json:"itemId"`
	Qty       types.Quantity `db:"qty" json:"qty"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	TaxRate   types.Money    `db:"tax_rate" json:"taxRate"`

	// BaseCostAtSale is the item's average cost at the moment the line was
	// saved. The whole point of the snapshot: never recomputed.
	BaseCostAtSale types.Money `db:"base_cost_at_sale" json:"baseCostAtSale"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// DocumentTotals are the per-document aggregates, line-ceiling-rounded and
// sign-flipped once at the document level for returns.
type DocumentTotals struct {
	DocumentNo   string       `json:"documentNo"`
	DocumentKind DocumentKind `json:"documentKind"`
	Lines        int          `json:"lines"`

	Subtotal     types.Money `json:"subtotal"`
	Tax          types.Money `json:"tax"`
	OriginalCost types.Money `json:"originalCost"`
	Margin       types.Money `json:"margin"`
}
