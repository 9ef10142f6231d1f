package dto

import (
	"time"

	"stockbook/internal/core/types"
	"stockbook/internal/domain/reporting"
)

// LineRequest is one invoice line to snapshot.
type LineRequest struct {
	ItemID    string         `json:"itemId" binding:"required"`
	Qty       types.Quantity `json:"qty"`
	UnitPrice types.Money    `json:"unitPrice"`
	TaxRate   types.Money    `json:"taxRate"`
}

// IngestLinesRequest freezes a document's reporting snapshots.
type IngestLinesRequest struct {
	Kind  string        `json:"kind" binding:"required"`
	Lines []LineRequest `json:"lines" binding:"required"`
}

// LineSnapshotResponse is one frozen reporting line.
type LineSnapshotResponse struct {
	ID             string         `json:"id"`
	DocumentNo     string         `json:"documentNo"`
	DocumentKind   string         `json:"documentKind"`
	LineNo         int            `json:"lineNo"`
	ItemID         string         `json:"itemId"`
	Qty            types.Quantity `json:"qty"`
	UnitPrice      types.Money    `json:"unitPrice"`
	TaxRate        types.Money    `json:"taxRate"`
	BaseCostAtSale types.Money    `json:"baseCostAtSale"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// FromLineSnapshot creates LineSnapshotResponse from reporting.LineSnapshot.
func FromLineSnapshot(l reporting.LineSnapshot) LineSnapshotResponse {
	return LineSnapshotResponse{
		ID:             l.ID.String(),
		DocumentNo:     l.DocumentNo,
		DocumentKind:   string(l.DocumentKind),
		LineNo:         l.LineNo,
		ItemID:         l.ItemID.String(),
		Qty:            l.Qty,
		UnitPrice:      l.UnitPrice,
		TaxRate:        l.TaxRate,
		BaseCostAtSale: l.BaseCostAtSale,
		CreatedAt:      l.CreatedAt,
	}
}

// DocumentTotalsResponse is the per-document aggregate report.
type DocumentTotalsResponse struct {
	DocumentNo   string                 `json:"documentNo"`
	DocumentKind string                 `json:"documentKind"`
	Lines        []LineSnapshotResponse `json:"lines"`
	Subtotal     types.Money            `json:"subtotal"`
	Tax          types.Money            `json:"tax"`
	OriginalCost types.Money            `json:"originalCost"`
	Margin       types.Money            `json:"margin"`
}

// PriceFromCostResponse is the suggested retail price computation.
type PriceFromCostResponse struct {
	BaseCost  types.Money `json:"baseCost"`
	GstPct    types.Money `json:"gstPct"`
	MarginPct types.Money `json:"marginPct"`
	Price     types.Money `json:"price"`
}
