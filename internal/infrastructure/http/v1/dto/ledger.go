package dto

import (
	"time"

	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
)

// AppendMoveRequest submits one stock move to the mutation gateway.
type AppendMoveRequest struct {
	ItemID   string         `json:"itemId" binding:"required"`
	Type     string         `json:"type" binding:"required"`
	Qty      types.Quantity `json:"qty"`
	UnitCost types.Money    `json:"unitCost"`

	Location  string `json:"location"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`

	// ClientTransactionID makes retried submissions safe. Derive it
	// deterministically from the business operation.
	ClientTransactionID string `json:"clientTransactionId"`
}

// MoveResponse is one recorded ledger entry.
type MoveResponse struct {
	ID          string         `json:"id"`
	ItemID      string         `json:"itemId"`
	Type        string         `json:"type"`
	Qty         types.Quantity `json:"qty"`
	SignedDelta types.Quantity `json:"signedDelta"`
	UnitCost    types.Money    `json:"unitCost"`
	Location    string         `json:"location"`
	Reference   string         `json:"reference,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	CreatedBy   string         `json:"createdBy,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// FromMove creates MoveResponse from ledger.Move.
func FromMove(m ledger.Move) MoveResponse {
	return MoveResponse{
		ID:          m.ID.String(),
		ItemID:      m.ItemID.String(),
		Type:        string(m.Type),
		Qty:         m.Qty,
		SignedDelta: m.SignedDelta,
		UnitCost:    m.UnitCost,
		Location:    m.Location,
		Reference:   m.Reference,
		Reason:      m.Reason,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}

// MoveResultResponse is the gateway's reply: the move plus the aggregate
// values it produced. Replayed marks an idempotent retry.
type MoveResultResponse struct {
	Move         MoveResponse   `json:"move"`
	QtyAfter     types.Quantity `json:"qtyAfter"`
	AvgCostAfter types.Money    `json:"avgCostAfter"`
	Replayed     bool           `json:"replayed"`
}

// FromMoveResult creates MoveResultResponse from ledger.MoveResult.
func FromMoveResult(r *ledger.MoveResult) MoveResultResponse {
	return MoveResultResponse{
		Move:         FromMove(r.Move),
		QtyAfter:     r.QtyAfter,
		AvgCostAfter: r.AvgCostAfter,
		Replayed:     r.Replayed,
	}
}

// ItemStateResponse is the current state projection for one item.
type ItemStateResponse struct {
	ItemID          string         `json:"itemId"`
	QuantityOnHand  types.Quantity `json:"quantityOnHand"`
	AverageUnitCost types.Money    `json:"averageUnitCost"`
}

// FromItemState creates ItemStateResponse from ledger.ItemState.
func FromItemState(s ledger.ItemState) ItemStateResponse {
	return ItemStateResponse{
		ItemID:          s.ItemID.String(),
		QuantityOnHand:  s.QuantityOnHand,
		AverageUnitCost: s.AverageUnitCost,
	}
}

// LocationBalanceResponse is one per-location balance entry.
type LocationBalanceResponse struct {
	Location string         `json:"location"`
	Qty      types.Quantity `json:"qty"`
}

// MoveListResponse wraps move history.
type MoveListResponse struct {
	Items      []MoveResponse `json:"items"`
	TotalCount int            `json:"totalCount"`
}

// LowStockResponse reports the low stock flag for one item.
type LowStockResponse struct {
	ItemID   string `json:"itemId"`
	LowStock bool   `json:"lowStock"`
}
