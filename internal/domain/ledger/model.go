// Package ledger provides the append-only stock ledger: move records, the
// mutation gateway that creates them, and the aggregated read projections.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// MoveType is the fixed move vocabulary. Any other string is rejected.
type MoveType string

const (
	MoveReceive MoveType = "receive"
	MoveIssue   MoveType = "issue"
	MoveReturn  MoveType = "return"
	MoveAdjust  MoveType = "adjust"
)

// ParseMoveType validates a move type string.
func ParseMoveType(s string) (MoveType, error) {
	switch MoveType(s) {
	case MoveReceive, MoveIssue, MoveReturn, MoveAdjust:
		return MoveType(s), nil
	default:
		return "", apperror.NewInvalidMoveType(s)
	}
}

// LocationUnassigned is the sentinel for moves recorded without a location.
const LocationUnassigned = "(unassigned)"

// Move is one immutable inventory-changing fact. Moves are never updated or
// deleted once committed.
type Move struct {
	ID     id.ID    `db:"id" json:"id"`
	ItemID id.ID    `db:"item_id" json:"itemId"`
	Type   MoveType `db:"move_type" json:"moveType"`

	// Qty is the magnitude entered by the caller. For adjust it is the
	// signed delta itself.
	Qty types.Quantity `db:"qty" json:"qty"`

	// SignedDelta is the quantity change this move contributes to on-hand
	// stock: receive/return = +Qty, issue = -Qty, adjust = Qty as given.
	SignedDelta types.Quantity `db:"signed_delta" json:"signedDelta"`

	// UnitCost is the received cost for receive moves. For every other type
	// the item's average cost at the time of the move is stamped for audit.
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	Location  string `db:"location" json:"location"`
	Reference string `db:"reference" json:"reference,omitempty"`
	Reason    string `db:"reason" json:"reason,omitempty"`

	// ClientTxID is the caller's idempotency key, unique when present.
	ClientTxID *string `db:"client_tx_id" json:"clientTransactionId,omitempty"`

	// RequestHash fingerprints the append parameters; a repeated
	// ClientTxID with a different hash is a conflict, not a replay.
	RequestHash string `db:"request_hash" json:"-"`

	// QtyAfter and AvgCostAfter freeze the item aggregate immediately after
	// this move, for audit and exact idempotent replay.
	QtyAfter     types.Quantity `db:"qty_after" json:"qtyAfter"`
	AvgCostAfter types.Money    `db:"avg_cost_after" json:"avgCostAfter"`

	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// AppendInput carries the parameters of one append_move call.
type AppendInput struct {
	ItemID   id.ID
	Type     MoveType
	Qty      types.Quantity
	UnitCost types.Money

	Location  string
	Reference string
	Reason    string

	// ClientTxID should be derived deterministically from the business
	// operation (e.g. "{invoice_no}-{line_index}-{item_id}"). Required in
	// spirit for issue/return flows, optional for back-office receive/adjust.
	ClientTxID string
}

// Validate checks the move-type-specific preconditions.
func (in *AppendInput) Validate() error {
	if id.IsNil(in.ItemID) {
		return apperror.NewValidation("item id is required").WithDetail("field", "itemId")
	}

	switch in.Type {
	case MoveReceive:
		if !in.Qty.IsPositive() {
			return apperror.NewInvalidQuantity("receive quantity must be positive").
				WithDetail("qty", in.Qty.String())
		}
		if in.UnitCost.IsNegative() {
			return apperror.NewInvalidCost("receive unit cost must not be negative").
				WithDetail("unit_cost", in.UnitCost.String())
		}
	case MoveIssue:
		if !in.Qty.IsPositive() {
			return apperror.NewInvalidQuantity("issue quantity must be positive").
				WithDetail("qty", in.Qty.String())
		}
	case MoveReturn:
		if !in.Qty.IsPositive() {
			return apperror.NewInvalidQuantity("return quantity must be positive").
				WithDetail("qty", in.Qty.String())
		}
	case MoveAdjust:
		if in.Qty.IsZero() {
			return apperror.NewNoOpAdjustment()
		}
	default:
		return apperror.NewInvalidMoveType(string(in.Type))
	}

	return nil
}

// SignedDelta returns the quantity change this input contributes.
func (in *AppendInput) SignedDelta() types.Quantity {
	switch in.Type {
	case MoveIssue:
		return in.Qty.Neg()
	default:
		// receive, return: +Qty; adjust: already signed.
		return in.Qty
	}
}

// NormalizedLocation returns the location or the unassigned sentinel.
func (in *AppendInput) NormalizedLocation() string {
	if in.Location == "" {
		return LocationUnassigned
	}
	return in.Location
}

// Hash fingerprints the business parameters of the call. Two calls with the
// same ClientTxID must produce the same hash to be treated as a retry.
func (in *AppendInput) Hash() string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		in.ItemID, in.Type, in.Qty.String(), in.UnitCost.String(),
		in.NormalizedLocation(), in.Reference, in.Reason)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// MoveResult is returned from the mutation gateway. Retries of an applied
// operation receive the originally recorded result with Replayed set.
type MoveResult struct {
	Move         Move           `json:"move"`
	QtyAfter     types.Quantity `json:"qtyAfter"`
	AvgCostAfter types.Money    `json:"avgCostAfter"`
	Replayed     bool           `json:"replayed"`
}

// ItemState is the current_state projection.
type ItemState struct {
	ItemID          id.ID          `json:"itemId"`
	QuantityOnHand  types.Quantity `json:"quantityOnHand"`
	AverageUnitCost types.Money    `json:"averageUnitCost"`
}

// LocationBalance is one entry of the location_balances projection.
// Net-zero locations stay in the projection; hiding them is a presentation
// decision, not a ledger decision.
type LocationBalance struct {
	Location string         `db:"location" json:"location"`
	Qty      types.Quantity `db:"qty" json:"qty"`
}

// resultFromMove rebuilds the recorded result of a previously applied move.
func resultFromMove(m Move, replayed bool) *MoveResult {
	return &MoveResult{
		Move:         m,
		QtyAfter:     m.QtyAfter,
		AvgCostAfter: m.AvgCostAfter,
		Replayed:     replayed,
	}
}

// zeroMoney exists so non-receive moves on a fresh item stamp a defined cost.
var zeroMoney = decimal.Zero
