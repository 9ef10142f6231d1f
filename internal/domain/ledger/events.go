package ledger

import (
	"context"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// MoveAppendedEvent is the one-way event stream consumers (second-screen
// displays, sync jobs) receive after each applied move. Published in the
// same transaction as the move via the outbox.
type MoveAppendedEvent struct {
	MoveID       id.ID          `json:"moveId"`
	ItemID       id.ID          `json:"itemId"`
	Type         MoveType       `json:"moveType"`
	SignedDelta  types.Quantity `json:"signedDelta"`
	Location     string         `json:"location"`
	Reference    string         `json:"reference,omitempty"`
	QtyAfter     types.Quantity `json:"qtyAfter"`
	AvgCostAfter types.Money    `json:"avgCostAfter"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// EventPublisher emits ledger events. Implementations must be transactional
// with the move append (the postgres outbox writes within the current tx).
type EventPublisher interface {
	MoveAppended(ctx context.Context, ev MoveAppendedEvent) error
}

// AuditEntry records who changed what through the mutation gateway.
type AuditEntry struct {
	Action   string
	ItemID   id.ID
	MoveID   id.ID
	Operator string
	Changes  any
}

// AuditLog persists audit entries. Implementations may compress large
// change-sets; failures are logged, never fail the mutation.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}
