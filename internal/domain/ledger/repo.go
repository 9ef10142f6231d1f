package ledger

import (
	"context"
	"errors"
	"time"

	"stockbook/internal/core/id"
)

// ErrDuplicateClientTx is returned by InsertMove when the unique constraint
// on client_tx_id fires. The gateway re-reads the winning move and either
// replays its result or reports a conflict.
var ErrDuplicateClientTx = errors.New("duplicate client transaction id")

// Repository defines persistence for the append-only move ledger.
// Moves are inserted once and never updated or deleted.
type Repository interface {
	// InsertMove appends one move. Returns ErrDuplicateClientTx (possibly
	// wrapped) when the move's client transaction id is already recorded.
	InsertMove(ctx context.Context, m *Move) error

	// FindByClientTxID returns the move recorded under a client transaction
	// id, or a NotFound error.
	FindByClientTxID(ctx context.Context, clientTxID string) (*Move, error)

	// ListByItem returns the item's moves in commit order
	// (created_at, ties broken by move id).
	ListByItem(ctx context.Context, itemID id.ID, filter MoveFilter) ([]Move, error)

	// LocationBalances folds signed deltas per location for an item.
	// Locations that net to zero are included.
	LocationBalances(ctx context.Context, itemID id.ID) ([]LocationBalance, error)

	// AllLocations returns distinct locations observed across all moves.
	AllLocations(ctx context.Context) ([]string, error)

	// ItemIDsWithMoves returns distinct item ids present in the ledger,
	// for reconciliation sweeps.
	ItemIDsWithMoves(ctx context.Context) ([]id.ID, error)

	// ExpireClientTransactions clears idempotency claims older than cutoff.
	// The moves themselves are untouched.
	ExpireClientTransactions(ctx context.Context, cutoff time.Time) (int64, error)
}

// MoveFilter narrows move history queries. A negative Limit means no limit
// (used by the replay path, which must see the full history).
type MoveFilter struct {
	Type     *MoveType
	Location *string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
