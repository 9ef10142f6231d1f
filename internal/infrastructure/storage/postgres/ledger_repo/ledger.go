// Package ledger_repo provides the PostgreSQL implementation of the stock
// move repository.
package ledger_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
)

const movesTable = "moves"

// Index backing the one-transaction-id-one-move guarantee.
const clientTxConstraint = "moves_client_tx_id_key"

var moveColumns = []string{
	"id", "item_id", "move_type", "qty", "signed_delta", "unit_cost",
	"location", "reference", "reason", "client_tx_id", "request_hash",
	"qty_after", "avg_cost_after", "created_by", "created_at",
}

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ ledger.Repository = (*LedgerRepo)(nil)

func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// InsertMove appends one move row. A unique violation on the client
// transaction index is reported as ledger.ErrDuplicateClientTx so the
// service can replay the recorded result.
func (r *LedgerRepo) InsertMove(ctx context.Context, m *ledger.Move) error {
	q := r.builder.Insert(movesTable).
		Columns(moveColumns...).
		Values(m.ID, m.ItemID, m.Type, m.Qty, m.SignedDelta, m.UnitCost,
			m.Location, m.Reference, m.Reason, m.ClientTxID, m.RequestHash,
			m.QtyAfter, m.AvgCostAfter, m.CreatedBy, m.CreatedAt)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if constraint, ok := postgres.UniqueViolation(err); ok && constraint == clientTxConstraint {
			return fmt.Errorf("%w: %s", ledger.ErrDuplicateClientTx, *m.ClientTxID)
		}
		return postgres.TranslateError(fmt.Errorf("insert move: %w", err))
	}

	return nil
}

// FindByClientTxID retrieves the move recorded under a client transaction id.
func (r *LedgerRepo) FindByClientTxID(ctx context.Context, clientTxID string) (*ledger.Move, error) {
	q := r.builder.Select(moveColumns...).From(movesTable).
		Where(squirrel.Eq{"client_tx_id": clientTxID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m ledger.Move
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("move", clientTxID)
		}
		return nil, postgres.TranslateError(fmt.Errorf("get move by client tx: %w", err))
	}

	return &m, nil
}

// ListByItem returns an item's moves in commit order.
func (r *LedgerRepo) ListByItem(ctx context.Context, itemID id.ID, filter ledger.MoveFilter) ([]ledger.Move, error) {
	q := r.builder.Select(moveColumns...).From(movesTable).
		Where(squirrel.Eq{"item_id": itemID}).
		OrderBy("created_at", "id")

	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"move_type": *filter.Type})
	}
	if filter.Location != nil {
		q = q.Where(squirrel.Eq{"location": *filter.Location})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var moves []ledger.Move
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &moves, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select moves: %w", err))
	}

	return moves, nil
}

// LocationBalances sums signed deltas per location for one item.
func (r *LedgerRepo) LocationBalances(ctx context.Context, itemID id.ID) ([]ledger.LocationBalance, error) {
	q := r.builder.Select("location", "SUM(signed_delta) AS qty").
		From(movesTable).
		Where(squirrel.Eq{"item_id": itemID}).
		GroupBy("location").
		OrderBy("location")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []ledger.LocationBalance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select location balances: %w", err))
	}

	return balances, nil
}

// AllLocations returns every distinct location that appears in the ledger.
func (r *LedgerRepo) AllLocations(ctx context.Context) ([]string, error) {
	var locations []string
	err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &locations,
		`SELECT DISTINCT location FROM moves ORDER BY location`)
	if err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select locations: %w", err))
	}
	return locations, nil
}

// ItemIDsWithMoves returns every item id that has at least one move.
func (r *LedgerRepo) ItemIDsWithMoves(ctx context.Context) ([]id.ID, error) {
	var ids []id.ID
	err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &ids,
		`SELECT DISTINCT item_id FROM moves`)
	if err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select item ids: %w", err))
	}
	return ids, nil
}

// ExpireClientTransactions releases idempotency claims older than the cutoff.
// Move rows themselves are immutable; only the claim column is cleared.
func (r *LedgerRepo) ExpireClientTransactions(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx,
		`UPDATE moves SET client_tx_id = NULL
		 WHERE client_tx_id IS NOT NULL AND created_at < $1`, cutoff)
	if err != nil {
		return 0, postgres.TranslateError(fmt.Errorf("expire client transactions: %w", err))
	}
	return tag.RowsAffected(), nil
}
