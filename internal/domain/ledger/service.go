package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalogs/item"
	"stockbook/internal/domain/costing"
	"stockbook/pkg/logger"
)

// Config tunes gateway behavior.
type Config struct {
	// AllowNegativeStock preserves the observed oversell behavior: issues
	// may drive on-hand quantity negative, surfaced as a reporting signal.
	// When false, overselling fails with InsufficientStock.
	AllowNegativeStock bool
}

// Service is the mutation gateway and ledger aggregator. It is the only
// legal way to create a move, and the sole owner of the item aggregate.
type Service struct {
	moves  Repository
	items  item.Repository
	txm    tx.ReadOnlyManager
	events EventPublisher // optional
	audit  AuditLog       // optional
	cfg    Config
}

// NewService creates the ledger service. events and audit may be nil.
func NewService(moves Repository, items item.Repository, txm tx.ReadOnlyManager, events EventPublisher, audit AuditLog, cfg Config) *Service {
	return &Service{
		moves:  moves,
		items:  items,
		txm:    txm,
		events: events,
		audit:  audit,
		cfg:    cfg,
	}
}

// AppendMove validates, costs and appends exactly one move, updating the
// item aggregate in the same transaction. Retried calls carrying the same
// client transaction id and parameters replay the recorded result.
func (s *Service) AppendMove(ctx context.Context, in AppendInput) (*MoveResult, error) {
	if _, err := ParseMoveType(string(in.Type)); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	requestHash := in.Hash()

	var result *MoveResult
	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		// Idempotency: a recorded claim wins before any work happens.
		if in.ClientTxID != "" {
			prior, err := s.moves.FindByClientTxID(ctx, in.ClientTxID)
			if err != nil && !apperror.IsNotFound(err) {
				return fmt.Errorf("lookup client transaction: %w", err)
			}
			if prior != nil {
				replay, rerr := replayOrConflict(prior, in.ClientTxID, requestHash)
				if rerr != nil {
					return rerr
				}
				result = replay
				return nil
			}
		}

		// Row lock serializes concurrent read-modify-write of (Q0, C0).
		it, err := s.items.GetForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}

		state := costing.State{Quantity: it.QuantityOnHand, AverageCost: it.AverageUnitCost}
		next, unitCost, err := s.applyCosting(state, in)
		if err != nil {
			return err
		}

		m := Move{
			ID:           id.New(),
			ItemID:       in.ItemID,
			Type:         in.Type,
			Qty:          in.Qty,
			SignedDelta:  in.SignedDelta(),
			UnitCost:     unitCost,
			Location:     in.NormalizedLocation(),
			Reference:    in.Reference,
			Reason:       in.Reason,
			RequestHash:  requestHash,
			QtyAfter:     next.Quantity,
			AvgCostAfter: next.AverageCost,
			CreatedBy:    appctx.GetOperatorName(ctx),
			CreatedAt:    time.Now().UTC(),
		}
		if in.ClientTxID != "" {
			clientTxID := in.ClientTxID
			m.ClientTxID = &clientTxID
		}

		if err := s.moves.InsertMove(ctx, &m); err != nil {
			return err
		}
		if err := s.items.UpdateAggregate(ctx, in.ItemID, next.Quantity, next.AverageCost); err != nil {
			return fmt.Errorf("update aggregate: %w", err)
		}

		if s.events != nil {
			ev := MoveAppendedEvent{
				MoveID:       m.ID,
				ItemID:       m.ItemID,
				Type:         m.Type,
				SignedDelta:  m.SignedDelta,
				Location:     m.Location,
				Reference:    m.Reference,
				QtyAfter:     m.QtyAfter,
				AvgCostAfter: m.AvgCostAfter,
				CreatedAt:    m.CreatedAt,
			}
			if err := s.events.MoveAppended(ctx, ev); err != nil {
				return fmt.Errorf("publish move event: %w", err)
			}
		}

		if s.audit != nil {
			entry := AuditEntry{
				Action:   "append_move",
				ItemID:   m.ItemID,
				MoveID:   m.ID,
				Operator: m.CreatedBy,
				Changes: map[string]any{
					"move_type":    m.Type,
					"signed_delta": m.SignedDelta,
					"qty_before":   state.Quantity,
					"qty_after":    m.QtyAfter,
					"cost_before":  state.AverageCost,
					"cost_after":   m.AvgCostAfter,
				},
			}
			if err := s.audit.Record(ctx, entry); err != nil {
				logger.Warn(ctx, "audit record failed", "move_id", m.ID, "error", err)
			}
		}

		result = resultFromMove(m, false)
		return nil
	})

	// Lost the insert race on the client transaction id: the winner has
	// committed, so re-read it and replay or conflict.
	if errors.Is(err, ErrDuplicateClientTx) && in.ClientTxID != "" {
		prior, ferr := s.moves.FindByClientTxID(ctx, in.ClientTxID)
		if ferr != nil {
			return nil, fmt.Errorf("re-read client transaction: %w", ferr)
		}
		return replayOrConflict(prior, in.ClientTxID, requestHash)
	}
	if err != nil {
		return nil, err
	}

	if !result.Replayed {
		logger.Info(ctx, "move appended",
			"move_id", result.Move.ID,
			"item_id", result.Move.ItemID,
			"move_type", result.Move.Type,
			"signed_delta", result.Move.SignedDelta.String(),
			"qty_after", result.QtyAfter.String(),
		)
	}

	return result, nil
}

// applyCosting computes the post-move aggregate and the unit cost to stamp
// on the record. Only receipts change the average cost; every other type
// records the last known average for audit.
func (s *Service) applyCosting(state costing.State, in AppendInput) (costing.State, types.Money, error) {
	switch in.Type {
	case MoveReceive:
		return costing.Receive(state, in.Qty, in.UnitCost), in.UnitCost, nil
	case MoveIssue:
		if !s.cfg.AllowNegativeStock && state.Quantity < in.Qty {
			return costing.State{}, zeroMoney, apperror.NewInsufficientStock(
				in.ItemID.String(), in.Qty.Float64(), state.Quantity.Float64())
		}
		return costing.Shift(state, in.SignedDelta()), state.AverageCost, nil
	default: // return, adjust
		return costing.Shift(state, in.SignedDelta()), state.AverageCost, nil
	}
}

func replayOrConflict(prior *Move, clientTxID, requestHash string) (*MoveResult, error) {
	if prior == nil {
		return nil, apperror.NewTransactionConflict(clientTxID)
	}
	if prior.RequestHash != requestHash {
		return nil, apperror.NewTransactionConflict(clientTxID).
			WithDetail("recorded_move_id", prior.ID)
	}
	return resultFromMove(*prior, true), nil
}

// --- Read projections ---

// CurrentState returns the eagerly maintained aggregate (O(1) read).
func (s *Service) CurrentState(ctx context.Context, itemID id.ID) (ItemState, error) {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return ItemState{}, err
	}
	return ItemState{
		ItemID:          it.ID,
		QuantityOnHand:  it.QuantityOnHand,
		AverageUnitCost: it.AverageUnitCost,
	}, nil
}

// LocationBalances folds the item's moves into per-location net quantities.
func (s *Service) LocationBalances(ctx context.Context, itemID id.ID) ([]LocationBalance, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.moves.LocationBalances(ctx, itemID)
}

// AllLocations returns every distinct location seen across all moves.
func (s *Service) AllLocations(ctx context.Context) ([]string, error) {
	return s.moves.AllLocations(ctx)
}

// History returns the item's moves in commit order.
func (s *Service) History(ctx context.Context, itemID id.ID, filter MoveFilter) ([]Move, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.moves.ListByItem(ctx, itemID, filter)
}

// LowStock reports whether the item sits at or below its threshold.
func (s *Service) LowStock(ctx context.Context, itemID id.ID) (bool, error) {
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return false, err
	}
	return it.LowStock(), nil
}

// Replay recomputes the aggregate from the full move history (O(n), used
// for verification and repair, never in the hot read path).
func (s *Service) Replay(ctx context.Context, itemID id.ID) (costing.State, error) {
	moves, err := s.moves.ListByItem(ctx, itemID, MoveFilter{Limit: -1})
	if err != nil {
		return costing.State{}, err
	}

	state := costing.Zero()
	for _, m := range moves {
		if m.Type == MoveReceive {
			state = costing.Receive(state, m.Qty, m.UnitCost)
		} else {
			state = costing.Shift(state, m.SignedDelta)
		}
	}
	return state, nil
}

// Reconcile verifies the round-trip invariant for one item: the stored
// aggregate must equal both the history replay and the sum of location
// balances. Inconsistency is reported, never auto-corrected.
//
// All three reads run in one read-only snapshot; a move committed midway
// through must not surface as a phantom inconsistency.
func (s *Service) Reconcile(ctx context.Context, itemID id.ID) error {
	return s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		it, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}

		replayed, err := s.Replay(ctx, itemID)
		if err != nil {
			return fmt.Errorf("replay moves: %w", err)
		}

		balances, err := s.moves.LocationBalances(ctx, itemID)
		if err != nil {
			return fmt.Errorf("fold locations: %w", err)
		}
		var locationSum types.Quantity
		for _, b := range balances {
			locationSum += b.Qty
		}

		if it.QuantityOnHand != replayed.Quantity ||
			it.QuantityOnHand != locationSum ||
			!it.AverageUnitCost.Equal(replayed.AverageCost) {
			return apperror.NewAggregateInconsistent(itemID.String()).
				WithDetail("stored_qty", it.QuantityOnHand.String()).
				WithDetail("replayed_qty", replayed.Quantity.String()).
				WithDetail("location_sum", locationSum.String()).
				WithDetail("stored_avg_cost", it.AverageUnitCost.String()).
				WithDetail("replayed_avg_cost", replayed.AverageCost.String())
		}

		return nil
	})
}

// ReconcileAll sweeps every item present in the ledger. Inconsistent items
// are reported in the returned slice; the sweep continues past them.
func (s *Service) ReconcileAll(ctx context.Context) (checked int, inconsistent []error, err error) {
	ids, err := s.moves.ItemIDsWithMoves(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list ledger items: %w", err)
	}

	for _, itemID := range ids {
		if err := s.Reconcile(ctx, itemID); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeAggregateInconsistent {
				logger.Error(ctx, "aggregate inconsistent", "item_id", itemID, "details", appErr.Details)
				inconsistent = append(inconsistent, err)
				continue
			}
			return checked, inconsistent, err
		}
		checked++
	}

	return checked, inconsistent, nil
}

// ExpireClientTransactions prunes idempotency claims older than ttl.
func (s *Service) ExpireClientTransactions(ctx context.Context, ttl time.Duration) (int64, error) {
	return s.moves.ExpireClientTransactions(ctx, time.Now().UTC().Add(-ttl))
}
