package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
)

// OutboxMessage is one row of the transactional outbox. The outbox is the
// engine's one-way event stream: consumers (second-screen displays, sync
// jobs) poll pending messages instead of sharing mutable state.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// EventTypeMoveAppended is emitted for every applied ledger move.
const EventTypeMoveAppended = "ledger.move_appended"

// OutboxPublisher writes events to the outbox table within the caller's
// transaction, making event emission atomic with the move append.
type OutboxPublisher struct {
	txManager *TxManager
}

var _ ledger.EventPublisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// MoveAppended implements ledger.EventPublisher.
func (p *OutboxPublisher) MoveAppended(ctx context.Context, ev ledger.MoveAppendedEvent) error {
	return p.publish(ctx, "Item", ev.ItemID, EventTypeMoveAppended, ev)
}

// publish inserts an outbox row. MUST be called inside a transaction.
func (p *OutboxPublisher) publish(ctx context.Context, aggregateType string, aggregateID id.ID, eventType string, payload any) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id.New(), aggregateType, aggregateID, eventType, payloadBytes, OutboxStatusPending, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	return nil
}

// FetchPending returns up to limit unpublished messages in commit order.
func (p *OutboxPublisher) FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error) {
	rows, err := p.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status, created_at, published_at
		FROM sys_outbox
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`, OutboxStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var messages []OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		if err := rows.Scan(&m.ID, &m.AggregateType, &m.AggregateID, &m.EventType,
			&m.Payload, &m.Status, &m.CreatedAt, &m.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// MarkPublished transitions messages to published.
func (p *OutboxPublisher) MarkPublished(ctx context.Context, ids []id.ID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.txManager.GetQuerier(ctx).Exec(ctx, `
		UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = ANY($3)
	`, OutboxStatusPublished, time.Now().UTC(), ids)
	return err
}

// CleanupPublished removes published messages older than cutoff.
func (p *OutboxPublisher) CleanupPublished(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := p.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2
	`, OutboxStatusPublished, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
