package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
)

// CompressionAlgo specifies the compression algorithm used for a stored
// change-set.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditRecord is a single row of the mutation audit log.
type AuditRecord struct {
	ID                id.ID           `db:"id"`
	Action            string          `db:"action"`
	ItemID            id.ID           `db:"item_id"`
	MoveID            id.ID           `db:"move_id"`
	Operator          string          `db:"operator"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditStore persists mutation audit entries, zstd-compressing change-sets
// past a size threshold.
type AuditStore struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

var _ ledger.AuditLog = (*AuditStore)(nil)

// NewAuditStore creates a new audit store.
func NewAuditStore(txManager *TxManager) (*AuditStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditStore{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record implements ledger.AuditLog.
func (s *AuditStore) Record(ctx context.Context, entry ledger.AuditEntry) error {
	rec, err := s.buildRecord(entry)
	if err != nil {
		return err
	}

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_audit (
			id, action, item_id, move_id, operator,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID, rec.Action, rec.ItemID, rec.MoveID, rec.Operator,
		rec.Changes, rec.ChangesCompressed, rec.CompressionAlgo, rec.CreatedAt,
	)

	return err
}

// buildRecord marshals the change-set and applies zstd compression past the
// size threshold. Either Changes or ChangesCompressed is populated, never
// both; both columns are BYTEA.
func (s *AuditStore) buildRecord(entry ledger.AuditEntry) (AuditRecord, error) {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return AuditRecord{}, fmt.Errorf("marshal audit changes: %w", err)
	}

	rec := AuditRecord{
		ID:              id.New(),
		Action:          entry.Action,
		ItemID:          entry.ItemID,
		MoveID:          entry.MoveID,
		Operator:        entry.Operator,
		Changes:         changes,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(rec.Changes) > s.compressThreshold {
		rec.ChangesCompressed = s.encoder.EncodeAll(rec.Changes, nil)
		rec.Changes = nil
		rec.CompressionAlgo = CompressionZstd
	}

	return rec, nil
}

// ItemHistory retrieves the audit trail for an item, newest first.
func (s *AuditStore) ItemHistory(ctx context.Context, itemID id.ID, limit int) ([]AuditRecord, error) {
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, `
		SELECT id, action, item_id, move_id, operator,
		       changes, changes_compressed, compression_algo, created_at
		FROM sys_audit
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var r AuditRecord
		if err := rows.Scan(&r.ID, &r.Action, &r.ItemID, &r.MoveID, &r.Operator,
			&r.Changes, &r.ChangesCompressed, &r.CompressionAlgo, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		if r.CompressionAlgo == CompressionZstd && len(r.ChangesCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(r.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit changes: %w", err)
			}
			r.Changes = decompressed
			r.ChangesCompressed = nil
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
