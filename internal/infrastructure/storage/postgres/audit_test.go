package postgres

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
)

func TestAuditBuildRecordSmallChangeSet(t *testing.T) {
	store, err := NewAuditStore(nil)
	require.NoError(t, err)

	rec, err := store.buildRecord(ledger.AuditEntry{
		Action:   "move.appended",
		ItemID:   id.New(),
		MoveID:   id.New(),
		Operator: "counter-1",
		Changes:  map[string]any{"qtyAfter": "10"},
	})
	require.NoError(t, err)

	assert.Equal(t, CompressionNone, rec.CompressionAlgo)
	assert.NotEmpty(t, rec.Changes)
	assert.Nil(t, rec.ChangesCompressed)
}

func TestAuditBuildRecordCompressesLargeChangeSet(t *testing.T) {
	store, err := NewAuditStore(nil)
	require.NoError(t, err)

	rec, err := store.buildRecord(ledger.AuditEntry{
		Action:  "move.appended",
		ItemID:  id.New(),
		Changes: map[string]any{"reason": strings.Repeat("stocktake ", 4096)},
	})
	require.NoError(t, err)

	assert.Equal(t, CompressionZstd, rec.CompressionAlgo)
	assert.Nil(t, rec.Changes)
	require.NotEmpty(t, rec.ChangesCompressed)

	decompressed, err := store.decoder.DecodeAll(rec.ChangesCompressed, nil)
	require.NoError(t, err)
	assert.Contains(t, string(decompressed), "stocktake")
}
