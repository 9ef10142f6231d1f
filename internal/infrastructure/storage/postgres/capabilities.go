package postgres

import (
	"context"
	"fmt"

	"stockbook/pkg/logger"
)

// Capabilities are optional schema features, resolved exactly once at
// startup. Repositories branch on the flags instead of probing columns per
// request and catching failures.
type Capabilities struct {
	// ItemBarcode is true when the items table carries the optional
	// barcode column (older installations predate it).
	ItemBarcode bool
}

// ResolveCapabilities inspects the live schema once.
func ResolveCapabilities(ctx context.Context, pool *Pool) (Capabilities, error) {
	var caps Capabilities

	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = 'items' AND column_name = 'barcode'
		)
	`
	if err := pool.QueryRow(ctx, q).Scan(&caps.ItemBarcode); err != nil {
		return caps, fmt.Errorf("resolve schema capabilities: %w", err)
	}

	logger.Info(ctx, "schema capabilities resolved", "item_barcode", caps.ItemBarcode)
	return caps, nil
}
