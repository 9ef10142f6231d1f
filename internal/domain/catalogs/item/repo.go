package item

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Repository defines the interface for Item persistence.
type Repository interface {
	Create(ctx context.Context, it *Item) error
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)
	FindBySKU(ctx context.Context, sku string) (*Item, error)
	List(ctx context.Context, filter ListFilter) ([]Item, error)

	// GetForUpdate retrieves the item with a row lock. The ledger service
	// calls this inside the append transaction to serialize concurrent
	// read-modify-write of the aggregate.
	GetForUpdate(ctx context.Context, itemID id.ID) (*Item, error)

	// UpdateAggregate writes the ledger-owned aggregate fields. Must run in
	// the same transaction as the move insert.
	UpdateAggregate(ctx context.Context, itemID id.ID, qty types.Quantity, avgCost types.Money) error
}

// ListFilter narrows List results.
type ListFilter struct {
	Search   string // matches SKU or name
	LowStock bool   // only items at or below their threshold
	Limit    int
	Offset   int
}
