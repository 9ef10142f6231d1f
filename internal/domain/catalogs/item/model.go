// Package item provides the Item catalog: stock-keeping units plus the
// aggregate fields the ledger maintains for them.
package item

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Item is a stock-keeping unit.
//
// QuantityOnHand and AverageUnitCost are owned exclusively by the ledger
// service; nothing else may write them.
type Item struct {
	ID id.ID `db:"id" json:"id"`

	// SKU is the human key, unique case-insensitively.
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	// UnitOfMeasure is display-only for the engine ("pcs", "kg", ...).
	UnitOfMeasure string `db:"unit_of_measure" json:"unitOfMeasure"`

	// Barcode is optional; present only when the schema carries the column
	// (resolved once at startup, see storage capabilities).
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// LowStockThreshold of zero means "no alert".
	LowStockThreshold types.Quantity `db:"low_stock_threshold" json:"lowStockThreshold"`

	// Aggregate fields, ledger-owned.
	QuantityOnHand  types.Quantity `db:"quantity_on_hand" json:"quantityOnHand"`
	AverageUnitCost types.Money    `db:"average_unit_cost" json:"averageUnitCost"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates an Item with a generated id and zeroed aggregate.
func New(sku, name, unit string) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:              id.New(),
		SKU:             sku,
		Name:            name,
		UnitOfMeasure:   unit,
		AverageUnitCost: decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks item invariants.
func (i *Item) Validate(ctx context.Context) error {
	if strings.TrimSpace(i.SKU) == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if i.LowStockThreshold.IsNegative() {
		return apperror.NewValidation("low stock threshold must not be negative").
			WithDetail("field", "lowStockThreshold")
	}
	return nil
}

// NormalizedSKU returns the SKU folded for case-insensitive uniqueness.
func (i *Item) NormalizedSKU() string {
	return strings.ToLower(strings.TrimSpace(i.SKU))
}

// LowStock reports whether the item is at or below its threshold.
// A zero threshold never alerts, regardless of quantity.
func (i *Item) LowStock() bool {
	return i.LowStockThreshold.IsPositive() && i.QuantityOnHand <= i.LowStockThreshold
}
