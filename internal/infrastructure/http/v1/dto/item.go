package dto

import (
	"time"

	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalogs/item"
)

// CreateItemRequest for creating catalog items.
type CreateItemRequest struct {
	SKU               string         `json:"sku" binding:"required"`
	Name              string         `json:"name" binding:"required"`
	UnitOfMeasure     string         `json:"unitOfMeasure"`
	Barcode           *string        `json:"barcode"`
	LowStockThreshold types.Quantity `json:"lowStockThreshold"`
}

// ItemResponse contains item fields including the server-owned aggregates.
type ItemResponse struct {
	ID                string         `json:"id"`
	SKU               string         `json:"sku"`
	Name              string         `json:"name"`
	UnitOfMeasure     string         `json:"unitOfMeasure"`
	Barcode           *string        `json:"barcode,omitempty"`
	LowStockThreshold types.Quantity `json:"lowStockThreshold"`
	QuantityOnHand    types.Quantity `json:"quantityOnHand"`
	AverageUnitCost   types.Money    `json:"averageUnitCost"`
	LowStock          bool           `json:"lowStock"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// FromItem creates ItemResponse from item.Item.
func FromItem(it item.Item) ItemResponse {
	return ItemResponse{
		ID:                it.ID.String(),
		SKU:               it.SKU,
		Name:              it.Name,
		UnitOfMeasure:     it.UnitOfMeasure,
		Barcode:           it.Barcode,
		LowStockThreshold: it.LowStockThreshold,
		QuantityOnHand:    it.QuantityOnHand,
		AverageUnitCost:   it.AverageUnitCost,
		LowStock:          it.LowStock(),
		CreatedAt:         it.CreatedAt,
		UpdatedAt:         it.UpdatedAt,
	}
}

// ItemListResponse wraps item lists.
type ItemListResponse struct {
	Items      []ItemResponse `json:"items"`
	TotalCount int            `json:"totalCount"`
}
