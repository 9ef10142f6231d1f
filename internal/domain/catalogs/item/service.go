package item

import (
	"context"
	"fmt"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/pkg/logger"
)

// Service provides the minimal item operations the engine needs. Full
// master-data CRUD screens live in the surrounding application.
type Service struct {
	repo Repository
}

// NewService creates a new item service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new item with a zeroed aggregate.
func (s *Service) Create(ctx context.Context, it *Item) error {
	if err := it.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.FindBySKU(ctx, it.NormalizedSKU()); err == nil && existing != nil {
		return apperror.NewDuplicate("item", "sku", it.SKU)
	} else if err != nil && !apperror.IsNotFound(err) {
		return fmt.Errorf("check sku: %w", err)
	}

	if err := s.repo.Create(ctx, it); err != nil {
		return fmt.Errorf("create item: %w", err)
	}

	logger.Info(ctx, "item created", "id", it.ID, "sku", it.SKU)
	return nil
}

// GetByID retrieves an item.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// FindBySKU retrieves an item by its case-insensitive SKU.
func (s *Service) FindBySKU(ctx context.Context, sku string) (*Item, error) {
	return s.repo.FindBySKU(ctx, sku)
}

// List returns items matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}
