// Package item_repo provides the PostgreSQL implementation of the Item
// repository.
package item_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalogs/item"
	"stockbook/internal/infrastructure/storage/postgres"
)

const itemsTable = "items"

// ItemRepo implements item.Repository.
type ItemRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
	caps    postgres.Capabilities
}

var _ item.Repository = (*ItemRepo)(nil)

// NewItemRepo creates a new item repository. Capabilities decide whether the
// optional barcode column participates in queries.
func NewItemRepo(txm *postgres.TxManager, caps postgres.Capabilities) *ItemRepo {
	return &ItemRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		caps:    caps,
	}
}

func (r *ItemRepo) columns() []string {
	cols := []string{
		"id", "sku", "name", "unit_of_measure", "low_stock_threshold",
		"quantity_on_hand", "average_unit_cost", "created_at", "updated_at",
	}
	if r.caps.ItemBarcode {
		cols = append(cols, "barcode")
	}
	return cols
}

// Create inserts a new item.
func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	cols := []string{"id", "sku", "name", "unit_of_measure", "low_stock_threshold",
		"quantity_on_hand", "average_unit_cost", "created_at", "updated_at"}
	vals := []any{it.ID, it.SKU, it.Name, it.UnitOfMeasure, it.LowStockThreshold,
		it.QuantityOnHand, it.AverageUnitCost, it.CreatedAt, it.UpdatedAt}
	if r.caps.ItemBarcode {
		cols = append(cols, "barcode")
		vals = append(vals, it.Barcode)
	}

	q := r.builder.Insert(itemsTable).Columns(cols...).Values(vals...)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if _, ok := postgres.UniqueViolation(err); ok {
			return apperror.NewDuplicate("item", "sku", it.SKU)
		}
		return postgres.TranslateError(fmt.Errorf("insert item: %w", err))
	}

	return nil
}

// GetByID retrieves an item by id.
func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*item.Item, error) {
	return r.getOne(ctx, squirrel.Eq{"id": itemID})
}

// FindBySKU retrieves an item by case-insensitive SKU.
func (r *ItemRepo) FindBySKU(ctx context.Context, sku string) (*item.Item, error) {
	return r.getOne(ctx, squirrel.Expr("lower(sku) = lower(?)", sku))
}

func (r *ItemRepo) getOne(ctx context.Context, pred any) (*item.Item, error) {
	q := r.builder.Select(r.columns()...).From(itemsTable).Where(pred).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var it item.Item
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &it, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", nil)
		}
		return nil, postgres.TranslateError(fmt.Errorf("get item: %w", err))
	}

	return &it, nil
}

// List returns items matching the filter, ordered by SKU.
func (r *ItemRepo) List(ctx context.Context, filter item.ListFilter) ([]item.Item, error) {
	q := r.builder.Select(r.columns()...).From(itemsTable).OrderBy("lower(sku)")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"sku": pattern},
			squirrel.ILike{"name": pattern},
		})
	}
	if filter.LowStock {
		q = q.Where("low_stock_threshold > 0 AND quantity_on_hand <= low_stock_threshold")
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit)).Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []item.Item
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, postgres.TranslateError(fmt.Errorf("select items: %w", err))
	}

	return items, nil
}

// GetForUpdate retrieves an item with a row lock. Must run inside a
// transaction; the lock serializes concurrent aggregate updates.
func (r *ItemRepo) GetForUpdate(ctx context.Context, itemID id.ID) (*item.Item, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM items WHERE id = $1 FOR UPDATE
	`, joinColumns(r.columns()))

	var it item.Item
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &it, sql, itemID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("item", itemID)
		}
		return nil, postgres.TranslateError(fmt.Errorf("get item for update: %w", err))
	}

	return &it, nil
}

// UpdateAggregate writes the ledger-owned aggregate fields.
func (r *ItemRepo) UpdateAggregate(ctx context.Context, itemID id.ID, qty types.Quantity, avgCost types.Money) error {
	q := r.builder.Update(itemsTable).
		Set("quantity_on_hand", qty).
		Set("average_unit_cost", avgCost).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(fmt.Errorf("update aggregate: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("item", itemID)
	}

	return nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
