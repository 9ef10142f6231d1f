// Package main provides a CLI tool for seeding the database with demo data.
package main

import (
	"context"
	"fmt"
	"os"

	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalogs/item"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/item_repo"
	"stockbook/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbook/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	caps, err := postgres.ResolveCapabilities(ctx, pool)
	if err != nil {
		log.Fatalw("failed to resolve schema capabilities", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	itemRepo := item_repo.NewItemRepo(txManager, caps)
	itemService := item.NewService(itemRepo)
	ledgerService := ledger.NewService(
		ledger_repo.NewLedgerRepo(txManager),
		itemRepo,
		txManager,
		nil,
		nil,
		ledger.Config{AllowNegativeStock: true},
	)

	if err := seedDemoData(ctx, log, itemService, ledgerService); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, log *logger.Logger, items *item.Service, moves *ledger.Service) error {
	demo := []struct {
		sku, name, unit string
		threshold       types.Quantity
		qty             types.Quantity
		cost            types.Money
		location        string
	}{
		{"PEN-BLU-01", "Ball Pen Blue", "pcs", types.NewQuantityFromFloat64(50), types.NewQuantityFromFloat64(200), types.MustMoney("4.50"), "shelf-a1"},
		{"NBK-A5-100", "Notebook A5 100pg", "pcs", types.NewQuantityFromFloat64(20), types.NewQuantityFromFloat64(80), types.MustMoney("32.00"), "shelf-b2"},
		{"RICE-5KG", "Rice Bag 5kg", "bag", types.NewQuantityFromFloat64(10), types.NewQuantityFromFloat64(45), types.MustMoney("310.00"), "godown"},
		{"OIL-1L", "Sunflower Oil 1L", "btl", types.NewQuantityFromFloat64(0), types.NewQuantityFromFloat64(120), types.MustMoney("148.75"), "godown"},
	}

	for _, d := range demo {
		if existing, err := items.FindBySKU(ctx, d.sku); err == nil {
			log.Infow("item already seeded", "sku", existing.SKU)
			continue
		}

		it := item.New(d.sku, d.name, d.unit)
		it.LowStockThreshold = d.threshold
		if err := items.Create(ctx, it); err != nil {
			return fmt.Errorf("create item %s: %w", d.sku, err)
		}

		if _, err := moves.AppendMove(ctx, ledger.AppendInput{
			ItemID:     it.ID,
			Type:       ledger.MoveReceive,
			Qty:        d.qty,
			UnitCost:   d.cost,
			Location:   d.location,
			Reference:  "opening-stock",
			ClientTxID: "seed-" + d.sku,
		}); err != nil {
			return fmt.Errorf("seed opening stock %s: %w", d.sku, err)
		}

		log.Infow("seeded item", "sku", d.sku, "qty", d.qty)
	}

	return nil
}
