// Package main is the entry point for the stockbook API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockbook/internal/config"
	"stockbook/internal/domain/catalogs/item"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/reporting"
	v1 "stockbook/internal/infrastructure/http/v1"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/item_repo"
	"stockbook/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbook/internal/infrastructure/storage/postgres/report_repo"
	"stockbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting stockbook server")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// Schema capabilities are resolved once; per-request schema probes
	// would defeat the point.
	caps, err := postgres.ResolveCapabilities(ctx, pool)
	if err != nil {
		log.Fatalw("failed to resolve schema capabilities", "error", err)
	}

	txManager := postgres.NewTxManager(pool)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}
	outbox := postgres.NewOutboxPublisher(txManager)

	itemRepo := item_repo.NewItemRepo(txManager, caps)
	ledgerRepo := ledger_repo.NewLedgerRepo(txManager)
	reportRepo := report_repo.NewReportRepo(txManager)

	itemService := item.NewService(itemRepo)
	ledgerService := ledger.NewService(ledgerRepo, itemRepo, txManager, outbox, auditStore, ledger.Config{
		AllowNegativeStock: cfg.AllowNegativeStock,
	})
	reportingService := reporting.NewService(reportRepo, ledgerService, txManager)

	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		Logger:           log,
		ItemService:      itemService,
		LedgerService:    ledgerService,
		ReportingService: reportingService,
		MutationTimeout:  cfg.MutationTimeout,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
