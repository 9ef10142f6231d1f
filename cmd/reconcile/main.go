// Package main is the entry point for the stockbook reconcile worker. It
// periodically replays every item's ledger against its stored aggregate,
// prunes expired idempotency claims, and drains the event outbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockbook/internal/config"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/item_repo"
	"stockbook/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbook/pkg/logger"
)

const (
	outboxBatchSize = 500
	// Published outbox rows older than this are garbage.
	outboxRetention = 24 * time.Hour
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting stockbook reconcile worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	caps, err := postgres.ResolveCapabilities(ctx, pool)
	if err != nil {
		log.Fatalw("failed to resolve schema capabilities", "error", err)
	}

	txManager := postgres.NewTxManager(pool)
	outbox := postgres.NewOutboxPublisher(txManager)

	ledgerService := ledger.NewService(
		ledger_repo.NewLedgerRepo(txManager),
		item_repo.NewItemRepo(txManager, caps),
		txManager,
		nil, // the worker appends no moves
		nil,
		ledger.Config{AllowNegativeStock: cfg.AllowNegativeStock},
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("shutting down reconcile worker...")
		cancel()
	}()

	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	// Run one pass immediately so a crash-looping deployment still checks.
	runPass(ctx, log, cfg, ledgerService, outbox)

	for {
		select {
		case <-ctx.Done():
			log.Info("reconcile worker stopped")
			return
		case <-ticker.C:
			runPass(ctx, log, cfg, ledgerService, outbox)
		}
	}
}

func runPass(ctx context.Context, log *logger.Logger, cfg *config.Config, svc *ledger.Service, outbox *postgres.OutboxPublisher) {
	checked, inconsistent, err := svc.ReconcileAll(ctx)
	if err != nil {
		log.Errorw("reconcile pass failed", "error", err)
	} else {
		log.Infow("reconcile pass complete", "checked", checked, "inconsistent", len(inconsistent))
		for _, mismatch := range inconsistent {
			log.Errorw("aggregate mismatch", "error", mismatch)
		}
	}

	expired, err := svc.ExpireClientTransactions(ctx, cfg.IdempotencyTTL)
	if err != nil {
		log.Errorw("idempotency cleanup failed", "error", err)
	} else if expired > 0 {
		log.Infow("expired idempotency claims", "count", expired)
	}

	drainOutbox(ctx, log, outbox)
}

// drainOutbox hands pending messages to downstream consumers. With no
// broker configured the drain just marks rows published; consumers read
// the outbox table directly.
func drainOutbox(ctx context.Context, log *logger.Logger, outbox *postgres.OutboxPublisher) {
	for {
		pending, err := outbox.FetchPending(ctx, outboxBatchSize)
		if err != nil {
			log.Errorw("outbox fetch failed", "error", err)
			return
		}
		if len(pending) == 0 {
			break
		}

		ids := make([]id.ID, len(pending))
		for i, msg := range pending {
			ids[i] = msg.ID
		}
		if err := outbox.MarkPublished(ctx, ids); err != nil {
			log.Errorw("outbox publish failed", "error", err)
			return
		}
		log.Infow("outbox messages published", "count", len(ids))

		if len(pending) < outboxBatchSize {
			break
		}
	}

	removed, err := outbox.CleanupPublished(ctx, time.Now().Add(-outboxRetention))
	if err != nil {
		log.Errorw("outbox cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		log.Infow("outbox rows pruned", "count", removed)
	}
}
