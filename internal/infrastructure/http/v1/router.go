// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/catalogs/item"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/reporting"
	"stockbook/internal/infrastructure/http/v1/handlers"
	"stockbook/internal/infrastructure/http/v1/middleware"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	ItemService      *item.Service
	LedgerService    *ledger.Service
	ReportingService *reporting.Service

	// MutationTimeout bounds ledger mutations so a wedged request cannot
	// hold the item row lock open.
	MutationTimeout time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.OperatorContext())

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	base := handlers.NewBaseHandler()
	itemHandler := handlers.NewItemHandler(base, cfg.ItemService)
	ledgerHandler := handlers.NewLedgerHandler(base, cfg.LedgerService)
	pricingHandler := handlers.NewPricingHandler(base)
	reportsHandler := handlers.NewReportsHandler(base, cfg.ReportingService)

	mutationTimeout := cfg.MutationTimeout
	if mutationTimeout <= 0 {
		mutationTimeout = 10 * time.Second
	}

	v1 := router.Group("/api/v1")
	{
		itemHandler.RegisterRoutes(v1.Group("/items"))

		ledgerGroup := v1.Group("/ledger")
		ledgerGroup.GET("/locations", ledgerHandler.AllLocations)
		ledgerGroup.POST("/moves", middleware.Timeout(mutationTimeout), ledgerHandler.AppendMove)
		ledgerHandler.RegisterItemRoutes(ledgerGroup.Group("/items"))

		pricingHandler.RegisterRoutes(v1.Group("/pricing"))

		v1.POST("/invoices/:no/lines", middleware.Timeout(mutationTimeout), reportsHandler.IngestLines)
		v1.GET("/reports/documents/:no", reportsHandler.GetDocument)
	}

	return router
}
