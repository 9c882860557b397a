package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hmoreno/cierre-fiscal/internal/config"
	"github.com/hmoreno/cierre-fiscal/internal/domain"
	"github.com/hmoreno/cierre-fiscal/internal/handler"
	"github.com/hmoreno/cierre-fiscal/internal/infra/cache"
	"github.com/hmoreno/cierre-fiscal/internal/infra/legacydb"
	"github.com/hmoreno/cierre-fiscal/internal/infra/observability"
	"github.com/hmoreno/cierre-fiscal/internal/infra/postgrest"
	"github.com/hmoreno/cierre-fiscal/internal/infra/resilience"
	"github.com/hmoreno/cierre-fiscal/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_url", cfg.StoreURL),
		zap.String("legacy_db_path", cfg.LegacyDBPath),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("snapshot_cache_ttl", cfg.SnapshotCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("dev_profile", cfg.DevProfile),
		zap.Bool("journey_enabled_default", cfg.JourneyEnabledDefault),
		zap.Bool("tax_engine_enabled_default", cfg.TaxEngineEnabledDefault),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "cierre-fiscal")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	snapshotCache := cache.New[domain.MonthlySnapshot](cfg.SnapshotCacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	cb := resilience.NewCircuitBreaker("canonical-store")

	// --- Canonical store ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	store := postgrest.NewClient(
		httpClient,
		cfg.StoreURL,
		cfg.StoreAnonKey,
		cfg.StoreServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Legacy database ---
	legacy, err := legacydb.Open(cfg.LegacyDBPath)
	if err != nil {
		logger.Fatal("failed to open legacy database", zap.Error(err))
	}
	defer legacy.Close()

	// --- Tax estimation ---
	brackets, err := config.LoadBracketTable(cfg.BracketTablePath)
	if err != nil {
		logger.Fatal("failed to load bracket table", zap.Error(err))
	}
	regimes := service.NewRegimeRegistry(brackets, cfg.GeneralRegimeRate)
	estimator := service.NewTaxEstimator(regimes)

	// --- Services ---
	adapters := service.NewLegacyAdapterRegistry()
	migration := service.NewMigrationEngine(legacy, store, store, adapters, metrics, logger)

	defaults := domain.ResolvedFlags{
		JourneyEnabled:   cfg.JourneyEnabledDefault,
		TaxEngineEnabled: cfg.TaxEngineEnabledDefault,
	}
	closeSvc := service.NewCloseService(store, store, estimator, defaults, snapshotCache, metrics, logger)

	// Startup consolidation for the development profile. Other profiles run
	// on their first POST /v1/migration/run. The status flag makes repeats
	// cheap, so failures here just retry on the next boot.
	if cfg.DevProfile {
		go func() {
			report, err := migration.Run(context.Background(), cfg.DevProfileID)
			if err != nil {
				logger.Error("startup consolidation failed", zap.Error(err))
				return
			}
			if !report.Skipped {
				snapshotCache.Flush()
			}
		}()
	}

	// --- Router ---
	router := handler.NewRouter(closeSvc, migration, metrics, logger, handler.Options{
		JWTSecret:    cfg.JWTSecret,
		DevProfile:   cfg.DevProfile,
		DevProfileID: cfg.DevProfileID,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
