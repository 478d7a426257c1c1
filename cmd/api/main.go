package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinedex/cinedex-backend/internal/analytics"
	"github.com/cinedex/cinedex-backend/internal/api"
	"github.com/cinedex/cinedex-backend/internal/config"
	"github.com/cinedex/cinedex-backend/internal/db"
	"github.com/cinedex/cinedex-backend/internal/ingest"
	"github.com/cinedex/cinedex-backend/internal/log"
	"github.com/cinedex/cinedex-backend/internal/metrics"
	"github.com/cinedex/cinedex-backend/internal/repository"
	"github.com/cinedex/cinedex-backend/internal/store"
	"github.com/cinedex/cinedex-backend/pkg/kv"

	_ "github.com/cinedex/cinedex-backend/pkg/kv/memory"
	_ "github.com/cinedex/cinedex-backend/pkg/kv/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting Cinedex API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db_driver", cfg.Database.Driver,
		"kv_backend", cfg.Ledger.Backend,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("cinedex-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Open the record store and bring the schema up to date
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database, err := db.Open(ctx, cfg.DB())
	if err != nil {
		logger.Fatalw("Failed to open database", "error", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx, logger); err != nil {
		logger.Fatalw("Failed to migrate database", "error", err)
	}
	logger.Infow("Database initialized")

	// Setup import ledger
	kvStore, err := kv.NewStoreFromConfig(kv.Config{
		Backend:  kv.Backend(cfg.Ledger.Backend),
		RedisURL: cfg.Ledger.RedisURL,
		Logger:   logger.Warnw,
	})
	if err != nil {
		logger.Fatalw("Failed to setup key-value store", "error", err)
	}
	defer kvStore.Close()

	if err := kvStore.Ping(ctx); err != nil {
		logger.Fatalw("Key-value store ping failed", "error", err)
	}
	logger.Infow("Import ledger ready", "ttl", cfg.Ledger.RecordTTL)
	if cfg.IsProd() && kv.Backend(cfg.Ledger.Backend) == kv.BackendMemory {
		logger.Warnw("Import ledger is in memory; run history is lost on restart")
	}

	ledger := store.NewImportLedger(kvStore, cfg.Ledger.RecordTTL, logger, metricsObj)

	// Setup services
	repo := repository.NewMovieRepository(database, logger)
	engine := analytics.NewEngine(repo, logger)
	pipeline, err := ingest.NewPipeline(repo,
		ingest.WithLogger(logger),
		ingest.WithRecorder(metricsObj),
	)
	if err != nil {
		logger.Fatalw("Failed to setup ingestion pipeline", "error", err)
	}

	// Setup API handler and middleware
	handler := api.NewHandler(repo, engine, pipeline, ledger, database, logger, cfg.HTTP.MaxUploadBytes)
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, api.RouterConfig{
		CORSOrigins:    cfg.Security.CORSAllowedOrigins,
		RateLimitRPM:   cfg.Security.RateLimitRPM,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MetricsHandler: metricsHandler,
		Profiling:      cfg.IsDev(),
	})

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.RequestTimeout,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server startup failed", "error", err)
		}
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
