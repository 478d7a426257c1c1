package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cinedex/cinedex-backend/internal/config"
	"github.com/cinedex/cinedex-backend/internal/db"
	"github.com/cinedex/cinedex-backend/internal/ingest"
	"github.com/cinedex/cinedex-backend/internal/log"
	"github.com/cinedex/cinedex-backend/internal/repository"
	"github.com/cinedex/cinedex-backend/internal/store"
	"github.com/cinedex/cinedex-backend/pkg/kv"

	_ "github.com/cinedex/cinedex-backend/pkg/kv/memory"
	_ "github.com/cinedex/cinedex-backend/pkg/kv/redis"
)

var (
	fixtures = flag.Bool("fixtures", false, "load the built-in sample movies")
	file     = flag.String("file", "", "path to a MovieData XML document to import")
)

func main() {
	flag.Parse()

	if *fixtures == (*file != "") {
		fmt.Fprintln(os.Stderr, "Usage: seed -fixtures | -file movies.xml")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	payload, err := loadPayload()
	if err != nil {
		logger.Fatalw("Failed to read document", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	database, err := db.Open(ctx, cfg.DB())
	if err != nil {
		logger.Fatalw("Failed to open database", "error", err)
	}
	defer database.Close()

	if err := database.Migrate(ctx, logger); err != nil {
		logger.Fatalw("Failed to migrate database", "error", err)
	}

	kvStore, err := kv.NewStoreFromConfig(kv.Config{
		Backend:  kv.Backend(cfg.Ledger.Backend),
		RedisURL: cfg.Ledger.RedisURL,
		Logger:   logger.Warnw,
	})
	if err != nil {
		logger.Fatalw("Failed to setup key-value store", "error", err)
	}
	defer kvStore.Close()

	ledger := store.NewImportLedger(kvStore, cfg.Ledger.RecordTTL, logger, nil)
	repo := repository.NewMovieRepository(database, logger)

	pipeline, err := ingest.NewPipeline(repo, ingest.WithLogger(logger))
	if err != nil {
		logger.Fatalw("Failed to setup ingestion pipeline", "error", err)
	}

	summary, err := pipeline.Run(ctx, payload, ledger.Listener())
	if err != nil {
		logger.Fatalw("Seeding failed", "error", err)
	}

	fmt.Printf("run %s: created %d movies\n", summary.RunID, summary.Count)
}

func loadPayload() ([]byte, error) {
	if *file != "" {
		return os.ReadFile(*file)
	}

	var buf bytes.Buffer
	if err := ingest.WriteXML(&buf, db.MovieFixtures); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
