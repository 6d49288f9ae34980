// Package main provides the ingest CLI: fetch a return series from a CSV
// source and persist it.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"convergence-lab/internal/ingestion"
	"convergence-lab/internal/observability"
	"convergence-lab/internal/storage"
	"convergence-lab/internal/storage/memory"
	"convergence-lab/internal/storage/migrations"
	pgstore "convergence-lab/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	csvPath := flag.String("csv", "", "Local returns CSV path")
	url := flag.String("url", ingestion.DefaultReturnsURL, "Returns CSV URL")
	seriesName := flag.String("series", "sp500", "Series name to store under")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry run)")

	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for a dry run)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling...", sig)
		cancel()
	}()

	var store storage.SeriesStore
	if *useMemory {
		store = memory.NewSeriesStore()
	} else {
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Failed to run migrations: %v", err)
		}
		store = pgstore.NewSeriesStore(pool)
	}

	var source ingestion.Source
	if *csvPath != "" {
		source = ingestion.NewFileSource(*csvPath)
	} else {
		source = ingestion.NewHTTPSource(*url, &http.Client{Timeout: 30 * time.Second})
	}

	start := time.Now()
	runner := ingestion.NewRunner(source, store, logger)
	series, err := runner.Run(ctx, *seriesName)
	if err != nil {
		observability.RecordIngestionError("run")
		logger.Fatalf("Ingestion failed: %v", err)
	}
	observability.RecordFetch(series.Len(), time.Since(start).Seconds())

	logger.Printf("Ingested series %q: %d years (%d-%d) in %v",
		*seriesName, series.Len(), series.FirstYear(), series.LastYear(), time.Since(start))
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
