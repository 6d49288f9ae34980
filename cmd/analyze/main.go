// Package main provides the analyze CLI: fetch or load a return series,
// run the rolling-window analysis, and write report artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"convergence-lab/internal/config"
	"convergence-lab/internal/domain"
	"convergence-lab/internal/ingestion"
	"convergence-lab/internal/observability"
	"convergence-lab/internal/orchestrator"
	"convergence-lab/internal/reporting"
	"convergence-lab/internal/storage"
	chstore "convergence-lab/internal/storage/clickhouse"
	"convergence-lab/internal/storage/memory"
	"convergence-lab/internal/storage/migrations"
	pgstore "convergence-lab/internal/storage/postgres"
)

func main() {
	loadEnvFile()

	configPath := flag.String("config", "", "Path to YAML config file")
	csvPath := flag.String("csv", "", "Local returns CSV (overrides config)")
	url := flag.String("url", "", "Returns CSV URL (overrides config)")
	seriesName := flag.String("series", "", "Series name (overrides config)")
	outputDir := flag.String("output-dir", "", "Report output directory (overrides config)")
	baselines := flag.String("baselines", "", "Comma-separated baseline years (overrides config)")
	windowSizes := flag.String("window-sizes", "", "Comma-separated window sizes (overrides config)")
	thresholds := flag.String("thresholds", "", "Comma-separated spread thresholds (overrides config)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	fromStore := flag.Bool("from-store", false, "Load the series from storage instead of fetching")
	verbose := flag.Bool("verbose", false, "Verbose orchestrator logging")

	flag.Parse()

	logger := log.New(os.Stdout, "[analyze] ", log.LstdFlags)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, *csvPath, *url, *seriesName, *outputDir, *baselines, *windowSizes, *thresholds, *postgresDSN, *clickhouseDSN, *useMemory)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
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

	if err := run(ctx, cfg, *fromStore, *verbose, logger); err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, fromStore, verbose bool, logger *log.Logger) error {
	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Acquire the series
	var series *domain.ReturnSeries
	if fromStore {
		if stores.seriesStore == nil {
			return fmt.Errorf("--from-store requires a storage backend")
		}
		series, err = ingestion.LoadStored(ctx, stores.seriesStore, cfg.Series.Name)
		if err != nil {
			return err
		}
		logger.Printf("Loaded %d years of %q from storage", series.Len(), cfg.Series.Name)
	} else {
		source := buildSource(cfg)
		start := time.Now()
		runner := ingestion.NewRunner(source, stores.seriesStore, logger)
		series, err = runner.Run(ctx, cfg.Series.Name)
		if err != nil {
			observability.RecordIngestionError("fetch")
			return err
		}
		observability.RecordFetch(series.Len(), time.Since(start).Seconds())
	}

	// Run the analysis
	start := time.Now()
	orch := orchestrator.New(orchestrator.Options{
		WindowCAGRStore: stores.windowCAGRStore,
		HorizonStore:    stores.horizonStore,
		Request:         cfg.Request(),
		Verbose:         verbose,
	})

	result, err := orch.Run(ctx, series)
	if err != nil {
		observability.RecordAnalysisRun("error", time.Since(start).Seconds(), 0, 0)
		return err
	}
	observability.RecordAnalysisRun("success", time.Since(start).Seconds(),
		result.WindowsComputed, len(result.Baselines))

	for _, msg := range result.Errors {
		logger.Printf("WARNING: %s", msg)
	}
	logger.Printf("Computed %d windows across %d baselines in %v",
		result.WindowsComputed, len(result.Baselines), time.Since(start))

	// Write artifacts
	if err := reporting.NewGenerator().WriteFiles(cfg.Output.Dir, series, result); err != nil {
		return err
	}
	observability.RecordReportGenerated()
	logger.Printf("Reports written to %s/", cfg.Output.Dir)

	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyOverrides lets flags win over the config file.
func applyOverrides(cfg *config.Config, csvPath, url, seriesName, outputDir, baselines, windowSizes, thresholds, postgresDSN, clickhouseDSN string, useMemory bool) {
	if csvPath != "" {
		cfg.Series.CSVPath = csvPath
		cfg.Series.URL = ""
	}
	if url != "" {
		cfg.Series.URL = url
		cfg.Series.CSVPath = ""
	}
	if seriesName != "" {
		cfg.Series.Name = seriesName
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if baselines != "" {
		cfg.Analysis.Baselines = parseIntList(baselines)
	}
	if windowSizes != "" {
		cfg.Analysis.WindowSizes = parseIntList(windowSizes)
	}
	if thresholds != "" {
		cfg.Analysis.Thresholds = parseFloatList(thresholds)
		cfg.Analysis.ThresholdRange = nil
	}
	if useMemory {
		cfg.Storage.Backend = "memory"
	} else if postgresDSN != "" {
		cfg.Storage.Backend = "postgres"
		cfg.Storage.PostgresDSN = postgresDSN
	}
	if clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = clickhouseDSN
	}
}

func buildSource(cfg *config.Config) ingestion.Source {
	if cfg.Series.CSVPath != "" {
		return ingestion.NewFileSource(cfg.Series.CSVPath)
	}
	return ingestion.NewHTTPSource(cfg.Series.URL, &http.Client{Timeout: 30 * time.Second})
}

// allStores holds the storage implementations selected by config.
type allStores struct {
	seriesStore     storage.SeriesStore
	windowCAGRStore storage.WindowCAGRStore
	horizonStore    storage.HorizonResultStore
}

// createStores wires the configured backends. ClickHouse is optional and
// only carries the high-volume window CAGR points.
func createStores(ctx context.Context, cfg *config.Config) (*allStores, func(), error) {
	stores := &allStores{}
	cleanup := func() {}

	switch cfg.Storage.Backend {
	case "memory":
		stores.seriesStore = memory.NewSeriesStore()
		stores.horizonStore = memory.NewHorizonResultStore()
		stores.windowCAGRStore = memory.NewWindowCAGRStore()
	case "postgres":
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		stores.seriesStore = pgstore.NewSeriesStore(pool)
		stores.horizonStore = pgstore.NewHorizonResultStore(pool)
		cleanup = pool.Close
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		stores.windowCAGRStore = chstore.NewWindowCAGRStore(conn)
		prev := cleanup
		cleanup = func() {
			conn.Close()
			prev()
		}
	}

	return stores, cleanup, nil
}

func parseIntList(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var v int
		if _, err := fmt.Sscanf(part, "%d", &v); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func parseFloatList(s string) []float64 {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var v float64
		if _, err := fmt.Sscanf(part, "%g", &v); err == nil {
			out = append(out, v)
		}
	}
	return out
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
