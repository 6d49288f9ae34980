// Package main provides a unified service that re-ingests the return
// series and re-runs the rolling-window analysis on a schedule, exposing
// status, Prometheus metrics and a WebSocket progress stream.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"convergence-lab/internal/config"
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

// Server holds all components of the unified service.
type Server struct {
	cfg      *config.Config
	interval time.Duration
	stores   *allStores
	hub      *progressHub
	logger   *log.Logger

	// State
	mu          sync.Mutex
	started     time.Time
	lastRun     time.Time
	lastError   string
	runs        int
	runFailures int
	running     bool
}

// allStores holds the storage implementations selected by config.
type allStores struct {
	seriesStore     storage.SeriesStore
	windowCAGRStore storage.WindowCAGRStore
	horizonStore    storage.HorizonResultStore
}

func main() {
	loadEnvFile()

	configPath := flag.String("config", "", "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	interval := flag.Duration("analyze-interval", 24*time.Hour, "Analysis run interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *useMemory {
		cfg.Storage.Backend = "memory"
	} else if *postgresDSN != "" {
		cfg.Storage.Backend = "postgres"
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		cfg:      cfg,
		interval: *interval,
		stores:   stores,
		hub:      newProgressHub(),
		logger:   logger,
		started:  time.Now(),
	}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(*addr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// createStores wires the configured backends.
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

// Run executes an analysis immediately, then on every tick.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting analysis scheduler (interval: %v)...", s.interval)

	s.runAnalysis(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runAnalysis(ctx)
		}
	}
}

// runAnalysis performs one ingest-analyze-report cycle.
func (s *Server) runAnalysis(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Println("Analysis already running, skipping...")
		return
	}
	s.running = true
	s.mu.Unlock()

	var runErr error
	defer func() {
		s.mu.Lock()
		s.running = false
		s.lastRun = time.Now()
		s.runs++
		if runErr != nil {
			s.runFailures++
			s.lastError = runErr.Error()
		} else {
			s.lastError = ""
		}
		s.mu.Unlock()
	}()

	s.logger.Println("Running analysis...")
	start := time.Now()

	source := buildSource(s.cfg)
	fetchStart := time.Now()
	runner := ingestion.NewRunner(source, s.stores.seriesStore, s.logger)
	series, err := runner.Run(ctx, s.cfg.Series.Name)
	if err != nil {
		observability.RecordIngestionError("fetch")
		s.logger.Printf("Ingestion error: %v", err)
		runErr = err
		return
	}
	observability.RecordFetch(series.Len(), time.Since(fetchStart).Seconds())
	observability.DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()

	orch := orchestrator.New(orchestrator.Options{
		WindowCAGRStore: s.stores.windowCAGRStore,
		HorizonStore:    s.stores.horizonStore,
		Request:         s.cfg.Request(),
		OnProgress:      s.hub.broadcastProgress,
		Verbose:         true,
	})

	result, err := orch.Run(ctx, series)
	if err != nil {
		observability.RecordAnalysisRun("error", time.Since(start).Seconds(), 0, 0)
		s.logger.Printf("Analysis error: %v", err)
		runErr = err
		return
	}
	observability.RecordAnalysisRun("success", time.Since(start).Seconds(),
		result.WindowsComputed, len(result.Baselines))
	observability.DefaultMetrics.LastSuccessfulAnalysis.SetToCurrentTime()

	for _, msg := range result.Errors {
		s.logger.Printf("WARNING: %s", msg)
	}

	if err := reporting.NewGenerator().WriteFiles(s.cfg.Output.Dir, series, result); err != nil {
		s.logger.Printf("Report generation error: %v", err)
		runErr = err
		return
	}
	observability.RecordReportGenerated()

	s.hub.broadcast(map[string]interface{}{
		"event":            "run_completed",
		"series":           series.Name(),
		"windows_computed": result.WindowsComputed,
		"baselines":        len(result.Baselines),
		"duration":         time.Since(start).String(),
	})

	s.logger.Printf("Analysis completed in %v: %d windows, %d baselines, reports in %s/",
		time.Since(start), result.WindowsComputed, len(result.Baselines), s.cfg.Output.Dir)
}

func buildSource(cfg *config.Config) ingestion.Source {
	if cfg.Series.CSVPath != "" {
		return ingestion.NewFileSource(cfg.Series.CSVPath)
	}
	return ingestion.NewHTTPSource(cfg.Series.URL, &http.Client{Timeout: 30 * time.Second})
}

// startHTTPServer starts the HTTP server for health/metrics/status/progress.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.hub.handleWS)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Series      string    `json:"series"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Runs        int       `json:"runs"`
	RunFailures int       `json:"run_failures"`
	Running     bool      `json:"running"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Series:      s.cfg.Series.Name,
		LastRun:     s.lastRun,
		LastError:   s.lastError,
		Runs:        s.runs,
		RunFailures: s.runFailures,
		Running:     s.running,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// progressHub fans analysis progress out to WebSocket subscribers.
type progressHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	upgrader websocket.Upgrader
}

func newProgressHub() *progressHub {
	return &progressHub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// handleWS upgrades the connection and keeps it registered until the
// client disconnects. Clients only receive; inbound messages are drained.
func (h *progressHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	observability.DefaultMetrics.ConnectedClients.Set(float64(len(h.clients)))
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		observability.DefaultMetrics.ConnectedClients.Set(float64(len(h.clients)))
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcastProgress adapts orchestrator progress to the wire format.
func (h *progressHub) broadcastProgress(p orchestrator.Progress) {
	h.broadcast(map[string]interface{}{
		"event":         "baseline_completed",
		"series":        p.SeriesName,
		"baseline_year": p.BaselineYear,
		"completed":     p.Completed,
		"total":         p.Total,
	})
}

// broadcast sends a JSON message to every connected client. Clients that
// fail to receive are dropped.
func (h *progressHub) broadcast(v interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(v); err != nil {
			delete(h.clients, conn)
			conn.Close()
		}
	}
	observability.DefaultMetrics.ConnectedClients.Set(float64(len(h.clients)))
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
