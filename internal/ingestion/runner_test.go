package ingestion

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/observability"
	"convergence-lab/internal/storage"
	"convergence-lab/internal/storage/memory"
)

const fixtureCSV = "Year,Total Return\n1926,11.62%\n1927,37.49%\n1928,43.61%\n1929,-8.42%\n"

func TestHTTPSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, fixtureCSV)
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL, server.Client()).
		WithParseOptions(ParseOptions{CurrentYear: 2026})

	rows, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0].Year != 1926 {
		t.Errorf("expected first year 1926, got %d", rows[0].Year)
	}
}

func TestHTTPSource_FetchBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL, server.Client())
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Error("expected error on 503 response")
	}
}

func TestFileSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	source := NewFileSource(path).WithParseOptions(ParseOptions{CurrentYear: 2026})
	rows, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
}

func TestFileSource_FetchMissing(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "absent.csv"))
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunner_RunPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := memory.NewSeriesStore()
	source := NewFileSource(path).WithParseOptions(ParseOptions{CurrentYear: 2026})
	runner := NewRunner(source, store, log.New(io.Discard, "", 0))

	ctx := context.Background()
	series, err := runner.Run(ctx, "sp500")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if series.Len() != 4 || series.FirstYear() != 1926 || series.LastYear() != 1929 {
		t.Errorf("unexpected series: %d years %d-%d", series.Len(), series.FirstYear(), series.LastYear())
	}

	stored, err := store.GetSeries(ctx, "sp500")
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if len(stored) != 4 {
		t.Errorf("expected 4 stored rows, got %d", len(stored))
	}

	// Re-running skips existing rows instead of failing.
	if _, err := runner.Run(ctx, "sp500"); err != nil {
		t.Errorf("rerun: %v", err)
	}
	stored, err = store.GetSeries(ctx, "sp500")
	if err != nil {
		t.Fatalf("get after rerun: %v", err)
	}
	if len(stored) != 4 {
		t.Errorf("rerun changed row count to %d", len(stored))
	}
}

func TestRunner_RecordsStoredRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	store := memory.NewSeriesStore()
	source := NewFileSource(path).WithParseOptions(ParseOptions{CurrentYear: 2026})
	runner := NewRunner(source, store, log.New(io.Discard, "", 0))

	ctx := context.Background()
	before := testutil.ToFloat64(observability.DefaultMetrics.ReturnsStored)
	if _, err := runner.Run(ctx, "sp500"); err != nil {
		t.Fatalf("run: %v", err)
	}
	after := testutil.ToFloat64(observability.DefaultMetrics.ReturnsStored)
	if after-before != 4 {
		t.Errorf("expected 4 stored rows recorded, got %v", after-before)
	}

	// Rerun skips duplicates, so nothing new is recorded.
	if _, err := runner.Run(ctx, "sp500"); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if got := testutil.ToFloat64(observability.DefaultMetrics.ReturnsStored); got != after {
		t.Errorf("rerun changed stored counter from %v to %v", after, got)
	}
}

func TestRunner_FetchOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "returns.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	source := NewFileSource(path).WithParseOptions(ParseOptions{CurrentYear: 2026})
	runner := NewRunner(source, nil, log.New(io.Discard, "", 0))

	series, err := runner.Run(context.Background(), "sp500")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if series.Len() != 4 {
		t.Errorf("expected 4 years, got %d", series.Len())
	}
}

func TestLoadStored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSeriesStore()

	rows := []domain.AnnualReturn{
		{Year: 1926, Return: 0.1162},
		{Year: 1927, Return: 0.3749},
	}
	if err := store.InsertReturns(ctx, "sp500", rows); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	series, err := LoadStored(ctx, store, "sp500")
	if err != nil {
		t.Fatalf("load stored: %v", err)
	}
	if series.Len() != 2 || series.Name() != "sp500" {
		t.Errorf("unexpected series: %s with %d years", series.Name(), series.Len())
	}

	if _, err := LoadStored(ctx, store, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
