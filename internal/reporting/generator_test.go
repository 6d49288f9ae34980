package reporting

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/orchestrator"
)

func setupRun(t *testing.T) (*domain.ReturnSeries, *orchestrator.RunResult) {
	t.Helper()

	pattern := []float64{0.15, -0.10, 0.22, 0.05, -0.03, 0.18, 0.09, 0.01}
	var returns []domain.AnnualReturn
	for i := 0; i < 50; i++ {
		returns = append(returns, domain.AnnualReturn{Year: 1926 + i, Return: pattern[i%len(pattern)]})
	}
	series, err := domain.NewReturnSeries("sp500", returns)
	if err != nil {
		t.Fatalf("build series: %v", err)
	}

	orch := orchestrator.New(orchestrator.Options{Request: domain.AnalysisRequest{
		Baselines:   []int{1926, 1940},
		WindowSizes: []int{5, 10},
		Thresholds:  []float64{0.0025, 0.01},
	}})
	result, err := orch.Run(context.Background(), series)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	return series, result
}

func TestGenerator_Build(t *testing.T) {
	series, result := setupRun(t)

	fixed := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	report := NewGenerator().WithClock(func() time.Time { return fixed }).Build(series, result)

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("expected fixed clock, got %v", report.GeneratedAt)
	}
	if report.SeriesName != "sp500" || report.FirstYear != 1926 || report.LastYear != 1975 {
		t.Errorf("unexpected metadata: %s %d-%d", report.SeriesName, report.FirstYear, report.LastYear)
	}
	if report.YearCount != 50 {
		t.Errorf("expected 50 years, got %d", report.YearCount)
	}

	// 2 baselines x 2 window sizes
	if len(report.Summaries) != 4 {
		t.Fatalf("expected 4 summary rows, got %d", len(report.Summaries))
	}
	if report.Summaries[0].BaselineYear != 1926 || report.Summaries[0].WindowSize != 5 {
		t.Errorf("unexpected first summary row: %+v", report.Summaries[0])
	}

	if len(report.NoLossRows) != 2 {
		t.Fatalf("expected 2 no-loss rows, got %d", len(report.NoLossRows))
	}
	// 2 baselines x 2 thresholds
	if len(report.SpreadRows) != 4 {
		t.Fatalf("expected 4 spread rows, got %d", len(report.SpreadRows))
	}
	if len(report.Thresholds) != 2 || report.Thresholds[0] != 0.0025 {
		t.Errorf("unexpected thresholds: %v", report.Thresholds)
	}
}

func TestRenderRollingCSV(t *testing.T) {
	_, result := setupRun(t)

	csv := RenderRollingCSV(result.Baselines[0].Grids)
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	if lines[0] != "end_year,cagr_5y,cagr_10y" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	// The first 5-year window ends in 1930; no 10-year window ends there.
	if !strings.HasPrefix(lines[1], "1930,") {
		t.Errorf("expected first row for 1930, got %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",") {
		t.Errorf("expected empty 10y cell in 1930 row, got %q", lines[1])
	}
	// From 1935 on both columns are filled.
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			t.Fatalf("expected 3 fields per row, got %q", line)
		}
	}
}

func TestRenderSummaryCSV(t *testing.T) {
	series, result := setupRun(t)

	report := NewGenerator().Build(series, result)
	csv := RenderSummaryCSV(report.Summaries[:2])
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	if lines[0] != "window_size,best_window,best_cagr,worst_window,worst_cagr,average_cagr,sample_count" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "5,") {
		t.Errorf("expected 5y row first, got %q", lines[1])
	}
}

func TestRenderSpreadGridCSV(t *testing.T) {
	rows := []SpreadRow{
		{BaselineYear: 1926, Threshold: 0.0025, MinHoldingYears: 39, MetCondition: false},
		{BaselineYear: 1926, Threshold: 0.01, MinHoldingYears: 31, MetCondition: true},
		{BaselineYear: 1957, Threshold: 0.0025, MinHoldingYears: 25, MetCondition: true},
		{BaselineYear: 1957, Threshold: 0.01, MinHoldingYears: 18, MetCondition: true},
	}

	csv := RenderSpreadGridCSV(rows, []float64{0.0025, 0.01})
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	if lines[0] != "baseline_year,spread_0.0025,spread_0.01" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	// Fallback cells are marked with an asterisk.
	if lines[1] != "1926,39*,31" {
		t.Errorf("unexpected 1926 row: %q", lines[1])
	}
	if lines[2] != "1957,25,18" {
		t.Errorf("unexpected 1957 row: %q", lines[2])
	}
}

func TestRenderMarkdown(t *testing.T) {
	series, result := setupRun(t)

	fixed := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	report := NewGenerator().WithClock(func() time.Time { return fixed }).Build(series, result)
	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Rolling Window Analysis Report",
		"Generated: 2026-01-15T12:00:00Z",
		"Series: sp500 | Years: 1926-1975 (50 annual returns)",
		"## Window Statistics",
		"## Minimum No-Loss Holding Periods",
		"## Spread Convergence Horizons",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	report := &Report{GeneratedAt: time.Now(), SeriesName: "empty"}
	md := RenderMarkdown(report)

	if !strings.Contains(md, "No window statistics available.") {
		t.Error("expected empty-statistics message")
	}
	if !strings.Contains(md, "No no-loss results available.") {
		t.Error("expected empty no-loss message")
	}
	if !strings.Contains(md, "No spread results available.") {
		t.Error("expected empty spread message")
	}
	if !strings.Contains(md, "No integrity issues detected.") {
		t.Error("expected empty integrity-notes message")
	}
}

func TestRenderMarkdown_IntegrityNotes(t *testing.T) {
	series, result := setupRun(t)
	result.Errors = append(result.Errors, "analyze baseline 1926: invalid return -1.500000 in year 1926")

	md := RenderMarkdown(NewGenerator().Build(series, result))

	if !strings.Contains(md, "## Integrity Notes") {
		t.Fatal("expected integrity notes section")
	}
	if !strings.Contains(md, "- analyze baseline 1926: invalid return -1.500000 in year 1926") {
		t.Error("expected run error rendered as a note")
	}
	if strings.Contains(md, "No integrity issues detected.") {
		t.Error("empty-state message rendered alongside notes")
	}
}

func TestGenerator_WriteFiles(t *testing.T) {
	series, result := setupRun(t)

	dir := t.TempDir()
	err := NewGenerator().WriteFiles(dir, series, result)
	if err != nil {
		t.Fatalf("write files: %v", err)
	}

	want := []string{
		"rolling_cagr_1926.csv",
		"rolling_cagr_1940.csv",
		"rolling_summary_1926.csv",
		"rolling_summary_1940.csv",
		"min_no_loss_summary.csv",
		"min_spread_grid.csv",
		"REPORT.md",
	}
	for _, name := range want {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("artifact %s is empty", name)
		}
	}
}
