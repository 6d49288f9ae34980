package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/orchestrator"
)

// Generator assembles reports from analysis results.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Build assembles a Report from a completed run.
func (g *Generator) Build(series *domain.ReturnSeries, result *orchestrator.RunResult) *Report {
	report := &Report{
		GeneratedAt: g.now(),
		SeriesName:  series.Name(),
		FirstYear:   series.FirstYear(),
		LastYear:    series.LastYear(),
		YearCount:   series.Len(),
	}

	seenSizes := make(map[int]struct{})
	seenThresholds := make(map[float64]struct{})

	for _, br := range result.Baselines {
		for _, stats := range br.Statistics {
			if _, ok := seenSizes[stats.WindowSize]; !ok {
				seenSizes[stats.WindowSize] = struct{}{}
				report.WindowSizes = append(report.WindowSizes, stats.WindowSize)
			}
			report.Summaries = append(report.Summaries, summaryRow(br.BaselineYear, stats))
		}

		report.NoLossRows = append(report.NoLossRows, noLossRow(br.NoLoss))

		for _, spread := range br.Spreads {
			if _, ok := seenThresholds[spread.Threshold]; !ok {
				seenThresholds[spread.Threshold] = struct{}{}
				report.Thresholds = append(report.Thresholds, spread.Threshold)
			}
			report.SpreadRows = append(report.SpreadRows, spreadRow(spread))
		}
	}

	report.IntegrityNotes = append(report.IntegrityNotes, result.Errors...)

	return report
}

// WriteFiles writes all report artifacts for a run into dir:
//
//	rolling_cagr_<baseline>.csv   per baseline, the raw window grid
//	rolling_summary_<baseline>.csv per baseline, per-size statistics
//	min_no_loss_summary.csv       all baselines
//	min_spread_grid.csv           baselines x thresholds
//	REPORT.md                     human-readable summary
func (g *Generator) WriteFiles(dir string, series *domain.ReturnSeries, result *orchestrator.RunResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	report := g.Build(series, result)

	for _, br := range result.Baselines {
		name := fmt.Sprintf("rolling_cagr_%d.csv", br.BaselineYear)
		if err := writeFile(dir, name, RenderRollingCSV(br.Grids)); err != nil {
			return err
		}

		var rows []SummaryRow
		for _, stats := range br.Statistics {
			rows = append(rows, summaryRow(br.BaselineYear, stats))
		}
		name = fmt.Sprintf("rolling_summary_%d.csv", br.BaselineYear)
		if err := writeFile(dir, name, RenderSummaryCSV(rows)); err != nil {
			return err
		}
	}

	if err := writeFile(dir, "min_no_loss_summary.csv", RenderNoLossCSV(report.NoLossRows)); err != nil {
		return err
	}
	if err := writeFile(dir, "min_spread_grid.csv", RenderSpreadGridCSV(report.SpreadRows, report.Thresholds)); err != nil {
		return err
	}
	if err := writeFile(dir, "REPORT.md", RenderMarkdown(report)); err != nil {
		return err
	}

	return nil
}

func writeFile(dir, name, content string) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func summaryRow(baselineYear int, stats domain.WindowStatistics) SummaryRow {
	row := SummaryRow{
		BaselineYear: baselineYear,
		WindowSize:   stats.WindowSize,
		BestCAGR:     stats.BestCAGR,
		WorstCAGR:    stats.WorstCAGR,
		AverageCAGR:  stats.AverageCAGR,
		SampleCount:  stats.SampleCount,
	}
	if stats.SampleCount > 0 {
		row.BestWindow = stats.BestWindow.Label()
		row.WorstWindow = stats.WorstWindow.Label()
	}
	return row
}

func noLossRow(r domain.NoLossResult) NoLossRow {
	row := NoLossRow{
		BaselineYear:    r.BaselineYear,
		MinHoldingYears: r.MinHoldingYears,
		WorstCAGR:       r.WorstCAGR,
		BestCAGR:        r.BestCAGR,
		AverageCAGR:     r.AverageCAGR,
		WindowsChecked:  r.WindowsChecked,
		MetCondition:    r.MetCondition,
		Note:            r.Note,
	}
	if r.WindowsChecked > 0 {
		row.WorstWindow = r.WorstWindow.Label()
		row.BestWindow = r.BestWindow.Label()
	}
	return row
}

func spreadRow(r domain.SpreadResult) SpreadRow {
	row := SpreadRow{
		BaselineYear:    r.BaselineYear,
		Threshold:       r.Threshold,
		MinHoldingYears: r.MinHoldingYears,
		BestCAGR:        r.BestCAGR,
		WorstCAGR:       r.WorstCAGR,
		Spread:          r.Spread,
		MetCondition:    r.MetCondition,
		Note:            r.Note,
	}
	if r.MinHoldingYears > 0 {
		row.BestWindow = r.BestWindow.Label()
		row.WorstWindow = r.WorstWindow.Label()
	}
	return row
}
