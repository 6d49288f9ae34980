// Package reporting renders analysis results as CSV artifacts and a
// Markdown report.
package reporting

import "time"

// Report is the assembled, render-ready view of one analysis run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SeriesName  string
	FirstYear   int
	LastYear    int
	YearCount   int

	// Inputs echoed for the reader
	WindowSizes []int
	Thresholds  []float64

	// Per-baseline summary rows, sorted by (baseline_year, window_size)
	Summaries []SummaryRow

	// Horizon searches, sorted by baseline_year (and threshold for spreads)
	NoLossRows []NoLossRow
	SpreadRows []SpreadRow

	// Run-level problems: failed baselines, persistence errors
	IntegrityNotes []string
}

// SummaryRow is one (baseline, window size) statistics line.
type SummaryRow struct {
	BaselineYear int
	WindowSize   int
	BestWindow   string // "1942-1956"
	BestCAGR     float64
	WorstWindow  string
	WorstCAGR    float64
	AverageCAGR  float64
	SampleCount  int
}

// NoLossRow is one baseline's minimum no-loss horizon.
type NoLossRow struct {
	BaselineYear    int
	MinHoldingYears int
	WorstWindow     string
	WorstCAGR       float64
	BestWindow      string
	BestCAGR        float64
	AverageCAGR     float64
	WindowsChecked  int
	MetCondition    bool
	Note            string
}

// SpreadRow is one (baseline, threshold) convergence horizon.
type SpreadRow struct {
	BaselineYear    int
	Threshold       float64
	MinHoldingYears int
	BestWindow      string
	BestCAGR        float64
	WorstWindow     string
	WorstCAGR       float64
	Spread          float64
	MetCondition    bool
	Note            string
}
