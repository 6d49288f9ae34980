package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Rolling Window Analysis Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Series: %s | Years: %d-%d (%d annual returns)\n\n",
		r.SeriesName, r.FirstYear, r.LastYear, r.YearCount))

	// Window Statistics
	sb.WriteString("## Window Statistics\n\n")
	if len(r.Summaries) > 0 {
		sb.WriteString("| Baseline | Window | Best | Best CAGR | Worst | Worst CAGR | Average | Samples |\n")
		sb.WriteString("|----------|--------|------|-----------|-------|------------|---------|--------|\n")
		for _, s := range r.Summaries {
			sb.WriteString(fmt.Sprintf("| %d | %dy | %s | %s | %s | %s | %s | %d |\n",
				s.BaselineYear, s.WindowSize,
				orDash(s.BestWindow), formatPct(s.BestCAGR),
				orDash(s.WorstWindow), formatPct(s.WorstCAGR),
				formatPct(s.AverageCAGR), s.SampleCount))
		}
	} else {
		sb.WriteString("No window statistics available.\n")
	}
	sb.WriteString("\n")

	// No-Loss Horizons
	sb.WriteString("## Minimum No-Loss Holding Periods\n\n")
	if len(r.NoLossRows) > 0 {
		sb.WriteString("| Baseline | Min Years | Worst | Worst CAGR | Best | Best CAGR | Note |\n")
		sb.WriteString("|----------|-----------|-------|------------|------|-----------|------|\n")
		for _, row := range r.NoLossRows {
			sb.WriteString(fmt.Sprintf("| %d | %d | %s | %s | %s | %s | %s |\n",
				row.BaselineYear, row.MinHoldingYears,
				orDash(row.WorstWindow), formatPct(row.WorstCAGR),
				orDash(row.BestWindow), formatPct(row.BestCAGR),
				orDash(row.Note)))
		}
	} else {
		sb.WriteString("No no-loss results available.\n")
	}
	sb.WriteString("\n")

	// Spread Convergence
	sb.WriteString("## Spread Convergence Horizons\n\n")
	if len(r.SpreadRows) > 0 {
		sb.WriteString("| Baseline | Threshold | Min Years | Spread | Best | Worst | Note |\n")
		sb.WriteString("|----------|-----------|-----------|--------|------|-------|------|\n")
		for _, row := range r.SpreadRows {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %s | %s | %s |\n",
				row.BaselineYear, formatPct(row.Threshold), row.MinHoldingYears,
				formatPct(row.Spread),
				orDash(row.BestWindow), orDash(row.WorstWindow),
				orDash(row.Note)))
		}
	} else {
		sb.WriteString("No spread results available.\n")
	}
	sb.WriteString("\n")

	// Integrity Notes
	sb.WriteString("## Integrity Notes\n\n")
	if len(r.IntegrityNotes) > 0 {
		for _, note := range r.IntegrityNotes {
			sb.WriteString(fmt.Sprintf("- %s\n", note))
		}
	} else {
		sb.WriteString("No integrity issues detected.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// formatPct renders a decimal fraction as a percentage with two decimals.
func formatPct(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
