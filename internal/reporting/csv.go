package reporting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"convergence-lab/internal/orchestrator"
)

// RenderRollingCSV renders one baseline's rolling CAGR grids as CSV.
// Wide format: one row per window end year, one column per window size.
// Cells are empty where a window of that size does not end in that year.
func RenderRollingCSV(grids []orchestrator.WindowGrid) string {
	var sb strings.Builder

	// Header
	sb.WriteString("end_year")
	for _, grid := range grids {
		sb.WriteString(fmt.Sprintf(",cagr_%dy", grid.WindowSize))
	}
	sb.WriteString("\n")

	// Collect the union of end years
	endYearSet := make(map[int]struct{})
	cells := make(map[int]map[int]float64) // end year -> window size -> cagr
	for _, grid := range grids {
		for _, w := range grid.Windows {
			endYearSet[w.EndYear] = struct{}{}
			if cells[w.EndYear] == nil {
				cells[w.EndYear] = make(map[int]float64)
			}
			cells[w.EndYear][grid.WindowSize] = w.CAGR
		}
	}

	endYears := make([]int, 0, len(endYearSet))
	for y := range endYearSet {
		endYears = append(endYears, y)
	}
	sort.Ints(endYears)

	// Rows
	for _, year := range endYears {
		sb.WriteString(fmt.Sprintf("%d", year))
		for _, grid := range grids {
			sb.WriteString(",")
			if cagr, ok := cells[year][grid.WindowSize]; ok {
				sb.WriteString(formatCAGR(cagr))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderSummaryCSV renders one baseline's per-size statistics as CSV.
func RenderSummaryCSV(rows []SummaryRow) string {
	var sb strings.Builder

	sb.WriteString("window_size,best_window,best_cagr,worst_window,worst_cagr,average_cagr,sample_count\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%d\n",
			r.WindowSize,
			r.BestWindow, formatCAGR(r.BestCAGR),
			r.WorstWindow, formatCAGR(r.WorstCAGR),
			formatCAGR(r.AverageCAGR),
			r.SampleCount,
		))
	}

	return sb.String()
}

// RenderNoLossCSV renders the minimum no-loss horizon table as CSV.
func RenderNoLossCSV(rows []NoLossRow) string {
	var sb strings.Builder

	sb.WriteString("baseline_year,min_holding_years,worst_window,worst_cagr,best_window,best_cagr,")
	sb.WriteString("average_cagr,windows_checked,met_condition,note\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%d,%s,%s,%s,%s,%s,%d,%t,%s\n",
			r.BaselineYear, r.MinHoldingYears,
			r.WorstWindow, formatCAGR(r.WorstCAGR),
			r.BestWindow, formatCAGR(r.BestCAGR),
			formatCAGR(r.AverageCAGR),
			r.WindowsChecked, r.MetCondition, r.Note,
		))
	}

	return sb.String()
}

// RenderSpreadGridCSV renders spread horizons as a grid: one row per
// baseline, one column per threshold, cell = minimum holding years.
// An asterisk marks cells where the threshold was never met and the
// max-feasible horizon is reported instead.
func RenderSpreadGridCSV(rows []SpreadRow, thresholds []float64) string {
	var sb strings.Builder

	sb.WriteString("baseline_year")
	for _, thr := range thresholds {
		sb.WriteString(fmt.Sprintf(",spread_%s", trimFloat(thr)))
	}
	sb.WriteString("\n")

	// Group by baseline, preserving row order within a baseline.
	cells := make(map[int]map[float64]SpreadRow)
	var baselines []int
	for _, r := range rows {
		if cells[r.BaselineYear] == nil {
			cells[r.BaselineYear] = make(map[float64]SpreadRow)
			baselines = append(baselines, r.BaselineYear)
		}
		cells[r.BaselineYear][r.Threshold] = r
	}
	sort.Ints(baselines)

	for _, baseline := range baselines {
		sb.WriteString(fmt.Sprintf("%d", baseline))
		for _, thr := range thresholds {
			sb.WriteString(",")
			if r, ok := cells[baseline][thr]; ok {
				if r.MetCondition {
					sb.WriteString(fmt.Sprintf("%d", r.MinHoldingYears))
				} else {
					sb.WriteString(fmt.Sprintf("%d*", r.MinHoldingYears))
				}
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatCAGR renders a CAGR with six decimals, or empty for NaN
// (no feasible windows).
func formatCAGR(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.6f", v)
}

// trimFloat renders a threshold without trailing zeros (0.0025, not 0.002500).
func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
