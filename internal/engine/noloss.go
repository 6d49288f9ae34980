package engine

import (
	"convergence-lab/internal/domain"
)

// NoLossHorizon finds the smallest holding period N for which no N-year
// window starting at or after baselineYear has a negative CAGR.
//
// The search walks N upward from 1, regenerating the window set at each
// length. Empty sets are skipped (insufficient data at that length is not a
// stopping condition). If N reaches the maximum feasible length without the
// minimum CAGR turning non-negative, the result reports that length's actual
// statistics with MetCondition=false so callers can tell the fallback apart
// from a genuine answer. An unknown baseline yields the empty result.
func NoLossHorizon(series *domain.ReturnSeries, baselineYear int) (domain.NoLossResult, error) {
	maxFeasible := series.MaxFeasible(baselineYear)
	if maxFeasible == 0 {
		return domain.EmptyNoLossResult(baselineYear, domain.NoteUnknownBaseline), nil
	}

	for n := 1; n <= maxFeasible; n++ {
		windows, err := RollingWindows(series, baselineYear, n)
		if err != nil {
			return domain.NoLossResult{}, err
		}
		if len(windows) == 0 {
			continue
		}

		stats := ComputeWindowStatistics(n, windows)
		if stats.WorstCAGR >= 0 {
			return noLossResult(baselineYear, n, stats, true, ""), nil
		}
	}

	// Condition never met: report the max feasible horizon's statistics.
	windows, err := RollingWindows(series, baselineYear, maxFeasible)
	if err != nil {
		return domain.NoLossResult{}, err
	}
	if len(windows) == 0 {
		return domain.EmptyNoLossResult(baselineYear, domain.NoteNoFeasibleWindows), nil
	}

	stats := ComputeWindowStatistics(maxFeasible, windows)
	return noLossResult(baselineYear, maxFeasible, stats, false, domain.NoteConditionNotMet), nil
}

func noLossResult(baselineYear, n int, stats domain.WindowStatistics, met bool, note string) domain.NoLossResult {
	return domain.NoLossResult{
		BaselineYear:    baselineYear,
		MinHoldingYears: n,
		WorstWindow:     stats.WorstWindow,
		WorstCAGR:       stats.WorstCAGR,
		BestWindow:      stats.BestWindow,
		BestCAGR:        stats.BestCAGR,
		AverageCAGR:     stats.AverageCAGR,
		WindowsChecked:  stats.SampleCount,
		MetCondition:    met,
		Note:            note,
	}
}
