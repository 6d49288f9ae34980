package engine

import (
	"errors"

	"convergence-lab/internal/domain"
)

// ErrNegativeThreshold is returned for spread searches with a threshold < 0.
var ErrNegativeThreshold = errors.New("spread threshold must be non-negative")

// SpreadHorizon finds the smallest holding period N for which the gap between
// the best and worst N-year window CAGRs is within threshold.
//
// Same shape as NoLossHorizon: N walks upward from 1, empty sets are skipped,
// and exhaustion reports the max feasible length's realized spread with
// MetCondition=false. The reported Spread is the exact realized value at the
// chosen horizon, which can be strictly below the threshold. Thresholds are
// opaque to the search beyond the non-negativity check.
func SpreadHorizon(series *domain.ReturnSeries, baselineYear int, threshold float64) (domain.SpreadResult, error) {
	if threshold < 0 {
		return domain.SpreadResult{}, ErrNegativeThreshold
	}

	maxFeasible := series.MaxFeasible(baselineYear)
	if maxFeasible == 0 {
		return domain.EmptySpreadResult(baselineYear, threshold, domain.NoteUnknownBaseline), nil
	}

	for n := 1; n <= maxFeasible; n++ {
		windows, err := RollingWindows(series, baselineYear, n)
		if err != nil {
			return domain.SpreadResult{}, err
		}
		if len(windows) == 0 {
			continue
		}

		stats := ComputeWindowStatistics(n, windows)
		spread := stats.BestCAGR - stats.WorstCAGR
		if spread <= threshold {
			return spreadResult(baselineYear, threshold, n, stats, spread, true, ""), nil
		}
	}

	windows, err := RollingWindows(series, baselineYear, maxFeasible)
	if err != nil {
		return domain.SpreadResult{}, err
	}
	if len(windows) == 0 {
		return domain.EmptySpreadResult(baselineYear, threshold, domain.NoteNoFeasibleWindows), nil
	}

	stats := ComputeWindowStatistics(maxFeasible, windows)
	spread := stats.BestCAGR - stats.WorstCAGR
	return spreadResult(baselineYear, threshold, maxFeasible, stats, spread, false, domain.NoteConditionNotMet), nil
}

func spreadResult(baselineYear int, threshold float64, n int, stats domain.WindowStatistics, spread float64, met bool, note string) domain.SpreadResult {
	return domain.SpreadResult{
		BaselineYear:    baselineYear,
		Threshold:       threshold,
		MinHoldingYears: n,
		BestWindow:      stats.BestWindow,
		BestCAGR:        stats.BestCAGR,
		WorstWindow:     stats.WorstWindow,
		WorstCAGR:       stats.WorstCAGR,
		Spread:          spread,
		MetCondition:    met,
		Note:            note,
	}
}
