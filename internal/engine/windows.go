package engine

import (
	"convergence-lab/internal/domain"
)

// RollingWindows enumerates every overlapping windowSize-year window of the
// series starting at baselineYear and computes each window's CAGR.
//
// An absent baseline year or insufficient trailing data yields an empty set,
// not an error: both are expected "no data" conditions that callers report
// and skip. Windows are emitted in increasing end-year order; that ordering
// is what makes first-occurrence tie-breaking in the aggregations
// reproducible. An InvalidReturnError from compounding propagates.
func RollingWindows(series *domain.ReturnSeries, baselineYear, windowSize int) (domain.WindowSet, error) {
	if windowSize < 1 {
		return nil, ErrInvalidWindowSize
	}

	startIdx := series.IndexOfYear(baselineYear)
	if startIdx < 0 {
		return nil, nil
	}
	if startIdx+windowSize > series.Len() {
		return nil, nil
	}

	returns := series.Returns()
	windows := make(domain.WindowSet, 0, series.Len()-startIdx-windowSize+1)

	for i := startIdx; i+windowSize <= len(returns); i++ {
		slice := returns[i : i+windowSize]
		cagr, err := CompoundCAGR(slice)
		if err != nil {
			return nil, err
		}
		windows = append(windows, domain.Window{
			StartYear: slice[0].Year,
			EndYear:   slice[windowSize-1].Year,
			CAGR:      cagr,
		})
	}

	return windows, nil
}
