package engine

import (
	"convergence-lab/internal/domain"
)

// ComputeWindowStatistics summarizes one window set: best and worst window
// (first occurrence in end-year order wins ties), unweighted arithmetic mean
// of the CAGRs, and the sample count. An empty set yields the zero-count
// statistics with NaN numeric fields rather than an error, so that missing
// data for one window size never aborts the rest of a batch.
//
// Median is intentionally not part of this aggregation.
func ComputeWindowStatistics(windowSize int, windows domain.WindowSet) domain.WindowStatistics {
	if len(windows) == 0 {
		return domain.EmptyWindowStatistics(windowSize)
	}

	best := windows[0]
	worst := windows[0]
	sum := 0.0

	for _, w := range windows {
		if w.CAGR > best.CAGR {
			best = w
		}
		if w.CAGR < worst.CAGR {
			worst = w
		}
		sum += w.CAGR
	}

	return domain.WindowStatistics{
		WindowSize:  windowSize,
		BestWindow:  best,
		BestCAGR:    best.CAGR,
		WorstWindow: worst,
		WorstCAGR:   worst.CAGR,
		AverageCAGR: sum / float64(len(windows)),
		SampleCount: len(windows),
	}
}

// WindowStatisticsFor generates the window set for (baselineYear, windowSize)
// and summarizes it in one call.
func WindowStatisticsFor(series *domain.ReturnSeries, baselineYear, windowSize int) (domain.WindowStatistics, error) {
	windows, err := RollingWindows(series, baselineYear, windowSize)
	if err != nil {
		return domain.WindowStatistics{}, err
	}
	return ComputeWindowStatistics(windowSize, windows), nil
}
