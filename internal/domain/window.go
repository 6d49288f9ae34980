package domain

import (
	"fmt"
	"math"
)

// Window is one contiguous span of consecutive years with its annualized
// compound return. Ephemeral: produced and consumed within a single analysis.
type Window struct {
	StartYear int
	EndYear   int
	CAGR      float64
}

// Label renders the window span as "1926-1945" for reports.
func (w Window) Label() string {
	return fmt.Sprintf("%d-%d", w.StartYear, w.EndYear)
}

// WindowSet is the ordered collection of all windows for one
// (baseline year, window size) pair, in increasing end-year order.
// That ordering drives first-occurrence tie-breaking for best/worst.
type WindowSet []Window

// WindowStatistics summarizes one WindowSet. When SampleCount is 0 the
// numeric fields are NaN and the window labels empty.
type WindowStatistics struct {
	WindowSize  int
	BestWindow  Window
	BestCAGR    float64
	WorstWindow Window
	WorstCAGR   float64
	AverageCAGR float64
	SampleCount int
}

// EmptyWindowStatistics returns the "no data" statistics for a window size.
func EmptyWindowStatistics(windowSize int) WindowStatistics {
	return WindowStatistics{
		WindowSize:  windowSize,
		BestCAGR:    math.NaN(),
		WorstCAGR:   math.NaN(),
		AverageCAGR: math.NaN(),
	}
}

// WindowCAGRPoint is the persisted form of one rolling window CAGR,
// keyed by (series, baseline year, window size, end year).
type WindowCAGRPoint struct {
	SeriesName   string
	BaselineYear int
	WindowSize   int
	StartYear    int
	EndYear      int
	CAGR         float64
}
