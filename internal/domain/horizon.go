package domain

import "math"

// Notes attached to horizon results when a search ends without a genuine hit.
const (
	NoteConditionNotMet   = "condition not met - max feasible horizon used"
	NoteNoFeasibleWindows = "no feasible windows"
	NoteUnknownBaseline   = "baseline year not in series"
)

// NoLossResult is the outcome of a minimum no-loss horizon search for one
// baseline year. MetCondition distinguishes a true answer from the
// max-feasible fallback.
type NoLossResult struct {
	BaselineYear    int
	MinHoldingYears int
	WorstWindow     Window
	WorstCAGR       float64
	BestWindow      Window
	BestCAGR        float64
	AverageCAGR     float64
	WindowsChecked  int
	MetCondition    bool
	Note            string
}

// SpreadResult is the outcome of a spread-convergence horizon search for one
// (baseline year, threshold) pair. Spread is the realized best-worst gap at
// the reported horizon, which may be strictly below the threshold.
type SpreadResult struct {
	BaselineYear    int
	Threshold       float64
	MinHoldingYears int
	BestWindow      Window
	BestCAGR        float64
	WorstWindow     Window
	WorstCAGR       float64
	Spread          float64
	MetCondition    bool
	Note            string
}

// EmptyNoLossResult returns the "no feasible windows" result for a baseline.
func EmptyNoLossResult(baselineYear int, note string) NoLossResult {
	return NoLossResult{
		BaselineYear: baselineYear,
		WorstCAGR:    math.NaN(),
		BestCAGR:     math.NaN(),
		AverageCAGR:  math.NaN(),
		Note:         note,
	}
}

// EmptySpreadResult returns the "no feasible windows" result for a
// (baseline, threshold) pair.
func EmptySpreadResult(baselineYear int, threshold float64, note string) SpreadResult {
	return SpreadResult{
		BaselineYear: baselineYear,
		Threshold:    threshold,
		BestCAGR:     math.NaN(),
		WorstCAGR:    math.NaN(),
		Spread:       math.NaN(),
		Note:         note,
	}
}
