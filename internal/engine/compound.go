// Package engine implements the rolling window analysis core: window
// compounding, rolling CAGR generation, per-window-size statistics, and the
// no-loss / spread-convergence horizon searches. All functions are pure over
// an immutable domain.ReturnSeries; every query is independent and safe to
// run concurrently.
package engine

import (
	"errors"
	"fmt"
	"math"

	"convergence-lab/internal/domain"
)

// floatTolerance is the snap threshold for final CAGR values. A CAGR within
// this distance of zero is reported as exactly 0 so that the no-loss
// comparison (cagr >= 0) is stable against representational noise.
// Intermediate log-sum accumulation is deliberately NOT clamped.
const floatTolerance = 1e-12

// ErrInvalidWindowSize is returned when a window length below 1 is requested.
var ErrInvalidWindowSize = errors.New("window size must be >= 1")

// InvalidReturnError reports an annual return at or below -100%, for which
// ln(1+r) and therefore compounding is undefined. It aborts the query that
// encountered it and must never be clamped away.
type InvalidReturnError struct {
	Year   int
	Return float64
}

func (e *InvalidReturnError) Error() string {
	return fmt.Sprintf("invalid return %.6f in year %d: annual returns must be > -1", e.Return, e.Year)
}

// CompoundCAGR computes the geometric-mean annualized return of a contiguous
// run of annual returns using the log-sum form
//
//	exp((1/N) * sum(ln(1 + r))) - 1
//
// which is algebraically identical to the raw product raised to 1/N but does
// not overflow over long horizons. The result is snapped to exactly 0 when
// within floatTolerance of it.
func CompoundCAGR(returns []domain.AnnualReturn) (float64, error) {
	n := len(returns)
	if n == 0 {
		return 0, ErrInvalidWindowSize
	}

	logSum := 0.0
	for _, r := range returns {
		if r.Return <= -1 {
			return 0, &InvalidReturnError{Year: r.Year, Return: r.Return}
		}
		logSum += math.Log(1 + r.Return)
	}

	cagr := math.Exp(logSum/float64(n)) - 1
	return snapZero(cagr), nil
}

// snapZero collapses values within floatTolerance of zero to exactly 0.
func snapZero(v float64) float64 {
	if math.Abs(v) < floatTolerance {
		return 0
	}
	return v
}
