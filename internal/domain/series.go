package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidSeries is returned when a return series fails construction validation.
var ErrInvalidSeries = errors.New("invalid return series")

// AnnualReturn is one calendar year's total return as a decimal fraction
// (0.10 means +10%, not 10).
type AnnualReturn struct {
	Year   int
	Return float64
}

// ReturnSeries is an immutable, chronologically ordered sequence of annual
// returns. Years are unique and strictly increasing. Construct via
// NewReturnSeries; the zero value is empty and unusable.
type ReturnSeries struct {
	name    string
	returns []AnnualReturn
}

// NewReturnSeries validates and wraps a sequence of annual returns.
// Requirements: at least one entry, years strictly increasing, returns in
// decimal form. The input slice is copied; callers keep ownership of theirs.
func NewReturnSeries(name string, returns []AnnualReturn) (*ReturnSeries, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: series %q is empty", ErrInvalidSeries, name)
	}

	for i := 1; i < len(returns); i++ {
		if returns[i].Year <= returns[i-1].Year {
			return nil, fmt.Errorf("%w: series %q years not strictly increasing at %d (%d after %d)",
				ErrInvalidSeries, name, i, returns[i].Year, returns[i-1].Year)
		}
	}

	copied := make([]AnnualReturn, len(returns))
	copy(copied, returns)

	return &ReturnSeries{name: name, returns: copied}, nil
}

// Name returns the series identifier (e.g. "sp500").
func (s *ReturnSeries) Name() string { return s.name }

// Len returns the number of years in the series.
func (s *ReturnSeries) Len() int { return len(s.returns) }

// At returns the i-th annual return (chronological order).
func (s *ReturnSeries) At(i int) AnnualReturn { return s.returns[i] }

// FirstYear returns the earliest year in the series.
func (s *ReturnSeries) FirstYear() int { return s.returns[0].Year }

// LastYear returns the latest year in the series.
func (s *ReturnSeries) LastYear() int { return s.returns[len(s.returns)-1].Year }

// IndexOfYear returns the position of year in the series, or -1 if absent.
func (s *ReturnSeries) IndexOfYear(year int) int {
	// Years are strictly increasing, so binary search would work, but series
	// are at most ~100 entries long.
	for i, r := range s.returns {
		if r.Year == year {
			return i
		}
	}
	return -1
}

// MaxFeasible returns the longest window length that fits between baselineYear
// and the end of the series, or 0 if the baseline year is absent.
func (s *ReturnSeries) MaxFeasible(baselineYear int) int {
	idx := s.IndexOfYear(baselineYear)
	if idx < 0 {
		return 0
	}
	return len(s.returns) - idx
}

// Returns returns a copy of the underlying annual returns.
func (s *ReturnSeries) Returns() []AnnualReturn {
	copied := make([]AnnualReturn, len(s.returns))
	copy(copied, s.returns)
	return copied
}
