package engine

import (
	"errors"
	"math"
	"testing"

	"convergence-lab/internal/domain"
)

func TestSpreadHorizon_LargeThresholdFindsOne(t *testing.T) {
	// Threshold wider than the N=1 spread → Found(1) immediately.
	series := makeSeries(t, []domain.AnnualReturn{
		{Year: 1980, Return: 0.25},
		{Year: 1981, Return: -0.05},
		{Year: 1982, Return: 0.15},
	})

	result, err := SpreadHorizon(series, 1980, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.MetCondition {
		t.Error("expected MetCondition=true")
	}
	if result.MinHoldingYears != 1 {
		t.Errorf("expected horizon 1, got %d", result.MinHoldingYears)
	}
	// N=1 spread = 0.25 - (-0.05) = 0.30; the realized value is reported.
	if math.Abs(result.Spread-0.30) > 1e-12 {
		t.Errorf("expected realized spread 0.30, got %f", result.Spread)
	}
}

func TestSpreadHorizon_ConvergencePoint(t *testing.T) {
	// At the reported horizon the spread must be within the threshold, and
	// at the previous length (where windows exist) it must exceed it.
	series := makeSeries(t, []domain.AnnualReturn{
		{Year: 1926, Return: 0.1162}, {Year: 1927, Return: 0.3749},
		{Year: 1928, Return: 0.4361}, {Year: 1929, Return: -0.0842},
		{Year: 1930, Return: -0.2490}, {Year: 1931, Return: -0.4334},
		{Year: 1932, Return: -0.0819}, {Year: 1933, Return: 0.5399},
		{Year: 1934, Return: -0.0144}, {Year: 1935, Return: 0.4767},
	})
	threshold := 0.10

	result, err := SpreadHorizon(series, 1926, threshold)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.MetCondition {
		t.Skipf("series does not converge within %.2f on this span", threshold)
	}

	if result.Spread > threshold {
		t.Errorf("realized spread %.6f exceeds threshold %.6f", result.Spread, threshold)
	}

	if prev := result.MinHoldingYears - 1; prev >= 1 {
		windows, err := RollingWindows(series, 1926, prev)
		if err != nil {
			t.Fatalf("unexpected error at N=%d: %v", prev, err)
		}
		if len(windows) > 0 {
			stats := ComputeWindowStatistics(prev, windows)
			if stats.BestCAGR-stats.WorstCAGR <= threshold {
				t.Errorf("N=%d already within threshold; reported horizon is not minimal", prev)
			}
		}
	}
}

func TestSpreadHorizon_ZeroThresholdExhausts(t *testing.T) {
	// Distinct CAGRs at every feasible length → threshold 0 is never met
	// until only one window remains. With a single window at maxFeasible the
	// spread is 0, so the search legitimately finds maxFeasible.
	series := makeSeries(t, []domain.AnnualReturn{
		{Year: 2000, Return: 0.10},
		{Year: 2001, Return: 0.20},
		{Year: 2002, Return: -0.10},
	})

	result, err := SpreadHorizon(series, 2000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.MetCondition {
		t.Fatal("expected MetCondition=true: single window at max feasible has zero spread")
	}
	if result.MinHoldingYears != 3 {
		t.Errorf("expected horizon 3, got %d", result.MinHoldingYears)
	}
	if result.Spread != 0 {
		t.Errorf("expected zero spread for single window, got %f", result.Spread)
	}
}

func TestSpreadHorizon_ReportsExactRealizedSpread(t *testing.T) {
	series := makeSeries(t, []domain.AnnualReturn{
		{Year: 1990, Return: 0.08},
		{Year: 1991, Return: 0.11},
		{Year: 1992, Return: 0.09},
		{Year: 1993, Return: 0.10},
	})

	result, err := SpreadHorizon(series, 1990, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.MetCondition || result.MinHoldingYears != 1 {
		t.Fatalf("expected Found(1), got met=%v N=%d", result.MetCondition, result.MinHoldingYears)
	}
	// Realized spread 0.11-0.08 = 0.03, strictly below the 0.05 threshold.
	if math.Abs(result.Spread-0.03) > 1e-12 {
		t.Errorf("expected exact realized spread 0.03, got %f", result.Spread)
	}
}

func TestSpreadHorizon_NegativeThreshold(t *testing.T) {
	series := makeSeries(t, []domain.AnnualReturn{{Year: 2000, Return: 0.10}})

	_, err := SpreadHorizon(series, 2000, -0.01)
	if !errors.Is(err, ErrNegativeThreshold) {
		t.Errorf("expected ErrNegativeThreshold, got %v", err)
	}
}

func TestSpreadHorizon_UnknownBaseline(t *testing.T) {
	series := makeSeries(t, []domain.AnnualReturn{
		{Year: 1985, Return: 0.31},
		{Year: 1986, Return: 0.18},
	})

	result, err := SpreadHorizon(series, 1926, 0.01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MetCondition {
		t.Error("expected MetCondition=false for unknown baseline")
	}
	if result.Note != domain.NoteUnknownBaseline {
		t.Errorf("expected unknown-baseline note, got %q", result.Note)
	}
}

func TestSpreadHorizon_IndependentSearchesPerThreshold(t *testing.T) {
	// Each threshold is an independent search; a tighter threshold can only
	// push the horizon out, never pull it in.
	series := makeSeries(t, []domain.AnnualReturn{
		{Year: 1970, Return: 0.04}, {Year: 1971, Return: 0.143},
		{Year: 1972, Return: 0.189}, {Year: 1973, Return: -0.147},
		{Year: 1974, Return: -0.265}, {Year: 1975, Return: 0.372},
		{Year: 1976, Return: 0.238}, {Year: 1977, Return: -0.072},
	})

	loose, err := SpreadHorizon(series, 1970, 0.50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tight, err := SpreadHorizon(series, 1970, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tight.MinHoldingYears < loose.MinHoldingYears {
		t.Errorf("tighter threshold found shorter horizon (%d < %d)",
			tight.MinHoldingYears, loose.MinHoldingYears)
	}
}
