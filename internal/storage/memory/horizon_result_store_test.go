package memory

import (
	"context"
	"errors"
	"testing"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/storage"
)

func TestHorizonResultStore_NoLossRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewHorizonResultStore()

	results := []domain.NoLossResult{
		{BaselineYear: 1957, MinHoldingYears: 12, MetCondition: true},
		{BaselineYear: 1926, MinHoldingYears: 15, MetCondition: true},
	}
	for _, r := range results {
		if err := store.InsertNoLoss(ctx, "sp500", r); err != nil {
			t.Fatalf("insert baseline %d: %v", r.BaselineYear, err)
		}
	}

	got, err := store.GetNoLoss(ctx, "sp500")
	if err != nil {
		t.Fatalf("get no-loss: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	// Ordered by baseline ASC regardless of insert order.
	if got[0].BaselineYear != 1926 || got[1].BaselineYear != 1957 {
		t.Errorf("expected baselines [1926 1957], got [%d %d]", got[0].BaselineYear, got[1].BaselineYear)
	}
}

func TestHorizonResultStore_NoLossDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewHorizonResultStore()

	r := domain.NoLossResult{BaselineYear: 1972, MinHoldingYears: 9, MetCondition: true}
	if err := store.InsertNoLoss(ctx, "sp500", r); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.InsertNoLoss(ctx, "sp500", r); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestHorizonResultStore_SpreadKeyedByThreshold(t *testing.T) {
	ctx := context.Background()
	store := NewHorizonResultStore()

	// Same baseline, different thresholds: distinct rows.
	for _, thr := range []float64{0.01, 0.0025, 0.005} {
		r := domain.SpreadResult{BaselineYear: 1985, Threshold: thr, MinHoldingYears: 20, MetCondition: true}
		if err := store.InsertSpread(ctx, "sp500", r); err != nil {
			t.Fatalf("insert threshold %f: %v", thr, err)
		}
	}

	// Duplicate (baseline, threshold) rejected.
	dup := domain.SpreadResult{BaselineYear: 1985, Threshold: 0.005}
	if err := store.InsertSpread(ctx, "sp500", dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	got, err := store.GetSpread(ctx, "sp500")
	if err != nil {
		t.Fatalf("get spread: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	// Ordered by threshold ASC within the baseline.
	if got[0].Threshold != 0.0025 || got[1].Threshold != 0.005 || got[2].Threshold != 0.01 {
		t.Errorf("expected thresholds [0.0025 0.005 0.01], got [%f %f %f]",
			got[0].Threshold, got[1].Threshold, got[2].Threshold)
	}
}

func TestHorizonResultStore_EmptySeries(t *testing.T) {
	store := NewHorizonResultStore()

	noLoss, err := store.GetNoLoss(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get no-loss: %v", err)
	}
	if len(noLoss) != 0 {
		t.Errorf("expected empty result, got %d", len(noLoss))
	}
}

func TestWindowCAGRStore_BulkInsertAndQuery(t *testing.T) {
	ctx := context.Background()
	store := NewWindowCAGRStore()

	points := []*domain.WindowCAGRPoint{
		{SeriesName: "sp500", BaselineYear: 1926, WindowSize: 5, StartYear: 1927, EndYear: 1931, CAGR: -0.05},
		{SeriesName: "sp500", BaselineYear: 1926, WindowSize: 5, StartYear: 1926, EndYear: 1930, CAGR: 0.08},
		{SeriesName: "sp500", BaselineYear: 1926, WindowSize: 10, StartYear: 1926, EndYear: 1935, CAGR: 0.03},
	}
	if err := store.InsertBulk(ctx, points); err != nil {
		t.Fatalf("bulk insert: %v", err)
	}

	got, err := store.GetByBaseline(ctx, "sp500", 1926, 5)
	if err != nil {
		t.Fatalf("get by baseline: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points for window size 5, got %d", len(got))
	}
	if got[0].EndYear != 1930 || got[1].EndYear != 1931 {
		t.Errorf("expected end years [1930 1931], got [%d %d]", got[0].EndYear, got[1].EndYear)
	}

	// Re-inserting any of the same keys fails the whole batch.
	err = store.InsertBulk(ctx, points[:1])
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}
