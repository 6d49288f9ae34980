package storage

import (
	"context"

	"convergence-lab/internal/domain"
)

// SeriesStore provides access to annual_returns storage.
type SeriesStore interface {
	// InsertReturn adds one (year, return) row for a named series.
	// Returns ErrDuplicateKey if (series_name, year) exists.
	InsertReturn(ctx context.Context, seriesName string, r domain.AnnualReturn) error

	// InsertReturns adds multiple rows atomically. Fails the entire batch on
	// any duplicate.
	InsertReturns(ctx context.Context, seriesName string, rows []domain.AnnualReturn) error

	// GetSeries retrieves all rows for a series, ordered by year ASC.
	// Returns ErrNotFound if the series has no rows.
	GetSeries(ctx context.Context, seriesName string) ([]domain.AnnualReturn, error)

	// ListSeries returns the distinct series names, sorted.
	ListSeries(ctx context.Context) ([]string, error)
}

// WindowCAGRStore provides access to window_cagrs storage. Window CAGR
// points are high-volume (every baseline × window size × end year), hence
// the bulk-only insert surface.
type WindowCAGRStore interface {
	// InsertBulk adds multiple points. Fails the entire batch on a
	// duplicate (series_name, baseline_year, window_size, end_year).
	InsertBulk(ctx context.Context, points []*domain.WindowCAGRPoint) error

	// GetByBaseline retrieves all points for (series, baseline, window
	// size), ordered by end year ASC.
	GetByBaseline(ctx context.Context, seriesName string, baselineYear, windowSize int) ([]*domain.WindowCAGRPoint, error)
}

// HorizonResultStore provides access to no_loss_results and spread_results
// storage.
type HorizonResultStore interface {
	// InsertNoLoss adds a no-loss horizon result. Returns ErrDuplicateKey
	// if (series_name, baseline_year) exists.
	InsertNoLoss(ctx context.Context, seriesName string, r domain.NoLossResult) error

	// InsertSpread adds a spread horizon result. Returns ErrDuplicateKey if
	// (series_name, baseline_year, threshold) exists.
	InsertSpread(ctx context.Context, seriesName string, r domain.SpreadResult) error

	// GetNoLoss retrieves all no-loss results for a series, ordered by
	// baseline year ASC.
	GetNoLoss(ctx context.Context, seriesName string) ([]domain.NoLossResult, error)

	// GetSpread retrieves all spread results for a series, ordered by
	// baseline year ASC then threshold ASC.
	GetSpread(ctx context.Context, seriesName string) ([]domain.SpreadResult, error)
}
