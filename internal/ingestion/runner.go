package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/observability"
	"convergence-lab/internal/storage"
)

// Runner fetches a series from a source, validates it, and optionally
// persists the rows through a SeriesStore.
type Runner struct {
	source Source
	store  storage.SeriesStore // nil means fetch-only
	logger *log.Logger
}

// NewRunner creates an ingestion runner. store may be nil for fetch-only use.
func NewRunner(source Source, store storage.SeriesStore, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{source: source, store: store, logger: logger}
}

// Run fetches, validates and (if a store is configured) persists the series.
// Rows already present in the store are skipped, so re-ingesting an updated
// history only appends the new years.
func (r *Runner) Run(ctx context.Context, seriesName string) (*domain.ReturnSeries, error) {
	r.logger.Printf("fetching series %q from %s", seriesName, r.source.Name())

	rows, err := r.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch series %q: %w", seriesName, err)
	}

	series, err := domain.NewReturnSeries(seriesName, rows)
	if err != nil {
		return nil, fmt.Errorf("validate series %q: %w", seriesName, err)
	}

	r.logger.Printf("fetched %d years: %d to %d", series.Len(), series.FirstYear(), series.LastYear())

	if r.store != nil {
		inserted := 0
		for _, row := range rows {
			if err := r.store.InsertReturn(ctx, seriesName, row); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					continue
				}
				return nil, fmt.Errorf("persist series %q year %d: %w", seriesName, row.Year, err)
			}
			inserted++
		}
		observability.RecordStored(inserted)
		r.logger.Printf("persisted %d new rows for series %q", inserted, seriesName)
	}

	return series, nil
}

// LoadStored rebuilds a validated series from previously persisted rows.
func LoadStored(ctx context.Context, store storage.SeriesStore, seriesName string) (*domain.ReturnSeries, error) {
	rows, err := store.GetSeries(ctx, seriesName)
	if err != nil {
		return nil, fmt.Errorf("load series %q: %w", seriesName, err)
	}
	series, err := domain.NewReturnSeries(seriesName, rows)
	if err != nil {
		return nil, fmt.Errorf("validate stored series %q: %w", seriesName, err)
	}
	return series, nil
}
