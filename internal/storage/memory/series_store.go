// Package memory provides in-memory storage implementations, used by unit
// tests and the --use-memory CLI mode.
package memory

import (
	"context"
	"sort"
	"sync"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu sync.RWMutex
	// data maps series name → year → return
	data map[string]map[int]float64
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{data: make(map[string]map[int]float64)}
}

var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertReturn adds one row. Returns ErrDuplicateKey if (series, year) exists.
func (s *SeriesStore) InsertReturn(_ context.Context, seriesName string, r domain.AnnualReturn) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	years, ok := s.data[seriesName]
	if !ok {
		years = make(map[int]float64)
		s.data[seriesName] = years
	}
	if _, exists := years[r.Year]; exists {
		return storage.ErrDuplicateKey
	}
	years[r.Year] = r.Return
	return nil
}

// InsertReturns adds multiple rows atomically. Fails entire batch on any
// duplicate (existing or intra-batch).
func (s *SeriesStore) InsertReturns(_ context.Context, seriesName string, rows []domain.AnnualReturn) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	years := s.data[seriesName]
	batchYears := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if years != nil {
			if _, exists := years[r.Year]; exists {
				return storage.ErrDuplicateKey
			}
		}
		if _, exists := batchYears[r.Year]; exists {
			return storage.ErrDuplicateKey
		}
		batchYears[r.Year] = struct{}{}
	}

	if years == nil {
		years = make(map[int]float64, len(rows))
		s.data[seriesName] = years
	}
	for _, r := range rows {
		years[r.Year] = r.Return
	}
	return nil
}

// GetSeries retrieves all rows ordered by year ASC. ErrNotFound if empty.
func (s *SeriesStore) GetSeries(_ context.Context, seriesName string) ([]domain.AnnualReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	years, ok := s.data[seriesName]
	if !ok || len(years) == 0 {
		return nil, storage.ErrNotFound
	}

	rows := make([]domain.AnnualReturn, 0, len(years))
	for year, ret := range years {
		rows = append(rows, domain.AnnualReturn{Year: year, Return: ret})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	return rows, nil
}

// ListSeries returns distinct series names, sorted.
func (s *SeriesStore) ListSeries(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
