package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/storage"
)

// HorizonResultStore is an in-memory implementation of
// storage.HorizonResultStore.
type HorizonResultStore struct {
	mu     sync.RWMutex
	noLoss map[string]domain.NoLossResult // keyed by series|baseline
	spread map[string]domain.SpreadResult // keyed by series|baseline|threshold
	// seriesOf remembers which series each key belongs to for retrieval
	noLossSeries map[string][]string
	spreadSeries map[string][]string
}

// NewHorizonResultStore creates a new in-memory horizon result store.
func NewHorizonResultStore() *HorizonResultStore {
	return &HorizonResultStore{
		noLoss:       make(map[string]domain.NoLossResult),
		spread:       make(map[string]domain.SpreadResult),
		noLossSeries: make(map[string][]string),
		spreadSeries: make(map[string][]string),
	}
}

var _ storage.HorizonResultStore = (*HorizonResultStore)(nil)

func noLossKey(seriesName string, baselineYear int) string {
	return fmt.Sprintf("%s|%d", seriesName, baselineYear)
}

func spreadKey(seriesName string, baselineYear int, threshold float64) string {
	return fmt.Sprintf("%s|%d|%.9f", seriesName, baselineYear, threshold)
}

// InsertNoLoss adds a no-loss result. Returns ErrDuplicateKey if
// (series, baseline) exists.
func (s *HorizonResultStore) InsertNoLoss(_ context.Context, seriesName string, r domain.NoLossResult) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := noLossKey(seriesName, r.BaselineYear)
	if _, exists := s.noLoss[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.noLoss[key] = r
	s.noLossSeries[seriesName] = append(s.noLossSeries[seriesName], key)
	return nil
}

// InsertSpread adds a spread result. Returns ErrDuplicateKey if
// (series, baseline, threshold) exists.
func (s *HorizonResultStore) InsertSpread(_ context.Context, seriesName string, r domain.SpreadResult) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := spreadKey(seriesName, r.BaselineYear, r.Threshold)
	if _, exists := s.spread[key]; exists {
		return storage.ErrDuplicateKey
	}
	s.spread[key] = r
	s.spreadSeries[seriesName] = append(s.spreadSeries[seriesName], key)
	return nil
}

// GetNoLoss retrieves all no-loss results for a series, by baseline ASC.
func (s *HorizonResultStore) GetNoLoss(_ context.Context, seriesName string) ([]domain.NoLossResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.noLossSeries[seriesName]
	result := make([]domain.NoLossResult, 0, len(keys))
	for _, key := range keys {
		result = append(result, s.noLoss[key])
	}

	sort.Slice(result, func(i, j int) bool { return result[i].BaselineYear < result[j].BaselineYear })
	return result, nil
}

// GetSpread retrieves all spread results for a series, by baseline ASC then
// threshold ASC.
func (s *HorizonResultStore) GetSpread(_ context.Context, seriesName string) ([]domain.SpreadResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.spreadSeries[seriesName]
	result := make([]domain.SpreadResult, 0, len(keys))
	for _, key := range keys {
		result = append(result, s.spread[key])
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].BaselineYear != result[j].BaselineYear {
			return result[i].BaselineYear < result[j].BaselineYear
		}
		return result[i].Threshold < result[j].Threshold
	})
	return result, nil
}
