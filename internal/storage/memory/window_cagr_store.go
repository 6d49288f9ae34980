package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/storage"
)

// WindowCAGRStore is an in-memory implementation of storage.WindowCAGRStore.
type WindowCAGRStore struct {
	mu   sync.RWMutex
	data map[string]*domain.WindowCAGRPoint // keyed by composite key
}

// NewWindowCAGRStore creates a new in-memory window CAGR store.
func NewWindowCAGRStore() *WindowCAGRStore {
	return &WindowCAGRStore{data: make(map[string]*domain.WindowCAGRPoint)}
}

var _ storage.WindowCAGRStore = (*WindowCAGRStore)(nil)

// pointKey generates a unique key for a window CAGR point.
func pointKey(seriesName string, baselineYear, windowSize, endYear int) string {
	return fmt.Sprintf("%s|%d|%d|%d", seriesName, baselineYear, windowSize, endYear)
}

// InsertBulk adds multiple points. Fails entire batch on any duplicate.
func (s *WindowCAGRStore) InsertBulk(_ context.Context, points []*domain.WindowCAGRPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.SeriesName == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.SeriesName, p.BaselineYear, p.WindowSize, p.EndYear)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		key := pointKey(p.SeriesName, p.BaselineYear, p.WindowSize, p.EndYear)
		pointCopy := *p
		s.data[key] = &pointCopy
	}
	return nil
}

// GetByBaseline retrieves all points for (series, baseline, window size),
// ordered by end year ASC.
func (s *WindowCAGRStore) GetByBaseline(_ context.Context, seriesName string, baselineYear, windowSize int) ([]*domain.WindowCAGRPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WindowCAGRPoint
	for _, p := range s.data {
		if p.SeriesName == seriesName && p.BaselineYear == baselineYear && p.WindowSize == windowSize {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].EndYear < result[j].EndYear })
	return result, nil
}
