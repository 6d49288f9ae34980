package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/storage"
)

// WindowCAGRStore implements storage.WindowCAGRStore using ClickHouse.
type WindowCAGRStore struct {
	conn *Conn
}

// NewWindowCAGRStore creates a new WindowCAGRStore.
func NewWindowCAGRStore(conn *Conn) *WindowCAGRStore {
	return &WindowCAGRStore{conn: conn}
}

// Compile-time interface check.
var _ storage.WindowCAGRStore = (*WindowCAGRStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate
// (series_name, baseline_year, window_size, end_year). MergeTree does not
// enforce uniqueness, so duplicates are checked explicitly before insert.
func (s *WindowCAGRStore) InsertBulk(ctx context.Context, points []*domain.WindowCAGRPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		seriesName   string
		baselineYear int
		windowSize   int
		endYear      int
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		if p == nil || p.SeriesName == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.SeriesName, p.BaselineYear, p.WindowSize, p.EndYear}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO window_cagrs (
			series_name, baseline_year, window_size, start_year, end_year, cagr
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.SeriesName, int32(p.BaselineYear), int32(p.WindowSize),
			int32(p.StartYear), int32(p.EndYear), p.CAGR,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByBaseline retrieves all points for (series, baseline, window size),
// ordered by end year ASC.
func (s *WindowCAGRStore) GetByBaseline(ctx context.Context, seriesName string, baselineYear, windowSize int) ([]*domain.WindowCAGRPoint, error) {
	query := `
		SELECT series_name, baseline_year, window_size, start_year, end_year, cagr
		FROM window_cagrs
		WHERE series_name = ? AND baseline_year = ? AND window_size = ?
		ORDER BY end_year ASC
	`

	rows, err := s.conn.Query(ctx, query, seriesName, int32(baselineYear), int32(windowSize))
	if err != nil {
		return nil, fmt.Errorf("query by baseline: %w", err)
	}
	defer rows.Close()

	return scanWindowCAGRPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *WindowCAGRStore) exists(ctx context.Context, p *domain.WindowCAGRPoint) (bool, error) {
	query := `
		SELECT count(*) FROM window_cagrs
		WHERE series_name = ? AND baseline_year = ? AND window_size = ? AND end_year = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query,
		p.SeriesName, int32(p.BaselineYear), int32(p.WindowSize), int32(p.EndYear),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanWindowCAGRPoints scans multiple rows.
func scanWindowCAGRPoints(rows driver.Rows) ([]*domain.WindowCAGRPoint, error) {
	var points []*domain.WindowCAGRPoint

	for rows.Next() {
		var p domain.WindowCAGRPoint
		var baselineYear, windowSize, startYear, endYear int32

		err := rows.Scan(
			&p.SeriesName, &baselineYear, &windowSize,
			&startYear, &endYear, &p.CAGR,
		)
		if err != nil {
			return nil, fmt.Errorf("scan window cagr row: %w", err)
		}

		p.BaselineYear = int(baselineYear)
		p.WindowSize = int(windowSize)
		p.StartYear = int(startYear)
		p.EndYear = int(endYear)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window cagr rows: %w", err)
	}

	return points, nil
}
