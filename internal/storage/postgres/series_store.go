package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using PostgreSQL.
type SeriesStore struct {
	pool *Pool
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(pool *Pool) *SeriesStore {
	return &SeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertReturn adds one annual return row. Returns ErrDuplicateKey if
// (series_name, year) exists.
func (s *SeriesStore) InsertReturn(ctx context.Context, seriesName string, r domain.AnnualReturn) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO annual_returns (series_name, year, annual_return)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, seriesName, r.Year, r.Return)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert annual return: %w", err)
	}
	return nil
}

// InsertReturns adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *SeriesStore) InsertReturns(ctx context.Context, seriesName string, rows []domain.AnnualReturn) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO annual_returns (series_name, year, annual_return)
		VALUES ($1, $2, $3)
	`

	for _, r := range rows {
		_, err := tx.Exec(ctx, query, seriesName, r.Year, r.Return)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert annual return in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetSeries retrieves all rows for a series, ordered by year ASC.
// Returns ErrNotFound if the series has no rows.
func (s *SeriesStore) GetSeries(ctx context.Context, seriesName string) ([]domain.AnnualReturn, error) {
	query := `
		SELECT year, annual_return
		FROM annual_returns
		WHERE series_name = $1
		ORDER BY year ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesName)
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	defer rows.Close()

	returns, err := scanAnnualReturns(rows)
	if err != nil {
		return nil, err
	}
	if len(returns) == 0 {
		return nil, storage.ErrNotFound
	}
	return returns, nil
}

// ListSeries returns the distinct series names, sorted.
func (s *SeriesStore) ListSeries(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT series_name
		FROM annual_returns
		ORDER BY series_name ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan series name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series names: %w", err)
	}
	return names, nil
}

// scanAnnualReturns scans multiple rows into a slice of AnnualReturn.
func scanAnnualReturns(rows pgx.Rows) ([]domain.AnnualReturn, error) {
	var returns []domain.AnnualReturn

	for rows.Next() {
		var r domain.AnnualReturn
		if err := rows.Scan(&r.Year, &r.Return); err != nil {
			return nil, fmt.Errorf("scan annual return row: %w", err)
		}
		returns = append(returns, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annual return rows: %w", err)
	}

	return returns, nil
}
