package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/storage"
)

// HorizonResultStore implements storage.HorizonResultStore using PostgreSQL.
type HorizonResultStore struct {
	pool *Pool
}

// NewHorizonResultStore creates a new HorizonResultStore.
func NewHorizonResultStore(pool *Pool) *HorizonResultStore {
	return &HorizonResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HorizonResultStore = (*HorizonResultStore)(nil)

// InsertNoLoss adds a no-loss horizon result. Returns ErrDuplicateKey if
// (series_name, baseline_year) exists.
func (s *HorizonResultStore) InsertNoLoss(ctx context.Context, seriesName string, r domain.NoLossResult) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO no_loss_results (
			series_name, baseline_year, min_holding_years,
			worst_start_year, worst_end_year, worst_cagr,
			best_start_year, best_end_year, best_cagr,
			average_cagr, windows_checked, met_condition, note
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		seriesName, r.BaselineYear, r.MinHoldingYears,
		r.WorstWindow.StartYear, r.WorstWindow.EndYear, r.WorstCAGR,
		r.BestWindow.StartYear, r.BestWindow.EndYear, r.BestCAGR,
		r.AverageCAGR, r.WindowsChecked, r.MetCondition, r.Note,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert no-loss result: %w", err)
	}
	return nil
}

// InsertSpread adds a spread horizon result. Returns ErrDuplicateKey if
// (series_name, baseline_year, threshold) exists.
func (s *HorizonResultStore) InsertSpread(ctx context.Context, seriesName string, r domain.SpreadResult) error {
	if seriesName == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO spread_results (
			series_name, baseline_year, threshold, min_holding_years,
			best_start_year, best_end_year, best_cagr,
			worst_start_year, worst_end_year, worst_cagr,
			spread, met_condition, note
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13
		)
	`

	_, err := s.pool.Exec(ctx, query,
		seriesName, r.BaselineYear, r.Threshold, r.MinHoldingYears,
		r.BestWindow.StartYear, r.BestWindow.EndYear, r.BestCAGR,
		r.WorstWindow.StartYear, r.WorstWindow.EndYear, r.WorstCAGR,
		r.Spread, r.MetCondition, r.Note,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert spread result: %w", err)
	}
	return nil
}

// GetNoLoss retrieves all no-loss results for a series, ordered by baseline year ASC.
func (s *HorizonResultStore) GetNoLoss(ctx context.Context, seriesName string) ([]domain.NoLossResult, error) {
	query := `
		SELECT
			baseline_year, min_holding_years,
			worst_start_year, worst_end_year, worst_cagr,
			best_start_year, best_end_year, best_cagr,
			average_cagr, windows_checked, met_condition, note
		FROM no_loss_results
		WHERE series_name = $1
		ORDER BY baseline_year ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesName)
	if err != nil {
		return nil, fmt.Errorf("get no-loss results: %w", err)
	}
	defer rows.Close()

	return scanNoLossResults(rows)
}

// GetSpread retrieves all spread results for a series, ordered by baseline
// year ASC then threshold ASC.
func (s *HorizonResultStore) GetSpread(ctx context.Context, seriesName string) ([]domain.SpreadResult, error) {
	query := `
		SELECT
			baseline_year, threshold, min_holding_years,
			best_start_year, best_end_year, best_cagr,
			worst_start_year, worst_end_year, worst_cagr,
			spread, met_condition, note
		FROM spread_results
		WHERE series_name = $1
		ORDER BY baseline_year ASC, threshold ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesName)
	if err != nil {
		return nil, fmt.Errorf("get spread results: %w", err)
	}
	defer rows.Close()

	return scanSpreadResults(rows)
}

// scanNoLossResults scans multiple rows into a slice of NoLossResult.
func scanNoLossResults(rows pgx.Rows) ([]domain.NoLossResult, error) {
	var results []domain.NoLossResult

	for rows.Next() {
		var r domain.NoLossResult

		err := rows.Scan(
			&r.BaselineYear, &r.MinHoldingYears,
			&r.WorstWindow.StartYear, &r.WorstWindow.EndYear, &r.WorstCAGR,
			&r.BestWindow.StartYear, &r.BestWindow.EndYear, &r.BestCAGR,
			&r.AverageCAGR, &r.WindowsChecked, &r.MetCondition, &r.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("scan no-loss result row: %w", err)
		}
		r.WorstWindow.CAGR = r.WorstCAGR
		r.BestWindow.CAGR = r.BestCAGR

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate no-loss result rows: %w", err)
	}

	return results, nil
}

// scanSpreadResults scans multiple rows into a slice of SpreadResult.
func scanSpreadResults(rows pgx.Rows) ([]domain.SpreadResult, error) {
	var results []domain.SpreadResult

	for rows.Next() {
		var r domain.SpreadResult

		err := rows.Scan(
			&r.BaselineYear, &r.Threshold, &r.MinHoldingYears,
			&r.BestWindow.StartYear, &r.BestWindow.EndYear, &r.BestCAGR,
			&r.WorstWindow.StartYear, &r.WorstWindow.EndYear, &r.WorstCAGR,
			&r.Spread, &r.MetCondition, &r.Note,
		)
		if err != nil {
			return nil, fmt.Errorf("scan spread result row: %w", err)
		}
		r.BestWindow.CAGR = r.BestCAGR
		r.WorstWindow.CAGR = r.WorstCAGR

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spread result rows: %w", err)
	}

	return results, nil
}
