// Package ingestion acquires and normalizes annual-return series from
// external sources (remote CSV endpoints or local files) and hands the
// engine a validated domain.ReturnSeries. The engine itself never does I/O.
package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"convergence-lab/internal/domain"
)

// ErrNoData is returned when parsing yields no usable (year, return) rows.
var ErrNoData = errors.New("no valid return rows found")

// ParseOptions controls CSV normalization.
type ParseOptions struct {
	// CurrentYear is the calendar year to drop as incomplete. Zero means
	// "use the wall clock"; tests inject a fixed year.
	CurrentYear int
}

// ParseReturns reads a two-column (year, return) CSV and normalizes it:
//   - a first line whose leading two fields contain letters is treated as a
//     header and skipped
//   - a trailing '%' on the return column is stripped
//   - values with |v| > 1 are treated as percentages and divided by 100
//   - malformed rows are skipped, not fatal
//   - the current (incomplete) calendar year is dropped
//   - rows are sorted by year ascending
//
// Fields beyond the first two are ignored. Returns ErrNoData when nothing
// parseable remains.
func ParseReturns(r io.Reader, opts ParseOptions) ([]domain.AnnualReturn, error) {
	currentYear := opts.CurrentYear
	if currentYear == 0 {
		currentYear = time.Now().Year()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var rows []domain.AnnualReturn
	first := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("read returns csv: %w", err)
		}

		if first {
			first = false
			if looksLikeHeader(record) {
				continue
			}
		}

		year, ret, ok := parseRecord(record)
		if !ok {
			continue
		}
		if year == currentYear {
			continue
		}
		rows = append(rows, domain.AnnualReturn{Year: year, Return: ret})
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	return rows, nil
}

// looksLikeHeader reports whether a record is a header row. Only the two
// fields actually consumed are inspected; data rows may carry arbitrary
// trailing columns.
func looksLikeHeader(record []string) bool {
	n := len(record)
	if n > 2 {
		n = 2
	}
	for _, field := range record[:n] {
		for _, c := range field {
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
				return true
			}
		}
	}
	return false
}

// parseRecord extracts (year, decimal return) from one CSV record.
func parseRecord(record []string) (int, float64, bool) {
	if len(record) < 2 {
		return 0, 0, false
	}

	year, err := strconv.Atoi(strings.TrimSpace(record[0]))
	if err != nil {
		return 0, 0, false
	}

	retStr := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(record[1]), "%"))
	ret, err := strconv.ParseFloat(retStr, 64)
	if err != nil {
		return 0, 0, false
	}

	// Magnitudes above 1 are percentages (18.4 rather than 0.184).
	if ret > 1.0 || ret < -1.0 {
		ret = ret / 100.0
	}

	return year, ret, true
}
