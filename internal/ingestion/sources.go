package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"convergence-lab/internal/domain"
)

// DefaultReturnsURL is the standard annual total-return history endpoint.
const DefaultReturnsURL = "https://www.slickcharts.com/sp500/returns/history.csv"

// defaultHTTPTimeout bounds a single download.
const defaultHTTPTimeout = 30 * time.Second

// Source yields normalized annual returns from somewhere external.
type Source interface {
	// Fetch retrieves and normalizes the annual returns.
	Fetch(ctx context.Context) ([]domain.AnnualReturn, error)

	// Name identifies the source for logs and reports.
	Name() string
}

// HTTPSource downloads a returns-history CSV over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
	opts   ParseOptions
}

// NewHTTPSource creates a download source. An empty url uses
// DefaultReturnsURL; a nil client gets the default timeout.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if url == "" {
		url = DefaultReturnsURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSource{url: url, client: client}
}

// WithParseOptions overrides CSV normalization options (used by tests).
func (s *HTTPSource) WithParseOptions(opts ParseOptions) *HTTPSource {
	s.opts = opts
	return s
}

// Fetch downloads and parses the CSV.
func (s *HTTPSource) Fetch(ctx context.Context) ([]domain.AnnualReturn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build returns request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download returns from %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returns from %s: unexpected status %s", s.url, resp.Status)
	}

	rows, err := ParseReturns(resp.Body, s.opts)
	if err != nil {
		return nil, fmt.Errorf("parse downloaded returns: %w", err)
	}
	return rows, nil
}

// Name identifies the source endpoint.
func (s *HTTPSource) Name() string { return s.url }

// FileSource reads a returns CSV from the local filesystem.
type FileSource struct {
	path string
	opts ParseOptions
}

// NewFileSource creates a local CSV source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// WithParseOptions overrides CSV normalization options (used by tests).
func (s *FileSource) WithParseOptions(opts ParseOptions) *FileSource {
	s.opts = opts
	return s
}

// Fetch opens and parses the local CSV.
func (s *FileSource) Fetch(_ context.Context) ([]domain.AnnualReturn, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open returns csv: %w", err)
	}
	defer f.Close()

	rows, err := ParseReturns(f, s.opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return rows, nil
}

// Name identifies the source file.
func (s *FileSource) Name() string { return s.path }
