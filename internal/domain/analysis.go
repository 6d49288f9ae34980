package domain

// Default analysis grid, matching the standard long-horizon study:
// window sizes in years, baseline start years, and spread thresholds
// (0.0025 = 25 basis points). All are caller-replaceable; nothing in the
// engine depends on these values.
var (
	DefaultWindowSizes = []int{5, 10, 15, 20, 30}
	DefaultBaselines   = []int{1926, 1957, 1972, 1985}
	DefaultThresholds  = []float64{0.0025, 0.005, 0.0075, 0.01}
)

// AnalysisRequest describes one full batch run over a series: which baseline
// years to anchor on, which window sizes to summarize, and which spread
// thresholds to search.
type AnalysisRequest struct {
	Baselines   []int
	WindowSizes []int
	Thresholds  []float64
}

// DefaultAnalysisRequest returns a request with the standard grid.
func DefaultAnalysisRequest() AnalysisRequest {
	return AnalysisRequest{
		Baselines:   append([]int(nil), DefaultBaselines...),
		WindowSizes: append([]int(nil), DefaultWindowSizes...),
		Thresholds:  append([]float64(nil), DefaultThresholds...),
	}
}
