// Package orchestrator coordinates a full rolling-window analysis run.
// Flow: rolling windows → per-size statistics → horizon searches → persistence
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"convergence-lab/internal/domain"
	"convergence-lab/internal/engine"
	"convergence-lab/internal/storage"
)

// Progress reports one completed baseline during a run.
type Progress struct {
	SeriesName   string
	BaselineYear int
	Completed    int
	Total        int
}

// Orchestrator runs the full analysis for a return series across all
// requested baselines, window sizes and thresholds.
type Orchestrator struct {
	// Optional stores; nil disables persistence of that artifact.
	windowCAGRStore storage.WindowCAGRStore
	horizonStore    storage.HorizonResultStore

	request domain.AnalysisRequest

	verbose  bool
	progress func(Progress)
}

// Options for creating Orchestrator.
type Options struct {
	// Optional stores. Leave nil to run compute-only.
	WindowCAGRStore storage.WindowCAGRStore
	HorizonStore    storage.HorizonResultStore

	// Request defines the baselines, window sizes and thresholds to run.
	// Zero value falls back to domain defaults.
	Request domain.AnalysisRequest

	// OnProgress, if set, is called after each baseline completes.
	OnProgress func(Progress)

	Verbose bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	req := opts.Request
	if len(req.Baselines) == 0 {
		req.Baselines = domain.DefaultBaselines
	}
	if len(req.WindowSizes) == 0 {
		req.WindowSizes = domain.DefaultWindowSizes
	}
	if len(req.Thresholds) == 0 {
		req.Thresholds = domain.DefaultThresholds
	}

	return &Orchestrator{
		windowCAGRStore: opts.WindowCAGRStore,
		horizonStore:    opts.HorizonStore,
		request:         req,
		verbose:         opts.Verbose,
		progress:        opts.OnProgress,
	}
}

// WindowGrid holds the rolling windows for one window size.
type WindowGrid struct {
	WindowSize int
	Windows    domain.WindowSet
}

// BaselineResult holds everything computed for one baseline year.
// Grids and Statistics share index order: ascending window size.
type BaselineResult struct {
	BaselineYear int
	Grids        []WindowGrid
	Statistics   []domain.WindowStatistics
	NoLoss       domain.NoLossResult
	Spreads      []domain.SpreadResult // ascending threshold
}

// RunResult contains results from one analysis run.
type RunResult struct {
	SeriesName      string
	Baselines       []BaselineResult // ascending baseline year
	WindowsComputed int
	Errors          []string // per-baseline compute errors and persistence errors
}

// Run executes the analysis for every requested baseline concurrently.
// Baseline results are ordered by baseline year regardless of completion
// order. A data error (return at or below -100%) discards only the affected
// baseline: the failure is recorded in Errors and the remaining baselines'
// results are kept.
func (o *Orchestrator) Run(ctx context.Context, series *domain.ReturnSeries) (*RunResult, error) {
	if series == nil {
		return nil, storage.ErrInvalidInput
	}
	for _, thr := range o.request.Thresholds {
		if thr < 0 {
			return nil, engine.ErrNegativeThreshold
		}
	}

	baselines := sortedInts(o.request.Baselines)
	windowSizes := sortedInts(o.request.WindowSizes)
	thresholds := sortedFloats(o.request.Thresholds)

	result := &RunResult{SeriesName: series.Name()}

	o.log("Phase 1: Analyzing %d baselines for series %s...", len(baselines), series.Name())

	type indexed struct {
		idx int
		res BaselineResult
		err error
	}

	out := make(chan indexed, len(baselines))
	var wg sync.WaitGroup
	for i, baseline := range baselines {
		wg.Add(1)
		go func(idx, baseline int) {
			defer wg.Done()
			res, err := o.analyzeBaseline(series, baseline, windowSizes, thresholds)
			out <- indexed{idx: idx, res: res, err: err}
		}(i, baseline)
	}
	wg.Wait()
	close(out)

	succeeded := make([]*BaselineResult, len(baselines))
	failed := make([]string, len(baselines))
	var completed int
	for item := range out {
		if item.err != nil {
			failed[item.idx] = fmt.Sprintf("analyze baseline %d: %v", baselines[item.idx], item.err)
		} else {
			res := item.res
			succeeded[item.idx] = &res
		}
		completed++
		o.notify(Progress{
			SeriesName:   series.Name(),
			BaselineYear: baselines[item.idx],
			Completed:    completed,
			Total:        len(baselines),
		})
	}

	// Failed baselines become notes; siblings keep their results.
	var results []BaselineResult
	for i, br := range succeeded {
		if br == nil {
			result.Errors = append(result.Errors, failed[i])
			continue
		}
		results = append(results, *br)
	}
	result.Baselines = results

	for _, br := range results {
		for _, grid := range br.Grids {
			result.WindowsComputed += len(grid.Windows)
		}
	}
	o.log("  Computed %d windows across %d baselines (%d failed)", result.WindowsComputed, len(results), len(result.Errors))

	o.log("Phase 2: Persisting results...")
	persistErrors := o.persist(ctx, series.Name(), results)
	result.Errors = append(result.Errors, persistErrors...)
	o.log("  Persisted with %d errors", len(persistErrors))

	return result, nil
}

// analyzeBaseline computes grids, statistics and horizon searches for one
// baseline year.
func (o *Orchestrator) analyzeBaseline(series *domain.ReturnSeries, baseline int, windowSizes []int, thresholds []float64) (BaselineResult, error) {
	br := BaselineResult{BaselineYear: baseline}

	for _, size := range windowSizes {
		windows, err := engine.RollingWindows(series, baseline, size)
		if err != nil {
			return br, fmt.Errorf("rolling windows size %d: %w", size, err)
		}
		br.Grids = append(br.Grids, WindowGrid{WindowSize: size, Windows: windows})
		br.Statistics = append(br.Statistics, engine.ComputeWindowStatistics(size, windows))
	}

	noLoss, err := engine.NoLossHorizon(series, baseline)
	if err != nil {
		return br, fmt.Errorf("no-loss horizon: %w", err)
	}
	br.NoLoss = noLoss

	for _, thr := range thresholds {
		spread, err := engine.SpreadHorizon(series, baseline, thr)
		if err != nil {
			return br, fmt.Errorf("spread horizon threshold %g: %w", thr, err)
		}
		br.Spreads = append(br.Spreads, spread)
	}

	return br, nil
}

// persist writes computed results to the configured stores. Duplicate keys
// are skipped so reruns over the same series are safe. Other store errors
// are collected, not fatal.
func (o *Orchestrator) persist(ctx context.Context, seriesName string, results []BaselineResult) []string {
	var errs []string

	if o.windowCAGRStore != nil {
		for _, br := range results {
			var points []*domain.WindowCAGRPoint
			for _, grid := range br.Grids {
				for _, w := range grid.Windows {
					points = append(points, &domain.WindowCAGRPoint{
						SeriesName:   seriesName,
						BaselineYear: br.BaselineYear,
						WindowSize:   grid.WindowSize,
						StartYear:    w.StartYear,
						EndYear:      w.EndYear,
						CAGR:         w.CAGR,
					})
				}
			}
			if len(points) == 0 {
				continue
			}
			if err := o.windowCAGRStore.InsertBulk(ctx, points); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					continue
				}
				errs = append(errs, fmt.Sprintf("persist windows baseline %d: %v", br.BaselineYear, err))
			}
		}
	}

	if o.horizonStore != nil {
		for _, br := range results {
			if err := o.horizonStore.InsertNoLoss(ctx, seriesName, br.NoLoss); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				errs = append(errs, fmt.Sprintf("persist no-loss baseline %d: %v", br.BaselineYear, err))
			}
			for _, spread := range br.Spreads {
				if err := o.horizonStore.InsertSpread(ctx, seriesName, spread); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
					errs = append(errs, fmt.Sprintf("persist spread baseline %d threshold %g: %v",
						br.BaselineYear, spread.Threshold, err))
				}
			}
		}
	}

	return errs
}

func (o *Orchestrator) notify(p Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}

func sortedInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	return out
}

func sortedFloats(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	sort.Float64s(out)
	return out
}
