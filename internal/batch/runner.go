// Package batch runs the detect-then-fit pipeline over many groups at once.
// Groups are independent, so failures stay local: a batch always produces
// one result per input series.
package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/m-okahara/growthfit/internal/fit"
	"github.com/m-okahara/growthfit/internal/growth"
)

// GroupResult pairs one group's original series with its death-phase flags
// and fit outcome.
type GroupResult struct {
	Series growth.Series
	Flags  []bool
	Fit    growth.FitResult
}

type Analyzer struct {
	// Tolerance is the relative decline tolerance for death-phase
	// detection. Zero counts any strict decrease.
	Tolerance float64
	// Workers caps batch concurrency. Zero means one goroutine per group.
	Workers int
	Fitter  *fit.Fitter
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{Fitter: fit.NewFitter()}
}

func (a *Analyzer) fitter() *fit.Fitter {
	if a.Fitter != nil {
		return a.Fitter
	}
	return fit.NewFitter()
}

// Analyze runs detection and fitting for a single group.
func (a *Analyzer) Analyze(s growth.Series) GroupResult {
	flags := growth.DeathPhase(s.Obs, a.Tolerance)
	kept := s.Exclude(flags)

	res := a.fitter().Fit(kept)
	for _, f := range flags {
		if f {
			res.NDeath++
		}
	}

	ev := log.Debug().
		Str("group", s.Key.String()).
		Str("status", string(res.Status)).
		Int("obs", res.NObs).
		Int("death", res.NDeath)
	if res.Converged() {
		ev.Float64("r", res.R).Float64("k", res.K).Msg("group fitted")
	} else {
		ev.Str("reason", string(res.Reason)).Msg("group failed")
	}

	return GroupResult{Series: s, Flags: flags, Fit: res}
}

// Run analyzes every series, one result slot per input index. Groups never
// see each other's state; a failed fit is recorded, not propagated. The
// only error Run itself returns is context cancellation.
func (a *Analyzer) Run(ctx context.Context, series []growth.Series) ([]GroupResult, error) {
	results := make([]GroupResult, len(series))

	workers := a.Workers
	if workers <= 0 || workers > len(series) {
		workers = len(series)
	}
	if workers == 0 {
		return results, ctx.Err()
	}

	chunk := (len(series) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > len(series) {
			end = len(series)
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					return
				}
				results[i] = a.Analyze(series[i])
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// FitTable extracts just the fit results, preserving input order.
func FitTable(results []GroupResult) []growth.FitResult {
	fits := make([]growth.FitResult, len(results))
	for i, gr := range results {
		fits[i] = gr.Fit
	}
	return fits
}
