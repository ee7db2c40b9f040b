package fit

import (
	"math"

	"github.com/m-okahara/growthfit/internal/growth"
)

const (
	// DefaultMaxIter bounds the Levenberg-Marquardt iterations per group.
	DefaultMaxIter = 200
	// DefaultFTol is the relative SSE improvement below which a fit is
	// declared converged.
	DefaultFTol = 1e-10
	// DefaultClampTol is the largest relative shortfall of the fitted
	// carrying capacity below the observed maximum that is clamped to the
	// maximum instead of rejected.
	DefaultClampTol = 0.02

	guessFloor = 1e-6
)

// Fitter runs logistic fits over individual group series. The zero value
// uses the package defaults; NewFitter spells them out.
type Fitter struct {
	MaxIter  int
	FTol     float64
	ClampTol float64
}

func NewFitter() *Fitter {
	return &Fitter{
		MaxIter:  DefaultMaxIter,
		FTol:     DefaultFTol,
		ClampTol: DefaultClampTol,
	}
}

func (f *Fitter) maxIter() int {
	if f.MaxIter > 0 {
		return f.MaxIter
	}
	return DefaultMaxIter
}

func (f *Fitter) ftol() float64 {
	if f.FTol > 0 {
		return f.FTol
	}
	return DefaultFTol
}

// Fit estimates (r, K, N0) for one group's series. Death-phase observations
// must already be excluded; pass the filtered series.
func (f *Fitter) Fit(s growth.Series) growth.FitResult {
	res := growth.FitResult{
		Key:    s.Key,
		Status: growth.StatusFailed,
		NObs:   len(s.Obs),
	}

	if len(s.Obs) < 3 {
		res.Reason = growth.ReasonInsufficientData
		return res
	}
	if !densityVaries(s.Obs) {
		res.Reason = growth.ReasonDegenerate
		return res
	}

	l := &levmar{times: s.Times(), densities: s.Densities()}
	p, iters, sse, ok := l.run(initialGuess(s), f.maxIter(), f.ftol())
	res.Iterations = iters
	if !ok {
		res.Reason = growth.ReasonNonConvergence
		return res
	}

	r, k, n0 := p[0], p[1], p[2]
	if !finitePositive(r) || !finitePositive(k) || !finitePositive(n0) {
		res.Reason = growth.ReasonDegenerate
		return res
	}

	// An asymptote below the observed data is nonsensical. Small
	// shortfalls, common on noisy plateaus, clamp up to the maximum;
	// anything larger is a failed fit.
	maxD := s.MaxDensity()
	if k < maxD {
		if k < maxD*(1-f.ClampTol) {
			res.Reason = growth.ReasonDegenerate
			return res
		}
		k = maxD
		sse = l.sse([3]float64{r, k, n0})
	}

	res.Status = growth.StatusConverged
	res.R, res.K, res.N0 = r, k, n0
	fillQuality(&res, l, [3]float64{r, k, n0}, sse)
	return res
}

func densityVaries(obs []growth.Observation) bool {
	for _, o := range obs[1:] {
		if o.Density != obs[0].Density {
			return true
		}
	}
	return false
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// initialGuess seeds the optimizer: N0 from the first observation, K just
// above the observed maximum, r from the early exponential portion.
func initialGuess(s growth.Series) [3]float64 {
	n0 := s.Obs[0].Density
	if n0 < guessFloor {
		n0 = guessFloor
	}

	maxD := s.MaxDensity()
	k := maxD * 1.05
	if k < guessFloor {
		k = guessFloor
	}

	r := slopeGuess(s.Obs, maxD)
	if r < guessFloor {
		r = guessFloor
	}
	return [3]float64{r, k, n0}
}

// slopeGuess regresses log(density) against time over the points below half
// the observed maximum, where logistic growth is close to exponential. If
// that leaves too few points the whole positive-density series is used.
func slopeGuess(obs []growth.Observation, maxD float64) float64 {
	var ts, ys []float64
	for _, o := range obs {
		if o.Density > 0 && o.Density <= maxD/2 {
			ts = append(ts, o.T)
			ys = append(ys, math.Log(o.Density))
		}
	}
	if len(ts) < 3 {
		ts, ys = ts[:0], ys[:0]
		for _, o := range obs {
			if o.Density > 0 {
				ts = append(ts, o.T)
				ys = append(ys, math.Log(o.Density))
			}
		}
	}
	if len(ts) < 2 {
		return 0
	}
	return slope(ts, ys)
}

func slope(x, y []float64) float64 {
	n := float64(len(x))
	var sx, sy, sxx, sxy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		sxy += x[i] * y[i]
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// fillQuality attaches RMSE, R-squared and parameter standard errors to a
// converged result.
func fillQuality(res *growth.FitResult, l *levmar, p [3]float64, sse float64) {
	n := float64(len(l.densities))
	res.RMSE = math.Sqrt(sse / n)

	mean := 0.0
	for _, d := range l.densities {
		mean += d
	}
	mean /= n
	tss := 0.0
	for _, d := range l.densities {
		tss += (d - mean) * (d - mean)
	}
	if tss > 0 {
		res.RSquared = 1 - sse/tss
	}

	if len(l.densities) <= 3 {
		return
	}
	jtj, _ := l.normal(p)
	diag, ok := covDiag(jtj)
	if !ok {
		return
	}
	s2 := sse / (n - 3)
	for i, v := range diag {
		if v < 0 {
			continue
		}
		se := math.Sqrt(v * s2)
		switch i {
		case 0:
			res.StdErrR = se
		case 1:
			res.StdErrK = se
		case 2:
			res.StdErrN0 = se
		}
	}
}
