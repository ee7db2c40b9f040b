package growth

import (
	"iter"
	"math"
)

// Logistic evaluates the three-parameter logistic growth law at time t:
//
//	N(t) = K·N0·e^{rt} / (K + N0·(e^{rt} − 1))
//
// r is the intrinsic growth rate, k the carrying capacity, and n0 the
// density at t = 0. The expression is computed in the algebraically equal
// form K / (1 + ((K−N0)/N0)·e^{−rt}), which stays finite for large r·t.
func Logistic(t, r, k, n0 float64) float64 {
	if n0 == 0 {
		return 0
	}
	q := (k - n0) / n0 * math.Exp(-r*t)
	return k / (1 + q)
}

// Curve is a fitted logistic parameter triple, ready for sampling. It is
// purely derived data: sampling recomputes predictions on every request and
// never mutates the curve.
type Curve struct {
	R  float64
	K  float64
	N0 float64
}

// At evaluates the fitted curve at time t.
func (c Curve) At(t float64) float64 {
	return Logistic(t, c.R, c.K, c.N0)
}

// Points yields n evenly spaced (time, predicted density) pairs across
// [t0, t1]. The sequence is finite and restartable; ranging over it again
// resamples from the start. n == 1 yields only t0. The domain is taken as
// given: sampling outside the observed time range extrapolates, which is the
// caller's informed choice.
func (c Curve) Points(t0, t1 float64, n int) iter.Seq2[float64, float64] {
	return func(yield func(float64, float64) bool) {
		if n <= 0 {
			return
		}
		if n == 1 {
			yield(t0, c.At(t0))
			return
		}
		step := (t1 - t0) / float64(n-1)
		for i := 0; i < n; i++ {
			t := t0 + float64(i)*step
			if i == n-1 {
				t = t1 // land exactly on the endpoint
			}
			if !yield(t, c.At(t)) {
				return
			}
		}
	}
}

// PointsStep yields (time, predicted density) pairs from t0 in dt increments
// up to and including t1. A non-positive dt or an empty domain yields
// nothing.
func (c Curve) PointsStep(t0, t1, dt float64) iter.Seq2[float64, float64] {
	return func(yield func(float64, float64) bool) {
		if dt <= 0 || t1 < t0 {
			return
		}
		for i := 0; ; i++ {
			t := t0 + float64(i)*dt
			if t > t1 {
				return
			}
			if !yield(t, c.At(t)) {
				return
			}
		}
	}
}

// Sample materializes Points into parallel time and density slices.
func (c Curve) Sample(t0, t1 float64, n int) (times, densities []float64) {
	times = make([]float64, 0, n)
	densities = make([]float64, 0, n)
	for t, d := range c.Points(t0, t1, n) {
		times = append(times, t)
		densities = append(densities, d)
	}
	return times, densities
}
