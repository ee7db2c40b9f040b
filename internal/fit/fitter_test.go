package fit

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/m-okahara/growthfit/internal/growth"
)

func workedSeries() growth.Series {
	return growth.Series{
		Key: growth.Key{Organism: "e-coli", Experiment: "exp1", Replicate: "r1"},
		Obs: []growth.Observation{
			{T: 0, Density: 0.05}, {T: 2, Density: 0.10}, {T: 4, Density: 0.22}, {T: 6, Density: 0.45},
			{T: 8, Density: 0.70}, {T: 10, Density: 0.80}, {T: 12, Density: 0.78}, {T: 14, Density: 0.60},
		},
	}
}

func TestFit_InsufficientData(t *testing.T) {
	f := NewFitter()

	for _, obs := range [][]growth.Observation{
		nil,
		{{T: 0, Density: 0.1}},
		{{T: 0, Density: 0.1}, {T: 2, Density: 0.2}},
	} {
		res := f.Fit(growth.Series{Obs: obs})
		if res.Status != growth.StatusFailed {
			t.Fatalf("%d observations: status %q, want failed", len(obs), res.Status)
		}
		if res.Reason != growth.ReasonInsufficientData {
			t.Errorf("%d observations: reason %q", len(obs), res.Reason)
		}
		if !errors.Is(res.Err(), growth.ErrInsufficientData) {
			t.Errorf("%d observations: Err() = %v", len(obs), res.Err())
		}
	}
}

func TestFit_ConstantDensity(t *testing.T) {
	obs := make([]growth.Observation, 5)
	for i := range obs {
		obs[i] = growth.Observation{T: float64(i), Density: 0.42}
	}

	res := NewFitter().Fit(growth.Series{Obs: obs})
	if res.Status != growth.StatusFailed {
		t.Fatalf("status %q, want failed", res.Status)
	}
	if res.Reason != growth.ReasonDegenerate {
		t.Errorf("reason %q, want %q", res.Reason, growth.ReasonDegenerate)
	}
}

func TestFit_WorkedSeries(t *testing.T) {
	s := workedSeries()
	flags := growth.DeathPhase(s.Obs, 0)
	kept := s.Exclude(flags)
	if len(kept.Obs) != 6 {
		t.Fatalf("expected 6 observations after death-phase removal, got %d", len(kept.Obs))
	}

	res := NewFitter().Fit(kept)
	if res.Status != growth.StatusConverged {
		t.Fatalf("fit failed: reason %q after %d iterations", res.Reason, res.Iterations)
	}
	if res.R <= 0 {
		t.Errorf("r = %v, want > 0", res.R)
	}
	if res.K < 0.8 || res.K > 1.0 {
		t.Errorf("K = %v, want within [0.8, 1.0]", res.K)
	}
	if res.N0 <= 0 || res.N0 >= 0.2 {
		t.Errorf("N0 = %v, want small positive", res.N0)
	}
	if res.RMSE > 0.05 {
		t.Errorf("RMSE = %v", res.RMSE)
	}
	if res.RSquared < 0.9 {
		t.Errorf("R^2 = %v", res.RSquared)
	}

	// Sampling the fitted curve over the growth window must be
	// non-decreasing.
	_, densities := res.Curve().Sample(0, 10, 5)
	for i := 1; i < len(densities); i++ {
		if densities[i] < densities[i-1] {
			t.Errorf("fitted curve decreased at sample %d: %v", i, densities)
		}
	}
}

func TestFit_Deterministic(t *testing.T) {
	s := workedSeries()
	kept := s.Exclude(growth.DeathPhase(s.Obs, 0))

	f := NewFitter()
	first := f.Fit(kept)
	second := f.Fit(kept)
	if first != second {
		t.Errorf("repeated fits differ:\n%+v\n%+v", first, second)
	}
}

func TestFit_SyntheticRecovery(t *testing.T) {
	const (
		r     = 0.9
		k     = 1.0
		n0    = 0.02
		sigma = 0.005
	)

	rng := rand.New(rand.NewSource(7))
	var obs []growth.Observation
	for tv := 0.0; tv <= 24; tv += 0.5 {
		d := growth.Logistic(tv, r, k, n0) + rng.NormFloat64()*sigma
		if d < 0 {
			d = 0
		}
		obs = append(obs, growth.Observation{T: tv, Density: d})
	}

	res := NewFitter().Fit(growth.Series{Obs: obs})
	if res.Status != growth.StatusConverged {
		t.Fatalf("fit failed: reason %q", res.Reason)
	}

	if rel := math.Abs(res.R-r) / r; rel > 0.05 {
		t.Errorf("r = %v, off by %.1f%%", res.R, 100*rel)
	}
	if rel := math.Abs(res.K-k) / k; rel > 0.05 {
		t.Errorf("K = %v, off by %.1f%%", res.K, 100*rel)
	}
	if rel := math.Abs(res.N0-n0) / n0; rel > 0.35 {
		t.Errorf("N0 = %v, off by %.1f%%", res.N0, 100*rel)
	}
	if res.StdErrR <= 0 || res.StdErrK <= 0 {
		t.Errorf("standard errors not populated: %v, %v", res.StdErrR, res.StdErrK)
	}
	if res.RSquared < 0.99 {
		t.Errorf("R^2 = %v", res.RSquared)
	}
}

func TestFit_CapacityClamp(t *testing.T) {
	// A single plateau point nudged above the true capacity should pull K
	// up to the observed maximum rather than fail the fit.
	var obs []growth.Observation
	for tv := 0.0; tv <= 20; tv += 1 {
		obs = append(obs, growth.Observation{T: tv, Density: growth.Logistic(tv, 0.8, 1.0, 0.05)})
	}
	obs[18].Density = 1.01

	res := NewFitter().Fit(growth.Series{Obs: obs})
	if res.Status != growth.StatusConverged {
		t.Fatalf("fit failed: reason %q", res.Reason)
	}
	if res.K < 1.005 {
		t.Errorf("K = %v, want clamped to at least the observed maximum", res.K)
	}
}

func TestFit_KeyCarriedThrough(t *testing.T) {
	s := workedSeries()
	res := NewFitter().Fit(s.Exclude(growth.DeathPhase(s.Obs, 0)))
	if res.Key != s.Key {
		t.Errorf("result key %v, want %v", res.Key, s.Key)
	}
}
