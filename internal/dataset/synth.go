package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/m-okahara/growthfit/internal/growth"
)

// Synth generates logistic growth series with optional measurement noise
// and an optional exponential die-off after DeathStart. Zero DeathStart
// means no death phase.
type Synth struct {
	R  float64
	K  float64
	N0 float64

	Start  float64
	End    float64
	Points int

	NoiseSD    float64
	DeathStart float64
	DeathRate  float64
}

func DefaultSynth() Synth {
	return Synth{
		R:      0.9,
		K:      1.0,
		N0:     0.02,
		Start:  0,
		End:    24,
		Points: 49,
	}
}

// Series realizes one replicate. The same seed reproduces the same series.
func (g Synth) Series(key growth.Key, seed int64) growth.Series {
	rng := rand.New(rand.NewSource(seed))

	obs := make([]growth.Observation, 0, g.Points)
	step := 0.0
	if g.Points > 1 {
		step = (g.End - g.Start) / float64(g.Points-1)
	}
	for i := 0; i < g.Points; i++ {
		t := g.Start + float64(i)*step
		d := growth.Logistic(t, g.R, g.K, g.N0)
		if g.DeathStart > 0 && t > g.DeathStart {
			peak := growth.Logistic(g.DeathStart, g.R, g.K, g.N0)
			d = peak * math.Exp(-g.DeathRate*(t-g.DeathStart))
		}
		if g.NoiseSD > 0 {
			d += rng.NormFloat64() * g.NoiseSD
		}
		if d < 0 {
			d = 0
		}
		obs = append(obs, growth.Observation{T: t, Density: d})
	}
	return growth.Series{Key: key, Obs: obs}
}

// Batch realizes numbered replicates for one organism and experiment,
// seeding each replicate independently so runs stay reproducible.
func (g Synth) Batch(organism, experiment string, replicates int, seed int64) []growth.Series {
	series := make([]growth.Series, 0, replicates)
	for i := 0; i < replicates; i++ {
		key := growth.Key{
			Organism:   organism,
			Experiment: experiment,
			Replicate:  fmt.Sprintf("r%d", i+1),
		}
		series = append(series, g.Series(key, seed+int64(i)))
	}
	return series
}
