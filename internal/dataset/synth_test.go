package dataset

import (
	"testing"

	"github.com/m-okahara/growthfit/internal/growth"
)

func TestSynth_NoiseFree(t *testing.T) {
	g := DefaultSynth()
	s := g.Series(growth.Key{Organism: "a"}, 1)

	if len(s.Obs) != g.Points {
		t.Fatalf("expected %d observations, got %d", g.Points, len(s.Obs))
	}
	if s.Obs[0].T != g.Start || s.Obs[len(s.Obs)-1].T != g.End {
		t.Errorf("time range [%v, %v], want [%v, %v]",
			s.Obs[0].T, s.Obs[len(s.Obs)-1].T, g.Start, g.End)
	}
	for _, o := range s.Obs {
		if want := growth.Logistic(o.T, g.R, g.K, g.N0); o.Density != want {
			t.Errorf("t=%v: density %v, want %v", o.T, o.Density, want)
		}
	}
}

func TestSynth_Seeded(t *testing.T) {
	g := DefaultSynth()
	g.NoiseSD = 0.01
	key := growth.Key{Organism: "a"}

	a, b := g.Series(key, 42), g.Series(key, 42)
	for i := range a.Obs {
		if a.Obs[i] != b.Obs[i] {
			t.Fatalf("same seed diverged at %d: %v vs %v", i, a.Obs[i], b.Obs[i])
		}
	}

	c := g.Series(key, 43)
	same := true
	for i := range a.Obs {
		if a.Obs[i] != c.Obs[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical noise")
	}
}

func TestSynth_DeathTail(t *testing.T) {
	g := DefaultSynth()
	g.DeathStart = 12
	g.DeathRate = 0.2

	s := g.Series(growth.Key{Organism: "a"}, 1)
	flags := growth.DeathPhase(s.Obs, 0)

	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	if n == 0 {
		t.Error("die-off tail not flagged as death phase")
	}
	for i, f := range flags {
		if f && s.Obs[i].T <= g.DeathStart {
			t.Errorf("observation at t=%v flagged before the die-off begins", s.Obs[i].T)
		}
	}
}

func TestSynth_Batch(t *testing.T) {
	series := DefaultSynth().Batch("e-coli", "exp1", 3, 10)
	if len(series) != 3 {
		t.Fatalf("expected 3 replicates, got %d", len(series))
	}
	for i, s := range series {
		if s.Key.Organism != "e-coli" || s.Key.Experiment != "exp1" {
			t.Errorf("replicate %d key %v", i, s.Key)
		}
	}
	if series[0].Key.Replicate != "r1" || series[2].Key.Replicate != "r3" {
		t.Errorf("replicate names %q, %q", series[0].Key.Replicate, series[2].Key.Replicate)
	}
}
