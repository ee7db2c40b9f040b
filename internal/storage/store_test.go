package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/m-okahara/growthfit/internal/batch"
	"github.com/m-okahara/growthfit/internal/dataset"
	"github.com/m-okahara/growthfit/internal/growth"
)

func analyzedBatch(t *testing.T) []batch.GroupResult {
	t.Helper()

	gen := dataset.DefaultSynth()
	gen.DeathStart = 18
	gen.DeathRate = 0.3
	series := gen.Batch("e-coli", "exp1", 2, 5)

	// A failing group keeps the failure path in the round trip.
	series = append(series, growth.Series{
		Key: growth.Key{Organism: "e-coli", Experiment: "exp1", Replicate: "tiny"},
		Obs: []growth.Observation{{T: 0, Density: 0.1}, {T: 2, Density: 0.2}},
	})

	results, err := batch.NewAnalyzer().Run(context.Background(), series)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return results
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	results := analyzedBatch(t)
	runID, err := s.Save("plates/march.csv", 0, 3, results)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(runID, "march_") {
		t.Errorf("runID = %q, want march_ prefix", runID)
	}

	meta, err := s.Load(runID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Groups != 3 || meta.Converged != 2 || meta.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", meta.Groups, meta.Converged, meta.Failed)
	}
	if meta.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", meta.Skipped)
	}

	fits, err := s.LoadFits(runID)
	if err != nil {
		t.Fatalf("LoadFits: %v", err)
	}
	if len(fits) != 3 {
		t.Fatalf("expected 3 fits, got %d", len(fits))
	}
	for i, f := range fits {
		if f.Key != results[i].Fit.Key || f.Status != results[i].Fit.Status {
			t.Errorf("fit %d: %v/%v, want %v/%v", i, f.Key, f.Status, results[i].Fit.Key, results[i].Fit.Status)
		}
	}
	if fits[2].Reason != growth.ReasonInsufficientData {
		t.Errorf("failed fit lost its reason: %q", fits[2].Reason)
	}

	series, flags, err := s.LoadSeries(runID)
	if err != nil {
		t.Fatalf("LoadSeries: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 series, got %d", len(series))
	}
	for i := range series {
		if series[i].Key != results[i].Series.Key {
			t.Errorf("series %d key %v, want %v", i, series[i].Key, results[i].Series.Key)
		}
		if len(series[i].Obs) != len(results[i].Series.Obs) {
			t.Fatalf("series %d: %d observations, want %d",
				i, len(series[i].Obs), len(results[i].Series.Obs))
		}
		for j, o := range series[i].Obs {
			if o != results[i].Series.Obs[j] {
				t.Errorf("series %d obs %d: %v, want %v", i, j, o, results[i].Series.Obs[j])
			}
		}
		for j, fl := range flags[i] {
			if fl != results[i].Flags[j] {
				t.Errorf("series %d flag %d: %v, want %v", i, j, fl, results[i].Flags[j])
			}
		}
	}
}

func TestStore_LoadResults(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	results := analyzedBatch(t)
	runID, err := s.Save("growth.csv", 0, 0, results)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.LoadResults(runID)
	if err != nil {
		t.Fatalf("LoadResults: %v", err)
	}
	if len(loaded) != len(results) {
		t.Fatalf("expected %d groups, got %d", len(results), len(loaded))
	}
	for i, gr := range loaded {
		if gr.Series.Key != results[i].Series.Key {
			t.Errorf("group %d key %v, want %v", i, gr.Series.Key, results[i].Series.Key)
		}
		if gr.Fit.Key != gr.Series.Key {
			t.Errorf("group %d fit paired with %v", i, gr.Fit.Key)
		}
		if gr.Fit.Status != results[i].Fit.Status {
			t.Errorf("group %d status %v, want %v", i, gr.Fit.Status, results[i].Fit.Status)
		}
		if len(gr.Flags) != len(gr.Series.Obs) {
			t.Errorf("group %d: %d flags for %d observations", i, len(gr.Flags), len(gr.Series.Obs))
		}
	}
}

func TestStore_List(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	runID, err := s.Save("growth.csv", 0.05, 0, analyzedBatch(t))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	runs, err = s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Errorf("List = %+v, want one run %q", runs, runID)
	}
	if runs[0].Tolerance != 0.05 {
		t.Errorf("tolerance = %v", runs[0].Tolerance)
	}
}

func TestStore_ListMissingDir(t *testing.T) {
	s := New("/nonexistent/growthfit-test")
	runs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestSourceStem(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plates/march.csv", "march"},
		{"my plate.csv", "my-plate"},
		{"synthetic", "synthetic"},
		{"", "run"},
	}
	for _, c := range cases {
		if got := sourceStem(c.in); got != c.want {
			t.Errorf("sourceStem(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
