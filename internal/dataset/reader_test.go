package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-okahara/growthfit/internal/growth"
)

func TestRead_GroupsAndOrder(t *testing.T) {
	input := `organism,experiment,replicate,time,density
e-coli,exp1,r1,4,0.22
yeast,exp2,r1,0,0.05
e-coli,exp1,r1,0,0.05
e-coli,exp1,r1,2,0.10
yeast,exp2,r1,2,0.09
`
	res, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(res.Series) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(res.Series))
	}

	first := res.Series[0]
	if first.Key != (growth.Key{Organism: "e-coli", Experiment: "exp1", Replicate: "r1"}) {
		t.Errorf("first group key %v; groups must keep first-appearance order", first.Key)
	}
	times := first.Times()
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			t.Errorf("group not sorted by time: %v", times)
		}
	}
	if len(first.Obs) != 3 {
		t.Errorf("first group has %d observations, want 3", len(first.Obs))
	}
}

func TestRead_MissingDensity(t *testing.T) {
	input := `organism,experiment,replicate,time,density
a,e,r,0,0.05
a,e,r,2,
a,e,r,4,NA
a,e,r,6,0.45
`
	res, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", res.Skipped)
	}
	if len(res.Series) != 1 || len(res.Series[0].Obs) != 2 {
		t.Fatalf("unexpected series shape: %+v", res.Series)
	}
	for _, o := range res.Series[0].Obs {
		if o.Density == 0 {
			t.Errorf("missing density leaked in as zero: %+v", o)
		}
	}
}

func TestRead_DuplicateTimestamps(t *testing.T) {
	input := `organism,experiment,replicate,time,density
a,e,r,2,0.10
a,e,r,2,0.12
a,e,r,0,0.05
`
	res, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	obs := res.Series[0].Obs
	if len(obs) != 3 {
		t.Fatalf("expected 3 observations, got %d", len(obs))
	}
	// Stable sort keeps duplicate timestamps in input order.
	if obs[1].Density != 0.10 || obs[2].Density != 0.12 {
		t.Errorf("duplicate timestamps reordered: %+v", obs)
	}
}

func TestRead_HeaderFlexibility(t *testing.T) {
	input := `Experiment,Organism,note,Replicate,Density,Time
e1,bug,x,r1,0.2,1
`
	res, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	s := res.Series[0]
	if s.Key.Organism != "bug" || s.Obs[0].T != 1 || s.Obs[0].Density != 0.2 {
		t.Errorf("columns resolved wrong: %+v", s)
	}
}

func TestRead_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty input"},
		{
			"missing column",
			"organism,experiment,replicate,time\na,e,r,0\n",
			`missing column "density"`,
		},
		{
			"bad time",
			"organism,experiment,replicate,time,density\na,e,r,soon,0.1\n",
			"line 2",
		},
		{
			"negative time",
			"organism,experiment,replicate,time,density\na,e,r,-1,0.1\n",
			"negative time",
		},
		{
			"missing time",
			"organism,experiment,replicate,time,density\na,e,r,,0.1\n",
			"missing time",
		},
		{
			"bad density",
			"organism,experiment,replicate,time,density\na,e,r,0,lots\n",
			"bad density",
		},
		{
			"negative density",
			"organism,experiment,replicate,time,density\na,e,r,0,-0.5\n",
			"negative density",
		},
		{
			"ragged row",
			"organism,experiment,replicate,time,density\na,e,r,0\n",
			"wrong number of fields",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(c.input))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q does not mention %q", err, c.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "growth.csv")
	data := "organism,experiment,replicate,time,density\na,e,r,0,0.1\na,e,r,2,0.3\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Series) != 1 {
		t.Errorf("expected 1 group, got %d", len(res.Series))
	}

	if _, err := Load(filepath.Join(dir, "absent.csv")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
