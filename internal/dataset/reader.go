// Package dataset loads long-form density tables and generates synthetic
// ones. One row is one observation: group key fields, a time and a density.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/m-okahara/growthfit/internal/growth"
)

// Columns expected in the input header, in any order. Extra columns are
// ignored.
var requiredColumns = []string{"organism", "experiment", "replicate", "time", "density"}

// LoadResult carries the grouped series plus how many rows were dropped for
// having no density value.
type LoadResult struct {
	Series  []growth.Series
	Skipped int
}

func Load(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Read parses a long-form CSV table into one series per group, ordered by
// first appearance, each sorted ascending by time. Rows with an empty or NA
// density are counted and skipped; a bad time or a negative value is an
// error naming the offending line.
func Read(r io.Reader) (*LoadResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q in header", name)
		}
	}
	iOrg, iExp, iRep := cols["organism"], cols["experiment"], cols["replicate"]
	iTime, iDen := cols["time"], cols["density"]

	var (
		order   []growth.Key
		grouped = make(map[growth.Key][]growth.Observation)
		skipped int
	)

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		key := growth.Key{
			Organism:   strings.TrimSpace(rec[iOrg]),
			Experiment: strings.TrimSpace(rec[iExp]),
			Replicate:  strings.TrimSpace(rec[iRep]),
		}

		line, _ := cr.FieldPos(iTime)
		tRaw := strings.TrimSpace(rec[iTime])
		if tRaw == "" {
			return nil, fmt.Errorf("line %d: missing time value", line)
		}
		t, err := strconv.ParseFloat(tRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q", line, tRaw)
		}
		if t < 0 {
			return nil, fmt.Errorf("line %d: negative time %v", line, t)
		}

		dRaw := strings.TrimSpace(rec[iDen])
		if missingDensity(dRaw) {
			skipped++
			continue
		}
		d, err := strconv.ParseFloat(dRaw, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad density %q", line, dRaw)
		}
		if d < 0 {
			return nil, fmt.Errorf("line %d: negative density %v", line, d)
		}

		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], growth.Observation{T: t, Density: d})
	}

	series := make([]growth.Series, 0, len(order))
	for _, key := range order {
		obs := grouped[key]
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].T < obs[j].T })
		series = append(series, growth.Series{Key: key, Obs: obs})
	}
	return &LoadResult{Series: series, Skipped: skipped}, nil
}

// missingDensity matches the blank and NA markers spreadsheet exports use.
func missingDensity(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}
