// Package storage persists analysis runs under a base directory, one
// subdirectory per run: metadata.json with summary counts, annotated.csv
// with the flagged observations, fits.json with per-group results.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/m-okahara/growthfit/internal/batch"
	"github.com/m-okahara/growthfit/internal/growth"
)

var annotatedHeader = []string{"organism", "experiment", "replicate", "time", "density", "death_phase"}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Tolerance float64   `json:"tolerance"`
	Groups    int       `json:"groups"`
	Converged int       `json:"converged"`
	Failed    int       `json:"failed"`
	Skipped   int       `json:"skipped,omitempty"`
}

// Save writes one run directory named after the source and the current
// time, and returns the run ID.
func (s *Store) Save(source string, tolerance float64, skipped int, results []batch.GroupResult) (string, error) {
	runID := fmt.Sprintf("%s_%d", sourceStem(source), time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Source:    source,
		Timestamp: time.Now(),
		Tolerance: tolerance,
		Groups:    len(results),
		Skipped:   skipped,
	}
	for _, gr := range results {
		if gr.Fit.Converged() {
			meta.Converged++
		} else {
			meta.Failed++
		}
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeAnnotated(filepath.Join(runDir, "annotated.csv"), results); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "fits.json"), batch.FitTable(results)); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeAnnotated(path string, results []batch.GroupResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(annotatedHeader); err != nil {
		return err
	}
	for _, gr := range results {
		for i, o := range gr.Series.Obs {
			row := []string{
				gr.Series.Key.Organism,
				gr.Series.Key.Experiment,
				gr.Series.Key.Replicate,
				strconv.FormatFloat(o.T, 'g', -1, 64),
				strconv.FormatFloat(o.Density, 'g', -1, 64),
				strconv.FormatBool(i < len(gr.Flags) && gr.Flags[i]),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns metadata for every readable run, skipping directories that
// are missing or corrupt.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadFits reads back the per-group fit table of a run.
func (s *Store) LoadFits(runID string) ([]growth.FitResult, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "fits.json"))
	if err != nil {
		return nil, err
	}

	var fits []growth.FitResult
	if err := json.Unmarshal(data, &fits); err != nil {
		return nil, err
	}
	return fits, nil
}

// LoadSeries reads back a run's annotated observations, grouped in file
// order, with death-phase flags aligned per observation.
func (s *Store) LoadSeries(runID string) ([]growth.Series, [][]bool, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "annotated.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []growth.Series{}, [][]bool{}, nil
	}

	var (
		order   []growth.Key
		grouped = make(map[growth.Key]*growth.Series)
		flagged = make(map[growth.Key]*[]bool)
	)
	for _, rec := range records[1:] {
		if len(rec) < len(annotatedHeader) {
			continue
		}
		key := growth.Key{Organism: rec[0], Experiment: rec[1], Replicate: rec[2]}

		t, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			continue
		}
		d, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			continue
		}
		dead, _ := strconv.ParseBool(rec[5])

		if _, seen := grouped[key]; !seen {
			order = append(order, key)
			grouped[key] = &growth.Series{Key: key}
			flagged[key] = &[]bool{}
		}
		grouped[key].Obs = append(grouped[key].Obs, growth.Observation{T: t, Density: d})
		*flagged[key] = append(*flagged[key], dead)
	}

	series := make([]growth.Series, 0, len(order))
	flags := make([][]bool, 0, len(order))
	for _, key := range order {
		series = append(series, *grouped[key])
		flags = append(flags, *flagged[key])
	}
	return series, flags, nil
}

// LoadResults reassembles a run into displayable group results, pairing
// each stored series with its fit by group key.
func (s *Store) LoadResults(runID string) ([]batch.GroupResult, error) {
	series, flags, err := s.LoadSeries(runID)
	if err != nil {
		return nil, err
	}
	fits, err := s.LoadFits(runID)
	if err != nil {
		return nil, err
	}

	byKey := make(map[growth.Key]growth.FitResult, len(fits))
	for _, f := range fits {
		byKey[f.Key] = f
	}

	results := make([]batch.GroupResult, len(series))
	for i, sr := range series {
		results[i] = batch.GroupResult{Series: sr, Flags: flags[i], Fit: byKey[sr.Key]}
	}
	return results, nil
}

// sourceStem reduces a source path to a directory-name-friendly stem.
func sourceStem(source string) string {
	stem := filepath.Base(source)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, stem)
	if stem == "" || stem == "-" {
		stem = "run"
	}
	return stem
}
