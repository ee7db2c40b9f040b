// Package export writes fit tables and sampled curves in the formats the
// downstream plotting and reporting steps consume.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/m-okahara/growthfit/internal/growth"
)

// naMarker fills parameter cells for failed fits. Downstream tables need an
// explicit marker, never a zero that looks like a measurement.
const naMarker = "NA"

var fitsHeader = []string{
	"organism", "experiment", "replicate",
	"status", "reason",
	"r", "k", "n0",
	"stderr_r", "stderr_k", "stderr_n0",
	"rmse", "r_squared", "iterations",
	"n_obs", "n_death",
}

func FitsCSV(w io.Writer, fits []growth.FitResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fitsHeader); err != nil {
		return err
	}

	for _, f := range fits {
		row := []string{
			f.Key.Organism,
			f.Key.Experiment,
			f.Key.Replicate,
			string(f.Status),
			string(f.Reason),
		}
		if f.Converged() {
			row = append(row,
				ff(f.R), ff(f.K), ff(f.N0),
				ff(f.StdErrR), ff(f.StdErrK), ff(f.StdErrN0),
				ff(f.RMSE), ff(f.RSquared), strconv.Itoa(f.Iterations),
			)
		} else {
			row = append(row,
				naMarker, naMarker, naMarker,
				naMarker, naMarker, naMarker,
				naMarker, naMarker, strconv.Itoa(f.Iterations),
			)
		}
		row = append(row, strconv.Itoa(f.NObs), strconv.Itoa(f.NDeath))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func FitsJSON(w io.Writer, fits []growth.FitResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fits)
}

var curveHeader = []string{"organism", "experiment", "replicate", "time", "density"}

// CurveCSV samples every converged fit over [t0, t1] at the given number of
// points. Failed groups are left out; consumers handle them from the fit
// table instead.
func CurveCSV(w io.Writer, fits []growth.FitResult, t0, t1 float64, points int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(curveHeader); err != nil {
		return err
	}

	for _, f := range fits {
		if !f.Converged() {
			continue
		}
		for t, n := range f.Curve().Points(t0, t1, points) {
			row := []string{
				f.Key.Organism,
				f.Key.Experiment,
				f.Key.Replicate,
				ff(t),
				ff(n),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
