// Package viz renders growth series and fitted curves as terminal charts.
package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/m-okahara/growthfit/internal/batch"
	"github.com/m-okahara/growthfit/internal/growth"
)

const (
	DefaultWidth  = 80
	DefaultHeight = 12
)

// FitPlot charts one group's observed densities with the fitted curve
// overlaid at the same timestamps, so the two series stay index-aligned.
// Failed fits chart the observations alone.
func FitPlot(gr batch.GroupResult, width, height int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	observed := gr.Series.Densities()
	if len(observed) == 0 {
		return Subtle.Render("(no observations)")
	}

	if !gr.Fit.Converged() {
		caption := fmt.Sprintf("%s  fit failed: %s", gr.Series.Key, gr.Fit.Reason)
		return asciigraph.Plot(observed,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(caption),
		)
	}

	curve := gr.Fit.Curve()
	fitted := make([]float64, len(observed))
	for i, o := range gr.Series.Obs {
		fitted[i] = curve.At(o.T)
	}

	caption := fmt.Sprintf("%s  observed vs fitted  r=%.4g K=%.4g%s",
		gr.Series.Key, gr.Fit.R, gr.Fit.K, deathNote(gr.Flags))
	return asciigraph.PlotMany([][]float64{observed, fitted},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Default, asciigraph.Cyan),
	)
}

// CurvePlot charts a fitted curve alone over [t0, t1].
func CurvePlot(c growth.Curve, t0, t1 float64, points, width, height int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if points < 2 {
		points = DefaultWidth
	}

	_, densities := c.Sample(t0, t1, points)
	caption := fmt.Sprintf("logistic curve r=%.4g K=%.4g N0=%.4g over [%g, %g]",
		c.R, c.K, c.N0, t0, t1)
	return asciigraph.Plot(densities,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// deathNote summarizes how many trailing observations were excluded.
func deathNote(flags []bool) string {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("  (%d death-phase pts excluded)", n)
}

// Sparkline gives a one-line density trace for list views.
func Sparkline(densities []float64, width int) string {
	if len(densities) == 0 || width <= 0 {
		return ""
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	min, max := densities[0], densities[0]
	for _, v := range densities {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	rng := max - min
	if rng == 0 {
		rng = 1
	}

	step := float64(len(densities)) / float64(width)
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		idx := int(float64(i) * step)
		if idx >= len(densities) {
			break
		}
		norm := (densities[idx] - min) / rng
		c := int(norm * float64(len(chars)-1))
		if c < 0 {
			c = 0
		}
		if c >= len(chars) {
			c = len(chars) - 1
		}
		b.WriteRune(chars[c])
	}
	return b.String()
}
