package export

import (
	"fmt"
	"strings"

	"github.com/m-okahara/growthfit/internal/batch"
)

// GrowthSVG draws one group's figure: observed densities as dots, the
// fitted curve as a path, and the death-phase span shaded. Returns "" when
// there is nothing to draw.
func GrowthSVG(gr batch.GroupResult, width, height, samples int) string {
	obs := gr.Series.Obs
	if len(obs) < 2 {
		return ""
	}
	if samples < 2 {
		samples = 100
	}

	minX, maxX := obs[0].T, obs[0].T
	minY, maxY := 0.0, obs[0].Density
	for _, o := range obs {
		if o.T < minX {
			minX = o.T
		}
		if o.T > maxX {
			maxX = o.T
		}
		if o.Density > maxY {
			maxY = o.Density
		}
	}
	if gr.Fit.Converged() && gr.Fit.K > maxY {
		maxY = gr.Fit.K
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	maxX += rangeX * 0.05
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	px := func(t float64) float64 { return (t - minX) / rangeX * float64(width) }
	py := func(d float64) float64 { return float64(height) - (d-minY)/rangeY*float64(height) }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	if start, ok := deathStart(gr.Flags); ok {
		x := px(obs[start].T)
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="0" width="%.1f" height="%d" fill="#331111"/>
`, x, float64(width)-x, height))
	}

	if gr.Fit.Converged() {
		curve := gr.Fit.Curve()
		sb.WriteString(`<path fill="none" stroke="#00ff88" stroke-width="1.5" d="M`)
		first := true
		for t, n := range curve.Points(obs[0].T, obs[len(obs)-1].T, samples) {
			if first {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", px(t), py(n)))
				first = false
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px(t), py(n)))
			}
		}
		sb.WriteString("\"/>\n")
	}

	for i, o := range obs {
		fill := "#00ccff"
		if i < len(gr.Flags) && gr.Flags[i] {
			fill = "#ff4444"
		}
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>
`, px(o.T), py(o.Density), fill))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func deathStart(flags []bool) (int, bool) {
	for i, f := range flags {
		if f {
			return i, true
		}
	}
	return 0, false
}
