// Package export writes standalone SVG figures of spectra and region layouts.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/nemd/internal/nemd"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// SpectrumToSVG draws y against x as a single polyline. Non-finite points
// are skipped.
func SpectrumToSVG(x, y []float64, width, height int, strokeColor string) string {
	n := min(len(x), len(y))
	type point struct{ X, Y float64 }
	points := make([]point, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsInf(x[i], 0) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		points = append(points, point{x[i], y[i]})
	}
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	minY -= rangeY * 0.1
	rangeX *= 1.1
	rangeY *= 1.2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))

	// zero line
	if minY < 0 && minY+rangeY > 0 {
		zy := float64(height) - (0-minY)/rangeY*float64(height)
		sb.WriteString(fmt.Sprintf(`<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="#444444" stroke-dasharray="4 4"/>
`, zy, width, zy))
	}

	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))
	for i, p := range points {
		px := (p.X - minX) / rangeX * float64(width)
		py := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", px, py))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px, py))
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

var regionFill = map[string]string{
	"lfixed": "#5f5f87",
	"rfixed": "#5f5f87",
	"hot":    "#ff5f5f",
	"cold":   "#5fafff",
	"zone":   "#303030",
	"left":   "#ffd75f",
	"right":  "#87d787",
}

// LayoutToSVG draws the box along the partition axis with one band per
// region. Unbounded regions are clipped to the box.
func LayoutToSVG(l *nemd.Layout, width, height int) string {
	span := l.BoxHi - l.BoxLo
	if !(span > 0) {
		return ""
	}
	scale := func(v float64) float64 {
		v = math.Max(l.BoxLo, math.Min(l.BoxHi, v))
		return (v - l.BoxLo) / span * float64(width)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(svgHeader, width, height, width, height))

	// zone first so the interface slabs draw over it
	regions := append([]*nemd.Region{l.Zone}, l.LFixed, l.RFixed, l.Hot, l.Cold, l.Left, l.Right)
	for _, r := range regions {
		x0, x1 := scale(r.Interval.Lo), scale(r.Interval.Hi)
		if x1 <= x0 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="0" width="%.1f" height="%d" fill="%s"><title>%s [%g, %g]</title></rect>
`, x0, x1-x0, height, regionFill[r.ID], r.ID, r.Interval.Lo, r.Interval.Hi))
	}

	mx := scale(l.Middle)
	sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="#ffffff" stroke-width="1"/>
`, mx, mx, height))
	sb.WriteString("</svg>")
	return sb.String()
}
