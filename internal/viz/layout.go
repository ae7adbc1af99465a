package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/nemd/internal/nemd"
	"github.com/san-kum/nemd/internal/sim"
)

func fmtBound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-INF"
	case math.IsInf(v, 1):
		return "INF"
	}
	return fmt.Sprintf("%.3f", v)
}

func row(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = lipgloss.NewStyle().Width(widths[i]).Render(c)
	}
	return strings.Join(parts, " ")
}

// RenderLayout renders the derived regions as a table, followed by the
// derived scalars and any warnings.
func RenderLayout(l *nemd.Layout) string {
	widths := []int{10, 10, 10, 9, 4}
	var b strings.Builder

	b.WriteString(Title.Render(fmt.Sprintf("partition along %s, box [%g, %g]", l.Params.Axis, l.BoxLo, l.BoxHi)))
	b.WriteString("\n\n")
	b.WriteString(HeaderStyle.Render(row([]string{"region", "lo", "hi", "width", "ends"}, widths)))
	b.WriteString("\n")

	for _, r := range l.Regions() {
		iv := r.Interval
		width := "-"
		if !math.IsInf(iv.Lo, 0) && !math.IsInf(iv.Hi, 0) {
			width = fmt.Sprintf("%.3f", iv.Width())
		}
		ends := "[]"
		if iv.LoOpen {
			ends = "(" + ends[1:]
		}
		if iv.HiOpen {
			ends = ends[:1] + ")"
		}
		line := row([]string{r.ID, fmtBound(iv.Lo), fmtBound(iv.Hi), width, ends}, widths)
		b.WriteString(regionStyle(r.ID).Render(line))
		b.WriteString("\n")
	}
	for _, u := range l.Unions() {
		names := make([]string, len(u.Parts))
		for i, p := range u.Parts {
			names[i] = p.ID
		}
		b.WriteString(Subtle.Render(fmt.Sprintf("%-10s = %s", u.ID, strings.Join(names, " ∪ "))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(metric("middle", l.Middle) + "  " + metric("ramp", l.Ramp) + "  " +
		metric("lbound", l.LeftBound) + "  " + metric("rbound", l.RightBound))
	b.WriteString("\n")

	for _, w := range l.Warnings {
		b.WriteString(Warning.Render("warning: " + w))
		b.WriteString("\n")
	}
	return b.String()
}

func metric(label string, v float64) string {
	return MetricLabel.Render(label+" ") + MetricValue.Render(fmt.Sprintf("%.3f", v))
}

// AxisStrip maps the box onto width cells, one letter per region:
// F fixed, H hot, C cold, L left, R right, : guard zone, . integrated.
func AxisStrip(l *nemd.Layout, width int) string {
	if width <= 0 || l.BoxHi <= l.BoxLo {
		return ""
	}
	order := []struct {
		r    *nemd.Region
		mark string
	}{
		{l.LFixed, "F"}, {l.RFixed, "F"},
		{l.Hot, "H"}, {l.Cold, "C"},
		{l.Left, "L"}, {l.Right, "R"},
		{l.Zone, ":"},
	}

	var b strings.Builder
	cell := (l.BoxHi - l.BoxLo) / float64(width)
	for i := 0; i < width; i++ {
		x := l.BoxLo + (float64(i)+0.5)*cell
		mark, id := ".", ""
		for _, o := range order {
			if o.r.Interval.Contains(x) {
				mark, id = o.mark, o.r.ID
				break
			}
		}
		b.WriteString(regionStyle(id).Render(mark))
	}
	return b.String()
}

// Profile bins atom positions along axis into width cells. A non-positive
// width yields no cells.
func Profile(atoms []nemd.Atom, axis nemd.Axis, lo, hi float64, width int) []float64 {
	if width <= 0 {
		return nil
	}
	counts := make([]float64, width)
	if hi <= lo {
		return counts
	}
	for _, a := range atoms {
		i := int((a.Pos[axis] - lo) / (hi - lo) * float64(width))
		if i >= 0 && i < width {
			counts[i]++
		}
	}
	return counts
}

// RenderReport summarizes a sampling run.
func RenderReport(r *sim.Report) string {
	var b strings.Builder
	b.WriteString(Title.Render("sampling report"))
	b.WriteString("\n")

	groups := make([]string, 0, len(r.Groups))
	counts := make(map[string]int, len(r.Groups))
	for _, g := range r.Groups {
		groups = append(groups, g.Name)
		counts[g.Name] = g.Count()
	}
	sort.SliceStable(groups, func(i, j int) bool { return counts[groups[i]] > counts[groups[j]] })

	for _, name := range groups {
		b.WriteString(fmt.Sprintf("%s %s\n",
			MetricLabel.Render(fmt.Sprintf("%-10s", name)),
			MetricValue.Render(fmt.Sprintf("%d", counts[name]))))
	}
	if len(r.Thermo) > 0 {
		b.WriteString(Separator(30))
		b.WriteString("\n")
		for _, th := range r.Thermo {
			b.WriteString(fmt.Sprintf("%s %s\n",
				MetricLabel.Render(fmt.Sprintf("T(%s)", th.Group)),
				MetricValue.Render(fmt.Sprintf("%.2f K", th.Temperature))))
		}
	}
	b.WriteString(Separator(30))
	b.WriteString("\n")
	for _, line := range r.Lines() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(r.Files) > 0 {
		b.WriteString(Subtle.Render("wrote " + strings.Join(r.Files, ", ")))
		b.WriteString("\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}
