package export

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/nemd/internal/nemd"
)

func TestSpectrumToSVG(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{-1, 2, math.NaN(), 0.5}

	svg := SpectrumToSVG(x, y, 200, 100, "#00ff00")
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not an svg document: %q", svg)
	}
	if got := strings.Count(svg, " L"); got != 2 {
		t.Errorf("expected 2 line segments after dropping NaN, got %d", got)
	}
	if !strings.Contains(svg, "stroke-dasharray") {
		t.Error("expected a zero line for a signed spectrum")
	}
}

func TestSpectrumToSVGTooShort(t *testing.T) {
	if svg := SpectrumToSVG([]float64{1}, []float64{1}, 10, 10, "red"); svg != "" {
		t.Errorf("expected empty output, got %q", svg)
	}
}

func TestLayoutToSVG(t *testing.T) {
	l, err := nemd.Derive(nemd.DefaultParams(), 0, 430)
	if err != nil {
		t.Fatal(err)
	}
	svg := LayoutToSVG(l, 430, 40)
	for _, id := range []string{"lfixed", "rfixed", "hot", "cold", "left", "right", "zone"} {
		if !strings.Contains(svg, "<title>"+id+" ") {
			t.Errorf("missing band for %s", id)
		}
	}
	if !strings.Contains(svg, `x1="215.0"`) {
		t.Error("expected the midpoint marker at x=215")
	}
}

func TestLayoutToSVGTemplate(t *testing.T) {
	l, err := nemd.Template(nemd.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if svg := LayoutToSVG(l, 100, 10); svg != "" {
		t.Errorf("expected empty output without a box, got %q", svg)
	}
}
