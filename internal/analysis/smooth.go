package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GaussianWindow returns a normalized Gaussian kernel spanning width/df
// samples, rounded up to an odd count. The span covers six standard
// deviations.
func GaussianWindow(df, width float64) []float64 {
	n := int(math.Ceil(width / df))
	if n < 1 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}
	if n == 1 {
		return []float64{1}
	}

	g := make([]float64, n)
	for i := range g {
		x := 3 * (2*float64(i)/float64(n-1) - 1)
		g[i] = math.Exp(-x * x / 2)
	}
	floats.Scale(1/floats.Sum(g), g)
	return g
}

// Smooth convolves f with a Gaussian window and keeps the centre len(f)
// samples of the full convolution.
func Smooth(f []float64, df, width float64) []float64 {
	return convolveSame(f, GaussianWindow(df, width))
}

func convolveSame(f, g []float64) []float64 {
	out := make([]float64, len(f))
	c := (len(g) - 1) / 2
	for i := range out {
		var s float64
		for k, w := range g {
			j := i + c - k
			if j < 0 || j >= len(f) {
				continue
			}
			s += f[j] * w
		}
		out[i] = s
	}
	return out
}
