package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Boltzmann is k_B in J/K.
const Boltzmann = 1.380649e-23

// Spectrum is the conductance view of a heat current result.
type Spectrum struct {
	// FreqTHz is w/2pi in THz.
	FreqTHz []float64
	// G is the spectral conductance in GW/m^2/K/THz.
	G []float64
	// Transmission is SHC/(k_B dT), dimensionless.
	Transmission []float64
	// Cumulative[i] integrates G from the first frequency to FreqTHz[i].
	Cumulative []float64
	// Total is the integral of G over the whole grid in GW/m^2/K.
	Total float64
}

// Conductance converts a smoothed heat current into spectral conductance
// for an interface of area A^2 held at a temperature difference dT K.
func Conductance(r *Result, area, dT float64) (*Spectrum, error) {
	if area <= 0 {
		return nil, fmt.Errorf("analysis: area must be positive, got %g", area)
	}
	if dT == 0 || math.IsNaN(dT) {
		return nil, fmt.Errorf("analysis: temperature jump must be non-zero, got %g", dT)
	}
	n := len(r.Smooth)
	if n < 2 || len(r.Omega) != n {
		return nil, fmt.Errorf("%w: spectrum has %d points on a grid of %d", ErrShapeMismatch, n, len(r.Omega))
	}

	s := &Spectrum{
		FreqTHz:      make([]float64, n),
		G:            make([]float64, n),
		Transmission: make([]float64, n),
		Cumulative:   make([]float64, n),
	}
	floats.ScaleTo(s.FreqTHz, 1/(2*math.Pi*1e12), r.Omega)
	floats.ScaleTo(s.G, 1/(1e-12*area*1e-20*dT*1e9), r.Smooth)
	floats.ScaleTo(s.Transmission, 1/(Boltzmann*dT), r.Smooth)

	for i := 1; i < n; i++ {
		dx := s.FreqTHz[i] - s.FreqTHz[i-1]
		s.Cumulative[i] = s.Cumulative[i-1] + dx*(s.G[i]+s.G[i-1])/2
	}
	s.Total = integrate.Trapezoidal(s.FreqTHz, s.G)
	return s, nil
}
