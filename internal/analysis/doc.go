// Package analysis turns interface velocities into the spectral heat
// current across the interface and the conductance derived from it.
//
// The inputs are produced by a sampling run and a production run:
//
//   - the interface, left and right membership dumps give the atom order
//   - a compact velocity file holds the interface atoms' velocities
//   - a force-constant matrix couples left DOFs (rows) to right DOFs (columns)
//
// The velocity series is split into chunks. Each chunk is Fourier
// transformed and contracted with the force constants:
//
//	SHC(w) = -2 Im( vL(w) . K conj(vR(w)) ) / w
//
// Chunk spectra are smoothed with a Gaussian window and averaged; the spread
// between chunks gives the error estimate.
//
//	res, err := analysis.Compute(ctx, reader, in, params, log)
//	g, err := analysis.Conductance(res, area, dT)
package analysis
