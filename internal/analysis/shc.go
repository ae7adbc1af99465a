package analysis

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/dump"
	"github.com/san-kum/nemd/internal/nemd"
)

// Params controls chunking, units and smoothing.
type Params struct {
	// DtMD is the integration timestep in seconds.
	DtMD float64
	// SampleEvery is the number of MD steps between velocity frames.
	SampleEvery int
	Steps       int
	Chunks      int
	ScaleFactor float64
	// WindowWidth is the smoothing window in Hz.
	WindowWidth float64
	InPlane     bool
	OutOfPlane  bool
	// Workers bounds the goroutines used for the per-DOF transforms.
	// Zero means GOMAXPROCS.
	Workers int
}

func ParamsFromConfig(a config.AnalysisConfig) Params {
	return Params{
		DtMD:        a.DtMD,
		SampleEvery: a.SampleEvery,
		Steps:       a.Steps,
		Chunks:      a.Chunks,
		ScaleFactor: a.ScaleFactor,
		WindowWidth: a.WindowWidth,
		InPlane:     a.InPlane,
		OutOfPlane:  a.OutOfPlane,
	}
}

func (p Params) Validate() error {
	if p.DtMD <= 0 {
		return fmt.Errorf("%w: dt_md must be positive, got %g", ErrSampling, p.DtMD)
	}
	if p.SampleEvery < 1 || p.Steps < 1 || p.Chunks < 1 {
		return fmt.Errorf("%w: sample_every, steps and chunks must be positive", ErrSampling)
	}
	if p.ChunkSize() < 2 {
		return fmt.Errorf("%w: %d steps / %d / %d chunks leaves fewer than 2 frames per chunk",
			ErrSampling, p.Steps, p.SampleEvery, p.Chunks)
	}
	if p.WindowWidth < 0 {
		return fmt.Errorf("%w: window width must not be negative", ErrSampling)
	}
	if p.InPlane && p.OutOfPlane {
		return ErrDirection
	}
	return nil
}

// ChunkSize is the number of frames per chunk.
func (p Params) ChunkSize() int { return p.Steps / p.SampleEvery / p.Chunks }

// SampleTimestep is the time between velocity frames in seconds.
func (p Params) SampleTimestep() float64 { return p.DtMD * float64(p.SampleEvery) }

// keep reports whether Cartesian component c (0, 1, 2) contributes.
func (p Params) keep(c int) bool {
	switch {
	case p.InPlane:
		return c != 2
	case p.OutOfPlane:
		return c == 2
	}
	return true
}

// Inputs ties the force constants to the velocity file's atom order.
type Inputs struct {
	Interface  []int
	IDsL, IDsR []int
	Kij        *mat.Dense
}

// NewInputs checks that kij is 3*len(left) by 3*len(right) and resolves the
// left and right positions within the interface.
func NewInputs(iface, left, right []int, kij *mat.Dense) (*Inputs, error) {
	idsL, idsR, err := Indices(iface, left, right)
	if err != nil {
		return nil, err
	}
	r, c := kij.Dims()
	if r != 3*len(left) || c != 3*len(right) {
		return nil, fmt.Errorf("%w: force constants are %dx%d, expected %dx%d",
			ErrShapeMismatch, r, c, 3*len(left), 3*len(right))
	}
	return &Inputs{Interface: iface, IDsL: idsL, IDsR: idsR, Kij: kij}, nil
}

// Result holds chunk-averaged spectra on the angular frequency grid Omega.
type Result struct {
	Omega []float64
	// Smooth is the average of the smoothed chunk spectra, Smooth2 the
	// average of their squares.
	Smooth  []float64
	Smooth2 []float64
	// Average is the unsmoothed chunk average.
	Average []float64
	// Error is nil when only one chunk was evaluated.
	Error []float64

	Chunks         int
	ChunkSize      int
	SampleTimestep float64
}

// Frequencies returns Omega/2pi in Hz.
func (r *Result) Frequencies() []float64 {
	out := make([]float64, len(r.Omega))
	copy(out, r.Omega)
	floats.Scale(1/(2*math.Pi), out)
	return out
}

// Compute reads chunks of frames from cr until p.Chunks are done or the
// file ends. A short first chunk is used as is and ends the run; a short
// later chunk is dropped.
func Compute(ctx context.Context, cr *dump.CompactReader, in *Inputs, p Params, log nemd.Logger) (*Result, error) {
	if log == nil {
		log = nemd.NewNoOpLogger()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	hdr := cr.Header
	if hdr.NAtoms != len(in.IDsL)+len(in.IDsR) {
		return nil, fmt.Errorf("%w: velocity file has %d atoms, interface has %d", ErrShapeMismatch, hdr.NAtoms, len(in.IDsL)+len(in.IDsR))
	}
	for i, id := range hdr.IDs {
		if id != in.Interface[i] {
			return nil, fmt.Errorf("%w: velocity atom %d is %d, interface atom is %d", ErrShapeMismatch, i, id, in.Interface[i])
		}
	}
	if hdr.SampleSteps != int64(p.SampleEvery) {
		return nil, fmt.Errorf("%w: velocity file sampled every %d steps, expected %d", ErrSampling, hdr.SampleSteps, p.SampleEvery)
	}

	dt := p.SampleTimestep()
	size := p.ChunkSize()
	ndof := cr.DOF()
	buf := make([]float64, size*ndof)

	res := &Result{ChunkSize: size, SampleTimestep: dt}
	for k := 0; k < p.Chunks; k++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		n, err := cr.ReadFrames(buf, size)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			log.Debugf("velocity file ended after %d chunks", k)
			break
		}
		short := n < size
		if short {
			if k > 0 {
				log.Debugf("dropping short chunk %d (%d of %d frames)", k, n, size)
				break
			}
			if n < 2 {
				return nil, fmt.Errorf("%w: only %d frame in the velocity file", ErrSampling, n)
			}
			log.Warnf("velocity file holds %d frames, less than one chunk of %d; chunk size reduced", n, size)
			size = n
			res.ChunkSize = n
		}

		raw := chunkSpectrum(buf[:size*ndof], size, ndof, dt, in, p)
		res.Omega = omegas(size, dt)
		df := (res.Omega[1] - res.Omega[0]) / (2 * math.Pi)
		smooth := Smooth(raw, df, p.WindowWidth)

		if k == 0 {
			res.Smooth = smooth
			res.Smooth2 = make([]float64, len(smooth))
			floats.MulTo(res.Smooth2, smooth, smooth)
			res.Average = raw
		} else {
			runningMean(res.Smooth, smooth, k)
			sq := make([]float64, len(smooth))
			floats.MulTo(sq, smooth, smooth)
			runningMean(res.Smooth2, sq, k)
			runningMean(res.Average, raw, k)
		}
		res.Chunks = k + 1
		log.Debugf("chunk %d: %d frames", k, size)

		if short {
			break
		}
	}
	if res.Chunks == 0 {
		return nil, fmt.Errorf("%w: velocity file holds no frames", ErrSampling)
	}

	if res.Chunks > 1 {
		nc := float64(res.Chunks)
		res.Error = make([]float64, len(res.Smooth))
		for i := range res.Error {
			v := nc / (nc - 1) * (res.Smooth2[i] - res.Smooth[i]*res.Smooth[i])
			res.Error[i] = math.Sqrt(math.Max(v, 0)) / math.Sqrt(nc)
		}
	}
	log.Infof("spectral heat current from %d chunks of %d frames", res.Chunks, res.ChunkSize)
	return res, nil
}

// runningMean folds x into the mean of k earlier samples held in avg.
func runningMean(avg, x []float64, k int) {
	w := float64(k)
	for i := range avg {
		avg[i] = (w*avg[i] + x[i]) / (w + 1)
	}
}

// omegas is the angular frequency grid of a real transform of n samples.
func omegas(n int, dt float64) []float64 {
	out := make([]float64, n/2+1)
	for k := range out {
		out[k] = 2 * math.Pi * float64(k) / (float64(n) * dt)
	}
	return out
}

// transform Fourier transforms every DOF of a frame-major block, keeping the
// non-negative frequencies scaled by dt.
func transform(block []float64, size, ndof int, dt float64, workers int) [][]complex128 {
	nfreq := size/2 + 1
	out := make([][]complex128, ndof)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > ndof {
		workers = ndof
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			series := make([]float64, size)
			for d := range jobs {
				for t := 0; t < size; t++ {
					series[t] = block[t*ndof+d]
				}
				spec := fft.FFTReal(series)[:nfreq]
				for i := range spec {
					spec[i] *= complex(dt, 0)
				}
				out[d] = spec
			}
		}()
	}
	for d := 0; d < ndof; d++ {
		jobs <- d
	}
	close(jobs)
	wg.Wait()
	return out
}

// chunkSpectrum returns the scaled, unsmoothed spectral heat current of one
// chunk.
func chunkSpectrum(block []float64, size, ndof int, dt float64, in *Inputs, p Params) []float64 {
	spec := transform(block, size, ndof, dt, p.Workers)
	nfreq := size/2 + 1
	omega := omegas(size, dt)

	nl, nr := 3*len(in.IDsL), 3*len(in.IDsR)
	reL, imL := make([]float64, nl), make([]float64, nl)
	reR, imR := mat.NewVecDense(nr, nil), mat.NewVecDense(nr, nil)
	var kre, kim mat.VecDense

	gather := func(ids []int, k int, re, im func(i int, v float64)) {
		for i, idx := range ids {
			for c := 0; c < 3; c++ {
				var v complex128
				if p.keep(c) {
					v = spec[3*idx+c][k]
				}
				re(3*i+c, real(v))
				im(3*i+c, imag(v))
			}
		}
	}

	shc := make([]float64, nfreq)
	for k := 1; k < nfreq; k++ {
		gather(in.IDsL, k,
			func(i int, v float64) { reL[i] = v },
			func(i int, v float64) { imL[i] = v })
		gather(in.IDsR, k, reR.SetVec, imR.SetVec)

		// K conj(vR) = K Re(vR) - i K Im(vR)
		kre.MulVec(in.Kij, reR)
		kim.MulVec(in.Kij, imR)
		c, d := kre.RawVector().Data, kim.RawVector().Data

		// Im(vL . (c - i d)) = Im(vL).c - Re(vL).d
		im := floats.Dot(imL, c) - floats.Dot(reL, d)
		shc[k] = -2 * im / omega[k]
	}

	floats.Scale(p.ScaleFactor/(float64(size)*dt), shc)
	return shc
}
