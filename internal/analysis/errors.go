package analysis

import "errors"

var (
	// ErrShapeMismatch indicates inputs that disagree on atom counts or order.
	ErrShapeMismatch = errors.New("analysis: input shape mismatch")

	// ErrDirection indicates both in-plane and out-of-plane filtering.
	ErrDirection = errors.New("analysis: in-plane and out-of-plane are exclusive")

	// ErrSampling indicates inconsistent timestep or chunk settings.
	ErrSampling = errors.New("analysis: invalid sampling parameters")

	// ErrMalformedMatrix indicates a force-constant file that could not be parsed.
	ErrMalformedMatrix = errors.New("analysis: malformed force-constant matrix")
)
