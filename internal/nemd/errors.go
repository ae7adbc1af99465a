package nemd

import (
	"errors"
	"fmt"
)

// Domain errors for setup derivation and sampling.
var (
	// ErrUndefinedVariable indicates a reference to a variable that is not
	// declared earlier in the list.
	ErrUndefinedVariable = errors.New("nemd: variable used before definition")

	// ErrDuplicateVariable indicates a variable declared twice.
	ErrDuplicateVariable = errors.New("nemd: variable already defined")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("nemd: parameter out of valid bounds")

	// ErrDegenerateLayout indicates the box is too small for the requested
	// margin, so derived regions are empty or inverted.
	ErrDegenerateLayout = errors.New("nemd: degenerate region layout")

	// ErrUnknownAxis indicates an axis name other than x, y or z.
	ErrUnknownAxis = errors.New("nemd: unknown axis")

	// ErrInvalidTransition indicates a pipeline stage called out of order.
	ErrInvalidTransition = errors.New("nemd: invalid pipeline transition")

	// ErrUnsupportedCheckpoint indicates a checkpoint format that cannot be
	// read outside the engine.
	ErrUnsupportedCheckpoint = errors.New("nemd: unsupported checkpoint format")

	// ErrMalformedCheckpoint indicates a checkpoint that could not be parsed.
	ErrMalformedCheckpoint = errors.New("nemd: malformed checkpoint")
)

// LayoutError wraps an error with the region that triggered it.
type LayoutError struct {
	Region  string
	Lo, Hi  float64
	Wrapped error
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("%v: region %s [%g, %g]", e.Wrapped, e.Region, e.Lo, e.Hi)
}

func (e *LayoutError) Unwrap() error {
	return e.Wrapped
}
