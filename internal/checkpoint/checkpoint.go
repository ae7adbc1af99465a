// Package checkpoint loads atomic snapshots for local sampling. The engine's
// binary restart stays opaque: only its text exports (write_data files and
// dump frames) are read here.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/san-kum/nemd/internal/nemd"
)

// Snapshot is the loaded atomic state.
type Snapshot struct {
	Path   string
	Format string
	Box    [3][2]float64
	Atoms  []nemd.Atom
	// Masses per atom type, when the file carries them.
	Masses map[int]float64
}

// Bounds returns the box bounds along axis.
func (s *Snapshot) Bounds(axis nemd.Axis) (float64, float64) {
	return s.Box[axis][0], s.Box[axis][1]
}

// Loader reads a snapshot from path.
type Loader interface {
	Load(ctx context.Context, path string) (*Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (*Snapshot, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (*Snapshot, error) {
	return f(ctx, path)
}

func malformed(path string, line int, format string, v ...any) error {
	return fmt.Errorf("%w: %s:%d: %s", nemd.ErrMalformedCheckpoint, path, line, fmt.Sprintf(format, v...))
}
