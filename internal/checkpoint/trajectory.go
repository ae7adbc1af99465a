package checkpoint

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/nemd/internal/dump"
	"github.com/san-kum/nemd/internal/nemd"
)

// TrajectoryLoader reads the first frame of a text dump. Positions come from
// x y z, falling back to the unwrapped xu yu zu columns.
type TrajectoryLoader struct {
	log nemd.Logger
}

func NewTrajectoryLoader(log nemd.Logger) *TrajectoryLoader {
	return &TrajectoryLoader{log: log}
}

func (t *TrajectoryLoader) Load(ctx context.Context, path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := dump.NewReader(f).Next()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s: no frames", nemd.ErrMalformedCheckpoint, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", nemd.ErrMalformedCheckpoint, path, err)
	}

	id, typ := frame.Column("id"), frame.Column("type")
	if id < 0 || typ < 0 {
		return nil, fmt.Errorf("%w: %s: frame needs id and type columns", nemd.ErrMalformedCheckpoint, path)
	}
	pos := columns(frame, "x", "y", "z")
	if pos == nil {
		pos = columns(frame, "xu", "yu", "zu")
	}
	if pos == nil {
		return nil, fmt.Errorf("%w: %s: frame has no x y z or xu yu zu columns", nemd.ErrMalformedCheckpoint, path)
	}
	vel := columns(frame, "vx", "vy", "vz")

	snap := &Snapshot{Box: frame.Box, Atoms: make([]nemd.Atom, len(frame.Rows))}
	seen := make(map[int]bool, len(frame.Rows))
	for i, row := range frame.Rows {
		a := nemd.Atom{ID: int(row[id]), Type: int(row[typ])}
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: %s: duplicate atom id %d", nemd.ErrMalformedCheckpoint, path, a.ID)
		}
		seen[a.ID] = true
		for k := 0; k < 3; k++ {
			a.Pos[k] = row[pos[k]]
			if vel != nil {
				a.Vel[k] = row[vel[k]]
			}
		}
		snap.Atoms[i] = a
	}

	t.log.Debugf("loaded %d atoms from frame at step %d of %s", len(snap.Atoms), frame.Timestep, path)
	return snap, nil
}

func columns(f *dump.Frame, names ...string) []int {
	idx := make([]int, len(names))
	for i, n := range names {
		if idx[i] = f.Column(n); idx[i] < 0 {
			return nil
		}
	}
	return idx
}
