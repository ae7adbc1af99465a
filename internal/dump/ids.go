package dump

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// IDFrame is a membership snapshot: the IDs of one group at one timestep.
type IDFrame struct {
	Timestep int64
	Box      [3][2]float64
	IDs      []int
}

// WriteIDs writes a single-frame dump with an id column, sorted ascending.
func WriteIDs(w io.Writer, f IDFrame) error {
	ids := make([]int, len(f.IDs))
	copy(ids, f.IDs)
	sort.Ints(ids)

	rows := make([][]float64, len(ids))
	for i, id := range ids {
		rows[i] = []float64{float64(id)}
	}
	return WriteFrame(w, &Frame{Timestep: f.Timestep, Box: f.Box, Columns: []string{"id"}, Rows: rows})
}

// ReadIDs returns the id column of the first frame.
func ReadIDs(r io.Reader) ([]int, error) {
	f, err := NewReader(r).Next()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty dump", ErrMalformed)
		}
		return nil, err
	}
	col := f.Column("id")
	if col < 0 {
		return nil, fmt.Errorf("%w: no id column", ErrMalformed)
	}
	ids := make([]int, len(f.Rows))
	for i, row := range f.Rows {
		ids[i] = int(row[col])
	}
	return ids, nil
}

func ReadIDsFile(path string) ([]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ids, err := ReadIDs(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ids, nil
}
