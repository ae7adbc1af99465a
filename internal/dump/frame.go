// Package dump reads and writes the engine's text dump format: per-atom ID
// membership lists and multi-frame velocity trajectories, plus the compact
// velocity layout consumed by the spectral analysis.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed indicates a dump that does not follow the ITEM layout.
var ErrMalformed = errors.New("dump: malformed file")

// Frame is one snapshot of a dump file.
type Frame struct {
	Timestep int64
	Box      [3][2]float64
	// BoxFlags are the boundary flags after BOX BOUNDS, e.g. "pp pp pp".
	BoxFlags string
	Columns  []string
	Rows     [][]float64
}

// Column returns the index of the named column, or -1.
func (f *Frame) Column(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Reader iterates the frames of a dump.
type Reader struct {
	r    *bufio.Reader
	line int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (r *Reader) readLine() (string, error) {
	s, err := r.r.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	r.line++
	return strings.TrimRight(s, "\r\n"), nil
}

func (r *Reader) errorf(format string, v ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, r.line, fmt.Sprintf(format, v...))
}

func (r *Reader) expect(prefix string) (string, error) {
	s, err := r.readLine()
	if err != nil {
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	if !strings.HasPrefix(s, prefix) {
		return "", r.errorf("expected %q, got %q", prefix, s)
	}
	return strings.TrimSpace(strings.TrimPrefix(s, prefix)), nil
}

// Next reads the next frame. It returns io.EOF when no frame is left.
func (r *Reader) Next() (*Frame, error) {
	var s string
	var err error
	for {
		s, err = r.readLine()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) != "" {
			break
		}
	}
	if s != "ITEM: TIMESTEP" {
		return nil, r.errorf("expected ITEM: TIMESTEP, got %q", s)
	}

	f := &Frame{}
	if s, err = r.readLine(); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	if f.Timestep, err = strconv.ParseInt(strings.TrimSpace(s), 10, 64); err != nil {
		return nil, r.errorf("timestep: %v", err)
	}

	if _, err = r.expect("ITEM: NUMBER OF ATOMS"); err != nil {
		return nil, err
	}
	if s, err = r.readLine(); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil, r.errorf("atom count %q", s)
	}

	if f.BoxFlags, err = r.expect("ITEM: BOX BOUNDS"); err != nil {
		return nil, err
	}
	for d := 0; d < 3; d++ {
		if s, err = r.readLine(); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return nil, r.errorf("box bounds %q", s)
		}
		for k := 0; k < 2; k++ {
			if f.Box[d][k], err = strconv.ParseFloat(fields[k], 64); err != nil {
				return nil, r.errorf("box bounds: %v", err)
			}
		}
	}

	cols, err := r.expect("ITEM: ATOMS")
	if err != nil {
		return nil, err
	}
	f.Columns = strings.Fields(cols)
	if len(f.Columns) == 0 {
		return nil, r.errorf("no atom columns")
	}

	f.Rows = make([][]float64, n)
	for i := 0; i < n; i++ {
		if s, err = r.readLine(); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		fields := strings.Fields(s)
		if len(fields) != len(f.Columns) {
			return nil, r.errorf("expected %d columns, got %d", len(f.Columns), len(fields))
		}
		row := make([]float64, len(fields))
		for k, v := range fields {
			if row[k], err = strconv.ParseFloat(v, 64); err != nil {
				return nil, r.errorf("column %s: %v", f.Columns[k], err)
			}
		}
		f.Rows[i] = row
	}
	return f, nil
}

// WriteFrame writes f in the same layout Next reads. Integral columns
// (id, type) are written without a fractional part.
func WriteFrame(w io.Writer, f *Frame) error {
	bw := bufio.NewWriter(w)
	flags := f.BoxFlags
	if flags == "" {
		flags = "pp pp pp"
	}
	fmt.Fprintf(bw, "ITEM: TIMESTEP\n%d\n", f.Timestep)
	fmt.Fprintf(bw, "ITEM: NUMBER OF ATOMS\n%d\n", len(f.Rows))
	fmt.Fprintf(bw, "ITEM: BOX BOUNDS %s\n", flags)
	for d := 0; d < 3; d++ {
		fmt.Fprintf(bw, "%s %s\n", formatFloat(f.Box[d][0]), formatFloat(f.Box[d][1]))
	}
	fmt.Fprintf(bw, "ITEM: ATOMS %s\n", strings.Join(f.Columns, " "))
	for _, row := range f.Rows {
		for k, v := range row {
			if k > 0 {
				bw.WriteByte(' ')
			}
			if integral(f.Columns[k]) {
				bw.WriteString(strconv.FormatInt(int64(v), 10))
			} else {
				bw.WriteString(formatFloat(v))
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func integral(col string) bool {
	return col == "id" || col == "type" || col == "mol"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
