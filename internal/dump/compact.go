package dump

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const compactSeparator = "------"

// CompactHeader describes a compact velocity file.
type CompactHeader struct {
	NAtoms      int
	SampleSteps int64
	// IDs are the atom IDs in the order their velocity triples appear.
	IDs []int
}

// Compactify converts a multi-frame velocity dump with columns id vx vy vz
// into the compact layout: a header, then one line of 3*N velocities per
// frame ordered by atom ID. Every frame must hold the same atoms.
func Compactify(ctx context.Context, r io.Reader, w io.Writer) (*CompactHeader, error) {
	dr := NewReader(r)
	bw := bufio.NewWriter(w)

	var (
		hdr       *CompactHeader
		first     int64
		frames    int
		firstLine []byte
		idIndex   map[int]int
		velocity  []float64
		seen      []bool
		line      []byte
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		f, err := dr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		names := []string{"id", "vx", "vy", "vz"}
		cols := make([]int, len(names))
		for k, name := range names {
			if cols[k] = f.Column(name); cols[k] < 0 {
				return nil, fmt.Errorf("%w: frame %d missing column %s", ErrMalformed, f.Timestep, name)
			}
		}

		if hdr == nil {
			ids := make([]int, len(f.Rows))
			for i, row := range f.Rows {
				ids[i] = int(row[cols[0]])
			}
			sort.Ints(ids)
			idIndex = make(map[int]int, len(ids))
			for i, id := range ids {
				if i > 0 && ids[i-1] == id {
					return nil, fmt.Errorf("%w: frame %d repeats atom %d", ErrMalformed, f.Timestep, id)
				}
				idIndex[id] = i
			}
			hdr = &CompactHeader{NAtoms: len(ids), SampleSteps: 1, IDs: ids}
			first = f.Timestep
			velocity = make([]float64, 3*len(ids))
			seen = make([]bool, len(ids))
		} else if len(f.Rows) != hdr.NAtoms {
			return nil, fmt.Errorf("%w: frame %d has %d atoms, expected %d", ErrMalformed, f.Timestep, len(f.Rows), hdr.NAtoms)
		}

		clear(seen)
		for _, row := range f.Rows {
			id := int(row[cols[0]])
			i, ok := idIndex[id]
			if !ok {
				return nil, fmt.Errorf("%w: frame %d has unknown atom %d", ErrMalformed, f.Timestep, id)
			}
			if seen[i] {
				return nil, fmt.Errorf("%w: frame %d repeats atom %d", ErrMalformed, f.Timestep, id)
			}
			seen[i] = true
			velocity[3*i] = row[cols[1]]
			velocity[3*i+1] = row[cols[2]]
			velocity[3*i+2] = row[cols[3]]
		}
		for i, ok := range seen {
			if !ok {
				return nil, fmt.Errorf("%w: frame %d is missing atom %d", ErrMalformed, f.Timestep, hdr.IDs[i])
			}
		}

		line = line[:0]
		for k, v := range velocity {
			if k > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendFloat(line, v, 'g', -1, 64)
		}
		line = append(line, '\n')

		switch frames {
		case 0:
			// The header carries the stride, known only once the second
			// frame arrives.
			firstLine = append([]byte(nil), line...)
		case 1:
			hdr.SampleSteps = f.Timestep - first
			if hdr.SampleSteps <= 0 {
				return nil, fmt.Errorf("%w: timesteps not increasing (%d then %d)", ErrMalformed, first, f.Timestep)
			}
			writeCompactHeader(bw, hdr)
			bw.Write(firstLine)
			bw.Write(line)
		default:
			bw.Write(line)
		}
		frames++
	}

	if hdr == nil {
		return nil, fmt.Errorf("%w: no frames", ErrMalformed)
	}
	if frames == 1 {
		writeCompactHeader(bw, hdr)
		bw.Write(firstLine)
	}
	return hdr, bw.Flush()
}

func writeCompactHeader(w *bufio.Writer, h *CompactHeader) {
	fmt.Fprintf(w, "NAtoms: %d\n", h.NAtoms)
	fmt.Fprintf(w, "Sample_Steps: %d\n", h.SampleSteps)
	w.WriteString("Atom ids:\n")
	for i, id := range h.IDs {
		if i > 0 {
			w.WriteByte(' ')
		}
		w.WriteString(strconv.Itoa(id))
	}
	w.WriteString("\n" + compactSeparator + "\n")
}

// CompactReader streams velocity frames from a compact file.
type CompactReader struct {
	Header CompactHeader
	sc     *bufio.Scanner
}

// NewCompactReader parses the header and positions the reader at the first
// velocity frame.
func NewCompactReader(r io.Reader) (*CompactReader, error) {
	br := bufio.NewReader(r)

	field := func(name string) (string, error) {
		s, err := br.ReadString('\n')
		if err != nil && s == "" {
			return "", fmt.Errorf("%w: compact header: missing %s", ErrMalformed, name)
		}
		parts := strings.Fields(s)
		if len(parts) < 2 {
			return "", fmt.Errorf("%w: compact header: bad %s line %q", ErrMalformed, name, strings.TrimSpace(s))
		}
		return parts[1], nil
	}

	cr := &CompactReader{}
	s, err := field("NAtoms")
	if err != nil {
		return nil, err
	}
	if cr.Header.NAtoms, err = strconv.Atoi(s); err != nil || cr.Header.NAtoms <= 0 {
		return nil, fmt.Errorf("%w: compact header: atom count %q", ErrMalformed, s)
	}
	if s, err = field("Sample_Steps"); err != nil {
		return nil, err
	}
	if cr.Header.SampleSteps, err = strconv.ParseInt(s, 10, 64); err != nil || cr.Header.SampleSteps <= 0 {
		return nil, fmt.Errorf("%w: compact header: sample steps %q", ErrMalformed, s)
	}
	if _, err := br.ReadString('\n'); err != nil {
		return nil, fmt.Errorf("%w: compact header: missing id comment", ErrMalformed)
	}

	cr.sc = bufio.NewScanner(br)
	cr.sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	cr.sc.Split(bufio.ScanWords)

	cr.Header.IDs = make([]int, cr.Header.NAtoms)
	for i := range cr.Header.IDs {
		if !cr.sc.Scan() {
			return nil, fmt.Errorf("%w: compact header: expected %d ids, got %d", ErrMalformed, cr.Header.NAtoms, i)
		}
		if cr.Header.IDs[i], err = strconv.Atoi(cr.sc.Text()); err != nil {
			return nil, fmt.Errorf("%w: compact header: id %q", ErrMalformed, cr.sc.Text())
		}
	}
	if !cr.sc.Scan() || cr.sc.Text() != compactSeparator {
		return nil, fmt.Errorf("%w: compact header: missing separator", ErrMalformed)
	}
	return cr, nil
}

// DOF is the number of velocity components per frame.
func (cr *CompactReader) DOF() int { return 3 * cr.Header.NAtoms }

// ReadFrames reads up to n frames into dst, laid out frame-major
// (dst[f*DOF+k]). It returns the number of complete frames read; fewer than
// n means the file ended. A trailing partial frame is an error.
func (cr *CompactReader) ReadFrames(dst []float64, n int) (int, error) {
	ndof := cr.DOF()
	if len(dst) < n*ndof {
		return 0, fmt.Errorf("dump: buffer holds %d values, need %d", len(dst), n*ndof)
	}
	read := 0
	for read < n*ndof {
		if !cr.sc.Scan() {
			if err := cr.sc.Err(); err != nil {
				return read / ndof, err
			}
			break
		}
		v, err := strconv.ParseFloat(cr.sc.Text(), 64)
		if err != nil {
			return read / ndof, fmt.Errorf("%w: velocity %q", ErrMalformed, cr.sc.Text())
		}
		dst[read] = v
		read++
	}
	if read%ndof != 0 {
		return read / ndof, fmt.Errorf("%w: truncated frame (%d of %d values)", ErrMalformed, read%ndof, ndof)
	}
	return read / ndof, nil
}
