package analysis

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ReadKij parses a whitespace-separated force-constant matrix, one row per
// line. Blank lines and lines starting with # are skipped.
func ReadKij(r io.Reader) (*mat.Dense, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var (
		data []float64
		cols int
		rows int
		line int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if rows == 0 {
			cols = len(fields)
		} else if len(fields) != cols {
			return nil, fmt.Errorf("%w: line %d has %d columns, expected %d", ErrMalformedMatrix, line, len(fields), cols)
		}
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %q", ErrMalformedMatrix, line, f)
			}
			data = append(data, v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: empty", ErrMalformedMatrix)
	}
	return mat.NewDense(rows, cols, data), nil
}

func ReadKijFile(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadKij(f)
}

// Indices returns the positions of the left and right IDs within the sorted
// interface IDs. Every left and right ID must be an interface atom.
func Indices(iface, left, right []int) (idsL, idsR []int, err error) {
	if !sort.IntsAreSorted(iface) {
		return nil, nil, fmt.Errorf("%w: interface ids not sorted", ErrShapeMismatch)
	}
	if len(left)+len(right) != len(iface) {
		return nil, nil, fmt.Errorf("%w: %d left + %d right ids, %d interface ids", ErrShapeMismatch, len(left), len(right), len(iface))
	}
	used := make([]bool, len(iface))
	find := func(ids []int, side string) ([]int, error) {
		out := make([]int, len(ids))
		for i, id := range ids {
			j := sort.SearchInts(iface, id)
			if j >= len(iface) || iface[j] != id {
				return nil, fmt.Errorf("%w: %s atom %d is not in the interface", ErrShapeMismatch, side, id)
			}
			if used[j] {
				return nil, fmt.Errorf("%w: atom %d listed twice", ErrShapeMismatch, id)
			}
			used[j] = true
			out[i] = j
		}
		return out, nil
	}
	if idsL, err = find(left, "left"); err != nil {
		return nil, nil, err
	}
	if idsR, err = find(right, "right"); err != nil {
		return nil, nil, err
	}
	return idsL, idsR, nil
}
