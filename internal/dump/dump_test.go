package dump

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const velocityDump = `ITEM: TIMESTEP
100
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 400
0 3.35
ITEM: ATOMS id vx vy vz
7 0.1 0.2 0.3
3 -1 -2 -3
ITEM: TIMESTEP
115
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 400
0 3.35
ITEM: ATOMS id vx vy vz
3 -1.5 -2.5 -3.5
7 0.4 0.5 0.6
`

func TestIDsRoundTripSorted(t *testing.T) {
	var buf bytes.Buffer
	box := [3][2]float64{{0, 10}, {0, 400}, {0, 3.35}}
	if err := WriteIDs(&buf, IDFrame{Box: box, IDs: []int{42, 3, 17}}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if !strings.Contains(buf.String(), "ITEM: ATOMS id\n3\n17\n42\n") {
		t.Errorf("expected sorted id rows, got:\n%s", buf.String())
	}

	ids, err := ReadIDs(&buf)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []int{3, 17, 42}) {
		t.Errorf("expected [3 17 42], got %v", ids)
	}
}

func TestIDsFileEmptyGroup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.left")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteIDs(f, IDFrame{}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	f.Close()
	ids, err := ReadIDsFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}

func TestReaderFrames(t *testing.T) {
	r := NewReader(strings.NewReader(velocityDump))

	f, err := r.Next()
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if f.Timestep != 100 || len(f.Rows) != 2 {
		t.Errorf("unexpected first frame: step %d rows %d", f.Timestep, len(f.Rows))
	}
	if f.Box[1][1] != 400 {
		t.Errorf("expected yhi 400, got %g", f.Box[1][1])
	}
	if f.Column("vy") != 2 {
		t.Errorf("expected vy at column 2, got %d", f.Column("vy"))
	}

	if _, err := r.Next(); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReaderMalformed(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no header", "hello\n"},
		{"bad count", "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\nx\n"},
		{"short row", "ITEM: TIMESTEP\n0\nITEM: NUMBER OF ATOMS\n1\nITEM: BOX BOUNDS pp pp pp\n0 1\n0 1\n0 1\nITEM: ATOMS id x\n1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(tt.in)).Next()
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}

	_, err := NewReader(strings.NewReader("ITEM: TIMESTEP\n0\n")).Next()
	if err != io.ErrUnexpectedEOF {
		t.Errorf("expected io.ErrUnexpectedEOF for truncated frame, got %v", err)
	}
}

func TestCompactify(t *testing.T) {
	var out bytes.Buffer
	hdr, err := Compactify(context.Background(), strings.NewReader(velocityDump), &out)
	if err != nil {
		t.Fatalf("compactify failed: %v", err)
	}
	if hdr.NAtoms != 2 || hdr.SampleSteps != 15 {
		t.Errorf("unexpected header: %+v", hdr)
	}

	want := "NAtoms: 2\nSample_Steps: 15\nAtom ids:\n3 7\n------\n" +
		"-1 -2 -3 0.1 0.2 0.3\n" +
		"-1.5 -2.5 -3.5 0.4 0.5 0.6\n"
	if out.String() != want {
		t.Errorf("unexpected compact output:\n%s", out.String())
	}

	cr, err := NewCompactReader(&out)
	if err != nil {
		t.Fatalf("reader failed: %v", err)
	}
	if !reflect.DeepEqual(cr.Header.IDs, []int{3, 7}) {
		t.Errorf("expected ids [3 7], got %v", cr.Header.IDs)
	}

	buf := make([]float64, 3*cr.DOF())
	n, err := cr.ReadFrames(buf, 3)
	if err != nil {
		t.Fatalf("read frames: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 frames, got %d", n)
	}
	if buf[6] != -1.5 || buf[11] != 0.6 {
		t.Errorf("unexpected frame layout: %v", buf[:12])
	}
}

func TestCompactifySingleFrame(t *testing.T) {
	single := velocityDump[:strings.Index(velocityDump, "ITEM: TIMESTEP\n115")]
	var out bytes.Buffer
	hdr, err := Compactify(context.Background(), strings.NewReader(single), &out)
	if err != nil {
		t.Fatalf("compactify failed: %v", err)
	}
	if hdr.SampleSteps != 1 {
		t.Errorf("expected stride 1 for single frame, got %d", hdr.SampleSteps)
	}
	if !strings.HasSuffix(out.String(), "------\n-1 -2 -3 0.1 0.2 0.3\n") {
		t.Errorf("unexpected output:\n%s", out.String())
	}
}

func TestCompactifyAtomMismatch(t *testing.T) {
	bad := strings.Replace(velocityDump, "3 -1.5 -2.5 -3.5", "9 -1.5 -2.5 -3.5", 1)
	_, err := Compactify(context.Background(), strings.NewReader(bad), io.Discard)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestCompactifyRejectsRepeatedAtoms(t *testing.T) {
	tests := []struct {
		name string
		dump string
		want string
	}{
		{
			name: "later frame repeats one atom and drops another",
			dump: strings.Replace(velocityDump, "7 0.4 0.5 0.6", "3 0.4 0.5 0.6", 1),
			want: "frame 115 repeats atom 3",
		},
		{
			name: "first frame repeats an atom",
			dump: strings.Replace(velocityDump, "7 0.1 0.2 0.3", "3 0.1 0.2 0.3", 1),
			want: "frame 100 repeats atom 3",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := Compactify(context.Background(), strings.NewReader(tt.dump), &out)
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestCompactifyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Compactify(ctx, strings.NewReader(velocityDump), io.Discard); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCompactReaderTruncated(t *testing.T) {
	in := "NAtoms: 1\nSample_Steps: 10\nAtom ids:\n5\n------\n1 2 3\n4 5\n"
	cr, err := NewCompactReader(strings.NewReader(in))
	if err != nil {
		t.Fatalf("reader failed: %v", err)
	}
	buf := make([]float64, 6)
	n, err := cr.ReadFrames(buf, 2)
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for partial frame, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected one complete frame, got %d", n)
	}
}
