package checkpoint

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/nemd/internal/nemd"
)

// columns of id, type and x in each supported atom style
var atomStyles = map[string][3]int{
	"atomic":    {0, 1, 2},
	"charge":    {0, 1, 3},
	"bond":      {0, 2, 3},
	"angle":     {0, 2, 3},
	"molecular": {0, 2, 3},
	"full":      {0, 2, 4},
}

// DataLoader reads the text data files written by the engine's write_data.
type DataLoader struct {
	log nemd.Logger
}

func NewDataLoader(log nemd.Logger) *DataLoader {
	return &DataLoader{log: log}
}

func (d *DataLoader) Load(ctx context.Context, path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	snap := &Snapshot{Masses: make(map[int]float64)}
	var (
		natoms  = -1
		line    int
		section string
		style   = "atomic"
		byID    map[int]int
		seenBox [3]bool
	)

	for sc.Scan() {
		line++
		if line%4096 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if line == 1 {
			// first line is a free-form title
			continue
		}

		raw := sc.Text()
		text := raw
		comment := ""
		if i := strings.IndexByte(text, '#'); i >= 0 {
			comment = strings.TrimSpace(text[i+1:])
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		if isSectionHeader(fields) {
			section = fields[0]
			if section == "Atoms" && comment != "" {
				style = strings.Fields(comment)[0]
			}
			if section == "Atoms" || section == "Velocities" {
				if natoms < 0 {
					return nil, malformed(path, line, "%s section before atom count", section)
				}
			}
			if section == "Atoms" {
				snap.Atoms = make([]nemd.Atom, 0, natoms)
				byID = make(map[int]int, natoms)
			}
			continue
		}

		switch section {
		case "":
			if err := d.header(snap, fields, &natoms, &seenBox); err != nil {
				return nil, malformed(path, line, "%v", err)
			}
		case "Masses":
			if len(fields) < 2 {
				return nil, malformed(path, line, "mass line %q", raw)
			}
			t, err1 := strconv.Atoi(fields[0])
			m, err2 := strconv.ParseFloat(fields[1], 64)
			if err1 != nil || err2 != nil {
				return nil, malformed(path, line, "mass line %q", raw)
			}
			snap.Masses[t] = m
		case "Atoms":
			cols, ok := atomStyles[style]
			if !ok {
				return nil, malformed(path, line, "unsupported atom style %q", style)
			}
			if len(fields) < cols[2]+3 {
				return nil, malformed(path, line, "atom line %q", raw)
			}
			var a nemd.Atom
			var err error
			if a.ID, err = strconv.Atoi(fields[cols[0]]); err != nil {
				return nil, malformed(path, line, "atom id %q", fields[cols[0]])
			}
			if a.Type, err = strconv.Atoi(fields[cols[1]]); err != nil {
				return nil, malformed(path, line, "atom type %q", fields[cols[1]])
			}
			for k := 0; k < 3; k++ {
				if a.Pos[k], err = strconv.ParseFloat(fields[cols[2]+k], 64); err != nil {
					return nil, malformed(path, line, "coordinate %q", fields[cols[2]+k])
				}
			}
			if _, dup := byID[a.ID]; dup {
				return nil, malformed(path, line, "duplicate atom id %d", a.ID)
			}
			byID[a.ID] = len(snap.Atoms)
			snap.Atoms = append(snap.Atoms, a)
		case "Velocities":
			if len(fields) < 4 {
				return nil, malformed(path, line, "velocity line %q", raw)
			}
			id, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, malformed(path, line, "velocity id %q", fields[0])
			}
			i, ok := byID[id]
			if !ok {
				return nil, malformed(path, line, "velocity for unknown atom %d", id)
			}
			for k := 0; k < 3; k++ {
				if snap.Atoms[i].Vel[k], err = strconv.ParseFloat(fields[1+k], 64); err != nil {
					return nil, malformed(path, line, "velocity %q", fields[1+k])
				}
			}
		default:
			// Bonds, Pair Coeffs and the like carry nothing needed here.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for k, ok := range seenBox {
		if !ok {
			return nil, malformed(path, line, "missing %clo %chi", "xyz"[k], "xyz"[k])
		}
	}
	if natoms < 0 {
		return nil, malformed(path, line, "missing atom count")
	}
	if len(snap.Atoms) != natoms {
		return nil, malformed(path, line, "header declares %d atoms, found %d", natoms, len(snap.Atoms))
	}

	d.log.Debugf("loaded %d atoms (%s style) from %s", natoms, style, path)
	return snap, nil
}

func (d *DataLoader) header(snap *Snapshot, fields []string, natoms *int, seen *[3]bool) error {
	switch {
	case len(fields) == 2 && fields[1] == "atoms":
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			return fmt.Errorf("atom count %q", fields[0])
		}
		*natoms = n
	case len(fields) == 4 && strings.HasSuffix(fields[2], "lo") && strings.HasSuffix(fields[3], "hi"):
		k := strings.IndexByte("xyz", fields[2][0])
		if k < 0 || len(fields[2]) != 3 {
			return fmt.Errorf("box line %v", fields)
		}
		for j := 0; j < 2; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return fmt.Errorf("box bound %q", fields[j])
			}
			snap.Box[k][j] = v
		}
		seen[k] = true
	}
	return nil
}

func isSectionHeader(fields []string) bool {
	switch fields[0] {
	case "Atoms", "Velocities", "Masses", "Bonds", "Angles", "Dihedrals", "Impropers":
		return len(fields) == 1
	case "Pair", "PairIJ", "Bond", "Angle", "Dihedral", "Improper":
		return len(fields) == 2 && fields[1] == "Coeffs"
	}
	return false
}
