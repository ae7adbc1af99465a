package nemd

import "sort"

// Atom is one particle of the loaded state.
type Atom struct {
	ID   int
	Type int
	Pos  [3]float64
	Vel  [3]float64
}

// Group is an immutable, sorted set of atom IDs captured when the group was
// built.
type Group struct {
	Name string
	ids  []int
}

func newGroup(name string, ids []int) *Group {
	sort.Ints(ids)
	return &Group{Name: name, ids: ids}
}

// All returns a group containing every atom.
func All(atoms []Atom) *Group {
	ids := make([]int, len(atoms))
	for i, a := range atoms {
		ids[i] = a.ID
	}
	return newGroup("all", ids)
}

// Select snapshots the atoms currently inside v.
func Select(name string, v Volume, atoms []Atom) *Group {
	ids := make([]int, 0)
	for _, a := range atoms {
		if v.Contains(a.Pos) {
			ids = append(ids, a.ID)
		}
	}
	return newGroup(name, ids)
}

// Union returns the IDs present in a or b.
func Union(name string, a, b *Group) *Group {
	ids := make([]int, 0, len(a.ids)+len(b.ids))
	i, j := 0, 0
	for i < len(a.ids) && j < len(b.ids) {
		switch {
		case a.ids[i] < b.ids[j]:
			ids = append(ids, a.ids[i])
			i++
		case a.ids[i] > b.ids[j]:
			ids = append(ids, b.ids[j])
			j++
		default:
			ids = append(ids, a.ids[i])
			i++
			j++
		}
	}
	ids = append(ids, a.ids[i:]...)
	ids = append(ids, b.ids[j:]...)
	return &Group{Name: name, ids: ids}
}

// Subtract returns the IDs of a that are not in b.
func Subtract(name string, a, b *Group) *Group {
	ids := make([]int, 0, len(a.ids))
	for _, id := range a.ids {
		if !b.Has(id) {
			ids = append(ids, id)
		}
	}
	return &Group{Name: name, ids: ids}
}

func (g *Group) Count() int { return len(g.ids) }

func (g *Group) Has(id int) bool {
	i := sort.SearchInts(g.ids, id)
	return i < len(g.ids) && g.ids[i] == id
}

// IDs returns a copy of the sorted IDs.
func (g *Group) IDs() []int {
	out := make([]int, len(g.ids))
	copy(out, g.ids)
	return out
}
