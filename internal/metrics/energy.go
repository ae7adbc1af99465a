// Package metrics computes kinetic diagnostics of atom groups, reported by
// the zero-step evaluation alongside the membership counts.
package metrics

import "github.com/san-kum/nemd/internal/nemd"

// Metal unit constants.
const (
	// MVV2E converts mass*velocity^2 in (g/mol)*(A/ps)^2 to eV.
	MVV2E = 1.0364269e-4
	// Boltzmann is k_B in eV/K.
	Boltzmann = 8.617333262e-5
)

// MassFunc looks up the mass of an atom type.
type MassFunc func(atomType int) (float64, bool)

// Kinetic accumulates the kinetic energy of one group.
type Kinetic struct {
	name    string
	group   *nemd.Group
	mass    MassFunc
	energy  float64
	atoms   int
	samples int
}

func NewKinetic(g *nemd.Group, mass MassFunc) *Kinetic {
	return &Kinetic{
		name:  g.Name,
		group: g,
		mass:  mass,
	}
}

func (k *Kinetic) Name() string { return k.name }

// Observe adds the kinetic energy of the group's members in atoms. Atoms of
// an unknown type are skipped.
func (k *Kinetic) Observe(atoms []nemd.Atom) {
	var ke float64
	n := 0
	for _, a := range atoms {
		if !k.group.Has(a.ID) {
			continue
		}
		m, ok := k.mass(a.Type)
		if !ok {
			continue
		}
		v2 := a.Vel[0]*a.Vel[0] + a.Vel[1]*a.Vel[1] + a.Vel[2]*a.Vel[2]
		ke += 0.5 * m * v2 * MVV2E
		n++
	}
	k.energy += ke
	k.atoms += n
	k.samples++
}

// Value returns the mean kinetic energy per observation, in eV.
func (k *Kinetic) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.energy / float64(k.samples)
}

// Temperature returns the kinetic temperature with 3 degrees of freedom per
// atom.
func (k *Kinetic) Temperature() float64 {
	if k.atoms == 0 {
		return 0
	}
	return 2 * k.energy / (3 * float64(k.atoms) * Boltzmann)
}

func (k *Kinetic) Reset() {
	k.energy = 0
	k.atoms = 0
	k.samples = 0
}

// GroupThermo is a single-observation summary of one group.
type GroupThermo struct {
	Group       string  `json:"group"`
	Atoms       int     `json:"atoms"`
	Kinetic     float64 `json:"kinetic_ev"`
	Temperature float64 `json:"temperature_k"`
}

// Measure observes atoms once for each group.
func Measure(atoms []nemd.Atom, mass MassFunc, groups ...*nemd.Group) []GroupThermo {
	out := make([]GroupThermo, 0, len(groups))
	for _, g := range groups {
		if g == nil {
			continue
		}
		k := NewKinetic(g, mass)
		k.Observe(atoms)
		out = append(out, GroupThermo{
			Group:       k.Name(),
			Atoms:       g.Count(),
			Kinetic:     k.Value(),
			Temperature: k.Temperature(),
		})
	}
	return out
}
