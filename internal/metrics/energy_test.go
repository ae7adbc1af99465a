package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/nemd/internal/nemd"
)

func masses(t int) (float64, bool) {
	switch t {
	case 1:
		return 10.0, true
	case 2:
		return 20.0, true
	}
	return 0, false
}

func TestKineticEnergy(t *testing.T) {
	atoms := []nemd.Atom{
		{ID: 1, Type: 1, Vel: [3]float64{1, 0, 0}},
		{ID: 2, Type: 2, Vel: [3]float64{0, 2, 0}},
		{ID: 3, Type: 1, Vel: [3]float64{5, 5, 5}},
	}
	g := nemd.All(atoms[:2])

	k := NewKinetic(g, masses)
	k.Observe(atoms)

	want := (0.5*10*1 + 0.5*20*4) * MVV2E
	if math.Abs(k.Value()-want) > 1e-15 {
		t.Errorf("expected energy %g, got %g", want, k.Value())
	}

	wantT := 2 * want / (3 * 2 * Boltzmann)
	if math.Abs(k.Temperature()-wantT) > 1e-9 {
		t.Errorf("expected temperature %g, got %g", wantT, k.Temperature())
	}
}

func TestKineticReset(t *testing.T) {
	atoms := []nemd.Atom{{ID: 1, Type: 1, Vel: [3]float64{1, 1, 1}}}
	k := NewKinetic(nemd.All(atoms), masses)

	k.Observe(atoms)
	if k.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	k.Reset()
	if k.Value() != 0 || k.Temperature() != 0 {
		t.Errorf("expected zero after reset, got %g / %g", k.Value(), k.Temperature())
	}
}

func TestKineticAveragesObservations(t *testing.T) {
	atoms := []nemd.Atom{{ID: 1, Type: 1, Vel: [3]float64{1, 0, 0}}}
	k := NewKinetic(nemd.All(atoms), masses)
	k.Observe(atoms)
	atoms[0].Vel = [3]float64{3, 0, 0}
	k.Observe(atoms)

	want := 0.5 * 10 * (1 + 9) / 2 * MVV2E
	if math.Abs(k.Value()-want) > 1e-15 {
		t.Errorf("expected mean energy %g, got %g", want, k.Value())
	}
}

func TestKineticSkipsUnknownTypes(t *testing.T) {
	atoms := []nemd.Atom{
		{ID: 1, Type: 1, Vel: [3]float64{1, 0, 0}},
		{ID: 2, Type: 9, Vel: [3]float64{1, 0, 0}},
	}
	k := NewKinetic(nemd.All(atoms), masses)
	k.Observe(atoms)

	if want := 0.5 * 10 * MVV2E; math.Abs(k.Value()-want) > 1e-15 {
		t.Errorf("expected %g, got %g", want, k.Value())
	}
}

func TestMeasure(t *testing.T) {
	atoms := []nemd.Atom{
		{ID: 1, Type: 1},
		{ID: 2, Type: 1, Vel: [3]float64{1, 0, 0}},
	}
	still := nemd.Subtract("still", nemd.All(atoms), nemd.All(atoms[1:]))

	got := Measure(atoms, masses, nemd.All(atoms), nil, still)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].Group != "all" || got[0].Atoms != 2 || got[0].Kinetic == 0 {
		t.Errorf("unexpected all summary %+v", got[0])
	}
	if got[1].Group != "still" || got[1].Temperature != 0 {
		t.Errorf("unexpected still summary %+v", got[1])
	}
}
