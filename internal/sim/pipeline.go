package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/nemd/internal/checkpoint"
	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/dump"
	"github.com/san-kum/nemd/internal/metrics"
	"github.com/san-kum/nemd/internal/nemd"
)

// Pipeline owns a private copy of the snapshot's atoms; the caller's snapshot
// is never modified.
type Pipeline struct {
	cfg   *config.Config
	log   nemd.Logger
	box   [3][2]float64
	atoms []nemd.Atom

	masses map[int]float64
	stage  Stage

	layout *nemd.Layout
	groups []*nemd.Group
	byName map[string]*nemd.Group

	observers []Observer
}

// New applies the configured masses to a copy of snap. Every atom type must
// have a mass.
func New(snap *checkpoint.Snapshot, cfg *config.Config, log nemd.Logger) (*Pipeline, error) {
	if log == nil {
		log = nemd.NewNoOpLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	masses := make(map[int]float64, len(cfg.Masses))
	for t, m := range snap.Masses {
		masses[t] = m
	}
	for t, m := range cfg.Masses {
		if old, ok := masses[t]; ok && old != m {
			log.Debugf("mass of type %d overridden: %g -> %g", t, old, m)
		}
		masses[t] = m
	}
	for _, a := range snap.Atoms {
		if _, ok := masses[a.Type]; !ok {
			return nil, fmt.Errorf("%w: atom %d has type %d with no mass", nemd.ErrParameterBounds, a.ID, a.Type)
		}
	}

	atoms := make([]nemd.Atom, len(snap.Atoms))
	copy(atoms, snap.Atoms)

	return &Pipeline{
		cfg:    cfg,
		log:    log,
		box:    snap.Box,
		atoms:  atoms,
		masses: masses,
		stage:  Loaded,
		byName: make(map[string]*nemd.Group),
	}, nil
}

func (p *Pipeline) AddObserver(o Observer) { p.observers = append(p.observers, o) }

func (p *Pipeline) Stage() Stage { return p.stage }

// Mass returns the mass assigned to an atom type.
func (p *Pipeline) Mass(atomType int) (float64, bool) {
	m, ok := p.masses[atomType]
	return m, ok
}

// Layout is nil before Configure.
func (p *Pipeline) Layout() *nemd.Layout { return p.layout }

// Group returns a group built by Configure, or nil.
func (p *Pipeline) Group(name string) *nemd.Group { return p.byName[name] }

// Atoms returns a copy of the pipeline's atoms.
func (p *Pipeline) Atoms() []nemd.Atom {
	out := make([]nemd.Atom, len(p.atoms))
	copy(out, p.atoms)
	return out
}

func (p *Pipeline) advance(from, to Stage) error {
	if p.stage != from {
		return fmt.Errorf("%w: %s -> %s while %s", nemd.ErrInvalidTransition, from, to, p.stage)
	}
	p.stage = to
	for _, o := range p.observers {
		o.OnTransition(from, to)
	}
	return nil
}

// Configure derives the region layout from the box, snapshots every group
// and zeroes the velocities of the frozen atoms.
func (p *Pipeline) Configure() error {
	if p.stage != Loaded {
		return fmt.Errorf("%w: configure while %s", nemd.ErrInvalidTransition, p.stage)
	}

	params, err := p.cfg.Params()
	if err != nil {
		return err
	}
	lo, hi := p.box[params.Axis][0], p.box[params.Axis][1]
	layout, err := nemd.Derive(params, lo, hi)
	if err != nil {
		return err
	}
	for _, w := range layout.Warnings {
		p.log.Warnf("layout: %s", w)
	}

	all := nemd.All(p.atoms)
	lfixed := nemd.Select("lfixed", layout.LFixed, p.atoms)
	rfixed := nemd.Select("rfixed", layout.RFixed, p.atoms)
	freeze := nemd.Union("freeze", lfixed, rfixed)
	hot := nemd.Select("hot", layout.Hot, p.atoms)
	cold := nemd.Select("cold", layout.Cold, p.atoms)
	main := nemd.Subtract("main", all, freeze)
	left := nemd.Select("left", layout.Left, p.atoms)
	right := nemd.Select("right", layout.Right, p.atoms)
	iface := nemd.Union("interface", left, right)

	p.groups = []*nemd.Group{all, lfixed, rfixed, freeze, hot, cold, main, left, right, iface}
	for _, g := range p.groups {
		p.byName[g.Name] = g
	}

	for i := range p.atoms {
		if freeze.Has(p.atoms[i].ID) {
			p.atoms[i].Vel = [3]float64{}
		}
	}

	p.layout = layout
	p.log.Debugf("layout along %s: middle %g, ramp %g, %d frozen, %d integrated",
		params.Axis, layout.Middle, layout.Ramp, freeze.Count(), main.Count())
	return p.advance(Loaded, Configured)
}

// Sample attaches the three membership dumps, evaluates the state without
// advancing time, writes one frame per dump and detaches them.
func (p *Pipeline) Sample(ctx context.Context, sink Sink) (*Report, error) {
	if err := p.advance(Configured, Sampled); err != nil {
		return nil, err
	}

	dumps := []struct {
		file  string
		group *nemd.Group
	}{
		{p.cfg.Dumps.Left, p.byName["left"]},
		{p.cfg.Dumps.Right, p.byName["right"]},
		{p.cfg.Dumps.Interface, p.byName["interface"]},
	}

	report := &Report{
		NL:     p.byName["left"].Count(),
		NR:     p.byName["right"].Count(),
		N:      len(p.atoms),
		Layout: p.layout,
		Groups: p.groups,
		Thermo: metrics.Measure(p.atoms, p.Mass,
			p.byName["all"], p.byName["main"], p.byName["hot"], p.byName["cold"], p.byName["interface"]),
	}

	for _, d := range dumps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if err := writeDump(sink, d.file, d.group, p.box); err != nil {
			return nil, fmt.Errorf("dump %s: %w", d.file, err)
		}
		report.Files = append(report.Files, d.file)
	}

	if err := p.advance(Sampled, Evaluated); err != nil {
		return nil, err
	}
	for _, line := range report.Lines() {
		p.log.Infof("%s", line)
	}
	return report, nil
}

func writeDump(sink Sink, name string, g *nemd.Group, box [3][2]float64) error {
	w, err := sink.Create(name)
	if err != nil {
		return err
	}
	if err := dump.WriteIDs(w, dump.IDFrame{Box: box, IDs: g.IDs()}); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Run takes a fresh pipeline from Loaded to Evaluated.
func Run(ctx context.Context, snap *checkpoint.Snapshot, cfg *config.Config, sink Sink, log nemd.Logger) (*Report, error) {
	p, err := New(snap, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := p.Configure(); err != nil {
		return nil, err
	}
	return p.Sample(ctx, sink)
}
