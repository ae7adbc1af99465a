package nemd

import (
	"fmt"
	"math"
)

const (
	DefaultMargin             = 100.0
	DefaultSubdivisions       = 40
	DefaultInterfaceHalfWidth = 6.0
	DefaultInterfaceOffset    = 5.0
	DefaultHotColdInset       = 3.0
)

// Params controls how the box is partitioned.
type Params struct {
	Axis               Axis
	Margin             float64
	Subdivisions       int
	InterfaceHalfWidth float64
	InterfaceOffset    float64
	HotColdInset       float64
	// AllowDegenerate downgrades a too-small box from an error to a warning.
	AllowDegenerate bool
}

func DefaultParams() Params {
	return Params{
		Axis:               AxisY,
		Margin:             DefaultMargin,
		Subdivisions:       DefaultSubdivisions,
		InterfaceHalfWidth: DefaultInterfaceHalfWidth,
		InterfaceOffset:    DefaultInterfaceOffset,
		HotColdInset:       DefaultHotColdInset,
	}
}

func (p Params) Validate() error {
	if p.Margin <= 0 {
		return fmt.Errorf("%w: margin must be positive, got %g", ErrParameterBounds, p.Margin)
	}
	if p.Subdivisions <= 0 {
		return fmt.Errorf("%w: subdivisions must be positive, got %d", ErrParameterBounds, p.Subdivisions)
	}
	if p.InterfaceHalfWidth <= 0 {
		return fmt.Errorf("%w: interface half width must be positive, got %g", ErrParameterBounds, p.InterfaceHalfWidth)
	}
	if p.InterfaceOffset < 0 {
		return fmt.Errorf("%w: interface offset must not be negative, got %g", ErrParameterBounds, p.InterfaceOffset)
	}
	if p.HotColdInset <= 1 {
		return fmt.Errorf("%w: hot/cold inset must exceed one ramp width, got %g", ErrParameterBounds, p.HotColdInset)
	}
	return nil
}

// Variables returns the declarations that derive every region bound, in the
// order the engine has to see them.
func (p Params) Variables() *Variables {
	lo, hi := p.Axis.String()+"lo", p.Axis.String()+"hi"

	v := NewVariables()
	v.MustDefine("margin", Lit(p.Margin))
	v.MustDefine("nsub", Lit(float64(p.Subdivisions)))
	v.MustDefine("wint", Lit(p.InterfaceHalfWidth))
	v.MustDefine("offint", Lit(p.InterfaceOffset))
	v.MustDefine("inset", Lit(p.HotColdInset))
	v.MustDefine("middle", Div(Add(Thermo(lo), Thermo(hi)), Lit(2)))
	v.MustDefine("lbound", Sub(Ref("middle"), Ref("margin")))
	v.MustDefine("rbound", Add(Ref("middle"), Ref("margin")))
	v.MustDefine("ramp", Div(Sub(Ref("rbound"), Ref("lbound")), Ref("nsub")))
	v.MustDefine("hot_lo", Add(Ref("lbound"), Ref("ramp")))
	v.MustDefine("hot_hi", Add(Ref("lbound"), Mul(Ref("inset"), Ref("ramp"))))
	v.MustDefine("cold_lo", Sub(Ref("rbound"), Mul(Ref("inset"), Ref("ramp"))))
	v.MustDefine("cold_hi", Sub(Ref("rbound"), Ref("ramp")))
	v.MustDefine("left_lo", Sub(Ref("middle"), Ref("wint")))
	v.MustDefine("right_hi", Add(Ref("middle"), Ref("wint")))
	v.MustDefine("zone_lo", Sub(Ref("middle"), Add(Ref("wint"), Ref("offint"))))
	v.MustDefine("zone_hi", Add(Ref("middle"), Add(Ref("wint"), Ref("offint"))))
	return v
}

// Layout is the derived partition of the box.
type Layout struct {
	Params       Params
	BoxLo, BoxHi float64
	Middle       float64
	LeftBound    float64
	RightBound   float64
	Ramp         float64

	LFixed, RFixed *Region
	Hot, Cold      *Region
	Left, Right    *Region
	// Zone is the guard slab around the interface that the thermostats must
	// stay clear of.
	Zone *Region

	Fixed     *UnionRegion
	Interface *UnionRegion

	Vars   *Variables
	Values map[string]float64

	Warnings []string
}

// Derive computes the layout for a box spanning [boxLo, boxHi] along p.Axis.
func Derive(p Params, boxLo, boxHi float64) (*Layout, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(boxLo) || math.IsNaN(boxHi) || boxHi <= boxLo {
		return nil, fmt.Errorf("%w: box bounds [%g, %g]", ErrParameterBounds, boxLo, boxHi)
	}

	vars := p.Variables()
	axis := p.Axis.String()
	vals, err := vars.Eval(map[string]float64{axis + "lo": boxLo, axis + "hi": boxHi})
	if err != nil {
		return nil, err
	}

	l := build(p, vars, vals)
	l.BoxLo, l.BoxHi = boxLo, boxHi
	if err := l.check(); err != nil {
		if !p.AllowDegenerate {
			return nil, err
		}
		l.Warnings = append(l.Warnings, err.Error())
	}
	return l, nil
}

// Template returns the layout structure with every derived value unknown
// (NaN). It serves rendering, where the engine evaluates the bounds.
func Template(p Params) (*Layout, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	vars := p.Variables()
	vals := make(map[string]float64, vars.Len())
	for _, d := range vars.Decls() {
		vals[d.Name] = math.NaN()
	}
	l := build(p, vars, vals)
	l.BoxLo, l.BoxHi = math.NaN(), math.NaN()
	return l, nil
}

func build(p Params, vars *Variables, vals map[string]float64) *Layout {
	slab := func(id, loVar, hiVar string, iv Interval) *Region {
		return &Region{ID: id, Axis: p.Axis, Interval: iv, LoVar: loVar, HiVar: hiVar}
	}

	l := &Layout{
		Params:     p,
		Middle:     vals["middle"],
		LeftBound:  vals["lbound"],
		RightBound: vals["rbound"],
		Ramp:       vals["ramp"],
		Vars:       vars,
		Values:     vals,
	}
	l.LFixed = slab("lfixed", "", "lbound", Below(vals["lbound"]))
	l.RFixed = slab("rfixed", "rbound", "", Above(vals["rbound"]))
	l.Hot = slab("hot", "hot_lo", "hot_hi", Closed(vals["hot_lo"], vals["hot_hi"]))
	l.Cold = slab("cold", "cold_lo", "cold_hi", Closed(vals["cold_lo"], vals["cold_hi"]))
	l.Left = slab("left", "left_lo", "middle", HalfOpen(vals["left_lo"], vals["middle"]))
	l.Right = slab("right", "middle", "right_hi", Closed(vals["middle"], vals["right_hi"]))
	l.Zone = slab("zone", "zone_lo", "zone_hi", Closed(vals["zone_lo"], vals["zone_hi"]))
	l.Fixed = &UnionRegion{ID: "fixed", Parts: []*Region{l.LFixed, l.RFixed}}
	l.Interface = &UnionRegion{ID: "interface", Parts: []*Region{l.Left, l.Right}}
	return l
}

// check enforces
// lfixed.hi < hot.lo < hot.hi <= zone.lo < middle < zone.hi <= cold.lo < cold.hi < rfixed.lo
// and that the fixed boundaries fall strictly inside the box.
func (l *Layout) check() error {
	if extent := l.BoxHi - l.BoxLo; extent <= 2*l.Params.Margin {
		return &LayoutError{
			Region:  "box",
			Lo:      l.BoxLo,
			Hi:      l.BoxHi,
			Wrapped: fmt.Errorf("%w: extent %g does not exceed twice the margin %g", ErrDegenerateLayout, extent, l.Params.Margin),
		}
	}

	chain := []struct {
		name string
		v    float64
		le   bool // compared to the previous entry with <=
	}{
		{"lfixed.hi", l.LFixed.Interval.Hi, false},
		{"hot.lo", l.Hot.Interval.Lo, false},
		{"hot.hi", l.Hot.Interval.Hi, false},
		{"zone.lo", l.Zone.Interval.Lo, true},
		{"middle", l.Middle, false},
		{"zone.hi", l.Zone.Interval.Hi, false},
		{"cold.lo", l.Cold.Interval.Lo, true},
		{"cold.hi", l.Cold.Interval.Hi, false},
		{"rfixed.lo", l.RFixed.Interval.Lo, false},
	}
	for i := 1; i < len(chain); i++ {
		prev, cur := chain[i-1], chain[i]
		ok := prev.v < cur.v
		if cur.le {
			ok = prev.v <= cur.v
		}
		if !ok {
			return &LayoutError{
				Region:  cur.name,
				Lo:      prev.v,
				Hi:      cur.v,
				Wrapped: fmt.Errorf("%w: %s (%g) not below %s (%g)", ErrDegenerateLayout, prev.name, prev.v, cur.name, cur.v),
			}
		}
	}
	return nil
}

// Regions returns the simple regions in declaration order.
func (l *Layout) Regions() []*Region {
	return []*Region{l.LFixed, l.RFixed, l.Hot, l.Cold, l.Left, l.Right, l.Zone}
}

// Unions returns the composite regions in declaration order.
func (l *Layout) Unions() []*UnionRegion {
	return []*UnionRegion{l.Fixed, l.Interface}
}
