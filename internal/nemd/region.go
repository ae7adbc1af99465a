package nemd

import (
	"fmt"
	"math"
	"strings"
)

// Axis selects the coordinate the box is partitioned along.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return AxisX, nil
	case "y", "":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return "?"
}

// Interval is a range along one axis. Lo may be -Inf and Hi may be +Inf.
type Interval struct {
	Lo, Hi         float64
	LoOpen, HiOpen bool
}

// Closed returns [lo, hi].
func Closed(lo, hi float64) Interval { return Interval{Lo: lo, Hi: hi} }

// HalfOpen returns [lo, hi).
func HalfOpen(lo, hi float64) Interval { return Interval{Lo: lo, Hi: hi, HiOpen: true} }

// Below returns (-Inf, hi].
func Below(hi float64) Interval { return Interval{Lo: math.Inf(-1), Hi: hi} }

// Above returns [lo, +Inf).
func Above(lo float64) Interval { return Interval{Lo: lo, Hi: math.Inf(1)} }

func (iv Interval) Contains(x float64) bool {
	if iv.LoOpen {
		if x <= iv.Lo {
			return false
		}
	} else if x < iv.Lo {
		return false
	}
	if iv.HiOpen {
		return x < iv.Hi
	}
	return x <= iv.Hi
}

// Empty reports whether no coordinate can satisfy the interval.
func (iv Interval) Empty() bool {
	if iv.Lo > iv.Hi {
		return true
	}
	return iv.Lo == iv.Hi && (iv.LoOpen || iv.HiOpen)
}

func (iv Interval) Width() float64 { return iv.Hi - iv.Lo }

func (iv Interval) String() string {
	l, r := "[", "]"
	if iv.LoOpen || math.IsInf(iv.Lo, -1) {
		l = "("
	}
	if iv.HiOpen || math.IsInf(iv.Hi, 1) {
		r = ")"
	}
	return fmt.Sprintf("%s%s, %s%s", l, fmtBound(iv.Lo), fmtBound(iv.Hi), r)
}

func fmtBound(v float64) string {
	switch {
	case math.IsInf(v, -1):
		return "-INF"
	case math.IsInf(v, 1):
		return "INF"
	}
	return fmt.Sprintf("%.4f", v)
}

// Volume is a named geometric predicate over atom positions.
type Volume interface {
	Name() string
	Contains(pos [3]float64) bool
}

// Region is an axis-aligned slab: unbounded in the two other axes.
type Region struct {
	ID       string
	Axis     Axis
	Interval Interval
	// LoVar and HiVar name the variables bounding the slab; empty means the
	// bound is infinite.
	LoVar, HiVar string
}

func (r *Region) Name() string { return r.ID }

func (r *Region) Contains(pos [3]float64) bool {
	return r.Interval.Contains(pos[r.Axis])
}

// UnionRegion is the boolean union of its parts.
type UnionRegion struct {
	ID    string
	Parts []*Region
}

func (u *UnionRegion) Name() string { return u.ID }

func (u *UnionRegion) Contains(pos [3]float64) bool {
	for _, p := range u.Parts {
		if p.Contains(pos) {
			return true
		}
	}
	return false
}
