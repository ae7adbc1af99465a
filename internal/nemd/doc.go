// Package nemd models the geometry of a non-equilibrium MD thermal-transport
// setup: the scalar parameters derived from the simulation box, the regions
// they bound, and the atom groups selected from those regions.
//
// The package is split into a few layers:
//
//   - [Variables]: ordered scalar declarations evaluated in declaration order
//   - [Interval], [Region], [UnionRegion]: half-open/closed volumes along one axis
//   - [Layout]: the fixed/hot/cold/interface partition derived from [Params]
//   - [Group]: immutable atom-ID snapshots bound to a region at creation time
//
// # Example
//
//	layout, err := nemd.Derive(nemd.DefaultParams(), 0, 430.2)
//	if err != nil {
//	    return err
//	}
//	left := nemd.Select("left", layout.Left, atoms)
//
// Groups never re-evaluate membership: an atom that moves after [Select]
// keeps the membership it had when the group was built.
package nemd
