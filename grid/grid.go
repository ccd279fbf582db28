package grid

import "github.com/reyesrender/core/varset"

// Grid is a rectangular (Nu x Nv) lattice of shading points backed
// by one Storage. The invariant Nu >= 2 and Nv >= 2 always holds: a
// grid with fewer points on either axis cannot contain a
// micropolygon.
type Grid struct {
	Nu, Nv int
	Stor   *Storage
}

// New wraps stor as an (nu x nv) grid. It panics if nu or nv is less
// than 2, or if stor was not built for nu*nv vertices.
func New(nu, nv int, stor *Storage) *Grid {
	if nu < 2 || nv < 2 {
		panic("grid: nu and nv must each be >= 2")
	}
	if stor.NVerts() != nu*nv {
		panic("grid: storage vertex count does not match nu*nv")
	}
	return &Grid{Nu: nu, Nv: nv, Stor: stor}
}

// Index returns the linear shading-point index for lattice position
// (u, v).
func (g *Grid) Index(u, v int) int { return g.Nu*v + u }

// NumMicropolys returns the number of micropolygons on the grid:
// (Nu-1)*(Nv-1).
func (g *Grid) NumMicropolys() int { return (g.Nu - 1) * (g.Nv - 1) }

// MicropolyVerts returns the four shading-point indices of the
// micropolygon at (u, v), in the order (lower-left, lower-right,
// upper-right, upper-left):
//
//	(nu*v+u, nu*v+u+1, nu*(v+1)+u+1, nu*(v+1)+u)
func (g *Grid) MicropolyVerts(u, v int) [4]int {
	nu := g.Nu
	return [4]int{
		nu*v + u,
		nu*v + u + 1,
		nu*(v+1) + u + 1,
		nu*(v+1) + u,
	}
}

// P returns the view for the standard position variable. It panics
// if the grid does not carry P, which should never happen: every
// grid's storage always contains P.
func (g *Grid) P() View {
	v, ok := g.Stor.GetStd(varset.StdP)
	if !ok {
		panic("grid: storage missing required P variable")
	}
	return v
}

// N, Ng, I, Cs and Z return the view for the corresponding standard
// variable and whether it is present on the grid.
func (g *Grid) N() (View, bool)  { return g.Stor.GetStd(varset.StdN) }
func (g *Grid) Ng() (View, bool) { return g.Stor.GetStd(varset.StdNg) }
func (g *Grid) I() (View, bool)  { return g.Stor.GetStd(varset.StdI) }
func (g *Grid) Cs() (View, bool) { return g.Stor.GetStd(varset.StdCs) }
func (g *Grid) Z() (View, bool)  { return g.Stor.GetStd(varset.StdZ) }
