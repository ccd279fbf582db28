package grid

import "github.com/reyesrender/core/linear"

// DeriveNg computes the geometric normal at every shading point from
// finite differences of P across the lattice and writes it into the
// grid's Ng storage (which must already be allocated by the
// Builder). Interior points use central differences; border points
// use one-sided differences.
func (g *Grid) DeriveNg() {
	ngView, ok := g.Ng()
	if !ok {
		return
	}
	p := g.P()
	nu, nv := g.Nu, g.Nv
	for v := 0; v < nv; v++ {
		for u := 0; u < nu; u++ {
			du := dPdAxis(p, nu, nv, u, v, 1, 0)
			dv := dPdAxis(p, nu, nv, u, v, 0, 1)
			var n linear.V3
			n.Cross(&du, &dv)
			n.Norm(&n)
			copy(ngView.At(g.Index(u, v)), n[:])
		}
	}
}

// dPdAxis returns the finite-difference derivative of P along
// (du, dv) at lattice point (u, v), falling back to a one-sided
// difference at the grid boundary.
func dPdAxis(p View, nu, nv, u, v, du, dv int) linear.V3 {
	u0, v0, u1, v1 := u-du, v-dv, u+du, v+dv
	var scale float32 = 2
	if u0 < 0 || v0 < 0 {
		u0, v0 = u, v
		scale = 1
	}
	if u1 >= nu || v1 >= nv {
		u1, v1 = u, v
		scale = 1
	}
	i0 := nu*v0 + u0
	i1 := nu*v1 + u1
	a := p.At(i0)
	b := p.At(i1)
	var d linear.V3
	d[0] = (b[0] - a[0]) / scale
	d[1] = (b[1] - a[1]) / scale
	d[2] = (b[2] - a[2]) / scale
	return d
}

// AliasN overwrites the grid's N storage from Ng whenever both are
// present, unconditionally: it does not check whether the geometry
// already diced its own N values into that storage. No shipped
// Geometry dices an explicit N alongside Ng today, so in practice
// this only ever fills in N that the geometry left unset. A future
// Geometry that dices its own N and also wants Ng available to
// shaders must request Ng under a different Spec rather than calling
// AliasN, or its N will be clobbered here.
func (g *Grid) AliasN() {
	nView, ok := g.N()
	if !ok {
		return
	}
	ngView, ok := g.Ng()
	if !ok {
		return
	}
	for i := 0; i < g.Stor.NVerts(); i++ {
		copy(nView.At(i), ngView.At(i))
	}
}

// DeriveI computes the incident ray direction I = P (camera at the
// origin, shading in camera space) at every shading point.
func (g *Grid) DeriveI() {
	iView, ok := g.I()
	if !ok {
		return
	}
	p := g.P()
	for i := 0; i < g.Stor.NVerts(); i++ {
		copy(iView.At(i), p.At(i))
	}
}

// DeriveZ copies P's depth component into the grid's z storage. Must
// be called after P has been projected to raster space, where z is
// left as camera-space depth (see tessellate.Context.project): this
// is the value a display sink's "z" channel reports.
func (g *Grid) DeriveZ() {
	zView, ok := g.Z()
	if !ok {
		return
	}
	p := g.P()
	for i := 0; i < g.Stor.NVerts(); i++ {
		zView.At(i)[0] = p.At(i)[2]
	}
}
