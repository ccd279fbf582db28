// Package micropoly implements the hider: point-sampling of
// micropolygons (one quad per (u,v) cell of a shaded grid) against
// the stochastic sample positions of a bucket, producing a depth and
// interpolated shading value at every sample the micropolygon covers.
// Grounded on Aqsis's PointInQuad
// (original_source/prototypes/newcore/pointinquad.h), InvBilin
// (.../invbilin.h) and the microquad sampling loop (.../microquad.h,
// .../microquadsampler.h).
package micropoly

import "github.com/reyesrender/core/linear"

// PointInQuad tests whether a 2D point lies inside a (possibly
// non-convex) quadrilateral, using edge equations set up once per
// micropolygon and evaluated once per candidate sample. Handles
// convex, "arrow head" and "bow tie" vertex configurations.
type PointInQuad struct {
	nx, ny, px, py [6]float32
	convex         bool
}

func cross2(a, b linear.V2) float32 { return a[0]*b[1] - a[1]*b[0] }

func (q *PointInQuad) setupEdge(i int, a, b linear.V2, flipEnds bool) {
	e := linear.V2{b[0] - a[0], b[1] - a[1]}
	q.nx[i] = -e[1]
	q.ny[i] = e[0]
	p := a
	if !flipEnds {
		p = b
	}
	q.px[i], q.py[i] = p[0], p[1]
}

// Init sets up the edge equations for quad a,b,c,d in cyclic order
//
//	d---c
//	|   |
//	a---b
//
// flipEnds should alternate between adjacent micropolygons (like a
// checkerboard) so that shared edges agree on which endpoint anchors
// the edge equation, avoiding cracks.
func (q *PointInQuad) Init(a, b, c, d linear.V2, flipEnds bool) {
	e := [4]linear.V2{
		{b[0] - a[0], b[1] - a[1]},
		{c[0] - b[0], c[1] - b[1]},
		{d[0] - c[0], d[1] - c[1]},
		{a[0] - d[0], a[1] - d[1]},
	}
	sign := func(v float32) int {
		if v > 0 {
			return 1
		}
		return 0
	}
	s := [4]int{
		sign(cross2(e[3], e[0])),
		sign(cross2(e[0], e[1])),
		sign(cross2(e[1], e[2])),
		sign(cross2(e[2], e[3])),
	}
	switch s[0] + s[1] + s[2] + s[3] {
	case 0: // convex, clockwise: flip to resemble CCW
		q.convex = true
		q.setupEdge(0, b, a, flipEnds)
		q.setupEdge(1, c, b, flipEnds)
		q.setupEdge(2, d, c, flipEnds)
		q.setupEdge(3, a, d, flipEnds)
	case 4: // convex, CCW
		q.convex = true
		q.setupEdge(0, a, b, flipEnds)
		q.setupEdge(1, b, c, flipEnds)
		q.setupEdge(2, c, d, flipEnds)
		q.setupEdge(3, d, a, flipEnds)
	case 2: // bow-tie
		q.convex = false
		q.setupBowtie([4]linear.V2{a, b, c, d}, s)
	case 1: // arrow head, CW case: reorder to CCW first
		q.convex = false
		vccw := [4]linear.V2{a, d, c, b}
		sccw := [4]int{flip(s[0]), flip(s[3]), flip(s[2]), flip(s[1])}
		q.setupArrow(vccw, sccw)
	case 3: // arrow head, CCW
		q.convex = false
		q.setupArrow([4]linear.V2{a, b, c, d}, s)
	}
}

func flip(s int) int {
	if s == 0 {
		return 1
	}
	return 0
}

func (q *PointInQuad) setupArrow(v [4]linear.V2, signs [4]int) {
	i := 0
	for i < 4 && signs[i] != 0 {
		i++
	}
	i0, i1, i2, i3 := i, (i+1)%4, (i+2)%4, (i+3)%4
	q.setupEdge(0, v[i0], v[i1], true)
	q.setupEdge(1, v[i1], v[i2], true)
	q.setupEdge(2, v[i2], v[i0], true)
	q.setupEdge(3, v[i0], v[i2], true)
	q.setupEdge(4, v[i2], v[i3], true)
	q.setupEdge(5, v[i3], v[i0], true)
}

func (q *PointInQuad) setupBowtie(v [4]linear.V2, signs [4]int) {
	i := 0
	for i < 4 && !(signs[i] == 0 && signs[(i+1)%4] != 0) {
		i++
	}
	i0, i1, i2, i3 := i, (i+1)%4, (i+2)%4, (i+3)%4
	q.setupEdge(0, v[i0], v[i1], true)
	q.setupEdge(1, v[i1], v[i2], true)
	q.setupEdge(2, v[i2], v[i3], true)
	q.setupEdge(3, v[i0], v[i3], true)
	q.setupEdge(4, v[i3], v[i2], true)
	q.setupEdge(5, v[i1], v[i0], true)
}

func (q *PointInQuad) edge(i int, x, y float32) float32 {
	return q.nx[i]*(x-q.px[i]) + q.ny[i]*(y-q.py[i])
}

// Contains reports whether p lies inside the quad.
func (q *PointInQuad) Contains(p linear.V2) bool {
	x, y := p[0], p[1]
	if q.convex {
		return q.edge(0, x, y) >= 0 && q.edge(1, x, y) >= 0 &&
			q.edge(2, x, y) > 0 && q.edge(3, x, y) > 0
	}
	return (q.edge(0, x, y) >= 0 && q.edge(1, x, y) >= 0 && q.edge(2, x, y) >= 0) ||
		(q.edge(3, x, y) > 0 && q.edge(4, x, y) > 0 && q.edge(5, x, y) > 0)
}
