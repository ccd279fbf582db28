// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "math"

// Box3 is an axis-aligned bounding box in 3 dimensions.
// The zero value is empty (Min holds +Inf, Max holds -Inf)
// only after a call to Reset; the bare zero value is a
// degenerate box at the origin and should not be used to
// represent "no bound" without calling Reset first.
type Box3 struct {
	Min V3
	Max V3
}

// Reset sets b to the empty box, ready to be grown with
// successive calls to ExtendPt.
func (b *Box3) Reset() {
	inf := float32(math.Inf(1))
	b.Min = V3{inf, inf, inf}
	b.Max = V3{-inf, -inf, -inf}
}

// Empty reports whether b contains no points.
func (b *Box3) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// ExtendPt grows b so that it contains p.
func (b *Box3) ExtendPt(p *V3) {
	for i := range p {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Extend grows b so that it contains o.
func (b *Box3) Extend(o *Box3) {
	b.ExtendPt(&o.Min)
	b.ExtendPt(&o.Max)
}

// Center returns the midpoint of b.
func (b *Box3) Center() V3 {
	var c V3
	c.Add(&b.Min, &b.Max)
	c.Scale(0.5, &c)
	return c
}

// TransformAffine sets b to contain the bound of o after
// applying the affine point transform m to each of its
// eight corners. This is the usual (conservative, not
// tight) way of transforming an AABB.
func (b *Box3) TransformAffine(m *M4, o *Box3) {
	b.Reset()
	for i := 0; i < 8; i++ {
		var p V4
		p[0] = pick(o, i, 0)
		p[1] = pick(o, i, 1)
		p[2] = pick(o, i, 2)
		p[3] = 1
		var q V4
		q.Mul(m, &p)
		var q3 V3
		copy(q3[:], q[:3])
		b.ExtendPt(&q3)
	}
}

func pick(b *Box3, corner, axis int) float32 {
	if corner&(1<<axis) != 0 {
		return b.Max[axis]
	}
	return b.Min[axis]
}

// Box2 is an axis-aligned bounding box in 2 dimensions,
// used for raster-space (bucket, tile, micropolygon) bounds.
type Box2 struct {
	Min V2
	Max V2
}

// Reset sets b to the empty box.
func (b *Box2) Reset() {
	inf := float32(math.Inf(1))
	b.Min = V2{inf, inf}
	b.Max = V2{-inf, -inf}
}

// Empty reports whether b contains no points.
func (b *Box2) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1]
}

// ExtendPt grows b so that it contains p.
func (b *Box2) ExtendPt(p *V2) {
	for i := range p {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Intersects reports whether b and o overlap.
func (b *Box2) Intersects(o *Box2) bool {
	return !(b.Min[0] >= o.Max[0] || b.Max[0] <= o.Min[0] ||
		b.Min[1] >= o.Max[1] || b.Max[1] <= o.Min[1])
}

// Intersect sets b to the intersection of l and r.
// The result may be empty, which the caller should check
// for with Empty.
func (b *Box2) Intersect(l, r *Box2) {
	b.Min[0] = max(l.Min[0], r.Min[0])
	b.Min[1] = max(l.Min[1], r.Min[1])
	b.Max[0] = min(l.Max[0], r.Max[0])
	b.Max[1] = min(l.Max[1], r.Max[1])
}
