package geom

import (
	"math"

	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/primvar"
	"github.com/reyesrender/core/varset"
)

// Bilinear is a bilinear patch: the surface
//
//	P(u,v) = (1-v)((1-u)A + uB) + v((1-u)C + uD)
//
// over a (possibly restricted) sub-range of the unit parameter
// square, where A, B, C, D are its four corner primvar values in the
// order (u=0,v=0), (u=1,v=0), (u=0,v=1), (u=1,v=1).
type Bilinear struct {
	Vars                   *primvar.Store
	UMin, UMax, VMin, VMax float32
}

// NewBilinear returns a full (u,v) in [0,1]x[0,1] bilinear patch
// over the given primvars, which must carry a 4-element Vertex (or
// Varying) P.
func NewBilinear(vars *primvar.Store) *Bilinear {
	return &Bilinear{Vars: vars, UMin: 0, UMax: 1, VMin: 0, VMax: 1}
}

func bilerp(a, b, c, d *linear.V3, u, v float32) linear.V3 {
	var ab, cd, out linear.V3
	ab.Scale(1-u, a)
	var bb linear.V3
	bb.Scale(u, b)
	ab.Add(&ab, &bb)
	cd.Scale(1-u, c)
	var dd linear.V3
	dd.Scale(u, d)
	cd.Add(&cd, &dd)
	var t1, t2 linear.V3
	t1.Scale(1-v, &ab)
	t2.Scale(v, &cd)
	out.Add(&t1, &t2)
	return out
}

// corners returns the patch's four corner positions, evaluated at
// its current (possibly split) (u,v) sub-range.
func (b *Bilinear) corners() (a, c1, c2, d linear.V3) {
	p := b.Vars.FindStd(varset.P)
	var A, B, C, D linear.V3
	copy(A[:], p.Elem(0))
	copy(B[:], p.Elem(1))
	copy(C[:], p.Elem(2))
	copy(D[:], p.Elem(3))
	a = bilerp(&A, &B, &C, &D, b.UMin, b.VMin)
	c1 = bilerp(&A, &B, &C, &D, b.UMax, b.VMin)
	c2 = bilerp(&A, &B, &C, &D, b.UMin, b.VMax)
	d = bilerp(&A, &B, &C, &D, b.UMax, b.VMax)
	return
}

// Bound implements Geometry.
func (b *Bilinear) Bound() linear.Box3 {
	a, c, d, e := b.corners()
	var box linear.Box3
	box.Reset()
	box.ExtendPt(&a)
	box.ExtendPt(&c)
	box.ExtendPt(&d)
	box.ExtendPt(&e)
	return box
}

// MotionCompatible implements Geometry: any two bilinear patches are
// compatible, since they share topology unconditionally.
func (b *Bilinear) MotionCompatible(other Geometry) bool {
	_, ok := other.(*Bilinear)
	return ok
}

// Transform implements Geometry.
func (b *Bilinear) Transform(m *linear.M4) {
	p := b.Vars.FindStd(varset.P)
	for i := 0; i < p.NumElems(); i++ {
		e := p.Elem(i)
		var v, out linear.V3
		copy(v[:], e)
		linear.TransformPt(&out, m, &v)
		copy(e, out[:])
	}
}

// Tessellate implements Geometry, per §4.7: the dice step bilinearly
// interpolates each primvar across the (u,v) sub-range; the split
// step halves the longer rasterized direction; forced splits
// alternate u/v by the force count's parity.
func (b *Bilinear) Tessellate(params SplitParams, ctx Context) error {
	if params.ForceSplit != 0 {
		splitU := params.ForceSplit%2 == 0
		ctx.Split(b.split(splitU)...)
		return nil
	}

	a, c1, c2, d := b.corners()
	var aT, bT, cT, dT linear.V3
	linear.TransformPt(&aT, &params.Trans, &a)
	linear.TransformPt(&bT, &params.Trans, &c1)
	linear.TransformPt(&cT, &params.Trans, &c2)
	linear.TransformPt(&dT, &params.Trans, &d)

	var ab, cd, ac, bd linear.V3
	ab.Sub(&bT, &aT)
	cd.Sub(&dT, &cT)
	ac.Sub(&cT, &aT)
	bd.Sub(&dT, &bT)
	lu := 0.5 * (ab.Len() + cd.Len())
	lv := 0.5 * (ac.Len() + bd.Len())

	if params.PolyLength > 0 {
		lu /= params.PolyLength
		lv /= params.PolyLength
	}

	if lu*lv <= float32(params.GridSize)*float32(params.GridSize) {
		nu := 2 + int(math.Ceil(float64(lu)))
		nv := 2 + int(math.Ceil(float64(lv)))
		b.dice(nu, nv, ctx)
	} else {
		ctx.Split(b.split(lu > lv)...)
	}
	return nil
}

// split halves the patch's longer raster dimension, returning the
// two children.
func (b *Bilinear) split(splitU bool) []Geometry {
	if splitU {
		mid := 0.5 * (b.UMin + b.UMax)
		return []Geometry{
			&Bilinear{Vars: b.Vars, UMin: b.UMin, UMax: mid, VMin: b.VMin, VMax: b.VMax},
			&Bilinear{Vars: b.Vars, UMin: mid, UMax: b.UMax, VMin: b.VMin, VMax: b.VMax},
		}
	}
	mid := 0.5 * (b.VMin + b.VMax)
	return []Geometry{
		&Bilinear{Vars: b.Vars, UMin: b.UMin, UMax: b.UMax, VMin: b.VMin, VMax: mid},
		&Bilinear{Vars: b.Vars, UMin: b.UMin, UMax: b.UMax, VMin: mid, VMax: b.VMax},
	}
}

// dice turns the patch into an (nu x nv) grid of shading points,
// bilinearly interpolating every primvar across the patch's current
// sub-range.
func (b *Bilinear) dice(nu, nv int, ctx Context) {
	builder := ctx.Builder()
	builder.SetFromGeom()
	for i := 0; i < b.Vars.Len(); i++ {
		v := b.Vars.At(i)
		uniform := v.Class == primvar.Constant || v.Class == primvar.Uniform
		builder.Add(v.Spec, uniform)
	}
	stor := builder.Build(nu * nv)
	g := grid.New(nu, nv, stor)

	du := (b.UMax - b.UMin) / float32(nu-1)
	dv := (b.VMax - b.VMin) / float32(nv-1)

	for i := 0; i < b.Vars.Len(); i++ {
		src := b.Vars.At(i)
		view, ok := stor.GetSpec(src.Spec)
		if !ok {
			continue
		}
		if view.Uniform {
			copy(view.At(0), src.Elem(0))
			continue
		}
		sz := src.Spec.ScalarSize()
		a1, a2, a3, a4 := src.Elem(0), src.Elem(1), src.Elem(2), src.Elem(3)
		aMin := make([]float32, sz)
		aMax := make([]float32, sz)
		for v := 0; v < nv; v++ {
			fv := b.VMin + dv*float32(v)
			for k := 0; k < sz; k++ {
				aMin[k] = lerp(a1[k], a3[k], fv)
				aMax[k] = lerp(a2[k], a4[k], fv)
			}
			for u := 0; u < nu; u++ {
				fu := b.UMin + du*float32(u)
				out := view.At(g.Index(u, v))
				for k := 0; k < sz; k++ {
					out[k] = lerp(aMin[k], aMax[k], fu)
				}
			}
		}
	}
	ctx.Dice(g)
}

func lerp(a, b, t float32) float32 { return a + t*(b-a) }
