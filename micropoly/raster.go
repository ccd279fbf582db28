package micropoly

import (
	"math"

	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/occlusion"
	"github.com/reyesrender/core/sample"
	"github.com/reyesrender/core/tessellate"
	"github.com/reyesrender/core/varset"
)

// Fragment is the set of output values written to one sample when a
// micropolygon is found to be the nearest thing covering it so far.
type Fragment struct {
	Z      float32
	Values []float32 // one slot per requested output Spec, concatenated by ScalarSize
}

// Sink receives fragments as a grid is rasterized. SampleIndex is the
// linear index into the sample.Grid the fragment belongs to.
type Sink interface {
	Write(sampleIndex int, frag Fragment)
}

// Rasterizer samples every micropolygon of a grid against a bucket's
// stochastic samples, interpolating a caller-chosen set of output
// variables (typically Ci, Oi, z) at each covered sample and
// reporting them through a Sink, with hierarchical occlusion culling
// via an occlusion.Tree. Corresponds to Aqsis's MicroQuadSampler
// (original_source/prototypes/newcore/microquadsampler.h) driven by
// the per-bucket occlusion-culled micropolygon loop in renderer.cpp.
type Rasterizer struct {
	Samples     *sample.Grid
	Occlusion   *occlusion.Tree
	OutSpecs    []varset.Spec
	Sink        Sink
	SmoothShade bool

	// Lens, ShutterMin and ShutterMax let Rasterize resolve each
	// sample's exact covering geometry from its own Time and Lens
	// offset, per §4.2: a deforming grid's vertices are linearly
	// interpolated between the two motion keys straddling the
	// sample's time, and a lens-bearing camera shifts the result in
	// x/y by -lens_uv * CoC(z). A nil Lens means a pinhole camera: no
	// shift. ShutterMax <= ShutterMin collapses every sample onto the
	// first key, matching the non-blurred case.
	Lens                   *tessellate.Lens
	ShutterMin, ShutterMax float32
}

// outViews resolves g's backing View plus element size for every
// output Spec, or ok=false if g doesn't carry one of them.
func (r *Rasterizer) outViews(g *grid.Grid) ([]grid.View, bool) {
	views := make([]grid.View, len(r.OutSpecs))
	for i, spec := range r.OutSpecs {
		v, ok := g.Stor.GetSpec(spec)
		if !ok {
			return nil, false
		}
		views[i] = v
	}
	return views, true
}

// Rasterize samples every micropolygon of g (a deforming grid's
// primary, t=0 key, or the only grid for a non-deforming holder)
// against the Rasterizer's stochastic samples, writing covered
// samples to Sink. motionGrids holds the remaining time keys, same
// shape as g, assumed evenly spaced across the motion segment's
// [0,1] parameterization (key i at time i/(len(motionGrids)+1-1));
// pass nil for a non-deforming grid. Micropolygons entirely behind
// the occlusion tree's recorded depth for their screen-space
// footprint, expanded to cover every key's position and the widest
// possible lens-driven excursion, are skipped without a single
// point-in-quad test.
func (r *Rasterizer) Rasterize(g *grid.Grid, motionGrids []*grid.Grid) {
	keyGrids := make([]*grid.Grid, 0, 1+len(motionGrids))
	keyGrids = append(keyGrids, g)
	keyGrids = append(keyGrids, motionGrids...)
	numKeys := len(keyGrids)

	keyP := make([]grid.View, numKeys)
	keyViews := make([][]grid.View, numKeys)
	for k, kg := range keyGrids {
		views, ok := r.outViews(kg)
		if !ok {
			return
		}
		keyViews[k] = views
		keyP[k] = kg.P()
	}

	var pit PointInQuad
	var ib InvBilin
	scratch := make([]float32, sumSize(r.OutSpecs))
	corners := make([][4]linear.V3, numKeys)

	for v := 0; v < g.Nv-1; v++ {
		for u := 0; u < g.Nu-1; u++ {
			verts := g.MicropolyVerts(u, v)

			var bnd linear.Box2
			bnd.Reset()
			zMin := float32(math.Inf(1))
			var cocMax float32
			for k := 0; k < numKeys; k++ {
				for c, vi := range verts {
					var p linear.V3
					copy(p[:], keyP[k].At(vi))
					corners[k][c] = p
					p2 := linear.V2{p[0], p[1]}
					bnd.ExtendPt(&p2)
					if p[2] < zMin {
						zMin = p[2]
					}
					if r.Lens != nil {
						if coc := r.Lens.CoC(p[2]); coc > cocMax {
							cocMax = coc
						}
					}
				}
			}
			if cocMax > 0 {
				bnd.Min[0] -= cocMax
				bnd.Min[1] -= cocMax
				bnd.Max[0] += cocMax
				bnd.Max[1] += cocMax
			}

			if r.Occlusion != nil {
				ob := toOcclusionBound(r.Samples, bnd)
				if r.Occlusion.IsOccluded(ob, zMin) {
					continue
				}
			}

			// MicropolyVerts returns (ll,lr,ur,ul), matching
			// PointInQuad.Init's a,b,c,d (d-c / a-b) directly; InvBilin
			// wants its c,d swapped (C-D / A-B, i.e. ul,ur).
			flip := (u+v)%2 == 0

			sx0, sy0, sx1, sy1 := r.Samples.Bound(bnd.Min[0], bnd.Min[1], bnd.Max[0], bnd.Max[1])
			for sy := sy0; sy < sy1; sy++ {
				for sx := sx0; sx < sx1; sx++ {
					s := r.sampleAt(sx, sy)

					k0, k1, w := keyStraddle(numKeys, s.Time, r.ShutterMin, r.ShutterMax)
					a := lerpV3(corners[k0][0], corners[k1][0], w)
					b := lerpV3(corners[k0][1], corners[k1][1], w)
					c := lerpV3(corners[k0][2], corners[k1][2], w)
					d := lerpV3(corners[k0][3], corners[k1][3], w)

					a2 := linear.V2{a[0], a[1]}
					b2 := linear.V2{b[0], b[1]}
					c2 := linear.V2{c[0], c[1]}
					d2 := linear.V2{d[0], d[1]}
					if r.Lens != nil {
						shiftDoF(&a2, s.Lens, r.Lens.CoC(a[2]))
						shiftDoF(&b2, s.Lens, r.Lens.CoC(b[2]))
						shiftDoF(&c2, s.Lens, r.Lens.CoC(c[2]))
						shiftDoF(&d2, s.Lens, r.Lens.CoC(d[2]))
					}

					pit.Init(a2, b2, c2, d2, flip)
					if !pit.Contains(s.P) {
						continue
					}
					ib.Init(a2, b2, d2, c2)
					uv := ib.Eval(s.P)
					z := bilerpScalar(a[2], b[2], d[2], c[2], uv[0], uv[1])
					if z >= s.Z {
						continue
					}
					off := 0
					for i := range r.OutSpecs {
						sz := keyViews[k0][i].ElSize
						interpViewMotion(keyViews[k0][i], keyViews[k1][i], w, verts, uv[0], uv[1], r.SmoothShade, scratch[off:off+sz])
						off += sz
					}
					s.Z = z
					r.Sink.Write(r.sampleIndex(sx, sy), Fragment{Z: z, Values: append([]float32(nil), scratch...)})
				}
			}
		}
	}
}

// keyStraddle resolves time t (a sample's shutter-range time) to the
// two key indices it falls between and the interpolation weight
// toward the second, per §4.2: a sample interpolates linearly between
// the two keys straddling its time. Keys are assumed to span the
// motion segment's [0,1] parameterization evenly. A single key, or a
// collapsed shutter (shutterMax <= shutterMin), always resolves to
// key 0 with weight 0, matching the non-blurred variant exactly,
// regardless of what t happens to be.
func keyStraddle(numKeys int, t, shutterMin, shutterMax float32) (k0, k1 int, w float32) {
	if numKeys <= 1 || shutterMax <= shutterMin {
		return 0, 0, 0
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	tt := t * float32(numKeys-1)
	k0 = int(tt)
	if k0 > numKeys-2 {
		k0 = numKeys - 2
	}
	w = tt - float32(k0)
	k1 = k0 + 1
	return
}

func lerpV3(a, b linear.V3, w float32) linear.V3 {
	var out linear.V3
	for i := range out {
		out[i] = a[i] + w*(b[i]-a[i])
	}
	return out
}

// shiftDoF shifts p in-place by -lensUV * coc, the per-vertex
// defocus shift §4.2 specifies.
func shiftDoF(p *linear.V2, lensUV linear.V2, coc float32) {
	p[0] -= lensUV[0] * coc
	p[1] -= lensUV[1] * coc
}

func sumSize(specs []varset.Spec) int {
	n := 0
	for _, s := range specs {
		n += s.ScalarSize()
	}
	return n
}

// sampleAt/sampleIndex translate the Rasterizer's flat sample-grid
// indices (sx,sy) in [0,NX)x[0,NY) back to the per-pixel
// sample.Grid.At addressing.
func (r *Rasterizer) sampleAt(sx, sy int) *sample.Sample {
	px, py, lx, ly := r.pixelLocal(sx, sy)
	return r.Samples.At(px, py, lx, ly)
}

func (r *Rasterizer) sampleIndex(sx, sy int) int { return sy*r.Samples.NX() + sx }

func (r *Rasterizer) pixelLocal(sx, sy int) (px, py, lx, ly int) {
	ppx, ppy := r.Samples.PerPixelX, r.Samples.PerPixelY
	return sx / ppx, sy / ppy, sx % ppx, sy % ppy
}

func toOcclusionBound(s *sample.Grid, bnd linear.Box2) occlusion.Bound {
	x0, y0, x1, y1 := s.Bound(bnd.Min[0], bnd.Min[1], bnd.Max[0], bnd.Max[1])
	return occlusion.Bound{MinX: x0, MinY: y0, MaxX: x1, MaxY: y1}
}

// bilerpScalar evaluates the bilinear patch with corners A,B,C,D (in
// InvBilin's convention: A,B along v=0, C,D along v=1) at (u,v):
//
//	(1-v)*((1-u)*A + u*B) + v*((1-u)*C + u*D)
func bilerpScalar(A, B, C, D float32, u, v float32) float32 {
	top := A + u*(B-A)
	bot := C + u*(D-C)
	return top + v*(bot-top)
}

// interpViewMotion resolves one output variable at a sample covered
// by a micropolygon: it first blends each of the micropolygon's four
// corner values between key0's and key1's view by the sample's time
// weight w, then bilinearly interpolates the blended corners across
// the quad (or copies the blended ll corner when smooth is false).
// verts is in MicropolyVerts' (ll,lr,ur,ul) order; bilerpScalar's
// (A,B,C,D) convention wants (ll,lr,ul,ur), matching the reordering
// used to initialize InvBilin.
func interpViewMotion(view0, view1 grid.View, w float32, verts [4]int, u, v float32, smooth bool, out []float32) {
	if view0.Uniform {
		blend(out, view0.At(0), view1.At(0), w)
		return
	}
	blendCorner := func(idx int, dst []float32) {
		blend(dst, view0.At(idx), view1.At(idx), w)
	}

	sz := view0.ElSize
	ca := make([]float32, sz)
	cb := make([]float32, sz)
	cc := make([]float32, sz)
	cd := make([]float32, sz)
	blendCorner(verts[0], ca)
	if !smooth {
		copy(out, ca)
		return
	}
	blendCorner(verts[1], cb)
	blendCorner(verts[3], cc)
	blendCorner(verts[2], cd)
	for k := range out {
		out[k] = bilerpScalar(ca[k], cb[k], cc[k], cd[k], u, v)
	}
}

// blend writes out[k] = a[k] + w*(b[k]-a[k]) for every component.
func blend(out, a, b []float32, w float32) {
	for k := range out {
		out[k] = a[k] + w*(b[k]-a[k])
	}
}
