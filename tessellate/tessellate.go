// Package tessellate implements geom.Context: it drives one holder
// through exactly one split-or-dice decision, culls split children
// against the current bucket, and for a diced grid runs the
// displacement/surface shaders and the cam-to-raster projection in
// the order §4.1 specifies. Grounded on Aqsis's
// TessellationContextImpl
// (original_source/prototypes/newcore/tessellation.h, .cpp).
package tessellate

import (
	"errors"
	"math"

	"github.com/reyesrender/core/attrs"
	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/shader"
	"github.com/reyesrender/core/varset"
)

// Lens carries the depth-of-field parameters used to coarsen the
// target micropolygon size under defocus blur. A nil *Lens means a
// pinhole camera: no coarsening. The CoC itself is also applied
// per-sample by the rasterizer/sample generator; this is only the
// tessellation-time coarsening §4.1 calls for.
type Lens struct {
	FocalLength, FocalDistance, Fstop float32
	// RasterScale converts a camera-space length at the image
	// plane to raster pixels.
	RasterScale float32
}

// CoC returns the circle-of-confusion radius, in raster pixels, for
// a point at camera-space depth z, per §4.2's formula. Exported so
// micropoly.Rasterizer can apply the same per-vertex defocus shift
// at rasterization time that polyLength uses to coarsen dicing.
func (l *Lens) CoC(z float32) float32 {
	if l == nil || z == 0 || l.FocalDistance == l.FocalLength {
		return 0
	}
	c := l.FocalLength / (2 * l.Fstop) *
		(l.FocalDistance * l.FocalLength) / (l.FocalDistance - l.FocalLength) *
		(1/z - 1/l.FocalDistance)
	if c < 0 {
		c = -c
	}
	return c * l.RasterScale
}

// Result is the outcome of running one geometry key through Run.
type Result struct {
	Children      []geom.Geometry
	Grids         []*grid.Grid
	EyeSplitCount int
}

// MotionResult is the outcome of running every key of a deforming
// holder through RunMotion.
type MotionResult struct {
	KeyChildren   [][]geom.Geometry // one slice per key, same length and order on every key
	KeyGrids      []*grid.Grid      // one grid per key, same shape, KeyGrids[0] is the primary
	EyeSplitCount int
}

// Context drives one holder's tessellation step and implements
// geom.Context for the duration of a single Tessellate call. It is
// not safe for concurrent use: give each bucket worker its own
// Context.
type Context struct {
	// CamToRaster projects a finished grid's P from camera space
	// to raster space, and estimates a geometry's raster extent
	// during split/dice decisions.
	CamToRaster linear.M4
	GridSize    int
	// BucketBound culls split children: x/y is the current
	// bucket's raster-ish extent, z is the near/far clip range.
	BucketBound linear.Box3
	// EyeEpsilon is the z coordinate of the eye plane; a holder
	// whose bound straddles it must split, never dice.
	EyeEpsilon float32
	Lens       *Lens
	OutVars    varset.Set
	ShadeCtx   shader.Context

	builder  grid.Builder
	attrs    *attrs.Attributes
	Children []geom.Geometry
	Grids    []*grid.Grid
	diceErr  error
}

// Run drives g through one split/dice decision against bound (the
// holder's camera-space bound) and at (its attributes).
// eyeSplitCount is the number of consecutive forced splits already
// applied to this lineage (0 for a fresh holder); the scheduler is
// responsible for discarding a holder once the returned
// EyeSplitCount exceeds its configured maximum.
func (c *Context) Run(g geom.Geometry, bound linear.Box3, at *attrs.Attributes, eyeSplitCount int) (Result, error) {
	params := c.splitParams(at, bound, eyeSplitCount)
	c.reset(at)
	if err := g.Tessellate(params, c); err != nil {
		return Result{}, err
	}
	if c.diceErr != nil {
		err := c.diceErr
		c.diceErr = nil
		return Result{}, err
	}
	return Result{Children: c.Children, Grids: c.Grids, EyeSplitCount: params.ForceSplit}, nil
}

// RunMotion drives every time key of a deforming holder through the
// same split/dice control (computed once, from the primary key's
// bound) and checks that every key produced the same shape of
// result, per §4.1's motion_compatible rule; a mismatch returns an
// error and the whole motion group must be discarded.
//
// Every key is fully displacement- and surface-shaded independently
// (rather than shading only the primary key and copying its output
// onto the rest): for a deterministic shader the sample-visible
// result is identical, at the cost of redundant shader invocations
// on non-primary keys. See DESIGN.md.
func (c *Context) RunMotion(keys []geom.Geometry, bound linear.Box3, at *attrs.Attributes, eyeSplitCount int) (MotionResult, error) {
	if len(keys) == 0 {
		return MotionResult{}, errors.New("tessellate: motion group has no keys")
	}
	params := c.splitParams(at, bound, eyeSplitCount)
	var mr MotionResult
	mr.EyeSplitCount = params.ForceSplit

	for i, key := range keys {
		if i > 0 && !keys[0].MotionCompatible(key) {
			return MotionResult{}, errors.New("tessellate: motion keys are not compatible")
		}
		c.reset(at)
		if err := key.Tessellate(params, c); err != nil {
			return MotionResult{}, err
		}
		if c.diceErr != nil {
			err := c.diceErr
			c.diceErr = nil
			return MotionResult{}, err
		}
		switch {
		case len(c.Children) > 0:
			mr.KeyChildren = append(mr.KeyChildren, append([]geom.Geometry(nil), c.Children...))
		case len(c.Grids) == 1:
			mr.KeyGrids = append(mr.KeyGrids, c.Grids[0])
		default:
			return MotionResult{}, errors.New("tessellate: motion key produced neither children nor a single grid")
		}
	}

	if len(mr.KeyChildren) > 0 {
		n := len(mr.KeyChildren[0])
		for _, kc := range mr.KeyChildren[1:] {
			if len(kc) != n {
				return MotionResult{}, errors.New("tessellate: motion keys split into a different number of children")
			}
		}
	}
	if len(mr.KeyGrids) > 1 {
		nu, nv := mr.KeyGrids[0].Nu, mr.KeyGrids[0].Nv
		for _, g := range mr.KeyGrids[1:] {
			if g.Nu != nu || g.Nv != nv {
				return MotionResult{}, errors.New("tessellate: motion keys diced to different grid shapes")
			}
		}
	}
	return mr, nil
}

func (c *Context) splitParams(at *attrs.Attributes, bound linear.Box3, eyeSplitCount int) geom.SplitParams {
	forced := 0
	if crossesEye(bound, c.EyeEpsilon) {
		forced = eyeSplitCount + 1
	}
	return geom.SplitParams{
		Trans:      c.CamToRaster,
		PolyLength: c.polyLength(at, bound),
		GridSize:   c.GridSize,
		ForceSplit: forced,
	}
}

func crossesEye(b linear.Box3, eps float32) bool {
	return b.Min[2] < eps && b.Max[2] > eps
}

// polyLength is sqrt(shading_rate), coarsened proportionally to the
// minimum circle-of-confusion across the holder's z-extent when a
// lens is active, per §4.1.
func (c *Context) polyLength(at *attrs.Attributes, bound linear.Box3) float32 {
	l := float32(math.Sqrt(float64(at.ShadingRate)))
	if c.Lens != nil {
		cMin := c.Lens.CoC(bound.Min[2])
		cMax := c.Lens.CoC(bound.Max[2])
		minCoC := cMin
		if cMax < minCoC {
			minCoC = cMax
		}
		l *= 1 + at.FocusFactor*minCoC
	}
	return l
}

// reset clears the context for a new Tessellate call and
// pre-populates its grid.Builder with the renderer's output
// variables plus the attached shaders' declared inputs/outputs.
// Geometry adds its own primvars afterward with SetFromGeom
// precedence, so a clash resolves in the geometry's favor.
func (c *Context) reset(at *attrs.Attributes) {
	c.attrs = at
	c.Children = c.Children[:0]
	c.Grids = c.Grids[:0]
	c.diceErr = nil
	c.builder.Reset()
	for i := 0; i < c.OutVars.Len(); i++ {
		c.builder.Add(c.OutVars.At(i), false)
	}
	if at.SurfaceShader != nil {
		addShaderVars(&c.builder, at.SurfaceShader)
	}
	if at.DisplacementShader != nil {
		addShaderVars(&c.builder, at.DisplacementShader)
	}
	c.builder.Add(varset.P, false)
}

func addShaderVars(b *grid.Builder, s shader.Shader) {
	for _, spec := range s.InputVars() {
		b.Add(spec, false)
	}
	for _, spec := range s.OutputVars() {
		b.Add(spec, false)
	}
}

// Builder implements geom.Context.
func (c *Context) Builder() *grid.Builder { return &c.builder }

// Split implements geom.Context: a child surviving culling against
// BucketBound is queued in Children for the caller (the scheduler)
// to wrap in a new holder.
func (c *Context) Split(children ...geom.Geometry) {
	for _, g := range children {
		b := g.Bound()
		if !box3Overlaps(&b, &c.BucketBound) {
			continue
		}
		c.Children = append(c.Children, g)
	}
}

func box3Overlaps(a, b *linear.Box3) bool {
	return a.Min[0] < b.Max[0] && a.Max[0] > b.Min[0] &&
		a.Min[1] < b.Max[1] && a.Max[1] > b.Min[1] &&
		a.Min[2] < b.Max[2] && a.Max[2] > b.Min[2]
}

// Dice implements geom.Context, per §4.1's shading order:
// displacement shader first (may write P and N), then the standard
// variables left unfilled by geometry are derived from the
// (possibly displaced) P, then P is projected to raster space, then
// the surface shader runs. A grid that fails a shader or ends up
// with a non-finite position is dropped with an error recorded on
// the context (surfaced by Run/RunMotion).
func (c *Context) Dice(g *grid.Grid) {
	if c.attrs.DisplacementShader != nil {
		if err := c.attrs.DisplacementShader.Shade(&c.ShadeCtx, g); err != nil {
			c.diceErr = errors.New("tessellate: displacement shader failed: " + err.Error())
			return
		}
	}
	if !finiteP(g) {
		c.diceErr = errors.New("tessellate: non-finite position after displacement")
		return
	}

	if _, ok := g.Ng(); ok {
		g.DeriveNg()
	}
	g.AliasN()
	if _, ok := g.I(); ok {
		g.DeriveI()
	}

	c.project(g)
	if _, ok := g.Z(); ok {
		g.DeriveZ()
	}

	if c.attrs.SurfaceShader != nil {
		if err := c.attrs.SurfaceShader.Shade(&c.ShadeCtx, g); err != nil {
			c.diceErr = errors.New("tessellate: surface shader failed: " + err.Error())
			return
		}
	}

	c.Grids = append(c.Grids, g)
}

func (c *Context) project(g *grid.Grid) {
	p := g.P()
	n := g.Nu * g.Nv
	for i := 0; i < n; i++ {
		e := p.At(i)
		var v, out linear.V3
		copy(v[:], e)
		linear.TransformPt(&out, &c.CamToRaster, &v)
		copy(e, out[:])
	}
}

func finiteP(g *grid.Grid) bool {
	p := g.P()
	n := g.Nu * g.Nv
	for i := 0; i < n; i++ {
		for _, f := range p.At(i) {
			if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
				return false
			}
		}
	}
	return true
}
