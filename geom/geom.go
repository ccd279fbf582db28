// Package geom defines the contract a concrete parametric surface
// must satisfy to be driven through split/dice by the tessellation
// context, and implements two concrete surfaces: a bilinear patch
// and a convex polygon mesh (whose sole implemented split produces
// one bilinear patch per quad face).
package geom

import (
	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
)

// SplitParams carries the information the tessellation context has
// already computed for this holder and that a geometry needs to
// decide split vs. dice: the transform used to estimate raster-space
// extents, the target micropolygon edge length (in raster pixels),
// the renderer's grid-size option, and the eye-split force counter
// (0 if this is not a forced split).
type SplitParams struct {
	Trans      linear.M4
	PolyLength float32
	GridSize   int
	ForceSplit int
}

// Context is the callback interface a Geometry uses to hand control
// back to the tessellation context. Tessellate must invoke exactly
// one of Split or Dice before returning, and the context must not
// observe any effect of the call until it returns (§4.1: "the
// context mutates no state until the geometry's callback returns").
type Context interface {
	// Builder returns a grid.Builder pre-populated (by the
	// tessellation context) with the variables any attached
	// shaders and the renderer's output variable set require.
	// The geometry adds its own primvars on top, with
	// SetFromGeom precedence, then calls Builder().Build(nverts)
	// itself before handing the grid to Dice.
	Builder() *grid.Builder

	// Split hands zero or more child geometries to the context,
	// which will wrap each in a new holder and cull it against
	// the current bucket and clip planes.
	Split(children ...Geometry)

	// Dice hands one finished grid to the context for shading
	// and rasterization.
	Dice(g *grid.Grid)
}

// Geometry is the contract a concrete surface type must implement.
type Geometry interface {
	// Bound returns the object-space axis-aligned bounding box.
	Bound() linear.Box3

	// MotionCompatible reports whether other can serve as a
	// motion key for this geometry (same topology).
	MotionCompatible(other Geometry) bool

	// Tessellate must invoke exactly one of ctx.Split or
	// ctx.Dice. params.ForceSplit != 0 means the geometry must
	// split, never dice (the holder's bound crosses the eye
	// plane).
	Tessellate(params SplitParams, ctx Context) error

	// Transform applies a point transform to the geometry. It is
	// only ever called before the geometry is inserted into the
	// split store; afterwards geometry is immutable.
	Transform(m *linear.M4)
}
