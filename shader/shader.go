// Package shader defines the contract a shading program must
// satisfy to run over a grid. Shader execution itself is an
// external collaborator: this package specifies only the opaque
// interface the renderer invokes, not how a shader is authored or
// compiled.
package shader

import (
	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/varset"
)

// Context carries whatever per-invocation state a Shader needs
// beyond the grid itself (current shading time, the renderer's
// camera-space transforms, and so on). The renderer constructs one
// per tessellation step; its concrete fields are an implementation
// detail of the calling package.
type Context struct {
	// Time is the shutter-relative time at which this invocation
	// is shading (for time-varying shader parameters).
	Time float32
}

// Shader is an opaque shading program: a surface or displacement
// shader declares the variables it reads and writes, and Shade is
// invoked once per grid to fill in (or perturb) those variables in
// place.
type Shader interface {
	// InputVars lists the variables this shader reads.
	InputVars() []varset.Spec

	// OutputVars lists the variables this shader writes.
	OutputVars() []varset.Spec

	// Shade executes the shader over every shading point of g. It
	// must only read InputVars and only write OutputVars.
	Shade(ctx *Context, g *grid.Grid) error
}
