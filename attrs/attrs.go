// Package attrs holds the surface attribute state attached to a
// piece of geometry at RiAttributeBegin/End scope: shading rate,
// shader bindings and the other per-surface controls the
// tessellation and shading stages consult.
package attrs

import "github.com/reyesrender/core/shader"

// Attributes is immutable surface attribute state shared (by
// pointer) across every holder descending from the geometry it was
// attached to.
type Attributes struct {
	ShadingRate       float32 // desired micropolygon area, in pixels^2
	FocusFactor       float32 // enlarges focal-blurred micropolygons
	SmoothShading     bool    // interpolate shading across a micropolygon vs. flat
	DisplacementBound float32 // max displacement a shader may apply
	Sides             int     // 1 (single-sided) or 2 (double-sided)
	SurfaceShader     shader.Shader
	DisplacementShader shader.Shader
}

// Default returns the Attributes in effect with no RiAttribute calls.
func Default() *Attributes {
	return &Attributes{
		ShadingRate:   1,
		FocusFactor:   1,
		SmoothShading: true,
		Sides:         2,
	}
}
