// Package filter implements pixel reconstruction filter kernels and a
// cache of their coefficients tabulated on the supersample lattice.
// Grounded on Aqsis's Filter/CachedFilter
// (original_source/prototypes/newcore/filters.h, .../filterprocessor.h).
package filter

import "math"

// Kernel evaluates a 2D filter kernel at an offset (x,y) in pixels
// from the filter center, and reports whether it factors as
// f(x,y) = f1(x)*f1(y) for some 1D f1 (letting the cache tabulate it
// as two 1D arrays, O(R) coefficients instead of O(R^2)).
type Kernel interface {
	Eval(x, y float32) float32
	Separable() bool
	// Width returns the filter's half-width in pixels along x and y;
	// the kernel is assumed to vanish outside [-Width, Width].
	Width() (wx, wy float32)
}

type box struct{ wx, wy float32 }

// Box returns a box filter of half-width (wx, wy) pixels.
func Box(wx, wy float32) Kernel { return box{wx, wy} }

func (b box) Eval(x, y float32) float32 {
	if -b.wx <= x && x <= b.wx && -b.wy <= y && y <= b.wy {
		return 1
	}
	return 0
}
func (b box) Separable() bool         { return true }
func (b box) Width() (wx, wy float32) { return b.wx, b.wy }

type disc struct{ wx, wy float32 }

// Disc returns an elliptical disc filter of half-width (wx, wy)
// pixels. Non-separable: f(x,y) depends on x and y jointly through
// r^2, not as a product of independent 1D functions.
func Disc(wx, wy float32) Kernel { return disc{wx, wy} }

func (d disc) Eval(x, y float32) float32 {
	x /= d.wx
	y /= d.wy
	if x*x+y*y <= 1 {
		return 1
	}
	return 0
}
func (d disc) Separable() bool         { return false }
func (d disc) Width() (wx, wy float32) { return d.wx, d.wy }

type gaussian struct{ wx, wy float32 }

// Gaussian returns a Gaussian filter of half-width (wx, wy) pixels,
// scaled so the kernel falls to e^-8 at the edge of its support.
func Gaussian(wx, wy float32) Kernel { return gaussian{wx, wy} }

func (g gaussian) Eval(x, y float32) float32 {
	x /= g.wx
	y /= g.wy
	return float32(math.Exp(-8 * float64(x*x+y*y)))
}
func (g gaussian) Separable() bool         { return true }
func (g gaussian) Width() (wx, wy float32) { return g.wx, g.wy }

type sinc struct{ wx, wy float32 }

// Sinc returns a windowed-sinc filter (Lanczos window) of half-width
// (wx, wy) pixels.
func Sinc(wx, wy float32) Kernel { return sinc{wx, wy} }

func sincPi(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(x) / x
}

func windowedSinc(x, width float32) float32 {
	xs := float64(x) * math.Pi
	window := 0.0
	if float64(float32(math.Abs(float64(x)))) < float64(width) {
		window = sincPi(xs / float64(width))
	}
	return float32(sincPi(xs) * window)
}

func (s sinc) Eval(x, y float32) float32 {
	return windowedSinc(x, s.wx) * windowedSinc(y, s.wy)
}
func (s sinc) Separable() bool         { return true }
func (s sinc) Width() (wx, wy float32) { return s.wx, s.wy }

// discreteSize returns the filter's support size in samples and the
// offset of the filter's left/top edge from the pixel's own first
// sample, per spec: 2*floor(r*s+0.5) for even s, 2*floor(r*s)+1 for
// odd s, where r is the half-width in pixels and s is samples per
// pixel along that axis.
func discreteSize(r float32, s int) (size, offset int) {
	if s%2 == 0 {
		size = 2 * int(math.Floor(float64(r)*float64(s)+0.5))
	} else {
		size = 2*int(math.Floor(float64(r)*float64(s))) + 1
	}
	offset = (size - s) / 2
	return
}

// Cached pre-tabulates a Kernel's coefficients on the supersample
// lattice for one (kernel, samples-per-pixel) pair, renormalized to
// sum to 1. Grounded on Aqsis's CachedFilter.
type Cached struct {
	sizeX, sizeY     int
	offsetX, offsetY int
	separable        bool
	weights          []float32 // sizeX*sizeY if non-separable, else sizeX+sizeY (x-weights then y-weights)
}

// NewCached builds the coefficient cache for k at sampsPerPixelX,
// sampsPerPixelY supersamples per pixel.
func NewCached(k Kernel, sampsPerPixelX, sampsPerPixelY int) *Cached {
	wx, wy := k.Width()
	sizeX, offX := discreteSize(wx, sampsPerPixelX)
	sizeY, offY := discreteSize(wy, sampsPerPixelY)
	c := &Cached{
		sizeX: sizeX, sizeY: sizeY,
		offsetX: offX, offsetY: offY,
		separable: k.Separable(),
	}
	if c.separable {
		// f(x,y) = f1(x)*f1(y), so f(x,0) and f(0,y) are each f1 up to
		// the constant factor f1(0); independently renormalizing each
		// axis to sum to 1 cancels that constant.
		c.weights = make([]float32, sizeX+sizeY)
		var sum float32
		for i := 0; i < sizeX; i++ {
			x := (float32(i) + 0.5 - float32(sizeX)/2) / float32(sampsPerPixelX)
			w := k.Eval(x, 0)
			c.weights[i] = w
			sum += w
		}
		if sum != 0 {
			for i := 0; i < sizeX; i++ {
				c.weights[i] /= sum
			}
		}
		sum = 0
		for j := 0; j < sizeY; j++ {
			y := (float32(j) + 0.5 - float32(sizeY)/2) / float32(sampsPerPixelY)
			w := k.Eval(0, y)
			c.weights[sizeX+j] = w
			sum += w
		}
		if sum != 0 {
			for j := 0; j < sizeY; j++ {
				c.weights[sizeX+j] /= sum
			}
		}
		return c
	}

	c.weights = make([]float32, sizeX*sizeY)
	var sum float32
	for j := 0; j < sizeY; j++ {
		y := (float32(j) + 0.5 - float32(sizeY)/2) / float32(sampsPerPixelY)
		for i := 0; i < sizeX; i++ {
			x := (float32(i) + 0.5 - float32(sizeX)/2) / float32(sampsPerPixelX)
			w := k.Eval(x, y)
			c.weights[sizeY1d(sizeX, i, j)] = w
			sum += w
		}
	}
	if sum != 0 {
		for i := range c.weights {
			c.weights[i] /= sum
		}
	}
	return c
}

func sizeY1d(sizeX, i, j int) int { return sizeX*j + i }

// Size returns the filter support size in samples.
func (c *Cached) Size() (sx, sy int) { return c.sizeX, c.sizeY }

// Offset returns the sample offset of the filter's top-left corner
// relative to the pixel's own first sample.
func (c *Cached) Offset() (ox, oy int) { return c.offsetX, c.offsetY }

// Separable reports whether the cache holds two 1D arrays (x then y,
// use Weight1D) or one 2D array (use Weight2D).
func (c *Cached) Separable() bool { return c.separable }

// Weight2D returns the cached non-separable coefficient at (x,y)
// (0-based indices into the filter support).
func (c *Cached) Weight2D(x, y int) float32 { return c.weights[sizeY1d(c.sizeX, x, y)] }

// Weight1D returns the cached separable 1D coefficient along the x
// axis (axis=0) or y axis (axis=1) at the given index.
func (c *Cached) Weight1D(axis, i int) float32 {
	if axis == 0 {
		return c.weights[i]
	}
	return c.weights[c.sizeX+i]
}
