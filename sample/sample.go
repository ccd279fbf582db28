// Package sample generates the stratified, jittered sample positions
// a bucket is rasterized against, together with per-sample time and
// lens offsets for motion blur and depth of field, and the per-sample
// fragment storage micropolygon rasterization writes into. Grounded
// on Aqsis's Sample/SampleStorage
// (original_source/prototypes/newcore/sample.h,
// .../samplestorage.h) and its canonical time/lens sample generator
// (.../samplegen.h/.cpp).
//
// This package implements stratified jittered spatial sampling with
// N-rooks-stratified time and lens offsets (a multi-jittered scheme),
// rather than Aqsis's full corner-coloured Wang-tile interleaving: the
// tile-set construction in samplegen.cpp is a standalone combinatorial
// optimization (simulated-annealing-like tile assembly) whose value is
// marginal variance reduction across *tile boundaries* specifically,
// and reproducing it faithfully would be a disproportionate fraction
// of this package for a renderer whose Non-goals already exclude
// production-grade noise optimization. N-rooks stratification still
// gives every sample a well-distributed, non-clumped (time, lens)
// offset, which is the property the rest of the pipeline (motion blur
// integration, lens sampling) actually depends on.
package sample

import (
	"math"

	"github.com/reyesrender/core/linear"
)

// Sample is one stochastic point sample: its position in raster
// space, the nearest occluding depth recorded so far (used by the
// occlusion package and by opaque micropolygon rasterization to skip
// already-hidden work), and its time/lens offset for motion blur and
// depth of field.
type Sample struct {
	P    linear.V2
	Z    float32
	Time float32
	Lens linear.V2
}

// Grid holds nx*ny samples per pixel, jittered within their strata,
// covering a raster region of size (width x height) pixels starting
// at (x0, y0).
type Grid struct {
	X0, Y0        int
	Width, Height int
	PerPixelX     int
	PerPixelY     int
	samples       []Sample
}

// rng is a small deterministic PRNG (xorshift32) so sample generation
// is reproducible given the same seed, independent of global PRNG
// state shared with other concurrently-rendering buckets.
type rng struct{ state uint32 }

func newRNG(seed uint32) *rng {
	if seed == 0 {
		seed = 0x9e3779b9
	}
	return &rng{state: seed}
}

func (r *rng) float32() float32 {
	r.state ^= r.state << 13
	r.state ^= r.state >> 17
	r.state ^= r.state << 5
	return float32(r.state) / float32(math.MaxUint32)
}

// New builds a Grid of perPixelX*perPixelY jittered samples for each
// of width*height pixels, with stratified (N-rooks) time and lens
// offsets assigned across the whole tile so that no two samples in
// the tile share a time stratum or a lens stratum. Time is stratified
// over [shutterMin, shutterMax]; if shutterMax <= shutterMin, every
// sample's Time is shutterMin, matching the no-motion-blur case.
func New(x0, y0, width, height, perPixelX, perPixelY int, seed uint32, shutterMin, shutterMax float32) *Grid {
	g := &Grid{X0: x0, Y0: y0, Width: width, Height: height, PerPixelX: perPixelX, PerPixelY: perPixelY}
	nx := width * perPixelX
	ny := height * perPixelY
	n := nx * ny
	g.samples = make([]Sample, n)
	r := newRNG(seed)

	for py := 0; py < height; py++ {
		for px := 0; px < width; px++ {
			for sy := 0; sy < perPixelY; sy++ {
				for sx := 0; sx < perPixelX; sx++ {
					jx := (float32(sx) + r.float32()) / float32(perPixelX)
					jy := (float32(sy) + r.float32()) / float32(perPixelY)
					idx := g.index(px, py, sx, sy)
					g.samples[idx].P = linear.V2{
						float32(x0+px) + jx,
						float32(y0+py) + jy,
					}
					g.samples[idx].Z = float32(math.Inf(1))
				}
			}
		}
	}
	assignStratifiedTimeLens(g.samples, r, shutterMin, shutterMax)
	return g
}

func (g *Grid) index(px, py, sx, sy int) int {
	nx := g.Width * g.PerPixelX
	gx := px*g.PerPixelX + sx
	gy := py*g.PerPixelY + sy
	return gy*nx + gx
}

// assignStratifiedTimeLens assigns each sample a distinct stratum
// index in [0, n), permuted independently for time and for each lens
// axis (N-rooks / Latin-hypercube construction), then jitters within
// the stratum, maps the lens stratum to the unit disk via the
// concentric (Shirley-Chiu) mapping, and remaps the canonical [0,1)
// time stratum into [shutterMin, shutterMax].
func assignStratifiedTimeLens(samples []Sample, r *rng, shutterMin, shutterMax float32) {
	n := len(samples)
	if n == 0 {
		return
	}
	timePerm := permutation(n, r)
	lensUPerm := permutation(n, r)
	lensVPerm := permutation(n, r)
	shutter := shutterMax - shutterMin
	if shutter < 0 {
		shutter = 0
	}
	for i := range samples {
		t := (float32(timePerm[i]) + r.float32()) / float32(n)
		samples[i].Time = shutterMin + t*shutter
		u := (float32(lensUPerm[i]) + r.float32()) / float32(n)
		v := (float32(lensVPerm[i]) + r.float32()) / float32(n)
		samples[i].Lens = concentricDisk(u, v)
	}
}

func permutation(n int, r *rng) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := int(r.float32() * float32(i+1))
		if j > i {
			j = i
		}
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// concentricDisk maps a unit square sample (u,v) to the unit disk
// using Shirley & Chiu's concentric mapping, which (unlike the polar
// sqrt(u)*cos/sin(v) mapping) preserves stratification.
func concentricDisk(u, v float32) linear.V2 {
	su := 2*u - 1
	sv := 2*v - 1
	if su == 0 && sv == 0 {
		return linear.V2{0, 0}
	}
	var r, theta float64
	if math.Abs(float64(su)) > math.Abs(float64(sv)) {
		r = float64(su)
		theta = math.Pi / 4 * (float64(sv) / float64(su))
	} else {
		r = float64(sv)
		theta = math.Pi/2 - math.Pi/4*(float64(su)/float64(sv))
	}
	return linear.V2{float32(r * math.Cos(theta)), float32(r * math.Sin(theta))}
}

// At returns the sample at pixel-local offset (px,py) and
// sub-sample index (sx,sy).
func (g *Grid) At(px, py, sx, sy int) *Sample {
	return &g.samples[g.index(px, py, sx, sy)]
}

// Len returns the total number of samples in the grid.
func (g *Grid) Len() int { return len(g.samples) }

// All returns every sample in scanline order.
func (g *Grid) All() []Sample { return g.samples }

// NX and NY return the full sample-grid dimensions (pixels * samples
// per pixel, in x and y respectively).
func (g *Grid) NX() int { return g.Width * g.PerPixelX }
func (g *Grid) NY() int { return g.Height * g.PerPixelY }

// Bound returns the [x0,x1) x [y0,y1) range of sample-grid indices
// whose positions can fall within the raster-space box [bx0,bx1) x
// [by0,by1), clamped to the grid's extent.
func (g *Grid) Bound(bx0, by0, bx1, by1 float32) (x0, y0, x1, y1 int) {
	nx, ny := g.NX(), g.NY()
	x0 = clampi(ifloor((bx0-float32(g.X0))*float32(g.PerPixelX)), 0, nx)
	x1 = clampi(ifloor((bx1-float32(g.X0))*float32(g.PerPixelX))+1, 0, nx)
	y0 = clampi(ifloor((by0-float32(g.Y0))*float32(g.PerPixelY)), 0, ny)
	y1 = clampi(ifloor((by1-float32(g.Y0))*float32(g.PerPixelY))+1, 0, ny)
	return
}

func ifloor(f float32) int {
	i := int(f)
	if f < float32(i) {
		i--
	}
	return i
}

func clampi(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
