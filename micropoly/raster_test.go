package micropoly

import (
	"testing"

	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/occlusion"
	"github.com/reyesrender/core/sample"
	"github.com/reyesrender/core/tessellate"
	"github.com/reyesrender/core/varset"
)

// recordSink collects every Fragment.Write call keyed by sample index,
// keeping only the caller's writes (Rasterize already does its own
// nearest-z bookkeeping via sample.Sample.Z, so a recording sink just
// needs to remember the last write per index for assertions).
type recordSink struct {
	frags map[int]Fragment
}

func newRecordSink() *recordSink { return &recordSink{frags: make(map[int]Fragment)} }

func (s *recordSink) Write(sampleIndex int, frag Fragment) {
	s.frags[sampleIndex] = frag
}

// flatGrid builds a single-micropolygon (2x2) grid spanning [0,4]x[0,4]
// in raster space at constant depth z, carrying a Cs color varying
// from corner a (value 0) to corner c (value 1) for interpolation
// checks.
func flatGrid(z float32) *grid.Grid {
	var b grid.Builder
	b.Add(varset.P, false)
	b.Add(varset.Cs, false)
	stor := b.Build(4)
	g := grid.New(2, 2, stor)

	// (u,v) grid coordinates for ll, lr, ur, ul, matching the corner
	// order MicropolyVerts produces for the grid's single cell.
	uv := [4][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	p, _ := stor.GetSpec(varset.P)
	corners := [4][3]float32{
		{0, 0, z}, // ll
		{4, 0, z}, // lr
		{4, 4, z}, // ur
		{0, 4, z}, // ul
	}
	for i, c := range corners {
		copy(p.At(g.Index(uv[i][0], uv[i][1])), c[:])
	}

	cs, _ := stor.GetSpec(varset.Cs)
	colors := [4][3]float32{
		{0, 0, 0}, // ll
		{1, 0, 0}, // lr
		{1, 1, 0}, // ur
		{0, 1, 0}, // ul
	}
	for i, c := range colors {
		copy(cs.At(g.Index(uv[i][0], uv[i][1])), c[:])
	}
	return g
}

func TestRasterizeCoversSamples(t *testing.T) {
	g := flatGrid(1.0)
	samples := sample.New(0, 0, 4, 4, 1, 1, 99, 0, 1)
	r := &Rasterizer{
		Samples:     samples,
		OutSpecs:    []varset.Spec{varset.Cs},
		SmoothShade: true,
	}
	sink := newRecordSink()
	r.Sink = sink
	r.Rasterize(g, nil)

	if len(sink.frags) == 0 {
		t.Fatal("expected at least some samples to be covered by the single micropolygon")
	}
	for idx, frag := range sink.frags {
		if frag.Z != 1.0 {
			t.Fatalf("sample %d: z = %v, want 1.0", idx, frag.Z)
		}
		for _, v := range frag.Values {
			if v < -1e-4 || v > 1.0001 {
				t.Fatalf("sample %d: interpolated Cs component %v out of [0,1]", idx, v)
			}
		}
	}

	// Corner ll (near raster origin) is colored black, corner ur (near
	// raster (4,4)) is colored yellow (1,1,0); check the interpolated
	// value tracks position instead of being flipped or constant.
	if frag, ok := sink.frags[0]; ok {
		if frag.Values[0] > 0.5 || frag.Values[1] > 0.5 {
			t.Fatalf("sample near ll corner got Cs %v, want near black", frag.Values)
		}
	}
	if frag, ok := sink.frags[15]; ok {
		if frag.Values[0] < 0.5 || frag.Values[1] < 0.5 {
			t.Fatalf("sample near ur corner got Cs %v, want near yellow", frag.Values)
		}
	}
}

func TestRasterizeNearerMicropolyWins(t *testing.T) {
	far := flatGrid(5.0)
	near := flatGrid(1.0)
	samples := sample.New(0, 0, 4, 4, 1, 1, 7, 0, 1)

	r := &Rasterizer{Samples: samples, OutSpecs: []varset.Spec{varset.Cs}, SmoothShade: true}
	sink := newRecordSink()
	r.Sink = sink

	r.Rasterize(far, nil)
	r.Rasterize(near, nil)

	for idx, frag := range sink.frags {
		if frag.Z != 1.0 {
			t.Fatalf("sample %d: z = %v, want nearer grid's 1.0 to have won", idx, frag.Z)
		}
	}
}

func TestRasterizeSkipsOccludedMicropoly(t *testing.T) {
	g := flatGrid(5.0)
	samples := sample.New(0, 0, 4, 4, 1, 1, 3, 0, 1)

	tree := occlusion.New(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			tree.SetDepth(tree.NodeIndex(x, y), 1.0)
		}
	}

	r := &Rasterizer{Samples: samples, Occlusion: tree, OutSpecs: []varset.Spec{varset.Cs}, SmoothShade: true}
	sink := newRecordSink()
	r.Sink = sink
	r.Rasterize(g, nil)

	if len(sink.frags) != 0 {
		t.Fatalf("expected occlusion to cull every sample, got %d fragments", len(sink.frags))
	}
}

func TestRasterizeMissingOutSpecSkipsGrid(t *testing.T) {
	g := flatGrid(1.0)
	samples := sample.New(0, 0, 4, 4, 1, 1, 1, 0, 1)
	r := &Rasterizer{Samples: samples, OutSpecs: []varset.Spec{varset.Ci}, SmoothShade: true}
	sink := newRecordSink()
	r.Sink = sink
	r.Rasterize(g, nil)
	if len(sink.frags) != 0 {
		t.Fatal("expected no writes when a requested output Spec is absent from the grid")
	}
}

// translatedGrid builds a single-micropolygon (2x2) grid spanning
// [xOffset, xOffset+4] x [0,4] in raster space at constant depth z,
// the same shape flatGrid produces but shiftable along x so two keys
// of the same topology can model a translating motion-blurred strip.
func translatedGrid(xOffset, z float32) *grid.Grid {
	var b grid.Builder
	b.Add(varset.P, false)
	b.Add(varset.Cs, false)
	stor := b.Build(4)
	g := grid.New(2, 2, stor)

	uv := [4][2]int{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	p, _ := stor.GetSpec(varset.P)
	corners := [4][3]float32{
		{xOffset + 0, 0, z},
		{xOffset + 4, 0, z},
		{xOffset + 4, 4, z},
		{xOffset + 0, 4, z},
	}
	for i, c := range corners {
		copy(p.At(g.Index(uv[i][0], uv[i][1])), c[:])
	}
	cs, _ := stor.GetSpec(varset.Cs)
	for i := range uv {
		copy(cs.At(g.Index(uv[i][0], uv[i][1])), []float32{0, 0, 0})
	}
	return g
}

// TestRasterizeMotionBlurInterpolatesBetweenKeys exercises §8 Scenario
// 3's shape directly: a strip translates 4 raster units along x
// between its t=0 and t=1 motion keys. A sample just inside the t=0
// footprint and outside the t=1 footprint must be covered when its
// Time is 0 and uncovered when its Time is 1.
func TestRasterizeMotionBlurInterpolatesBetweenKeys(t *testing.T) {
	key0 := translatedGrid(0, 1.0)
	key1 := translatedGrid(4, 1.0)

	covered := func(time float32) bool {
		samples := sample.New(0, 0, 8, 4, 1, 1, 5, 0, 1)
		s := samples.At(0, 2, 0, 0) // pixel-local sample in [0,1) x [2,3)
		s.Time = time

		r := &Rasterizer{
			Samples:     samples,
			OutSpecs:    []varset.Spec{varset.Cs},
			SmoothShade: true,
			ShutterMin:  0,
			ShutterMax:  1,
		}
		sink := newRecordSink()
		r.Sink = sink
		r.Rasterize(key0, []*grid.Grid{key1})

		idx := 2*samples.NX() + 0
		_, ok := sink.frags[idx]
		return ok
	}

	if !covered(0) {
		t.Fatal("expected the sample to be covered at the strip's starting position (time=0)")
	}
	if covered(1) {
		t.Fatal("expected the sample to be uncovered once the strip has fully translated away (time=1)")
	}
}

// TestRasterizeMotionBlurCollapsesToFirstKeyWhenShutterIsClosed checks
// the invariant that a shutter_min == shutter_max motion-blurred
// surface behaves like its first key regardless of what Time value a
// sample happens to carry.
func TestRasterizeMotionBlurCollapsesToFirstKeyWhenShutterIsClosed(t *testing.T) {
	key0 := translatedGrid(0, 1.0)
	key1 := translatedGrid(4, 1.0)

	samples := sample.New(0, 0, 8, 4, 1, 1, 5, 0.5, 0.5)
	s := samples.At(0, 2, 0, 0)
	s.Time = 0.5 // every sample collapses to this value when the shutter is closed

	r := &Rasterizer{
		Samples:     samples,
		OutSpecs:    []varset.Spec{varset.Cs},
		SmoothShade: true,
		ShutterMin:  0.5,
		ShutterMax:  0.5,
	}
	sink := newRecordSink()
	r.Sink = sink
	r.Rasterize(key0, []*grid.Grid{key1})

	idx := 2*samples.NX() + 0
	if _, ok := sink.frags[idx]; !ok {
		t.Fatal("expected a collapsed shutter to rasterize against the first key only, covering this sample")
	}
}

// TestRasterizeAppliesDepthOfFieldShift exercises the per-vertex
// -lens_uv*CoC(z) shift directly: a sample just past a static quad's
// edge is pulled over that edge by a lens offset pointing toward it,
// and pushed further away by the opposite offset.
func TestRasterizeAppliesDepthOfFieldShift(t *testing.T) {
	g := translatedGrid(0, 1.0) // quad spans [0,4] x [0,4]
	lens := &tessellate.Lens{FocalLength: 1, FocalDistance: 2, Fstop: 0.5, RasterScale: 1}
	coc := lens.CoC(1.0)
	if coc <= 0 {
		t.Fatalf("expected a nonzero circle of confusion for this lens configuration, got %v", coc)
	}

	run := func(lensUV linear.V2) bool {
		samples := sample.New(0, 0, 8, 4, 1, 1, 11, 0, 1)
		s := samples.At(4, 2, 0, 0) // pixel-local sample in [4,5) x [2,3), just past the quad's right edge
		s.Lens = lensUV

		r := &Rasterizer{Samples: samples, OutSpecs: []varset.Spec{varset.Cs}, SmoothShade: true, Lens: lens}
		sink := newRecordSink()
		r.Sink = sink
		r.Rasterize(g, nil)

		idx := 2*samples.NX() + 4
		_, ok := sink.frags[idx]
		return ok
	}

	if !run(linear.V2{-1, 0}) {
		t.Fatal("expected a lens offset toward -x to pull the quad's right edge over the sample")
	}
	if run(linear.V2{1, 0}) {
		t.Fatal("expected a lens offset toward +x to push the quad's right edge further from the sample")
	}
}
