package reyes

import (
	"context"

	"github.com/reyesrender/core/attrs"
	"github.com/reyesrender/core/display"
	"github.com/reyesrender/core/filter"
	"github.com/reyesrender/core/filterproc"
	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/rlog"
	"github.com/reyesrender/core/schedule"
	"github.com/reyesrender/core/splitstore"
	"github.com/reyesrender/core/tessellate"
	"github.com/reyesrender/core/varset"
)

// Surface binds one piece of geometry (or, for a deforming surface,
// its ordered motion keys) to the attribute state in effect when it
// was emitted. Exactly one of Geom or Keys is set.
type Surface struct {
	Geom  geom.Geometry
	Keys  []geom.Geometry
	Attrs *attrs.Attributes
}

// Scene is everything a Renderer needs beyond Options to produce an
// image: the camera projection, the camera-space window the split
// store buckets geometry over, and the surfaces themselves. Building
// a Scene from a scene-description language is explicitly out of
// scope (spec.md §1 Non-goals); cmd/reyes's JSON loader is a
// placeholder front end that constructs one directly.
type Scene struct {
	// CamToScreen maps camera space to normalized screen space
	// ([-1,1] x [-1,1] before aspect/resolution scaling); combined
	// with Options.Resolution via linear.CamToRaster.
	CamToScreen linear.M4

	// ScreenWindow is the camera-space bound the split store
	// partitions into buckets; surfaces entirely outside it
	// contribute nothing.
	ScreenWindow linear.Box2

	Surfaces []Surface
}

// Renderer drives a Scene through the full split/dice/rasterize/
// filter pipeline described by spec.md §4, producing one tile stream
// per OutSpecs entry to the matching Sinks entry. Grounded on the
// teacher's Onscreen/Offscreen façade over a shared Renderer core
// (_examples/gviegas-neo3/engine/renderer.go): one façade type
// configured once, driven per frame there, per render here.
type Renderer struct {
	Opt         Options
	OutSpecs    []varset.Spec
	Sinks       []display.Sink
	DefaultFrag []float32
	Log         rlog.Sink
}

// New builds a Renderer. opt is stored as given, without sanitizing
// (Load already sanitizes; a caller building Options by hand should
// call opt.Sanitize itself first).
func New(opt Options, outSpecs []varset.Spec, sinks []display.Sink, defaultFrag []float32, log rlog.Sink) *Renderer {
	return &Renderer{Opt: opt, OutSpecs: outSpecs, Sinks: sinks, DefaultFrag: defaultFrag, Log: log}
}

// Render drives scene to completion, streaming filtered tiles to
// r.Sinks. It returns the first Severe error encountered (per §7).
// A discarded surface (a failed tessellation or shader, an exhausted
// eye-split budget) is dropped without stopping the render; it is not
// reported to r.Log.
func (r *Renderer) Render(ctx context.Context, scene Scene) error {
	opt := r.Opt

	camToScreen := scene.CamToScreen
	camToRaster := linear.CamToRaster(&camToScreen, opt.Resolution[0], opt.Resolution[1])

	nx := ceilDiv(opt.Resolution[0], opt.BucketSize[0])
	ny := ceilDiv(opt.Resolution[1], opt.BucketSize[1])

	store := splitstore.New(nx, ny, scene.ScreenWindow)
	for _, s := range scene.Surfaces {
		store.Insert(newHolder(s))
	}

	filt, err := r.buildFilter()
	if err != nil {
		return err
	}

	proc := &filterproc.Processor{
		Filter:         filt,
		SampsPerPixelX: opt.SuperSamp[0],
		SampsPerPixelY: opt.SuperSamp[1],
		TileWidth:      opt.BucketSize[0],
		TileHeight:     opt.BucketSize[1],
		OutSpecs:       r.OutSpecs,
		Sinks:          r.Sinks,
	}

	cfg := schedule.Config{
		Store: store,

		ImageWidth:   opt.Resolution[0],
		ImageHeight:  opt.Resolution[1],
		BucketWidth:  opt.BucketSize[0],
		BucketHeight: opt.BucketSize[1],

		CamToRaster:  camToRaster,
		ClipNear:     opt.ClipNear,
		ClipFar:      opt.ClipFar,
		EyeEpsilon:   opt.ClipNear,
		Lens:         r.lens(camToRaster),
		MaxEyeSplits: opt.EyeSplits,
		GridSize:     opt.GridSize,

		ShutterMin: opt.ShutterMin,
		ShutterMax: opt.ShutterMax,

		SampsPerPixelX: opt.SuperSamp[0],
		SampsPerPixelY: opt.SuperSamp[1],
		OutSpecs:       r.OutSpecs,
		DefaultFrag:    r.DefaultFrag,
		SmoothShade:    true,

		Processor: proc,

		NumWorkers: numWorkers(opt.NumThreads),
	}

	sched := schedule.New(cfg)
	return sched.Run(ctx)
}

// newHolder wraps one Surface as the matching kind of
// splitstore.GeomHolder: a motion holder when it carries more than
// one time key (per spec.md's "a motion-blurred surface with
// shutter_min == shutter_max behaves identically to the non-blurred
// variant using the first key", satisfied here since a single-key
// Keys slice takes the static path below).
func newHolder(s Surface) *splitstore.GeomHolder {
	switch {
	case len(s.Keys) > 1:
		return splitstore.NewMotionGeomHolder(s.Keys, s.Attrs)
	case len(s.Keys) == 1:
		return splitstore.NewGeomHolder(s.Keys[0], s.Attrs)
	default:
		return splitstore.NewGeomHolder(s.Geom, s.Attrs)
	}
}

// buildFilter resolves Options.PixelFilter to a Kernel and its
// Cached tabulation. When DoFilter is false, the configured kernel is
// set aside for a degenerate box filter whose discrete support
// exactly spans one pixel's own supersamples (half-width
// 0.5/sampsPerPixel on each axis): no cross-pixel blending occurs, the
// closest equivalent this pipeline offers to spec.md §6's "raw
// sub-pixel samples" without standing up a second, supersample-
// resolution display path (see DESIGN.md).
func (r *Renderer) buildFilter() (*filter.Cached, error) {
	opt := r.Opt
	if !opt.DoFilter {
		k := filter.Box(0.5/float32(opt.SuperSamp[0]), 0.5/float32(opt.SuperSamp[1]))
		return filter.NewCached(k, opt.SuperSamp[0], opt.SuperSamp[1]), nil
	}
	k, err := opt.PixelFilter.Kernel()
	if err != nil {
		return nil, err
	}
	return filter.NewCached(k, opt.SuperSamp[0], opt.SuperSamp[1]), nil
}

// lens builds the depth-of-field lens state Options describes, or
// nil for a pinhole camera (opt.DepthOfField() false). RasterScale
// approximates the camera-space-to-raster-pixel scale at the image
// plane as half the horizontal resolution, i.e. resolution over the
// extent of a [-1,1] screen window; the scene's own screen window is
// not consulted. The same Lens drives both tessellation coarsening and
// the rasterizer's per-sample CoC shift.
func (r *Renderer) lens(camToRaster linear.M4) *tessellate.Lens {
	opt := r.Opt
	if !opt.DepthOfField() {
		return nil
	}
	return &tessellate.Lens{
		FocalLength:   opt.FocalLength,
		FocalDistance: opt.FocalDistance,
		Fstop:         opt.Fstop,
		RasterScale:   float32(opt.Resolution[0]) / 2,
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}

// numWorkers resolves Options.NumThreads (-1 = auto) to
// schedule.Config.NumWorkers: 0 there means "unbounded", which is
// also this renderer's definition of "auto" (let errgroup launch one
// goroutine per bucket and let the Go scheduler multiplex them onto
// GOMAXPROCS threads, rather than hand-picking a worker count).
func numWorkers(n int) int {
	if n <= 0 {
		return 0
	}
	return n
}
