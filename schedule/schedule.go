// Package schedule drives a split store's buckets through tessellate/
// rasterize/filter, one bucket at a time per worker, to completion.
// Grounded on Aqsis's per-bucket render loop (renderer.cpp) and its
// worker-pool dispatch (tileOrder/threadpool usage in that file);
// the §5 concurrency model (exactly one worker processing a bucket at
// a time, per-holder tessellation locking, a private occlusion tree
// and sample grid per bucket) is implemented directly rather than
// adapted from a single original_source file.
package schedule

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/reyesrender/core/filterproc"
	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/micropoly"
	"github.com/reyesrender/core/occlusion"
	"github.com/reyesrender/core/sample"
	"github.com/reyesrender/core/splitstore"
	"github.com/reyesrender/core/tessellate"
	"github.com/reyesrender/core/varset"
)

// Config holds everything a Scheduler needs to turn a seeded
// splitstore.Store into filtered output: the camera-to-raster
// transform, clip planes, sampling/filtering rates, and the output
// pipeline (Processor) tiles are streamed to once filtered.
type Config struct {
	Store *splitstore.Store

	ImageWidth, ImageHeight   int
	BucketWidth, BucketHeight int

	CamToRaster  linear.M4
	ClipNear     float32
	ClipFar      float32
	EyeEpsilon   float32
	Lens         *tessellate.Lens
	MaxEyeSplits int
	GridSize     int

	// ShutterMin/ShutterMax bound the sample times sample.New
	// stratifies over, per §4.2; ShutterMax <= ShutterMin collapses
	// every sample to ShutterMin, matching the non-blurred case.
	ShutterMin, ShutterMax float32

	SampsPerPixelX, SampsPerPixelY int
	OutSpecs                       []varset.Spec
	DefaultFrag                    []float32
	SmoothShade                    bool

	Processor *filterproc.Processor

	// NumWorkers bounds how many buckets are processed concurrently.
	// <= 0 means unbounded (one goroutine per bucket, all launched
	// at once).
	NumWorkers int
}

// Scheduler drives every bucket of a Config's Store through
// tessellation, micropolygon rasterization and filtering.
type Scheduler struct {
	cfg Config
}

// New builds a Scheduler over cfg. cfg.Store must already be seeded
// with root GeomHolders (splitstore.Store.Insert).
func New(cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg}
}

// Run dispatches every bucket of the store in raster-scan order
// (row-major, each row left to right), up to NumWorkers at a time, so
// buckets may finish in any order, and streams the filtered result to
// cfg.Processor. It returns the first error encountered by any bucket
// (per §7, a Severe failure); a single discarded surface or shader
// failure does not reach here (TessellateOnce records it on the
// holder and doTessellate drops the surface without stopping the
// bucket; nothing is logged) — see DESIGN.md for the distinction.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.cfg.Processor.Open(s.cfg.ImageWidth, s.cfg.ImageHeight); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.NumWorkers > 0 {
		g.SetLimit(s.cfg.NumWorkers)
	}

	nx, ny := s.cfg.Store.NX(), s.cfg.Store.NY()
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			i, j := i, j
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return s.runBucket(i, j)
			})
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return s.cfg.Processor.Close()
}

// bucketWorker is the per-goroutine scratch state runBucket needs:
// its own tessellate.Context (not safe for concurrent use), its own
// split-store Queue, and the per-bucket sample grid, occlusion tree
// and rasterizer. A new one is built for every bucket rather than
// pooled across a worker's lifetime, trading a little allocation for
// a simpler Run loop; see DESIGN.md.
type bucketWorker struct {
	tctx  tessellate.Context
	queue splitstore.Queue
	rast  micropoly.Rasterizer
}

// runBucket tessellates every holder touching bucket (i,j) down to
// grids, rasterizes those grids against the bucket's stochastic
// samples, and hands the finished sample tile to the Processor.
func (s *Scheduler) runBucket(i, j int) error {
	cfg := &s.cfg
	camBound := cfg.Store.BucketAt(i, j)

	rx0, ry0, rx1, ry1 := bucketRasterRect(i, j, cfg.BucketWidth, cfg.BucketHeight, cfg.ImageWidth, cfg.ImageHeight)
	if rx1 <= rx0 || ry1 <= ry0 {
		return nil // bucket falls entirely outside the image
	}
	width, height := rx1-rx0, ry1-ry0

	seed := uint32(j)*uint32(cfg.Store.NX()+1) + uint32(i) + 1
	samples := sample.New(rx0, ry0, width, height, cfg.SampsPerPixelX, cfg.SampsPerPixelY, seed, cfg.ShutterMin, cfg.ShutterMax)
	occ := occlusion.New(samples.NX(), samples.NY())
	tile := filterproc.NewSampleTile(samples, cfg.DefaultFrag)

	var w bucketWorker
	w.tctx = tessellate.Context{
		CamToRaster: cfg.CamToRaster,
		GridSize:    cfg.GridSize,
		BucketBound: linear.Box3{
			Min: linear.V3{camBound.Min[0], camBound.Min[1], cfg.ClipNear},
			Max: linear.V3{camBound.Max[0], camBound.Max[1], cfg.ClipFar},
		},
		EyeEpsilon: cfg.EyeEpsilon,
		Lens:       cfg.Lens,
		OutVars:    varset.New(cfg.OutSpecs),
	}
	w.rast = micropoly.Rasterizer{
		Samples:     samples,
		Occlusion:   occ,
		OutSpecs:    cfg.OutSpecs,
		SmoothShade: cfg.SmoothShade,
		Sink:        occludingSink{tile: tile, occ: occ, samples: samples},
		Lens:        cfg.Lens,
		ShutterMin:  cfg.ShutterMin,
		ShutterMax:  cfg.ShutterMax,
	}

	cfg.Store.EnqueueBucket(&w.queue, i, j)
	for {
		h := w.queue.Pop()
		if h == nil {
			break
		}
		if cfg.MaxEyeSplits > 0 && h.EyeSplitCount > cfg.MaxEyeSplits {
			continue // discarded: exceeded the configured eye-split budget, §4.1
		}
		if err := s.doTessellate(&w, h); err != nil {
			return err
		}
	}
	w.queue.ReleaseBucket()

	tile.TileX, tile.TileY = i, j
	return cfg.Processor.Insert(tile)
}

// bucketRasterRect computes bucket (i,j)'s literal raster pixel
// rectangle from the image size and bucket size, clipped to the
// image edges. This is independent of the Store's camera-space bucket
// bound (used only to cull split children): the Store buckets
// geometry in the camera-space "screen window", while sample
// generation and the occlusion tree need the actual output pixels.
func bucketRasterRect(i, j, bucketWidth, bucketHeight, imgW, imgH int) (x0, y0, x1, y1 int) {
	x0 = i * bucketWidth
	y0 = j * bucketHeight
	x1 = x0 + bucketWidth
	y1 = y0 + bucketHeight
	if x1 > imgW {
		x1 = imgW
	}
	if y1 > imgH {
		y1 = imgH
	}
	if x0 > imgW {
		x0 = imgW
	}
	if y0 > imgH {
		y0 = imgH
	}
	return
}

// doTessellate pops one holder, tessellates it exactly once
// (TessellateOnce guards against two buckets racing on a shared
// holder: whichever bucket gets there first pays the tessellation
// cost, the rest reuse its result), and either pushes surviving split
// children back onto this bucket's queue or rasterizes a finished
// grid.
//
// A grid's raster-space bound can still span several buckets even
// though only one bucket's worker tessellated it, so rasterization
// itself is NOT gated by a per-holder flag: every bucket whose queue
// holds the grid's holder rasterizes it once, against that bucket's
// own samples and occlusion tree (read-only access to the shared
// grid, so concurrent rasterization by different bucket workers is
// safe). GridHolder.Rasterized is left for a caller that wants
// single-pass semantics; the scheduler doesn't consult it.
func (s *Scheduler) doTessellate(w *bucketWorker, h *splitstore.GeomHolder) error {
	children, gh, err := h.TessellateOnce(func() ([]*splitstore.GeomHolder, *splitstore.GridHolder, error) {
		return s.tessellateHolder(w, h)
	})
	if err != nil {
		return nil // a discarded surface (§7 Warning): render continues without it
	}
	for _, c := range children {
		w.queue.Push(c)
	}
	if gh != nil {
		w.rast.Rasterize(gh.Grid, gh.MotionGrids)
	}
	return nil
}

// tessellateHolder runs the actual split/dice decision for h (motion
// or static), wrapping the result as new GeomHolders/a GridHolder.
// Called only once per holder, from inside TessellateOnce's lock.
func (s *Scheduler) tessellateHolder(w *bucketWorker, h *splitstore.GeomHolder) ([]*splitstore.GeomHolder, *splitstore.GridHolder, error) {
	if h.IsMotion() {
		mr, err := w.tctx.RunMotion(h.Keys, h.Bound, h.Attrs, h.EyeSplitCount)
		if err != nil {
			return nil, nil, err
		}
		if len(mr.KeyChildren) > 0 {
			n := len(mr.KeyChildren[0])
			children := make([]*splitstore.GeomHolder, n)
			for idx := 0; idx < n; idx++ {
				keys := collectKey(mr.KeyChildren, idx)
				children[idx] = splitstore.NewMotionChildHolder(keys, h)
				children[idx].EyeSplitCount = mr.EyeSplitCount
			}
			return children, nil, nil
		}
		if len(mr.KeyGrids) > 0 {
			gh := splitstore.NewGridHolder(mr.KeyGrids[0], h.Attrs)
			gh.MotionGrids = mr.KeyGrids[1:]
			return nil, gh, nil
		}
		return nil, nil, errors.New("schedule: motion holder produced neither children nor grids")
	}

	res, err := w.tctx.Run(h.Geom, h.Bound, h.Attrs, h.EyeSplitCount)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Children) > 0 {
		children := make([]*splitstore.GeomHolder, len(res.Children))
		for idx, c := range res.Children {
			children[idx] = splitstore.NewChildHolder(c, h)
			children[idx].EyeSplitCount = res.EyeSplitCount
		}
		return children, nil, nil
	}
	if len(res.Grids) == 1 {
		return nil, splitstore.NewGridHolder(res.Grids[0], h.Attrs), nil
	}
	return nil, nil, errors.New("schedule: holder produced neither children nor a single grid")
}

// collectKey gathers the idx'th child across every motion key's
// child slice, i.e. transposes tessellate.MotionResult.KeyChildren
// from key-major to child-major order.
func collectKey(keyChildren [][]geom.Geometry, idx int) []geom.Geometry {
	keys := make([]geom.Geometry, len(keyChildren))
	for k, kc := range keyChildren {
		keys[k] = kc[idx]
	}
	return keys
}

// occludingSink wraps a filterproc.SampleTile, also updating the
// bucket's occlusion tree with every newly-written fragment's depth:
// micropoly.Rasterizer only consumes IsOccluded/SetDepth through the
// Occlusion field for its own culling test, so the tree's leaf depths
// must be kept current by whoever receives the Fragment writes it
// produces, per Aqsis's per-bucket occlusion update in renderer.cpp's
// rasterization loop. Every reyes surface is treated opaque: the
// spec's Non-goals exclude transparency, so the nearest z a sample has
// seen so far is always safe to record as an occluder.
type occludingSink struct {
	tile    *filterproc.SampleTile
	occ     *occlusion.Tree
	samples *sample.Grid
}

func (s occludingSink) Write(sampleIndex int, frag micropoly.Fragment) {
	s.tile.Write(sampleIndex, frag)
	nx := s.samples.NX()
	x, y := sampleIndex%nx, sampleIndex/nx
	s.occ.SetDepth(s.occ.NodeIndex(x, y), frag.Z)
}
