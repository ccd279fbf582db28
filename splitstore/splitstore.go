// Package splitstore holds geometry and grids awaiting rasterization,
// indexed by the buckets of the raster their bound overlaps, and
// hands each bucket's contribution back out in camera-depth order
// (nearest first) so that opaque occlusion culling (see the
// occlusion package) gets the best chance of discarding hidden work
// early. It is grounded on Aqsis's SplitStore/GeometryQueue
// (original_source/prototypes/newcore/splitstore.h) and GeomHolder/
// GridHolder (.../tessellation.h).
package splitstore

import (
	"container/heap"
	"sync"

	"github.com/reyesrender/core/attrs"
	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
)

// GeomHolder wraps one piece of geometry together with the
// bookkeeping the tessellator and scheduler need: its camera-space
// bound, split count (for the force-split-on-excess-depth rule),
// attribute state, and tessellated children once split. Keys holds
// more than one time-ordered geometry when the holder is a deforming
// (motion-blurred) surface; Geom is used instead when it is not.
type GeomHolder struct {
	Geom          geom.Geometry
	Keys          []geom.Geometry
	SplitCount    int
	EyeSplitCount int
	Bound         linear.Box3
	Attrs         *attrs.Attributes

	mu            sync.Mutex
	hasChildren   bool
	childGeoms    []*GeomHolder
	childGrid     *GridHolder
	tessellateErr error
}

// NewGeomHolder wraps root geometry (no parent holder).
func NewGeomHolder(g geom.Geometry, a *attrs.Attributes) *GeomHolder {
	return &GeomHolder{Geom: g, Bound: g.Bound(), Attrs: a}
}

// NewChildHolder wraps geometry produced by splitting parent.
func NewChildHolder(g geom.Geometry, parent *GeomHolder) *GeomHolder {
	return &GeomHolder{Geom: g, SplitCount: parent.SplitCount + 1, Bound: g.Bound(), Attrs: parent.Attrs}
}

// NewMotionGeomHolder wraps a deforming holder's ordered time keys
// (root, no parent); the primary (first) key's bound is used for
// bucketing and culling.
func NewMotionGeomHolder(keys []geom.Geometry, a *attrs.Attributes) *GeomHolder {
	return &GeomHolder{Keys: keys, Bound: keys[0].Bound(), Attrs: a}
}

// NewMotionChildHolder wraps the time-keyed children produced by
// splitting every key of a deforming parent (one geometry per key,
// all at the same split index).
func NewMotionChildHolder(keys []geom.Geometry, parent *GeomHolder) *GeomHolder {
	return &GeomHolder{Keys: keys, SplitCount: parent.SplitCount + 1, Bound: keys[0].Bound(), Attrs: parent.Attrs}
}

// IsMotion reports whether h carries more than one time key.
func (h *GeomHolder) IsMotion() bool { return len(h.Keys) > 1 }

// HasChildren reports whether this holder has already been
// tessellated into child geometry or a grid.
func (h *GeomHolder) HasChildren() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hasChildren
}

// SetChildGeoms records the result of a split and marks the holder
// tessellated; the original Geom is dropped once recorded, since
// nothing references it after tessellateFinished.
func (h *GeomHolder) SetChildGeoms(children []*GeomHolder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.childGeoms = children
	h.hasChildren = true
	h.Geom = nil
}

// SetChildGrid records the result of a dice.
func (h *GeomHolder) SetChildGrid(g *GridHolder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.childGrid = g
	h.hasChildren = true
	h.Geom = nil
}

// TessellateOnce tessellates h exactly once, even when called
// concurrently by several bucket workers that share h: the first
// caller runs fn under h's lock and records its outcome; every other
// caller observes hasChildren already set and returns the recorded
// result directly, per §4.5's per-holder tessellation lock and §5's
// "CAS-free tessellation finished flag" (hasChildren doubles as that
// flag). A failing fn still marks h finished, so a discarded surface
// is not retried by the next bucket that references it.
func (h *GeomHolder) TessellateOnce(fn func() (children []*GeomHolder, g *GridHolder, err error)) ([]*GeomHolder, *GridHolder, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hasChildren {
		return h.childGeoms, h.childGrid, h.tessellateErr
	}
	children, g, err := fn()
	h.hasChildren = true
	if err != nil {
		h.tessellateErr = err
		return nil, nil, err
	}
	h.childGeoms = children
	h.childGrid = g
	h.Geom = nil
	h.Keys = nil
	return children, g, nil
}

// ChildGeoms returns the geometry produced by a split, or nil.
func (h *GeomHolder) ChildGeoms() []*GeomHolder {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.childGeoms
}

// ChildGrid returns the grid produced by a dice, or nil.
func (h *GeomHolder) ChildGrid() *GridHolder {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.childGrid
}

// GridHolder wraps a finished grid together with its raster-space
// bound and rasterized flag. MotionGrids holds the grids diced from a
// deforming holder's secondary time keys; Grid is key 0 and
// MotionGrids[i] is key i+1, the keys assumed evenly spaced across
// the motion segment's [0,1] parameterization. micropoly.Rasterizer
// interpolates between the two keys straddling each sample's Time to
// resolve P (and every other per-vertex output) at that exact time.
// See DESIGN.md.
type GridHolder struct {
	Grid        *grid.Grid
	MotionGrids []*grid.Grid
	Attrs       *attrs.Attributes
	Bound       linear.Box3
	Rasterized  bool
}

// NewGridHolder wraps g, computing its bound from the grid's P view.
func NewGridHolder(g *grid.Grid, a *attrs.Attributes) *GridHolder {
	gh := &GridHolder{Grid: g, Attrs: a}
	gh.Bound.Reset()
	p := g.P()
	n := g.Nu * g.Nv
	for i := 0; i < n; i++ {
		var v linear.V3
		copy(v[:], p.At(i))
		gh.Bound.ExtendPt(&v)
	}
	return gh
}

// Bucket holds the geometry whose bound overlaps one raster bucket.
type Bucket struct {
	Bound linear.Box2
	geoms []*GeomHolder
}

// Store indexes geometry into an (nx x ny) grid of buckets covering
// bound, the raster-space extent of the whole image.
type Store struct {
	buckets    []Bucket
	nx, ny     int
	bound      linear.Box2
	bucketSize linear.V2
}

// New builds an empty Store with nx*ny buckets over bound.
func New(nx, ny int, bound linear.Box2) *Store {
	s := &Store{buckets: make([]Bucket, nx*ny), nx: nx, ny: ny, bound: bound}
	w := bound.Max[0] - bound.Min[0]
	h := bound.Max[1] - bound.Min[1]
	s.bucketSize = linear.V2{w / float32(nx), h / float32(ny)}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			b := s.at(i, j)
			b.Bound.Min = linear.V2{
				bound.Min[0] + s.bucketSize[0]*float32(i),
				bound.Min[1] + s.bucketSize[1]*float32(j),
			}
			b.Bound.Max = linear.V2{
				bound.Min[0] + s.bucketSize[0]*float32(i+1),
				bound.Min[1] + s.bucketSize[1]*float32(j+1),
			}
		}
	}
	return s
}

func (s *Store) at(x, y int) *Bucket { return &s.buckets[y*s.nx+x] }

// NX and NY return the bucket grid dimensions.
func (s *Store) NX() int { return s.nx }
func (s *Store) NY() int { return s.ny }

// BucketAt returns the camera-space bound of bucket (i,j), for a
// scheduler to use as a tessellate.Context.BucketBound (with a z range
// filled in from the clip planes).
func (s *Store) BucketAt(i, j int) linear.Box2 { return s.at(i, j).Bound }

// BucketRange returns the half-open [x0,x1) x [y0,y1) range of bucket
// coordinates that a raster-space bound overlaps.
func (s *Store) BucketRange(bnd linear.Box2) (x0, x1, y0, y1 int) {
	w := s.bound.Max[0] - s.bound.Min[0]
	h := s.bound.Max[1] - s.bound.Min[1]
	x0 = clamp(ifloor(float32(s.nx)*(bnd.Min[0]-s.bound.Min[0])/w), 0, s.nx-1)
	x1 = clamp(ifloor(float32(s.nx)*(bnd.Max[0]-s.bound.Min[0])/w)+1, 0, s.nx)
	y0 = clamp(ifloor(float32(s.ny)*(bnd.Min[1]-s.bound.Min[1])/h), 0, s.ny-1)
	y1 = clamp(ifloor(float32(s.ny)*(bnd.Max[1]-s.bound.Min[1])/h)+1, 0, s.ny)
	return
}

func ifloor(f float32) int {
	i := int(f)
	if f < float32(i) {
		i--
	}
	return i
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// raster2 projects a camera/raster-space Box3 bound to the Box2 the
// bucket grid is indexed by (x, y only; z is used for depth order).
func raster2(b linear.Box3) linear.Box2 {
	return linear.Box2{Min: linear.V2{b.Min[0], b.Min[1]}, Max: linear.V2{b.Max[0], b.Max[1]}}
}

// Insert places root geometry into every bucket its bound overlaps.
// Not safe for concurrent use; called only to seed the store before
// bucket processing begins.
func (s *Store) Insert(h *GeomHolder) {
	b2 := raster2(h.Bound)
	if !s.bound.Intersects(&b2) {
		return
	}
	x0, x1, y0, y1 := s.BucketRange(b2)
	for j := y0; j < y1; j++ {
		for i := x0; i < x1; i++ {
			bk := s.at(i, j)
			bk.geoms = append(bk.geoms, h)
		}
	}
}

// geomHeap is a min-heap of *GeomHolder ordered by increasing camera
// depth (nearest geometry pops first), matching Aqsis's
// geomHeapOrder.
type geomHeap []*GeomHolder

func (h geomHeap) Len() int            { return len(h) }
func (h geomHeap) Less(i, j int) bool  { return h[i].Bound.Min[2] < h[j].Bound.Min[2] }
func (h geomHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *geomHeap) Push(x interface{}) { *h = append(*h, x.(*GeomHolder)) }
func (h *geomHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Queue is a per-bucket priority queue of geometry, nearest-first.
// It also tracks which holders were touched while processing this
// bucket so their bucket-reference count can be released afterwards.
type Queue struct {
	bucket    *Bucket
	heap      geomHeap
	toRelease []*GeomHolder
}

// EnqueueBucket loads queue with the contents of bucket (i,j).
func (s *Store) EnqueueBucket(q *Queue, i, j int) {
	bk := s.at(i, j)
	q.bucket = bk
	q.toRelease = q.toRelease[:0]
	q.heap = q.heap[:0]
	for _, g := range bk.geoms {
		q.heap = append(q.heap, g)
	}
	heap.Init(&q.heap)
}

// Pop removes and returns the nearest remaining holder, or nil if the
// queue is empty.
func (q *Queue) Pop() *GeomHolder {
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*GeomHolder)
}

// Push re-inserts geometry produced by splitting h (already popped),
// provided its bound still overlaps the current bucket.
func (q *Queue) Push(h *GeomHolder) {
	bb := q.bucket.Bound
	gb := raster2(h.Bound)
	if gb.Min[0] < bb.Max[0] && gb.Min[1] < bb.Max[1] &&
		gb.Max[0] >= bb.Min[0] && gb.Max[1] >= bb.Min[1] {
		heap.Push(&q.heap, h)
		q.toRelease = append(q.toRelease, h)
	}
}

// ReleaseBucket drops this bucket's references to every holder
// touched while processing it, freeing the bucket's geometry slice
// and the queue's own scratch storage for reuse on the next bucket.
// No explicit refcounting is needed to reclaim a holder's memory (the
// garbage collector does that); this only bounds per-bucket memory
// use across a long raster scan.
func (q *Queue) ReleaseBucket() {
	q.toRelease = q.toRelease[:0]
	q.bucket.geoms = nil
}
