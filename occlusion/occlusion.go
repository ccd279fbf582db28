// Package occlusion implements a hierarchical z-buffer occlusion
// query structure over the per-sample depths of one bucket: a
// balanced quadtree whose interior nodes cache the max depth of
// their subtree, letting most occlusion queries for opaque geometry
// bottom out in a handful of comparisons against the root. Grounded
// on Aqsis's OcclusionTree
// (original_source/prototypes/newcore/occlusion.h) and its packed
// quadtree node indexing
// (original_source/prototypes/newcore/treearraystorage.h).
package occlusion

import "math"

// Tree is a quadtree of maximum sample depths over an (nx x ny)
// (possibly non-power-of-two) grid of leaf cells.
type Tree struct {
	nx, ny    int
	depth     int
	leavesLen int // 1 << depth, the full (power-of-two) leaf extent per axis
	z         []float32
}

// New builds a Tree over an nx x ny grid of leaf cells (e.g. one per
// sample, or one per small sample cluster).
func New(nx, ny int) *Tree {
	depth := iceil(log2(max(nx, ny)))
	leavesLen := 1 << depth
	t := &Tree{nx: nx, ny: ny, depth: depth, leavesLen: leavesLen, z: make([]float32, numNodes(depth))}
	t.Reset()
	return t
}

func log2(n int) float64 {
	if n <= 1 {
		return 0
	}
	return math.Log2(float64(n))
}

func iceil(f float64) int {
	return int(math.Ceil(f))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// numNodes returns the total node count of a full quadtree of the
// given depth: the geometric series sum(4^i, i=0..depth).
func numNodes(depth int) int { return ((1 << uint(2*(depth+1))) - 1) / 3 }

// nodeIndex returns the packed array index of the leaf at (x, y) in a
// full quadtree of the given depth.
func nodeIndex(x, y, depth int) int {
	index := 0
	for i := 0; i < 2*depth; i += 2 {
		index |= ((x & 1) << uint(i)) | ((y & 1) << uint(i+1))
		x >>= 1
		y >>= 1
	}
	return index + numNodes(depth-1)
}

func parentNode(index int) int { return (index - 1) >> 2 }

// Reset clears every leaf to +inf (unoccluded) for cells within the
// tree's logical (nx, ny) extent, and to 0 for the padding cells
// introduced by rounding up to a power of two, then rebuilds interior
// node max-depths from the leaves.
func (t *Tree) Reset() {
	inf := float32(math.Inf(1))
	for j := 0; j < t.leavesLen; j++ {
		for i := 0; i < t.leavesLen; i++ {
			idx := nodeIndex(i, j, t.depth)
			if i < t.nx && j < t.ny {
				t.z[idx] = inf
			} else {
				t.z[idx] = 0
			}
		}
	}
	t.updateInteriorDepths()
}

func (t *Tree) updateInteriorDepths() {
	for i := numNodes(t.depth-1) - 1; i >= 0; i-- {
		t.z[i] = max4(t.z[4*i+1], t.z[4*i+2], t.z[4*i+3], t.z[4*i+4])
	}
}

func max4(a, b, c, d float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	if d > m {
		m = d
	}
	return m
}

// NodeIndex returns the leaf node index for cell (x, y), for callers
// that want to cache it and call SetDepth repeatedly.
func (t *Tree) NodeIndex(x, y int) int { return nodeIndex(x, y, t.depth) }

// Depth returns the current max depth cached at nodeIdx.
func (t *Tree) Depth(nodeIdx int) float32 { return t.z[nodeIdx] }

// SetDepth records a new (smaller, nearer) z at the leaf nodeIdx and
// propagates the change up to the root, stopping early once a parent
// node's max depth is unchanged.
func (t *Tree) SetDepth(nodeIdx int, z float32) {
	t.z[nodeIdx] = z
	i := nodeIdx
	for i > 0 {
		i = parentNode(i)
		znew := max4(t.z[4*i+1], t.z[4*i+2], t.z[4*i+3], t.z[4*i+4])
		if znew == t.z[i] {
			return
		}
		t.z[i] = znew
	}
}

// Bound is an integer raster-cell range [Min, Max) in the tree's
// leaf-cell coordinate space.
type Bound struct {
	MinX, MinY, MaxX, MaxY int
}

// IsOccluded reports whether every sample within bound is known to
// lie behind (greater z than) the occluding depths already recorded
// for that region, meaning geometry at zMin cannot be visible there.
func (t *Tree) IsOccluded(bound Bound, zMin float32) bool {
	b := Bound{
		MinX: clamp(bound.MinX, 0, t.nx), MaxX: clamp(bound.MaxX, 0, t.nx),
		MinY: clamp(bound.MinY, 0, t.ny), MaxY: clamp(bound.MaxY, 0, t.ny),
	}
	root := Bound{0, 0, t.leavesLen, t.leavesLen}
	return t.isOccluded(b, zMin, root, 0, 0)
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

func (t *Tree) isOccluded(geomBound Bound, geomZ float32, nodeBound Bound, idx, depth int) bool {
	if geomBound.MinX >= nodeBound.MaxX || geomBound.MaxX <= nodeBound.MinX ||
		geomBound.MinY >= nodeBound.MaxY || geomBound.MaxY <= nodeBound.MinY {
		return true
	}
	if depth == t.depth {
		return geomZ > t.z[idx]
	}
	if geomZ > t.z[idx] {
		return true
	}
	midX := (nodeBound.MaxX + nodeBound.MinX) >> 1
	midY := (nodeBound.MaxY + nodeBound.MinY) >> 1
	b1 := Bound{nodeBound.MinX, nodeBound.MinY, midX, midY}
	b2 := Bound{midX, nodeBound.MinY, nodeBound.MaxX, midY}
	b3 := Bound{nodeBound.MinX, midY, midX, nodeBound.MaxY}
	b4 := Bound{midX, midY, nodeBound.MaxX, nodeBound.MaxY}
	return t.isOccluded(geomBound, geomZ, b1, 4*idx+1, depth+1) &&
		t.isOccluded(geomBound, geomZ, b2, 4*idx+2, depth+1) &&
		t.isOccluded(geomBound, geomZ, b3, 4*idx+3, depth+1) &&
		t.isOccluded(geomBound, geomZ, b4, 4*idx+4, depth+1)
}
