package subdiv

import (
	"github.com/reyesrender/core/internal/bitm"
)

// lath is one face-vertex incidence of a polygon mesh: a directed
// half-edge running from vertexIndex to the vertex held by the lath
// cf() names as its successor around face. Grounded on Aqsis's
// CqLath (render/lath.h), whose pClockwiseFacet/pClockwiseVertex
// pointer pair this type's cf/cv fields replace with arena indices,
// and whose fixed memory pool (CqPoolable<CqLath,512>) this package
// replaces with the pack's own bitmap-backed free list
// (internal/bitm, originally the teacher's scene-graph node
// allocator).
type lath struct {
	vertexIndex int // control-mesh vertex this half-edge originates at
	face        int // face this half-edge bounds
	cf          int // next lath clockwise about the face (same face, next corner)
	ec          int // edge companion: the opposite half-edge in the neighbor face, or -1 on a boundary edge
}

// lathArena holds every half-edge of a control mesh, indexed by slot.
// Slots are allocated densely via a bitm.Bitm free list, mirroring
// how the teacher used the same type to manage its scene-graph node
// table.
type lathArena struct {
	bits  bitm.Bitm[uint32]
	laths []lath
}

const lathGrowUnits = 4 // 4 * 32 bits per uint32 Uint = 128 laths per growth

func newLathArena() *lathArena { return &lathArena{} }

func (a *lathArena) alloc() int {
	idx, ok := a.bits.Search()
	if !ok {
		base := a.bits.Grow(lathGrowUnits)
		a.laths = append(a.laths, make([]lath, a.bits.Len()-base)...)
		idx, ok = a.bits.Search()
		if !ok {
			panic("subdiv: lath arena grow did not yield a free slot")
		}
	}
	a.bits.Set(idx)
	return idx
}

// at returns the lath stored at index i.
func (a *lathArena) at(i int) *lath { return &a.laths[i] }

// buildLaths allocates one lath per face-vertex incidence of a
// polygon mesh described by vertsPerFace/vertexIndices (the same
// flat layout geom.PolyMesh takes), wiring each face's cf cycle and,
// via an edge map keyed by the unordered vertex pair, each edge's ec
// companion (left -1 on boundary edges). It returns the arena
// together with faceStart, the arena index of each face's first
// lath; its remaining corners are found by following cf.
func buildLaths(vertsPerFace, vertexIndices []int) (arena *lathArena, faceStart []int) {
	arena = newLathArena()
	faceStart = make([]int, len(vertsPerFace))

	type edgeEnd struct {
		lath int
		used bool
	}
	edges := make(map[[2]int]*edgeEnd)

	vi := 0
	for f, n := range vertsPerFace {
		corners := make([]int, n)
		for k := 0; k < n; k++ {
			idx := arena.alloc()
			corners[k] = idx
			l := arena.at(idx)
			l.vertexIndex = vertexIndices[vi+k]
			l.face = f
			l.ec = -1
		}
		for k := 0; k < n; k++ {
			arena.at(corners[k]).cf = corners[(k+1)%n]
		}
		faceStart[f] = corners[0]

		for k := 0; k < n; k++ {
			this := corners[k]
			v0 := arena.at(this).vertexIndex
			v1 := arena.at(corners[(k+1)%n]).vertexIndex
			key := edgeKey(v0, v1)
			e, ok := edges[key]
			if !ok {
				edges[key] = &edgeEnd{lath: this}
				continue
			}
			if e.used {
				continue // non-manifold edge (3+ incident faces): keep first pairing, ignore the rest
			}
			arena.at(e.lath).ec = this
			arena.at(this).ec = e.lath
			e.used = true
		}
		vi += n
	}
	return arena, faceStart
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}
