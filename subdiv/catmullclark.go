package subdiv

// refined is the child-face topology output of one
// Catmull-Clark subdivision pass, in the standard vertex-point /
// edge-point / face-point numbering: new vertex indices
// [0,V) are the (moved) original vertices, [V,V+F) are face points
// (one per original face) and [V+F,V+F+E) are edge points (one per
// original edge). Grounded on the classical Catmull-Clark refinement
// rules as implemented by Aqsis's render/subdivision2.cpp, expressed
// here over the arena-based half-edge topology built by buildLaths
// rather than ported line for line.
type refined struct {
	vertsPerFace  []int // all 4: every child face is a quad
	vertexIndices []int // flat, len == 4*len(vertsPerFace)
}

// subdivideTopology runs one Catmull-Clark pass over the control mesh
// described by vertsPerFace/vertexIndices and numVerts original
// vertices, returning the refined topology together with the lath
// arena, each face's first lath (faceStart) and the edge numbering
// (edgeIdx) that refineAttr takes to compute a refined attribute
// array (stride floats per vertex) for any original per-vertex
// attribute (positions or any other Vertex/Varying primvar), using
// the same topological weights.
func subdivideTopology(vertsPerFace, vertexIndices []int, numVerts int) (*refined, *lathArena, []int, map[[2]int]int) {
	arena, faceStart := buildLaths(vertsPerFace, vertexIndices)
	numFaces := len(vertsPerFace)

	edgeIdx := make(map[[2]int]int)
	numEdges := 0
	for f, n := range vertsPerFace {
		idx := faceStart[f]
		for k := 0; k < n; k++ {
			l := arena.at(idx)
			next := arena.at(l.cf)
			key := edgeKey(l.vertexIndex, next.vertexIndex)
			if _, ok := edgeIdx[key]; !ok {
				edgeIdx[key] = numEdges
				numEdges++
			}
			idx = l.cf
		}
	}

	childVerts := make([]int, 0, 4*sumOf(vertsPerFace))
	childFaces := make([]int, 0, sumOf(vertsPerFace))
	for f, n := range vertsPerFace {
		facePt := numVerts + f
		idx := faceStart[f]
		for k := 0; k < n; k++ {
			l := arena.at(idx)
			prev := prevInFace(arena, faceStart[f], n, k)
			next := arena.at(l.cf)
			prevEdge := numVerts + numFaces + edgeIdx[edgeKey(prev.vertexIndex, l.vertexIndex)]
			nextEdge := numVerts + numFaces + edgeIdx[edgeKey(l.vertexIndex, next.vertexIndex)]
			childVerts = append(childVerts, l.vertexIndex, nextEdge, facePt, prevEdge)
			childFaces = append(childFaces, 4)
			idx = l.cf
		}
	}

	return &refined{
		vertsPerFace:  childFaces,
		vertexIndices: childVerts,
	}, arena, faceStart, edgeIdx
}

func prevInFace(arena *lathArena, start, n, k int) *lath {
	j := (k - 1 + n) % n
	idx := start
	for i := 0; i < j; i++ {
		idx = arena.at(idx).cf
	}
	return arena.at(idx)
}

func sumOf(a []int) int {
	s := 0
	for _, n := range a {
		s += n
	}
	return s
}

// refineAttr computes the Catmull-Clark-refined positions/attribute
// values for one per-vertex attribute of stride sz, given the
// original attribute data (numVerts*sz floats), the control-mesh
// topology's lath arena/faceStart/edgeIdx (as produced alongside a
// refined topology by subdivideTopology), and the resulting vertex
// count layout (numVerts original + numFaces face points + numEdges
// edge points).
func refineAttr(data []float32, sz int, vertsPerFace []int, arena *lathArena, faceStart []int, edgeIdx map[[2]int]int, numVerts int) []float32 {
	numFaces := len(vertsPerFace)
	numEdges := len(edgeIdx)
	out := make([]float32, (numVerts+numFaces+numEdges)*sz)

	at := func(v int) []float32 { return data[v*sz : (v+1)*sz] }
	outAt := func(v int) []float32 { return out[v*sz : (v+1)*sz] }

	// Face points: average of the face's corners.
	for f, n := range vertsPerFace {
		fp := outAt(numVerts + f)
		idx := faceStart[f]
		for k := 0; k < n; k++ {
			l := arena.at(idx)
			addScaled(fp, at(l.vertexIndex), 1/float32(n))
			idx = l.cf
		}
	}

	// fSum/fCount and rSum/rCount accumulate, per original vertex, the
	// sum (and count) of its incident face points and incident-edge
	// midpoints, the F and R terms the interior vertex-point rule
	// averages. Each is built by a dedicated pass over faces (resp.
	// edges) so a vertex of valence n receives exactly n
	// contributions to each, regardless of how many edges or corners
	// a face happens to have.
	fSum := make([]float32, numVerts*sz)
	fCount := make([]int, numVerts)
	for f, n := range vertsPerFace {
		fp := outAt(numVerts + f)
		idx := faceStart[f]
		for k := 0; k < n; k++ {
			v := arena.at(idx).vertexIndex
			addScaled(fSum[v*sz:(v+1)*sz], fp, 1)
			fCount[v]++
			idx = arena.at(idx).cf
		}
	}

	rSum := make([]float32, numVerts*sz)
	rCount := make([]int, numVerts)
	boundaryMid := make([][2][]float32, numVerts) // up to 2 boundary-edge midpoints per vertex
	boundaryN := make([]int, numVerts)

	// Edge points, computed once per edge by walking every lath and
	// only acting on the lower-indexed side of each ec pairing
	// (boundary laths, whose ec is -1, always act). ec is the
	// companion half-edge in the neighboring face (or -1 on a
	// boundary edge), so arena.at(l.ec).face names that face
	// directly without a separate per-edge face list.
	for f, n := range vertsPerFace {
		idx := faceStart[f]
		for k := 0; k < n; k++ {
			l := arena.at(idx)
			if l.ec != -1 && idx >= l.ec {
				idx = l.cf
				continue
			}
			next := arena.at(l.cf)
			v0, v1 := l.vertexIndex, next.vertexIndex
			i := edgeIdx[edgeKey(v0, v1)]
			ep := outAt(numVerts + numFaces + i)
			mid := make([]float32, sz)
			addScaled(mid, at(v0), 0.5)
			addScaled(mid, at(v1), 0.5)

			if l.ec == -1 {
				// Boundary edge: edge point is the plain midpoint.
				copy(ep, mid)
				for _, v := range [2]int{v0, v1} {
					if boundaryN[v] < 2 {
						boundaryMid[v][boundaryN[v]] = append([]float32(nil), mid...)
						boundaryN[v]++
					}
				}
			} else {
				// Interior edge: average of the two endpoints and the
				// two adjacent face points.
				addScaled(ep, mid, 0.5)
				addScaled(ep, outAt(numVerts+f), 0.25)
				addScaled(ep, outAt(numVerts+arena.at(l.ec).face), 0.25)
			}
			for _, v := range [2]int{v0, v1} {
				addScaled(rSum[v*sz:(v+1)*sz], mid, 1)
				rCount[v]++
			}
			idx = l.cf
		}
	}

	// Vertex points.
	for v := 0; v < numVerts; v++ {
		vp := outAt(v)
		orig := at(v)
		if boundaryN[v] > 0 {
			// Boundary rule: for a vertex with exactly two incident
			// boundary-edge midpoints, new position is their average
			// weighted 1:6:1 against the original. A vertex with only
			// one (an open fan edge) or more than two (non-manifold)
			// boundary edges falls back to the interior rule below,
			// since a crease rule needs information (sharpness tags)
			// this mesh format doesn't carry.
			if boundaryN[v] == 2 {
				for k := 0; k < sz; k++ {
					vp[k] = (boundaryMid[v][0][k] + 6*orig[k] + boundaryMid[v][1][k]) / 8
				}
				continue
			}
		}
		n := fCount[v]
		if n == 0 {
			copy(vp, orig)
			continue
		}
		for k := 0; k < sz; k++ {
			fAvg := fSum[v*sz+k] / float32(n)
			rAvg := rSum[v*sz+k] / float32(rCount[v])
			vp[k] = (fAvg + 2*rAvg + float32(n-3)*orig[k]) / float32(n)
		}
	}

	return out
}

func addScaled(dst, src []float32, w float32) {
	for i, s := range src {
		dst[i] += s * w
	}
}
