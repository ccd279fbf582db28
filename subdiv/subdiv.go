// Package subdiv implements one Catmull-Clark-style refinement pass
// over a coarse polygon control mesh, handing the result to
// geom.PolyMesh (which already knows how to split a quad-only mesh
// down into bilinear patches). Grounded on Aqsis's render/lath.h and
// render/subdivision2.cpp: the half-edge "lath" adjacency structure
// those files use to walk mesh topology, reimplemented over an
// arena of slot indices (internal/bitm) rather than a pooled pointer
// graph, and the classical Catmull-Clark vertex/edge/face-point
// refinement rules those files implement.
package subdiv

import (
	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/primvar"
	"github.com/reyesrender/core/rlog"
	"github.com/reyesrender/core/varset"
)

// Mesh is a coarse control mesh to be refined one Catmull-Clark pass
// before dicing. Faces may have any valence (not just quads); each
// face of valence n splits into n child quads, the standard
// Catmull-Clark topology rule. Per §4.7's scope (explicit split into
// patches, no limit-surface evaluation), this package performs
// exactly one refinement pass and hands the result to a
// *geom.PolyMesh; it does not recurse to convergence.
type Mesh struct {
	VertsPerFace  []int
	VertexIndices []int
	Vars          *primvar.Store
	Log           rlog.Sink
}

// NewMesh returns a Mesh. If log is nil, diagnostics for primvar
// classes this package cannot refine are discarded.
func NewMesh(vertsPerFace, vertexIndices []int, vars *primvar.Store, log rlog.Sink) *Mesh {
	if log == nil {
		log = rlog.Discard{}
	}
	return &Mesh{VertsPerFace: vertsPerFace, VertexIndices: vertexIndices, Vars: vars, Log: log}
}

// Bound implements geom.Geometry: the bound of the coarse control
// cage. Catmull-Clark limit surfaces lie within their control cage's
// convex hull, so this remains a valid (if loose) bound for the
// refined mesh the Tessellate step below produces.
func (m *Mesh) Bound() linear.Box3 {
	p := m.Vars.FindStd(varset.P)
	var box linear.Box3
	box.Reset()
	for i := 0; i < p.NumElems(); i++ {
		var v linear.V3
		copy(v[:], p.Elem(i))
		box.ExtendPt(&v)
	}
	return box
}

// MotionCompatible implements geom.Geometry: two subdivision meshes
// are compatible iff they share the same face/vertex topology.
func (m *Mesh) MotionCompatible(other geom.Geometry) bool {
	o, ok := other.(*Mesh)
	if !ok || len(o.VertsPerFace) != len(m.VertsPerFace) {
		return false
	}
	for i, n := range m.VertsPerFace {
		if o.VertsPerFace[i] != n {
			return false
		}
	}
	return true
}

// Transform implements geom.Geometry.
func (m *Mesh) Transform(mat *linear.M4) {
	p := m.Vars.FindStd(varset.P)
	for i := 0; i < p.NumElems(); i++ {
		e := p.Elem(i)
		var v, out linear.V3
		copy(v[:], e)
		linear.TransformPt(&out, mat, &v)
		copy(e, out[:])
	}
}

// Tessellate implements geom.Geometry. It always splits, regardless
// of params.ForceSplit (like geom.PolyMesh: refinement always
// produces new geometry the context must re-tessellate), handing the
// context a single *geom.PolyMesh child holding the once-subdivided
// mesh.
func (m *Mesh) Tessellate(params geom.SplitParams, ctx geom.Context) error {
	p := m.Vars.FindStd(varset.P)
	numVerts := p.NumElems()

	ref, arena, faceStart, edgeIdx := subdivideTopology(m.VertsPerFace, m.VertexIndices, numVerts)

	out := primvar.NewStore(primvar.Topology{}, nil)
	for i := 0; i < m.Vars.Len(); i++ {
		src := m.Vars.At(i)
		switch src.Class {
		case primvar.Constant:
			out.Append(primvar.Var{Spec: src.Spec, Class: primvar.Constant, Data: append([]float32(nil), src.Data...)})
		case primvar.Uniform:
			out.Append(primvar.Var{Spec: src.Spec, Class: primvar.Uniform, Data: replicateUniform(src, m.VertsPerFace)})
		case primvar.Vertex, primvar.Varying:
			sz := src.Spec.ScalarSize()
			data := refineAttr(src.Data, sz, m.VertsPerFace, arena, faceStart, edgeIdx, numVerts)
			out.Append(primvar.Var{Spec: src.Spec, Class: src.Class, Data: data})
		default:
			m.Log.Log(rlog.Warning, "subdiv.Mesh", "facevarying/facevertex primvar dropped across refinement: unimplemented")
		}
	}

	child := geom.NewPolyMesh(ref.vertsPerFace, ref.vertexIndices, out, m.Log)
	ctx.Split(child)
	return nil
}

// replicateUniform copies each face's single uniform value onto the
// n child faces that face's Catmull-Clark refinement produces.
func replicateUniform(src *primvar.Var, vertsPerFace []int) []float32 {
	sz := src.Spec.ScalarSize()
	out := make([]float32, 0, sz*sumOf(vertsPerFace))
	for f, n := range vertsPerFace {
		v := src.Elem(f)
		for k := 0; k < n; k++ {
			out = append(out, v...)
		}
	}
	return out
}
