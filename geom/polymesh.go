package geom

import (
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/primvar"
	"github.com/reyesrender/core/rlog"
	"github.com/reyesrender/core/varset"
)

// PolyMesh is a mesh of (possibly non-planar) polygonal faces sharing
// one vertex pool. Per §4.7, the only split this package implements
// turns each quad face into a Bilinear patch; non-quad faces are
// skipped with a Warning diagnostic, since general polygon
// tessellation is out of scope.
type PolyMesh struct {
	VertsPerFace  []int
	VertexIndices []int
	Vars          *primvar.Store
	Log           rlog.Sink
}

// NewPolyMesh returns a PolyMesh. If log is nil, diagnostics for
// unsupported faces are discarded.
func NewPolyMesh(vertsPerFace, vertexIndices []int, vars *primvar.Store, log rlog.Sink) *PolyMesh {
	if log == nil {
		log = rlog.Discard{}
	}
	return &PolyMesh{VertsPerFace: vertsPerFace, VertexIndices: vertexIndices, Vars: vars, Log: log}
}

// Bound implements Geometry.
func (m *PolyMesh) Bound() linear.Box3 {
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

// MotionCompatible implements Geometry: two meshes are compatible iff
// they have the same face count and vertex-per-face topology.
func (m *PolyMesh) MotionCompatible(other Geometry) bool {
	o, ok := other.(*PolyMesh)
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

// Transform implements Geometry.
func (m *PolyMesh) Transform(mat *linear.M4) {
	p := m.Vars.FindStd(varset.P)
	for i := 0; i < p.NumElems(); i++ {
		e := p.Elem(i)
		var v, out linear.V3
		copy(v[:], e)
		linear.TransformPt(&out, mat, &v)
		copy(e, out[:])
	}
}

// Tessellate implements Geometry. A mesh always splits, regardless of
// params.ForceSplit: it produces one Bilinear patch per quad face,
// gathering constant, uniform (per-face), vertex and facevarying
// primvars down onto that face's four-corner storage. Non-quad faces
// are reported via Log and dropped.
func (m *PolyMesh) Tessellate(params SplitParams, ctx Context) error {
	var children []Geometry
	vertIdx := 0
	for face, nv := range m.VertsPerFace {
		if nv != 4 {
			m.Log.Log(rlog.Warning, "geom.PolyMesh", "non-quad face skipped: unimplemented")
			vertIdx += nv
			continue
		}
		faceVerts := [4]int{vertIdx, vertIdx + 1, vertIdx + 3, vertIdx + 2}
		vertIdx += nv

		out := primvar.NewStore(primvar.Topology{Faces: 1, Verts: 4, Varying: 4, FaceVerts: 4}, nil)
		for i := 0; i < m.Vars.Len(); i++ {
			src := m.Vars.At(i)
			dst := gatherFace(src, face, faceVerts, m.VertexIndices)
			out.Append(dst)
		}
		children = append(children, NewBilinear(out))
	}
	ctx.Split(children...)
	return nil
}

// gatherFace copies the elements of src relevant to one face down
// onto a fresh four-corner-shaped Var, per the variable's
// interpolation class: constant and uniform variables copy their
// single (resp. per-face) element; vertex variables gather through
// the shared vertex index pool; facevarying and facevertex variables
// copy the four face-local elements directly.
func gatherFace(src *primvar.Var, face int, faceVerts [4]int, vertexIndices []int) primvar.Var {
	sz := src.Spec.ScalarSize()
	var n int
	switch src.Class {
	case primvar.Constant:
		n = 1
	case primvar.Uniform:
		n = 1
	default:
		n = 4
	}
	dst := primvar.Var{Spec: src.Spec, Class: src.Class, Data: make([]float32, n*sz)}
	switch src.Class {
	case primvar.Constant:
		copy(dst.Data, src.Elem(0))
	case primvar.Uniform:
		copy(dst.Data, src.Elem(face))
	case primvar.Vertex:
		for i, fv := range faceVerts {
			copy(dst.Data[i*sz:(i+1)*sz], src.Elem(vertexIndices[fv]))
		}
	case primvar.Varying:
		for i, fv := range faceVerts {
			copy(dst.Data[i*sz:(i+1)*sz], src.Elem(vertexIndices[fv]))
		}
	case primvar.Facevarying, primvar.Facevertex:
		for i, fv := range faceVerts {
			copy(dst.Data[i*sz:(i+1)*sz], src.Elem(fv))
		}
	}
	return dst
}
