// Package primvar implements per-surface primitive variable storage.
// Each variable is tagged with an interpolation class that determines
// how many elements its backing array holds for a given topology.
package primvar

import (
	"fmt"

	"github.com/reyesrender/core/varset"
)

// Class is the interpolation class of a primvar, determining how
// many array elements it has relative to the surface's topology.
type Class int

// Recognized interpolation classes.
const (
	Constant Class = iota
	Uniform
	Varying
	Vertex
	Facevarying
	Facevertex
)

func (c Class) String() string {
	switch c {
	case Constant:
		return "constant"
	case Uniform:
		return "uniform"
	case Varying:
		return "varying"
	case Vertex:
		return "vertex"
	case Facevarying:
		return "facevarying"
	case Facevertex:
		return "facevertex"
	default:
		return "unknown"
	}
}

// Topology describes the counts needed to compute elem_count for each
// interpolation class on a concrete surface. A bilinear patch reports
// Faces=1, Verts=4, Varying=4, FaceVerts=4; a polygon mesh reports the
// sums over all its faces.
type Topology struct {
	Faces     int // number of faces
	Verts     int // number of control/shading vertices
	Varying   int // number of varying interpolation points
	FaceVerts int // number of face-vertex incidences (Sum of face valences)
}

// ElemCount returns the number of elements a primvar of class c has
// for this topology.
func (t Topology) ElemCount(c Class) int {
	switch c {
	case Constant:
		return 1
	case Uniform:
		return t.Faces
	case Varying:
		return t.Varying
	case Vertex:
		return t.Verts
	case Facevarying, Facevertex:
		return t.FaceVerts
	default:
		panic(fmt.Sprintf("primvar: unknown class %d", c))
	}
}

// Var is one typed, interpolation-class-tagged variable array
// attached to a surface.
type Var struct {
	Spec  varset.Spec
	Class Class
	Data  []float32
}

// NumElems returns the number of elements stored (Data length divided
// by the variable's per-element scalar size).
func (v *Var) NumElems() int {
	sz := v.Spec.ScalarSize()
	if sz == 0 {
		return 0
	}
	return len(v.Data) / sz
}

// Elem returns the slice of floats backing the i'th element.
func (v *Var) Elem(i int) []float32 {
	sz := v.Spec.ScalarSize()
	return v.Data[i*sz : (i+1)*sz]
}

// Store is the full set of primvars carried by one surface.
// Hpoint variables may be present in a Store; nothing in this module
// projects them to Point before dicing.
type Store struct {
	vars []Var
}

// NewStore allocates a Store with zeroed storage for each declared
// variable, sized by topo and the variable's interpolation class.
func NewStore(topo Topology, decls []struct {
	Spec  varset.Spec
	Class Class
}) *Store {
	s := &Store{vars: make([]Var, len(decls))}
	for i, d := range decls {
		n := topo.ElemCount(d.Class) * d.Spec.ScalarSize()
		s.vars[i] = Var{Spec: d.Spec, Class: d.Class, Data: make([]float32, n)}
	}
	return s
}

// Len returns the number of variables in the store.
func (s *Store) Len() int { return len(s.vars) }

// At returns the i'th variable.
func (s *Store) At(i int) *Var { return &s.vars[i] }

// Find returns the variable matching spec, or nil if absent.
func (s *Store) Find(spec varset.Spec) *Var {
	for i := range s.vars {
		if s.vars[i].Spec == spec {
			return &s.vars[i]
		}
	}
	return nil
}

// FindStd returns the variable matching one of the well-known
// standard Specs (P, N, Cs, ...), or nil if absent.
func (s *Store) FindStd(spec varset.Spec) *Var { return s.Find(spec) }

// Append adds a fully-populated variable to the store. It is the
// caller's responsibility to size Data according to topo and class.
func (s *Store) Append(v Var) { s.vars = append(s.vars, v) }
