// Package grid implements packed storage for a rectangular
// micropolygon grid and the grid itself: an (nu x nv) lattice of
// shading points referring to one Storage.
package grid

import (
	"sort"

	"github.com/reyesrender/core/varset"
)

// view describes where one variable's data lives within Storage's
// single backing float array.
type view struct {
	spec    varset.Spec
	offset  int // index into Storage.data of the first float
	elSize  int // scalar size of one element
	uniform bool
	stride  int // 0 for uniform-per-grid, else elSize
}

// Storage is a contiguous float buffer holding every variable
// attached to a grid, plus one descriptor per variable. Once built,
// its shape is immutable; only the floats themselves may be
// overwritten.
type Storage struct {
	data   []float32
	views  []view
	vars   varset.Set
	nverts int
}

// VarSet returns the set of variables held by the storage.
func (s *Storage) VarSet() *varset.Set { return &s.vars }

// NVerts returns the number of shading points the storage was built
// for.
func (s *Storage) NVerts() int { return s.nverts }

// View is a window onto one variable's backing floats: NVerts
// elements (or one, if Uniform) of ElSize floats each, Stride floats
// apart.
type View struct {
	data    []float32
	ElSize  int
	Stride  int
	Uniform bool
}

// At returns the floats for element i. For a uniform view, every
// index returns the same (single) element.
func (v View) At(i int) []float32 {
	if v.Uniform {
		i = 0
	}
	off := i * v.ElSize
	if v.Stride != 0 {
		off = i * v.Stride
	}
	return v.data[off : off+v.ElSize]
}

// Get returns the View for the i'th variable in the storage's VarSet.
func (s *Storage) Get(i int) View {
	vw := s.views[i]
	n := s.nverts
	if vw.uniform {
		n = 1
	}
	return View{
		data:    s.data[vw.offset : vw.offset+n*vw.elSize],
		ElSize:  vw.elSize,
		Stride:  vw.stride,
		Uniform: vw.uniform,
	}
}

// GetSpec returns the View for spec, and whether it was present.
func (s *Storage) GetSpec(spec varset.Spec) (View, bool) {
	i := s.vars.Find(spec)
	if i < 0 {
		return View{}, false
	}
	return s.Get(i), true
}

// GetStd returns the View for a well-known standard variable, and
// whether it was present.
func (s *Storage) GetStd(id varset.StdID) (View, bool) {
	i := s.vars.FindStd(id)
	if i < 0 {
		return View{}, false
	}
	return s.Get(i), true
}

// MaxAggregateSize returns the largest per-element scalar size of
// any variable in the storage; useful for sizing scratch buffers
// used while dicing.
func (s *Storage) MaxAggregateSize() int {
	max := 0
	for _, vw := range s.views {
		if vw.elSize > max {
			max = vw.elSize
		}
	}
	return max
}

// gvar is one variable queued in a Builder, prior to sorting and
// deduplication.
type gvar struct {
	spec       varset.Spec
	uniform    bool
	precedence int
}

// Builder collects the variables that will appear on a grid (from
// the renderer's required output variables and from shader
// input/output declarations) before a single Storage allocation is
// made. It resolves clashes between shader-driven and
// geometry-driven requirements using a precedence value: geometry
// wins the uniform/varying storage class.
type Builder struct {
	vars       []gvar
	precedence int
}

// Reset clears the builder so it can be reused.
func (b *Builder) Reset() {
	b.vars = b.vars[:0]
	b.precedence = 0
}

// SetFromGeom raises the precedence of subsequently-added variables,
// so that geometry-driven requirements override shader/renderer ones
// on a duplicate Spec.
func (b *Builder) SetFromGeom() { b.precedence = 1 }

// Add queues a variable for inclusion in the built Storage.
// class determines whether storage is allocated uniform (1 element)
// or per-vertex (nverts elements).
func (b *Builder) Add(spec varset.Spec, uniform bool) {
	b.vars = append(b.vars, gvar{spec: spec, uniform: uniform, precedence: b.precedence})
}

// Build allocates the Storage for nverts shading points from the
// queued variables, resolving duplicate Specs by precedence (ties
// keep the first-seen uniform/varying choice) and sorting by Spec.
func (b *Builder) Build(nverts int) *Storage {
	vars := append([]gvar(nil), b.vars...)
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].spec.Less(vars[j].spec) })
	out := vars[:0]
	for i := 0; i < len(vars); {
		j := i + 1
		best := vars[i]
		for j < len(vars) && vars[j].spec == vars[i].spec {
			if vars[j].precedence > best.precedence {
				best = vars[j]
			}
			j++
		}
		out = append(out, best)
		i = j
	}

	total := 0
	for _, v := range out {
		n := 1
		if !v.uniform {
			n = nverts
		}
		total += n * v.spec.ScalarSize()
	}

	st := &Storage{
		data:   make([]float32, total),
		views:  make([]view, len(out)),
		nverts: nverts,
	}
	specs := make([]varset.Spec, len(out))
	offset := 0
	for i, v := range out {
		elSize := v.spec.ScalarSize()
		stride := elSize
		n := nverts
		if v.uniform {
			stride = 0
			n = 1
		}
		st.views[i] = view{spec: v.spec, offset: offset, elSize: elSize, uniform: v.uniform, stride: stride}
		specs[i] = v.spec
		offset += n * elSize
	}
	st.vars = varset.New(specs)
	// views must be reordered to match the sorted varset order,
	// since varset.New re-sorts; specs was already sorted identically
	// (Build sorted `out` by the same Less order varset.New uses), so
	// the index correspondence already holds.
	return st
}
