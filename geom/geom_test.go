package geom

import (
	"testing"

	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/primvar"
	"github.com/reyesrender/core/varset"
)

// fakeContext records Split/Dice calls for assertions and provides a
// plain grid.Builder for geometries to populate.
type fakeContext struct {
	builder  grid.Builder
	splits   []Geometry
	diced    []*grid.Grid
	splitted bool
}

func (c *fakeContext) Builder() *grid.Builder { c.builder.Reset(); return &c.builder }
func (c *fakeContext) Split(children ...Geometry) {
	c.splitted = true
	c.splits = append(c.splits, children...)
}
func (c *fakeContext) Dice(g *grid.Grid) { c.diced = append(c.diced, g) }

func quadVars(corners [4]linear.V3) *primvar.Store {
	s := primvar.NewStore(primvar.Topology{Faces: 1, Verts: 4, Varying: 4, FaceVerts: 4}, []struct {
		Spec  varset.Spec
		Class primvar.Class
	}{
		{varset.P, primvar.Vertex},
	})
	p := s.Find(varset.P)
	for i, c := range corners {
		copy(p.Elem(i), c[:])
	}
	return s
}

func TestBilinearBound(t *testing.T) {
	vars := quadVars([4]linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}})
	b := NewBilinear(vars)
	box := b.Bound()
	if box.Min != (linear.V3{0, 0, 0}) || box.Max != (linear.V3{1, 1, 0}) {
		t.Fatalf("unexpected bound: %+v", box)
	}
}

func TestBilinearTessellateDices(t *testing.T) {
	vars := quadVars([4]linear.V3{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {10, 10, 0}})
	b := NewBilinear(vars)
	var ctx fakeContext
	var ident linear.M4
	ident.I()
	params := SplitParams{Trans: ident, PolyLength: 1, GridSize: 16}
	if err := b.Tessellate(params, &ctx); err != nil {
		t.Fatal(err)
	}
	if len(ctx.diced) != 1 {
		t.Fatalf("expected one dice, got %d splits=%d", len(ctx.diced), len(ctx.splits))
	}
	g := ctx.diced[0]
	if g.Nu < 2 || g.Nv < 2 {
		t.Fatalf("grid too small: %dx%d", g.Nu, g.Nv)
	}
	p := g.P()
	corner := p.At(0)
	if corner[0] != 0 || corner[1] != 0 {
		t.Fatalf("corner(0,0) = %v, want origin", corner)
	}
}

func TestBilinearTessellateSplitsWhenLarge(t *testing.T) {
	vars := quadVars([4]linear.V3{{0, 0, 0}, {100, 0, 0}, {0, 100, 0}, {100, 100, 0}})
	b := NewBilinear(vars)
	var ctx fakeContext
	var ident linear.M4
	ident.I()
	params := SplitParams{Trans: ident, PolyLength: 1, GridSize: 4}
	if err := b.Tessellate(params, &ctx); err != nil {
		t.Fatal(err)
	}
	if !ctx.splitted || len(ctx.splits) != 2 {
		t.Fatalf("expected a 2-way split, got splits=%d diced=%d", len(ctx.splits), len(ctx.diced))
	}
}

func TestBilinearForceSplitAlternatesAxis(t *testing.T) {
	vars := quadVars([4]linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}})
	b := NewBilinear(vars)
	var ctx fakeContext
	if err := b.Tessellate(SplitParams{ForceSplit: 2}, &ctx); err != nil {
		t.Fatal(err)
	}
	children := ctx.splits
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}
	c0 := children[0].(*Bilinear)
	c1 := children[1].(*Bilinear)
	if c0.UMax != 0.5 || c1.UMin != 0.5 || c0.VMax != 1 || c1.VMax != 1 {
		t.Fatalf("expected an even split, got %+v / %+v", c0, c1)
	}
}

func TestPolyMeshSplitsQuadIntoBilinear(t *testing.T) {
	vars := quadVars([4]linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}})
	mesh := NewPolyMesh([]int{4}, []int{0, 1, 2, 3}, vars, nil)
	var ctx fakeContext
	if err := mesh.Tessellate(SplitParams{}, &ctx); err != nil {
		t.Fatal(err)
	}
	if len(ctx.splits) != 1 {
		t.Fatalf("expected one child patch, got %d", len(ctx.splits))
	}
	if _, ok := ctx.splits[0].(*Bilinear); !ok {
		t.Fatalf("expected *Bilinear child, got %T", ctx.splits[0])
	}
}

func TestPolyMeshSkipsNonQuadFace(t *testing.T) {
	vars := primvar.NewStore(primvar.Topology{Faces: 1, Verts: 3, Varying: 3, FaceVerts: 3}, []struct {
		Spec  varset.Spec
		Class primvar.Class
	}{{varset.P, primvar.Vertex}})
	mesh := NewPolyMesh([]int{3}, []int{0, 1, 2}, vars, nil)
	var ctx fakeContext
	if err := mesh.Tessellate(SplitParams{}, &ctx); err != nil {
		t.Fatal(err)
	}
	if len(ctx.splits) != 0 {
		t.Fatalf("expected triangle face to be skipped, got %d children", len(ctx.splits))
	}
}

func TestPolyMeshMotionCompatible(t *testing.T) {
	vars := quadVars([4]linear.V3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0}})
	a := NewPolyMesh([]int{4, 4}, []int{0, 1, 2, 3, 0, 1, 2, 3}, vars, nil)
	b := NewPolyMesh([]int{4, 4}, []int{0, 1, 2, 3, 0, 1, 2, 3}, vars, nil)
	c := NewPolyMesh([]int{3}, []int{0, 1, 2}, vars, nil)
	if !a.MotionCompatible(b) {
		t.Fatal("expected matching meshes to be motion compatible")
	}
	if a.MotionCompatible(c) {
		t.Fatal("expected mismatched topology to be incompatible")
	}
}
