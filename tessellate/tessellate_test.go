package tessellate

import (
	"testing"

	"github.com/reyesrender/core/attrs"
	"github.com/reyesrender/core/geom"
	"github.com/reyesrender/core/grid"
	"github.com/reyesrender/core/linear"
	"github.com/reyesrender/core/primvar"
	"github.com/reyesrender/core/shader"
	"github.com/reyesrender/core/varset"
)

func patchVars(corners [4][3]float32) *primvar.Store {
	topo := primvar.Topology{Faces: 1, Verts: 4, Varying: 4, FaceVerts: 4}
	s := primvar.NewStore(topo, []struct {
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

func flatPatch(z float32) *geom.Bilinear {
	return geom.NewBilinear(patchVars([4][3]float32{
		{0, 0, z}, {4, 0, z}, {0, 4, z}, {4, 4, z},
	}))
}

func identRaster() linear.M4 {
	var m linear.M4
	m.I()
	return m
}

func newContext() *Context {
	return &Context{
		CamToRaster: identRaster(),
		GridSize:    16,
		BucketBound: linear.Box3{Min: linear.V3{-1e6, -1e6, 0}, Max: linear.V3{1e6, 1e6, 1e6}},
		EyeEpsilon:  0.01,
		OutVars:     varset.New([]varset.Spec{varset.Ci}),
	}
}

func TestRunDicesSmallPatchDirectly(t *testing.T) {
	c := newContext()
	at := attrs.Default()
	at.ShadingRate = 64 // poly length 8, patch is 4x4 raster units: dices without splitting

	b := flatPatch(5)
	res, err := c.Run(b, b.Bound(), at, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Children) != 0 {
		t.Fatalf("expected a dice, got %d split children", len(res.Children))
	}
	if len(res.Grids) != 1 {
		t.Fatalf("expected exactly one grid, got %d", len(res.Grids))
	}
	g := res.Grids[0]
	if g.Nu < 2 || g.Nv < 2 {
		t.Fatalf("grid too small: %dx%d", g.Nu, g.Nv)
	}
}

func TestRunSplitsLargePatch(t *testing.T) {
	c := newContext()
	at := attrs.Default()
	at.ShadingRate = 0.01 // tiny target size forces a split of a large patch

	b := flatPatch(5)
	res, err := c.Run(b, b.Bound(), at, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Grids) != 0 {
		t.Fatalf("expected a split, got %d grids", len(res.Grids))
	}
	if len(res.Children) != 2 {
		t.Fatalf("expected 2 split children, got %d", len(res.Children))
	}
}

func TestSplitCullsChildrenOutsideBucket(t *testing.T) {
	c := newContext()
	c.BucketBound = linear.Box3{Min: linear.V3{-1e6, -1e6, 0}, Max: linear.V3{1e6, 1e6, 1e6}}
	at := attrs.Default()

	// One child overlaps the bucket, one is entirely to its right.
	inside := flatPatch(1)
	outside := geom.NewBilinear(patchVars([4][3]float32{
		{1e7, 0, 1}, {1e7 + 4, 0, 1}, {1e7, 4, 1}, {1e7 + 4, 4, 1},
	}))
	c.Split(inside, outside)
	if len(c.Children) != 1 {
		t.Fatalf("expected 1 surviving child, got %d", len(c.Children))
	}
}

func TestRunProjectsGridToRaster(t *testing.T) {
	c := newContext()
	var proj linear.M4
	linear.Scale(&proj, 2, 2, 1)
	c.CamToRaster = proj

	at := attrs.Default()
	at.ShadingRate = 64

	b := flatPatch(5)
	res, err := c.Run(b, b.Bound(), at, 0)
	if err != nil {
		t.Fatal(err)
	}
	g := res.Grids[0]
	p := g.P()
	got := p.At(0)
	if got[0] != 0 || got[1] != 0 {
		t.Fatalf("corner 0 projected to %v, want scaled (0,0,*)", got)
	}
	far := p.At(g.Index(g.Nu-1, 0))
	if far[0] != 8 {
		t.Fatalf("far corner x projected to %v, want 8 (4*scale 2)", far[0])
	}
}

func TestRunForcesSplitAcrossEyePlane(t *testing.T) {
	c := newContext()
	at := attrs.Default()
	at.ShadingRate = 64 // would dice if not forced

	b := flatPatch(5)
	bound := b.Bound()
	bound.Min[2] = -1
	bound.Max[2] = 1

	res, err := c.Run(b, bound, at, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Grids) != 0 || len(res.Children) != 2 {
		t.Fatalf("expected forced split, got %d grids, %d children", len(res.Grids), len(res.Children))
	}
	if res.EyeSplitCount != 1 {
		t.Fatalf("eye split count = %d, want 1", res.EyeSplitCount)
	}
}

func TestRunDerivesNgWhenRequested(t *testing.T) {
	c := newContext()
	c.OutVars = varset.New([]varset.Spec{varset.Ci, varset.Ng})
	at := attrs.Default()
	at.ShadingRate = 64

	b := flatPatch(5)
	res, err := c.Run(b, b.Bound(), at, 0)
	if err != nil {
		t.Fatal(err)
	}
	g := res.Grids[0]
	ng, ok := g.Ng()
	if !ok {
		t.Fatal("expected grid to carry Ng")
	}
	n := ng.At(0)
	if n[2] == 0 {
		t.Fatalf("flat patch in the XY plane should have an Ng with a nonzero z, got %v", n)
	}
}

// recordingShader appends a constant Ci to every shading point, for
// exercising surface-shader wiring without a real shading language.
type recordingShader struct {
	calls *int
}

func (s recordingShader) InputVars() []varset.Spec  { return nil }
func (s recordingShader) OutputVars() []varset.Spec { return []varset.Spec{varset.Ci} }
func (s recordingShader) Shade(ctx *shader.Context, g *grid.Grid) error {
	*s.calls++
	v, ok := g.Stor.GetStd(varset.StdCi)
	if !ok {
		return nil
	}
	n := g.Nu * g.Nv
	for i := 0; i < n; i++ {
		copy(v.At(i), []float32{1, 0, 0})
	}
	return nil
}

func TestRunRunsSurfaceShaderAfterProjection(t *testing.T) {
	c := newContext()
	at := attrs.Default()
	at.ShadingRate = 64
	calls := 0
	at.SurfaceShader = recordingShader{calls: &calls}

	b := flatPatch(5)
	res, err := c.Run(b, b.Bound(), at, 0)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("surface shader invoked %d times, want 1", calls)
	}
	g := res.Grids[0]
	ci, ok := g.Stor.GetStd(varset.StdCi)
	if !ok {
		t.Fatal("expected grid to carry Ci")
	}
	if got := ci.At(0); got[0] != 1 {
		t.Fatalf("Ci = %v, want [1 0 0]", got)
	}
}

func TestRunMotionChecksChildCompatibility(t *testing.T) {
	c := newContext()
	at := attrs.Default()
	at.ShadingRate = 0.01 // force a split so both keys produce children

	key0 := flatPatch(5)
	key1 := flatPatch(6)
	mr, err := c.RunMotion([]geom.Geometry{key0, key1}, key0.Bound(), at, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mr.KeyChildren) != 2 || len(mr.KeyChildren[0]) != len(mr.KeyChildren[1]) {
		t.Fatalf("expected matching child counts across keys, got %v", mr.KeyChildren)
	}
}

func TestRunMotionChecksGridShapeCompatibility(t *testing.T) {
	c := newContext()
	at := attrs.Default()
	at.ShadingRate = 64 // dice directly

	key0 := flatPatch(5)
	key1 := flatPatch(6)
	mr, err := c.RunMotion([]geom.Geometry{key0, key1}, key0.Bound(), at, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(mr.KeyGrids) != 2 {
		t.Fatalf("expected one grid per key, got %d", len(mr.KeyGrids))
	}
	if mr.KeyGrids[0].Nu != mr.KeyGrids[1].Nu || mr.KeyGrids[0].Nv != mr.KeyGrids[1].Nv {
		t.Fatal("expected matching grid shapes across keys")
	}
}
