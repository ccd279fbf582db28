package micropoly

import (
	"math"
	"testing"

	"github.com/reyesrender/core/linear"
)

func TestPointInQuadConvexCCW(t *testing.T) {
	var q PointInQuad
	a := linear.V2{0, 0}
	b := linear.V2{1, 0}
	c := linear.V2{1, 1}
	d := linear.V2{0, 1}
	q.Init(a, b, c, d, true)
	if !q.Contains(linear.V2{0.5, 0.5}) {
		t.Fatal("expected center point to be inside unit quad")
	}
	if q.Contains(linear.V2{2, 2}) {
		t.Fatal("expected far point to be outside unit quad")
	}
}

func TestPointInQuadConvexCW(t *testing.T) {
	var q PointInQuad
	// Same unit square but wound clockwise.
	a := linear.V2{0, 0}
	b := linear.V2{0, 1}
	c := linear.V2{1, 1}
	d := linear.V2{1, 0}
	q.Init(a, b, c, d, true)
	if !q.Contains(linear.V2{0.5, 0.5}) {
		t.Fatal("expected center point to be inside CW-wound unit quad")
	}
}

func TestPointInQuadArrowHead(t *testing.T) {
	var q PointInQuad
	// A non-convex "arrow head" quad: d pulled in towards the center.
	a := linear.V2{0, 0}
	b := linear.V2{2, 0}
	c := linear.V2{2, 2}
	d := linear.V2{1, 1}
	q.Init(a, b, c, d, true)
	if !q.Contains(linear.V2{0.2, 0.1}) {
		t.Fatal("expected point near the a corner to be inside the arrow head")
	}
	if q.Contains(linear.V2{1, 1.9}) {
		t.Fatal("expected point near the concave notch to be outside")
	}
}

func TestInverseBilinRoundTrips(t *testing.T) {
	a := linear.V2{0, 0}
	b := linear.V2{4, 0.3}
	c := linear.V2{-0.2, 3}
	d := linear.V2{4.1, 3.2}
	var ib InvBilin
	ib.Init(a, b, c, d)
	for _, uv := range []linear.V2{{0.25, 0.25}, {0.5, 0.5}, {0.75, 0.2}, {0.1, 0.9}} {
		p := ib.eval(uv[0], uv[1])
		got := ib.Eval(p)
		if math.Abs(float64(got[0]-uv[0])) > 1e-3 || math.Abs(float64(got[1]-uv[1])) > 1e-3 {
			t.Fatalf("Eval(eval(%v)) = %v, want close to %v", uv, got, uv)
		}
	}
}

func TestInverseBilinRectangle(t *testing.T) {
	// For an axis-aligned rectangle the inverse map has a closed form;
	// check the iterative solve agrees with it exactly.
	var ib InvBilin
	ib.Init(linear.V2{0, 0}, linear.V2{2, 0}, linear.V2{0, 4}, linear.V2{2, 4})
	got := ib.Eval(linear.V2{1, 2})
	if math.Abs(float64(got[0]-0.5)) > 1e-4 || math.Abs(float64(got[1]-0.5)) > 1e-4 {
		t.Fatalf("Eval(1,2) = %v, want (0.5,0.5)", got)
	}
}
