package sample

import (
	"math"
	"testing"
)

func TestNewGridSamplesWithinPixel(t *testing.T) {
	g := New(10, 20, 4, 4, 2, 2, 1, 0, 1)
	for py := 0; py < 4; py++ {
		for px := 0; px < 4; px++ {
			for sy := 0; sy < 2; sy++ {
				for sx := 0; sx < 2; sx++ {
					s := g.At(px, py, sx, sy)
					wantX0 := float32(10 + px)
					wantY0 := float32(20 + py)
					if s.P[0] < wantX0 || s.P[0] > wantX0+1 {
						t.Fatalf("sample x %v out of pixel bound [%v,%v]", s.P[0], wantX0, wantX0+1)
					}
					if s.P[1] < wantY0 || s.P[1] > wantY0+1 {
						t.Fatalf("sample y %v out of pixel bound [%v,%v]", s.P[1], wantY0, wantY0+1)
					}
					if math.IsInf(float64(s.Z), 0) == false {
						t.Fatalf("expected sample depth reset to +inf, got %v", s.Z)
					}
				}
			}
		}
	}
}

func TestTimeSamplesStratified(t *testing.T) {
	g := New(0, 0, 8, 8, 1, 1, 42, 0, 1)
	n := g.Len()
	seen := make([]bool, n)
	for _, s := range g.All() {
		stratum := int(s.Time * float32(n))
		if stratum >= n {
			stratum = n - 1
		}
		if seen[stratum] {
			t.Fatalf("two samples landed in the same time stratum %d", stratum)
		}
		seen[stratum] = true
		if s.Time < 0 || s.Time > 1 {
			t.Fatalf("time %v out of [0,1]", s.Time)
		}
	}
}

func TestTimeSamplesRemappedToShutterRange(t *testing.T) {
	g := New(0, 0, 8, 8, 1, 1, 42, 0.25, 0.75)
	for _, s := range g.All() {
		if s.Time < 0.25 || s.Time > 0.75 {
			t.Fatalf("time %v out of shutter range [0.25,0.75]", s.Time)
		}
	}
}

func TestTimeSamplesCollapseWhenShutterClosed(t *testing.T) {
	g := New(0, 0, 4, 4, 1, 1, 3, 0.5, 0.5)
	for _, s := range g.All() {
		if s.Time != 0.5 {
			t.Fatalf("expected every sample time to collapse to shutter_min=0.5, got %v", s.Time)
		}
	}
}

func TestLensSamplesWithinUnitDisk(t *testing.T) {
	g := New(0, 0, 8, 8, 1, 1, 7, 0, 1)
	for _, s := range g.All() {
		r2 := s.Lens[0]*s.Lens[0] + s.Lens[1]*s.Lens[1]
		if r2 > 1.0001 {
			t.Fatalf("lens sample %v outside unit disk (r^2=%v)", s.Lens, r2)
		}
	}
}

func TestBoundClampsToGridExtent(t *testing.T) {
	g := New(0, 0, 4, 4, 2, 2, 1, 0, 1)
	x0, y0, x1, y1 := g.Bound(-5, -5, 100, 100)
	if x0 != 0 || y0 != 0 || x1 != g.NX() || y1 != g.NY() {
		t.Fatalf("expected full-grid clamp, got (%d,%d)-(%d,%d)", x0, y0, x1, y1)
	}
}
