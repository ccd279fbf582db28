package occlusion

import "testing"

func TestResetIsFullyUnoccluded(t *testing.T) {
	tr := New(8, 8)
	if tr.IsOccluded(Bound{0, 0, 8, 8}, 0) {
		t.Fatal("freshly reset tree should not occlude anything")
	}
}

func TestSetDepthOccludesFartherGeometry(t *testing.T) {
	tr := New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			tr.SetDepth(tr.NodeIndex(x, y), 5)
		}
	}
	if !tr.IsOccluded(Bound{0, 0, 8, 8}, 10) {
		t.Fatal("geometry behind every sample should be occluded")
	}
	if tr.IsOccluded(Bound{0, 0, 8, 8}, 1) {
		t.Fatal("geometry in front of every sample should not be occluded")
	}
}

func TestPartialCoverageNotOccluded(t *testing.T) {
	tr := New(8, 8)
	tr.SetDepth(tr.NodeIndex(0, 0), 5)
	// Only one corner has a near occluder; the rest are still at
	// infinity, so nothing spanning the whole tree can be occluded.
	if tr.IsOccluded(Bound{0, 0, 8, 8}, 10) {
		t.Fatal("partial occluder coverage must not occlude the whole bound")
	}
	if !tr.IsOccluded(Bound{0, 0, 1, 1}, 10) {
		t.Fatal("the single occluded cell should report occluded")
	}
}

func TestNonPowerOfTwoExtent(t *testing.T) {
	tr := New(5, 3)
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			tr.SetDepth(tr.NodeIndex(x, y), 2)
		}
	}
	if !tr.IsOccluded(Bound{0, 0, 5, 3}, 100) {
		t.Fatal("expected full non-power-of-two extent to be occluded")
	}
}
