package filterproc

import (
	"testing"

	"github.com/reyesrender/core/display"
	"github.com/reyesrender/core/filter"
	"github.com/reyesrender/core/micropoly"
	"github.com/reyesrender/core/sample"
	"github.com/reyesrender/core/varset"
)

// constTile builds a 4x4-pixel, 1 sample/pixel tile at tile grid
// position (tx,ty) with every fragment set to the same constant Cs
// value, matching the "single flat-shaded patch fully covering the
// image" acceptance scenario.
func constTile(tx, ty int, value [3]float32) *SampleTile {
	s := sample.New(tx*4, ty*4, 4, 4, 1, 1, uint32(tx*13+ty*7+1), 0, 1)
	st := NewSampleTile(s, []float32{0, 0, 0})
	for i := 0; i < s.Len(); i++ {
		st.Write(i, micropoly.Fragment{Z: 1, Values: value[:]})
	}
	st.TileX, st.TileY = tx, ty
	return st
}

func TestFilterBlockOfConstantColorStaysConstant(t *testing.T) {
	cached := filter.NewCached(filter.Box(1, 1), 1, 1)
	sink := &display.Memory{}
	p := &Processor{
		Filter:         cached,
		SampsPerPixelX: 1,
		SampsPerPixelY: 1,
		TileWidth:      4,
		TileHeight:     4,
		OutSpecs:       []varset.Spec{varset.Cs},
		Sinks:          []display.Sink{sink},
	}
	if err := p.Open(8, 8); err != nil {
		t.Fatal(err)
	}

	white := [3]float32{1, 1, 1}
	for ty := 0; ty <= 1; ty++ {
		for tx := 0; tx <= 1; tx++ {
			if err := p.Insert(constTile(tx, ty, white)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	got := sink.At(3, 3)
	if got[0] != 1 || got[1] != 1 || got[2] != 1 {
		t.Fatalf("filtered constant-color block = %v, want [1 1 1]", got)
	}
	got = sink.At(4, 4)
	if got[0] != 1 || got[1] != 1 || got[2] != 1 {
		t.Fatalf("filtered constant-color block = %v, want [1 1 1]", got)
	}
}

func TestDiscreteSizeMatchesSpecFormula(t *testing.T) {
	cached := filter.NewCached(filter.Gaussian(2, 2), 2, 2)
	sx, sy := cached.Size()
	// Half-width 2 at 2 samples/pixel (even): 2*floor(2*2+0.5) = 8.
	if sx != 8 || sy != 8 {
		t.Fatalf("filter support = (%d,%d), want (8,8)", sx, sy)
	}
}
