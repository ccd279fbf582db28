package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"

	"github.com/reyesrender/core"
	"github.com/reyesrender/core/display"
	"github.com/reyesrender/core/varset"
)

// openOutputs wires the single Cs (constant surface color) output
// channel to a file-writing Sink at outPath. Shading is out of scope
// (reyes.Scene's own doc comment), so Cs rather than Ci is the
// richest channel every scene in practice carries without a shader
// bound; a scene with no Cs primvar at all still renders, filled with
// defaultFrag everywhere.
func openOutputs(outPath string, opt reyes.Options) (outSpecs []varset.Spec, sinks []display.Sink, defaultFrag []float32, closeSinks func(), err error) {
	sink := &fileSink{path: outPath}
	outSpecs = []varset.Spec{varset.Cs}
	sinks = []display.Sink{sink}
	defaultFrag = []float32{0, 0, 0}
	closeSinks = func() {
		for _, s := range sinks {
			s.Close()
		}
	}
	return outSpecs, sinks, defaultFrag, closeSinks, nil
}

// fileSink is display.Sink's file-writing half: package display
// intentionally stops at the in-memory reference implementation (its
// own doc comment calls file I/O an external concern), so the actual
// encode-and-write lives here instead. It accumulates tiles the same
// way display.Memory does and flushes a PNG on Close.
type fileSink struct {
	mu         sync.Mutex
	path       string
	w, h       int
	tw, th     int
	scalarSize int
	data       []float32
}

func (s *fileSink) Open(spec varset.Spec, width, height, tileWidth, tileHeight int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.h = width, height
	s.tw, s.th = tileWidth, tileHeight
	s.scalarSize = spec.ScalarSize()
	s.data = make([]float32, width*height*s.scalarSize)
	return nil
}

func (s *fileSink) WriteTile(x, y int, tileData []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sz := s.scalarSize
	for ty := 0; ty < s.th; ty++ {
		py := y + ty
		if py < 0 || py >= s.h {
			continue
		}
		for tx := 0; tx < s.tw; tx++ {
			px := x + tx
			if px < 0 || px >= s.w {
				continue
			}
			src := tileData[(ty*s.tw+tx)*sz : (ty*s.tw+tx)*sz+sz]
			dst := s.data[(py*s.w+px)*sz : (py*s.w+px)*sz+sz]
			copy(dst, src)
		}
	}
	return nil
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	sz := s.scalarSize
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			e := s.data[(y*s.w+x)*sz : (y*s.w+x)*sz+sz]
			var r, g, b float32
			switch {
			case sz >= 3:
				r, g, b = e[0], e[1], e[2]
			case sz == 1:
				r, g, b = e[0], e[0], e[0]
			}
			img.Set(x, y, color.RGBA{display.Quantize(r), display.Quantize(g), display.Quantize(b), 255})
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("cmd/reyes: creating %s: %w", s.path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}
