// Package display defines the output tile sink the renderer streams
// filtered pixels to. File I/O for the final image is explicitly an
// external concern; this package only specifies the interface and a
// concurrency-safe reference implementation useful for tests.
package display

import (
	"errors"
	"sync"

	"github.com/reyesrender/core/varset"
)

// Sink receives filtered output tiles for a single output variable.
// Implementations must serialize their own writes: the scheduler may
// call WriteTile from many worker goroutines concurrently.
type Sink interface {
	// Open is called once, before any WriteTile call, with the
	// full image size and the tile size the renderer will use.
	Open(spec varset.Spec, width, height, tileWidth, tileHeight int) error

	// WriteTile delivers one tile's raw data at the given
	// top-left pixel position. tileData has tileWidth*tileHeight*
	// scalarSize floats laid out row-major, for quantized sinks
	// too; Quantize converts one such value to 8 bits.
	WriteTile(x, y int, tileData []float32) error

	// Close is called once, after the last WriteTile call.
	Close() error
}

// Quantize converts a float sample in approximately [0,1] to an
// 8-bit value per §4.6: clamp(round(255*x), 0, 255).
func Quantize(x float32) uint8 {
	v := x*255 + 0.5
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

var errClosed = errors.New("display: sink is closed")

// Memory is a Sink that accumulates tiles into an in-memory raster,
// useful for tests and for drivers that want a finished image rather
// than a tile stream. Writes are serialized by its own lock, per the
// Sink contract.
type Memory struct {
	mu         sync.Mutex
	spec       varset.Spec
	w, h       int
	tw, th     int
	scalarSize int
	data       []float32 // w*h*scalarSize, row-major
	opened     bool
	closed     bool
}

// Open implements Sink.
func (m *Memory) Open(spec varset.Spec, width, height, tileWidth, tileHeight int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spec = spec
	m.w, m.h = width, height
	m.tw, m.th = tileWidth, tileHeight
	m.scalarSize = spec.ScalarSize()
	m.data = make([]float32, width*height*m.scalarSize)
	m.opened = true
	return nil
}

// WriteTile implements Sink.
func (m *Memory) WriteTile(x, y int, tileData []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || !m.opened {
		return errClosed
	}
	sz := m.scalarSize
	for ty := 0; ty < m.th; ty++ {
		py := y + ty
		if py < 0 || py >= m.h {
			continue
		}
		for tx := 0; tx < m.tw; tx++ {
			px := x + tx
			if px < 0 || px >= m.w {
				continue
			}
			src := tileData[(ty*m.tw+tx)*sz : (ty*m.tw+tx)*sz+sz]
			dst := m.data[(py*m.w+px)*sz : (py*m.w+px)*sz+sz]
			copy(dst, src)
		}
	}
	return nil
}

// Close implements Sink.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// At returns the scalarSize floats at pixel (x, y).
func (m *Memory) At(x, y int) []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	sz := m.scalarSize
	return append([]float32(nil), m.data[(y*m.w+x)*sz:(y*m.w+x)*sz+sz]...)
}
