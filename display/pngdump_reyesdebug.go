//go:build reyesdebug

package display

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f32"
)

// PNGDump is a debug-only Sink that accumulates a Color- or
// Point-typed output variable like Memory, then writes it (and a
// downsampled thumbnail, for quickly eyeballing a large render) to
// disk as PNG on Close. It exists purely for interactive debugging
// while developing a scene or shader; no SPEC_FULL.md component
// depends on it, and it is compiled in only behind the reyesdebug
// build tag so a normal build carries no image-codec dependency.
type PNGDump struct {
	Memory
	Path          string // output/<name>.png
	ThumbMaxWidth int    // 0 disables the thumbnail
}

// Close implements Sink: it flushes the accumulated raster to PNG,
// in addition to Memory's own bookkeeping.
func (d *PNGDump) Close() error {
	if err := d.Memory.Close(); err != nil {
		return err
	}
	img := d.toRGBA()
	if err := writePNG(d.Path, img); err != nil {
		return err
	}
	if d.ThumbMaxWidth > 0 && img.Bounds().Dx() > d.ThumbMaxWidth {
		thumb := d.resize(img, d.ThumbMaxWidth)
		return writePNG(thumbPath(d.Path), thumb)
	}
	return nil
}

// toRGBA converts the accumulated float raster to 8-bit RGBA,
// treating a 1-wide (Float) variable as grayscale and a 3-wide
// (Point/Vector/Normal/Color) variable as RGB; anything wider only
// uses its first 3 components.
func (d *Memory) toRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, d.w, d.h))
	sz := d.scalarSize
	for y := 0; y < d.h; y++ {
		for x := 0; x < d.w; x++ {
			e := d.data[(y*d.w+x)*sz : (y*d.w+x)*sz+sz]
			var r, g, b float32
			switch {
			case sz >= 3:
				r, g, b = e[0], e[1], e[2]
			case sz == 1:
				r, g, b = e[0], e[0], e[0]
			}
			img.Set(x, y, color.RGBA{Quantize(r), Quantize(g), Quantize(b), 255})
		}
	}
	return img
}

// resize downsamples img to at most maxWidth pixels wide, preserving
// aspect ratio, using x/image/draw's bilinear scaler. scale is kept
// as a math/f32 vector purely to express the (sx, sy) ratio in the
// same vector type x/image's own APIs use elsewhere, rather than two
// bare float32s.
func (d *PNGDump) resize(img *image.RGBA, maxWidth int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	s := float32(maxWidth) / float32(w)
	scale := f32.Vec2{s, s}
	out := image.NewRGBA(image.Rect(0, 0, int(float32(w)*scale[0]), int(float32(h)*scale[1])))
	draw.BiLinear.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("display: writing %s: %w", path, err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

func thumbPath(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[:i] + ".thumb" + path[i:]
		}
	}
	return path + ".thumb"
}
