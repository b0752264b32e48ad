package quant

import (
	"fmt"
	"image"
	"image/color"
)

// PosterizedImage is a page reduced to palette indices. It has the same
// dimensions as its source RawImage and is meaningless without the
// Palette it was quantized against, so the two always travel together.
type PosterizedImage struct {
	Width, Height int

	// Index holds one palette index per pixel, row-major. Every value
	// is in [0, Palette.Len()-1]; 0 is the background.
	Index []uint8

	// Palette is the finalized palette the indices refer to.
	Palette Palette
}

// IndexAt returns the palette index of the pixel at (x, y).
func (p *PosterizedImage) IndexAt(x, y int) uint8 {
	return p.Index[y*p.Width+x]
}

// Render expands the index buffer back into a full-color raster using
// the image's own palette. The result is a fresh *image.RGBA; the
// PosterizedImage itself is not consumed.
func (p *PosterizedImage) Render() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	// Precompute the 8-bit palette once; the render loop is per-pixel.
	rs := make([]uint8, p.Palette.Len())
	gs := make([]uint8, p.Palette.Len())
	bs := make([]uint8, p.Palette.Len())
	for i, c := range p.Palette.Colors {
		rs[i] = clamp255(c.R * 255)
		gs[i] = clamp255(c.G * 255)
		bs[i] = clamp255(c.B * 255)
	}
	for i, idx := range p.Index {
		off := i * 4
		out.Pix[off+0] = rs[idx]
		out.Pix[off+1] = gs[idx]
		out.Pix[off+2] = bs[idx]
		out.Pix[off+3] = 255
	}
	return out
}

// Paletted returns the page as a stdlib indexed image. The index buffer
// is copied, not shared. Encoding the result as PNG yields an indexed
// file, which is the compact on-disk form a posterized page exists for.
func (p *PosterizedImage) Paletted() *image.Paletted {
	out := image.NewPaletted(image.Rect(0, 0, p.Width, p.Height), p.ColorModel())
	copy(out.Pix, p.Index)
	return out
}

// ColorModel returns the palette as a stdlib color.Palette, useful for
// paletted PNG output.
func (p *PosterizedImage) ColorModel() color.Palette {
	pal := make(color.Palette, p.Palette.Len())
	for i, c := range p.Palette.Colors {
		pal[i] = color.RGBA{
			R: clamp255(c.R * 255),
			G: clamp255(c.G * 255),
			B: clamp255(c.B * 255),
			A: 255,
		}
	}
	return pal
}

// Quantize maps every pixel of the full-resolution page to the index of
// its nearest palette entry, then optionally removes small noise specks.
//
// This is the pipeline's hot path: it visits every pixel of a potentially
// multi-megapixel image, so the palette is flattened into integer
// component arrays up front and the inner loop does integer arithmetic
// against all entries with no per-pixel allocation.
//
// despeckleRadius, when positive, is the minimum connected-component
// size (4-connected, in pixels) a non-background region must have to
// survive; smaller components are reassigned to the background index.
//
// Output guarantees: dimensions match raw exactly and every index is
// valid against pal.
func Quantize(raw *RawImage, pal Palette, despeckleRadius int) (*PosterizedImage, error) {
	n := pal.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: empty palette", ErrInvalidConfiguration)
	}
	if n > 256 {
		return nil, fmt.Errorf("%w: palette has %d entries, limit 256", ErrInvalidConfiguration, n)
	}

	// Palette components at the same 8-bit precision Render emits, so
	// re-quantizing a rendered raster reproduces its index buffer.
	pr := make([]int32, n)
	pg := make([]int32, n)
	pb := make([]int32, n)
	for i, c := range pal.Colors {
		pr[i] = int32(clamp255(c.R * 255))
		pg[i] = int32(clamp255(c.G * 255))
		pb[i] = int32(clamp255(c.B * 255))
	}

	out := &PosterizedImage{
		Width:   raw.Width,
		Height:  raw.Height,
		Index:   make([]uint8, raw.Width*raw.Height),
		Palette: pal,
	}

	pix := raw.Pix
	for i := 0; i < len(out.Index); i++ {
		off := i * 3
		r := int32(pix[off])
		g := int32(pix[off+1])
		b := int32(pix[off+2])

		best := 0
		bestDist := int32(1 << 30)
		for e := 0; e < n; e++ {
			dr := r - pr[e]
			dg := g - pg[e]
			db := b - pb[e]
			if d := dr*dr + dg*dg + db*db; d < bestDist {
				bestDist = d
				best = e
			}
		}
		out.Index[i] = uint8(best)
	}

	if despeckleRadius > 0 {
		despeckle(out.Index, raw.Width, raw.Height, despeckleRadius)
	}
	return out, nil
}
