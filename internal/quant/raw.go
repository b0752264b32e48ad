package quant

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
)

// RawImage is the pipeline's immutable view of one source page: a packed
// RGB pixel buffer plus the identifier the caller knows the page by.
//
// The buffer is a private copy of the decoded image, so the pipeline
// never mutates (or retains) caller-owned data. Alpha is discarded;
// photographs of paper have no meaningful transparency.
type RawImage struct {
	// Width and Height are the page dimensions in pixels.
	Width, Height int

	// Pix holds interleaved R, G, B bytes, three per pixel, row-major.
	// The pixel at (x, y) starts at Pix[(y*Width+x)*3].
	Pix []uint8

	// Source identifies the page to the caller (typically a file path
	// or upload name). Carried through results and error messages.
	Source string
}

// NewRawImage copies a decoded image into a RawImage.
//
// Returns an error wrapping ErrUnsupportedImageFormat for a nil image and
// ErrEmptyImage when either dimension is zero.
func NewRawImage(img image.Image, source string) (*RawImage, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image for %q", ErrUnsupportedImageFormat, source)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %q is %dx%d", ErrEmptyImage, source, w, h)
	}

	// Normalize to 8-bit RGBA once, then strip alpha. clone.AsRGBA
	// handles every stdlib color model, including 16-bit and YCbCr.
	rgba := clone.AsRGBA(img)

	raw := &RawImage{
		Width:  w,
		Height: h,
		Pix:    make([]uint8, w*h*3),
		Source: source,
	}
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		dst := raw.Pix[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			dst[x*3+0] = src[x*4+0]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+2]
		}
	}
	return raw, nil
}

// RGBAt returns the 8-bit color components of the pixel at (x, y).
// Coordinates are 0-based; callers must stay within bounds.
func (r *RawImage) RGBAt(x, y int) (uint8, uint8, uint8) {
	off := (y*r.Width + x) * 3
	return r.Pix[off], r.Pix[off+1], r.Pix[off+2]
}
