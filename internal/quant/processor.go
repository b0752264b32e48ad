package quant

import (
	"fmt"
	"image"
	"log"
)

// Result is the complete outcome of processing one page: the finalized
// palette and the index-mapped image that refers to it.
type Result struct {
	// Source identifies the page, copied from the input.
	Source string

	// Palette is the finalized palette, post adjustments included.
	Palette Palette

	// Image is the posterized page. Image.Palette == Palette.
	Image *PosterizedImage

	// Converged is false when palette clustering hit the iteration cap.
	// The result is still usable; the flag exists for operator
	// visibility.
	Converged bool
}

// Process runs the full pipeline — sample, estimate background, build
// and adjust the palette, quantize — for a single page.
//
// It either returns a complete Result or a typed error; there are no
// partial results. Possible failures: ErrInvalidConfiguration (checked
// first, before any pixel work), ErrEmptyImage, and
// ErrUnsupportedImageFormat, each wrapped with the page source.
func Process(img image.Image, source string, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	raw, err := NewRawImage(img, source)
	if err != nil {
		return nil, err
	}

	samples, err := SamplePixels(raw, cfg)
	if err != nil {
		return nil, err
	}

	bg := EstimateBackground(samples, cfg)
	if bg.Fallback {
		log.Printf("quant: %s: no low-saturation samples, using global mode as background", source)
	}

	pr := BuildPalette(bg.Color, bg.Foreground, cfg)
	if !pr.Converged {
		log.Printf("quant: %s: clustering did not converge within %d iterations, using best state", source, pr.Iterations)
	}

	return finishPage(raw, pr, cfg)
}

// ProcessWithPalette quantizes a single page against an already-built
// palette, skipping sampling and clustering. Used by batches that share
// one global palette; the palette must already be finalized (adjustments
// applied).
func ProcessWithPalette(img image.Image, source string, pal Palette, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	raw, err := NewRawImage(img, source)
	if err != nil {
		return nil, err
	}

	post, err := Quantize(raw, pal, cfg.DespeckleRadius)
	if err != nil {
		return nil, fmt.Errorf("quantize %s: %w", source, err)
	}
	return &Result{
		Source:    source,
		Palette:   pal,
		Image:     post,
		Converged: true,
	}, nil
}

// finishPage applies palette adjustments and runs the quantizer.
func finishPage(raw *RawImage, pr PaletteResult, cfg Config) (*Result, error) {
	pal := FinishPalette(pr.Palette, cfg)

	post, err := Quantize(raw, pal, cfg.DespeckleRadius)
	if err != nil {
		return nil, fmt.Errorf("quantize %s: %w", raw.Source, err)
	}
	return &Result{
		Source:    raw.Source,
		Palette:   pal,
		Image:     post,
		Converged: pr.Converged,
	}, nil
}
