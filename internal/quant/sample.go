package quant

import (
	"fmt"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// SampleSet is an ordered subset of one page's pixel colors, used for
// background estimation and palette clustering so those stages never
// touch full-resolution data. It is transient: created for one page (or
// pooled across a batch for a shared palette) and discarded once the
// palette exists.
type SampleSet struct {
	// Colors are the sampled pixel colors in stride order.
	Colors []colorful.Color

	// Stride is the nominal pixel distance between consecutive samples
	// in the source's row-major order, i.e. the resolution scale factor
	// between the sample set and the page it was drawn from.
	Stride int
}

// SamplePixels draws ceil(width*height*fraction) pixels spread evenly
// across the page in row-major order. Sample i sits at pixel i*total/n,
// so the positions span the whole image for every legal fraction — the
// last sample always lands within the final stride of the buffer.
// Position-based selection (rather than random selection) keeps the
// sample — and therefore every downstream palette — reproducible across
// runs on identical input.
//
// Returns an error wrapping ErrInvalidConfiguration when
// cfg.SampleFraction lies outside (0, 1].
func SamplePixels(raw *RawImage, cfg Config) (*SampleSet, error) {
	if cfg.SampleFraction <= 0 || cfg.SampleFraction > 1 {
		return nil, fmt.Errorf("%w: sample_fraction %g outside (0, 1]", ErrInvalidConfiguration, cfg.SampleFraction)
	}

	total := raw.Width * raw.Height
	n := int(math.Ceil(float64(total) * cfg.SampleFraction))
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	stride := total / n
	if stride < 1 {
		stride = 1
	}

	set := &SampleSet{
		Colors: make([]colorful.Color, 0, n),
		Stride: stride,
	}
	for i := 0; i < n; i++ {
		off := (i * total / n) * 3
		set.Colors = append(set.Colors, colorful.Color{
			R: float64(raw.Pix[off]) / 255.0,
			G: float64(raw.Pix[off+1]) / 255.0,
			B: float64(raw.Pix[off+2]) / 255.0,
		})
	}
	return set, nil
}

// MergeSampleSets pools several pages' samples into one set, preserving
// page order then sample order. Used when a batch shares a single
// palette. The pooled set keeps the smallest stride of its inputs.
func MergeSampleSets(sets []*SampleSet) *SampleSet {
	merged := &SampleSet{}
	for _, s := range sets {
		if s == nil {
			continue
		}
		if merged.Stride == 0 || (s.Stride > 0 && s.Stride < merged.Stride) {
			merged.Stride = s.Stride
		}
		merged.Colors = append(merged.Colors, s.Colors...)
	}
	if merged.Stride == 0 {
		merged.Stride = 1
	}
	return merged
}
