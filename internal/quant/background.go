package quant

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// BackgroundResult is the outcome of background estimation for one
// sample set.
type BackgroundResult struct {
	// Color is the estimated paper color, palette entry 0.
	Color colorful.Color

	// Foreground holds the residual ink-candidate samples for the
	// clustering stage.
	Foreground *SampleSet

	// Fallback reports that no sample passed the low-saturation /
	// high-value paper test and the globally most frequent color was
	// used instead. Happens on fully saturated pages.
	Fallback bool
}

// EstimateBackground determines the dominant paper color of a page.
//
// Paper is near-uniform and desaturated, so samples are first classified
// as background candidates (saturation at most cfg.SaturationThreshold
// and value at least 1-cfg.ValueThreshold in HSV). The background is the
// most frequent color among the candidates, counted in 6-bits-per-channel
// buckets so near-duplicate shades of the same paper collapse into one
// mode; the returned color is the mean of the winning bucket's members.
//
// Estimating the background by mode — instead of letting it participate
// in clustering — keeps the dominant paper mass from crowding ink colors
// out of the palette.
//
// The residual foreground set contains every sample whose value or
// saturation differs from the background by at least the corresponding
// threshold.
func EstimateBackground(samples *SampleSet, cfg Config) *BackgroundResult {
	candidates := make([]colorful.Color, 0, len(samples.Colors))
	for _, c := range samples.Colors {
		_, s, v := c.Hsv()
		if s <= cfg.SaturationThreshold && v >= 1-cfg.ValueThreshold {
			candidates = append(candidates, c)
		}
	}

	fallback := len(candidates) == 0
	if fallback {
		candidates = samples.Colors
	}
	bg := modeColor(candidates)

	_, bgSat, bgVal := bg.Hsv()
	fg := &SampleSet{Stride: samples.Stride}
	for _, c := range samples.Colors {
		_, s, v := c.Hsv()
		if abs64(v-bgVal) >= cfg.ValueThreshold || abs64(s-bgSat) >= cfg.SaturationThreshold {
			fg.Colors = append(fg.Colors, c)
		}
	}

	return &BackgroundResult{
		Color:      bg,
		Foreground: fg,
		Fallback:   fallback,
	}
}

// modeColor returns the most frequent color in colors under 6-bit bucket
// quantization. Ties break toward the numerically smallest bucket key so
// the result never depends on map iteration order.
func modeColor(colors []colorful.Color) colorful.Color {
	type bucket struct {
		r, g, b float64
		count   int
	}
	buckets := make(map[uint32]*bucket)
	for _, c := range colors {
		key := packRGB6(c)
		bk := buckets[key]
		if bk == nil {
			bk = &bucket{}
			buckets[key] = bk
		}
		bk.r += c.R
		bk.g += c.G
		bk.b += c.B
		bk.count++
	}

	var bestKey uint32
	best := (*bucket)(nil)
	for key, bk := range buckets {
		if best == nil || bk.count > best.count || (bk.count == best.count && key < bestKey) {
			best = bk
			bestKey = key
		}
	}
	if best == nil {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	n := float64(best.count)
	return colorful.Color{R: best.r / n, G: best.g / n, B: best.b / n}
}

// packRGB6 quantizes a color to 6 bits per channel and packs it into an
// 18-bit key.
func packRGB6(c colorful.Color) uint32 {
	r := uint32(clamp255(c.R*255)) >> 2
	g := uint32(clamp255(c.G*255)) >> 2
	b := uint32(clamp255(c.B*255)) >> 2
	return r<<12 | g<<6 | b
}

func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
