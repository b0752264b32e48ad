package quant

import (
	"math"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// maxIterations caps the k-means refinement loop. Hitting the cap is
	// common on noisy photographs and treated as a soft condition.
	maxIterations = 40

	// convergenceTol is the centroid movement (RGB Euclidean) below which
	// the loop is considered converged.
	convergenceTol = 1e-4

	// MinEntryDistance is the minimum RGB Euclidean distance between any
	// two entries of a finalized palette. Centroids that converge closer
	// than this are pushed apart so no two entries are degenerate
	// duplicates.
	MinEntryDistance = 0.02
)

// Palette is the fixed, ordered set of colors a page is posterized to.
// Entry 0 is always the background (paper) color; entries 1..K are the
// foreground ink centroids. Once finalized a Palette is never modified.
type Palette struct {
	Colors []colorful.Color
}

// Len returns the number of entries, background included.
func (p Palette) Len() int { return len(p.Colors) }

// Background returns entry 0.
func (p Palette) Background() colorful.Color { return p.Colors[0] }

// Nearest returns the index of the entry closest to c under squared
// Euclidean RGB distance, the same metric used during clustering.
func (p Palette) Nearest(c colorful.Color) int {
	best, bestDist := 0, math.MaxFloat64
	for i, e := range p.Colors {
		dr := c.R - e.R
		dg := c.G - e.G
		db := c.B - e.B
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// PaletteResult is the outcome of palette construction for one sample
// set.
type PaletteResult struct {
	Palette Palette

	// Converged is false when the refinement loop hit maxIterations
	// before centroid movement dropped below tolerance. The palette is
	// still the best state reached; callers log this, they do not fail.
	Converged bool

	// Iterations is the number of refinement passes executed.
	Iterations int
}

// BuildPalette clusters the foreground-candidate samples into at most
// cfg.NumColors ink colors and prepends the background, producing a
// finalized palette.
//
// The refinement loop is plain k-means over RGB coordinates. Seeds are
// the candidate colors nearest the evenly spaced luminance quantiles of
// the candidate set, which makes the outcome a pure function of the
// input: identical samples and configuration always yield an identical
// palette.
//
// Edge cases: when the candidates contain fewer distinct colors than
// cfg.NumColors the palette is clamped to the distinct count, and a page
// with no foreground at all yields a single-entry (background only)
// palette.
func BuildPalette(background colorful.Color, fg *SampleSet, cfg Config) PaletteResult {
	distinct := distinctColors(fg.Colors)
	k := cfg.NumColors
	if k > len(distinct) {
		k = len(distinct)
	}
	if k == 0 {
		return PaletteResult{
			Palette:   Palette{Colors: separateEntries([]colorful.Color{background})},
			Converged: true,
		}
	}

	seeds := luminanceSeeds(distinct, k)
	cc := make(clusters.Clusters, k)
	for i, s := range seeds {
		cc[i].Center = clusters.Coordinates{s.R, s.G, s.B}
	}

	obs := make(clusters.Observations, len(fg.Colors))
	for i, c := range fg.Colors {
		obs[i] = clusters.Coordinates{c.R, c.G, c.B}
	}

	converged := false
	iterations := 0
	prev := make([]clusters.Coordinates, k)
	for it := 0; it < maxIterations; it++ {
		iterations = it + 1
		cc.Reset()
		for _, o := range obs {
			cc[cc.Nearest(o)].Append(o)
		}
		for i := range cc {
			prev[i] = clusters.Coordinates{cc[i].Center[0], cc[i].Center[1], cc[i].Center[2]}
		}
		cc.Recenter()

		move := 0.0
		for i := range cc {
			if d := math.Sqrt(prev[i].Distance(cc[i].Center)); d > move {
				move = d
			}
		}
		if move <= convergenceTol {
			converged = true
			break
		}
	}

	entries := make([]colorful.Color, 0, k+1)
	entries = append(entries, background)
	for i := range cc {
		entries = append(entries, colorful.Color{
			R: cc[i].Center[0],
			G: cc[i].Center[1],
			B: cc[i].Center[2],
		}.Clamped())
	}

	return PaletteResult{
		Palette:    Palette{Colors: separateEntries(entries)},
		Converged:  converged,
		Iterations: iterations,
	}
}

// FinishPalette applies the configured post adjustments and returns a new
// palette: WhiteBackground replaces entry 0 with pure white, and Saturate
// stretches the foreground channels to the full [0, 1] range (a contrast
// stretch of the inks, leaving the pixels untouched). The distinctness
// invariant is re-established afterwards.
func FinishPalette(p Palette, cfg Config) Palette {
	out := make([]colorful.Color, len(p.Colors))
	copy(out, p.Colors)

	if cfg.WhiteBackground && len(out) > 0 {
		out[0] = colorful.Color{R: 1, G: 1, B: 1}
	}

	if cfg.Saturate && len(out) > 1 {
		vals := make([]float64, 0, (len(out)-1)*3)
		for _, c := range out[1:] {
			vals = append(vals, c.R, c.G, c.B)
		}
		lo, hi := floats.Min(vals), floats.Max(vals)
		if span := hi - lo; span > 1e-6 {
			for i, c := range out[1:] {
				out[i+1] = colorful.Color{
					R: (c.R - lo) / span,
					G: (c.G - lo) / span,
					B: (c.B - lo) / span,
				}
			}
		}
	}

	return Palette{Colors: separateEntries(out)}
}

// distinctColors deduplicates colors at 8-bit precision, keeping the
// result sorted by luminance (ties by packed RGB value) so downstream
// seeding is order-independent.
func distinctColors(colors []colorful.Color) []colorful.Color {
	seen := make(map[uint32]colorful.Color, len(colors))
	keys := make([]uint32, 0, len(colors))
	for _, c := range colors {
		key := uint32(clamp255(c.R*255))<<16 | uint32(clamp255(c.G*255))<<8 | uint32(clamp255(c.B*255))
		if _, ok := seen[key]; !ok {
			seen[key] = c
			keys = append(keys, key)
		}
	}
	out := make([]colorful.Color, 0, len(keys))
	for _, key := range keys {
		out = append(out, seen[key])
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := luminance(out[i]), luminance(out[j])
		if li != lj {
			return li < lj
		}
		return packRGB6(out[i]) < packRGB6(out[j])
	})
	return out
}

// luminanceSeeds picks k seed colors at the evenly spaced luminance
// quantiles of the (luminance-sorted) candidates, never reusing a
// candidate.
func luminanceSeeds(sorted []colorful.Color, k int) []colorful.Color {
	lums := make([]float64, len(sorted))
	for i, c := range sorted {
		lums[i] = luminance(c)
	}

	used := make([]bool, len(sorted))
	seeds := make([]colorful.Color, 0, k)
	for i := 0; i < k; i++ {
		q := (float64(i) + 0.5) / float64(k)
		target := stat.Quantile(q, stat.Empirical, lums, nil)
		idx := sort.SearchFloat64s(lums, target)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		for used[idx] {
			idx = (idx + 1) % len(sorted)
		}
		used[idx] = true
		seeds = append(seeds, sorted[idx])
	}
	return seeds
}

// separateEntries enforces the palette distinctness invariant: any entry
// within MinEntryDistance of an earlier entry is pushed directly away
// from it; an entry that cannot be separated (fully saturated corner
// cases) is dropped rather than kept as a degenerate duplicate.
func separateEntries(entries []colorful.Color) []colorful.Color {
	out := make([]colorful.Color, 0, len(entries))
	for _, e := range entries {
		c := e
		for attempt := 0; attempt < 8; attempt++ {
			conflict := -1
			for j, prev := range out {
				if rgbDistance(c, prev) < MinEntryDistance {
					conflict = j
					break
				}
			}
			if conflict < 0 {
				out = append(out, c)
				break
			}
			c = pushAway(c, out[conflict])
		}
	}
	return out
}

// pushAway moves c to MinEntryDistance (with a small margin) from anchor
// along their connecting line, clamped to the RGB cube. Coincident colors
// are nudged along the luminance axis instead.
func pushAway(c, anchor colorful.Color) colorful.Color {
	dr := c.R - anchor.R
	dg := c.G - anchor.G
	db := c.B - anchor.B
	n := math.Sqrt(dr*dr + dg*dg + db*db)
	scale := MinEntryDistance * 1.05
	if n < 1e-9 {
		dir := 1.0
		if luminance(anchor) > 0.5 {
			dir = -1.0
		}
		return colorful.Color{
			R: c.R + dir*scale,
			G: c.G + dir*scale,
			B: c.B + dir*scale,
		}.Clamped()
	}
	return colorful.Color{
		R: anchor.R + dr/n*scale,
		G: anchor.G + dg/n*scale,
		B: anchor.B + db/n*scale,
	}.Clamped()
}

// rgbDistance is plain Euclidean distance in RGB, the pipeline's single
// color metric.
func rgbDistance(a, b colorful.Color) float64 {
	dr := a.R - b.R
	dg := a.G - b.G
	db := a.B - b.B
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// luminance is the ITU-R BT.601 weighted sum used for seeding and
// deterministic ordering.
func luminance(c colorful.Color) float64 {
	return 0.299*c.R + 0.587*c.G + 0.114*c.B
}
