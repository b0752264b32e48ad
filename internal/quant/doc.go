// Package quant implements the posterization pipeline that turns a
// photographed note page into a small fixed palette of flat colors.
//
// The pipeline runs in four stages, each independently usable:
//
//  1. SamplePixels extracts a down-sampled, reproducible subset of the
//     page's pixels.
//  2. EstimateBackground finds the dominant paper color among the samples
//     and splits off the ink-candidate residue.
//  3. BuildPalette clusters the ink candidates into K representative
//     colors with a deterministic k-means loop.
//  4. Quantize maps every pixel of the full-resolution page to its
//     nearest palette entry, optionally removing small noise specks.
//
// Process ties the stages together for a single page. Callers that share
// one palette across several pages (see the batch package) invoke the
// stages individually instead.
//
// # Color Space
//
// All distances — during clustering and during per-pixel assignment — are
// squared Euclidean in plain RGB. Background/foreground classification
// uses HSV saturation and value. Palette colors are carried as
// colorful.Color values with channels in [0, 1].
//
// # Determinism
//
// For identical input image and Config, every stage produces bit-identical
// output across runs: sampling uses a regular stride rather than random
// selection, cluster seeds are placed along the luminance quantiles of the
// candidate samples, and all tie-breaks are resolved by fixed ordering.
//
// # Error Handling
//
// Fatal conditions are reported through the sentinel errors in errors.go
// (ErrInvalidConfiguration, ErrEmptyImage, ErrUnsupportedImageFormat),
// always wrapped with context. Clustering that hits the iteration cap
// without converging is a soft condition: the best centroid state is still
// returned and the Result records Converged=false.
package quant
