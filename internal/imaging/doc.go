// Package imaging handles the file-side of the pipeline: decoding page
// photographs into image.Image values the core packages consume.
//
// The core (internal/quant, internal/document, internal/batch) never
// touches the filesystem; this package, driven by the command-line front
// end, is where disk I/O lives.
//
// # Supported Formats
//
// PNG, JPEG, GIF (stdlib) plus BMP, TIFF, and WebP (golang.org/x/image),
// registered once at init. Anything else surfaces as a typed
// unsupported-format error on the offending page.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use; batch workers may load pages in
// parallel through one shared cache.
package imaging
