package quant

import "errors"

// Sentinel errors for the fatal failure modes of the pipeline. Callers
// match them with errors.Is; every return site wraps them with context
// about the offending value or page.
var (
	// ErrInvalidConfiguration indicates a Config field outside its legal
	// range. It is raised at submission time, before any page work starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyImage indicates a page with zero width or height.
	ErrEmptyImage = errors.New("empty image")

	// ErrUnsupportedImageFormat indicates input that could not be decoded
	// into a pixel buffer the pipeline understands.
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
)
