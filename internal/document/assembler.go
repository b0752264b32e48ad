// Package document composes processed pages into a single ordered,
// fully-rendered document artifact.
//
// The assembler is the join point of a batch: it receives one
// (palette, posterized image) result per page, renders each as an
// indexed raster against its own palette (palette indices are never
// shared between pages), and emits the pages strictly in caller-supplied
// index order. It never reorders beyond that index, never deduplicates,
// and performs no I/O — encoding and storage belong to the output
// consumer.
package document

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/pagepress/pagepress/internal/quant"
)

// Sentinel errors for batch-fatal assembly failures.
var (
	// ErrEmptyBatch indicates assembly was requested with zero pages.
	ErrEmptyBatch = errors.New("empty batch")

	// ErrInconsistentPageSizing indicates a page whose dimensions differ
	// from the document's under the SizeStrict policy.
	ErrInconsistentPageSizing = errors.New("inconsistent page sizing")
)

// SizePolicy controls how the assembler treats pages of differing
// dimensions.
type SizePolicy int

const (
	// SizeIndependent keeps every page at its own dimensions.
	SizeIndependent SizePolicy = iota

	// SizeUniform resizes every page to the document's target size
	// (Lanczos resampling). With no explicit target, the first page by
	// index sets the size.
	SizeUniform

	// SizeStrict requires every page to match the target size exactly
	// and fails the batch otherwise.
	SizeStrict
)

// Page pairs a processed page with its caller-assigned position in the
// final document. Indices are caller-determined (upload order, explicit
// page numbers); the assembler only honors them.
type Page struct {
	Index  int
	Result *quant.Result
}

// RenderedPage is one fully-rendered page of the finished document.
type RenderedPage struct {
	Index  int
	Source string
	Raster image.Image
}

// Document is the final artifact of a batch: the rendered pages in index
// order. It is immutable after assembly and consumed only by the output
// writer.
type Document struct {
	Pages []RenderedPage
}

// Assembler composes processed pages into a Document under a sizing
// policy. The zero value assembles with independent page sizes.
type Assembler struct {
	Policy SizePolicy

	// TargetWidth and TargetHeight set the page size for SizeUniform and
	// SizeStrict. When zero, the first page (by index) defines it.
	TargetWidth, TargetHeight int
}

// Assemble renders every page with its own palette — as an indexed
// raster unless a resize expands it — and composes the document in
// ascending index order, regardless of the order pages finished
// processing in. The sort is stable, so duplicate indices keep their
// submission order.
//
// Fails with ErrEmptyBatch for zero pages and, under SizeStrict, with
// ErrInconsistentPageSizing naming the first offending page.
func (a Assembler) Assemble(pages []Page) (*Document, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages to assemble", ErrEmptyBatch)
	}

	ordered := make([]Page, len(pages))
	copy(ordered, pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	tw, th := a.TargetWidth, a.TargetHeight
	if (a.Policy == SizeUniform || a.Policy == SizeStrict) && (tw == 0 || th == 0) {
		tw = ordered[0].Result.Image.Width
		th = ordered[0].Result.Image.Height
	}

	doc := &Document{Pages: make([]RenderedPage, 0, len(ordered))}
	for _, p := range ordered {
		post := p.Result.Image
		// Indexed rasters keep the PNG encoder on the compact paletted
		// path; only a resize forces expansion to full color.
		var raster image.Image = post.Paletted()

		switch a.Policy {
		case SizeStrict:
			if post.Width != tw || post.Height != th {
				return nil, fmt.Errorf("%w: page %d (%s) is %dx%d, document is %dx%d",
					ErrInconsistentPageSizing, p.Index, p.Result.Source,
					post.Width, post.Height, tw, th)
			}
		case SizeUniform:
			if post.Width != tw || post.Height != th {
				raster = imaging.Resize(post.Render(), tw, th, imaging.Lanczos)
			}
		}

		doc.Pages = append(doc.Pages, RenderedPage{
			Index:  p.Index,
			Source: p.Result.Source,
			Raster: raster,
		})
	}
	return doc, nil
}
