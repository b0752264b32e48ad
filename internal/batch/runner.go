// Package batch schedules page processing across a bounded worker pool.
//
// Pages are independent units of work: each worker owns its page's
// sample set, palette, and posterized image exclusively until the final
// join, so there is no shared mutable state to synchronize. The only
// barrier is the end of the batch — results are handed over together,
// ordered by the caller-supplied page index, never by completion time.
//
// Failure handling is an explicit policy, not implicit behavior: a batch
// either fails fast on the first page error (required when the output
// must be contiguous) or skips failed pages and reports them alongside
// the survivors.
package batch

import (
	"context"
	"fmt"
	"image"
	"log"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/pagepress/pagepress/internal/document"
	"github.com/pagepress/pagepress/internal/quant"
)

// Policy selects how a batch reacts to a per-page failure.
type Policy int

const (
	// FailFast cancels the batch on the first page error; no document is
	// produced and already-completed pages are discarded.
	FailFast Policy = iota

	// SkipErrors drops failed pages from the document and records a
	// PageError for each, so a failed page is never silently absent.
	SkipErrors
)

// Input is one page submitted to a batch. Index is the page's position
// in the final document; Source identifies it in logs and errors.
type Input struct {
	Index  int
	Source string
	Image  image.Image
}

// PageError records the failure of a single page. The wrapped error
// carries the reason, which distinguishes a failed page from a
// successfully-blank one.
type PageError struct {
	Index  int
	Source string
	Err    error
}

func (e PageError) Error() string {
	return fmt.Sprintf("page %d (%s): %v", e.Index, e.Source, e.Err)
}

func (e PageError) Unwrap() error { return e.Err }

// Result is the outcome of one batch run: the successful pages (in input
// order, ready for the assembler) and the per-page errors, plus the
// shared palette when the batch was configured with GlobalPalette.
type Result struct {
	JobID         string
	Pages         []document.Page
	Errors        []PageError
	SharedPalette *quant.Palette
}

// Runner executes batches of pages under one ProcessingConfig.
type Runner struct {
	// Workers bounds the worker pool. Zero means runtime.NumCPU().
	Workers int

	// Policy is the per-page failure policy.
	Policy Policy

	// Config is applied to every page of the batch.
	Config quant.Config
}

// Run processes all inputs and joins the results.
//
// The configuration is validated before any page work starts; an invalid
// configuration fails the whole job immediately. Under FailFast the
// first page error cancels the batch and Run returns it (wrapped) with
// zero pages in the result. Under SkipErrors Run returns nil even when
// pages failed; callers inspect Result.Errors.
//
// Cancelling ctx abandons not-yet-started pages and returns ctx's error;
// completed pages are not joined into a document.
func (r Runner) Run(ctx context.Context, inputs []Input) (*Result, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}

	res := &Result{JobID: uuid.NewString()}
	if len(inputs) == 0 {
		return res, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("batch %s: processing %d pages (policy=%d, global_palette=%t)",
		res.JobID, len(inputs), r.Policy, r.Config.GlobalPalette)

	var (
		results = make([]*quant.Result, len(inputs))
		pageErr = make([]error, len(inputs))
	)

	if r.Config.GlobalPalette {
		r.runGlobal(ctx, cancel, inputs, results, pageErr, res)
	} else {
		r.runWorkers(ctx, len(inputs), func(i int) {
			out, err := quant.Process(inputs[i].Image, inputs[i].Source, r.Config)
			if err != nil {
				pageErr[i] = err
				if r.Policy == FailFast {
					cancel()
				}
				return
			}
			results[i] = out
		})
	}

	for i, in := range inputs {
		switch {
		case pageErr[i] != nil:
			res.Errors = append(res.Errors, PageError{Index: in.Index, Source: in.Source, Err: pageErr[i]})
		case results[i] != nil:
			res.Pages = append(res.Pages, document.Page{Index: in.Index, Result: results[i]})
		}
	}

	if r.Policy == FailFast && len(res.Errors) > 0 {
		res.Pages = nil
		log.Printf("batch %s: failed: %v", res.JobID, res.Errors[0])
		return res, fmt.Errorf("batch %s: %w", res.JobID, res.Errors[0])
	}
	if err := ctx.Err(); err != nil {
		// External cancellation: abandoned pages are not reported as
		// page failures and completed ones are not joined.
		res.Pages = nil
		return res, err
	}

	log.Printf("batch %s: done, %d pages ok, %d failed", res.JobID, len(res.Pages), len(res.Errors))
	return res, nil
}

// runGlobal implements the shared-palette path: a pooled sampling pass
// across every page, one palette build, then parallel quantization of
// each page against the shared palette.
func (r Runner) runGlobal(ctx context.Context, cancel context.CancelFunc, inputs []Input,
	results []*quant.Result, pageErr []error, res *Result) {

	raws := make([]*quant.RawImage, len(inputs))
	sets := make([]*quant.SampleSet, len(inputs))

	r.runWorkers(ctx, len(inputs), func(i int) {
		raw, err := quant.NewRawImage(inputs[i].Image, inputs[i].Source)
		if err == nil {
			sets[i], err = quant.SamplePixels(raw, r.Config)
		}
		if err != nil {
			pageErr[i] = err
			if r.Policy == FailFast {
				cancel()
			}
			return
		}
		raws[i] = raw
	})
	if ctx.Err() != nil {
		return
	}

	pooled := quant.MergeSampleSets(sets)
	if len(pooled.Colors) == 0 {
		return
	}
	bg := quant.EstimateBackground(pooled, r.Config)
	if bg.Fallback {
		log.Printf("batch %s: no low-saturation samples in pooled set, using global mode as background", res.JobID)
	}
	pr := quant.BuildPalette(bg.Color, bg.Foreground, r.Config)
	if !pr.Converged {
		log.Printf("batch %s: shared palette clustering did not converge within %d iterations, using best state",
			res.JobID, pr.Iterations)
	}
	pal := quant.FinishPalette(pr.Palette, r.Config)
	res.SharedPalette = &pal

	r.runWorkers(ctx, len(inputs), func(i int) {
		if raws[i] == nil {
			return
		}
		post, err := quant.Quantize(raws[i], pal, r.Config.DespeckleRadius)
		if err != nil {
			pageErr[i] = err
			if r.Policy == FailFast {
				cancel()
			}
			return
		}
		results[i] = &quant.Result{
			Source:    raws[i].Source,
			Palette:   pal,
			Image:     post,
			Converged: pr.Converged,
		}
	})
}

// runWorkers fans n jobs out over the configured worker pool and joins
// them. A cancelled context makes remaining jobs no-ops, which is how
// both fail-fast and external cancellation abandon not-yet-started
// pages.
func (r Runner) runWorkers(ctx context.Context, n int, fn func(i int)) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
