package batch

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/pagepress/pagepress/internal/quant"
)

// makePage builds a synthetic note page: white paper with an ink stroke
// of the given color.
func makePage(w, h int, ink color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{250, 250, 248, 255})
		}
	}
	for y := h / 4; y < h/2; y++ {
		for x := w / 4; x < 3*w/4; x++ {
			img.Set(x, y, ink)
		}
	}
	return img
}

func threePageInputs() []Input {
	black := color.RGBA{20, 20, 20, 255}
	return []Input{
		{Index: 1, Source: "p1", Image: makePage(40, 30, black)},
		{Index: 2, Source: "p2", Image: image.NewRGBA(image.Rect(0, 0, 0, 0))}, // zero-dimension page
		{Index: 3, Source: "p3", Image: makePage(40, 30, black)},
	}
}

func TestRun_FailFast(t *testing.T) {
	runner := Runner{Workers: 1, Policy: FailFast, Config: quant.DefaultConfig()}

	res, err := runner.Run(context.Background(), threePageInputs())
	if err == nil {
		t.Fatal("fail-fast batch with a broken page should fail")
	}
	if !errors.Is(err, quant.ErrEmptyImage) {
		t.Errorf("batch error: got %v, want wrapped ErrEmptyImage", err)
	}
	if len(res.Pages) != 0 {
		t.Errorf("fail-fast batch assembled %d pages, want 0", len(res.Pages))
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected at least the failing page's error to be recorded")
	}
}

func TestRun_SkipErrors(t *testing.T) {
	runner := Runner{Workers: 2, Policy: SkipErrors, Config: quant.DefaultConfig()}

	res, err := runner.Run(context.Background(), threePageInputs())
	if err != nil {
		t.Fatalf("skip-and-continue batch should not fail: %v", err)
	}

	if len(res.Pages) != 2 {
		t.Fatalf("pages: got %d, want 2", len(res.Pages))
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors: got %d, want 1", len(res.Errors))
	}
	pe := res.Errors[0]
	if pe.Index != 2 || pe.Source != "p2" {
		t.Errorf("recorded error for page %d (%s), want page 2 (p2)", pe.Index, pe.Source)
	}
	if !errors.Is(pe.Err, quant.ErrEmptyImage) {
		t.Errorf("page error: got %v, want wrapped ErrEmptyImage", pe.Err)
	}
	// The reason string distinguishes the failure from a blank page.
	if pe.Error() == "" {
		t.Error("page error has no reason string")
	}
}

func TestRun_GlobalPaletteShared(t *testing.T) {
	cfg := quant.DefaultConfig()
	cfg.GlobalPalette = true
	runner := Runner{Policy: SkipErrors, Config: cfg}

	inputs := []Input{
		{Index: 0, Source: "a", Image: makePage(40, 30, color.RGBA{20, 20, 20, 255})},
		{Index: 1, Source: "b", Image: makePage(40, 30, color.RGBA{180, 30, 30, 255})},
	}

	res, err := runner.Run(context.Background(), inputs)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.SharedPalette == nil {
		t.Fatal("global-palette batch did not record a shared palette")
	}
	if len(res.Pages) != 2 {
		t.Fatalf("pages: got %d, want 2", len(res.Pages))
	}

	shared := *res.SharedPalette
	for _, p := range res.Pages {
		pal := p.Result.Palette
		if pal.Len() != shared.Len() {
			t.Fatalf("page %s palette size %d differs from shared %d", p.Result.Source, pal.Len(), shared.Len())
		}
		for i := range pal.Colors {
			if pal.Colors[i] != shared.Colors[i] {
				t.Fatalf("page %s entry %d differs from shared palette", p.Result.Source, i)
			}
		}
	}
}

func TestRun_ValidatesConfigBeforeWork(t *testing.T) {
	cfg := quant.DefaultConfig()
	cfg.NumColors = 0
	runner := Runner{Config: cfg}

	res, err := runner.Run(context.Background(), threePageInputs())
	if !errors.Is(err, quant.ErrInvalidConfiguration) {
		t.Errorf("got %v, want ErrInvalidConfiguration", err)
	}
	if res != nil {
		t.Error("no result should be produced for an invalid configuration")
	}
}

func TestRun_EmptyInputs(t *testing.T) {
	runner := Runner{Config: quant.DefaultConfig()}

	res, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.JobID == "" {
		t.Error("batch result is missing a job ID")
	}
	if len(res.Pages) != 0 || len(res.Errors) != 0 {
		t.Error("empty batch produced pages or errors")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := Runner{Policy: SkipErrors, Config: quant.DefaultConfig()}
	res, err := runner.Run(ctx, threePageInputs())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if len(res.Pages) != 0 {
		t.Errorf("cancelled batch joined %d pages, want 0", len(res.Pages))
	}
}

func TestRun_DeterministicAcrossWorkerCounts(t *testing.T) {
	// Parallelism must not influence results: the same inputs produce
	// identical index buffers whether processed by 1 worker or 4.
	inputs := []Input{
		{Index: 0, Source: "a", Image: makePage(48, 36, color.RGBA{25, 20, 30, 255})},
		{Index: 1, Source: "b", Image: makePage(48, 36, color.RGBA{160, 40, 35, 255})},
	}

	serial := Runner{Workers: 1, Config: quant.DefaultConfig()}
	parallel := Runner{Workers: 4, Config: quant.DefaultConfig()}

	r1, err := serial.Run(context.Background(), inputs)
	if err != nil {
		t.Fatalf("serial run failed: %v", err)
	}
	r2, err := parallel.Run(context.Background(), inputs)
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	for i := range r1.Pages {
		a := r1.Pages[i].Result.Image
		b := r2.Pages[i].Result.Image
		for p := range a.Index {
			if a.Index[p] != b.Index[p] {
				t.Fatalf("page %d pixel %d differs between worker counts", i, p)
			}
		}
	}
}
