package quant

import (
	"image"
	"image/color"
	"testing"
)

func TestDespeckle_RemovesIsolatedSpeck(t *testing.T) {
	w, h := 20, 20
	index := make([]uint8, w*h)
	index[5*w+5] = 1 // single isolated ink pixel

	despeckle(index, w, h, 3)

	if index[5*w+5] != 0 {
		t.Error("isolated single-pixel speck should be reassigned to background")
	}
}

func TestDespeckle_KeepsContiguousRegion(t *testing.T) {
	w, h := 20, 20
	index := make([]uint8, w*h)
	// A 10-pixel horizontal stroke.
	for x := 4; x < 14; x++ {
		index[8*w+x] = 1
	}

	despeckle(index, w, h, 3)

	for x := 4; x < 14; x++ {
		if index[8*w+x] != 1 {
			t.Fatalf("pixel (%d,8) of a 10-pixel region was removed", x)
		}
	}
}

func TestDespeckle_MixedInkIndicesFormOneComponent(t *testing.T) {
	w, h := 10, 10
	index := make([]uint8, w*h)
	// Two adjacent pixels with different ink indices: together they are
	// a component of size 2 and survive a threshold of 2.
	index[3*w+3] = 1
	index[3*w+4] = 2

	despeckle(index, w, h, 2)

	if index[3*w+3] != 1 || index[3*w+4] != 2 {
		t.Error("adjacent ink pixels of different indices should be one component")
	}
}

func TestQuantize_DespecklePostPass(t *testing.T) {
	// White page with a single black pixel and a separate 10-pixel black
	// stroke. With despeckle radius 3 the lone pixel must become
	// background while the stroke survives intact.
	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			img.Set(x, y, color.White)
		}
	}
	img.Set(3, 3, color.Black)
	for x := 10; x < 20; x++ {
		img.Set(x, 10, color.Black)
	}
	raw := mustRaw(t, img)

	post, err := Quantize(raw, testPalette, 3)
	if err != nil {
		t.Fatalf("Quantize failed: %v", err)
	}

	if got := post.IndexAt(3, 3); got != 0 {
		t.Errorf("lone speck: got index %d, want background", got)
	}
	for x := 10; x < 20; x++ {
		if got := post.IndexAt(x, 10); got != 1 {
			t.Errorf("stroke pixel (%d,10): got index %d, want 1", x, got)
		}
	}
}
