package quant

import (
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// makeSampleSet builds a SampleSet with count copies of each given color,
// interleaved in the order given.
func makeSampleSet(counts []int, colors []colorful.Color) *SampleSet {
	set := &SampleSet{Stride: 1}
	for i, c := range colors {
		for n := 0; n < counts[i]; n++ {
			set.Colors = append(set.Colors, c)
		}
	}
	return set
}

func TestEstimateBackground_PaperDominates(t *testing.T) {
	paper := colorful.Color{R: 0.95, G: 0.94, B: 0.92}
	ink := colorful.Color{R: 0.1, G: 0.1, B: 0.12}
	set := makeSampleSet([]int{80, 20}, []colorful.Color{paper, ink})

	got := EstimateBackground(set, DefaultConfig())

	if got.Fallback {
		t.Error("Fallback should be false when paper samples pass the threshold")
	}
	if rgbDistance(got.Color, paper) > 0.02 {
		t.Errorf("background: got %v, want close to %v", got.Color, paper)
	}
	if len(got.Foreground.Colors) != 20 {
		t.Errorf("foreground residue: got %d samples, want 20", len(got.Foreground.Colors))
	}
	for _, c := range got.Foreground.Colors {
		if rgbDistance(c, ink) > 1e-9 {
			t.Fatalf("unexpected foreground sample %v", c)
		}
	}
}

func TestEstimateBackground_FallbackOnSaturatedPage(t *testing.T) {
	// Fully saturated colors: nothing passes the low-saturation paper
	// test, so the estimator must fall back to the global mode instead
	// of failing.
	red := colorful.Color{R: 1, G: 0, B: 0}
	green := colorful.Color{R: 0, G: 1, B: 0}
	set := makeSampleSet([]int{60, 40}, []colorful.Color{red, green})

	got := EstimateBackground(set, DefaultConfig())

	if !got.Fallback {
		t.Error("Fallback should be true when no sample passes the threshold")
	}
	if rgbDistance(got.Color, red) > 0.02 {
		t.Errorf("background: got %v, want the most frequent color %v", got.Color, red)
	}
}

func TestEstimateBackground_NearDuplicateShadesShareOneMode(t *testing.T) {
	// Two paper shades within one 6-bit bucket must count as one mode
	// and beat a slightly more frequent but isolated third shade.
	paperA := colorful.Color{R: 0.940, G: 0.940, B: 0.940}
	paperB := colorful.Color{R: 0.945, G: 0.945, B: 0.945} // same bucket as paperA
	other := colorful.Color{R: 0.85, G: 0.85, B: 0.85}
	set := makeSampleSet([]int{30, 30, 45}, []colorful.Color{paperA, paperB, other})

	got := EstimateBackground(set, DefaultConfig())

	if rgbDistance(got.Color, paperA) > 0.02 {
		t.Errorf("background: got %v, want the bucketed paper shade near %v", got.Color, paperA)
	}
}

func TestEstimateBackground_ForegroundRule(t *testing.T) {
	cfg := DefaultConfig()
	paper := colorful.Color{R: 1, G: 1, B: 1}

	tests := []struct {
		name   string
		sample colorful.Color
		wantFG bool
	}{
		{"dark ink by value", colorful.Color{R: 0.2, G: 0.2, B: 0.2}, true},
		{"saturated ink by saturation", colorful.Color{R: 0.95, G: 0.6, B: 0.6}, true},
		{"paper shade stays background", colorful.Color{R: 0.95, G: 0.95, B: 0.95}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := makeSampleSet([]int{90, 10}, []colorful.Color{paper, tt.sample})
			got := EstimateBackground(set, cfg)

			inFG := false
			for _, c := range got.Foreground.Colors {
				if rgbDistance(c, tt.sample) < 1e-9 {
					inFG = true
					break
				}
			}
			if inFG != tt.wantFG {
				t.Errorf("sample %v in foreground: got %t, want %t", tt.sample, inFG, tt.wantFG)
			}
		})
	}
}
