package quant

import "fmt"

// Config holds the per-page processing options.
//
// The zero value is not usable; start from DefaultConfig and override
// fields as needed. A Config is passed by value into every pipeline call
// so that concurrent page workers never share mutable state.
type Config struct {
	// NumColors is K, the number of foreground (ink) palette entries.
	// The finished palette holds K+1 colors: the background plus K inks.
	NumColors int

	// SampleFraction is the fraction of the page's pixels sampled for
	// background estimation and clustering. Must be in (0, 1].
	SampleFraction float64

	// ValueThreshold separates ink from paper by HSV value: a sample
	// whose value differs from the background by at least this much is
	// treated as foreground.
	ValueThreshold float64

	// SaturationThreshold is the HSV saturation counterpart of
	// ValueThreshold.
	SaturationThreshold float64

	// Saturate rescales the foreground palette channels to the full
	// [0, 1] range before quantization, widening washed-out ink colors.
	Saturate bool

	// WhiteBackground forces palette entry 0 to pure white instead of
	// the estimated paper color.
	WhiteBackground bool

	// DespeckleRadius is the minimum connected-component size (in
	// pixels) a foreground region must have to survive quantization.
	// Smaller specks are reassigned to the background. Zero disables
	// the pass.
	DespeckleRadius int

	// GlobalPalette requests one shared palette for a whole batch,
	// built from the pooled samples of every page. Honored by the batch
	// runner; Process ignores it and always builds a per-page palette.
	GlobalPalette bool
}

// DefaultConfig returns the settings used by the reference workflow:
// six ink colors, a 5% pixel sample, and the classic 0.25/0.20
// value/saturation cutoffs.
func DefaultConfig() Config {
	return Config{
		NumColors:           6,
		SampleFraction:      0.05,
		ValueThreshold:      0.25,
		SaturationThreshold: 0.20,
		Saturate:            true,
		WhiteBackground:     true,
	}
}

// Validate checks every field against its legal range. It returns an
// error wrapping ErrInvalidConfiguration naming the first offending
// field, or nil if the configuration is usable.
func (c Config) Validate() error {
	if c.NumColors < 1 || c.NumColors > 254 {
		return fmt.Errorf("%w: num_colors %d outside [1, 254]", ErrInvalidConfiguration, c.NumColors)
	}
	if c.SampleFraction <= 0 || c.SampleFraction > 1 {
		return fmt.Errorf("%w: sample_fraction %g outside (0, 1]", ErrInvalidConfiguration, c.SampleFraction)
	}
	if c.ValueThreshold < 0 || c.ValueThreshold > 1 {
		return fmt.Errorf("%w: value_threshold %g outside [0, 1]", ErrInvalidConfiguration, c.ValueThreshold)
	}
	if c.SaturationThreshold < 0 || c.SaturationThreshold > 1 {
		return fmt.Errorf("%w: saturation_threshold %g outside [0, 1]", ErrInvalidConfiguration, c.SaturationThreshold)
	}
	if c.DespeckleRadius < 0 {
		return fmt.Errorf("%w: despeckle_radius %d is negative", ErrInvalidConfiguration, c.DespeckleRadius)
	}
	return nil
}
