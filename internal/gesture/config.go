package gesture

import (
	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/tracking"
)

// Config tunes dragging and throw classification.
type Config struct {
	EdgeMarginM      float64 // kept clear of the desktop edge, beyond the plate radius
	Smoothing        float64 // weight of the previous rendered position, [0,1)
	LiftM            float64 // drag height above resting
	TapThresholdM    float64
	WindowSamples    int
	WindowSeconds    float64
	AmpHand          float64
	AmpController    float64
	AmpScreen        float64
	VerticalDamping  float64 // fraction of vertical release velocity kept
	MaxThrowMps      float64
	AngularJitter    float64 // rad/s
	DropoutTimeout   float64 // seconds without a pointer pose before a forced release
	SelectingTimeout float64 // seconds to resolve a target after select start
	SampleCapacity   int
}

// DefaultConfig returns the built-in tuning.
func DefaultConfig() Config { return ConfigFromTuning(nil) }

// ConfigFromTuning reads gesture tuning; nil uses defaults.
func ConfigFromTuning(t *config.TuningConfig) Config {
	if t == nil {
		t = config.EmptyTuningConfig()
	}
	return Config{
		EdgeMarginM:      t.GetDragEdgeMarginM(),
		Smoothing:        t.GetDragSmoothing(),
		LiftM:            t.GetDragLiftM(),
		TapThresholdM:    t.GetTapThresholdM(),
		WindowSamples:    t.GetVelocityWindowSamples(),
		WindowSeconds:    t.GetVelocityWindow().Seconds(),
		AmpHand:          t.GetAmplificationHand(),
		AmpController:    t.GetAmplificationController(),
		AmpScreen:        t.GetAmplificationScreen(),
		VerticalDamping:  t.GetVerticalDamping(),
		MaxThrowMps:      t.GetMaxThrowVelocityMps(),
		AngularJitter:    t.GetAngularJitterRadps(),
		DropoutTimeout:   t.GetPointerDropoutTimeout().Seconds(),
		SelectingTimeout: t.GetSelectingTimeout().Seconds(),
		SampleCapacity:   t.GetSampleCapacity(),
	}
}

// Amplification returns the throw multiplier for a pointer kind. Tracked
// hands and controllers move slower than an equivalent on-screen swipe.
func (c Config) Amplification(kind tracking.PointerKind) float64 {
	switch kind {
	case tracking.PointerHand:
		return c.AmpHand
	case tracking.PointerController:
		return c.AmpController
	default:
		return c.AmpScreen
	}
}
