package gesture

import (
	"math/rand"

	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

// Release describes how a dragged body was let go.
type Release struct {
	Tap           bool
	Velocity      mgl64.Vec3 // launch velocity, zero for a tap
	Angular       mgl64.Vec3
	Displacement  float64 // first to last sample
	Samples       int     // samples used for the estimate
	Amplification float64
}

// Classify turns a drag history into a tap or a throw. A history shorter
// than two samples or one that moved less than the tap threshold is a tap.
// Otherwise the recent window's velocity is amplified for the pointer kind,
// its vertical part damped and the result clamped to the maximum throw
// speed. rng adds a small spin about the vertical axis; nil disables it.
func Classify(samples []geometry.Sample, kind tracking.PointerKind, cfg Config, rng *rand.Rand) Release {
	r := Release{Displacement: geometry.Displacement(samples)}
	if len(samples) < 2 || r.Displacement < cfg.TapThresholdM {
		r.Tap = true
		return r
	}

	window := geometry.RecentWindow(samples, cfg.WindowSamples, cfg.WindowSeconds)
	r.Samples = len(window)
	r.Amplification = cfg.Amplification(kind)

	v := geometry.EstimateVelocity(window, 0, 0).Mul(r.Amplification)
	v[1] *= cfg.VerticalDamping
	r.Velocity = geometry.ClampMagnitude(v, cfg.MaxThrowMps)

	if rng != nil && cfg.AngularJitter > 0 {
		r.Angular = mgl64.Vec3{0, (rng.Float64()*2 - 1) * cfg.AngularJitter, 0}
	}
	return r
}
