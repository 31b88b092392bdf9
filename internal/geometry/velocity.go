package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/stat"
)

// minVelocitySpan is the shortest sample time span (seconds) over which a
// slope is meaningful.
const minVelocitySpan = 1e-4

// Sample is one timestamped position of a tracked pointer or body.
type Sample struct {
	Position mgl64.Vec3
	Time     float64 // seconds, monotonic within a session
}

// RecentWindow returns the tail of samples limited to at most window
// entries and to those no older than maxAge before the newest sample.
// window <= 0 and maxAge <= 0 disable the respective limit.
func RecentWindow(samples []Sample, window int, maxAge float64) []Sample {
	if len(samples) == 0 {
		return nil
	}
	start := 0
	if window > 0 && len(samples) > window {
		start = len(samples) - window
	}
	newest := samples[len(samples)-1].Time
	if maxAge > 0 {
		for start < len(samples)-1 && newest-samples[start].Time > maxAge {
			start++
		}
	}
	return samples[start:]
}

// EstimateVelocity fits a weighted least-squares line to each axis of the
// recent window of samples and returns the slopes. Weights ramp linearly so
// the newest motion dominates. Fewer than two samples, or samples spanning
// no time, yield zero velocity.
func EstimateVelocity(samples []Sample, window int, maxAge float64) mgl64.Vec3 {
	w := RecentWindow(samples, window, maxAge)
	if len(w) < 2 {
		return mgl64.Vec3{}
	}
	if w[len(w)-1].Time-w[0].Time < minVelocitySpan {
		return mgl64.Vec3{}
	}

	ts := make([]float64, len(w))
	weights := make([]float64, len(w))
	axis := [3][]float64{make([]float64, len(w)), make([]float64, len(w)), make([]float64, len(w))}
	for i, s := range w {
		ts[i] = s.Time - w[0].Time
		weights[i] = float64(i + 1)
		for a := 0; a < 3; a++ {
			axis[a][i] = s.Position[a]
		}
	}

	var v mgl64.Vec3
	for a := 0; a < 3; a++ {
		_, beta := stat.LinearRegression(ts, axis[a], weights, false)
		if math.IsNaN(beta) || math.IsInf(beta, 0) {
			return mgl64.Vec3{}
		}
		v[a] = beta
	}
	return v
}

// Displacement returns the straight-line distance from the first to the
// last sample.
func Displacement(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	return samples[len(samples)-1].Position.Sub(samples[0].Position).Len()
}

// ClampMagnitude scales v down so its length does not exceed max.
func ClampMagnitude(v mgl64.Vec3, max float64) mgl64.Vec3 {
	l := v.Len()
	if max <= 0 || l <= max || l == 0 {
		return v
	}
	return v.Mul(max / l)
}
