package surface

import (
	"math"

	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

// Orientation is the catalog's classification of a plane.
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
	OrientationOther      Orientation = "other"
)

// Verdict is the outcome of the rejection policy for one plane.
type Verdict int

const (
	Accepted Verdict = iota
	RejectedCeiling
	RejectedFloor
	RejectedNonHorizontal
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case RejectedCeiling:
		return "ceiling"
	case RejectedFloor:
		return "floor"
	case RejectedNonHorizontal:
		return "non-horizontal"
	default:
		return "unknown"
	}
}

// Config holds the rejection policy. The thresholds are empirical; treat
// them as tunables rather than meaningful constants.
type Config struct {
	// CeilingHeightM rejects planes above this height (ceilings, shelves).
	CeilingHeightM float64
	// FloorMaxHeightM and FloorMinAreaM2 together reject large low planes.
	// A plane is floor-like when it is both below FloorMaxHeightM and larger
	// than FloorMinAreaM2.
	FloorMaxHeightM float64
	FloorMinAreaM2  float64
	// HorizontalToleranceDeg is the maximum angle between a plane normal and
	// the vertical for the plane to count as horizontal.
	HorizontalToleranceDeg float64
}

// DefaultConfig returns the policy for a typical room.
func DefaultConfig() Config {
	return ConfigFromTuning(nil)
}

// ConfigFromTuning reads the policy from tuning, using defaults for any
// missing value or a nil tuning.
func ConfigFromTuning(t *config.TuningConfig) Config {
	if t == nil {
		t = config.EmptyTuningConfig()
	}
	return Config{
		CeilingHeightM:         t.GetCeilingHeightM(),
		FloorMaxHeightM:        t.GetFloorMaxHeightM(),
		FloorMinAreaM2:         t.GetFloorMinAreaM2(),
		HorizontalToleranceDeg: t.GetHorizontalToleranceDeg(),
	}
}

// RejectionFilter applies the height/area policy to horizontal planes and
// keeps statistics for tuning.
type RejectionFilter struct {
	Config

	// Statistics (optional, for tuning and validation)
	processed     int64
	accepted      int64
	aboveCeiling  int64
	floorLike     int64
	nonHorizontal int64
}

// NewRejectionFilter constructs a filter with the given policy.
func NewRejectionFilter(cfg Config) *RejectionFilter {
	return &RejectionFilter{Config: cfg}
}

// Classify returns the orientation of a plane. The runtime's own hint wins
// when present; otherwise the normal is compared to the vertical. Planes
// facing down (ceilings) count as horizontal.
func (f *RejectionFilter) Classify(hint tracking.OrientationHint, pose geometry.Pose) Orientation {
	switch hint {
	case tracking.OrientationHorizontal:
		return OrientationHorizontal
	case tracking.OrientationVertical:
		return OrientationVertical
	}
	return classifyNormal(pose.Normal(), f.HorizontalToleranceDeg)
}

func classifyNormal(n mgl64.Vec3, toleranceDeg float64) Orientation {
	l := n.Len()
	if l == 0 {
		return OrientationOther
	}
	upness := math.Abs(n.Dot(geometry.Up)) / l
	tilt := mgl64.RadToDeg(math.Acos(mgl64.Clamp(upness, -1, 1)))
	switch {
	case tilt <= toleranceDeg:
		return OrientationHorizontal
	case tilt >= 90-toleranceDeg:
		return OrientationVertical
	default:
		return OrientationOther
	}
}

// Evaluate applies the policy to a plane's orientation, height and area and
// records the outcome.
func (f *RejectionFilter) Evaluate(o Orientation, heightM, areaM2 float64) Verdict {
	f.processed++
	switch {
	case o != OrientationHorizontal:
		f.nonHorizontal++
		return RejectedNonHorizontal
	case heightM > f.CeilingHeightM:
		f.aboveCeiling++
		return RejectedCeiling
	case heightM < f.FloorMaxHeightM && areaM2 > f.FloorMinAreaM2:
		f.floorLike++
		return RejectedFloor
	}
	f.accepted++
	return Accepted
}

// FilterStats are the filter counters.
type FilterStats struct {
	Processed     int64
	Accepted      int64
	AboveCeiling  int64
	FloorLike     int64
	NonHorizontal int64
}

// Stats returns current filter statistics for monitoring and parameter tuning.
func (f *RejectionFilter) Stats() FilterStats {
	return FilterStats{
		Processed:     f.processed,
		Accepted:      f.accepted,
		AboveCeiling:  f.aboveCeiling,
		FloorLike:     f.floorLike,
		NonHorizontal: f.nonHorizontal,
	}
}

// ResetStats clears accumulated statistics counters.
func (f *RejectionFilter) ResetStats() {
	f.processed = 0
	f.accepted = 0
	f.aboveCeiling = 0
	f.floorLike = 0
	f.nonHorizontal = 0
}
