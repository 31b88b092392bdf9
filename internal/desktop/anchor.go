package desktop

import (
	"errors"
	"fmt"

	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/surface"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrNoPose means no pose was available for the surface; retry on a
	// later frame.
	ErrNoPose = errors.New("desktop: no pose for surface")
	// ErrAlreadyPlaced means the session already has its desktop.
	ErrAlreadyPlaced = errors.New("desktop: already placed")
)

// Config controls sizing.
type Config struct {
	MinSizeM      float64
	MaxSizeM      float64
	MarginScale   float64 // applied to detected extents
	DefaultWidthM float64
	DefaultDepthM float64
	ThicknessM    float64
}

// DefaultConfig returns the built-in sizing policy.
func DefaultConfig() Config { return ConfigFromTuning(nil) }

// ConfigFromTuning reads sizing from tuning; nil uses defaults.
func ConfigFromTuning(t *config.TuningConfig) Config {
	if t == nil {
		t = config.EmptyTuningConfig()
	}
	return Config{
		MinSizeM:      t.GetDesktopMinSizeM(),
		MaxSizeM:      t.GetDesktopMaxSizeM(),
		MarginScale:   t.GetDesktopMarginScale(),
		DefaultWidthM: t.GetDesktopDefaultWidthM(),
		DefaultDepthM: t.GetDesktopDefaultDepthM(),
		ThicknessM:    t.GetDesktopThicknessM(),
	}
}

// Anchor places the single desktop of a session.
type Anchor struct {
	cfg    Config
	bounds Bounds
	placed bool
}

// NewAnchor creates an anchor with no desktop.
func NewAnchor(cfg Config) *Anchor {
	return &Anchor{cfg: cfg}
}

// Place computes the desktop for surface s at pose. A valid requested size
// is clamped and used; otherwise the surface's detected extents, shrunk by
// the margin scale and clamped, are used; otherwise the default size. Only
// the yaw of the pose is kept, so the desktop is exactly level. On error no
// state changes.
func (a *Anchor) Place(s *surface.Surface, pose *tracking.Pose, requested Size) (Bounds, error) {
	if a.placed {
		return Bounds{}, ErrAlreadyPlaced
	}
	if pose == nil {
		id := ""
		if s != nil {
			id = s.ID()
		}
		return Bounds{}, fmt.Errorf("place on %q: %w", id, ErrNoPose)
	}

	var poly []mgl64.Vec3
	if s != nil {
		poly = s.Polygon()
	}
	size, source := a.size(poly, requested)

	// Centre on the middle of the detected extents, which need not be the
	// pose origin.
	center := pose.Position
	if len(poly) >= 3 {
		ext := geometry.PolygonExtent(poly)
		center = pose.Transform(mgl64.Vec3{(ext.MinX + ext.MaxX) / 2, 0, (ext.MinZ + ext.MaxZ) / 2})
	}

	yaw := geometry.Yaw(pose.Orientation)
	b := NewBounds(center, yaw, size, a.cfg.ThicknessM)
	a.bounds = b
	a.placed = true
	monitoring.Logf("desktop placed %.2fx%.2fm (%s) at (%.2f, %.2f, %.2f) yaw=%.1f° tilt_discarded=%.1f°",
		size.Width, size.Depth, source, center.X(), center.Y(), center.Z(),
		mgl64.RadToDeg(yaw), geometry.TiltDegrees(pose.Orientation))
	return b, nil
}

func (a *Anchor) size(poly []mgl64.Vec3, requested Size) (Size, string) {
	if requested.Valid() {
		return Size{a.clamp(requested.Width), a.clamp(requested.Depth)}, "requested"
	}
	if len(poly) >= 3 {
		ext := geometry.PolygonExtent(poly)
		if ext.Width() > 0 && ext.Depth() > 0 {
			return Size{
				a.clamp(ext.Width() * a.cfg.MarginScale),
				a.clamp(ext.Depth() * a.cfg.MarginScale),
			}, "detected"
		}
	}
	return Size{a.cfg.DefaultWidthM, a.cfg.DefaultDepthM}, "default"
}

func (a *Anchor) clamp(v float64) float64 {
	return mgl64.Clamp(v, a.cfg.MinSizeM, a.cfg.MaxSizeM)
}

// Bounds returns the placed desktop.
func (a *Anchor) Bounds() (Bounds, bool) { return a.bounds, a.placed }

// Placed reports whether the desktop exists.
func (a *Anchor) Placed() bool { return a.placed }
