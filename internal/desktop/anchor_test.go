package desktop

import (
	"errors"
	"math"
	"testing"

	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/surface"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ingestOne(t *testing.T, ds tracking.DetectedSurface) *surface.Surface {
	t.Helper()
	c := surface.NewCatalog(nil, surface.DefaultConfig())
	c.Ingest([]tracking.DetectedSurface{ds})
	s, ok := c.Get(ds.ID)
	require.True(t, ok)
	return s
}

func TestPlaceSizing(t *testing.T) {
	t.Parallel()

	pose := tracking.PosePtr(mgl64.Vec3{0, 0.9, -0.5}, mgl64.QuatIdent())
	table := ingestOne(t, tracking.DetectedSurface{ID: "t", Polygon: tracking.RectPolygon(1.2, 0.8), Pose: pose})
	sliver := ingestOne(t, tracking.DetectedSurface{ID: "s", Polygon: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}, Pose: pose})

	tests := []struct {
		name      string
		surface   *surface.Surface
		requested Size
		want      Size
	}{
		{"requested_in_range", table, Size{0.7, 0.5}, Size{0.7, 0.5}},
		{"requested_clamped", table, Size{0.1, 5}, Size{0.3, 2.0}},
		{"detected_with_margin", table, Size{}, Size{1.08, 0.72}},
		{"partial_request_uses_detection", table, Size{Width: 0.5}, Size{1.08, 0.72}},
		{"no_usable_detection", sliver, Size{}, Size{0.8, 0.6}},
		{"no_surface", nil, Size{}, Size{0.8, 0.6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnchor(DefaultConfig())
			b, err := a.Place(tt.surface, pose, tt.requested)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Width, b.Width, 1e-9)
			assert.InDelta(t, tt.want.Depth, b.Depth, 1e-9)
			assert.InDelta(t, 0.03, b.Thickness, 1e-12)
			assert.InDelta(t, -tt.want.Width/2, b.Local.MinX, 1e-9)
			assert.InDelta(t, tt.want.Depth/2, b.Local.MaxZ, 1e-9)
		})
	}
}

func TestPlaceLevelsTiltedSurface(t *testing.T) {
	t.Parallel()

	yaw := 0.5
	tilted := mgl64.QuatRotate(yaw, geometry.Up).Mul(mgl64.QuatRotate(mgl64.DegToRad(30), mgl64.Vec3{1, 0, 0}))
	pose := tracking.PosePtr(mgl64.Vec3{0.2, 0.75, -0.4}, tilted)

	a := NewAnchor(DefaultConfig())
	b, err := a.Place(nil, pose, Size{0.8, 0.6})
	require.NoError(t, err)

	assert.InDelta(t, 0, geometry.TiltDegrees(b.Orientation), 1e-5, "no pitch or roll")
	assert.InDelta(t, yaw, b.Yaw, 1e-9)
	up := b.Orientation.Rotate(geometry.Up)
	assert.True(t, up.ApproxEqualThreshold(geometry.Up, 1e-12))

	// Leveling is idempotent: placing again from the leveled pose changes
	// nothing.
	again, err := NewAnchor(DefaultConfig()).Place(nil, tracking.PosePtr(b.Center, b.Orientation), Size{0.8, 0.6})
	require.NoError(t, err)
	opts := cmpopts.EquateApprox(0, 1e-9)
	if diff := cmp.Diff(b, again, opts); diff != "" {
		t.Errorf("re-leveled bounds differ (-first +second):\n%s", diff)
	}
}

func TestPlaceFailures(t *testing.T) {
	t.Parallel()

	a := NewAnchor(DefaultConfig())
	_, err := a.Place(nil, nil, Size{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPose))
	assert.False(t, a.Placed(), "failed placement commits nothing")
	_, ok := a.Bounds()
	assert.False(t, ok)

	first, err := a.Place(nil, tracking.PosePtr(mgl64.Vec3{0, 0.8, 0}, mgl64.QuatIdent()), Size{})
	require.NoError(t, err)
	_, err = a.Place(nil, tracking.PosePtr(mgl64.Vec3{1, 1, 1}, mgl64.QuatIdent()), Size{})
	assert.ErrorIs(t, err, ErrAlreadyPlaced)
	kept, _ := a.Bounds()
	assert.Equal(t, first, kept, "bounds are never recomputed")
}

func TestPlaceCentersOnExtents(t *testing.T) {
	t.Parallel()

	// Polygon offset from its pose origin by +0.2 in local X.
	poly := []mgl64.Vec3{{-0.2, 0, -0.3}, {0.6, 0, -0.3}, {0.6, 0, 0.3}, {-0.2, 0, 0.3}}
	pose := tracking.PosePtr(mgl64.Vec3{1, 0.8, 0}, mgl64.QuatRotate(math.Pi/2, geometry.Up))
	s := ingestOne(t, tracking.DetectedSurface{ID: "t", Polygon: poly, Pose: pose})

	b, err := NewAnchor(DefaultConfig()).Place(s, pose, Size{})
	require.NoError(t, err)
	// Local +X maps to world -Z under a quarter turn.
	assert.InDelta(t, 1.0, b.Center.X(), 1e-9)
	assert.InDelta(t, -0.2, b.Center.Z(), 1e-9)
	assert.InDelta(t, 0.8, b.SurfaceY(), 1e-9)
}

func TestBoundsTransforms(t *testing.T) {
	t.Parallel()

	b := NewBounds(mgl64.Vec3{1, 0.8, -1}, 0.7, Size{1, 0.6}, 0.03)
	p := mgl64.Vec3{1.2, 0.9, -0.9}
	assert.True(t, b.ToWorld(b.ToLocal(p)).ApproxEqualThreshold(p, 1e-12))
	assert.True(t, b.Contains(b.Center, 0.02))

	far := b.ToWorld(mgl64.Vec3{3, 0.05, -2})
	assert.False(t, b.Contains(far, 0))
	clamped := b.Clamp(far, 0.02)
	l := b.ToLocal(clamped)
	assert.InDelta(t, 0.48, l.X(), 1e-9)
	assert.InDelta(t, -0.28, l.Z(), 1e-9)
	assert.InDelta(t, 0.05, l.Y(), 1e-9, "height kept")
	assert.Equal(t, mgl64.Vec3{0.5, 0.015, 0.3}, b.HalfExtents())
}
