package pointer

import (
	"testing"

	"github.com/banshee-data/tabletop/internal/render"
	"github.com/banshee-data/tabletop/internal/surface"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoTables returns a catalog with table "near" at z=-0.5 and "far" at z=-2.
func twoTables(t *testing.T, scene render.Scene) *surface.Catalog {
	t.Helper()
	c := surface.NewCatalog(scene, surface.DefaultConfig())
	c.Ingest([]tracking.DetectedSurface{
		{ID: "near", Polygon: tracking.RectPolygon(0.6, 0.6), Pose: tracking.PosePtr(mgl64.Vec3{0, 0.8, -0.5}, mgl64.QuatIdent())},
		{ID: "far", Polygon: tracking.RectPolygon(0.6, 0.6), Pose: tracking.PosePtr(mgl64.Vec3{0, 0.7, -2}, mgl64.QuatIdent())},
	})
	require.Len(t, c.Selectable(), 2)
	return c
}

func aim(id string, origin, target mgl64.Vec3) tracking.Pointer {
	return tracking.Pointer{ID: id, Kind: tracking.PointerHand, Pose: tracking.AimingPose(origin, target)}
}

func TestUpdateNearestAcrossPointers(t *testing.T) {
	t.Parallel()

	scene := render.NewRecorder()
	c := twoTables(t, scene)
	sel := NewSelector(scene)

	left := aim("left", mgl64.Vec3{-0.3, 1.5, 0.5}, mgl64.Vec3{0, 0.7, -2})
	right := aim("right", mgl64.Vec3{0.3, 1.5, 0.5}, mgl64.Vec3{0.1, 0.8, -0.5})

	res := sel.Update([]tracking.Pointer{left, right}, c.Selectable())
	require.NotNil(t, res.Nearest)
	assert.Equal(t, "near", res.Surface().ID())
	assert.Equal(t, "right", res.Nearest.PointerID, "second pointer is also tested")
	assert.Equal(t, 2, res.Tested)
	require.Contains(t, res.ByPointer, "left")
	assert.Equal(t, "far", res.ByPointer["left"].Surface.ID())

	assert.InDelta(t, 0.8, res.Nearest.Point.Y(), 1e-9)
	assert.InDelta(t, 0.1, res.Nearest.Point.X(), 1e-9)
	assert.InDelta(t, 1.0, res.Nearest.Normal.Y(), 1e-9, "normal faces the pointer")

	h, ok := sel.HitFor("left")
	require.True(t, ok)
	assert.Equal(t, "far", h.Surface.ID())
}

func TestDropoutPointerSkipped(t *testing.T) {
	t.Parallel()

	scene := render.NewRecorder()
	c := twoTables(t, scene)
	sel := NewSelector(scene)

	lost := tracking.Pointer{ID: "left", Kind: tracking.PointerHand}
	right := aim("right", mgl64.Vec3{0, 1.5, 0.5}, mgl64.Vec3{0, 0.8, -0.5})

	res := sel.Update([]tracking.Pointer{lost, right}, c.Selectable())
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Tested)
	require.NotNil(t, res.Surface())
	assert.Equal(t, "near", res.Surface().ID())

	res = sel.Update([]tracking.Pointer{lost}, c.Selectable())
	assert.Nil(t, res.Surface())
	assert.Nil(t, sel.Pointed())
}

func TestHighlightIsIdempotent(t *testing.T) {
	t.Parallel()

	scene := render.NewRecorder()
	c := twoTables(t, scene)
	sel := NewSelector(scene)
	near, _ := c.Get("near")
	far, _ := c.Get("far")

	atNear := []tracking.Pointer{aim("p", mgl64.Vec3{0, 1.5, 0.5}, mgl64.Vec3{0, 0.8, -0.5})}
	atFar := []tracking.Pointer{aim("p", mgl64.Vec3{0, 1.5, 0.5}, mgl64.Vec3{0, 0.7, -2})}
	atNothing := []tracking.Pointer{aim("p", mgl64.Vec3{0, 1.5, 0.5}, mgl64.Vec3{0, 3, 0.5})}

	sel.Update(atNear, c.Selectable())
	assert.Equal(t, 1, scene.Emphasis)
	for i := 0; i < 5; i++ {
		sel.Update(atNear, c.Selectable())
	}
	assert.Equal(t, 1, scene.Emphasis, "no flicker while the same surface stays pointed")

	sel.Update(atFar, c.Selectable())
	nn, _ := scene.Node(near.Visual())
	nf, _ := scene.Node(far.Visual())
	assert.False(t, nn.Emphasized)
	assert.True(t, nf.Emphasized)
	assert.Equal(t, 3, scene.Emphasis)

	sel.Update(atNothing, c.Selectable())
	nf, _ = scene.Node(far.Visual())
	assert.False(t, nf.Emphasized)
	assert.Nil(t, sel.Pointed())
}

func TestReticleFollowsHit(t *testing.T) {
	t.Parallel()

	scene := render.NewRecorder()
	c := twoTables(t, scene)
	sel := NewSelector(scene)

	sel.Update([]tracking.Pointer{aim("p", mgl64.Vec3{0, 1.5, 0.5}, mgl64.Vec3{0.1, 0.8, -0.4})}, c.Selectable())
	reticles := scene.Nodes(render.KindReticle)
	require.Len(t, reticles, 1)
	assert.True(t, reticles[0].Visible)
	assert.InDelta(t, 0.8+reticleOffset, reticles[0].Position.Y(), 1e-9)
	assert.InDelta(t, 0.1, reticles[0].Position.X(), 1e-9)

	sel.Update(nil, c.Selectable())
	reticles = scene.Nodes(render.KindReticle)
	require.Len(t, reticles, 1, "reticle is reused")
	assert.False(t, reticles[0].Visible)

	sel.Dispose()
	assert.Empty(t, scene.Nodes(render.KindReticle))
}

func TestRetiredSurfaceReleased(t *testing.T) {
	t.Parallel()

	scene := render.NewRecorder()
	c := twoTables(t, scene)
	sel := NewSelector(scene)
	sel.Update([]tracking.Pointer{aim("p", mgl64.Vec3{0, 1.5, 0.5}, mgl64.Vec3{0, 0.8, -0.5})}, c.Selectable())
	require.NotNil(t, sel.Pointed())

	c.Ingest(nil)
	res := sel.Update([]tracking.Pointer{aim("p", mgl64.Vec3{0, 1.5, 0.5}, mgl64.Vec3{0, 0.8, -0.5})}, c.Selectable())
	assert.Nil(t, res.Surface())
	assert.Nil(t, sel.Pointed())
}
