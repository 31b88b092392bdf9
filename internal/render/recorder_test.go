package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderLifecycle(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	a := r.AddVisual(Visual{Kind: KindPlate, Visible: true})
	b := r.AddVisual(Visual{Kind: KindDesktop, Visible: true})
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, r.Len())

	r.SetTransform(a, mgl64.Vec3{1, 2, 3}, mgl64.QuatIdent())
	r.SetVisible(a, false)
	r.SetEmphasis(a, true)

	n, ok := r.Node(a)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, n.Position)
	assert.False(t, n.Visible)
	assert.True(t, n.Emphasized)

	r.RemoveVisual(a)
	r.RemoveVisual(a)
	assert.Equal(t, 1, r.Removes)
	_, ok = r.Node(a)
	assert.False(t, ok)

	// Calls on removed handles are ignored.
	r.SetTransform(a, mgl64.Vec3{}, mgl64.QuatIdent())
	assert.Equal(t, 1, r.Transforms)
}

func TestRecorderQueries(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.AddVisual(Visual{Kind: KindPlate, Label: "p1"})
	r.AddVisual(Visual{Kind: KindBoundary})
	r.AddVisual(Visual{Kind: KindPlate, Label: "p2"})

	plates := r.Nodes(KindPlate)
	require.Len(t, plates, 2)
	assert.Equal(t, "p1", plates[0].Label)
	assert.Equal(t, "p2", plates[1].Label)
	assert.Len(t, r.Nodes(""), 3)

	assert.Equal(t, []KindCount{{KindBoundary, 1}, {KindPlate, 2}}, r.KindCounts())
}
