// Package render is the boundary with the rendering scene. The core never
// draws; it creates visuals, moves them, and toggles visibility and emphasis
// through the Scene interface.
package render

import (
	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Handle identifies a visual owned by the scene.
type Handle string

// NewHandle returns a fresh unique handle.
func NewHandle() Handle { return Handle(uuid.NewString()) }

// Kind names what a visual represents.
type Kind string

const (
	KindSurfaceProxy Kind = "surface-proxy"
	KindReticle      Kind = "reticle"
	KindDesktop      Kind = "desktop"
	KindBoundary     Kind = "boundary"
	KindPlate        Kind = "plate"
)

// Visual describes a visual to add to the scene.
type Visual struct {
	Kind  Kind
	Label string
	// Mesh is the local-frame triangle list for surface proxies; the proxy is
	// placed with SetTransform.
	Mesh []geometry.Triangle
	// Size is the full extent of box-like visuals (desktop, boundary) or
	// diameter, height and diameter for plates.
	Size     mgl64.Vec3
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Visible  bool
}

// Scene is implemented by the rendering layer.
type Scene interface {
	AddVisual(v Visual) Handle
	RemoveVisual(h Handle)
	SetTransform(h Handle, position mgl64.Vec3, rotation mgl64.Quat)
	SetVisible(h Handle, visible bool)
	SetEmphasis(h Handle, emphasized bool)
}
