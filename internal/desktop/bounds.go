// Package desktop anchors the virtual desktop to a selected surface and
// defines Bounds, the geometric record the physics and spawning code rely
// on.
package desktop

import (
	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// Size is a requested desktop footprint in metres.
type Size struct {
	Width float64 // along the desktop's local X
	Depth float64 // along the desktop's local Z
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool { return s.Width > 0 && s.Depth > 0 }

// Bounds is the fixed, level desktop. Center is the middle of the top face;
// Orientation carries yaw only.
type Bounds struct {
	Width       float64
	Depth       float64
	Thickness   float64
	Center      mgl64.Vec3
	Yaw         float64
	Orientation mgl64.Quat
	Local       geometry.Rect
}

// NewBounds builds bounds centred on center with a yaw-only orientation.
func NewBounds(center mgl64.Vec3, yaw float64, size Size, thickness float64) Bounds {
	hw, hd := size.Width/2, size.Depth/2
	return Bounds{
		Width:       size.Width,
		Depth:       size.Depth,
		Thickness:   thickness,
		Center:      center,
		Yaw:         yaw,
		Orientation: mgl64.QuatRotate(yaw, geometry.Up),
		Local:       geometry.Rect{MinX: -hw, MaxX: hw, MinZ: -hd, MaxZ: hd},
	}
}

// SurfaceY is the world height of the top face.
func (b Bounds) SurfaceY() float64 { return b.Center.Y() }

// HalfExtents returns half the width, thickness and depth.
func (b Bounds) HalfExtents() mgl64.Vec3 {
	return mgl64.Vec3{b.Width / 2, b.Thickness / 2, b.Depth / 2}
}

// ToLocal maps a world point into the desktop frame (origin at the top-face
// centre, Y up).
func (b Bounds) ToLocal(world mgl64.Vec3) mgl64.Vec3 {
	return b.Orientation.Conjugate().Rotate(world.Sub(b.Center))
}

// ToWorld maps a desktop-frame point into the world.
func (b Bounds) ToWorld(local mgl64.Vec3) mgl64.Vec3 {
	return b.Orientation.Rotate(local).Add(b.Center)
}

// Contains reports whether a world point lies over the footprint shrunk by
// margin.
func (b Bounds) Contains(world mgl64.Vec3, margin float64) bool {
	l := b.ToLocal(world)
	return b.Local.Inset(margin).Contains(l.X(), l.Z())
}

// Clamp moves a world point horizontally into the footprint shrunk by
// margin, keeping its height.
func (b Bounds) Clamp(world mgl64.Vec3, margin float64) mgl64.Vec3 {
	l := b.ToLocal(world)
	x, z := b.Local.Inset(margin).Clamp(l.X(), l.Z())
	return b.ToWorld(mgl64.Vec3{x, l.Y(), z})
}
