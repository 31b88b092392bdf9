package rigid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// collide returns the contact normal (from a to b) and depth for an
// overlapping pair. Cylinders are treated as upright whatever their
// orientation; boxes keep full orientation against cylinders and use their
// world bounding boxes against other boxes.
func collide(a, b *body) (mgl64.Vec3, float64, bool) {
	switch {
	case a.shape.Kind == ShapeCylinder && b.shape.Kind == ShapeCylinder:
		return cylinderCylinder(a, b)
	case a.shape.Kind == ShapeCylinder && b.shape.Kind == ShapeBox:
		return cylinderBox(a, b)
	case a.shape.Kind == ShapeBox && b.shape.Kind == ShapeCylinder:
		n, d, ok := cylinderBox(b, a)
		return n.Mul(-1), d, ok
	default:
		return boxBox(a, b)
	}
}

func cylinderCylinder(a, b *body) (mgl64.Vec3, float64, bool) {
	d := b.pos.Sub(a.pos)
	oy := a.shape.HalfHeight + b.shape.HalfHeight - math.Abs(d.Y())
	if oy <= 0 {
		return mgl64.Vec3{}, 0, false
	}
	dist := math.Hypot(d.X(), d.Z())
	hp := a.shape.Radius + b.shape.Radius - dist
	if hp <= 0 {
		return mgl64.Vec3{}, 0, false
	}
	// Side by side bodies always separate horizontally; only stacked ones
	// separate vertically.
	stacked := math.Abs(d.Y()) >= 0.5*(a.shape.HalfHeight+b.shape.HalfHeight)
	if oy < hp && stacked {
		return mgl64.Vec3{0, signOf(d.Y()), 0}, oy, true
	}
	if dist < 1e-9 {
		return mgl64.Vec3{1, 0, 0}, hp, true
	}
	return mgl64.Vec3{d.X() / dist, 0, d.Z() / dist}, hp, true
}

// cylinderBox returns the normal from the cylinder c towards the box bx.
func cylinderBox(c, bx *body) (mgl64.Vec3, float64, bool) {
	local := bx.rot.Conjugate().Rotate(c.pos.Sub(bx.pos))
	h := bx.shape.HalfExtents
	r := c.shape.Radius

	oy := h.Y() + c.shape.HalfHeight - math.Abs(local.Y())
	if oy <= 0 {
		return mgl64.Vec3{}, 0, false
	}

	cx := mgl64.Clamp(local.X(), -h.X(), h.X())
	cz := mgl64.Clamp(local.Z(), -h.Z(), h.Z())
	dx, dz := local.X()-cx, local.Z()-cz
	dist := math.Hypot(dx, dz)

	// hn points from the box towards the cylinder in box-local space.
	var hn mgl64.Vec3
	var hp float64
	inside := dist <= 1e-12
	if !inside {
		if dist >= r {
			return mgl64.Vec3{}, 0, false
		}
		hn = mgl64.Vec3{dx / dist, 0, dz / dist}
		hp = r - dist
	} else {
		faces := [4]struct {
			gap float64
			n   mgl64.Vec3
		}{
			{h.X() - local.X(), mgl64.Vec3{1, 0, 0}},
			{h.X() + local.X(), mgl64.Vec3{-1, 0, 0}},
			{h.Z() - local.Z(), mgl64.Vec3{0, 0, 1}},
			{h.Z() + local.Z(), mgl64.Vec3{0, 0, -1}},
		}
		best := faces[0]
		for _, f := range faces[1:] {
			if f.gap < best.gap {
				best = f
			}
		}
		hn = best.n
		hp = best.gap + r
	}

	// A cylinder beside the box and below its top face is pushed out
	// sideways; one over the box footprint or above its top is pushed out
	// vertically.
	nLocal, depth := hn, hp
	if oy < hp && (inside || math.Abs(local.Y()) >= h.Y()) {
		nLocal, depth = mgl64.Vec3{0, signOf(local.Y()), 0}, oy
	}
	return bx.rot.Rotate(nLocal).Mul(-1), depth, true
}

func boxBox(a, b *body) (mgl64.Vec3, float64, bool) {
	ea, eb := worldExtents(a), worldExtents(b)
	d := b.pos.Sub(a.pos)
	depth := math.Inf(1)
	axis := -1
	for i := 0; i < 3; i++ {
		o := ea[i] + eb[i] - math.Abs(d[i])
		if o <= 0 {
			return mgl64.Vec3{}, 0, false
		}
		if o < depth {
			depth, axis = o, i
		}
	}
	var n mgl64.Vec3
	n[axis] = signOf(d[axis])
	return n, depth, true
}

// worldExtents returns the half extents of the axis-aligned box enclosing a
// rotated box.
func worldExtents(b *body) mgl64.Vec3 {
	h := b.shape.HalfExtents
	ax := b.rot.Rotate(mgl64.Vec3{h.X(), 0, 0})
	ay := b.rot.Rotate(mgl64.Vec3{0, h.Y(), 0})
	az := b.rot.Rotate(mgl64.Vec3{0, 0, h.Z()})
	var e mgl64.Vec3
	for i := 0; i < 3; i++ {
		e[i] = math.Abs(ax[i]) + math.Abs(ay[i]) + math.Abs(az[i])
	}
	return e
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
