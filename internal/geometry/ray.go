package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// rayEpsilon rejects near-parallel hits and self-intersections at the origin.
const rayEpsilon = 1e-9

// Ray is a half-line with a unit direction.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

// NewRay normalises dir. ok is false for a zero direction.
func NewRay(origin, dir mgl64.Vec3) (Ray, bool) {
	l := dir.Len()
	if l < rayEpsilon || math.IsNaN(l) {
		return Ray{}, false
	}
	return Ray{Origin: origin, Direction: dir.Mul(1 / l)}, true
}

// RayFromPose builds the target ray of a pointer pose: from its position
// along its local -Z axis.
func RayFromPose(p Pose) (Ray, bool) {
	return NewRay(p.Position, p.Forward())
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectTriangle returns the distance to the hit on tri using the
// Möller-Trumbore test. Both faces count as hits.
func (r Ray) IntersectTriangle(tri Triangle) (float64, bool) {
	e1 := tri[1].Sub(tri[0])
	e2 := tri[2].Sub(tri[0])
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(tri[0])
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}

// IntersectTriangles returns the nearest hit over tris, the distance and the
// unit normal of the hit triangle oriented against the ray.
func (r Ray) IntersectTriangles(tris []Triangle) (t float64, normal mgl64.Vec3, ok bool) {
	t = math.Inf(1)
	for _, tri := range tris {
		d, hit := r.IntersectTriangle(tri)
		if !hit || d >= t {
			continue
		}
		t = d
		normal = tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
		ok = true
	}
	if !ok {
		return 0, mgl64.Vec3{}, false
	}
	if l := normal.Len(); l > 0 {
		normal = normal.Mul(1 / l)
	}
	if normal.Dot(r.Direction) > 0 {
		normal = normal.Mul(-1)
	}
	return t, normal, true
}

// IntersectPlaneY intersects the ray with the horizontal plane at height y.
// Hits behind the origin and rays parallel to the plane return false.
func (r Ray) IntersectPlaneY(y float64) (mgl64.Vec3, bool) {
	if math.Abs(r.Direction.Y()) < 1e-3 {
		return mgl64.Vec3{}, false
	}
	t := (y - r.Origin.Y()) / r.Direction.Y()
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return r.At(t), true
}

// IntersectAABB tests the ray against the box [min, max] with the slab
// method. If the origin is inside the box the exit distance is returned.
func (r Ray) IntersectAABB(min, max mgl64.Vec3) (float64, bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		o, d := r.Origin[axis], r.Direction[axis]
		if math.Abs(d) < rayEpsilon {
			if o < min[axis] || o > max[axis] {
				return 0, false
			}
			continue
		}
		t1 := (min[axis] - o) / d
		t2 := (max[axis] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	if tmin < 0 {
		return tmax, true
	}
	return tmin, true
}
