package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"
)

// Triangle is three vertices in winding order.
type Triangle [3]mgl64.Vec3

// Rect is an axis-aligned rectangle on the XZ plane.
type Rect struct {
	MinX, MaxX float64
	MinZ, MaxZ float64
}

// Width returns the X extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Depth returns the Z extent.
func (r Rect) Depth() float64 { return r.MaxZ - r.MinZ }

// Contains reports whether (x, z) lies inside the rectangle, edges included.
func (r Rect) Contains(x, z float64) bool {
	return x >= r.MinX && x <= r.MaxX && z >= r.MinZ && z <= r.MaxZ
}

// Inset shrinks the rectangle by margin on every side. An inset larger
// than half an extent collapses that extent to its midpoint.
func (r Rect) Inset(margin float64) Rect {
	out := Rect{MinX: r.MinX + margin, MaxX: r.MaxX - margin, MinZ: r.MinZ + margin, MaxZ: r.MaxZ - margin}
	if out.MinX > out.MaxX {
		mid := (r.MinX + r.MaxX) / 2
		out.MinX, out.MaxX = mid, mid
	}
	if out.MinZ > out.MaxZ {
		mid := (r.MinZ + r.MaxZ) / 2
		out.MinZ, out.MaxZ = mid, mid
	}
	return out
}

// Clamp returns (x, z) moved to the nearest point inside the rectangle.
func (r Rect) Clamp(x, z float64) (float64, float64) {
	return math.Max(r.MinX, math.Min(r.MaxX, x)), math.Max(r.MinZ, math.Min(r.MaxZ, z))
}

// PolygonArea returns the unsigned area of a polygon lying on its local XZ
// plane (shoelace formula). Fewer than three points have zero area.
func PolygonArea(poly []mgl64.Vec3) float64 {
	if len(poly) < 3 {
		return 0
	}
	var twice float64
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		twice += a.X()*b.Z() - b.X()*a.Z()
	}
	return math.Abs(twice) / 2
}

// PolygonCentroid returns the area centroid of a polygon on its local XZ
// plane. Degenerate polygons fall back to the vertex mean.
func PolygonCentroid(poly []mgl64.Vec3) mgl64.Vec3 {
	if len(poly) == 0 {
		return mgl64.Vec3{}
	}
	var twice, cx, cz float64
	for i := range poly {
		a := poly[i]
		b := poly[(i+1)%len(poly)]
		cross := a.X()*b.Z() - b.X()*a.Z()
		twice += cross
		cx += (a.X() + b.X()) * cross
		cz += (a.Z() + b.Z()) * cross
	}
	if math.Abs(twice) < 1e-12 {
		var sum mgl64.Vec3
		for _, p := range poly {
			sum = sum.Add(p)
		}
		return sum.Mul(1 / float64(len(poly)))
	}
	return mgl64.Vec3{cx / (3 * twice), 0, cz / (3 * twice)}
}

// PolygonExtent returns the bounding rectangle of a polygon's local XZ
// coordinates. The zero Rect is returned for an empty polygon.
func PolygonExtent(poly []mgl64.Vec3) Rect {
	if len(poly) == 0 {
		return Rect{}
	}
	xs := make([]float64, len(poly))
	zs := make([]float64, len(poly))
	for i, p := range poly {
		xs[i] = p.X()
		zs[i] = p.Z()
	}
	return Rect{MinX: floats.Min(xs), MaxX: floats.Max(xs), MinZ: floats.Min(zs), MaxZ: floats.Max(zs)}
}

// FanTriangulate discretises a convex polygon into triangles fanned from its
// centroid, transformed into the reference frame by pose. Plane polygons from
// the tracking runtime are convex hulls, so a fan is exact.
func FanTriangulate(poly []mgl64.Vec3, pose Pose) []Triangle {
	if len(poly) < 3 {
		return nil
	}
	center := pose.Transform(PolygonCentroid(poly))
	world := make([]mgl64.Vec3, len(poly))
	for i, p := range poly {
		world[i] = pose.Transform(p)
	}
	tris := make([]Triangle, 0, len(poly))
	for i := range world {
		tris = append(tris, Triangle{center, world[i], world[(i+1)%len(world)]})
	}
	return tris
}
