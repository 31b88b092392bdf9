package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world vertical axis.
var Up = mgl64.Vec3{0, 1, 0}

// yawDegenerateEpsilon is the horizontal projection length below which an
// axis is considered vertical and cannot carry a heading.
const yawDegenerateEpsilon = 1e-6

// Pose is a position and orientation in a reference frame.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// NewPose builds a pose, normalising the orientation. A zero quaternion is
// treated as identity.
func NewPose(position mgl64.Vec3, orientation mgl64.Quat) Pose {
	if orientation.Len() == 0 {
		orientation = mgl64.QuatIdent()
	}
	return Pose{Position: position, Orientation: orientation.Normalize()}
}

// Transform maps a point from the pose's local frame into the reference frame.
func (p Pose) Transform(local mgl64.Vec3) mgl64.Vec3 {
	return p.Orientation.Rotate(local).Add(p.Position)
}

// InverseTransform maps a reference-frame point into the pose's local frame.
func (p Pose) InverseTransform(world mgl64.Vec3) mgl64.Vec3 {
	return p.Orientation.Conjugate().Rotate(world.Sub(p.Position))
}

// Normal returns the pose's local +Y axis in the reference frame. For a
// plane pose this is the plane normal.
func (p Pose) Normal() mgl64.Vec3 {
	return p.Orientation.Rotate(Up)
}

// Forward returns the pose's local -Z axis, the pointing direction of a
// target-ray pose.
func (p Pose) Forward() mgl64.Vec3 {
	return p.Orientation.Rotate(mgl64.Vec3{0, 0, -1})
}

// Yaw returns the rotation about the vertical axis carried by q, discarding
// pitch and roll. The result is the angle θ such that QuatRotate(θ, Up)
// points the local X axis in the same horizontal direction as q does.
func Yaw(q mgl64.Quat) float64 {
	x := q.Rotate(mgl64.Vec3{1, 0, 0})
	if math.Hypot(x.X(), x.Z()) > yawDegenerateEpsilon {
		return math.Atan2(-x.Z(), x.X())
	}
	// Local X is vertical (rolled 90°); local Z still carries the heading.
	z := q.Rotate(mgl64.Vec3{0, 0, 1})
	return math.Atan2(z.X(), z.Z())
}

// Level returns the yaw-only orientation derived from q: perfectly level,
// with the same heading. Level(Level(q)) == Level(q).
func Level(q mgl64.Quat) mgl64.Quat {
	return mgl64.QuatRotate(Yaw(q), Up)
}

// TiltDegrees returns the angle between q's local up axis and world up.
func TiltDegrees(q mgl64.Quat) float64 {
	n := q.Rotate(Up)
	cos := n.Dot(Up) / n.Len()
	cos = math.Max(-1, math.Min(1, cos))
	return mgl64.RadToDeg(math.Acos(cos))
}
