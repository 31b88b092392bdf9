// Package rigid is the boundary with the rigid-body engine.
//
// Engine lists the operations the physics stage relies on. World is a small
// sequential-impulse implementation sufficient for plates on a desktop:
// boxes and upright cylinders, static, kinematic and dynamic bodies, per
// material-pair friction and restitution.
package rigid

import (
	"github.com/go-gl/mathgl/mgl64"
)

// BodyID identifies a body within one engine.
type BodyID uint64

// Mode is how a body's motion is determined.
type Mode int

const (
	// Dynamic bodies are moved by gravity, velocity and contacts.
	Dynamic Mode = iota
	// Kinematic bodies are moved only by setters but still push dynamic
	// bodies they overlap.
	Kinematic
	// Static bodies never move.
	Static
)

func (m Mode) String() string {
	switch m {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

// ShapeKind selects the collision primitive.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeCylinder
)

// Shape is a collision primitive in body-local coordinates. Cylinders are
// upright: their axis is local Y.
type Shape struct {
	Kind        ShapeKind
	HalfExtents mgl64.Vec3
	Radius      float64
	HalfHeight  float64
}

// Box returns a box shape with the given half extents.
func Box(halfExtents mgl64.Vec3) Shape {
	return Shape{Kind: ShapeBox, HalfExtents: halfExtents}
}

// Cylinder returns an upright cylinder.
func Cylinder(radius, halfHeight float64) Shape {
	return Shape{Kind: ShapeCylinder, Radius: radius, HalfHeight: halfHeight}
}

// MaterialClass names a collision material shared by a class of bodies.
type MaterialClass string

// Material is the per-class fallback used when no contact material is
// defined for a pair.
type Material struct {
	Class       MaterialClass
	Friction    float64
	Restitution float64
}

// ContactMaterial configures the contact between two material classes.
type ContactMaterial struct {
	A, B        MaterialClass
	Friction    float64
	Restitution float64
	Stiffness   float64 // fraction of penetration removed per position pass, (0,1]
}

// SolverConfig tunes the world solver.
type SolverConfig struct {
	Iterations int     // velocity iterations per step
	Stiffness  float64 // default contact stiffness, (0,1]
	AllowSleep bool    // let resting bodies stop simulating
}

// BodySpec describes a body to create.
type BodySpec struct {
	Shape          Shape
	Mass           float64 // ignored for static bodies
	Material       MaterialClass
	Mode           Mode
	Position       mgl64.Vec3
	Orientation    mgl64.Quat
	LinearDamping  float64 // fraction of velocity lost per second, [0,1)
	AngularDamping float64
}

// Contact is an overlap found during the latest step. Normal points from A
// towards B.
type Contact struct {
	A, B   BodyID
	Normal mgl64.Vec3
	Depth  float64
}

// Involves reports whether id is one of the contact's bodies.
func (c Contact) Involves(id BodyID) bool { return c.A == id || c.B == id }

// Engine is the rigid-body world used by the physics stage.
type Engine interface {
	SetGravity(g mgl64.Vec3)
	SetSolver(cfg SolverConfig)
	Solver() SolverConfig
	AddMaterial(m Material)
	AddContactMaterial(cm ContactMaterial)

	CreateBody(spec BodySpec) BodyID
	RemoveBody(id BodyID)
	HasBody(id BodyID) bool
	BodyCount() int

	SetMode(id BodyID, mode Mode)
	Mode(id BodyID) Mode
	SetPosition(id BodyID, p mgl64.Vec3)
	Position(id BodyID) mgl64.Vec3
	SetOrientation(id BodyID, q mgl64.Quat)
	Orientation(id BodyID) mgl64.Quat
	SetVelocity(id BodyID, v mgl64.Vec3)
	Velocity(id BodyID) mgl64.Vec3
	SetAngularVelocity(id BodyID, w mgl64.Vec3)
	AngularVelocity(id BodyID) mgl64.Vec3
	// CollisionResponse reports whether the body takes part in contact
	// resolution. Every mode does, kinematic included.
	CollisionResponse(id BodyID) bool

	Step(fixedDt float64, subSteps int)
	Contacts() []Contact
}
