package tracking

import (
	"time"

	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/go-gl/mathgl/mgl64"
)

// Pose re-exports the geometry pose so callers need only this package at the
// runtime boundary.
type Pose = geometry.Pose

// PointerKind is the closed set of interaction sources.
type PointerKind string

const (
	PointerHand       PointerKind = "hand"
	PointerController PointerKind = "controller"
	PointerScreen     PointerKind = "screen"
)

// Pointer is one active input source this frame. Pose is nil while the
// source has lost tracking.
type Pointer struct {
	ID   string
	Kind PointerKind
	Pose *Pose
}

// OrientationHint is the runtime's own plane classification, when it has one.
type OrientationHint string

const (
	OrientationUnknown    OrientationHint = ""
	OrientationHorizontal OrientationHint = "horizontal"
	OrientationVertical   OrientationHint = "vertical"
)

// DetectedSurface is one plane report. Polygon points are in the plane's
// local frame (local XZ plane, +Y is the normal).
type DetectedSurface struct {
	ID          string
	Polygon     []mgl64.Vec3
	Pose        *Pose
	Orientation OrientationHint
}

// EventType is a discrete input signal.
type EventType string

const (
	SelectStart EventType = "selectstart"
	SelectEnd   EventType = "selectend"
)

// InputEvent is a select signal raised by a pointer during the frame.
type InputEvent struct {
	PointerID string    `json:"pointer"`
	Type      EventType `json:"type"`
}

// Frame is what the tracking runtime offers during one frame callback.
type Frame interface {
	// Time is the frame timestamp; the zero time means "use the wall clock".
	Time() time.Time
	// DetectedSurfaces returns every plane the runtime currently reports.
	DetectedSurfaces() []DetectedSurface
	// Pose resolves a space (a surface id or a named space such as "viewer")
	// in the reference space. Nil when unavailable this frame.
	Pose(space string) *Pose
	// ActivePointers returns the input sources present this frame.
	ActivePointers() []Pointer
	// Events returns select signals raised since the previous frame.
	Events() []InputEvent
}

// Snapshot is a self-contained Frame.
type Snapshot struct {
	Timestamp time.Time
	Surfaces  []DetectedSurface
	Pointers  []Pointer
	Signals   []InputEvent
	Spaces    map[string]Pose
}

var _ Frame = (*Snapshot)(nil)

func (s *Snapshot) Time() time.Time                     { return s.Timestamp }
func (s *Snapshot) DetectedSurfaces() []DetectedSurface { return s.Surfaces }
func (s *Snapshot) ActivePointers() []Pointer           { return s.Pointers }
func (s *Snapshot) Events() []InputEvent                { return s.Signals }

// Pose looks the space up among the reported surfaces first, then among
// the named spaces.
func (s *Snapshot) Pose(space string) *Pose {
	for i := range s.Surfaces {
		if s.Surfaces[i].ID == space {
			return s.Surfaces[i].Pose
		}
	}
	if p, ok := s.Spaces[space]; ok {
		return &p
	}
	return nil
}

// Pointer returns the pointer with the given id, if present this frame.
func (s *Snapshot) Pointer(id string) (Pointer, bool) {
	for _, p := range s.Pointers {
		if p.ID == id {
			return p, true
		}
	}
	return Pointer{}, false
}

// RectPolygon returns a width × depth rectangle centred on the local origin.
func RectPolygon(width, depth float64) []mgl64.Vec3 {
	hw, hd := width/2, depth/2
	return []mgl64.Vec3{{-hw, 0, -hd}, {hw, 0, -hd}, {hw, 0, hd}, {-hw, 0, hd}}
}

// PosePtr is a convenience for building frames.
func PosePtr(position mgl64.Vec3, orientation mgl64.Quat) *Pose {
	p := geometry.NewPose(position, orientation)
	return &p
}

// AimingPose returns a pose at origin whose -Z axis points at target.
func AimingPose(origin, target mgl64.Vec3) *Pose {
	dir := target.Sub(origin)
	if dir.Len() == 0 {
		return PosePtr(origin, mgl64.QuatIdent())
	}
	q := mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, -1}, dir.Normalize())
	return PosePtr(origin, q)
}
