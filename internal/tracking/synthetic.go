package tracking

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Synthetic plane ids.
const (
	SyntheticTableID   = "plane-table"
	SyntheticFloorID   = "plane-floor"
	SyntheticCeilingID = "plane-ceiling"
	SyntheticWallID    = "plane-wall"
)

// SyntheticRuntime scripts a small room for demos and tests: a floor, a
// ceiling, a wall and a slightly tilted table, plus one pointer whose aim
// point and select state are driven by the caller.
type SyntheticRuntime struct {
	frameID uint64
	start   time.Time

	// Configuration
	FrameRate     float64     // frames per second
	TableHeight   float64     // metres
	TableWidth    float64     // metres
	TableDepth    float64     // metres
	TableYaw      float64     // radians
	TableTiltDeg  float64     // degrees about local X
	TableDelay    int         // frames before the table is first reported
	PoseJitter    float64     // metres of position noise on the pointer
	PointerID     string      // id of the scripted pointer
	PointerKind   PointerKind // kind of the scripted pointer
	PointerOrigin mgl64.Vec3  // where the pointer sits
	ReportCeiling bool        // include the ceiling plane
	ReportWall    bool        // include the wall plane
	ReportFloor   bool        // include the floor plane

	// Internal state
	aim     mgl64.Vec3
	pending []InputEvent
	dropped bool
	rng     *rand.Rand
}

// NewSyntheticRuntime creates a runtime with a deterministic noise source.
func NewSyntheticRuntime(seed int64) *SyntheticRuntime {
	return &SyntheticRuntime{
		start:         time.Unix(0, 0).UTC(),
		FrameRate:     60.0,
		TableHeight:   0.75,
		TableWidth:    1.2,
		TableDepth:    0.8,
		TableYaw:      0.3,
		TableTiltDeg:  2.0,
		TableDelay:    5,
		PointerID:     "right",
		PointerKind:   PointerController,
		PointerOrigin: mgl64.Vec3{0.2, 1.3, 0.2},
		ReportCeiling: true,
		ReportWall:    true,
		ReportFloor:   true,
		aim:           mgl64.Vec3{0, 0.75, -0.6},
		rng:           rand.New(rand.NewSource(seed)),
	}
}

// TableCenter is the world position of the table plane origin.
func (g *SyntheticRuntime) TableCenter() mgl64.Vec3 {
	return mgl64.Vec3{0, g.TableHeight, -0.6}
}

// AimAt points the scripted pointer at target from the next frame on.
func (g *SyntheticRuntime) AimAt(target mgl64.Vec3) { g.aim = target }

// Press queues a select start for the next frame.
func (g *SyntheticRuntime) Press() {
	g.pending = append(g.pending, InputEvent{PointerID: g.PointerID, Type: SelectStart})
}

// Release queues a select end for the next frame.
func (g *SyntheticRuntime) Release() {
	g.pending = append(g.pending, InputEvent{PointerID: g.PointerID, Type: SelectEnd})
}

// SetDropout toggles loss of pointer tracking. While dropped the pointer is
// still listed but carries a nil pose.
func (g *SyntheticRuntime) SetDropout(dropped bool) { g.dropped = dropped }

// FrameID returns the id of the most recently generated frame.
func (g *SyntheticRuntime) FrameID() uint64 { return g.frameID }

// NextFrame generates the next synthetic frame.
func (g *SyntheticRuntime) NextFrame() *Snapshot {
	g.frameID++
	elapsed := time.Duration(float64(g.frameID) / g.FrameRate * float64(time.Second))

	snap := &Snapshot{
		Timestamp: g.start.Add(elapsed),
		Surfaces:  g.generateSurfaces(),
		Pointers:  []Pointer{g.generatePointer()},
		Signals:   g.pending,
		Spaces: map[string]Pose{
			"viewer": *PosePtr(mgl64.Vec3{0, 1.6, 0.4}, mgl64.QuatIdent()),
		},
	}
	g.pending = nil
	return snap
}

func (g *SyntheticRuntime) generateSurfaces() []DetectedSurface {
	var out []DetectedSurface
	if g.ReportFloor {
		out = append(out, DetectedSurface{
			ID:          SyntheticFloorID,
			Polygon:     RectPolygon(4, 4),
			Pose:        PosePtr(mgl64.Vec3{}, mgl64.QuatIdent()),
			Orientation: OrientationHorizontal,
		})
	}
	if g.ReportCeiling {
		// Ceiling normals point down.
		out = append(out, DetectedSurface{
			ID:          SyntheticCeilingID,
			Polygon:     RectPolygon(4, 4),
			Pose:        PosePtr(mgl64.Vec3{0, 2.6, 0}, mgl64.QuatRotate(math.Pi, mgl64.Vec3{1, 0, 0})),
			Orientation: OrientationHorizontal,
		})
	}
	if g.ReportWall {
		out = append(out, DetectedSurface{
			ID:          SyntheticWallID,
			Polygon:     RectPolygon(4, 2.5),
			Pose:        PosePtr(mgl64.Vec3{0, 1.25, -2}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0})),
			Orientation: OrientationVertical,
		})
	}
	if int(g.frameID) > g.TableDelay {
		q := mgl64.QuatRotate(g.TableYaw, mgl64.Vec3{0, 1, 0}).
			Mul(mgl64.QuatRotate(mgl64.DegToRad(g.TableTiltDeg), mgl64.Vec3{1, 0, 0}))
		out = append(out, DetectedSurface{
			ID:      SyntheticTableID,
			Polygon: RectPolygon(g.TableWidth, g.TableDepth),
			Pose:    PosePtr(g.TableCenter(), q),
		})
	}
	return out
}

func (g *SyntheticRuntime) generatePointer() Pointer {
	p := Pointer{ID: g.PointerID, Kind: g.PointerKind}
	if g.dropped {
		return p
	}
	origin := g.PointerOrigin
	if g.PoseJitter > 0 {
		origin = origin.Add(mgl64.Vec3{
			g.rng.NormFloat64() * g.PoseJitter,
			g.rng.NormFloat64() * g.PoseJitter,
			g.rng.NormFloat64() * g.PoseJitter,
		})
	}
	p.Pose = AimingPose(origin, g.aim)
	return p
}
