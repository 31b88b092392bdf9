// Package gesture implements the grab, drag and throw interaction for one
// pointer. The controller is advanced once per frame and reports what
// happened through its return value.
package gesture

import (
	"math/rand"

	"github.com/banshee-data/tabletop/internal/desktop"
	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

// Phase is the controller state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelecting
	PhaseDragging
	PhaseReleasing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelecting:
		return "selecting"
	case PhaseDragging:
		return "dragging"
	case PhaseReleasing:
		return "releasing"
	default:
		return "unknown"
	}
}

// Target is a body that can be grabbed. *physics.InteractiveBody satisfies
// it.
type Target interface {
	ID() string
	Position() mgl64.Vec3
	Radius() float64
	HalfHeight() float64
	SetKinematic(on bool)
	SetPosition(p mgl64.Vec3)
	ApplyVelocity(v, w mgl64.Vec3)
	Disposed() bool
}

// Picker resolves the target under a pointer ray.
type Picker interface {
	Pick(ray geometry.Ray) (Target, bool)
}

// Input is one frame of a single pointer.
type Input struct {
	Time     float64 // seconds
	Pointer  tracking.Pointer
	Present  bool // pointer listed in the frame
	Pressed  bool // select start this frame
	Released bool // select end this frame
}

// EventKind classifies the outcome of an Update.
type EventKind int

const (
	EventNone EventKind = iota
	EventGrabbed
	EventDragged
	EventReleased
	EventCancelled
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventGrabbed:
		return "grabbed"
	case EventDragged:
		return "dragged"
	case EventReleased:
		return "released"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Event is returned by every Update.
type Event struct {
	Kind      EventKind
	PointerID string
	Target    Target
	Release   *Release // set for EventReleased
	TimedOut  bool     // forced release or cancelled selection
}

// Controller is the per-pointer drag state machine.
type Controller struct {
	pointerID string
	bounds    desktop.Bounds
	picker    Picker
	cfg       Config
	rng       *rand.Rand

	phase     Phase
	target    Target
	kind      tracking.PointerKind
	pressedAt float64
	lastSeen  float64
	offset    mgl64.Vec3 // grab point to target centre, horizontal
	rendered  mgl64.Vec3
	history   *sampleRing
	throws    int
	taps      int
	timeouts  int
}

// NewController creates an idle controller bound to one pointer and the
// placed desktop. rng may be nil.
func NewController(pointerID string, bounds desktop.Bounds, picker Picker, cfg Config, rng *rand.Rand) *Controller {
	return &Controller{
		pointerID: pointerID,
		bounds:    bounds,
		picker:    picker,
		cfg:       cfg,
		rng:       rng,
		history:   newSampleRing(cfg.SampleCapacity),
	}
}

func (c *Controller) PointerID() string { return c.pointerID }
func (c *Controller) Phase() Phase      { return c.phase }
func (c *Controller) Target() Target    { return c.target }

// Stats returns release counters.
func (c *Controller) Stats() (throws, taps, timeouts int) {
	return c.throws, c.taps, c.timeouts
}

// Samples returns the current drag history, oldest first.
func (c *Controller) Samples() []geometry.Sample { return c.history.samples() }

// Update advances the state machine by one frame.
func (c *Controller) Update(in Input) Event {
	hasPose := in.Present && in.Pointer.Pose != nil
	if hasPose {
		c.lastSeen = in.Time
		c.kind = in.Pointer.Kind
	}

	switch c.phase {
	case PhaseIdle:
		if !in.Pressed {
			return c.event(EventNone)
		}
		c.phase = PhaseSelecting
		c.pressedAt = in.Time
		c.lastSeen = in.Time
		return c.selecting(in, hasPose)
	case PhaseSelecting:
		return c.selecting(in, hasPose)
	case PhaseDragging:
		return c.dragging(in, hasPose)
	}
	return c.event(EventNone)
}

func (c *Controller) selecting(in Input, hasPose bool) Event {
	if in.Released {
		c.reset()
		return c.event(EventCancelled)
	}
	if hasPose {
		if ray, ok := geometry.RayFromPose(*in.Pointer.Pose); ok {
			if t, ok := c.picker.Pick(ray); ok && !t.Disposed() {
				c.grab(t, ray, in.Time)
				return c.event(EventGrabbed)
			}
		}
	}
	if in.Time-c.pressedAt > c.cfg.SelectingTimeout {
		c.reset()
		ev := c.event(EventCancelled)
		ev.TimedOut = true
		return ev
	}
	return c.event(EventNone)
}

// grab keeps the target under the same point of the pointer ray: samples
// and positions are taken from the desktop-plane hit plus the grab offset,
// so a pointer held still records no motion.
func (c *Controller) grab(t Target, ray geometry.Ray, now float64) {
	c.target = t
	c.phase = PhaseDragging
	c.history.reset()
	t.SetKinematic(true)

	pos := t.Position()
	c.offset = mgl64.Vec3{}
	if hit, ok := ray.IntersectPlaneY(c.bounds.SurfaceY()); ok {
		c.offset = mgl64.Vec3{pos.X() - hit.X(), 0, pos.Z() - hit.Z()}
	}
	c.rendered = pos

	goal, ok := c.goal(ray)
	if !ok {
		goal = pos
		goal[1] = c.liftedY()
	}
	c.history.push(geometry.Sample{Position: goal, Time: now})
}

func (c *Controller) dragging(in Input, hasPose bool) Event {
	if c.target.Disposed() {
		c.reset()
		return c.event(EventCancelled)
	}
	if in.Released {
		if hasPose {
			c.follow(*in.Pointer.Pose, in.Time)
		}
		return c.release(false)
	}
	if !hasPose {
		if in.Time-c.lastSeen > c.cfg.DropoutTimeout {
			monitoring.Logf("gesture: pointer %s lost for %.2fs while dragging %s, releasing", c.pointerID, in.Time-c.lastSeen, c.target.ID())
			return c.release(true)
		}
		return c.event(EventNone)
	}
	c.follow(*in.Pointer.Pose, in.Time)
	return c.event(EventDragged)
}

// follow moves the target toward the goal under the pointer ray.
func (c *Controller) follow(pose tracking.Pose, now float64) {
	ray, ok := geometry.RayFromPose(pose)
	if !ok {
		return
	}
	goal, ok := c.goal(ray)
	if !ok {
		return
	}

	s := c.cfg.Smoothing
	c.rendered = goal.Mul(1 - s).Add(c.rendered.Mul(s))
	c.target.SetPosition(c.rendered)
	c.history.push(geometry.Sample{Position: goal, Time: now})
}

// goal is the ray's desktop-plane hit shifted by the grab offset, clamped
// inside the edge margin and lifted above the surface.
func (c *Controller) goal(ray geometry.Ray) (mgl64.Vec3, bool) {
	hit, ok := ray.IntersectPlaneY(c.bounds.SurfaceY())
	if !ok {
		return mgl64.Vec3{}, false
	}
	goal := c.bounds.Clamp(hit.Add(c.offset), c.cfg.EdgeMarginM+c.target.Radius())
	goal[1] = c.liftedY()
	return goal, true
}

func (c *Controller) liftedY() float64 {
	return c.bounds.SurfaceY() + c.target.HalfHeight() + c.cfg.LiftM
}

func (c *Controller) release(timedOut bool) Event {
	c.phase = PhaseReleasing
	var r Release
	if timedOut {
		r = Release{Tap: true, Displacement: geometry.Displacement(c.history.samples())}
		c.timeouts++
	} else {
		r = Classify(c.history.samples(), c.kind, c.cfg, c.rng)
	}

	t := c.target
	t.SetKinematic(false)
	if r.Tap {
		c.taps++
	} else {
		t.ApplyVelocity(r.Velocity, r.Angular)
		c.throws++
		monitoring.Logf("gesture: %s threw %s at %.2f m/s", c.pointerID, t.ID(), r.Velocity.Len())
	}

	ev := c.event(EventReleased)
	ev.Release = &r
	ev.TimedOut = timedOut
	c.reset()
	return ev
}

// Abort drops any drag in progress, leaving the target dynamic and at rest.
func (c *Controller) Abort() {
	if c.phase == PhaseDragging && c.target != nil && !c.target.Disposed() {
		c.target.SetKinematic(false)
	}
	c.reset()
}

func (c *Controller) reset() {
	c.phase = PhaseIdle
	c.target = nil
	c.offset = mgl64.Vec3{}
	c.history.reset()
}

func (c *Controller) event(kind EventKind) Event {
	return Event{Kind: kind, PointerID: c.pointerID, Target: c.target}
}
