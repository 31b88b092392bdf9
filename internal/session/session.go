// Package session drives one tabletop session. It owns the surface
// catalog, the pointer selector, the desktop anchor, the physics stage and
// one gesture controller per pointer, and advances them in a fixed order
// from a single per-frame callback.
package session

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/banshee-data/tabletop/internal/desktop"
	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/gesture"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/physics"
	"github.com/banshee-data/tabletop/internal/pointer"
	"github.com/banshee-data/tabletop/internal/render"
	"github.com/banshee-data/tabletop/internal/rigid"
	"github.com/banshee-data/tabletop/internal/surface"
	"github.com/banshee-data/tabletop/internal/timeutil"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrDisposed is returned by every operation after Dispose.
	ErrDisposed = errors.New("session: disposed")
	// ErrNothingPointed means the pointer is not aiming at a selectable
	// surface.
	ErrNothingPointed = errors.New("session: no surface pointed")
	// ErrAlreadySelected means the session already has its surface.
	ErrAlreadySelected = errors.New("session: surface already selected")
	// ErrNoSelection means no surface has been selected yet.
	ErrNoSelection = errors.New("session: no surface selected")
	// ErrNotPlaced means the desktop has not been placed yet.
	ErrNotPlaced = errors.New("session: desktop not placed")
)

// FrameResult reports what one OnFrame call did.
type FrameResult struct {
	Time float64 // seconds since the first frame
	Dt   float64 // seconds since the previous frame

	Ingest surface.IngestResult
	// HasSelectable is false while nothing can be selected yet; the caller
	// shows a hint instead of treating it as an error.
	HasSelectable bool
	Pointed       *surface.Surface
	Selection     pointer.Result

	Gestures []gesture.Event // non-trivial gesture events only
	SubSteps int
}

// Session is the explicit context threaded through frame callbacks.
type Session struct {
	cfg   Config
	scene render.Scene
	clock timeutil.Clock
	rng   *rand.Rand

	catalog  *surface.Catalog
	selector *pointer.Selector
	anchor   *desktop.Anchor
	stage    *physics.Stage
	gestures map[string]*gesture.Controller

	last     tracking.Frame
	start    time.Time
	prev     time.Time
	frames   int64
	disposed bool
}

// New creates a session on engine. scene may be nil for headless use and
// clock nil for the wall clock, which is only consulted for frames without
// a timestamp.
func New(engine rigid.Engine, scene render.Scene, clock timeutil.Clock, cfg Config) *Session {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Session{
		cfg:      cfg,
		scene:    scene,
		clock:    clock,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		catalog:  surface.NewCatalog(scene, cfg.Surface),
		selector: pointer.NewSelector(scene),
		anchor:   desktop.NewAnchor(cfg.Desktop),
		stage:    physics.NewStage(engine, scene, cfg.Physics),
		gestures: make(map[string]*gesture.Controller),
	}
}

func (s *Session) Catalog() *surface.Catalog   { return s.catalog }
func (s *Session) Selector() *pointer.Selector { return s.selector }
func (s *Session) Anchor() *desktop.Anchor     { return s.anchor }
func (s *Session) Stage() *physics.Stage       { return s.stage }
func (s *Session) Disposed() bool              { return s.disposed }
func (s *Session) Frames() int64               { return s.frames }

// Gesture returns the controller of one pointer, if it ever pressed on the
// desktop.
func (s *Session) Gesture(pointerID string) (*gesture.Controller, bool) {
	c, ok := s.gestures[pointerID]
	return c, ok
}

// OnFrame advances the session by one tracking frame: surface ingestion,
// pointer selection, gesture updates, the physics step and visual sync,
// in that order. It never blocks.
func (s *Session) OnFrame(f tracking.Frame) FrameResult {
	if s.disposed || f == nil {
		return FrameResult{}
	}

	now := f.Time()
	if now.IsZero() {
		now = s.clock.Now()
	}
	var res FrameResult
	switch {
	case s.frames == 0:
		s.start, s.prev = now, now
	case now.After(s.prev):
		res.Dt = now.Sub(s.prev).Seconds()
		s.prev = now
	}
	s.frames++
	res.Time = s.prev.Sub(s.start).Seconds()

	res.Ingest = s.catalog.Ingest(f.DetectedSurfaces())
	res.HasSelectable = res.Ingest.Selectable > 0

	if s.catalog.Selected() == nil {
		res.Selection = s.selector.Update(f.ActivePointers(), s.catalog.Selectable())
		res.Pointed = res.Selection.Surface()
	}

	if bounds, ok := s.stage.Bounds(); ok {
		res.Gestures = s.updateGestures(f, bounds, res.Time)
	}

	res.SubSteps = s.stage.Step(res.Dt)
	s.stage.SyncVisuals()
	s.last = f
	return res
}

// updateGestures feeds every pointer that is present, signalled or already
// interacting into its controller. Controllers are created on the first
// select start after the desktop exists.
func (s *Session) updateGestures(f tracking.Frame, bounds desktop.Bounds, now float64) []gesture.Event {
	pointers := make(map[string]tracking.Pointer)
	for _, p := range f.ActivePointers() {
		pointers[p.ID] = p
	}
	pressed := make(map[string]bool)
	released := make(map[string]bool)
	for _, ev := range f.Events() {
		switch ev.Type {
		case tracking.SelectStart:
			pressed[ev.PointerID] = true
		case tracking.SelectEnd:
			released[ev.PointerID] = true
		}
	}
	for id := range pressed {
		if _, ok := s.gestures[id]; !ok {
			s.gestures[id] = gesture.NewController(id, bounds, platePicker{s.stage}, s.cfg.Gesture, s.rng)
		}
	}

	ids := make([]string, 0, len(s.gestures))
	for id := range s.gestures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var events []gesture.Event
	for _, id := range ids {
		p, present := pointers[id]
		if !present {
			p = tracking.Pointer{ID: id}
		}
		ev := s.gestures[id].Update(gesture.Input{
			Time:     now,
			Pointer:  p,
			Present:  present,
			Pressed:  pressed[id],
			Released: released[id],
		})
		if ev.Kind != gesture.EventNone && ev.Kind != gesture.EventDragged {
			events = append(events, ev)
		}
	}
	return events
}

// SelectSurface selects the surface the pointer is aiming at. An empty
// pointerID uses the nearest hit of any pointer. Other surface proxies are
// hidden afterwards.
func (s *Session) SelectSurface(pointerID string) error {
	if s.disposed {
		return ErrDisposed
	}
	if sel := s.catalog.Selected(); sel != nil {
		return fmt.Errorf("select for %q (have %s): %w", pointerID, sel.ID(), ErrAlreadySelected)
	}

	var target *surface.Surface
	if pointerID == "" {
		target = s.selector.Last().Surface()
	} else if h, ok := s.selector.HitFor(pointerID); ok {
		target = h.Surface
	}
	if target == nil {
		return fmt.Errorf("select for %q: %w", pointerID, ErrNothingPointed)
	}
	if !s.catalog.Select(target.ID()) {
		return fmt.Errorf("select %s for %q: %w", target.ID(), pointerID, ErrNothingPointed)
	}
	s.selector.Clear()
	s.catalog.SetOthersHidden(true)
	return nil
}

// PlaceDesktop anchors the desktop on the selected surface using that
// surface's pose from the latest frame and builds the physics boundaries.
// A missing pose returns desktop.ErrNoPose and commits nothing.
func (s *Session) PlaceDesktop() (desktop.Bounds, error) {
	if s.disposed {
		return desktop.Bounds{}, ErrDisposed
	}
	sel := s.catalog.Selected()
	if sel == nil {
		return desktop.Bounds{}, ErrNoSelection
	}
	var pose *tracking.Pose
	if s.last != nil {
		pose = s.last.Pose(sel.ID())
	}
	b, err := s.anchor.Place(sel, pose, s.cfg.DesktopSize)
	if err != nil {
		return desktop.Bounds{}, err
	}
	s.stage.BuildBoundaries(b)
	return b, nil
}

// SpawnPlates drops count plates at random non-overlapping positions on the
// desktop, keeping each clear of the walls.
func (s *Session) SpawnPlates(b desktop.Bounds, count int) ([]*physics.InteractiveBody, error) {
	if s.disposed {
		return nil, ErrDisposed
	}
	if !s.anchor.Placed() {
		return nil, ErrNotPlaced
	}
	if count <= 0 {
		return nil, nil
	}

	pc := s.stage.Config()
	area := b.Local.Inset(pc.PlateRadiusM + s.cfg.PlateSpacingM)
	spots, err := geometry.SampleNonOverlapping(s.rng, count, area, 2*pc.PlateRadiusM+s.cfg.PlateSpacingM)
	if err != nil {
		return nil, fmt.Errorf("spawn %d plates on %.2fx%.2fm: %w", count, b.Width, b.Depth, err)
	}

	out := make([]*physics.InteractiveBody, 0, count)
	for _, p := range spots {
		ib := s.stage.SpawnPlate(b.ToWorld(mgl64.Vec3{p.X(), 0, p.Y()}))
		if ib == nil {
			return out, ErrDisposed
		}
		out = append(out, ib)
	}
	monitoring.Logf("spawned %d plates", len(out))
	return out, nil
}

// Dispose ends the session, releasing every body and visual. It is safe
// to call at any phase, mid-drag included, and more than once.
func (s *Session) Dispose() {
	if s.disposed {
		return
	}
	for _, c := range s.gestures {
		c.Abort()
	}
	s.gestures = make(map[string]*gesture.Controller)
	s.stage.Dispose()
	s.selector.Dispose()
	s.catalog.Dispose()
	s.disposed = true
	monitoring.Logf("session disposed after %d frames", s.frames)
}

// platePicker resolves the nearest plate under a ray, skipping plates
// another pointer is already holding.
type platePicker struct {
	stage *physics.Stage
}

func (p platePicker) Pick(ray geometry.Ray) (gesture.Target, bool) {
	var best *physics.InteractiveBody
	bestT := math.Inf(1)
	for _, ib := range p.stage.Bodies() {
		if ib.Dragging() {
			continue
		}
		lo, hi := ib.Bounds()
		if t, ok := ray.IntersectAABB(lo, hi); ok && t < bestT {
			best, bestT = ib, t
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}
