// Package physics configures and drives the shared rigid-body world: one
// material per body class, boundary synthesis from the desktop bounds,
// fixed-step stepping, and the InteractiveBody wrapper that adds the
// safety behaviour needed while plates are dragged and thrown.
package physics

import (
	"math"

	"github.com/banshee-data/tabletop/internal/desktop"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/render"
	"github.com/banshee-data/tabletop/internal/rigid"
	"github.com/go-gl/mathgl/mgl64"
)

// Stage is the sole mutator of the rigid-body world. Other components touch
// bodies only through InteractiveBody.
type Stage struct {
	cfg    Config
	engine rigid.Engine
	scene  render.Scene

	bounds     desktop.Bounds
	hasBounds  bool
	boundaries []rigid.BodyID
	visuals    []render.Handle

	bodies map[string]*InteractiveBody
	order  []string

	accumulator float64
	stats       StageStats
	disposed    bool
}

// StageStats are cumulative stepping and safety-net counters.
type StageStats struct {
	Steps              int64
	DroppedSeconds     float64 // wall time discarded by the sub-step cap
	VelocityClamps     int64
	FallCorrections    int64
	LateralCorrections int64
	BoundaryBuilds     int64
}

// NewStage configures engine for tabletop play: gravity, a solver stiffer
// than engine defaults, sleep disabled, one material per class and the two
// pairwise contact materials. scene may be nil.
func NewStage(engine rigid.Engine, scene render.Scene, cfg Config) *Stage {
	engine.SetGravity(mgl64.Vec3{0, cfg.Gravity, 0})
	engine.SetSolver(rigid.SolverConfig{
		Iterations: cfg.SolverIterations,
		Stiffness:  cfg.ContactStiffness,
		AllowSleep: false,
	})
	engine.AddMaterial(rigid.Material{Class: MaterialDesktop, Friction: cfg.DesktopFriction, Restitution: cfg.DesktopRestitution})
	engine.AddMaterial(rigid.Material{Class: MaterialPlate, Friction: cfg.PlatePlateFriction, Restitution: cfg.PlatePlateRestitution})
	engine.AddContactMaterial(rigid.ContactMaterial{
		A: MaterialPlate, B: MaterialPlate,
		Friction:    cfg.PlatePlateFriction,
		Restitution: cfg.PlatePlateRestitution,
		Stiffness:   cfg.ContactStiffness,
	})
	engine.AddContactMaterial(rigid.ContactMaterial{
		A: MaterialPlate, B: MaterialDesktop,
		Friction:    cfg.PlateDesktopFriction,
		Restitution: cfg.PlateDesktopRestitution,
		Stiffness:   cfg.ContactStiffness,
	})
	return &Stage{
		cfg:    cfg,
		engine: engine,
		scene:  scene,
		bodies: make(map[string]*InteractiveBody),
	}
}

// Config returns the stage tuning.
func (s *Stage) Config() Config { return s.cfg }

// BuildBoundaries creates the static floor and four walls for b, replacing
// any previous set. The floor is thicker than the nominal desktop and the
// walls reach down through it so fast plates cannot slip underneath.
func (s *Stage) BuildBoundaries(b desktop.Bounds) {
	if s.disposed {
		return
	}
	s.removeBoundaries()

	floorT := b.Thickness + s.cfg.FloorExtraThickM
	wallT := s.cfg.WallThicknessM
	wallH := s.cfg.WallHeightM
	hw, hd := b.Width/2, b.Depth/2
	wallHalfY := (wallH + floorT) / 2
	wallCY := (wallH - floorT) / 2

	type box struct {
		local mgl64.Vec3
		half  mgl64.Vec3
		kind  render.Kind
	}
	boxes := []box{
		{mgl64.Vec3{0, -floorT / 2, 0}, mgl64.Vec3{hw, floorT / 2, hd}, render.KindDesktop},
		{mgl64.Vec3{hw + wallT/2, wallCY, 0}, mgl64.Vec3{wallT / 2, wallHalfY, hd + wallT}, render.KindBoundary},
		{mgl64.Vec3{-hw - wallT/2, wallCY, 0}, mgl64.Vec3{wallT / 2, wallHalfY, hd + wallT}, render.KindBoundary},
		{mgl64.Vec3{0, wallCY, hd + wallT/2}, mgl64.Vec3{hw + wallT, wallHalfY, wallT / 2}, render.KindBoundary},
		{mgl64.Vec3{0, wallCY, -hd - wallT/2}, mgl64.Vec3{hw + wallT, wallHalfY, wallT / 2}, render.KindBoundary},
	}
	for _, bx := range boxes {
		pos := b.ToWorld(bx.local)
		id := s.engine.CreateBody(rigid.BodySpec{
			Shape:       rigid.Box(bx.half),
			Material:    MaterialDesktop,
			Mode:        rigid.Static,
			Position:    pos,
			Orientation: b.Orientation,
		})
		s.boundaries = append(s.boundaries, id)
		if s.scene != nil {
			s.visuals = append(s.visuals, s.scene.AddVisual(render.Visual{
				Kind:     bx.kind,
				Size:     bx.half.Mul(2),
				Position: pos,
				Rotation: b.Orientation,
				Visible:  true,
			}))
		}
	}
	s.bounds = b
	s.hasBounds = true
	s.stats.BoundaryBuilds++
	monitoring.Logf("boundaries built %.2fx%.2fm floor=%.3fm walls=%.2fm", b.Width, b.Depth, floorT, wallH)
}

func (s *Stage) removeBoundaries() {
	for _, id := range s.boundaries {
		s.engine.RemoveBody(id)
	}
	if s.scene != nil {
		for _, h := range s.visuals {
			s.scene.RemoveVisual(h)
		}
	}
	s.boundaries = nil
	s.visuals = nil
}

// Boundaries returns the live boundary bodies: floor first, then walls.
func (s *Stage) Boundaries() []rigid.BodyID {
	return append([]rigid.BodyID(nil), s.boundaries...)
}

// Bounds returns the desktop the boundaries were built for.
func (s *Stage) Bounds() (desktop.Bounds, bool) { return s.bounds, s.hasBounds }

// Step advances the world by dt of wall time using fixed sub-steps. Time
// beyond the sub-step cap is discarded rather than carried forward. It
// returns the number of sub-steps taken.
func (s *Stage) Step(dt float64) int {
	if s.disposed || !(dt > 0) || math.IsInf(dt, 0) {
		return 0
	}
	s.accumulator += dt
	n := int(s.accumulator / s.cfg.FixedStep)
	if n > s.cfg.MaxSubSteps {
		n = s.cfg.MaxSubSteps
		s.stats.DroppedSeconds += s.accumulator - float64(n)*s.cfg.FixedStep
		s.accumulator = 0
	} else {
		s.accumulator -= float64(n) * s.cfg.FixedStep
	}
	if n > 0 {
		s.engine.Step(s.cfg.FixedStep, n)
		s.stats.Steps += int64(n)
	}
	return n
}

// SyncVisuals runs the safety nets and visual sync for every body.
func (s *Stage) SyncVisuals() {
	for _, id := range s.order {
		s.bodies[id].SyncVisual()
	}
}

// SpawnPlate creates a dynamic plate resting with its base at pos. It
// returns nil after Dispose.
func (s *Stage) SpawnPlate(pos mgl64.Vec3) *InteractiveBody {
	if s.disposed {
		return nil
	}
	half := s.cfg.PlateHeightM / 2
	center := pos.Add(mgl64.Vec3{0, half, 0})
	rot := mgl64.QuatIdent()
	if s.hasBounds {
		rot = s.bounds.Orientation
	}
	id := s.engine.CreateBody(rigid.BodySpec{
		Shape:          rigid.Cylinder(s.cfg.PlateRadiusM, half),
		Mass:           s.cfg.PlateMassKg,
		Material:       MaterialPlate,
		Mode:           rigid.Dynamic,
		Position:       center,
		Orientation:    rot,
		LinearDamping:  s.cfg.LinearDamping,
		AngularDamping: s.cfg.AngularDamping,
	})
	var visual render.Handle
	if s.scene != nil {
		visual = s.scene.AddVisual(render.Visual{
			Kind:     render.KindPlate,
			Size:     mgl64.Vec3{2 * s.cfg.PlateRadiusM, s.cfg.PlateHeightM, 2 * s.cfg.PlateRadiusM},
			Position: center,
			Rotation: rot,
			Visible:  true,
		})
	}
	ib := newInteractiveBody(s, id, visual)
	s.bodies[ib.id] = ib
	s.order = append(s.order, ib.id)
	return ib
}

func (s *Stage) unregister(ib *InteractiveBody) {
	delete(s.bodies, ib.id)
	for i, id := range s.order {
		if id == ib.id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Bodies returns the live plates in spawn order.
func (s *Stage) Bodies() []*InteractiveBody {
	out := make([]*InteractiveBody, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.bodies[id])
	}
	return out
}

// Body returns the plate with id.
func (s *Stage) Body(id string) (*InteractiveBody, bool) {
	ib, ok := s.bodies[id]
	return ib, ok
}

// Contacts returns the contacts of the latest sub-step.
func (s *Stage) Contacts() []rigid.Contact { return s.engine.Contacts() }

// Stats returns the stage counters.
func (s *Stage) Stats() StageStats { return s.stats }

// Dispose releases every plate (including one mid-drag) and the boundaries.
// It is safe to call more than once.
func (s *Stage) Dispose() {
	if s.disposed {
		return
	}
	for _, ib := range s.Bodies() {
		ib.Dispose()
	}
	s.removeBoundaries()
	s.hasBounds = false
	s.disposed = true
}
