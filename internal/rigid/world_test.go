package rigid

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDt = 1.0 / 60.0

// newTestWorld returns a world with gravity, a stiff solver and a large
// static slab whose top face is at y=0.
func newTestWorld(t *testing.T) (*World, BodyID) {
	t.Helper()
	w := NewWorld()
	w.SetGravity(mgl64.Vec3{0, -9.82, 0})
	w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9})
	floor := w.CreateBody(BodySpec{
		Shape:    Box(mgl64.Vec3{5, 0.05, 5}),
		Material: "desktop",
		Mode:     Static,
		Position: mgl64.Vec3{0, -0.05, 0},
	})
	return w, floor
}

func simulate(w *World, seconds float64) {
	w.Step(testDt, int(seconds/testDt))
}

func TestNewWorldDefaults(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	assert.Equal(t, DefaultIterations, w.Solver().Iterations)
	assert.InDelta(t, DefaultStiffness, w.Solver().Stiffness, 1e-12)
	assert.True(t, w.Solver().AllowSleep)
	assert.Equal(t, mgl64.Vec3{}, w.Gravity())

	w.SetSolver(SolverConfig{Iterations: -1, Stiffness: 3})
	assert.Equal(t, DefaultIterations, w.Solver().Iterations, "invalid values fall back")
	assert.InDelta(t, DefaultStiffness, w.Solver().Stiffness, 1e-12)
}

func TestCylinderComesToRestOnBox(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorld(t)
	plate := w.CreateBody(BodySpec{
		Shape:    Cylinder(0.06, 0.01),
		Mass:     0.15,
		Material: "plate",
		Position: mgl64.Vec3{0.3, 0.2, -0.1},
	})

	simulate(w, 2)

	p := w.Position(plate)
	assert.InDelta(t, 0.01, p.Y(), 0.005)
	assert.InDelta(t, 0.3, p.X(), 1e-6)
	assert.Less(t, w.Velocity(plate).Len(), 0.2)
}

func TestBoxComesToRestOnRotatedBox(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	w.SetGravity(mgl64.Vec3{0, -9.82, 0})
	w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9})
	w.CreateBody(BodySpec{
		Shape:       Box(mgl64.Vec3{1, 0.05, 1}),
		Mode:        Static,
		Orientation: mgl64.QuatRotate(0.4, mgl64.Vec3{0, 1, 0}),
	})
	crate := w.CreateBody(BodySpec{Shape: Box(mgl64.Vec3{0.1, 0.1, 0.1}), Mass: 1, Position: mgl64.Vec3{0, 0.5, 0}})

	simulate(w, 2)
	assert.InDelta(t, 0.15, w.Position(crate).Y(), 0.005)
}

func TestRestitutionFromContactMaterial(t *testing.T) {
	t.Parallel()

	peakAfterBounce := func(restitution float64) float64 {
		w, _ := newTestWorld(t)
		w.AddContactMaterial(ContactMaterial{A: "plate", B: "desktop", Friction: 0.4, Restitution: restitution})
		id := w.CreateBody(BodySpec{
			Shape:    Cylinder(0.06, 0.01),
			Mass:     0.15,
			Material: "plate",
			Position: mgl64.Vec3{0, 0.5, 0},
		})
		peak := 0.0
		for i := 0; i < 120; i++ {
			w.Step(testDt, 1)
			if v := w.Velocity(id).Y(); v > peak {
				peak = v
			}
		}
		return peak
	}

	assert.Greater(t, peakAfterBounce(0.6), 1.0)
	assert.Less(t, peakAfterBounce(0), 0.2)
}

func TestFrictionSlowsSliding(t *testing.T) {
	t.Parallel()

	slide := func(friction float64) float64 {
		w, _ := newTestWorld(t)
		w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9, AllowSleep: false})
		w.AddContactMaterial(ContactMaterial{A: "desktop", B: "plate", Friction: friction})
		id := w.CreateBody(BodySpec{
			Shape:    Cylinder(0.06, 0.01),
			Mass:     0.15,
			Material: "plate",
			Position: mgl64.Vec3{0, 0.01, 0},
		})
		w.SetVelocity(id, mgl64.Vec3{1, 0, 0})
		simulate(w, 1)
		return w.Velocity(id).X()
	}

	assert.Less(t, slide(0.5), 0.05)
	assert.Greater(t, slide(0), 0.9)
}

func TestKinematicBodyDisplacesDynamic(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9})
	still := w.CreateBody(BodySpec{Shape: Cylinder(0.06, 0.01), Mass: 100, Material: "plate"})
	dragged := w.CreateBody(BodySpec{
		Shape:    Cylinder(0.06, 0.01),
		Mass:     0.15,
		Material: "plate",
		Mode:     Kinematic,
		Position: mgl64.Vec3{0.5, 0, 0},
	})
	require.True(t, w.CollisionResponse(dragged))

	w.SetPosition(dragged, mgl64.Vec3{0.1, 0, 0})
	w.Step(testDt, 1)

	var found bool
	for _, c := range w.Contacts() {
		if c.Involves(still) && c.Involves(dragged) {
			found = true
		}
	}
	assert.True(t, found, "kinematic overlap must raise a contact")
	assert.Less(t, w.Position(still).X(), -0.01, "heavy dynamic body is pushed by penetration, not mass")
	assert.Equal(t, mgl64.Vec3{0.1, 0, 0}, w.Position(dragged), "kinematic body does not move")
}

func TestCylindersSeparate(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9})
	a := w.CreateBody(BodySpec{Shape: Cylinder(0.06, 0.01), Mass: 0.15})
	b := w.CreateBody(BodySpec{Shape: Cylinder(0.06, 0.01), Mass: 0.15, Position: mgl64.Vec3{0, 0, 0.05}})

	simulate(w, 0.5)

	gap := w.Position(b).Sub(w.Position(a)).Len()
	assert.GreaterOrEqual(t, gap, 0.119)
	assert.Less(t, w.Position(a).Z(), 0.0)
	assert.Greater(t, w.Position(b).Z(), 0.05)
}

func TestCylinderBlockedByWall(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorld(t)
	w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9, AllowSleep: false})
	w.CreateBody(BodySpec{
		Shape:    Box(mgl64.Vec3{0.025, 0.15, 1}),
		Mode:     Static,
		Position: mgl64.Vec3{0.5, 0.05, 0},
	})
	plate := w.CreateBody(BodySpec{Shape: Cylinder(0.06, 0.01), Mass: 0.15, Position: mgl64.Vec3{0, 0.01, 0}})
	w.SetVelocity(plate, mgl64.Vec3{2, 0, 0})

	simulate(w, 1)
	assert.Less(t, w.Position(plate).X(), 0.5-0.025-0.06+0.005)
}

func TestSleepAndWake(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorld(t)
	w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9, AllowSleep: true})
	id := w.CreateBody(BodySpec{Shape: Cylinder(0.06, 0.01), Mass: 0.15, Position: mgl64.Vec3{0, 0.01, 0}})
	simulate(w, 3)
	assert.True(t, w.Sleeping(id))

	w.SetVelocity(id, mgl64.Vec3{0.5, 0, 0})
	assert.False(t, w.Sleeping(id), "setters wake the body")

	simulate(w, 3)
	require.True(t, w.Sleeping(id))
	w.SetSolver(SolverConfig{Iterations: 20, Stiffness: 0.9, AllowSleep: false})
	assert.False(t, w.Sleeping(id), "disabling sleep wakes every body")
	simulate(w, 3)
	assert.False(t, w.Sleeping(id))
}

func TestMaterialsAndLookup(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	w.AddMaterial(Material{Class: "plate", Friction: 0.2})
	w.AddMaterial(Material{Class: "desktop", Friction: 0.6})
	w.AddMaterial(Material{Class: "plate", Friction: 0.4})
	assert.Equal(t, []MaterialClass{"desktop", "plate"}, w.Materials())

	f, r, s := w.pairMaterial("plate", "desktop")
	assert.InDelta(t, 0.5, f, 1e-12, "averaged class materials")
	assert.InDelta(t, 0.0, r, 1e-12)
	assert.InDelta(t, DefaultStiffness, s, 1e-12)

	w.AddContactMaterial(ContactMaterial{A: "plate", B: "desktop", Friction: 0.4, Restitution: 0.1, Stiffness: 0.9})
	cm, ok := w.ContactMaterialFor("desktop", "plate")
	require.True(t, ok)
	assert.InDelta(t, 0.1, cm.Restitution, 1e-12)

	f, r, s = w.pairMaterial("desktop", "plate")
	assert.InDelta(t, 0.4, f, 1e-12)
	assert.InDelta(t, 0.1, r, 1e-12)
	assert.InDelta(t, 0.9, s, 1e-12)

	_, ok = w.ContactMaterialFor("plate", "plate")
	assert.False(t, ok)
}

func TestBodyBookkeeping(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	a := w.CreateBody(BodySpec{Shape: Box(mgl64.Vec3{1, 1, 1}), Material: "desktop", Mode: Static})
	b := w.CreateBody(BodySpec{Shape: Cylinder(0.1, 0.1), Material: "plate"})
	assert.Equal(t, 2, w.BodyCount())
	assert.Equal(t, []BodyID{a}, w.BodiesOfMaterial("desktop"))
	assert.Equal(t, MaterialClass("plate"), w.Material(b))
	assert.Equal(t, ShapeCylinder, w.Shape(b).Kind)

	w.SetMode(b, Kinematic)
	assert.Equal(t, Kinematic, w.Mode(b))
	assert.Equal(t, "kinematic", w.Mode(b).String())

	w.RemoveBody(b)
	w.RemoveBody(b)
	assert.False(t, w.HasBody(b))
	assert.Equal(t, 1, w.BodyCount())
	assert.False(t, w.CollisionResponse(b))

	// Unknown ids are inert.
	w.SetVelocity(b, mgl64.Vec3{1, 0, 0})
	assert.Equal(t, mgl64.Vec3{}, w.Velocity(b))
	assert.Equal(t, mgl64.QuatIdent(), w.Orientation(b))
}

func TestAngularVelocityIntegrates(t *testing.T) {
	t.Parallel()

	w := NewWorld()
	id := w.CreateBody(BodySpec{Shape: Cylinder(0.06, 0.01), Mass: 0.15})
	w.SetSolver(SolverConfig{AllowSleep: false})
	w.SetAngularVelocity(id, mgl64.Vec3{0, 1, 0})
	w.Step(testDt, 30)

	q := w.Orientation(id)
	assert.InDelta(t, 1.0, q.Len(), 1e-9)
	assert.InDelta(t, 0.5, 2*q.V.Y(), 0.02, "about half a radian of yaw")
	assert.Equal(t, uint64(30), w.Steps())
}
