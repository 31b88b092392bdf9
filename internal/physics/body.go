package physics

import (
	"math"

	"github.com/banshee-data/tabletop/internal/render"
	"github.com/banshee-data/tabletop/internal/rigid"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// maxAngularSpeed caps spin, in rad/s.
const maxAngularSpeed = 30.0

// InteractiveBody pairs one rigid body with one visual and owns both until
// Dispose.
type InteractiveBody struct {
	id     string
	stage  *Stage
	body   rigid.BodyID
	visual render.Handle

	dragging bool
	disposed bool
}

func newInteractiveBody(s *Stage, body rigid.BodyID, visual render.Handle) *InteractiveBody {
	return &InteractiveBody{
		id:     uuid.NewString(),
		stage:  s,
		body:   body,
		visual: visual,
	}
}

func (b *InteractiveBody) ID() string            { return b.id }
func (b *InteractiveBody) Body() rigid.BodyID    { return b.body }
func (b *InteractiveBody) Visual() render.Handle { return b.visual }
func (b *InteractiveBody) Dragging() bool        { return b.dragging }
func (b *InteractiveBody) Disposed() bool        { return b.disposed }
func (b *InteractiveBody) Radius() float64       { return b.stage.cfg.PlateRadiusM }
func (b *InteractiveBody) HalfHeight() float64   { return b.stage.cfg.PlateHeightM / 2 }

func (b *InteractiveBody) engine() rigid.Engine { return b.stage.engine }

// Position returns the simulated centre.
func (b *InteractiveBody) Position() mgl64.Vec3 { return b.engine().Position(b.body) }

// Orientation returns the simulated orientation.
func (b *InteractiveBody) Orientation() mgl64.Quat { return b.engine().Orientation(b.body) }

// Velocity returns the simulated linear velocity.
func (b *InteractiveBody) Velocity() mgl64.Vec3 { return b.engine().Velocity(b.body) }

// AngularVelocity returns the simulated angular velocity.
func (b *InteractiveBody) AngularVelocity() mgl64.Vec3 { return b.engine().AngularVelocity(b.body) }

// Mode returns the engine mode of the body.
func (b *InteractiveBody) Mode() rigid.Mode { return b.engine().Mode(b.body) }

// Bounds returns the world axis-aligned box around the plate, used for
// picking.
func (b *InteractiveBody) Bounds() (min, max mgl64.Vec3) {
	p := b.Position()
	e := mgl64.Vec3{b.Radius(), b.HalfHeight(), b.Radius()}
	return p.Sub(e), p.Add(e)
}

// SetKinematic switches between drag mode and simulation. Entering drag
// mode zeroes both velocities. Collision response stays on in both modes:
// a kinematic plate still pushes the plates it overlaps.
func (b *InteractiveBody) SetKinematic(on bool) {
	if b.disposed || on == b.dragging {
		return
	}
	e := b.engine()
	if on {
		e.SetMode(b.body, rigid.Kinematic)
		e.SetVelocity(b.body, mgl64.Vec3{})
		e.SetAngularVelocity(b.body, mgl64.Vec3{})
	} else {
		e.SetMode(b.body, rigid.Dynamic)
	}
	b.dragging = on
}

// SetPosition moves the body directly. While dragging the visual follows
// immediately.
func (b *InteractiveBody) SetPosition(p mgl64.Vec3) {
	if b.disposed {
		return
	}
	b.engine().SetPosition(b.body, p)
	if b.dragging {
		b.pushVisual(p, b.Orientation())
	}
}

// ApplyVelocity sets linear and angular velocity directly.
func (b *InteractiveBody) ApplyVelocity(v, w mgl64.Vec3) {
	if b.disposed {
		return
	}
	b.engine().SetVelocity(b.body, v)
	b.engine().SetAngularVelocity(b.body, w)
}

// SyncVisual copies the simulated transform to the visual when not
// dragging, after applying the always-on guards: speed clamps, the
// fall-through snap and the lateral escape correction.
func (b *InteractiveBody) SyncVisual() {
	if b.disposed || b.dragging {
		return
	}
	e := b.engine()
	st := &b.stage.stats

	v := e.Velocity(b.body)
	if limit := b.stage.cfg.MaxBodySpeedMps; v.Len() > limit {
		v = v.Normalize().Mul(limit)
		e.SetVelocity(b.body, v)
		st.VelocityClamps++
	}
	if w := e.AngularVelocity(b.body); w.Len() > maxAngularSpeed {
		e.SetAngularVelocity(b.body, w.Normalize().Mul(maxAngularSpeed))
	}

	pos := e.Position(b.body)
	if bounds, ok := b.stage.Bounds(); ok {
		corrected := false
		local := bounds.ToLocal(pos)
		rest := b.HalfHeight() + 0.001

		// Fallen through the desktop.
		if local.Y() < -b.stage.cfg.FallToleranceM {
			local[1] = rest
			lv := bounds.Orientation.Conjugate().Rotate(v)
			if lv.Y() < 0 {
				lv[1] = 0
			}
			v = bounds.Orientation.Rotate(lv)
			corrected = true
			st.FallCorrections++
		}

		// Escaped sideways past the walls.
		tol := b.stage.cfg.FallToleranceM
		if math.Abs(local.X()) > bounds.Width/2+tol || math.Abs(local.Z()) > bounds.Depth/2+tol {
			x, z := bounds.Local.Inset(b.Radius()).Clamp(local.X(), local.Z())
			local[0], local[2] = x, z
			if local.Y() < rest {
				local[1] = rest
			}
			v = mgl64.Vec3{0, math.Min(v.Y(), 0), 0}
			corrected = true
			st.LateralCorrections++
		}

		if corrected {
			pos = bounds.ToWorld(local)
			e.SetPosition(b.body, pos)
			e.SetVelocity(b.body, v)
		}
	}
	b.pushVisual(pos, e.Orientation(b.body))
}

func (b *InteractiveBody) pushVisual(p mgl64.Vec3, q mgl64.Quat) {
	if b.stage.scene != nil && b.visual != "" {
		b.stage.scene.SetTransform(b.visual, p, q)
	}
}

// Dispose removes the body from the world and its visual from the scene,
// whatever mode it is in. Later calls on b are no-ops.
func (b *InteractiveBody) Dispose() {
	if b.disposed {
		return
	}
	b.engine().RemoveBody(b.body)
	if b.stage.scene != nil && b.visual != "" {
		b.stage.scene.RemoveVisual(b.visual)
	}
	b.stage.unregister(b)
	b.dragging = false
	b.disposed = true
}
