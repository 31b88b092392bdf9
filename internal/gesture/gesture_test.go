package gesture

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/tabletop/internal/desktop"
	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 1.0 / 60.0

type fakeTarget struct {
	id        string
	pos       mgl64.Vec3
	kinematic bool
	disposed  bool
	toggles   []bool
	velocity  mgl64.Vec3
	angular   mgl64.Vec3
	applied   int
}

func (f *fakeTarget) ID() string               { return f.id }
func (f *fakeTarget) Position() mgl64.Vec3     { return f.pos }
func (f *fakeTarget) Radius() float64          { return 0.06 }
func (f *fakeTarget) HalfHeight() float64      { return 0.01 }
func (f *fakeTarget) SetPosition(p mgl64.Vec3) { f.pos = p }
func (f *fakeTarget) Disposed() bool           { return f.disposed }

func (f *fakeTarget) SetKinematic(on bool) {
	f.kinematic = on
	f.toggles = append(f.toggles, on)
}

func (f *fakeTarget) ApplyVelocity(v, w mgl64.Vec3) {
	f.velocity = v
	f.angular = w
	f.applied++
}

// stubPicker returns its target when enabled.
type stubPicker struct {
	target  Target
	enabled bool
	calls   int
}

func (p *stubPicker) Pick(geometry.Ray) (Target, bool) {
	p.calls++
	if !p.enabled || p.target == nil {
		return nil, false
	}
	return p.target, true
}

var (
	testBounds = desktop.NewBounds(mgl64.Vec3{0, 0.75, -0.5}, 0, desktop.Size{Width: 0.8, Depth: 0.6}, 0.03)
	origin     = mgl64.Vec3{0, 1.3, 0}
)

func aimAt(x, z float64) *tracking.Pose {
	return tracking.AimingPose(origin, mgl64.Vec3{x, 0.75, z})
}

func input(t float64, pose *tracking.Pose) Input {
	return Input{
		Time:    t,
		Pointer: tracking.Pointer{ID: "right", Kind: tracking.PointerController, Pose: pose},
		Present: true,
	}
}

func newTestController(target *fakeTarget, pick bool) (*Controller, *stubPicker) {
	p := &stubPicker{target: target, enabled: pick}
	return NewController("right", testBounds, p, DefaultConfig(), rand.New(rand.NewSource(1))), p
}

func swipe(speed, duration float64, kindDrift float64) []geometry.Sample {
	var out []geometry.Sample
	for t := 0.0; t <= duration+1e-9; t += frame {
		out = append(out, geometry.Sample{
			Position: mgl64.Vec3{-0.2 + speed*t, 0.77 + kindDrift*math.Sin(20*t), -0.5},
			Time:     t,
		})
	}
	return out
}

func TestConfigFromTuning(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.35, cfg.Smoothing)
	assert.Equal(t, 0.02, cfg.TapThresholdM)
	assert.Equal(t, 6, cfg.WindowSamples)
	assert.InDelta(t, 0.15, cfg.WindowSeconds, 1e-12)
	assert.InDelta(t, 0.5, cfg.DropoutTimeout, 1e-12)
	assert.InDelta(t, 0.25, cfg.SelectingTimeout, 1e-12)
	assert.Equal(t, 32, cfg.SampleCapacity)

	assert.Equal(t, 2.5, cfg.Amplification(tracking.PointerHand))
	assert.Equal(t, 1.8, cfg.Amplification(tracking.PointerController))
	assert.Equal(t, 1.0, cfg.Amplification(tracking.PointerScreen))
}

func TestClassify(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("zero displacement is a tap", func(t *testing.T) {
		samples := []geometry.Sample{
			{Position: mgl64.Vec3{0, 0, 0}, Time: 0},
			{Position: mgl64.Vec3{0, 0, 0}, Time: 0.1},
		}
		r := Classify(samples, tracking.PointerHand, cfg, rand.New(rand.NewSource(1)))
		assert.True(t, r.Tap)
		assert.Equal(t, mgl64.Vec3{}, r.Velocity)
		assert.Equal(t, mgl64.Vec3{}, r.Angular)
	})

	t.Run("short history is a tap", func(t *testing.T) {
		r := Classify([]geometry.Sample{{Time: 1}}, tracking.PointerHand, cfg, nil)
		assert.True(t, r.Tap)
		r = Classify(nil, tracking.PointerHand, cfg, nil)
		assert.True(t, r.Tap)
	})

	t.Run("small wobble is a tap", func(t *testing.T) {
		r := Classify(swipe(0.05, 0.2, 0), tracking.PointerHand, cfg, nil)
		assert.True(t, r.Tap)
		assert.Less(t, r.Displacement, cfg.TapThresholdM)
	})

	t.Run("hand swipe at 0.3 m/s", func(t *testing.T) {
		r := Classify(swipe(0.3, 0.3, 0.005), tracking.PointerHand, cfg, rand.New(rand.NewSource(7)))
		require.False(t, r.Tap)

		minExpected := 0.3 * cfg.AmpHand * 0.8
		speed := r.Velocity.Len()
		assert.GreaterOrEqual(t, speed, minExpected)
		assert.LessOrEqual(t, speed, cfg.MaxThrowMps)

		horizontal := math.Hypot(r.Velocity.X(), r.Velocity.Z())
		assert.Less(t, math.Abs(r.Velocity.Y()), horizontal)
		assert.Equal(t, cfg.AmpHand, r.Amplification)
		assert.LessOrEqual(t, r.Samples, cfg.WindowSamples)
	})

	t.Run("fast swipe is clamped", func(t *testing.T) {
		r := Classify(swipe(4, 0.1, 0), tracking.PointerHand, cfg, nil)
		require.False(t, r.Tap)
		assert.InDelta(t, cfg.MaxThrowMps, r.Velocity.Len(), 1e-9)
	})

	t.Run("vertical damping keeps a fraction", func(t *testing.T) {
		c := cfg
		c.VerticalDamping = 0.5
		samples := []geometry.Sample{
			{Position: mgl64.Vec3{0, 0, 0}, Time: 0},
			{Position: mgl64.Vec3{0.01, 0.01, 0}, Time: 0.05},
			{Position: mgl64.Vec3{0.02, 0.02, 0}, Time: 0.1},
		}
		r := Classify(samples, tracking.PointerScreen, c, nil)
		require.False(t, r.Tap)
		assert.InDelta(t, 0.1, r.Velocity.Y(), 1e-9)
		assert.InDelta(t, 0.2, r.Velocity.X(), 1e-9)
	})

	t.Run("amplification by pointer kind", func(t *testing.T) {
		samples := swipe(0.3, 0.2, 0)
		hand := Classify(samples, tracking.PointerHand, cfg, nil).Velocity.Len()
		ctrl := Classify(samples, tracking.PointerController, cfg, nil).Velocity.Len()
		screen := Classify(samples, tracking.PointerScreen, cfg, nil).Velocity.Len()
		assert.Greater(t, hand, ctrl)
		assert.Greater(t, ctrl, screen)
		assert.InDelta(t, 0.3, screen, 1e-6)
	})

	t.Run("only the recent window counts", func(t *testing.T) {
		var samples []geometry.Sample
		for i := 0; i < 20; i++ {
			samples = append(samples, geometry.Sample{Position: mgl64.Vec3{0.001 * float64(i), 0, 0}, Time: float64(i) * frame})
		}
		last := samples[len(samples)-1]
		for i := 1; i <= 6; i++ {
			samples = append(samples, geometry.Sample{
				Position: last.Position.Add(mgl64.Vec3{0.5 * float64(i) * frame, 0, 0}),
				Time:     last.Time + float64(i)*frame,
			})
		}
		r := Classify(samples, tracking.PointerScreen, cfg, nil)
		require.False(t, r.Tap)
		assert.InDelta(t, 0.5, r.Velocity.X(), 0.05)
	})

	t.Run("angular jitter stays vertical and bounded", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		for i := 0; i < 50; i++ {
			r := Classify(swipe(1, 0.2, 0), tracking.PointerScreen, cfg, rng)
			assert.Zero(t, r.Angular.X())
			assert.Zero(t, r.Angular.Z())
			assert.LessOrEqual(t, math.Abs(r.Angular.Y()), cfg.AngularJitter)
		}
	})
}

func TestSampleRing(t *testing.T) {
	r := newSampleRing(3)
	for i := 0; i < 5; i++ {
		r.push(geometry.Sample{Time: float64(i)})
	}
	require.Equal(t, 3, r.len())
	got := r.samples()
	assert.Equal(t, []float64{2, 3, 4}, []float64{got[0].Time, got[1].Time, got[2].Time})

	r.reset()
	assert.Empty(t, r.samples())
	assert.Equal(t, 2, len(newSampleRing(0).buf))
}

func TestControllerGrabDragThrow(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{-0.2, 0.77, -0.5}}
	c, _ := newTestController(target, true)
	assert.Equal(t, PhaseIdle, c.Phase())

	now := 0.0
	in := input(now, aimAt(-0.2, -0.5))
	in.Pressed = true
	ev := c.Update(in)
	require.Equal(t, EventGrabbed, ev.Kind)
	assert.Equal(t, PhaseDragging, c.Phase())
	assert.Same(t, target, ev.Target.(*fakeTarget))
	assert.True(t, target.kinematic)

	for i := 1; i <= 12; i++ {
		now += frame
		ev = c.Update(input(now, aimAt(-0.2+0.6*now, -0.5)))
		require.Equal(t, EventDragged, ev.Kind)
		assert.InDelta(t, 0.77, target.pos.Y(), 1e-9)
	}
	assert.Greater(t, target.pos.X(), -0.2)

	now += frame
	in = input(now, aimAt(-0.2+0.6*now, -0.5))
	in.Released = true
	ev = c.Update(in)
	require.Equal(t, EventReleased, ev.Kind)
	require.NotNil(t, ev.Release)
	assert.False(t, ev.Release.Tap)
	assert.False(t, ev.TimedOut)
	assert.Equal(t, 1.8, ev.Release.Amplification)

	assert.False(t, target.kinematic)
	assert.Equal(t, []bool{true, false}, target.toggles)
	assert.Equal(t, 1, target.applied)
	assert.InDelta(t, 0.6*1.8, target.velocity.X(), 0.1)
	assert.Zero(t, target.velocity.Y())
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Nil(t, c.Target())

	throws, taps, timeouts := c.Stats()
	assert.Equal(t, 1, throws)
	assert.Zero(t, taps)
	assert.Zero(t, timeouts)
}

func TestControllerTapRelease(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0, 0.77, -0.5}}
	c, _ := newTestController(target, true)

	in := input(0, aimAt(0, -0.5))
	in.Pressed = true
	require.Equal(t, EventGrabbed, c.Update(in).Kind)
	require.Equal(t, EventDragged, c.Update(input(frame, aimAt(0, -0.5))).Kind)

	in = input(2*frame, aimAt(0, -0.5))
	in.Released = true
	ev := c.Update(in)
	require.Equal(t, EventReleased, ev.Kind)
	assert.True(t, ev.Release.Tap)
	assert.Zero(t, target.applied)
	assert.False(t, target.kinematic)
}

func TestControllerOffCentreGrabHeldStill(t *testing.T) {
	cfg := DefaultConfig()
	for _, off := range []float64{0, 0.04} {
		t.Run(fmt.Sprintf("offset %.2f", off), func(t *testing.T) {
			// Resting height, below the lifted drag height.
			target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0.1, 0.76, -0.5}}
			c, _ := newTestController(target, true)
			pose := tracking.AimingPose(origin, mgl64.Vec3{0.1 + off, 0.77, -0.5 + off})

			in := input(0, pose)
			in.Pressed = true
			require.Equal(t, EventGrabbed, c.Update(in).Kind)
			require.Equal(t, EventDragged, c.Update(input(frame, pose)).Kind)
			assert.InDelta(t, 0.1, target.pos.X(), 1e-9)
			assert.InDelta(t, -0.5, target.pos.Z(), 1e-9)

			samples := c.Samples()
			require.Len(t, samples, 2)
			assert.InDelta(t, 0, geometry.Displacement(samples), 1e-9)
			assert.InDelta(t, 0.76+cfg.LiftM, samples[0].Position.Y(), 1e-9)

			in = input(2*frame, pose)
			in.Released = true
			ev := c.Update(in)
			require.Equal(t, EventReleased, ev.Kind)
			assert.True(t, ev.Release.Tap)
			assert.Zero(t, target.applied)
		})
	}
}

func TestControllerDragStaysInsideBounds(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0, 0.77, -0.5}}
	c, _ := newTestController(target, true)
	cfg := DefaultConfig()

	in := input(0, aimAt(0, -0.5))
	in.Pressed = true
	c.Update(in)

	now := 0.0
	for i := 0; i < 60; i++ {
		now += frame
		c.Update(input(now, aimAt(3, -0.5)))
	}
	limit := 0.4 - cfg.EdgeMarginM - target.Radius()
	assert.InDelta(t, limit, target.pos.X(), 1e-6)
	assert.True(t, testBounds.Contains(target.pos, cfg.EdgeMarginM+target.Radius()-1e-9))
}

func TestControllerSmoothing(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0, 0.77, -0.5}}
	c, _ := newTestController(target, true)

	in := input(0, aimAt(0, -0.5))
	in.Pressed = true
	c.Update(in)

	c.Update(input(frame, aimAt(0.2, -0.5)))
	assert.InDelta(t, 0.2*(1-0.35), target.pos.X(), 1e-6)

	now := frame
	for i := 0; i < 40; i++ {
		now += frame
		c.Update(input(now, aimAt(0.2, -0.5)))
	}
	assert.InDelta(t, 0.2, target.pos.X(), 1e-6)
}

func TestControllerSelecting(t *testing.T) {
	t.Run("resolves on a following frame", func(t *testing.T) {
		target := &fakeTarget{id: "plate-1"}
		c, picker := newTestController(target, false)

		in := input(0, aimAt(0, -0.5))
		in.Pressed = true
		assert.Equal(t, EventNone, c.Update(in).Kind)
		assert.Equal(t, PhaseSelecting, c.Phase())

		picker.enabled = true
		ev := c.Update(input(frame, aimAt(0, -0.5)))
		assert.Equal(t, EventGrabbed, ev.Kind)
		assert.Equal(t, 2, picker.calls)
	})

	t.Run("times out without a target", func(t *testing.T) {
		c, _ := newTestController(&fakeTarget{id: "plate-1"}, false)
		in := input(0, aimAt(0, -0.5))
		in.Pressed = true
		c.Update(in)

		now := 0.0
		var ev Event
		for c.Phase() == PhaseSelecting && now < 1 {
			now += frame
			ev = c.Update(input(now, aimAt(0, -0.5)))
		}
		assert.Equal(t, EventCancelled, ev.Kind)
		assert.True(t, ev.TimedOut)
		assert.InDelta(t, DefaultConfig().SelectingTimeout, now, 2*frame)
	})

	t.Run("release cancels", func(t *testing.T) {
		target := &fakeTarget{id: "plate-1"}
		c, _ := newTestController(target, false)
		in := input(0, aimAt(0, -0.5))
		in.Pressed = true
		c.Update(in)

		in = input(frame, aimAt(0, -0.5))
		in.Released = true
		ev := c.Update(in)
		assert.Equal(t, EventCancelled, ev.Kind)
		assert.False(t, ev.TimedOut)
		assert.Empty(t, target.toggles)
	})

	t.Run("no pose while pressing", func(t *testing.T) {
		c, picker := newTestController(&fakeTarget{id: "plate-1"}, true)
		in := input(0, nil)
		in.Pressed = true
		assert.Equal(t, EventNone, c.Update(in).Kind)
		assert.Zero(t, picker.calls)
		assert.Equal(t, PhaseSelecting, c.Phase())
	})
}

func TestControllerDropout(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0, 0.77, -0.5}}
	c, _ := newTestController(target, true)

	in := input(0, aimAt(0, -0.5))
	in.Pressed = true
	c.Update(in)
	now := frame
	c.Update(input(now, aimAt(0.1, -0.5)))

	var ev Event
	for i := 0; i < 120 && c.Phase() == PhaseDragging; i++ {
		now += frame
		gone := input(now, nil)
		gone.Present = i%2 == 0
		ev = c.Update(gone)
	}
	require.Equal(t, EventReleased, ev.Kind)
	assert.True(t, ev.TimedOut)
	assert.True(t, ev.Release.Tap)
	assert.False(t, target.kinematic)
	assert.Zero(t, target.applied)
	assert.InDelta(t, frame+DefaultConfig().DropoutTimeout, now, 2*frame)

	_, _, timeouts := c.Stats()
	assert.Equal(t, 1, timeouts)
}

func TestControllerDropoutRecovers(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0, 0.77, -0.5}}
	c, _ := newTestController(target, true)

	in := input(0, aimAt(0, -0.5))
	in.Pressed = true
	c.Update(in)

	now := 0.0
	for i := 0; i < 10; i++ {
		now += frame
		assert.Equal(t, EventNone, c.Update(input(now, nil)).Kind)
	}
	now += frame
	assert.Equal(t, EventDragged, c.Update(input(now, aimAt(0, -0.5))).Kind)
	assert.Equal(t, PhaseDragging, c.Phase())
}

func TestControllerDisposedTarget(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0, 0.77, -0.5}}
	c, _ := newTestController(target, true)

	in := input(0, aimAt(0, -0.5))
	in.Pressed = true
	c.Update(in)

	target.disposed = true
	ev := c.Update(input(frame, aimAt(0, -0.5)))
	assert.Equal(t, EventCancelled, ev.Kind)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestControllerAbort(t *testing.T) {
	target := &fakeTarget{id: "plate-1", pos: mgl64.Vec3{0, 0.77, -0.5}}
	c, _ := newTestController(target, true)

	in := input(0, aimAt(0, -0.5))
	in.Pressed = true
	c.Update(in)
	require.True(t, target.kinematic)

	c.Abort()
	assert.False(t, target.kinematic)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Zero(t, target.applied)

	c.Abort()
	assert.Equal(t, []bool{true, false}, target.toggles)
}

func TestPhaseAndEventStrings(t *testing.T) {
	assert.Equal(t, "dragging", PhaseDragging.String())
	assert.Equal(t, "releasing", PhaseReleasing.String())
	assert.Equal(t, "grabbed", EventGrabbed.String())
	assert.Equal(t, "cancelled", EventCancelled.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
