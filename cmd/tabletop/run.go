package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/tabletop/internal/config"
	"github.com/banshee-data/tabletop/internal/desktop"
	"github.com/banshee-data/tabletop/internal/gesture"
	"github.com/banshee-data/tabletop/internal/monitor"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/render"
	"github.com/banshee-data/tabletop/internal/rigid"
	"github.com/banshee-data/tabletop/internal/session"
	"github.com/banshee-data/tabletop/internal/timeutil"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

// summary is what a run reports at the end.
type summary struct {
	Frames         int
	Selected       string
	Placed         bool
	Bounds         desktop.Bounds
	Plates         int
	Throws         int
	Taps           int
	Timeouts       int
	SubSteps       int64
	DroppedSeconds float64
	Plots          int
	PlotDir        string
	Recorded       int
}

// frameSource yields the frames of a run. The session is passed so a
// scripted source can react to what the session has done so far.
type frameSource interface {
	next(sess *session.Session) (*tracking.Snapshot, bool)
}

type replaySource struct {
	frames []*tracking.Snapshot
	i      int
}

func (r *replaySource) next(*session.Session) (*tracking.Snapshot, bool) {
	if r.i >= len(r.frames) {
		return nil, false
	}
	f := r.frames[r.i]
	r.i++
	return f, true
}

func run(s settings) (summary, error) {
	var tuning *config.TuningConfig
	if s.TuningPath != "" {
		t, err := config.LoadTuningConfig(s.TuningPath)
		if err != nil {
			return summary{}, err
		}
		tuning = t
	}
	cfg := session.ConfigFromTuning(tuning)
	cfg.Seed = s.Seed

	var source frameSource
	if s.Scenario != "" {
		frames, err := tracking.LoadScenario(s.Scenario)
		if err != nil {
			return summary{}, err
		}
		monitoring.Logf("replaying %d frames from %s", len(frames), s.Scenario)
		source = &replaySource{frames: frames}
	} else {
		source = newSyntheticScript(s.Seed)
	}

	sess := session.New(rigid.NewWorld(), render.NewRecorder(), timeutil.RealClock{}, cfg)
	defer sess.Dispose()

	var plotter *monitor.TrajectoryPlotter
	var sum summary
	if s.PlotDir != "" {
		plotter = monitor.NewTrajectoryPlotter()
		sum.PlotDir = monitor.MakePlotOutputDir(s.PlotDir, s.Scenario, time.Now())
		if err := plotter.Start(sum.PlotDir); err != nil {
			return summary{}, err
		}
	}

	d := &director{plates: s.Plates}
	var recorded []*tracking.Snapshot
	for sum.Frames < s.Frames {
		f, ok := source.next(sess)
		if !ok {
			break
		}
		res := sess.OnFrame(f)
		sum.Frames++
		if s.Record != "" {
			recorded = append(recorded, f)
		}
		if err := d.after(sess, f, res); err != nil {
			return sum, err
		}
		for _, ev := range res.Gestures {
			if ev.Kind != gesture.EventReleased {
				continue
			}
			switch {
			case ev.TimedOut:
				sum.Timeouts++
			case ev.Release.Tap:
				sum.Taps++
			default:
				sum.Throws++
			}
		}
		if plotter != nil {
			if b, ok := sess.Stage().Bounds(); ok {
				plotter.SetBounds(b)
			}
			plotter.Sample(res.Time, sess.Stage().Bodies())
		}
	}

	if sel := sess.Catalog().Selected(); sel != nil {
		sum.Selected = sel.ID()
	}
	sum.Bounds, sum.Placed = sess.Anchor().Bounds()
	sum.Plates = len(sess.Stage().Bodies())
	st := sess.Stage().Stats()
	sum.SubSteps = st.Steps
	sum.DroppedSeconds = st.DroppedSeconds

	if plotter != nil {
		plotter.Stop()
		n, err := plotter.GeneratePlots()
		if err != nil {
			return sum, fmt.Errorf("generate plots: %w", err)
		}
		sum.Plots = n
	}
	if s.Record != "" {
		if err := tracking.SaveScenario(s.Record, "tabletop", recorded); err != nil {
			return sum, err
		}
		sum.Recorded = len(recorded)
	}
	return sum, nil
}

// director performs the caller-side steps a UI would: select the pointed
// surface on a select start, place the desktop as soon as a pose is
// available and spawn the plates once.
type director struct {
	plates  int
	spawned bool
}

func (d *director) after(sess *session.Session, f tracking.Frame, res session.FrameResult) error {
	cat := sess.Catalog()
	if cat.Selected() == nil {
		if res.Pointed == nil {
			return nil
		}
		for _, ev := range f.Events() {
			if ev.Type != tracking.SelectStart {
				continue
			}
			err := sess.SelectSurface(ev.PointerID)
			if err == nil {
				break
			}
			if !errors.Is(err, session.ErrNothingPointed) {
				return err
			}
		}
		return nil
	}

	if !sess.Anchor().Placed() {
		_, err := sess.PlaceDesktop()
		if errors.Is(err, desktop.ErrNoPose) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	if !d.spawned {
		b, _ := sess.Anchor().Bounds()
		if _, err := sess.SpawnPlates(b, d.plates); err != nil {
			return err
		}
		d.spawned = true
	}
	return nil
}

// syntheticScript drives the synthetic room: aim at the table and tap to
// select it, wait for the plates to settle, then grab one and throw it
// toward the middle of the desktop.
type syntheticScript struct {
	rt    *tracking.SyntheticRuntime
	step  scriptStep
	wait  int
	start mgl64.Vec3
	dir   mgl64.Vec3
	drag  int
}

type scriptStep int

const (
	stepSelect scriptStep = iota
	stepSettle
	stepDrag
	stepDone
)

const (
	settleFrames = 30
	dragFrames   = 12
	dragSpeedMps = 0.6
)

func newSyntheticScript(seed int64) *syntheticScript {
	rt := tracking.NewSyntheticRuntime(seed)
	rt.AimAt(rt.TableCenter().Add(mgl64.Vec3{0.05, 0, 0.05}))
	return &syntheticScript{rt: rt}
}

func (sc *syntheticScript) next(sess *session.Session) (*tracking.Snapshot, bool) {
	switch sc.step {
	case stepSelect:
		if sess.Selector().Pointed() != nil {
			sc.rt.Press()
			sc.rt.Release()
			sc.step = stepSettle
		}
	case stepSettle:
		bodies := sess.Stage().Bodies()
		if len(bodies) == 0 {
			break
		}
		if sc.wait++; sc.wait < settleFrames {
			break
		}
		b, _ := sess.Stage().Bounds()
		sc.start = bodies[0].Position()
		sc.dir = b.Center.Sub(sc.start)
		sc.dir[1] = 0
		if sc.dir.Len() < 1e-6 {
			sc.dir = mgl64.Vec3{1, 0, 0}
		}
		sc.dir = sc.dir.Normalize()
		sc.rt.AimAt(sc.start)
		sc.rt.Press()
		sc.step = stepDrag
	case stepDrag:
		sc.drag++
		b, _ := sess.Stage().Bounds()
		aim := sc.start.Add(sc.dir.Mul(dragSpeedMps * float64(sc.drag) / sc.rt.FrameRate))
		aim[1] = b.SurfaceY()
		sc.rt.AimAt(aim)
		if sc.drag >= dragFrames {
			sc.rt.Release()
			sc.step = stepDone
		}
	case stepDone:
		sc.rt.AimAt(sc.rt.TableCenter())
	}
	return sc.rt.NextFrame(), true
}
