package tracking

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// maxScenarioBytes bounds scenario files read from disk.
const maxScenarioBytes = 32 << 20

type scenarioJSON struct {
	Name   string      `json:"name,omitempty"`
	Frames []frameJSON `json:"frames"`
}

type poseJSON struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"` // x, y, z, w
}

type surfaceJSON struct {
	ID          string          `json:"id"`
	Polygon     [][3]float64    `json:"polygon"`
	Pose        *poseJSON       `json:"pose,omitempty"`
	Orientation OrientationHint `json:"orientation,omitempty"`
}

type pointerJSON struct {
	ID   string      `json:"id"`
	Kind PointerKind `json:"kind"`
	Pose *poseJSON   `json:"pose,omitempty"`
}

type frameJSON struct {
	TimeSeconds float64             `json:"t"`
	Surfaces    []surfaceJSON       `json:"surfaces,omitempty"`
	Pointers    []pointerJSON       `json:"pointers,omitempty"`
	Events      []InputEvent        `json:"events,omitempty"`
	Spaces      map[string]poseJSON `json:"spaces,omitempty"`
}

// LoadScenario reads a JSON scenario file into replayable snapshots.
func LoadScenario(path string) ([]*Snapshot, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return nil, fmt.Errorf("scenario file must be .json, got %q", ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()
	return ReadScenario(io.LimitReader(f, maxScenarioBytes))
}

// ReadScenario decodes a scenario from r.
func ReadScenario(r io.Reader) ([]*Snapshot, error) {
	var sc scenarioJSON
	if err := json.NewDecoder(r).Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	out := make([]*Snapshot, 0, len(sc.Frames))
	for i, fj := range sc.Frames {
		snap, err := fj.snapshot()
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// WriteScenario encodes frames as a scenario. Timestamps are written as
// seconds since the first frame.
func WriteScenario(w io.Writer, name string, frames []*Snapshot) error {
	sc := scenarioJSON{Name: name, Frames: make([]frameJSON, 0, len(frames))}
	var origin time.Time
	if len(frames) > 0 {
		origin = frames[0].Timestamp
	}
	for _, f := range frames {
		sc.Frames = append(sc.Frames, newFrameJSON(f, origin))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sc)
}

// SaveScenario writes frames to a JSON file at path.
func SaveScenario(path, name string, frames []*Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create scenario: %w", err)
	}
	if err := WriteScenario(f, name, frames); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (fj frameJSON) snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Timestamp: time.Unix(0, 0).UTC().Add(time.Duration(fj.TimeSeconds * float64(time.Second))),
		Signals:   fj.Events,
	}
	for _, sj := range fj.Surfaces {
		if sj.ID == "" {
			return nil, errors.New("surface without id")
		}
		poly := make([]mgl64.Vec3, len(sj.Polygon))
		for i, p := range sj.Polygon {
			poly[i] = mgl64.Vec3(p)
		}
		snap.Surfaces = append(snap.Surfaces, DetectedSurface{
			ID:          sj.ID,
			Polygon:     poly,
			Pose:        sj.Pose.pose(),
			Orientation: sj.Orientation,
		})
	}
	for _, pj := range fj.Pointers {
		switch pj.Kind {
		case PointerHand, PointerController, PointerScreen:
		default:
			return nil, fmt.Errorf("pointer %q: unknown kind %q", pj.ID, pj.Kind)
		}
		snap.Pointers = append(snap.Pointers, Pointer{ID: pj.ID, Kind: pj.Kind, Pose: pj.Pose.pose()})
	}
	if len(fj.Spaces) > 0 {
		snap.Spaces = make(map[string]Pose, len(fj.Spaces))
		for name, pj := range fj.Spaces {
			snap.Spaces[name] = *pj.pose()
		}
	}
	return snap, nil
}

func newFrameJSON(s *Snapshot, origin time.Time) frameJSON {
	fj := frameJSON{
		TimeSeconds: s.Timestamp.Sub(origin).Seconds(),
		Events:      s.Signals,
	}
	for _, ds := range s.Surfaces {
		poly := make([][3]float64, len(ds.Polygon))
		for i, p := range ds.Polygon {
			poly[i] = [3]float64(p)
		}
		fj.Surfaces = append(fj.Surfaces, surfaceJSON{
			ID:          ds.ID,
			Polygon:     poly,
			Pose:        newPoseJSON(ds.Pose),
			Orientation: ds.Orientation,
		})
	}
	for _, p := range s.Pointers {
		fj.Pointers = append(fj.Pointers, pointerJSON{ID: p.ID, Kind: p.Kind, Pose: newPoseJSON(p.Pose)})
	}
	if len(s.Spaces) > 0 {
		fj.Spaces = make(map[string]poseJSON, len(s.Spaces))
		for name, p := range s.Spaces {
			fj.Spaces[name] = *newPoseJSON(&p)
		}
	}
	return fj
}

func newPoseJSON(p *Pose) *poseJSON {
	if p == nil {
		return nil
	}
	q := p.Orientation
	return &poseJSON{
		Position:    [3]float64(p.Position),
		Orientation: [4]float64{q.V[0], q.V[1], q.V[2], q.W},
	}
}

func (pj *poseJSON) pose() *Pose {
	if pj == nil {
		return nil
	}
	o := pj.Orientation
	return PosePtr(mgl64.Vec3(pj.Position), mgl64.Quat{W: o[3], V: mgl64.Vec3{o[0], o[1], o[2]}})
}
