// Package monitor records diagnostics of a run and renders them as plots.
package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/tabletop/internal/desktop"
	"github.com/banshee-data/tabletop/internal/physics"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TrajectoryPlotter records plate positions over a run and saves a top
// view of the paths and a height-over-time chart.
type TrajectoryPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string

	samples map[string][]TrajectorySample
	order   []string // first-seen order, used for colours and legend

	bounds    desktop.Bounds
	hasBounds bool
}

// TrajectorySample is one recorded plate position.
type TrajectorySample struct {
	Time     float64 // seconds since the first frame
	Position mgl64.Vec3
}

// NewTrajectoryPlotter creates a disabled plotter.
func NewTrajectoryPlotter() *TrajectoryPlotter {
	return &TrajectoryPlotter{samples: make(map[string][]TrajectorySample)}
}

// Start clears previous samples and starts recording into outputDir.
func (tp *TrajectoryPlotter) Start(outputDir string) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	tp.outputDir = outputDir
	tp.enabled = true
	tp.samples = make(map[string][]TrajectorySample)
	tp.order = nil
	tp.hasBounds = false
	return nil
}

// Stop disables recording. Call GeneratePlots to write the files.
func (tp *TrajectoryPlotter) Stop() {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.enabled = false
}

// IsEnabled returns true while recording.
func (tp *TrajectoryPlotter) IsEnabled() bool {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.enabled
}

// SetBounds draws the desktop outline in the top view.
func (tp *TrajectoryPlotter) SetBounds(b desktop.Bounds) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.bounds = b
	tp.hasBounds = true
}

// Record adds one position for a plate.
func (tp *TrajectoryPlotter) Record(id string, t float64, pos mgl64.Vec3) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.record(id, t, pos)
}

func (tp *TrajectoryPlotter) record(id string, t float64, pos mgl64.Vec3) {
	if !tp.enabled {
		return
	}
	if _, ok := tp.samples[id]; !ok {
		tp.order = append(tp.order, id)
	}
	tp.samples[id] = append(tp.samples[id], TrajectorySample{Time: t, Position: pos})
}

// Sample records the current position of every live plate.
func (tp *TrajectoryPlotter) Sample(t float64, bodies []*physics.InteractiveBody) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	for _, b := range bodies {
		if b.Disposed() {
			continue
		}
		tp.record(b.ID(), t, b.Position())
	}
}

// SampleCount returns the number of recorded positions.
func (tp *TrajectoryPlotter) SampleCount() int {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	n := 0
	for _, s := range tp.samples {
		n += len(s)
	}
	return n
}

// Samples returns a copy of one plate's samples.
func (tp *TrajectoryPlotter) Samples(id string) []TrajectorySample {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return append([]TrajectorySample(nil), tp.samples[id]...)
}

// OutputDir returns the current output directory.
func (tp *TrajectoryPlotter) OutputDir() string {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.outputDir
}

// GeneratePlots writes trajectories_xz.png and heights.png. It returns the
// number of files written.
func (tp *TrajectoryPlotter) GeneratePlots() (int, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(tp.samples) == 0 {
		return 0, nil
	}

	ids := append([]string(nil), tp.order...)
	palette := generateColors(len(ids))

	top := plot.New()
	top.Title.Text = "Plate trajectories (top view)"
	top.X.Label.Text = "X (m)"
	top.Y.Label.Text = "Z (m)"

	heights := plot.New()
	heights.Title.Text = "Plate height"
	heights.X.Label.Text = "Time (s)"
	heights.Y.Label.Text = "Y (m)"

	if tp.hasBounds {
		outline, err := plotter.NewLine(boundsOutline(tp.bounds))
		if err != nil {
			return 0, err
		}
		outline.Color = color.Gray{Y: 120}
		outline.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		top.Add(outline)
		top.Legend.Add("desktop", outline)

		surface, err := plotter.NewLine(plotter.XYs{{X: 0, Y: tp.bounds.SurfaceY()}, {X: tp.lastTime(), Y: tp.bounds.SurfaceY()}})
		if err != nil {
			return 0, err
		}
		surface.Color = color.Gray{Y: 120}
		surface.Dashes = outline.Dashes
		heights.Add(surface)
		heights.Legend.Add("surface", surface)
	}

	for i, id := range ids {
		samples := tp.samples[id]
		sort.SliceStable(samples, func(a, b int) bool { return samples[a].Time < samples[b].Time })

		xz := make(plotter.XYs, 0, len(samples))
		ty := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			xz = append(xz, plotter.XY{X: s.Position.X(), Y: s.Position.Z()})
			ty = append(ty, plotter.XY{X: s.Time, Y: s.Position.Y()})
		}
		label := shortID(id)

		path, err := plotter.NewLine(xz)
		if err != nil {
			return 0, fmt.Errorf("plate %s: %w", id, err)
		}
		path.Color = palette[i]
		path.Width = vg.Points(1)
		top.Add(path)
		top.Legend.Add(label, path)

		h, err := plotter.NewLine(ty)
		if err != nil {
			return 0, fmt.Errorf("plate %s: %w", id, err)
		}
		h.Color = palette[i]
		h.Width = vg.Points(1)
		heights.Add(h)
		heights.Legend.Add(label, h)
	}

	for _, p := range []*plot.Plot{top, heights} {
		p.Legend.Top = true
		p.Legend.Left = false
		p.Legend.XOffs = -10
		p.Legend.YOffs = -10
	}
	top.X.Min, top.X.Max, top.Y.Min, top.Y.Max = squareRange(top)

	topFile := filepath.Join(tp.outputDir, "trajectories_xz.png")
	if err := top.Save(8*vg.Inch, 8*vg.Inch, topFile); err != nil {
		return 0, fmt.Errorf("save trajectory plot: %w", err)
	}
	heightFile := filepath.Join(tp.outputDir, "heights.png")
	if err := heights.Save(12*vg.Inch, 5*vg.Inch, heightFile); err != nil {
		return 1, fmt.Errorf("save height plot: %w", err)
	}
	return 2, nil
}

func (tp *TrajectoryPlotter) lastTime() float64 {
	last := 0.0
	for _, s := range tp.samples {
		for _, v := range s {
			last = math.Max(last, v.Time)
		}
	}
	return last
}

// boundsOutline returns the closed desktop rectangle in world XZ.
func boundsOutline(b desktop.Bounds) plotter.XYs {
	r := b.Local
	corners := []mgl64.Vec3{
		{r.MinX, 0, r.MinZ}, {r.MaxX, 0, r.MinZ}, {r.MaxX, 0, r.MaxZ}, {r.MinX, 0, r.MaxZ}, {r.MinX, 0, r.MinZ},
	}
	out := make(plotter.XYs, len(corners))
	for i, c := range corners {
		w := b.ToWorld(c)
		out[i] = plotter.XY{X: w.X(), Y: w.Z()}
	}
	return out
}

// squareRange widens the shorter axis so the top view keeps metric aspect.
func squareRange(p *plot.Plot) (xmin, xmax, ymin, ymax float64) {
	xmin, xmax, ymin, ymax = p.X.Min, p.X.Max, p.Y.Min, p.Y.Max
	half := math.Max(xmax-xmin, ymax-ymin)/2 + 0.05
	cx, cy := (xmin+xmax)/2, (ymin+ymax)/2
	return cx - half, cx + half, cy - half, cy + half
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// generateColors spreads n hues evenly around the colour wheel.
func generateColors(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		r, g, b := hslToRGB(float64(i)/float64(n), 0.7, 0.5)
		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

func hslToRGB(h, s, l float64) (r, g, b uint8) {
	q := l + s - l*s
	if l < 0.5 {
		q = l * (1 + s)
	}
	p := 2*l - q
	channel := func(t float64) uint8 {
		t -= math.Floor(t)
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return channel(h + 1.0/3), channel(h), channel(h - 1.0/3)
}

// FormatTimestamp generates a timestamp string for directory naming.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// MakePlotOutputDir returns plots/<scenario>/<timestamp> for a replayed
// scenario file, or plots/synthetic_<timestamp> for a synthetic run.
func MakePlotOutputDir(baseDir, scenarioFile string, now time.Time) string {
	ts := FormatTimestamp(now)
	if scenarioFile != "" {
		base := filepath.Base(scenarioFile)
		name := base[:len(base)-len(filepath.Ext(base))]
		return filepath.Join(baseDir, sanitizeName(name), ts)
	}
	return filepath.Join(baseDir, "synthetic_"+ts)
}

// sanitizeName keeps ASCII letters, digits, dot, underscore and dash and
// collapses every other run of characters into one underscore.
func sanitizeName(s string) string {
	var b strings.Builder
	under := false
	for _, r := range s {
		switch {
		case r < 128 && (r == '.' || r == '_' || r == '-' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')):
			b.WriteRune(r)
			under = false
		case !under:
			b.WriteByte('_')
			under = true
		}
	}
	out := strings.Trim(b.String(), "_.")
	if out == "" {
		return "scenario"
	}
	return out
}
