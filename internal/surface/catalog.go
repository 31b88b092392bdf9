// Package surface maintains the set of candidate horizontal surfaces from
// the runtime's per-frame plane reports and owns their visual proxies.
package surface

import (
	"slices"
	"sort"

	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/monitoring"
	"github.com/banshee-data/tabletop/internal/render"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

// State is a surface's position in the selection lifecycle.
type State string

const (
	StateCandidate  State = "candidate"  // reported but not yet classifiable (no pose)
	StateRejected   State = "rejected"   // failed the rejection policy this frame
	StateSelectable State = "selectable" // table-like, offered to the user
	StateSelected   State = "selected"   // chosen; frozen for the rest of the session
)

// Surface is one tracked plane. Only the Catalog mutates it.
type Surface struct {
	id          string
	seq         uint64
	polygon     []mgl64.Vec3
	pose        geometry.Pose
	hasPose     bool
	orientation Orientation
	height      float64
	area        float64
	state       State
	verdict     Verdict

	triangles []geometry.Triangle
	visual    render.Handle
}

func (s *Surface) ID() string               { return s.id }
func (s *Surface) State() State             { return s.state }
func (s *Surface) Orientation() Orientation { return s.orientation }
func (s *Surface) Height() float64          { return s.height }
func (s *Surface) Area() float64            { return s.area }
func (s *Surface) Verdict() Verdict         { return s.verdict }
func (s *Surface) Visual() render.Handle    { return s.visual }

// Pose returns the latest known pose; ok is false before the first pose.
func (s *Surface) Pose() (geometry.Pose, bool) { return s.pose, s.hasPose }

// Polygon returns a copy of the local-frame polygon.
func (s *Surface) Polygon() []mgl64.Vec3 { return slices.Clone(s.polygon) }

// Triangles returns the world-space fan triangulation used for ray tests.
func (s *Surface) Triangles() []geometry.Triangle { return s.triangles }

// IngestResult summarises one Ingest call.
type IngestResult struct {
	Added      []string
	Retired    []string
	Rejected   []string
	Selectable int
}

// Stats are cumulative catalog counters.
type Stats struct {
	FilterStats
	Added   int64
	Retired int64
	Live    int
}

// Catalog is the arena of tracked surfaces keyed by runtime id. It is not
// safe for concurrent use.
type Catalog struct {
	filter *RejectionFilter
	scene  render.Scene

	surfaces map[string]*Surface
	nextSeq  uint64
	selected *Surface

	othersHidden bool
	added        int64
	retired      int64
}

// NewCatalog creates an empty catalog. scene may be nil for headless use.
func NewCatalog(scene render.Scene, cfg Config) *Catalog {
	return &Catalog{
		filter:   NewRejectionFilter(cfg),
		scene:    scene,
		surfaces: make(map[string]*Surface),
	}
}

// Ingest reconciles the catalog with one frame's plane report. Reported
// surfaces are created or updated and classified; surfaces whose id is
// absent are retired immediately. The selected surface is frozen and
// never updated or retired.
func (c *Catalog) Ingest(planes []tracking.DetectedSurface) IngestResult {
	var res IngestResult
	seen := make(map[string]struct{}, len(planes))

	for i := range planes {
		p := &planes[i]
		if p.ID == "" {
			continue
		}
		seen[p.ID] = struct{}{}

		s, ok := c.surfaces[p.ID]
		if !ok {
			c.nextSeq++
			s = &Surface{id: p.ID, seq: c.nextSeq, state: StateCandidate}
			c.surfaces[p.ID] = s
			c.added++
			res.Added = append(res.Added, p.ID)
		}
		if s.state == StateSelected {
			continue
		}
		before := s.state
		c.update(s, p)
		if s.state == StateRejected && before != StateRejected {
			res.Rejected = append(res.Rejected, s.id)
			monitoring.Logf("surface %s rejected (%s) height=%.2fm area=%.2fm²", s.id, s.verdict, s.height, s.area)
		}
		if s.state == StateSelectable && before != StateSelectable {
			monitoring.Logf("surface %s selectable height=%.2fm area=%.2fm²", s.id, s.height, s.area)
		}
	}

	for _, s := range c.ordered() {
		if _, ok := seen[s.id]; ok || s.state == StateSelected {
			continue
		}
		c.retire(s)
		res.Retired = append(res.Retired, s.id)
	}

	res.Selectable = len(c.Selectable())
	return res
}

func (c *Catalog) update(s *Surface, p *tracking.DetectedSurface) {
	polygonChanged := !slices.Equal(s.polygon, p.Polygon)
	if polygonChanged {
		s.polygon = slices.Clone(p.Polygon)
	}

	// Missing pose: the plane is known but cannot be classified this frame.
	if p.Pose == nil {
		s.hasPose = false
		s.triangles = nil
		s.state = StateCandidate
		c.setProxyVisible(s, false)
		return
	}
	poseChanged := !s.hasPose || s.pose != *p.Pose
	s.pose = *p.Pose
	s.hasPose = true

	// Orientation is decided once; planes that are not horizontal stay
	// ignored for the session.
	if s.orientation == "" {
		s.orientation = c.filter.Classify(p.Orientation, s.pose)
	}

	s.area = geometry.PolygonArea(s.polygon)
	s.height = s.pose.Transform(geometry.PolygonCentroid(s.polygon)).Y()
	s.verdict = c.filter.Evaluate(s.orientation, s.height, s.area)

	if s.verdict != Accepted {
		s.state = StateRejected
		s.triangles = nil
		c.removeProxy(s)
		return
	}

	s.state = StateSelectable
	if polygonChanged || poseChanged || s.triangles == nil {
		s.triangles = geometry.FanTriangulate(s.polygon, s.pose)
	}
	c.syncProxy(s, polygonChanged)
}

func (c *Catalog) syncProxy(s *Surface, rebuild bool) {
	if c.scene == nil {
		return
	}
	if rebuild && s.visual != "" {
		c.removeProxy(s)
	}
	if s.visual == "" {
		s.visual = c.scene.AddVisual(render.Visual{
			Kind:     render.KindSurfaceProxy,
			Label:    s.id,
			Mesh:     geometry.FanTriangulate(s.polygon, geometry.IdentityPose()),
			Position: s.pose.Position,
			Rotation: s.pose.Orientation,
			Visible:  !c.othersHidden,
		})
		return
	}
	c.scene.SetTransform(s.visual, s.pose.Position, s.pose.Orientation)
	c.scene.SetVisible(s.visual, !c.othersHidden)
}

func (c *Catalog) setProxyVisible(s *Surface, visible bool) {
	if c.scene != nil && s.visual != "" {
		c.scene.SetVisible(s.visual, visible)
	}
}

func (c *Catalog) removeProxy(s *Surface) {
	if c.scene != nil && s.visual != "" {
		c.scene.RemoveVisual(s.visual)
	}
	s.visual = ""
}

func (c *Catalog) retire(s *Surface) {
	c.removeProxy(s)
	delete(c.surfaces, s.id)
	c.retired++
	monitoring.Logf("surface %s retired", s.id)
}

// ordered returns all surfaces in insertion order.
func (c *Catalog) ordered() []*Surface {
	out := make([]*Surface, 0, len(c.surfaces))
	for _, s := range c.surfaces {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Selectable returns the surfaces currently offered for selection in
// insertion order. After a selection this is every remaining selectable
// surface; callers hide them with SetOthersHidden.
func (c *Catalog) Selectable() []*Surface {
	var out []*Surface
	for _, s := range c.ordered() {
		if s.state == StateSelectable {
			out = append(out, s)
		}
	}
	return out
}

// Select marks the surface selected. It is a no-op returning false when a
// surface is already selected or id is not currently selectable.
func (c *Catalog) Select(id string) bool {
	if c.selected != nil {
		return false
	}
	s, ok := c.surfaces[id]
	if !ok || s.state != StateSelectable {
		return false
	}
	s.state = StateSelected
	c.selected = s
	monitoring.Logf("surface %s selected height=%.2fm area=%.2fm²", s.id, s.height, s.area)
	return true
}

// Selected returns the selected surface or nil.
func (c *Catalog) Selected() *Surface { return c.selected }

// Get returns the surface with id.
func (c *Catalog) Get(id string) (*Surface, bool) {
	s, ok := c.surfaces[id]
	return s, ok
}

// Len returns the number of live surfaces, rejected ones included.
func (c *Catalog) Len() int { return len(c.surfaces) }

// SetOthersHidden hides or shows every proxy except the selected one,
// including proxies created later.
func (c *Catalog) SetOthersHidden(hidden bool) {
	c.othersHidden = hidden
	for _, s := range c.surfaces {
		if s == c.selected || s.state != StateSelectable {
			continue
		}
		c.setProxyVisible(s, !hidden)
	}
}

// Stats returns cumulative counters.
func (c *Catalog) Stats() Stats {
	return Stats{
		FilterStats: c.filter.Stats(),
		Added:       c.added,
		Retired:     c.retired,
		Live:        len(c.surfaces),
	}
}

// Dispose removes every proxy and forgets all surfaces, the selected one
// included.
func (c *Catalog) Dispose() {
	for _, s := range c.surfaces {
		c.removeProxy(s)
	}
	c.surfaces = make(map[string]*Surface)
	c.selected = nil
}
