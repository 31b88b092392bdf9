// Package pointer resolves which surface each active pointer is aiming at
// and drives surface highlighting and the intersection reticle.
package pointer

import (
	"math"

	"github.com/banshee-data/tabletop/internal/geometry"
	"github.com/banshee-data/tabletop/internal/render"
	"github.com/banshee-data/tabletop/internal/surface"
	"github.com/banshee-data/tabletop/internal/tracking"
	"github.com/go-gl/mathgl/mgl64"
)

// reticleOffset lifts the reticle off the surface to avoid z-fighting.
const reticleOffset = 0.002

// Hit is the nearest intersection of one pointer ray with a surface.
type Hit struct {
	PointerID string
	Kind      tracking.PointerKind
	Surface   *surface.Surface
	Point     mgl64.Vec3
	Normal    mgl64.Vec3 // faces the pointer
	Distance  float64
}

// Result is the outcome of one Update.
type Result struct {
	// Nearest is the closest hit across all pointers, nil when nothing is
	// pointed at.
	Nearest *Hit
	// ByPointer holds each pointer's own nearest hit.
	ByPointer map[string]Hit
	// Tested and Skipped count pointers with and without a pose.
	Tested  int
	Skipped int
}

// Surface returns the pointed surface or nil.
func (r Result) Surface() *surface.Surface {
	if r.Nearest == nil {
		return nil
	}
	return r.Nearest.Surface
}

// Selector tests pointer rays against surfaces. It reads surfaces but never
// mutates them; highlighting goes through the scene.
type Selector struct {
	scene render.Scene

	current       *surface.Surface
	currentVisual render.Handle
	reticle       render.Handle
	reticleShown  bool
	last          Result
}

// NewSelector creates a selector. scene may be nil for headless use.
func NewSelector(scene render.Scene) *Selector {
	return &Selector{scene: scene}
}

// Update tests every pointer against every surface and updates emphasis
// and the reticle. Pointers without a pose are skipped for this frame.
func (s *Selector) Update(pointers []tracking.Pointer, surfaces []*surface.Surface) Result {
	res := Result{ByPointer: make(map[string]Hit)}
	for _, p := range pointers {
		if p.Pose == nil {
			res.Skipped++
			continue
		}
		ray, ok := geometry.RayFromPose(*p.Pose)
		if !ok {
			res.Skipped++
			continue
		}
		res.Tested++

		best := Hit{Distance: math.Inf(1)}
		for _, sf := range surfaces {
			t, n, ok := ray.IntersectTriangles(sf.Triangles())
			if !ok || t >= best.Distance {
				continue
			}
			best = Hit{
				PointerID: p.ID,
				Kind:      p.Kind,
				Surface:   sf,
				Point:     ray.At(t),
				Normal:    n,
				Distance:  t,
			}
		}
		if best.Surface == nil {
			continue
		}
		res.ByPointer[p.ID] = best
		if res.Nearest == nil || best.Distance < res.Nearest.Distance {
			h := best
			res.Nearest = &h
		}
	}

	s.highlight(res.Surface())
	s.placeReticle(res.Nearest)
	s.last = res
	return res
}

// Pointed returns the surface from the latest Update.
func (s *Selector) Pointed() *surface.Surface { return s.current }

// Last returns the latest Update result.
func (s *Selector) Last() Result { return s.last }

// HitFor returns the latest hit of one pointer.
func (s *Selector) HitFor(pointerID string) (Hit, bool) {
	h, ok := s.last.ByPointer[pointerID]
	return h, ok
}

// highlight boosts the newly pointed surface and restores the previous one.
// Nothing is sent to the scene while the pointed surface and its proxy stay
// the same.
func (s *Selector) highlight(next *surface.Surface) {
	var nextVisual render.Handle
	if next != nil {
		nextVisual = next.Visual()
	}
	if next == s.current && nextVisual == s.currentVisual {
		return
	}
	if s.scene != nil {
		if s.current != nil && s.current.Visual() != "" {
			s.scene.SetEmphasis(s.current.Visual(), false)
		}
		if nextVisual != "" {
			s.scene.SetEmphasis(nextVisual, true)
		}
	}
	s.current = next
	s.currentVisual = nextVisual
}

func (s *Selector) placeReticle(h *Hit) {
	if s.scene == nil {
		return
	}
	if h == nil {
		if s.reticleShown {
			s.scene.SetVisible(s.reticle, false)
			s.reticleShown = false
		}
		return
	}
	pos := h.Point.Add(h.Normal.Mul(reticleOffset))
	rot := mgl64.QuatBetweenVectors(geometry.Up, h.Normal)
	if s.reticle == "" {
		s.reticle = s.scene.AddVisual(render.Visual{
			Kind:     render.KindReticle,
			Size:     mgl64.Vec3{0.04, 0.001, 0.04},
			Position: pos,
			Rotation: rot,
			Visible:  true,
		})
		s.reticleShown = true
		return
	}
	s.scene.SetTransform(s.reticle, pos, rot)
	if !s.reticleShown {
		s.scene.SetVisible(s.reticle, true)
		s.reticleShown = true
	}
}

// Clear drops the highlight and hides the reticle.
func (s *Selector) Clear() {
	s.highlight(nil)
	s.placeReticle(nil)
	s.last = Result{}
}

// Dispose clears state and removes the reticle visual.
func (s *Selector) Dispose() {
	s.Clear()
	if s.scene != nil && s.reticle != "" {
		s.scene.RemoveVisual(s.reticle)
	}
	s.reticle = ""
}
