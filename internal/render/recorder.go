package render

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Node is the recorded state of one visual.
type Node struct {
	Visual
	Handle     Handle
	Emphasized bool
}

// Recorder is an in-memory Scene. It keeps the latest state of every live
// visual and counts calls, which is what headless runs and tests need.
type Recorder struct {
	mu    sync.Mutex
	nodes map[Handle]*Node
	order []Handle

	Adds       int
	Removes    int
	Transforms int
	Emphasis   int
}

var _ Scene = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{nodes: make(map[Handle]*Node)}
}

func (r *Recorder) AddVisual(v Visual) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := NewHandle()
	r.nodes[h] = &Node{Visual: v, Handle: h}
	r.order = append(r.order, h)
	r.Adds++
	return h
}

// RemoveVisual ignores unknown handles.
func (r *Recorder) RemoveVisual(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[h]; !ok {
		return
	}
	delete(r.nodes, h)
	for i, o := range r.order {
		if o == h {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.Removes++
}

func (r *Recorder) SetTransform(h Handle, position mgl64.Vec3, rotation mgl64.Quat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[h]; ok {
		n.Position = position
		n.Rotation = rotation
		r.Transforms++
	}
}

func (r *Recorder) SetVisible(h Handle, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[h]; ok {
		n.Visible = visible
	}
}

func (r *Recorder) SetEmphasis(h Handle, emphasized bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n, ok := r.nodes[h]; ok {
		n.Emphasized = emphasized
		r.Emphasis++
	}
}

// Node returns a copy of the node for h.
func (r *Recorder) Node(h Handle) (Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[h]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Nodes returns copies of live nodes of the given kind in creation order.
// An empty kind returns every node.
func (r *Recorder) Nodes(kind Kind) []Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Node
	for _, h := range r.order {
		n := r.nodes[h]
		if kind == "" || n.Kind == kind {
			out = append(out, *n)
		}
	}
	return out
}

// Len returns the number of live visuals.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// KindCounts summarises live visuals by kind, sorted by kind name.
func (r *Recorder) KindCounts() []KindCount {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Kind]int)
	for _, n := range r.nodes {
		counts[n.Kind]++
	}
	out := make([]KindCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, KindCount{Kind: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// KindCount is one row of KindCounts.
type KindCount struct {
	Kind  Kind
	Count int
}
