package gesture

import "github.com/banshee-data/tabletop/internal/geometry"

// sampleRing is a fixed-capacity buffer of motion samples that overwrites
// the oldest entry when full.
type sampleRing struct {
	buf   []geometry.Sample
	start int
	n     int
}

func newSampleRing(capacity int) *sampleRing {
	if capacity < 2 {
		capacity = 2
	}
	return &sampleRing{buf: make([]geometry.Sample, capacity)}
}

func (r *sampleRing) push(s geometry.Sample) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

// samples returns the contents oldest first.
func (r *sampleRing) samples() []geometry.Sample {
	out := make([]geometry.Sample, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

func (r *sampleRing) len() int { return r.n }

func (r *sampleRing) reset() {
	r.start = 0
	r.n = 0
}
