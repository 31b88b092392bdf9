package geometry

import (
	"errors"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrNoRoom is returned when the requested number of points cannot be
// placed inside the area with the requested separation.
var ErrNoRoom = errors.New("geometry: not enough room for non-overlapping points")

// defaultSampleAttempts bounds rejection sampling per point before the
// grid fallback takes over.
const defaultSampleAttempts = 64

// SampleNonOverlapping returns n points inside area whose pairwise distance
// is at least minDist. Points are drawn uniformly with rejection; when
// rejection stalls the remaining points come from a shuffled grid of cells
// spaced minDist apart, so a feasible request always succeeds.
func SampleNonOverlapping(rng *rand.Rand, n int, area Rect, minDist float64) ([]mgl64.Vec2, error) {
	if n <= 0 {
		return nil, nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	out := make([]mgl64.Vec2, 0, n)
	for attempts := 0; len(out) < n && attempts < n*defaultSampleAttempts; attempts++ {
		p := mgl64.Vec2{
			area.MinX + rng.Float64()*area.Width(),
			area.MinZ + rng.Float64()*area.Depth(),
		}
		if separated(out, p, minDist) {
			out = append(out, p)
		}
	}
	if len(out) == n {
		return out, nil
	}

	// Grid fallback: restart from a lattice that is separated by construction.
	grid := latticePoints(area, minDist)
	if len(grid) < n {
		return nil, ErrNoRoom
	}
	rng.Shuffle(len(grid), func(i, j int) { grid[i], grid[j] = grid[j], grid[i] })
	return grid[:n], nil
}

func separated(points []mgl64.Vec2, p mgl64.Vec2, minDist float64) bool {
	min2 := minDist * minDist
	for _, q := range points {
		if p.Sub(q).LenSqr() < min2 {
			return false
		}
	}
	return true
}

func latticePoints(area Rect, spacing float64) []mgl64.Vec2 {
	if spacing <= 0 {
		return []mgl64.Vec2{{(area.MinX + area.MaxX) / 2, (area.MinZ + area.MaxZ) / 2}}
	}
	cols := int(area.Width()/spacing) + 1
	rows := int(area.Depth()/spacing) + 1
	// Center the lattice inside the area.
	offX := (area.Width() - float64(cols-1)*spacing) / 2
	offZ := (area.Depth() - float64(rows-1)*spacing) / 2
	pts := make([]mgl64.Vec2, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			pts = append(pts, mgl64.Vec2{
				area.MinX + offX + float64(c)*spacing,
				area.MinZ + offZ + float64(r)*spacing,
			})
		}
	}
	return pts
}
