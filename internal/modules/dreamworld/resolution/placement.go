package resolution

import (
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
)

const (
	gridSize         = 9
	minSeparation    = 0.25
	maxPlaceAttempts = 40
)

type point struct{ X, Y float64 }

var grid = func() []point {
	out := make([]point, 0, gridSize*gridSize)
	step := 2.0 / float64(gridSize-1)
	for i := 0; i < gridSize; i++ {
		for j := 0; j < gridSize; j++ {
			out = append(out, point{X: -1 + float64(i)*step, Y: -1 + float64(j)*step})
		}
	}
	return out
}()

// sampleOrder is the grid visiting order for a name; equal names always walk the grid the same way.
func sampleOrder(normalized string) []int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(normalized))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return r.Perm(len(grid))
}

// place picks a position on layer that keeps clear of the occupied points.
// The first sample farther than minSeparation from every occupied point wins;
// otherwise the least crowded of the sampled points is used.
func place(normalized string, occupied []point) (float64, float64) {
	order := sampleOrder(normalized)
	best := grid[order[0]]
	bestDist := -1.0
	for k := 0; k < maxPlaceAttempts && k < len(order); k++ {
		p := grid[order[k]]
		d := nearest(p, occupied)
		if d > minSeparation {
			return world.Clamp(p.X), world.Clamp(p.Y)
		}
		if d > bestDist {
			best, bestDist = p, d
		}
	}
	return world.Clamp(best.X), world.Clamp(best.Y)
}

func nearest(p point, occupied []point) float64 {
	d := math.Inf(1)
	for _, o := range occupied {
		if v := math.Hypot(p.X-o.X, p.Y-o.Y); v < d {
			d = v
		}
	}
	return d
}
