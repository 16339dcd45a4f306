package resolution

import (
	"sort"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/extraction"
)

// ReuseThreshold is the minimum similarity for a candidate to reuse an existing location.
const ReuseThreshold = 0.8

type Action string

const (
	ActionReuse  Action = "REUSE"
	ActionCreate Action = "CREATE"
)

// Placement describes a location that does not exist yet.
type Placement struct {
	Name        string
	Layer       world.Layer
	X           float64
	Y           float64
	Archetype   world.Archetype
	Color       string
	Symbol      string
	Description string
}

// Target identifies a resolved location: an existing row (ID > 0) or the
// index of a planned creation (Pending >= 0).
type Target struct {
	ID      uint64
	Pending int
}

func (t Target) Existing() bool { return t.ID > 0 }

type Decision struct {
	Action Action
	Target Target
	Score  float64
	// Create is set for CREATE decisions only.
	Create *Placement
}

// Snapshot is an immutable copy of the persisted locations.
type Snapshot struct {
	locations []world.Location
}

func NewSnapshot(locs []*world.Location) Snapshot {
	out := make([]world.Location, 0, len(locs))
	for _, l := range locs {
		if l != nil {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return Snapshot{locations: out}
}

func (s Snapshot) Len() int { return len(s.locations) }

type known struct {
	name      string
	norm      string
	layer     world.Layer
	x, y      float64
	frequency int
	target    Target
}

func (s Snapshot) working() []known {
	out := make([]known, 0, len(s.locations))
	for _, l := range s.locations {
		out = append(out, known{
			name:      l.Name,
			norm:      Normalize(l.Name),
			layer:     l.Layer,
			x:         l.X,
			y:         l.Y,
			frequency: l.Frequency,
			target:    Target{ID: l.ID, Pending: -1},
		})
	}
	return out
}

// Resolve decides whether a candidate names an existing location. It never mutates anything.
func Resolve(c extraction.LocationCandidate, snap Snapshot) Decision {
	return resolve(c, snap.working())
}

func resolve(c extraction.LocationCandidate, pool []known) Decision {
	norm := Normalize(c.Name)

	bestIdx := -1
	bestScore := 0.0
	for i, k := range pool {
		score := Similarity(norm, k.norm)
		if score < ReuseThreshold {
			continue
		}
		if bestIdx < 0 || better(score, k, bestScore, pool[bestIdx]) {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx >= 0 {
		return Decision{Action: ActionReuse, Target: pool[bestIdx].target, Score: bestScore}
	}

	layer := c.LayerHint
	if !layer.Valid() {
		layer = world.LayerPrimary
	}
	var occupied []point
	for _, k := range pool {
		if k.layer == layer {
			occupied = append(occupied, point{X: k.x, Y: k.y})
		}
	}
	x, y := place(norm, occupied)
	arch := world.ParseArchetype(c.ArchetypeHint)
	style := world.StyleFor(arch)
	return Decision{
		Action: ActionCreate,
		Target: Target{Pending: -1},
		Score:  bestScore,
		Create: &Placement{
			Name:        c.Name,
			Layer:       layer,
			X:           x,
			Y:           y,
			Archetype:   arch,
			Color:       style.Color,
			Symbol:      style.Symbol,
			Description: c.Description,
		},
	}
}

// better orders matches by score, then frequency, then creation order.
func better(score float64, k known, bestScore float64, best known) bool {
	if score != bestScore {
		return score > bestScore
	}
	if k.frequency != best.frequency {
		return k.frequency > best.frequency
	}
	if k.target.Existing() != best.target.Existing() {
		return k.target.Existing()
	}
	if k.target.Existing() {
		return k.target.ID < best.target.ID
	}
	return k.target.Pending < best.target.Pending
}
