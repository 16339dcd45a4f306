package resolution

import (
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/extraction"
)

type Step struct {
	Candidate extraction.LocationCandidate
	Decision  Decision
}

// Plan is the resolved form of one dream's candidates.
type Plan struct {
	Candidates []extraction.Candidate
	Steps      []Step
	Creates    []Placement
	Entities   []extraction.EntityCandidate
	Transits   []extraction.TransitCandidate

	byName map[string]Target
}

// ResolveAll resolves every location candidate in order. Planned creations
// join the working set, so a second mention of a new place reuses the first.
func ResolveAll(cands []extraction.Candidate, snap Snapshot) Plan {
	pool := snap.working()
	plan := Plan{
		Candidates: cands,
		byName:     map[string]Target{},
	}
	locs, ents, trans := extraction.Split(cands)
	plan.Entities = ents
	plan.Transits = trans

	for _, c := range locs {
		d := resolve(c, pool)
		if d.Action == ActionCreate {
			idx := len(plan.Creates)
			d.Target = Target{Pending: idx}
			plan.Creates = append(plan.Creates, *d.Create)
			pool = append(pool, known{
				name:      d.Create.Name,
				norm:      Normalize(d.Create.Name),
				layer:     d.Create.Layer,
				x:         d.Create.X,
				y:         d.Create.Y,
				frequency: 1,
				target:    d.Target,
			})
		}
		plan.Steps = append(plan.Steps, Step{Candidate: c, Decision: d})
		key := Normalize(c.Name)
		if _, ok := plan.byName[key]; !ok {
			plan.byName[key] = d.Target
		}
	}
	return plan
}

// TargetFor returns the resolved target of a location name mentioned in this plan.
func (p Plan) TargetFor(name string) (Target, bool) {
	t, ok := p.byName[Normalize(name)]
	return t, ok
}

func (p Plan) HasCreates() bool { return len(p.Creates) > 0 }

// ReusedIDs lists each existing location the plan touches once, in order of first appearance.
func (p Plan) ReusedIDs() []uint64 {
	seen := map[uint64]bool{}
	var out []uint64
	for _, s := range p.Steps {
		id := s.Decision.Target.ID
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Targets lists each distinct target in order of first appearance.
func (p Plan) Targets() []Target {
	seen := map[Target]bool{}
	var out []Target
	for _, s := range p.Steps {
		t := s.Decision.Target
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Equivalent reports whether two plans make the same decisions.
func (p Plan) Equivalent(o Plan) bool {
	if len(p.Steps) != len(o.Steps) || len(p.Creates) != len(o.Creates) {
		return false
	}
	for i := range p.Steps {
		if p.Steps[i].Decision.Action != o.Steps[i].Decision.Action ||
			p.Steps[i].Decision.Target != o.Steps[i].Decision.Target {
			return false
		}
	}
	return true
}
