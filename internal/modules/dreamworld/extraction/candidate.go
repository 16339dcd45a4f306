package extraction

import "github.com/yungbote/dreamworld-backend/internal/domain/world"

type Kind string

const (
	KindLocation Kind = "location"
	KindEntity   Kind = "entity"
	KindTransit  Kind = "transit"
)

type LocationCandidate struct {
	Name          string
	ArchetypeHint string
	// LayerHint is empty when the extractor has no opinion.
	LayerHint   world.Layer
	Description string
}

type EntityCandidate struct {
	Name        string
	Type        string
	Symbol      string
	Description string
	Confidence  float64
	// LocationName names the location candidate the entity was seen in.
	LocationName string
}

type TransitCandidate struct {
	FromName   string
	ToName     string
	Trigger    string
	Confidence float64
}

// Candidate is one extracted item. Exactly one of the pointers matches Kind.
type Candidate struct {
	Kind     Kind
	Location *LocationCandidate
	Entity   *EntityCandidate
	Transit  *TransitCandidate
}

func Location(c LocationCandidate) Candidate { return Candidate{Kind: KindLocation, Location: &c} }
func Entity(c EntityCandidate) Candidate     { return Candidate{Kind: KindEntity, Entity: &c} }
func Transit(c TransitCandidate) Candidate   { return Candidate{Kind: KindTransit, Transit: &c} }

// Split groups candidates by kind, preserving order within each kind.
func Split(cands []Candidate) ([]LocationCandidate, []EntityCandidate, []TransitCandidate) {
	var locs []LocationCandidate
	var ents []EntityCandidate
	var trans []TransitCandidate
	for _, c := range cands {
		switch {
		case c.Kind == KindLocation && c.Location != nil:
			locs = append(locs, *c.Location)
		case c.Kind == KindEntity && c.Entity != nil:
			ents = append(ents, *c.Entity)
		case c.Kind == KindTransit && c.Transit != nil:
			trans = append(trans, *c.Transit)
		}
	}
	return locs, ents, trans
}
