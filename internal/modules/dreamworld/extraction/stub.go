package extraction

import (
	"context"
	"strings"
	"unicode"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
)

// UnknownPlace is emitted when a dream mentions no known location.
const UnknownPlace = "Unknown Place"

// Stub is the deterministic keyword extractor. It never fails.
type Stub struct {
	vocab *Vocabulary
}

func NewStub(vocab *Vocabulary) *Stub {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Stub{vocab: vocab}
}

func (s *Stub) Name() string { return StrategyStub }

func (s *Stub) Extract(ctx context.Context, text string, language string) ([]Candidate, error) {
	lex := s.vocab.For(language)

	var (
		out         []Candidate
		seenLoc     = map[string]bool{}
		seenEnt     = map[string]bool{}
		firstLoc    string
		current     string
		trigger     string
		unboundEnts []int
	)

	for _, tok := range tokenize(text) {
		if lw, ok := lex.locations[tok]; ok {
			if !seenLoc[lw.Name] {
				seenLoc[lw.Name] = true
				out = append(out, Location(LocationCandidate{
					Name:          lw.Name,
					ArchetypeHint: string(lw.Archetype),
					LayerHint:     lw.Layer,
				}))
			}
			if firstLoc == "" {
				firstLoc = lw.Name
			}
			if current != "" && current != lw.Name {
				out = append(out, Transit(TransitCandidate{
					FromName:   current,
					ToName:     lw.Name,
					Trigger:    trigger,
					Confidence: 1,
				}))
			}
			current = lw.Name
			trigger = ""
			continue
		}
		if ew, ok := lex.entities[tok]; ok {
			key := ew.Name + "\x00" + current
			if current != "" && seenEnt[key] {
				continue
			}
			if current == "" {
				// bound after the scan, once the first location is known
				if seenEnt[key] {
					continue
				}
				unboundEnts = append(unboundEnts, len(out))
			}
			seenEnt[key] = true
			out = append(out, Entity(EntityCandidate{
				Name:         ew.Name,
				Type:         ew.Type,
				Symbol:       ew.Symbol,
				Confidence:   1,
				LocationName: current,
			}))
			continue
		}
		if _, ok := lex.movement[tok]; ok && trigger == "" {
			trigger = tok
		}
	}

	if firstLoc == "" {
		firstLoc = UnknownPlace
		out = append([]Candidate{Location(LocationCandidate{
			Name:          UnknownPlace,
			ArchetypeHint: string(world.ArchetypeOther),
		})}, out...)
		for i := range unboundEnts {
			unboundEnts[i]++
		}
	}
	for _, idx := range unboundEnts {
		name := out[idx].Entity.Name
		if seenEnt[name+"\x00"+firstLoc] {
			// already seen at the first location later in the text
			out[idx] = Candidate{}
			continue
		}
		seenEnt[name+"\x00"+firstLoc] = true
		out[idx].Entity.LocationName = firstLoc
	}
	return compact(out), nil
}

func compact(in []Candidate) []Candidate {
	out := in[:0]
	for _, c := range in {
		if c.Kind != "" {
			out = append(out, c)
		}
	}
	return out
}

// tokenize splits on anything that is not a letter and lower-cases the result.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}
