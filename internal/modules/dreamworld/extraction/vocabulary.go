package extraction

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
)

//go:embed vocabulary.yaml
var defaultVocabularyYAML []byte

type vocabularyFile struct {
	Languages map[string]languageFile `yaml:"languages"`
}

type languageFile struct {
	Locations []struct {
		Name      string   `yaml:"name"`
		Archetype string   `yaml:"archetype"`
		Layer     string   `yaml:"layer"`
		Keywords  []string `yaml:"keywords"`
	} `yaml:"locations"`
	Entities []struct {
		Name     string   `yaml:"name"`
		Type     string   `yaml:"type"`
		Symbol   string   `yaml:"symbol"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"entities"`
	Movement []string `yaml:"movement"`
}

type locationWord struct {
	Name      string
	Archetype world.Archetype
	Layer     world.Layer
}

type entityWord struct {
	Name   string
	Type   string
	Symbol string
}

// Lexicon is the keyword table of one language.
type Lexicon struct {
	locations map[string]locationWord
	entities  map[string]entityWord
	movement  map[string]struct{}
}

type Vocabulary struct {
	byLanguage map[string]*Lexicon
}

const fallbackLanguage = "en"

// ParseVocabulary builds a vocabulary from YAML. A keyword may map to only one
// location or entity within a language.
func ParseVocabulary(raw []byte) (*Vocabulary, error) {
	var f vocabularyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse vocabulary: %w", err)
	}
	if len(f.Languages) == 0 {
		return nil, fmt.Errorf("vocabulary has no languages")
	}
	v := &Vocabulary{byLanguage: map[string]*Lexicon{}}
	for lang, lf := range f.Languages {
		lex := &Lexicon{
			locations: map[string]locationWord{},
			entities:  map[string]entityWord{},
			movement:  map[string]struct{}{},
		}
		claim := func(kw string) (string, error) {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				return "", nil
			}
			_, isLoc := lex.locations[kw]
			_, isEnt := lex.entities[kw]
			if isLoc || isEnt {
				return "", fmt.Errorf("vocabulary %s: keyword %q listed twice", lang, kw)
			}
			return kw, nil
		}
		for _, l := range lf.Locations {
			name := strings.TrimSpace(l.Name)
			if name == "" {
				return nil, fmt.Errorf("vocabulary %s: location without name", lang)
			}
			layer := world.Layer("")
			if l.Layer != "" {
				parsed, ok := world.ParseLayer(l.Layer)
				if !ok {
					return nil, fmt.Errorf("vocabulary %s: location %q has invalid layer %q", lang, name, l.Layer)
				}
				layer = parsed
			}
			for _, kw := range l.Keywords {
				k, err := claim(kw)
				if err != nil {
					return nil, err
				}
				if k != "" {
					lex.locations[k] = locationWord{Name: name, Archetype: world.ParseArchetype(l.Archetype), Layer: layer}
				}
			}
		}
		for _, e := range lf.Entities {
			name := strings.TrimSpace(e.Name)
			if name == "" {
				return nil, fmt.Errorf("vocabulary %s: entity without name", lang)
			}
			for _, kw := range e.Keywords {
				k, err := claim(kw)
				if err != nil {
					return nil, err
				}
				if k != "" {
					lex.entities[k] = entityWord{Name: name, Type: strings.TrimSpace(e.Type), Symbol: e.Symbol}
				}
			}
		}
		for _, m := range lf.Movement {
			if k := strings.ToLower(strings.TrimSpace(m)); k != "" {
				lex.movement[k] = struct{}{}
			}
		}
		v.byLanguage[strings.ToLower(strings.TrimSpace(lang))] = lex
	}
	if _, ok := v.byLanguage[fallbackLanguage]; !ok {
		return nil, fmt.Errorf("vocabulary must define %q", fallbackLanguage)
	}
	return v, nil
}

// DefaultVocabulary returns the embedded vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabularyYAML)
	if err != nil {
		panic(err)
	}
	return v
}

// LoadVocabulary reads path when set and falls back to the embedded vocabulary otherwise.
func LoadVocabulary(path string) (*Vocabulary, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultVocabulary(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary %q: %w", path, err)
	}
	return ParseVocabulary(raw)
}

// For returns the lexicon of language, or English when the language is unknown.
func (v *Vocabulary) For(language string) *Lexicon {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if lex, ok := v.byLanguage[lang]; ok {
		return lex
	}
	return v.byLanguage[fallbackLanguage]
}
