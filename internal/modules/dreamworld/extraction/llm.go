package extraction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/envutil"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/platform/openai"
)

type LLMConfig struct {
	Timeout time.Duration

	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerOpenTimeout      time.Duration
	BreakerFailureThreshold float64
	BreakerMinRequests      uint32
}

func LLMConfigFromEnv() LLMConfig {
	return LLMConfig{
		Timeout:                 envutil.Duration("EXTRACTION_TIMEOUT", 30*time.Second),
		BreakerMaxRequests:      uint32(envutil.Int("EXTRACTION_BREAKER_MAX_REQUESTS", 1)),
		BreakerInterval:         envutil.Duration("EXTRACTION_BREAKER_INTERVAL", time.Minute),
		BreakerOpenTimeout:      envutil.Duration("EXTRACTION_BREAKER_OPEN_TIMEOUT", 30*time.Second),
		BreakerFailureThreshold: 0.6,
		BreakerMinRequests:      uint32(envutil.Int("EXTRACTION_BREAKER_MIN_REQUESTS", 3)),
	}
}

// LLM extracts candidates through OpenAI structured outputs.
type LLM struct {
	client  openai.Client
	log     *logger.Logger
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

func NewLLM(client openai.Client, baseLog *logger.Logger, cfg LLMConfig) *LLM {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BreakerMinRequests == 0 {
		cfg.BreakerMinRequests = 3
	}
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 0.6
	}
	log := baseLog.With("component", "LLMExtractor")
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-extraction",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.BreakerFailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &LLM{client: client, log: log, timeout: cfg.Timeout, cb: cb}
}

func (l *LLM) Name() string { return StrategyLLM }

func (l *LLM) Extract(ctx context.Context, text string, language string) ([]Candidate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.Extraction("llm.extract", fmt.Errorf("empty dream text"))
	}
	res, err := l.cb.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, l.timeout)
		defer cancel()
		return l.client.GenerateJSON(callCtx, systemPrompt(language), text, "dream_world_extraction", extractionSchema())
	})
	if err != nil {
		return nil, errors.Extraction("llm.extract", err)
	}
	obj, _ := res.(map[string]any)
	cands, err := parseExtraction(obj)
	if err != nil {
		return nil, errors.Extraction("llm.parse", err)
	}
	return cands, nil
}

func systemPrompt(language string) string {
	lang := strings.TrimSpace(language)
	if lang == "" {
		lang = dreams.DefaultLanguage
	}
	return strings.Join([]string{
		"You map dream journal entries onto a persistent dream world.",
		"Extract the places the dreamer visited in order of appearance, the beings met in each place, and every movement between places.",
		"Archetype is one of home, forest, city, water, cave, other.",
		"Layer is -1 for underground or lower places, 1 for sky or upper places, 0 otherwise.",
		"Confidence is a number between 0 and 1.",
		"Keep names short and in the dream's language (" + lang + ").",
	}, "\n")
}

func extractionSchema() map[string]any {
	str := map[string]any{"type": "string"}
	num := map[string]any{"type": "number"}
	obj := func(props map[string]any) map[string]any {
		req := make([]string, 0, len(props))
		for k := range props {
			req = append(req, k)
		}
		sort.Strings(req)
		return map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             req,
			"additionalProperties": false,
		}
	}
	arr := func(item map[string]any) map[string]any {
		return map[string]any{"type": "array", "items": item}
	}
	return obj(map[string]any{
		"locations": arr(obj(map[string]any{
			"name":        str,
			"archetype":   map[string]any{"type": "string", "enum": []string{"home", "forest", "city", "water", "cave", "other"}},
			"layer":       map[string]any{"type": "integer", "enum": []int{-1, 0, 1}},
			"description": str,
		})),
		"entities": arr(obj(map[string]any{
			"name":        str,
			"type":        str,
			"symbol":      str,
			"description": str,
			"confidence":  num,
			"location":    str,
		})),
		"transits": arr(obj(map[string]any{
			"from_location": str,
			"to_location":   str,
			"trigger":       str,
			"confidence":    num,
		})),
	})
}

// parseExtraction converts the model payload into candidates. Locations come
// first, then entities, then transits.
func parseExtraction(obj map[string]any) ([]Candidate, error) {
	if obj == nil {
		return nil, fmt.Errorf("empty payload")
	}
	rawLocs, ok := obj["locations"].([]any)
	if !ok {
		return nil, fmt.Errorf("payload missing locations array")
	}

	var out []Candidate
	known := map[string]string{}
	first := ""
	for _, item := range rawLocs {
		m, _ := item.(map[string]any)
		name := strings.TrimSpace(stringField(m, "name"))
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := known[key]; dup {
			continue
		}
		known[key] = name
		if first == "" {
			first = name
		}
		layer, _ := world.ParseLayer(layerField(m["layer"]))
		out = append(out, Location(LocationCandidate{
			Name:          name,
			ArchetypeHint: stringField(m, "archetype"),
			LayerHint:     layer,
			Description:   strings.TrimSpace(stringField(m, "description")),
		}))
	}

	rawEnts, _ := obj["entities"].([]any)
	for _, item := range rawEnts {
		m, _ := item.(map[string]any)
		name := strings.TrimSpace(stringField(m, "name"))
		if name == "" {
			continue
		}
		locName, ok := known[strings.ToLower(strings.TrimSpace(stringField(m, "location")))]
		if !ok {
			locName = first
		}
		out = append(out, Entity(EntityCandidate{
			Name:         name,
			Type:         strings.TrimSpace(stringField(m, "type")),
			Symbol:       strings.TrimSpace(stringField(m, "symbol")),
			Description:  strings.TrimSpace(stringField(m, "description")),
			Confidence:   confidenceField(m["confidence"]),
			LocationName: locName,
		}))
	}

	rawTrans, _ := obj["transits"].([]any)
	for _, item := range rawTrans {
		m, _ := item.(map[string]any)
		from := strings.TrimSpace(stringField(m, "from_location"))
		to := strings.TrimSpace(stringField(m, "to_location"))
		if from == "" || to == "" {
			continue
		}
		if canon, ok := known[strings.ToLower(from)]; ok {
			from = canon
		}
		if canon, ok := known[strings.ToLower(to)]; ok {
			to = canon
		}
		out = append(out, Transit(TransitCandidate{
			FromName:   from,
			ToName:     to,
			Trigger:    strings.TrimSpace(stringField(m, "trigger")),
			Confidence: confidenceField(m["confidence"]),
		}))
	}
	return out, nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func layerField(v any) string {
	switch t := v.(type) {
	case float64:
		if math.Trunc(t) != t {
			return ""
		}
		return strconv.Itoa(int(t))
	case int:
		return strconv.Itoa(t)
	case string:
		return t
	default:
		return ""
	}
}

// confidenceField defaults to 1 when the model omits a usable number.
func confidenceField(v any) float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return 1
		}
		return world.ClampConfidence(t)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil && !math.IsNaN(f) {
			return world.ClampConfidence(f)
		}
	}
	return 1
}
