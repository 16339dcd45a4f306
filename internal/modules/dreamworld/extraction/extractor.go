package extraction

import (
	"context"

	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/platform/openai"
)

const (
	StrategyLLM  = "llm"
	StrategyStub = "stub"
)

// Extractor turns dream text into ordered candidates. Implementations return an
// error wrapping errors.ErrExtraction when they cannot produce a result.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string, language string) ([]Candidate, error)
}

// Select returns the LLM extractor when an OpenAI client is configured and the stub otherwise.
func Select(log *logger.Logger, client openai.Client, stub *Stub, cfg LLMConfig) Extractor {
	if client == nil {
		log.Info("no OpenAI credentials configured; using stub extraction", "strategy", StrategyStub)
		return stub
	}
	log.Info("using LLM extraction with stub fallback", "strategy", StrategyLLM, "model", client.Model())
	return NewLLM(client, log, cfg)
}
