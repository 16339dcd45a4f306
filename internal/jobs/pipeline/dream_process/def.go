package dream_process

import (
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/extraction"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/graphwrite"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

const (
	StagePending      = "pending"
	StageExtracting   = "extracting"
	StageStubFallback = "stub_fallback"
	StageResolving    = "resolving"
	StageWriting      = "writing"
	StageProcessed    = "processed"

	// MaxStaleRetries bounds re-resolution after a location vanished mid-write.
	MaxStaleRetries = 3
)

type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	dreams    repos.DreamRepo
	extractor extraction.Extractor
	fallback  *extraction.Stub
	writer    *graphwrite.Writer
	events    *services.WorldEvents
}

func New(db *gorm.DB, baseLog *logger.Logger, dreams repos.DreamRepo, extractor extraction.Extractor, fallback *extraction.Stub, writer *graphwrite.Writer, events *services.WorldEvents) *Pipeline {
	if extractor == nil {
		extractor = fallback
	}
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", jobs.JobTypeDreamProcess),
		dreams:    dreams,
		extractor: extractor,
		fallback:  fallback,
		writer:    writer,
		events:    events,
	}
}

func (p *Pipeline) Type() string { return jobs.JobTypeDreamProcess }
