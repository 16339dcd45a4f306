package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/graph"
	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/jobs/pipeline/dream_process"
	"github.com/yungbote/dreamworld-backend/internal/jobs/runtime"
	"github.com/yungbote/dreamworld-backend/internal/jobs/sweeper"
	"github.com/yungbote/dreamworld-backend/internal/jobs/worker"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/extraction"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/graphwrite"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/merge"
	"github.com/yungbote/dreamworld-backend/internal/platform/keylock"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

type Services struct {
	Events    *services.WorldEvents
	Notifier  services.JobNotifier
	Jobs      services.JobService
	Dreams    services.DreamService
	Locations services.LocationService
	Entities  services.EntityService
	World     services.WorldService

	Extractor extraction.Extractor
	Registry  *runtime.Registry
	Worker    *worker.Worker
	Sweeper   *sweeper.Sweeper
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	locks := keylock.New()
	mirror := graph.NewWorldMirror(clients.Neo4j, log)
	events := services.NewWorldEvents(clients.Bus, mirror, log)
	notifier := services.NewJobNotifier(clients.Bus, log)
	jobSvc := services.NewJobService(db, log, set.JobRuns)

	vocab := extraction.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		v, err := extraction.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			return Services{}, fmt.Errorf("load stub vocabulary: %w", err)
		}
		vocab = v
	}
	stub := extraction.NewStub(vocab)
	extractor := extraction.Select(log, clients.OpenAI, stub, cfg.Extraction)

	writer := graphwrite.NewWriter(db, set, locks, log)
	merger := merge.NewEngine(db, set, locks, log, events)

	dreamSvc := services.NewDreamService(db, log, set.Dreams, jobSvc, events, cfg.Worker.MaxAttempts)

	registry := runtime.NewRegistry()
	if err := registry.Register(dream_process.New(db, log, set.Dreams, extractor, stub, writer, events)); err != nil {
		return Services{}, fmt.Errorf("register dream pipeline: %w", err)
	}

	sw, err := sweeper.New(log, dreamSvc, cfg.Sweeper)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Events:    events,
		Notifier:  notifier,
		Jobs:      jobSvc,
		Dreams:    dreamSvc,
		Locations: services.NewLocationService(db, log, set, merger, events),
		Entities:  services.NewEntityService(db, log, set),
		World:     services.NewWorldService(db, log, set, locks),
		Extractor: extractor,
		Registry:  registry,
		Worker:    worker.NewWorker(db, log, set.JobRuns, registry, notifier, cfg.Worker),
		Sweeper:   sw,
	}, nil
}
