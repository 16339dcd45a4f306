package services

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

type CreateDreamInput struct {
	Date     time.Time
	Cycle    int
	Content  string
	Language string
}

type DreamService interface {
	// Create stores the dream and its processing job in one transaction.
	Create(dbc dbctx.Context, in CreateDreamInput) (*dreams.Dream, *jobs.JobRun, error)
	List(dbc dbctx.Context, skip, limit int) ([]*dreams.Dream, error)
	Get(dbc dbctx.Context, id uint64) (*dreams.Dream, error)
	// RequeuePending enqueues processing for unprocessed dreams older than minAge that have no live job.
	RequeuePending(dbc dbctx.Context, minAge time.Duration, limit int) (int, error)
}

type dreamService struct {
	db          *gorm.DB
	log         *logger.Logger
	dreams      repos.DreamRepo
	jobs        JobService
	events      *WorldEvents
	maxAttempts int
}

func NewDreamService(db *gorm.DB, baseLog *logger.Logger, dreamRepo repos.DreamRepo, jobSvc JobService, events *WorldEvents, maxAttempts int) DreamService {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &dreamService{
		db:          db,
		log:         baseLog.With("service", "DreamService"),
		dreams:      dreamRepo,
		jobs:        jobSvc,
		events:      events,
		maxAttempts: maxAttempts,
	}
}

func dreamPayload(id uint64) map[string]any {
	return map[string]any{"dream_id": id}
}

func (s *dreamService) Create(dbc dbctx.Context, in CreateDreamInput) (*dreams.Dream, *jobs.JobRun, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, nil, domainerrors.Validation("create dream", "content is required")
	}
	if in.Cycle < 1 {
		return nil, nil, domainerrors.Validation("create dream", "cycle must be a positive integer")
	}
	if in.Date.IsZero() {
		return nil, nil, domainerrors.Validation("create dream", "date is required")
	}
	lang := strings.ToLower(strings.TrimSpace(in.Language))
	if lang == "" {
		lang = dreams.DefaultLanguage
	}
	if utf8.RuneCountInString(lang) > 5 {
		return nil, nil, domainerrors.Validation("create dream", "language must be at most 5 characters")
	}

	d := &dreams.Dream{
		Date:     in.Date.UTC(),
		Cycle:    in.Cycle,
		Content:  content,
		Language: lang,
	}
	var job *jobs.JobRun
	err := dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if _, err := s.dreams.Create(inner, []*dreams.Dream{d}); err != nil {
			return err
		}
		var err error
		job, err = s.jobs.Enqueue(inner, jobs.JobTypeDreamProcess, jobs.EntityTypeDream, strconv.FormatUint(d.ID, 10), dreamPayload(d.ID))
		return err
	})
	if err != nil {
		return nil, nil, domainerrors.ClassifyDB("create dream", err)
	}
	s.log.Info("dream recorded", "dream_id", d.ID, "job_id", job.ID, "dream_text", d.Content)
	s.events.DreamCreated(dbc.Ctx, d)
	return d, job, nil
}

func (s *dreamService) List(dbc dbctx.Context, skip, limit int) ([]*dreams.Dream, error) {
	if skip < 0 {
		return nil, domainerrors.Validation("list dreams", "skip must not be negative")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	out, err := s.dreams.List(dbc, skip, limit)
	if err != nil {
		return nil, domainerrors.ClassifyDB("list dreams", err)
	}
	return out, nil
}

func (s *dreamService) Get(dbc dbctx.Context, id uint64) (*dreams.Dream, error) {
	d, err := s.dreams.GetByID(dbc, id)
	if err != nil {
		return nil, domainerrors.ClassifyDB("get dream", err)
	}
	if d == nil {
		return nil, domainerrors.NotFound("dream", id)
	}
	return d, nil
}

func (s *dreamService) RequeuePending(dbc dbctx.Context, minAge time.Duration, limit int) (int, error) {
	pending, err := s.dreams.ListUnprocessed(dbc, time.Now().UTC().Add(-minAge), limit)
	if err != nil {
		return 0, domainerrors.ClassifyDB("list pending dreams", err)
	}
	n := 0
	for _, d := range pending {
		// Exhausted jobs count as idle so the dream gets a fresh attempt budget.
		_, created, err := s.jobs.EnqueueIfIdle(dbc, jobs.JobTypeDreamProcess, jobs.EntityTypeDream, strconv.FormatUint(d.ID, 10), dreamPayload(d.ID), s.maxAttempts)
		if err != nil {
			return n, err
		}
		if created {
			n++
		}
	}
	if n > 0 {
		s.log.Info("requeued pending dreams", "count", n)
	}
	return n, nil
}
