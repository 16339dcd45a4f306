package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/ctxutil"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type JobService interface {
	Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID string, payload map[string]any) (*jobs.JobRun, error)
	// EnqueueIfIdle enqueues unless the entity already has a queued, running or retryable job.
	EnqueueIfIdle(dbc dbctx.Context, jobType string, entityType string, entityID string, payload map[string]any, maxAttempts int) (*jobs.JobRun, bool, error)
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*jobs.JobRun, error)
	GetLatestForEntity(dbc dbctx.Context, entityType string, entityID string, jobType string) (*jobs.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, jobType string, entityType string, entityID string, payload map[string]any) (*jobs.JobRun, error) {
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now().UTC()
	job := &jobs.JobRun{
		ID:         uuid.New(),
		JobType:    jobType,
		EntityType: entityType,
		EntityID:   entityID,
		Status:     jobs.StatusQueued,
		Stage:      "queued",
		Message:    "Queued",
		Payload:    datatypes.JSON(b),
		Result:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.repo.Create(dbc, []*jobs.JobRun{job}); err != nil {
		return nil, domainerrors.ClassifyDB("enqueue job", err)
	}
	s.log.Debug("job enqueued", "job_id", job.ID, "job_type", jobType, "entity_id", entityID)
	return job, nil
}

func (s *jobService) EnqueueIfIdle(dbc dbctx.Context, jobType string, entityType string, entityID string, payload map[string]any, maxAttempts int) (*jobs.JobRun, bool, error) {
	busy, err := s.repo.HasRunnableForEntity(dbc, entityType, entityID, jobType, maxAttempts)
	if err != nil {
		return nil, false, domainerrors.ClassifyDB("enqueue job", err)
	}
	if busy {
		return nil, false, nil
	}
	job, err := s.Enqueue(dbc, jobType, entityType, entityID, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*jobs.JobRun, error) {
	job, err := s.repo.GetByID(dbc, jobID)
	if err != nil {
		return nil, domainerrors.ClassifyDB("get job", err)
	}
	if job == nil {
		return nil, domainerrors.NotFound("job", jobID)
	}
	return job, nil
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, entityType string, entityID string, jobType string) (*jobs.JobRun, error) {
	job, err := s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
	if err != nil {
		return nil, domainerrors.ClassifyDB("get job", err)
	}
	return job, nil
}
