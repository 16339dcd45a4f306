package services

import (
	"context"

	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
	"github.com/yungbote/dreamworld-backend/internal/realtime/bus"
)

type JobNotifier interface {
	JobProgress(ctx context.Context, job *jobs.JobRun, stage string, progress int, message string)
	JobFailed(ctx context.Context, job *jobs.JobRun, stage string, errorMessage string)
	JobDone(ctx context.Context, job *jobs.JobRun)
}

type jobNotifier struct {
	bus bus.Bus
	log *logger.Logger
}

func NewJobNotifier(b bus.Bus, baseLog *logger.Logger) JobNotifier {
	return &jobNotifier{bus: b, log: baseLog.With("service", "JobNotifier")}
}

func (n *jobNotifier) publish(ctx context.Context, event realtime.Event, data map[string]any) {
	if n == nil || n.bus == nil {
		return
	}
	if err := n.bus.Publish(ctx, realtime.Message{Channel: realtime.ChannelWorld, Event: event, Data: data}); err != nil {
		n.log.Warn("publish job event failed", "event", event, "error", err)
	}
}

func (n *jobNotifier) JobProgress(ctx context.Context, job *jobs.JobRun, stage string, progress int, message string) {
	n.publish(ctx, realtime.EventJobProgress, map[string]any{
		"job_id":    job.ID,
		"job_type":  job.JobType,
		"entity_id": job.EntityID,
		"stage":     stage,
		"progress":  progress,
		"message":   message,
	})
}

func (n *jobNotifier) JobFailed(ctx context.Context, job *jobs.JobRun, stage string, errorMessage string) {
	n.publish(ctx, realtime.EventJobFailed, map[string]any{
		"job_id":    job.ID,
		"job_type":  job.JobType,
		"entity_id": job.EntityID,
		"stage":     stage,
		"error":     errorMessage,
		"attempts":  job.Attempts,
	})
}

func (n *jobNotifier) JobDone(ctx context.Context, job *jobs.JobRun) {
	n.publish(ctx, realtime.EventJobDone, map[string]any{
		"job_id":    job.ID,
		"job_type":  job.JobType,
		"entity_id": job.EntityID,
		"stage":     job.Stage,
	})
}
