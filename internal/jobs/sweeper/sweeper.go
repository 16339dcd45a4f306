package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/envutil"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

type Config struct {
	Schedule string
	MinAge   time.Duration
	Limit    int
}

func ConfigFromEnv() Config {
	return Config{
		Schedule: envutil.String("PENDING_SWEEP_SCHEDULE", "@every 5m"),
		MinAge:   envutil.Duration("PENDING_SWEEP_MIN_AGE", time.Minute),
		Limit:    envutil.Int("PENDING_SWEEP_LIMIT", 100),
	}
}

// Sweeper periodically re-enqueues dreams that are still unprocessed and have no live job.
type Sweeper struct {
	log    *logger.Logger
	dreams services.DreamService
	cfg    Config
	cron   *cron.Cron
}

func New(baseLog *logger.Logger, dreams services.DreamService, cfg Config) (*Sweeper, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid PENDING_SWEEP_SCHEDULE %q: %w", cfg.Schedule, err)
	}
	return &Sweeper{
		log:    baseLog.With("component", "PendingSweeper"),
		dreams: dreams,
		cfg:    cfg,
		cron:   cron.New(),
	}, nil
}

// Sweep runs one pass and returns how many dreams were re-enqueued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	return s.dreams.RequeuePending(dbctx.Of(ctx), s.cfg.MinAge, s.cfg.Limit)
}

func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if ctx.Err() != nil {
			return
		}
		n, err := s.Sweep(ctx)
		if err != nil {
			s.log.Warn("pending sweep failed", "error", err)
			return
		}
		if n > 0 {
			s.log.Info("pending sweep re-enqueued dreams", "count", n)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("pending sweeper started", "schedule", s.cfg.Schedule)
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("pending sweeper stopped")
}
