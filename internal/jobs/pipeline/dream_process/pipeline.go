package dream_process

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	jobrt "github.com/yungbote/dreamworld-backend/internal/jobs/runtime"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/extraction"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/graphwrite"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/resolution"
	"github.com/yungbote/dreamworld-backend/internal/observability"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
)

type extracted struct {
	candidates []extraction.Candidate
	strategy   string
	fallback   bool
	err        error
}

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	ctx, span := observability.StartSpan(jc.Ctx, "dream_process", "job_id", jc.Job.ID.String())
	defer span.End()

	dreamID, ok := jc.PayloadUint64("dream_id")
	if !ok {
		jc.Fail("validate", domainerrors.Validation("dream_process", "missing dream_id"))
		return nil
	}
	jc.Progress(StagePending, 0, "Loading dream")
	dream, err := p.dreams.GetByID(dbctx.Of(ctx), dreamID)
	if err != nil {
		jc.Fail(StagePending, domainerrors.ClassifyDB("load dream", err))
		return nil
	}
	if dream == nil {
		jc.Fail("validate", domainerrors.NotFound("dream", dreamID))
		return nil
	}
	log := p.log.With("dream_id", dreamID, "job_id", jc.Job.ID)
	if dream.Processed {
		log.Info("dream already processed; nothing to do")
		jc.Succeed(StageProcessed, map[string]any{"dream_id": dreamID, "already_processed": true})
		return nil
	}

	jc.Progress(StageExtracting, 10, "Extracting locations")
	ex := p.extract(ctx, jc, dream)
	if ex.err != nil && ex.candidates == nil {
		stage := StageExtracting
		if ex.fallback {
			stage = StageStubFallback
		}
		jc.Fail(stage, ex.err)
		return nil
	}

	res, retries, err := p.resolveAndWrite(ctx, jc, dreamID, ex.candidates)
	if errors.Is(err, graphwrite.ErrAlreadyProcessed) {
		log.Info("dream processed by another delivery")
		jc.Succeed(StageProcessed, map[string]any{"dream_id": dreamID, "already_processed": true})
		return nil
	}
	if err != nil {
		log.Warn("dream write failed", "error", err, "stale_retries", retries)
		jc.Fail(StageWriting, err)
		return nil
	}

	result := map[string]any{
		"dream_id":          dreamID,
		"strategy":          ex.strategy,
		"fallback":          ex.fallback,
		"candidates":        len(ex.candidates),
		"locations_touched": res.LocationsTouched,
		"locations_created": res.LocationsCreated,
		"locations_reused":  res.LocationsReused,
		"entities_created":  res.EntitiesCreated,
		"transits_created":  res.TransitsCreated,
		"transits_skipped":  res.TransitsSkipped,
		"stale_retries":     retries,
	}
	if ex.err != nil {
		result["extraction_error"] = ex.err.Error()
	}

	m := observability.Current()
	m.IncDreamProcessed(ex.strategy, ex.fallback)
	m.AddResolutions(res.LocationsReused, res.LocationsCreated)
	p.events.DreamProcessed(ctx, dreamID, map[string]any{
		"strategy":          ex.strategy,
		"fallback":          ex.fallback,
		"locations_touched": res.LocationsTouched,
		"locations_created": res.LocationsCreated,
	}, res.Locations, res.Transits)

	log.Info("dream processed",
		"strategy", ex.strategy,
		"fallback", ex.fallback,
		"locations_touched", res.LocationsTouched,
		"locations_created", res.LocationsCreated,
	)
	jc.Succeed(StageProcessed, result)
	return nil
}

// extract runs the configured strategy and falls back to the stub on an extraction failure.
// A non-nil err with nil candidates means nothing could be extracted.
func (p *Pipeline) extract(ctx context.Context, jc *jobrt.Context, d *dreams.Dream) extracted {
	start := time.Now()
	cands, err := p.extractor.Extract(ctx, d.Content, d.Language)
	if err == nil {
		observability.Current().ObserveDreamStage(StageExtracting, "ok", time.Since(start))
		return extracted{candidates: cands, strategy: p.extractor.Name()}
	}
	observability.Current().ObserveDreamStage(StageExtracting, "error", time.Since(start))
	if p.fallback == nil || p.extractor.Name() == extraction.StrategyStub || !errors.Is(err, domainerrors.ErrExtraction) {
		return extracted{strategy: p.extractor.Name(), err: err}
	}

	p.log.Warn("extraction failed; falling back to stub", "dream_id", d.ID, "strategy", p.extractor.Name(), "error", err)
	jc.Progress(StageStubFallback, 25, "Extraction failed; using keyword extraction")
	start = time.Now()
	cands, fbErr := p.fallback.Extract(ctx, d.Content, d.Language)
	if fbErr != nil {
		observability.Current().ObserveDreamStage(StageStubFallback, "error", time.Since(start))
		return extracted{strategy: extraction.StrategyStub, fallback: true, err: fbErr}
	}
	observability.Current().ObserveDreamStage(StageStubFallback, "ok", time.Since(start))
	return extracted{candidates: cands, strategy: extraction.StrategyStub, fallback: true, err: err}
}

func (p *Pipeline) resolveAndWrite(ctx context.Context, jc *jobrt.Context, dreamID uint64, cands []extraction.Candidate) (graphwrite.Result, int, error) {
	var (
		res graphwrite.Result
		err error
	)
	for attempt := 0; attempt <= MaxStaleRetries; attempt++ {
		if attempt > 0 {
			observability.Current().IncStaleRetry()
		}
		jc.Progress(StageResolving, 50, "Resolving locations")
		start := time.Now()
		var snap resolution.Snapshot
		snap, err = p.writer.Snapshot(ctx)
		if err != nil {
			observability.Current().ObserveDreamStage(StageResolving, "error", time.Since(start))
			return res, attempt, err
		}
		plan := resolution.ResolveAll(cands, snap)
		observability.Current().ObserveDreamStage(StageResolving, "ok", time.Since(start))

		jc.Progress(StageWriting, 75, "Writing dream world")
		start = time.Now()
		res, err = p.writer.Apply(ctx, dreamID, plan)
		status := "ok"
		if err != nil {
			status = "error"
		}
		observability.Current().ObserveDreamStage(StageWriting, status, time.Since(start))
		if !errors.Is(err, graphwrite.ErrStaleSnapshot) {
			return res, attempt, err
		}
		p.log.Debug("stale snapshot; re-resolving", "dream_id", dreamID, "attempt", attempt+1)
	}
	return res, MaxStaleRetries, err
}
