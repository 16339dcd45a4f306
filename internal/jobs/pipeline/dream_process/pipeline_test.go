package dream_process

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/data/repos/testutil"
	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	jobrt "github.com/yungbote/dreamworld-backend/internal/jobs/runtime"
	"github.com/yungbote/dreamworld-backend/internal/jobs/worker"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/extraction"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/graphwrite"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/keylock"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

const forestDream = "I was in the forest, and a wolf appeared, then I moved to a cave"

type blockingClient struct{}

func (blockingClient) Model() string { return "blocking" }

func (blockingClient) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type memBus struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (b *memBus) Publish(ctx context.Context, msg realtime.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *memBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	return nil
}

func (b *memBus) Close() error { return nil }

func (b *memBus) count(ev realtime.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.msgs {
		if m.Event == ev {
			n++
		}
	}
	return n
}

type harness struct {
	db     *gorm.DB
	set    repos.Set
	bus    *memBus
	dreams services.DreamService
	jobs   services.JobService
	worker *worker.Worker
}

func newHarness(t *testing.T, extractor extraction.Extractor) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	b := &memBus{}
	events := services.NewWorldEvents(b, nil, log)
	jobSvc := services.NewJobService(db, log, set.JobRuns)
	stub := extraction.NewStub(nil)
	if extractor == nil {
		extractor = stub
	}
	writer := graphwrite.NewWriter(db, set, keylock.New(), log)

	registry := jobrt.NewRegistry()
	require.NoError(t, registry.Register(New(db, log, set.Dreams, extractor, stub, writer, events)))
	w := worker.NewWorker(db, log, set.JobRuns, registry, services.NewJobNotifier(b, log), worker.Config{
		Concurrency:  1,
		PollInterval: 10 * time.Millisecond,
		MaxAttempts:  1,
	})
	return &harness{
		db:     db,
		set:    set,
		bus:    b,
		dreams: services.NewDreamService(db, log, set.Dreams, jobSvc, events, 1),
		jobs:   jobSvc,
		worker: w,
	}
}

func (h *harness) submit(t *testing.T, content string) (uint64, *jobs.JobRun) {
	t.Helper()
	d, job, err := h.dreams.Create(dbctx.Of(context.Background()), services.CreateDreamInput{
		Date:    time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		Cycle:   1,
		Content: content,
	})
	require.NoError(t, err)
	return d.ID, job
}

func (h *harness) runOne(t *testing.T) {
	t.Helper()
	ran, err := h.worker.RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, ran)
}

func (h *harness) job(t *testing.T, job *jobs.JobRun) (*jobs.JobRun, map[string]any) {
	t.Helper()
	got, err := h.jobs.GetByID(dbctx.Of(context.Background()), job.ID)
	require.NoError(t, err)
	var result map[string]any
	if len(got.Result) > 0 {
		require.NoError(t, json.Unmarshal(got.Result, &result))
	}
	return got, result
}

func locationsByName(t *testing.T, set repos.Set) map[string]*world.Location {
	t.Helper()
	locs, err := set.Locations.List(dbctx.Of(context.Background()), nil)
	require.NoError(t, err)
	out := map[string]*world.Location{}
	for _, l := range locs {
		out[l.Name] = l
	}
	return out
}

func TestProcessDreamWithStub(t *testing.T) {
	h := newHarness(t, nil)
	dreamID, job := h.submit(t, forestDream)
	h.runOne(t)

	got, result := h.job(t, job)
	assert.Equal(t, jobs.StatusSucceeded, got.Status)
	assert.Equal(t, StageProcessed, got.Stage)
	assert.Equal(t, extraction.StrategyStub, result["strategy"])
	assert.Equal(t, false, result["fallback"])
	assert.EqualValues(t, 2, result["locations_created"])
	assert.EqualValues(t, 1, result["entities_created"])
	assert.EqualValues(t, 1, result["transits_created"])

	d, err := h.dreams.Get(dbctx.Of(context.Background()), dreamID)
	require.NoError(t, err)
	assert.True(t, d.Processed)

	locs := locationsByName(t, h.set)
	require.Contains(t, locs, "Forest")
	require.Contains(t, locs, "Cave")
	assert.Equal(t, 1, locs["Forest"].Frequency)
	assert.Equal(t, world.LayerLower, locs["Cave"].Layer)

	assert.Equal(t, 1, h.bus.count(realtime.EventDreamProcessed))
	assert.Equal(t, 1, h.bus.count(realtime.EventJobDone))
}

func TestLLMTimeoutFallsBackToStub(t *testing.T) {
	llm := extraction.NewLLM(blockingClient{}, testutil.Logger(t), extraction.LLMConfig{Timeout: 20 * time.Millisecond})
	h := newHarness(t, llm)
	dreamID, job := h.submit(t, forestDream)
	h.runOne(t)

	got, result := h.job(t, job)
	require.Equal(t, jobs.StatusSucceeded, got.Status, got.Error)
	assert.Equal(t, extraction.StrategyStub, result["strategy"])
	assert.Equal(t, true, result["fallback"])
	assert.NotEmpty(t, result["extraction_error"])

	d, err := h.dreams.Get(dbctx.Of(context.Background()), dreamID)
	require.NoError(t, err)
	assert.True(t, d.Processed)
	assert.Contains(t, locationsByName(t, h.set), "Forest")
}

func TestRedeliveryIsNoOp(t *testing.T) {
	h := newHarness(t, nil)
	dreamID, _ := h.submit(t, forestDream)
	h.runOne(t)

	again, err := h.jobs.Enqueue(dbctx.Of(context.Background()), jobs.JobTypeDreamProcess, jobs.EntityTypeDream,
		strconv.FormatUint(dreamID, 10), map[string]any{"dream_id": dreamID})
	require.NoError(t, err)
	h.runOne(t)

	got, result := h.job(t, again)
	assert.Equal(t, jobs.StatusSucceeded, got.Status)
	assert.Equal(t, true, result["already_processed"])
	assert.Equal(t, 1, locationsByName(t, h.set)["Forest"].Frequency)
}

func TestSecondDreamReusesLocations(t *testing.T) {
	h := newHarness(t, nil)
	h.submit(t, "I walked in the forest")
	h.runOne(t)
	_, job := h.submit(t, "Back in the forest again, then the city")
	h.runOne(t)

	_, result := h.job(t, job)
	assert.EqualValues(t, 1, result["locations_reused"])
	assert.EqualValues(t, 1, result["locations_created"])
	locs := locationsByName(t, h.set)
	assert.Equal(t, 2, locs["Forest"].Frequency)
	assert.Equal(t, 1, locs["City"].Frequency)
}

func TestMissingDreamFailsJob(t *testing.T) {
	h := newHarness(t, nil)
	job, err := h.jobs.Enqueue(dbctx.Of(context.Background()), jobs.JobTypeDreamProcess, jobs.EntityTypeDream, "404",
		map[string]any{"dream_id": 404})
	require.NoError(t, err)
	h.runOne(t)

	got, _ := h.job(t, job)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, "validate", got.Stage)
	assert.Contains(t, got.Error, "not found")
	assert.Equal(t, 1, h.bus.count(realtime.EventJobFailed))

	ran, err := h.worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran, "attempts are exhausted")
}

func TestWriteFailureLeavesDreamPending(t *testing.T) {
	h := newHarness(t, nil)
	const hook = "test:fail_transit_insert"
	require.NoError(t, h.db.Callback().Create().Before("gorm:create").Register(hook, func(tx *gorm.DB) {
		if tx.Statement.Table == "transit" {
			_ = tx.AddError(errors.New("store unavailable"))
		}
	}))

	dreamID, job := h.submit(t, forestDream)
	h.runOne(t)

	got, _ := h.job(t, job)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, StageWriting, got.Stage)

	ctx := dbctx.Of(context.Background())
	d, err := h.set.Dreams.GetByID(ctx, dreamID)
	require.NoError(t, err)
	assert.False(t, d.Processed)
	assert.Empty(t, locationsByName(t, h.set))
	ents, err := h.set.Entities.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, ents)

	require.NoError(t, h.db.Callback().Create().Remove(hook))
	_, err = h.jobs.Enqueue(ctx, jobs.JobTypeDreamProcess, jobs.EntityTypeDream, strconv.FormatUint(dreamID, 10),
		map[string]any{"dream_id": dreamID})
	require.NoError(t, err)
	h.runOne(t)

	d, err = h.set.Dreams.GetByID(ctx, dreamID)
	require.NoError(t, err)
	assert.True(t, d.Processed)
	locs := locationsByName(t, h.set)
	require.Len(t, locs, 2)
	for _, l := range locs {
		assert.Equal(t, 1, l.Frequency)
	}
}
