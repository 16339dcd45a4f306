package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
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
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/merge"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/keylock"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
)

type captureBus struct {
	mu   sync.Mutex
	msgs []realtime.Message
}

func (b *captureBus) Publish(ctx context.Context, msg realtime.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *captureBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	return nil
}

func (b *captureBus) Close() error { return nil }

func (b *captureBus) events() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.Event, 0, len(b.msgs))
	for _, m := range b.msgs {
		out = append(out, m.Event)
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	set       repos.Set
	bus       *captureBus
	jobs      JobService
	dreams    DreamService
	locations LocationService
	entities  EntityService
	world     WorldService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	locks := keylock.New()
	b := &captureBus{}
	events := NewWorldEvents(b, nil, log)
	jobSvc := NewJobService(db, log, set.JobRuns)
	return &fixture{
		db:        db,
		set:       set,
		bus:       b,
		jobs:      jobSvc,
		dreams:    NewDreamService(db, log, set.Dreams, jobSvc, events, 5),
		locations: NewLocationService(db, log, set, merge.NewEngine(db, set, locks, log, events), events),
		entities:  NewEntityService(db, log, set),
		world:     NewWorldService(db, log, set, locks),
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateDreamEnqueuesJob(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Of(context.Background())

	d, job, err := f.dreams.Create(dbc, CreateDreamInput{
		Date:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Cycle:    2,
		Content:  "  I was in a forest  ",
		Language: "EN",
	})
	require.NoError(t, err)
	assert.False(t, d.Processed)
	assert.Equal(t, "I was in a forest", d.Content)
	assert.Equal(t, "en", d.Language)
	require.NotNil(t, job)
	assert.Equal(t, jobs.JobTypeDreamProcess, job.JobType)
	assert.Equal(t, jobs.StatusQueued, job.Status)
	assert.Equal(t, strconv.FormatUint(d.ID, 10), job.EntityID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(job.Payload, &payload))
	assert.EqualValues(t, d.ID, payload["dream_id"])
	assert.Equal(t, []realtime.Event{realtime.EventDreamCreated}, f.bus.events())

	got, err := f.jobs.GetLatestForEntity(dbc, jobs.EntityTypeDream, strconv.FormatUint(d.ID, 10), jobs.JobTypeDreamProcess)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestCreateDreamValidation(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Of(context.Background())
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]CreateDreamInput{
		"empty content": {Date: date, Cycle: 1, Content: "   "},
		"zero cycle":    {Date: date, Cycle: 0, Content: "x"},
		"no date":       {Cycle: 1, Content: "x"},
		"long language": {Date: date, Cycle: 1, Content: "x", Language: "english"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := f.dreams.Create(dbc, in)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
	n, err := f.set.Dreams.Count(dbc)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.dreams.Get(dbc, 42)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestRequeuePendingSkipsDreamsWithLiveJobs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbc := dbctx.Of(ctx)

	withJob, _, err := f.dreams.Create(dbc, CreateDreamInput{Date: time.Now(), Cycle: 1, Content: "queued"})
	require.NoError(t, err)
	orphan := testutil.SeedDream(t, ctx, f.db, "orphan")

	n, err := f.dreams.RequeuePending(dbc, -time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := f.jobs.GetLatestForEntity(dbc, jobs.EntityTypeDream, strconv.FormatUint(orphan.ID, 10), jobs.JobTypeDreamProcess)
	require.NoError(t, err)
	require.NotNil(t, job)

	n, err = f.dreams.RequeuePending(dbc, -time.Minute, 10)
	require.NoError(t, err)
	assert.Zero(t, n)

	job, err = f.jobs.GetLatestForEntity(dbc, jobs.EntityTypeDream, strconv.FormatUint(withJob.ID, 10), jobs.JobTypeDreamProcess)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusQueued, job.Status)
}

func TestLocationCreateAndPatch(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Of(context.Background())

	loc, err := f.locations.Create(dbc, CreateLocationInput{Name: "Lake", Archetype: "ocean", X: 3, Y: -0.5})
	require.NoError(t, err)
	assert.Equal(t, world.ArchetypeWater, loc.Archetype)
	assert.Equal(t, world.StyleFor(world.ArchetypeWater).Color, loc.Color)
	assert.Equal(t, world.LayerPrimary, loc.Layer)
	assert.Equal(t, 1.0, loc.X)

	_, err = f.locations.Create(dbc, CreateLocationInput{Name: "Bad", X: math.NaN()})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = f.locations.Create(dbc, CreateLocationInput{Name: "Bad", Color: "blue"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	// A concurrent increment between create and patch must survive the patch.
	ok, err := f.set.Locations.IncrementFrequency(dbc, loc.ID, 4)
	require.NoError(t, err)
	require.True(t, ok)

	patched, err := f.locations.Update(dbc, loc.ID, LocationPatch{
		Name: ptr("Still Lake"),
		X:    ptr(-7.0),
	})
	require.NoError(t, err)
	assert.Equal(t, "Still Lake", patched.Name)
	assert.Equal(t, -1.0, patched.X)
	assert.Equal(t, -0.5, patched.Y)
	assert.Equal(t, 4, patched.Frequency)
	assert.Equal(t, world.ArchetypeWater, patched.Archetype)

	_, err = f.locations.Update(dbc, loc.ID, LocationPatch{Y: ptr(math.Inf(1))})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = f.locations.Update(dbc, 999, LocationPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	logs, err := f.set.ChangeLogs.ListByEntity(dbc, "location", loc.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, world.ChangeCreate, logs[0].Action)
	assert.Equal(t, world.ChangeUpdate, logs[1].Action)

	assert.Equal(t, []realtime.Event{realtime.EventLocationCreated, realtime.EventLocationUpdated}, f.bus.events())
}

func TestLocationPatchOnRowRemovedMidUpdate(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Of(context.Background())
	loc, err := f.locations.Create(dbc, CreateLocationInput{Name: "Attic"})
	require.NoError(t, err)

	// Simulates a merge deleting the row after the patch has read it.
	const hook = "test:delete_before_update"
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register(hook, func(tx *gorm.DB) {
		if tx.Statement.Table == "location" {
			tx.Session(&gorm.Session{NewDB: true}).Exec("DELETE FROM location WHERE id = ?", loc.ID)
		}
	}))
	t.Cleanup(func() { _ = f.db.Callback().Update().Remove(hook) })

	got, err := f.locations.Update(dbc, loc.ID, LocationPatch{Name: ptr("Cellar")})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Nil(t, got)

	logs, err := f.set.ChangeLogs.ListByEntity(dbc, "location", loc.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, world.ChangeCreate, logs[0].Action)
}

func TestLocationListAndTransits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbc := dbctx.Of(ctx)
	a := testutil.SeedLocation(t, ctx, f.db, "A", 1, 0, 0)
	b := testutil.SeedLocation(t, ctx, f.db, "B", 1, 0.5, 0.5)
	_, err := f.locations.Create(dbc, CreateLocationInput{Name: "Sky", Layer: world.LayerUpper})
	require.NoError(t, err)
	testutil.SeedTransit(t, ctx, f.db, a.ID, b.ID)

	upper := world.LayerUpper
	got, err := f.locations.List(dbc, &upper)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sky", got[0].Name)

	bogus := world.Layer("MIDDLE")
	_, err = f.locations.List(dbc, &bogus)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	trs, err := f.locations.Transits(dbc, b.ID)
	require.NoError(t, err)
	require.Len(t, trs, 1)
	assert.Equal(t, a.ID, trs[0].FromLocationID)

	_, err = f.locations.Transits(dbc, 999)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestLocationMergePublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := testutil.SeedLocation(t, ctx, f.db, "A", 3, 0.2, 0.2)
	b := testutil.SeedLocation(t, ctx, f.db, "B", 5, 0.6, 0.6)

	merged, err := f.locations.Merge(dbctx.Of(ctx), merge.Request{SourceIDs: []uint64{a.ID, b.ID}, TargetName: "Combined"})
	require.NoError(t, err)
	assert.Equal(t, b.ID, merged.ID)
	assert.Equal(t, 8, merged.Frequency)
	assert.Equal(t, []realtime.Event{realtime.EventLocationMerged}, f.bus.events())
}

func TestEntityService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbc := dbctx.Of(ctx)
	forest := testutil.SeedLocation(t, ctx, f.db, "Forest", 1, 0, 0)
	cave := testutil.SeedLocation(t, ctx, f.db, "Cave", 1, 0.5, 0)
	testutil.SeedEntity(t, ctx, f.db, "Wolf", forest.ID)

	bat, err := f.entities.Create(dbc, CreateEntityInput{Name: "Bat", Type: "creature", LocationID: &cave.ID})
	require.NoError(t, err)
	assert.Equal(t, 1.0, bat.Confidence)

	_, err = f.entities.Create(dbc, CreateEntityInput{Name: "Ghost", LocationID: ptr(uint64(999))})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = f.entities.Create(dbc, CreateEntityInput{Name: "Ghost", Confidence: ptr(1.5)})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	all, err := f.entities.List(dbc, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inCave, err := f.entities.List(dbc, &cave.ID)
	require.NoError(t, err)
	require.Len(t, inCave, 1)
	assert.Equal(t, "Bat", inCave[0].Name)

	_, err = f.entities.List(dbc, ptr(uint64(999)))
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	got, err := f.entities.Get(dbc, bat.ID)
	require.NoError(t, err)
	assert.Equal(t, cave.ID, *got.LocationID)
	_, err = f.entities.Get(dbc, 999)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbc := dbctx.Of(ctx)

	empty, err := f.world.Stats(dbc)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalDreams)
	assert.Nil(t, empty.MostFrequentLocation)
	assert.Nil(t, empty.LatestDream)
	assert.Equal(t, int64(0), empty.LocationsByLayer[world.LayerLower])

	testutil.SeedDream(t, ctx, f.db, "one")
	a := testutil.SeedLocation(t, ctx, f.db, "A", 2, 0, 0)
	b := testutil.SeedLocation(t, ctx, f.db, "B", 7, 0.5, 0)
	testutil.SeedEntity(t, ctx, f.db, "Wolf", a.ID)
	testutil.SeedTransit(t, ctx, f.db, a.ID, b.ID)

	st, err := f.world.Stats(dbc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.TotalDreams)
	assert.Equal(t, int64(2), st.TotalLocations)
	assert.Equal(t, int64(1), st.TotalEntities)
	assert.Equal(t, int64(1), st.TotalTransits)
	require.NotNil(t, st.MostFrequentLocation)
	assert.Equal(t, "B", st.MostFrequentLocation.Name)
	require.NotNil(t, st.LatestDream)
	assert.Equal(t, int64(2), st.LocationsByLayer[world.LayerPrimary])
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()
	dream := testutil.SeedDream(t, ctx, src.db, "forest then cave")
	forest := testutil.SeedLocation(t, ctx, src.db, "Forest", 3, -0.25, 0.5)
	cave := testutil.SeedLocation(t, ctx, src.db, "Cave", 1, 0.75, -0.5)
	testutil.SeedEntity(t, ctx, src.db, "Wolf", forest.ID)
	testutil.SeedTransit(t, ctx, src.db, forest.ID, cave.ID)
	require.NoError(t, src.set.DreamLocations.Create(dbctx.Of(ctx), []*world.DreamLocation{
		{DreamID: dream.ID, LocationID: forest.ID, Order: 0},
		{DreamID: dream.ID, LocationID: cave.ID, Order: 1},
	}))

	exported, err := src.world.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExportVersion, exported.Version)
	raw, err := json.Marshal(exported)
	require.NoError(t, err)

	var decoded WorldExport
	require.NoError(t, json.Unmarshal(raw, &decoded))

	dst := newFixture(t)
	// Occupy the low ids so the import has to remap.
	testutil.SeedLocation(t, ctx, dst.db, "Existing", 1, 0, 0)
	testutil.SeedLocation(t, ctx, dst.db, "Existing 2", 1, 0, 0)
	sum, err := dst.world.Import(ctx, &decoded)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Dreams)
	assert.Equal(t, 2, sum.Locations)
	assert.Equal(t, 1, sum.Entities)
	assert.Equal(t, 1, sum.Transits)
	assert.Equal(t, 2, sum.DreamLocations)
	assert.Zero(t, sum.Skipped)

	again, err := dst.world.Export(ctx)
	require.NoError(t, err)
	byName := map[string]*world.Location{}
	for _, l := range again.Locations {
		byName[l.Name] = l
	}
	require.Contains(t, byName, "Forest")
	require.Contains(t, byName, "Cave")
	f2, c2 := byName["Forest"], byName["Cave"]
	assert.Equal(t, 3, f2.Frequency)
	assert.Equal(t, -0.25, f2.X)
	assert.Equal(t, 0.5, f2.Y)
	assert.Equal(t, forest.Color, f2.Color)

	require.Len(t, again.Entities, 1)
	assert.Equal(t, "Wolf", again.Entities[0].Name)
	require.NotNil(t, again.Entities[0].LocationID)
	assert.Equal(t, f2.ID, *again.Entities[0].LocationID)

	require.Len(t, again.Transits, 1)
	assert.Equal(t, f2.ID, again.Transits[0].FromLocationID)
	assert.Equal(t, c2.ID, again.Transits[0].ToLocationID)

	require.Len(t, again.Dreams, 1)
	assert.Equal(t, "forest then cave", again.Dreams[0].Content)
	assert.True(t, again.Dreams[0].Date.Equal(dream.Date))
	require.Len(t, again.DreamLocations, 2)
	assert.Equal(t, f2.ID, again.DreamLocations[0].LocationID)
	assert.Equal(t, c2.ID, again.DreamLocations[1].LocationID)
}

func TestImportRejectsInvalidLocations(t *testing.T) {
	f := newFixture(t)
	_, err := f.world.Import(context.Background(), &WorldExport{
		Locations: []*world.Location{{ID: 1, Name: "Bad", Layer: "SIDEWAYS"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrValidation))

	n, err := f.set.Locations.Count(dbctx.Of(context.Background()))
	require.NoError(t, err)
	assert.Zero(t, n)
}
