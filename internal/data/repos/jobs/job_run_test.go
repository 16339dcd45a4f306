package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yungbote/dreamworld-backend/internal/data/repos/testutil"
	types "github.com/yungbote/dreamworld-backend/internal/domain"
	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
)

func newJob(status string, created time.Time) *types.JobRun {
	return &types.JobRun{
		ID:         uuid.New(),
		JobType:    "dream_process",
		EntityType: "dream",
		EntityID:   uuid.NewString(),
		Status:     status,
		Stage:      status,
		Payload:    datatypes.JSON([]byte("{}")),
		Result:     datatypes.JSON([]byte("{}")),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestJobRunRepoClaimOrder(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	queued := newJob(jobs.StatusQueued, now.Add(-3*time.Hour))
	failed := newJob(jobs.StatusFailed, now.Add(-2*time.Hour))
	failed.LastErrorAt = ptrTime(now.Add(-2 * time.Hour))
	staleRunning := newJob(jobs.StatusRunning, now.Add(-1*time.Hour))
	staleRunning.HeartbeatAt = ptrTime(now.Add(-10 * time.Hour))
	exhausted := newJob(jobs.StatusFailed, now.Add(-4*time.Hour))
	exhausted.Attempts = 3
	exhausted.LastErrorAt = ptrTime(now.Add(-4 * time.Hour))

	created, err := repo.Create(dbc, []*types.JobRun{queued, failed, staleRunning, exhausted})
	require.NoError(t, err)
	require.Len(t, created, 4)

	rows, err := repo.GetByIDs(dbc, []uuid.UUID{queued.ID, failed.ID, staleRunning.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	for _, want := range []uuid.UUID{queued.ID, failed.ID, staleRunning.ID} {
		claimed, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour)
		require.NoError(t, err)
		require.NotNil(t, claimed)
		assert.Equal(t, want, claimed.ID)
		assert.Equal(t, jobs.StatusRunning, claimed.Status)
	}

	none, err := repo.ClaimNextRunnable(dbc, 3, time.Hour, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, none)

	got, err := repo.GetByID(dbc, queued.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.NotNil(t, got.LockedAt)
}

func TestJobRunRepoEntityQueries(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Of(context.Background())
	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	older := newJob(jobs.StatusSucceeded, now.Add(-5*time.Hour))
	older.EntityID = "42"
	newer := newJob(jobs.StatusFailed, now.Add(-4*time.Hour))
	newer.EntityID = "42"
	newer.Attempts = 5
	_, err := repo.Create(dbc, []*types.JobRun{older, newer})
	require.NoError(t, err)

	latest, err := repo.GetLatestByEntity(dbc, "dream", "42", "dream_process")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	has, err := repo.HasRunnableForEntity(dbc, "dream", "42", "dream_process", 5)
	require.NoError(t, err)
	assert.False(t, has, "exhausted failures are not runnable")

	has, err = repo.HasRunnableForEntity(dbc, "dream", "42", "dream_process", 6)
	require.NoError(t, err)
	assert.True(t, has)

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, older.ID, []string{jobs.StatusSucceeded}, map[string]interface{}{"stage": "nope"})
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.UpdateFields(dbc, newer.ID, map[string]interface{}{"status": jobs.StatusRunning}))
	require.NoError(t, repo.Heartbeat(dbc, newer.ID))
	got, err := repo.GetByID(dbc, newer.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.HeartbeatAt)
}

func ptrTime(t time.Time) *time.Time { return &t }
