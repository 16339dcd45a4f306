package sweeper

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/data/repos/testutil"
	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

func TestSweepRequeuesOrphans(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	jobSvc := services.NewJobService(db, log, set.JobRuns)
	dreamSvc := services.NewDreamService(db, log, set.Dreams, jobSvc, nil, 5)
	ctx := context.Background()

	orphan := testutil.SeedDream(t, ctx, db, "left behind")
	s, err := New(log, dreamSvc, Config{Schedule: "@every 1h", MinAge: -time.Minute})
	require.NoError(t, err)

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	job, err := jobSvc.GetLatestForEntity(dbctx.Of(ctx), jobs.EntityTypeDream, strconv.FormatUint(orphan.ID, 10), jobs.JobTypeDreamProcess)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, jobs.StatusQueued, job.Status)

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvalidSchedule(t *testing.T) {
	_, err := New(testutil.Logger(t), nil, Config{Schedule: "every now and then"})
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s, err := New(testutil.Logger(t), nil, Config{Schedule: "@every 1h"})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
}
