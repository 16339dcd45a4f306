package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/dreamworld-backend/internal/data/db"
	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/jobs/worker"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/envutil"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
	"github.com/yungbote/dreamworld-backend/internal/realtime/bus"
	"github.com/yungbote/dreamworld-backend/internal/services"
)

var sampleDreams = []struct {
	daysAgo int
	content string
}{
	{2, "I was in my childhood home. The rooms were familiar but somehow different. I walked through the garden and found a hidden door leading to a forest."},
	{1, "I found myself in a vast library with endless shelves. Books were floating in the air. I met an old friend who handed me a glowing book."},
	{0, "I was swimming in a crystal clear ocean. Below me I could see an underwater city with lights. I dove down and entered through a grand archway."},
}

// Seeds a few sample dreams. A running server picks up their processing jobs.
func main() {
	if _, err := envutil.LoadOverlay(envutil.String("CONFIG_FILE", "")); err != nil {
		fmt.Printf("config overlay: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(context.Background(), log); err != nil {
		log.Error("seed failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger) error {
	dbService, err := db.NewService(log, db.ConfigFromEnv())
	if err != nil {
		return err
	}
	defer func() { _ = dbService.Close() }()
	theDB := dbService.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		return err
	}

	set := repos.NewSet(theDB, log)
	events := services.NewWorldEvents(bus.NewLocal(realtime.NewHub(log)), nil, log)
	jobSvc := services.NewJobService(theDB, log, set.JobRuns)
	dreamSvc := services.NewDreamService(theDB, log, set.Dreams, jobSvc, events, worker.ConfigFromEnv().MaxAttempts)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, s := range sampleDreams {
		d, job, err := dreamSvc.Create(dbctx.Of(ctx), services.CreateDreamInput{
			Date:     today.AddDate(0, 0, -s.daysAgo),
			Cycle:    1,
			Content:  s.content,
			Language: "en",
		})
		if err != nil {
			return fmt.Errorf("create sample dream: %w", err)
		}
		log.Info("sample dream created", "dream_id", d.ID, "job_id", job.ID.String())
	}
	return nil
}
