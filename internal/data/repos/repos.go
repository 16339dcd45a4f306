package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos/dreams"
	"github.com/yungbote/dreamworld-backend/internal/data/repos/jobs"
	"github.com/yungbote/dreamworld-backend/internal/data/repos/world"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type DreamRepo = dreams.DreamRepo

type LocationRepo = world.LocationRepo
type EntityRepo = world.EntityRepo
type TransitRepo = world.TransitRepo
type DreamLocationRepo = world.DreamLocationRepo
type ChangeLogRepo = world.ChangeLogRepo

type JobRunRepo = jobs.JobRunRepo

func NewDreamRepo(db *gorm.DB, baseLog *logger.Logger) DreamRepo {
	return dreams.NewDreamRepo(db, baseLog)
}

func NewLocationRepo(db *gorm.DB, baseLog *logger.Logger) LocationRepo {
	return world.NewLocationRepo(db, baseLog)
}
func NewEntityRepo(db *gorm.DB, baseLog *logger.Logger) EntityRepo {
	return world.NewEntityRepo(db, baseLog)
}
func NewTransitRepo(db *gorm.DB, baseLog *logger.Logger) TransitRepo {
	return world.NewTransitRepo(db, baseLog)
}
func NewDreamLocationRepo(db *gorm.DB, baseLog *logger.Logger) DreamLocationRepo {
	return world.NewDreamLocationRepo(db, baseLog)
}
func NewChangeLogRepo(db *gorm.DB, baseLog *logger.Logger) ChangeLogRepo {
	return world.NewChangeLogRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}

// Set is every repository the application wires, built over one database handle.
type Set struct {
	Dreams         DreamRepo
	Locations      LocationRepo
	Entities       EntityRepo
	Transits       TransitRepo
	DreamLocations DreamLocationRepo
	ChangeLogs     ChangeLogRepo
	JobRuns        JobRunRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Dreams:         NewDreamRepo(db, baseLog),
		Locations:      NewLocationRepo(db, baseLog),
		Entities:       NewEntityRepo(db, baseLog),
		Transits:       NewTransitRepo(db, baseLog),
		DreamLocations: NewDreamLocationRepo(db, baseLog),
		ChangeLogs:     NewChangeLogRepo(db, baseLog),
		JobRuns:        NewJobRunRepo(db, baseLog),
	}
}
