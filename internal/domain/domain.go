package domain

import (
	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	"github.com/yungbote/dreamworld-backend/internal/domain/jobs"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
)

type (
	Dream         = dreams.Dream
	Location      = world.Location
	Entity        = world.Entity
	Transit       = world.Transit
	DreamLocation = world.DreamLocation
	ChangeLog     = world.ChangeLog
	JobRun        = jobs.JobRun
	Layer         = world.Layer
	Archetype     = world.Archetype
)

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&Dream{},
		&Location{},
		&Entity{},
		&Transit{},
		&DreamLocation{},
		&ChangeLog{},
		&JobRun{},
	}
}
