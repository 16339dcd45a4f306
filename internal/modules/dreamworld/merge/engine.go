package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	repoworld "github.com/yungbote/dreamworld-backend/internal/data/repos/world"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld"
	"github.com/yungbote/dreamworld-backend/internal/observability"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/keylock"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type Request struct {
	SourceIDs  []uint64
	TargetName string
	UserNote   string
}

// Outcome is handed to observers after a merge commits.
type Outcome struct {
	Survivor   *world.Location
	RemovedIDs []uint64
	Transits   []*world.Transit
}

// Observer receives committed merges. It must not fail the merge.
type Observer interface {
	LocationsMerged(ctx context.Context, out Outcome)
}

type Engine struct {
	db        *gorm.DB
	repos     repos.Set
	locks     *keylock.Locker
	log       *logger.Logger
	observers []Observer
}

func NewEngine(db *gorm.DB, set repos.Set, locks *keylock.Locker, baseLog *logger.Logger, observers ...Observer) *Engine {
	return &Engine{
		db:        db,
		repos:     set,
		locks:     locks,
		log:       baseLog.With("component", "MergeEngine"),
		observers: observers,
	}
}

// Merge collapses the source locations into the most frequent one. Either every
// source is merged or nothing changes.
func (e *Engine) Merge(ctx context.Context, req Request) (*world.Location, error) {
	ids := uniqueIDs(req.SourceIDs)
	name := strings.TrimSpace(req.TargetName)
	if len(ids) == 0 {
		observability.Current().IncMerge("invalid")
		return nil, domainerrors.Validation("merge", "source_ids must contain at least one id")
	}
	if name == "" {
		observability.Current().IncMerge("invalid")
		return nil, domainerrors.Validation("merge", "target_name is required")
	}
	if ids[0] == 0 {
		observability.Current().IncMerge("not_found")
		return nil, domainerrors.NotFound("location", 0)
	}

	release, err := e.locks.LockAll(ctx, dreamworld.LocationKeys(ids))
	if err != nil {
		return nil, err
	}
	defer release()

	var out Outcome
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		out, txErr = e.merge(dbctx.Context{Ctx: ctx, Tx: tx}, ids, name, strings.TrimSpace(req.UserNote))
		return txErr
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			observability.Current().IncMerge("not_found")
			return nil, err
		}
		observability.Current().IncMerge("error")
		return nil, domainerrors.ClassifyDB("merge", err)
	}
	observability.Current().IncMerge("ok")
	e.log.Info("locations merged",
		"survivor_id", out.Survivor.ID,
		"removed_ids", out.RemovedIDs,
		"frequency", out.Survivor.Frequency,
	)
	for _, o := range e.observers {
		o.LocationsMerged(ctx, out)
	}
	return out.Survivor, nil
}

func (e *Engine) merge(dbc dbctx.Context, ids []uint64, name, note string) (Outcome, error) {
	sources, err := e.repos.Locations.LockByIDs(dbc, ids)
	if err != nil {
		return Outcome{}, err
	}
	if len(sources) != len(ids) {
		found := map[uint64]bool{}
		for _, s := range sources {
			found[s.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return Outcome{}, domainerrors.NotFound("location", id)
			}
		}
	}

	survivor := pickSurvivor(sources)
	total, x, y := centroid(sources)
	removed := make([]uint64, 0, len(sources)-1)
	for _, s := range sources {
		if s.ID != survivor.ID {
			removed = append(removed, s.ID)
		}
	}

	updates := map[string]interface{}{
		"name":      name,
		"frequency": total,
		"x":         x,
		"y":         y,
	}
	if note != "" {
		updates["note"] = note
	}
	if _, err := e.repos.Locations.UpdateFields(dbc, survivor.ID, updates); err != nil {
		return Outcome{}, err
	}
	if _, err := e.repos.Entities.RepointLocation(dbc, removed, survivor.ID); err != nil {
		return Outcome{}, err
	}
	if _, err := e.repos.Transits.RepointLocation(dbc, removed, survivor.ID); err != nil {
		return Outcome{}, err
	}
	if err := e.repos.DreamLocations.Repoint(dbc, removed, survivor.ID); err != nil {
		return Outcome{}, err
	}
	if n, err := e.repos.Locations.DeleteByIDs(dbc, removed); err != nil {
		return Outcome{}, err
	} else if int(n) != len(removed) {
		return Outcome{}, fmt.Errorf("deleted %d of %d merged locations", n, len(removed))
	}

	merged, err := e.repos.Locations.GetByID(dbc, survivor.ID)
	if err != nil {
		return Outcome{}, err
	}
	if err := e.repos.ChangeLogs.Create(dbc, &world.ChangeLog{
		Action:     world.ChangeMerge,
		EntityType: "location",
		EntityID:   survivor.ID,
		OldData:    repoworld.JSON(sources),
		NewData:    repoworld.JSON(merged),
		MergedFrom: repoworld.JSON(ids),
		UserNote:   note,
	}); err != nil {
		return Outcome{}, err
	}
	transits, err := e.repos.Transits.ListByLocation(dbc, survivor.ID)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Survivor: merged, RemovedIDs: removed, Transits: transits}, nil
}

// pickSurvivor returns the most frequent source, the earliest created on ties.
func pickSurvivor(sources []*world.Location) *world.Location {
	best := sources[0]
	for _, s := range sources[1:] {
		if s.Frequency > best.Frequency || (s.Frequency == best.Frequency && s.ID < best.ID) {
			best = s
		}
	}
	return best
}

// centroid is the frequency-weighted mean position, or the plain mean when no
// source has been seen in a dream yet.
func centroid(sources []*world.Location) (int, float64, float64) {
	total := 0
	var wx, wy float64
	for _, s := range sources {
		total += s.Frequency
		wx += float64(s.Frequency) * s.X
		wy += float64(s.Frequency) * s.Y
	}
	if total > 0 {
		return total, world.Clamp(wx / float64(total)), world.Clamp(wy / float64(total))
	}
	var sx, sy float64
	for _, s := range sources {
		sx += s.X
		sy += s.Y
	}
	n := float64(len(sources))
	return 0, world.Clamp(sx / n), world.Clamp(sy / n)
}

func uniqueIDs(in []uint64) []uint64 {
	seen := map[uint64]bool{}
	out := make([]uint64, 0, len(in))
	for _, id := range in {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
