package graphwrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/resolution"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/keylock"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

var (
	// ErrAlreadyProcessed means the dream was flipped by an earlier delivery; nothing was written.
	ErrAlreadyProcessed = errors.New("dream already processed")
	// ErrStaleSnapshot means a location the plan relies on changed; re-resolve and retry.
	ErrStaleSnapshot = errors.New("stale location snapshot")
)

type Result struct {
	LocationsTouched int `json:"locations_touched"`
	LocationsCreated int `json:"locations_created"`
	LocationsReused  int `json:"locations_reused"`
	EntitiesCreated  int `json:"entities_created"`
	TransitsCreated  int `json:"transits_created"`
	TransitsSkipped  int `json:"transits_skipped"`

	Locations []*world.Location `json:"-"`
	Transits  []*world.Transit  `json:"-"`
}

type Writer struct {
	db    *gorm.DB
	repos repos.Set
	locks *keylock.Locker
	log   *logger.Logger
}

func NewWriter(db *gorm.DB, set repos.Set, locks *keylock.Locker, baseLog *logger.Logger) *Writer {
	return &Writer{
		db:    db,
		repos: set,
		locks: locks,
		log:   baseLog.With("component", "GraphWriter"),
	}
}

// Snapshot loads every persisted location for resolution.
func (w *Writer) Snapshot(ctx context.Context) (resolution.Snapshot, error) {
	locs, err := w.repos.Locations.List(dbctx.Of(ctx), nil)
	if err != nil {
		return resolution.Snapshot{}, domainerrors.ClassifyDB("graphwrite.snapshot", err)
	}
	return resolution.NewSnapshot(locs), nil
}

// Apply writes one dream's plan and flips the dream to processed in a single
// transaction. Plans that create locations are re-resolved under the catalog lock.
func (w *Writer) Apply(ctx context.Context, dreamID uint64, plan resolution.Plan) (Result, error) {
	if plan.HasCreates() {
		release, err := w.locks.Lock(ctx, dreamworld.CatalogKey)
		if err != nil {
			return Result{}, err
		}
		defer release()
		snap, err := w.Snapshot(ctx)
		if err != nil {
			return Result{}, err
		}
		plan = resolution.ResolveAll(plan.Candidates, snap)
	}

	reused := plan.ReusedIDs()
	release, err := w.locks.LockAll(ctx, dreamworld.LocationKeys(reused))
	if err != nil {
		return Result{}, err
	}
	defer release()

	var res Result
	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		var txErr error
		res, txErr = w.apply(dbc, dreamID, plan, reused)
		return txErr
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) || errors.Is(err, ErrStaleSnapshot) {
			return Result{}, err
		}
		return Result{}, domainerrors.ClassifyDB("graphwrite.apply", err)
	}
	w.log.Debug("dream written",
		"dream_id", dreamID,
		"locations_touched", res.LocationsTouched,
		"locations_created", res.LocationsCreated,
		"entities_created", res.EntitiesCreated,
		"transits_created", res.TransitsCreated,
		"transits_skipped", res.TransitsSkipped,
	)
	return res, nil
}

func (w *Writer) apply(dbc dbctx.Context, dreamID uint64, plan resolution.Plan, reused []uint64) (Result, error) {
	var res Result

	if plan.HasCreates() {
		// Other processes on the same Postgres serialize here; re-check the plan against what they committed.
		if err := w.repos.Locations.AdvisoryLock(dbc, dreamworld.CatalogKey); err != nil {
			return res, err
		}
		current, err := w.repos.Locations.List(dbc, nil)
		if err != nil {
			return res, err
		}
		if !plan.Equivalent(resolution.ResolveAll(plan.Candidates, resolution.NewSnapshot(current))) {
			return res, ErrStaleSnapshot
		}
	}
	if _, err := w.repos.Locations.LockByIDs(dbc, reused); err != nil {
		return res, err
	}

	flipped, err := w.repos.Dreams.MarkProcessed(dbc, dreamID)
	if err != nil {
		return res, err
	}
	if !flipped {
		return res, ErrAlreadyProcessed
	}

	for _, id := range reused {
		ok, err := w.repos.Locations.IncrementFrequency(dbc, id, 1)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, fmt.Errorf("location %d: %w", id, ErrStaleSnapshot)
		}
	}

	created := make([]*world.Location, 0, len(plan.Creates))
	for _, p := range plan.Creates {
		created = append(created, &world.Location{
			Name:        strings.TrimSpace(p.Name),
			Archetype:   p.Archetype,
			Layer:       p.Layer,
			X:           world.Clamp(p.X),
			Y:           world.Clamp(p.Y),
			Frequency:   1,
			Symbol:      p.Symbol,
			Description: p.Description,
			Color:       p.Color,
		})
	}
	if _, err := w.repos.Locations.Create(dbc, created); err != nil {
		return res, err
	}

	idOf := func(t resolution.Target) uint64 {
		if t.Existing() {
			return t.ID
		}
		if t.Pending >= 0 && t.Pending < len(created) {
			return created[t.Pending].ID
		}
		return 0
	}
	resolveName := func(name string) (uint64, bool) {
		t, ok := plan.TargetFor(name)
		if !ok {
			return 0, false
		}
		id := idOf(t)
		return id, id > 0
	}

	targets := plan.Targets()
	touched := make([]uint64, 0, len(targets))
	links := make([]*world.DreamLocation, 0, len(targets))
	for i, t := range targets {
		id := idOf(t)
		touched = append(touched, id)
		links = append(links, &world.DreamLocation{DreamID: dreamID, LocationID: id, Order: i})
	}
	if err := w.repos.DreamLocations.Create(dbc, links); err != nil {
		return res, err
	}

	dreamRef := dreamID
	entities := make([]*world.Entity, 0, len(plan.Entities))
	for _, e := range plan.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		row := &world.Entity{
			Name:        name,
			Type:        e.Type,
			Symbol:      e.Symbol,
			Description: e.Description,
			Confidence:  world.ClampConfidence(e.Confidence),
			DreamID:     &dreamRef,
		}
		if id, ok := resolveName(e.LocationName); ok {
			locID := id
			row.LocationID = &locID
		}
		entities = append(entities, row)
	}
	if _, err := w.repos.Entities.Create(dbc, entities); err != nil {
		return res, err
	}

	transits := make([]*world.Transit, 0, len(plan.Transits))
	for _, t := range plan.Transits {
		from, okFrom := resolveName(t.FromName)
		to, okTo := resolveName(t.ToName)
		if !okFrom || !okTo {
			res.TransitsSkipped++
			continue
		}
		transits = append(transits, &world.Transit{
			DreamID:        &dreamRef,
			FromLocationID: from,
			ToLocationID:   to,
			Trigger:        strings.TrimSpace(t.Trigger),
			Confidence:     world.ClampConfidence(t.Confidence),
		})
	}
	if _, err := w.repos.Transits.Create(dbc, transits); err != nil {
		return res, err
	}

	locs, err := w.repos.Locations.GetByIDs(dbc, touched)
	if err != nil {
		return res, err
	}

	res.LocationsTouched = len(touched)
	res.LocationsCreated = len(created)
	res.LocationsReused = len(reused)
	res.EntitiesCreated = len(entities)
	res.TransitsCreated = len(transits)
	res.Locations = locs
	res.Transits = transits
	return res, nil
}
