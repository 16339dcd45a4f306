package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/keylock"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

const ExportVersion = "1.0"

type WorldStats struct {
	TotalDreams          int64                 `json:"total_dreams"`
	TotalLocations       int64                 `json:"total_locations"`
	TotalEntities        int64                 `json:"total_entities"`
	TotalTransits        int64                 `json:"total_transits"`
	MostFrequentLocation *world.Location       `json:"most_frequent_location"`
	LatestDream          *dreams.Dream         `json:"latest_dream"`
	LocationsByLayer     map[world.Layer]int64 `json:"locations_by_layer"`
}

type WorldExport struct {
	ExportDate     time.Time              `json:"export_date"`
	Version        string                 `json:"version"`
	Dreams         []*dreams.Dream        `json:"dreams"`
	Locations      []*world.Location      `json:"locations"`
	Entities       []*world.Entity        `json:"entities"`
	Transits       []*world.Transit       `json:"transits"`
	DreamLocations []*world.DreamLocation `json:"dream_locations,omitempty"`
}

type ImportSummary struct {
	Dreams         int `json:"dreams"`
	Locations      int `json:"locations"`
	Entities       int `json:"entities"`
	Transits       int `json:"transits"`
	DreamLocations int `json:"dream_locations"`
	Skipped        int `json:"skipped"`
}

type WorldService interface {
	Stats(dbc dbctx.Context) (*WorldStats, error)
	Export(ctx context.Context) (*WorldExport, error)
	// Import appends an export to the current world under freshly assigned ids.
	Import(ctx context.Context, in *WorldExport) (*ImportSummary, error)
}

type worldService struct {
	db    *gorm.DB
	log   *logger.Logger
	repos repos.Set
	locks *keylock.Locker
}

func NewWorldService(db *gorm.DB, baseLog *logger.Logger, set repos.Set, locks *keylock.Locker) WorldService {
	return &worldService{
		db:    db,
		log:   baseLog.With("service", "WorldService"),
		repos: set,
		locks: locks,
	}
}

func (s *worldService) Stats(dbc dbctx.Context) (*WorldStats, error) {
	out := &WorldStats{}
	var err error
	if out.TotalDreams, err = s.repos.Dreams.Count(dbc); err != nil {
		return nil, domainerrors.ClassifyDB("stats", err)
	}
	if out.TotalLocations, err = s.repos.Locations.Count(dbc); err != nil {
		return nil, domainerrors.ClassifyDB("stats", err)
	}
	if out.TotalEntities, err = s.repos.Entities.Count(dbc); err != nil {
		return nil, domainerrors.ClassifyDB("stats", err)
	}
	if out.TotalTransits, err = s.repos.Transits.Count(dbc); err != nil {
		return nil, domainerrors.ClassifyDB("stats", err)
	}
	if out.MostFrequentLocation, err = s.repos.Locations.MostFrequent(dbc); err != nil {
		return nil, domainerrors.ClassifyDB("stats", err)
	}
	if out.LatestDream, err = s.repos.Dreams.Latest(dbc); err != nil {
		return nil, domainerrors.ClassifyDB("stats", err)
	}
	if out.LocationsByLayer, err = s.repos.Locations.CountByLayer(dbc); err != nil {
		return nil, domainerrors.ClassifyDB("stats", err)
	}
	return out, nil
}

func (s *worldService) Export(ctx context.Context) (*WorldExport, error) {
	out := &WorldExport{ExportDate: time.Now().UTC(), Version: ExportVersion}
	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Of(gctx)
	g.Go(func() (err error) {
		out.Dreams, err = s.repos.Dreams.ListAll(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.Locations, err = s.repos.Locations.List(dbc, nil)
		return err
	})
	g.Go(func() (err error) {
		out.Entities, err = s.repos.Entities.ListAll(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.Transits, err = s.repos.Transits.ListAll(dbc)
		return err
	})
	g.Go(func() (err error) {
		out.DreamLocations, err = s.repos.DreamLocations.ListAll(dbc)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domainerrors.ClassifyDB("export", err)
	}
	return out, nil
}

func (s *worldService) Import(ctx context.Context, in *WorldExport) (*ImportSummary, error) {
	const op = "import"
	if in == nil {
		return nil, domainerrors.Validation(op, "export body is required")
	}
	for _, l := range in.Locations {
		if l == nil || l.Name == "" {
			return nil, domainerrors.Validation(op, "every location needs a name")
		}
		if !l.Layer.Valid() {
			return nil, domainerrors.Validation(op, "location "+l.Name+" has an invalid layer")
		}
		if !world.Finite(l.X) || !world.Finite(l.Y) || l.Frequency < 0 {
			return nil, domainerrors.Validation(op, "location "+l.Name+" has an invalid position or frequency")
		}
	}
	for _, d := range in.Dreams {
		if d == nil || d.Content == "" {
			return nil, domainerrors.Validation(op, "every dream needs content")
		}
	}

	unlock, err := s.locks.Lock(ctx, dreamworld.CatalogKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	sum := &ImportSummary{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.repos.Locations.AdvisoryLock(dbc, dreamworld.CatalogKey); err != nil {
			return err
		}

		dreamIDs := map[uint64]uint64{}
		for _, d := range in.Dreams {
			row := &dreams.Dream{
				Date:      d.Date.UTC(),
				Cycle:     max(d.Cycle, 1),
				Content:   d.Content,
				Language:  d.Language,
				Processed: d.Processed,
			}
			if row.Language == "" {
				row.Language = dreams.DefaultLanguage
			}
			if _, err := s.repos.Dreams.Create(dbc, []*dreams.Dream{row}); err != nil {
				return err
			}
			dreamIDs[d.ID] = row.ID
			sum.Dreams++
		}

		locIDs := map[uint64]uint64{}
		for _, l := range in.Locations {
			row := &world.Location{
				Name:        l.Name,
				Archetype:   world.ParseArchetype(string(l.Archetype)),
				Layer:       l.Layer,
				X:           world.Clamp(l.X),
				Y:           world.Clamp(l.Y),
				Frequency:   l.Frequency,
				Symbol:      l.Symbol,
				Description: l.Description,
				Color:       l.Color,
				Note:        l.Note,
			}
			if row.Color == "" {
				row.Color = world.StyleFor(row.Archetype).Color
			}
			if _, err := s.repos.Locations.Create(dbc, []*world.Location{row}); err != nil {
				return err
			}
			locIDs[l.ID] = row.ID
			sum.Locations++
		}

		remap := func(ids map[uint64]uint64, old *uint64) *uint64 {
			if old == nil {
				return nil
			}
			if id, ok := ids[*old]; ok {
				return &id
			}
			return nil
		}

		for _, e := range in.Entities {
			if e == nil {
				continue
			}
			row := &world.Entity{
				Name:        e.Name,
				Type:        e.Type,
				Symbol:      e.Symbol,
				Description: e.Description,
				Confidence:  world.ClampConfidence(e.Confidence),
				LocationID:  remap(locIDs, e.LocationID),
				DreamID:     remap(dreamIDs, e.DreamID),
			}
			if _, err := s.repos.Entities.Create(dbc, []*world.Entity{row}); err != nil {
				return err
			}
			sum.Entities++
		}

		for _, t := range in.Transits {
			if t == nil {
				continue
			}
			from, okFrom := locIDs[t.FromLocationID]
			to, okTo := locIDs[t.ToLocationID]
			if !okFrom || !okTo {
				sum.Skipped++
				continue
			}
			row := &world.Transit{
				DreamID:        remap(dreamIDs, t.DreamID),
				FromLocationID: from,
				ToLocationID:   to,
				Trigger:        t.Trigger,
				Confidence:     world.ClampConfidence(t.Confidence),
			}
			if _, err := s.repos.Transits.Create(dbc, []*world.Transit{row}); err != nil {
				return err
			}
			sum.Transits++
		}

		links := make([]*world.DreamLocation, 0, len(in.DreamLocations))
		for _, dl := range in.DreamLocations {
			if dl == nil {
				continue
			}
			d, okD := dreamIDs[dl.DreamID]
			l, okL := locIDs[dl.LocationID]
			if !okD || !okL {
				sum.Skipped++
				continue
			}
			links = append(links, &world.DreamLocation{DreamID: d, LocationID: l, Order: dl.Order})
		}
		if err := s.repos.DreamLocations.Create(dbc, links); err != nil {
			return err
		}
		sum.DreamLocations = len(links)
		return nil
	})
	if err != nil {
		return nil, domainerrors.ClassifyDB(op, err)
	}
	s.log.Info("world imported",
		"dreams", sum.Dreams,
		"locations", sum.Locations,
		"entities", sum.Entities,
		"transits", sum.Transits,
		"skipped", sum.Skipped,
	)
	return sum, nil
}
