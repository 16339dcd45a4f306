package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	repoworld "github.com/yungbote/dreamworld-backend/internal/data/repos/world"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/modules/dreamworld/merge"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
)

type CreateLocationInput struct {
	Name        string
	Archetype   string
	Layer       world.Layer
	X           float64
	Y           float64
	Symbol      string
	Description string
	Color       string
	Frequency   int
}

// LocationPatch carries only the fields a client supplied.
type LocationPatch struct {
	Name        *string
	Archetype   *string
	Layer       *world.Layer
	X           *float64
	Y           *float64
	Symbol      *string
	Description *string
	Color       *string
}

type LocationService interface {
	List(dbc dbctx.Context, layer *world.Layer) ([]*world.Location, error)
	Get(dbc dbctx.Context, id uint64) (*world.Location, error)
	Create(dbc dbctx.Context, in CreateLocationInput) (*world.Location, error)
	Update(dbc dbctx.Context, id uint64, patch LocationPatch) (*world.Location, error)
	Merge(dbc dbctx.Context, req merge.Request) (*world.Location, error)
	Transits(dbc dbctx.Context, id uint64) ([]*world.Transit, error)
}

type locationService struct {
	db     *gorm.DB
	log    *logger.Logger
	repos  repos.Set
	merger *merge.Engine
	events *WorldEvents
}

func NewLocationService(db *gorm.DB, baseLog *logger.Logger, set repos.Set, merger *merge.Engine, events *WorldEvents) LocationService {
	return &locationService{
		db:     db,
		log:    baseLog.With("service", "LocationService"),
		repos:  set,
		merger: merger,
		events: events,
	}
}

func (s *locationService) List(dbc dbctx.Context, layer *world.Layer) ([]*world.Location, error) {
	if layer != nil && !layer.Valid() {
		return nil, domainerrors.Validation("list locations", "layer must be PRIMARY, UPPER or LOWER")
	}
	out, err := s.repos.Locations.List(dbc, layer)
	if err != nil {
		return nil, domainerrors.ClassifyDB("list locations", err)
	}
	return out, nil
}

func (s *locationService) Get(dbc dbctx.Context, id uint64) (*world.Location, error) {
	loc, err := s.repos.Locations.GetByID(dbc, id)
	if err != nil {
		return nil, domainerrors.ClassifyDB("get location", err)
	}
	if loc == nil {
		return nil, domainerrors.NotFound("location", id)
	}
	return loc, nil
}

// coordinate rejects NaN and infinities and clamps everything else into [-1, 1].
func coordinate(op, field string, v float64) (float64, error) {
	if !world.Finite(v) {
		return 0, domainerrors.Validation(op, field+" must be a finite number")
	}
	return world.Clamp(v), nil
}

func (s *locationService) Create(dbc dbctx.Context, in CreateLocationInput) (*world.Location, error) {
	const op = "create location"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domainerrors.Validation(op, "name is required")
	}
	layer := in.Layer
	if layer == "" {
		layer = world.LayerPrimary
	}
	if !layer.Valid() {
		return nil, domainerrors.Validation(op, "layer must be PRIMARY, UPPER or LOWER")
	}
	x, err := coordinate(op, "x", in.X)
	if err != nil {
		return nil, err
	}
	y, err := coordinate(op, "y", in.Y)
	if err != nil {
		return nil, err
	}
	if in.Frequency < 0 {
		return nil, domainerrors.Validation(op, "frequency must not be negative")
	}
	arch := world.ParseArchetype(in.Archetype)
	style := world.StyleFor(arch)
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = style.Color
	} else if !world.ValidColor(color) {
		return nil, domainerrors.Validation(op, "color must look like #rrggbb")
	}
	symbol := strings.TrimSpace(in.Symbol)
	if symbol == "" {
		symbol = style.Symbol
	}

	loc := &world.Location{
		Name:        name,
		Archetype:   arch,
		Layer:       layer,
		X:           x,
		Y:           y,
		Frequency:   in.Frequency,
		Symbol:      symbol,
		Description: strings.TrimSpace(in.Description),
		Color:       color,
	}
	err = dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if _, err := s.repos.Locations.Create(inner, []*world.Location{loc}); err != nil {
			return err
		}
		return s.repos.ChangeLogs.Create(inner, &world.ChangeLog{
			Action:     world.ChangeCreate,
			EntityType: "location",
			EntityID:   loc.ID,
			NewData:    repoworld.JSON(loc),
		})
	})
	if err != nil {
		return nil, domainerrors.ClassifyDB(op, err)
	}
	s.events.LocationSaved(dbc.Ctx, realtime.EventLocationCreated, loc)
	return loc, nil
}

func (s *locationService) Update(dbc dbctx.Context, id uint64, patch LocationPatch) (*world.Location, error) {
	const op = "update location"
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domainerrors.Validation(op, "name must not be empty")
		}
		updates["name"] = name
	}
	if patch.Archetype != nil {
		updates["archetype"] = world.ParseArchetype(*patch.Archetype)
	}
	if patch.Layer != nil {
		if !patch.Layer.Valid() {
			return nil, domainerrors.Validation(op, "layer must be PRIMARY, UPPER or LOWER")
		}
		updates["layer"] = *patch.Layer
	}
	if patch.X != nil {
		x, err := coordinate(op, "x", *patch.X)
		if err != nil {
			return nil, err
		}
		updates["x"] = x
	}
	if patch.Y != nil {
		y, err := coordinate(op, "y", *patch.Y)
		if err != nil {
			return nil, err
		}
		updates["y"] = y
	}
	if patch.Symbol != nil {
		updates["symbol"] = strings.TrimSpace(*patch.Symbol)
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Color != nil {
		color := strings.TrimSpace(*patch.Color)
		if !world.ValidColor(color) {
			return nil, domainerrors.Validation(op, "color must look like #rrggbb")
		}
		updates["color"] = color
	}

	var after *world.Location
	err := dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		before, err := s.repos.Locations.GetByID(inner, id)
		if err != nil {
			return err
		}
		if before == nil {
			return domainerrors.NotFound("location", id)
		}
		if len(updates) == 0 {
			after = before
			return nil
		}
		ok, err := s.repos.Locations.UpdateFields(inner, id, updates)
		if err != nil {
			return err
		}
		if !ok {
			return domainerrors.NotFound("location", id)
		}
		after, err = s.repos.Locations.GetByID(inner, id)
		if err != nil {
			return err
		}
		if after == nil {
			return domainerrors.NotFound("location", id)
		}
		return s.repos.ChangeLogs.Create(inner, &world.ChangeLog{
			Action:     world.ChangeUpdate,
			EntityType: "location",
			EntityID:   id,
			OldData:    repoworld.JSON(before),
			NewData:    repoworld.JSON(updates),
		})
	})
	if err != nil {
		return nil, domainerrors.ClassifyDB(op, err)
	}
	if len(updates) > 0 {
		s.events.LocationSaved(dbc.Ctx, realtime.EventLocationUpdated, after)
	}
	return after, nil
}

func (s *locationService) Merge(dbc dbctx.Context, req merge.Request) (*world.Location, error) {
	return s.merger.Merge(dbc.Ctx, req)
}

func (s *locationService) Transits(dbc dbctx.Context, id uint64) ([]*world.Transit, error) {
	if _, err := s.Get(dbc, id); err != nil {
		return nil, err
	}
	out, err := s.repos.Transits.ListByLocation(dbc, id)
	if err != nil {
		return nil, domainerrors.ClassifyDB("list transits", err)
	}
	return out, nil
}

