package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/data/repos"
	repoworld "github.com/yungbote/dreamworld-backend/internal/data/repos/world"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	domainerrors "github.com/yungbote/dreamworld-backend/internal/pkg/errors"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type CreateEntityInput struct {
	Name        string
	Type        string
	Symbol      string
	Description string
	Confidence  *float64
	LocationID  *uint64
}

type EntityService interface {
	// List returns entities attached to an existing location; a filter naming a missing location is NotFound.
	List(dbc dbctx.Context, locationID *uint64) ([]*world.Entity, error)
	Get(dbc dbctx.Context, id uint64) (*world.Entity, error)
	Create(dbc dbctx.Context, in CreateEntityInput) (*world.Entity, error)
}

type entityService struct {
	db        *gorm.DB
	log       *logger.Logger
	entities  repos.EntityRepo
	locations repos.LocationRepo
	changes   repos.ChangeLogRepo
}

func NewEntityService(db *gorm.DB, baseLog *logger.Logger, set repos.Set) EntityService {
	return &entityService{
		db:        db,
		log:       baseLog.With("service", "EntityService"),
		entities:  set.Entities,
		locations: set.Locations,
		changes:   set.ChangeLogs,
	}
}

func (s *entityService) List(dbc dbctx.Context, locationID *uint64) ([]*world.Entity, error) {
	if locationID != nil {
		loc, err := s.locations.GetByID(dbc, *locationID)
		if err != nil {
			return nil, domainerrors.ClassifyDB("list entities", err)
		}
		if loc == nil {
			return nil, domainerrors.NotFound("location", *locationID)
		}
	}
	out, err := s.entities.ListAttached(dbc, locationID)
	if err != nil {
		return nil, domainerrors.ClassifyDB("list entities", err)
	}
	return out, nil
}

func (s *entityService) Get(dbc dbctx.Context, id uint64) (*world.Entity, error) {
	e, err := s.entities.GetByID(dbc, id)
	if err != nil {
		return nil, domainerrors.ClassifyDB("get entity", err)
	}
	if e == nil {
		return nil, domainerrors.NotFound("entity", id)
	}
	return e, nil
}

func (s *entityService) Create(dbc dbctx.Context, in CreateEntityInput) (*world.Entity, error) {
	const op = "create entity"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domainerrors.Validation(op, "name is required")
	}
	confidence := 1.0
	if in.Confidence != nil {
		if !world.Finite(*in.Confidence) || *in.Confidence < 0 || *in.Confidence > 1 {
			return nil, domainerrors.Validation(op, "confidence must be within [0, 1]")
		}
		confidence = *in.Confidence
	}
	row := &world.Entity{
		Name:        name,
		Type:        strings.TrimSpace(in.Type),
		Symbol:      strings.TrimSpace(in.Symbol),
		Description: strings.TrimSpace(in.Description),
		Confidence:  confidence,
		LocationID:  in.LocationID,
	}
	err := dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if in.LocationID != nil {
			loc, err := s.locations.GetByID(inner, *in.LocationID)
			if err != nil {
				return err
			}
			if loc == nil {
				return domainerrors.NotFound("location", *in.LocationID)
			}
		}
		if _, err := s.entities.Create(inner, []*world.Entity{row}); err != nil {
			return err
		}
		return s.changes.Create(inner, &world.ChangeLog{
			Action:     world.ChangeCreate,
			EntityType: "entity",
			EntityID:   row.ID,
			NewData:    repoworld.JSON(row),
		})
	})
	if err != nil {
		return nil, domainerrors.ClassifyDB(op, err)
	}
	return row, nil
}
