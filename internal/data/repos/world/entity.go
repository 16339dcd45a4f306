package world

import (
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type EntityRepo interface {
	Create(dbc dbctx.Context, rows []*world.Entity) ([]*world.Entity, error)
	GetByID(dbc dbctx.Context, id uint64) (*world.Entity, error)
	// ListAttached returns entities whose location still exists, optionally for one location.
	ListAttached(dbc dbctx.Context, locationID *uint64) ([]*world.Entity, error)
	ListAll(dbc dbctx.Context) ([]*world.Entity, error)
	RepointLocation(dbc dbctx.Context, fromIDs []uint64, to uint64) (int64, error)
	Count(dbc dbctx.Context) (int64, error)
}

type entityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEntityRepo(db *gorm.DB, baseLog *logger.Logger) EntityRepo {
	return &entityRepo{
		db:  db,
		log: baseLog.With("repo", "EntityRepo"),
	}
}

func (r *entityRepo) Create(dbc dbctx.Context, rows []*world.Entity) ([]*world.Entity, error) {
	if len(rows) == 0 {
		return []*world.Entity{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *entityRepo) GetByID(dbc dbctx.Context, id uint64) (*world.Entity, error) {
	var e world.Entity
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&e).Error; err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, nil
	}
	return &e, nil
}

func (r *entityRepo) ListAttached(dbc dbctx.Context, locationID *uint64) ([]*world.Entity, error) {
	var out []*world.Entity
	q := dbc.DB(r.db).
		Model(&world.Entity{}).
		Select("entity.*").
		Joins("JOIN location ON location.id = entity.location_id")
	if locationID != nil {
		q = q.Where("entity.location_id = ?", *locationID)
	}
	if err := q.Order("entity.id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityRepo) ListAll(dbc dbctx.Context) ([]*world.Entity, error) {
	var out []*world.Entity
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *entityRepo) RepointLocation(dbc dbctx.Context, fromIDs []uint64, to uint64) (int64, error) {
	if len(fromIDs) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).
		Model(&world.Entity{}).
		Where("location_id IN ?", fromIDs).
		Update("location_id", to)
	return res.RowsAffected, res.Error
}

func (r *entityRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&world.Entity{}).Count(&n).Error
	return n, err
}
