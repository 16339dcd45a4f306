package world

import (
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type TransitRepo interface {
	Create(dbc dbctx.Context, rows []*world.Transit) ([]*world.Transit, error)
	ListByLocation(dbc dbctx.Context, locationID uint64) ([]*world.Transit, error)
	ListAll(dbc dbctx.Context) ([]*world.Transit, error)
	RepointLocation(dbc dbctx.Context, fromIDs []uint64, to uint64) (int64, error)
	Count(dbc dbctx.Context) (int64, error)
}

type transitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransitRepo(db *gorm.DB, baseLog *logger.Logger) TransitRepo {
	return &transitRepo{
		db:  db,
		log: baseLog.With("repo", "TransitRepo"),
	}
}

func (r *transitRepo) Create(dbc dbctx.Context, rows []*world.Transit) ([]*world.Transit, error) {
	if len(rows) == 0 {
		return []*world.Transit{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *transitRepo) ListByLocation(dbc dbctx.Context, locationID uint64) ([]*world.Transit, error) {
	var out []*world.Transit
	if err := dbc.DB(r.db).
		Where("from_location_id = ? OR to_location_id = ?", locationID, locationID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *transitRepo) ListAll(dbc dbctx.Context) ([]*world.Transit, error) {
	var out []*world.Transit
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// RepointLocation moves both endpoints that reference any of fromIDs onto to.
func (r *transitRepo) RepointLocation(dbc dbctx.Context, fromIDs []uint64, to uint64) (int64, error) {
	if len(fromIDs) == 0 {
		return 0, nil
	}
	q := dbc.DB(r.db)
	res := q.Model(&world.Transit{}).Where("from_location_id IN ?", fromIDs).Update("from_location_id", to)
	if res.Error != nil {
		return 0, res.Error
	}
	n := res.RowsAffected
	res = q.Model(&world.Transit{}).Where("to_location_id IN ?", fromIDs).Update("to_location_id", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return n + res.RowsAffected, nil
}

func (r *transitRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&world.Transit{}).Count(&n).Error
	return n, err
}
