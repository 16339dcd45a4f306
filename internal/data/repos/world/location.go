package world

import (
	"hash/fnv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/dreamworld-backend/internal/data/db"
	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type LocationRepo interface {
	Create(dbc dbctx.Context, rows []*world.Location) ([]*world.Location, error)
	GetByID(dbc dbctx.Context, id uint64) (*world.Location, error)
	GetByIDs(dbc dbctx.Context, ids []uint64) ([]*world.Location, error)
	// LockByIDs loads the rows and, on Postgres, holds row locks on them until the transaction ends.
	LockByIDs(dbc dbctx.Context, ids []uint64) ([]*world.Location, error)
	List(dbc dbctx.Context, layer *world.Layer) ([]*world.Location, error)
	IncrementFrequency(dbc dbctx.Context, id uint64, by int) (bool, error)
	UpdateFields(dbc dbctx.Context, id uint64, updates map[string]interface{}) (bool, error)
	DeleteByIDs(dbc dbctx.Context, ids []uint64) (int64, error)
	Count(dbc dbctx.Context) (int64, error)
	CountByLayer(dbc dbctx.Context) (map[world.Layer]int64, error)
	MostFrequent(dbc dbctx.Context) (*world.Location, error)
	// AdvisoryLock takes a transaction-scoped Postgres advisory lock; elsewhere it is a no-op.
	AdvisoryLock(dbc dbctx.Context, key string) error
}

type locationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLocationRepo(db *gorm.DB, baseLog *logger.Logger) LocationRepo {
	return &locationRepo{
		db:  db,
		log: baseLog.With("repo", "LocationRepo"),
	}
}

func (r *locationRepo) Create(dbc dbctx.Context, rows []*world.Location) ([]*world.Location, error) {
	if len(rows) == 0 {
		return []*world.Location{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *locationRepo) GetByID(dbc dbctx.Context, id uint64) (*world.Location, error) {
	var loc world.Location
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&loc).Error; err != nil {
		return nil, err
	}
	if loc.ID == 0 {
		return nil, nil
	}
	return &loc, nil
}

func (r *locationRepo) GetByIDs(dbc dbctx.Context, ids []uint64) ([]*world.Location, error) {
	var out []*world.Location
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *locationRepo) LockByIDs(dbc dbctx.Context, ids []uint64) ([]*world.Location, error) {
	var out []*world.Location
	if len(ids) == 0 {
		return out, nil
	}
	q := dbc.DB(r.db)
	if db.IsPostgres(q) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *locationRepo) List(dbc dbctx.Context, layer *world.Layer) ([]*world.Location, error) {
	var out []*world.Location
	q := dbc.DB(r.db)
	if layer != nil {
		q = q.Where("layer = ?", *layer)
	}
	if err := q.Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *locationRepo) IncrementFrequency(dbc dbctx.Context, id uint64, by int) (bool, error) {
	res := dbc.DB(r.db).
		Model(&world.Location{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"frequency":  gorm.Expr("frequency + ?", by),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *locationRepo) UpdateFields(dbc dbctx.Context, id uint64, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := dbc.DB(r.db).
		Model(&world.Location{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *locationRepo) DeleteByIDs(dbc dbctx.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Where("id IN ?", ids).Delete(&world.Location{})
	return res.RowsAffected, res.Error
}

func (r *locationRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&world.Location{}).Count(&n).Error
	return n, err
}

func (r *locationRepo) CountByLayer(dbc dbctx.Context) (map[world.Layer]int64, error) {
	var rows []struct {
		Layer string
		Count int64
	}
	if err := dbc.DB(r.db).
		Model(&world.Location{}).
		Select("layer, count(*) as count").
		Group("layer").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := map[world.Layer]int64{}
	for _, l := range world.AllLayers {
		out[l] = 0
	}
	for _, row := range rows {
		out[world.Layer(row.Layer)] = row.Count
	}
	return out, nil
}

func (r *locationRepo) MostFrequent(dbc dbctx.Context) (*world.Location, error) {
	var loc world.Location
	if err := dbc.DB(r.db).
		Order("frequency DESC").
		Order("id ASC").
		Limit(1).
		Find(&loc).Error; err != nil {
		return nil, err
	}
	if loc.ID == 0 {
		return nil, nil
	}
	return &loc, nil
}

func (r *locationRepo) AdvisoryLock(dbc dbctx.Context, key string) error {
	q := dbc.DB(r.db)
	if !db.IsPostgres(q) {
		return nil
	}
	return q.Exec("SELECT pg_advisory_xact_lock(?)", advisoryKey(key)).Error
}

func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("dreamworld:" + key))
	return int64(h.Sum64())
}
