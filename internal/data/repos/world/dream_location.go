package world

import (
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type DreamLocationRepo interface {
	Create(dbc dbctx.Context, rows []*world.DreamLocation) error
	ListByDream(dbc dbctx.Context, dreamID uint64) ([]*world.DreamLocation, error)
	ListAll(dbc dbctx.Context) ([]*world.DreamLocation, error)
	// Repoint moves links from fromIDs onto to, keeping one link per dream at its earliest order.
	Repoint(dbc dbctx.Context, fromIDs []uint64, to uint64) error
}

type dreamLocationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDreamLocationRepo(db *gorm.DB, baseLog *logger.Logger) DreamLocationRepo {
	return &dreamLocationRepo{
		db:  db,
		log: baseLog.With("repo", "DreamLocationRepo"),
	}
}

func (r *dreamLocationRepo) Create(dbc dbctx.Context, rows []*world.DreamLocation) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *dreamLocationRepo) ListByDream(dbc dbctx.Context, dreamID uint64) ([]*world.DreamLocation, error) {
	var out []*world.DreamLocation
	if err := dbc.DB(r.db).
		Where("dream_id = ?", dreamID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dreamLocationRepo) ListAll(dbc dbctx.Context) ([]*world.DreamLocation, error) {
	var out []*world.DreamLocation
	if err := dbc.DB(r.db).
		Order("dream_id ASC").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dreamLocationRepo) Repoint(dbc dbctx.Context, fromIDs []uint64, to uint64) error {
	if len(fromIDs) == 0 {
		return nil
	}
	all := append([]uint64{to}, fromIDs...)
	q := dbc.DB(r.db)
	var rows []*world.DreamLocation
	if err := q.Where("location_id IN ?", all).Find(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	earliest := map[uint64]int{}
	for _, row := range rows {
		if cur, ok := earliest[row.DreamID]; !ok || row.Order < cur {
			earliest[row.DreamID] = row.Order
		}
	}
	if err := q.Where("location_id IN ?", all).Delete(&world.DreamLocation{}).Error; err != nil {
		return err
	}
	merged := make([]*world.DreamLocation, 0, len(earliest))
	for dreamID, order := range earliest {
		merged = append(merged, &world.DreamLocation{DreamID: dreamID, LocationID: to, Order: order})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].DreamID < merged[j].DreamID })
	return q.Create(&merged).Error
}
