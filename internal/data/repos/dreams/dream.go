package dreams

import (
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/domain/dreams"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type DreamRepo interface {
	Create(dbc dbctx.Context, rows []*dreams.Dream) ([]*dreams.Dream, error)
	GetByID(dbc dbctx.Context, id uint64) (*dreams.Dream, error)
	List(dbc dbctx.Context, skip, limit int) ([]*dreams.Dream, error)
	ListAll(dbc dbctx.Context) ([]*dreams.Dream, error)
	ListUnprocessed(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*dreams.Dream, error)
	Latest(dbc dbctx.Context) (*dreams.Dream, error)
	Count(dbc dbctx.Context) (int64, error)
	// MarkProcessed flips processed from false to true and reports whether this call did it.
	MarkProcessed(dbc dbctx.Context, id uint64) (bool, error)
}

type dreamRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDreamRepo(db *gorm.DB, baseLog *logger.Logger) DreamRepo {
	return &dreamRepo{
		db:  db,
		log: baseLog.With("repo", "DreamRepo"),
	}
}

func (r *dreamRepo) Create(dbc dbctx.Context, rows []*dreams.Dream) ([]*dreams.Dream, error) {
	if len(rows) == 0 {
		return []*dreams.Dream{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *dreamRepo) GetByID(dbc dbctx.Context, id uint64) (*dreams.Dream, error) {
	var d dreams.Dream
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&d).Error; err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (r *dreamRepo) List(dbc dbctx.Context, skip, limit int) ([]*dreams.Dream, error) {
	var out []*dreams.Dream
	q := dbc.DB(r.db).Order("date DESC").Order("cycle DESC").Order("id DESC")
	if skip > 0 {
		q = q.Offset(skip)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dreamRepo) ListAll(dbc dbctx.Context) ([]*dreams.Dream, error) {
	var out []*dreams.Dream
	if err := dbc.DB(r.db).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dreamRepo) ListUnprocessed(dbc dbctx.Context, createdBefore time.Time, limit int) ([]*dreams.Dream, error) {
	var out []*dreams.Dream
	q := dbc.DB(r.db).
		Where("processed = ? AND created_at < ?", false, createdBefore).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *dreamRepo) Latest(dbc dbctx.Context) (*dreams.Dream, error) {
	rows, err := r.List(dbc, 0, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *dreamRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&dreams.Dream{}).Count(&n).Error
	return n, err
}

func (r *dreamRepo) MarkProcessed(dbc dbctx.Context, id uint64) (bool, error) {
	res := dbc.DB(r.db).
		Model(&dreams.Dream{}).
		Where("id = ? AND processed = ?", id, false).
		Updates(map[string]interface{}{
			"processed":  true,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
