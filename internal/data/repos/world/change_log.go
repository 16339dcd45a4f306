package world

import (
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/dreamworld-backend/internal/domain/world"
	"github.com/yungbote/dreamworld-backend/internal/pkg/dbctx"
	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
)

type ChangeLogRepo interface {
	Create(dbc dbctx.Context, row *world.ChangeLog) error
	ListByEntity(dbc dbctx.Context, entityType string, entityID uint64) ([]*world.ChangeLog, error)
}

type changeLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChangeLogRepo(db *gorm.DB, baseLog *logger.Logger) ChangeLogRepo {
	return &changeLogRepo{
		db:  db,
		log: baseLog.With("repo", "ChangeLogRepo"),
	}
}

func (r *changeLogRepo) Create(dbc dbctx.Context, row *world.ChangeLog) error {
	if row == nil {
		return nil
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *changeLogRepo) ListByEntity(dbc dbctx.Context, entityType string, entityID uint64) ([]*world.ChangeLog, error) {
	var out []*world.ChangeLog
	if err := dbc.DB(r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// JSON encodes v for a change-log column; nil stays SQL NULL.
func JSON(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
