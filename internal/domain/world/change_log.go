package world

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ChangeCreate = "create"
	ChangeUpdate = "update"
	ChangeMerge  = "merge"
)

type ChangeLog struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Action     string         `gorm:"column:action;not null;index" json:"action"`
	EntityType string         `gorm:"column:entity_type;not null" json:"entity_type"`
	EntityID   uint64         `gorm:"column:entity_id;not null;index" json:"entity_id"`
	OldData    datatypes.JSON `gorm:"column:old_data" json:"old_data,omitempty"`
	NewData    datatypes.JSON `gorm:"column:new_data" json:"new_data,omitempty"`
	MergedFrom datatypes.JSON `gorm:"column:merged_from" json:"merged_from,omitempty"`
	UserNote   string         `gorm:"column:user_note;type:text" json:"user_note,omitempty"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (ChangeLog) TableName() string { return "change_log" }
