package world

import "time"

type Transit struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	DreamID        *uint64   `gorm:"column:dream_id;index" json:"dream_id,omitempty"`
	FromLocationID uint64    `gorm:"column:from_location_id;not null;index" json:"from_location_id"`
	ToLocationID   uint64    `gorm:"column:to_location_id;not null;index" json:"to_location_id"`
	Trigger        string    `gorm:"column:trigger" json:"trigger,omitempty"`
	Confidence     float64   `gorm:"column:confidence;not null" json:"confidence"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (Transit) TableName() string { return "transit" }

// DreamLocation records that a dream visited a location, in order of first appearance.
type DreamLocation struct {
	DreamID    uint64 `gorm:"primaryKey;autoIncrement:false" json:"dream_id"`
	LocationID uint64 `gorm:"primaryKey;autoIncrement:false;index" json:"location_id"`
	Order      int    `gorm:"column:order;not null;default:0" json:"order"`
}

func (DreamLocation) TableName() string { return "dream_location" }
