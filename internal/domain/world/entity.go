package world

import "time"

type Entity struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Type        string    `gorm:"column:type" json:"type"`
	Symbol      string    `gorm:"column:symbol" json:"symbol"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	Confidence  float64   `gorm:"column:confidence;not null" json:"confidence"`
	LocationID  *uint64   `gorm:"column:location_id;index" json:"location_id"`
	DreamID     *uint64   `gorm:"column:dream_id;index" json:"dream_id,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (Entity) TableName() string { return "entity" }

func ClampConfidence(c float64) float64 {
	if !Finite(c) {
		return 0
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
