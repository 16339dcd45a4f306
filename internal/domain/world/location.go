package world

import (
	"math"
	"time"
)

type Location struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;not null;index" json:"name"`
	Archetype   Archetype `gorm:"column:archetype;not null;default:other" json:"archetype"`
	Layer       Layer     `gorm:"column:layer;not null;default:PRIMARY;index" json:"layer"`
	X           float64   `gorm:"column:x;not null;default:0" json:"x"`
	Y           float64   `gorm:"column:y;not null;default:0" json:"y"`
	Frequency   int       `gorm:"column:frequency;not null;default:0" json:"frequency"`
	Symbol      string    `gorm:"column:symbol" json:"symbol"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	Color       string    `gorm:"column:color" json:"color"`
	Note        string    `gorm:"column:note;type:text" json:"note,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Location) TableName() string { return "location" }

// Clamp limits a coordinate to [-1, 1].
func Clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// Finite reports whether v can be stored as a coordinate.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
