package dreams

import "time"

const DefaultLanguage = "en"

// Dream is a journal entry. Only Processed changes after creation.
type Dream struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Date      time.Time `gorm:"column:date;not null;index" json:"date"`
	Cycle     int       `gorm:"column:cycle;not null;default:1" json:"cycle"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	Language  string    `gorm:"column:language;size:5;not null;default:en" json:"language"`
	Processed bool      `gorm:"column:processed;not null;default:false;index" json:"processed"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Dream) TableName() string { return "dream" }
