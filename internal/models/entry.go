package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinSeverity = 0
	MaxSeverity = 10
)

type Entry struct {
	ID             uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	JournalID      uuid.UUID `gorm:"type:text;not null;index" json:"journal_id"`
	Timestamp      time.Time `gorm:"not null;index" json:"timestamp"`
	Severity       int       `gorm:"not null;default:0" json:"severity"`
	Headache       int       `gorm:"not null;default:0" json:"headache"`
	Nausea         int       `gorm:"not null;default:0" json:"nausea"`
	Anxiety        int       `gorm:"not null;default:0" json:"anxiety"`
	IsMenstruating bool      `gorm:"not null;default:false" json:"is_menstruating"`
	Note           *string   `json:"note,omitempty"`
	SentimentLabel *string   `json:"sentiment_label,omitempty"`
	SentimentScore *float64  `json:"sentiment_score,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Entry) TableName() string {
	return "symptom_entries"
}

func (entry *Entry) BeforeCreate(*gorm.DB) error {
	entry.ID = ensureID(entry.ID)
	return nil
}

func (entry *Entry) BeforeSave(*gorm.DB) error {
	entry.Timestamp = entry.Timestamp.UTC()
	return nil
}
