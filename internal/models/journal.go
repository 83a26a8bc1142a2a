package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Journal struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	Title     string    `gorm:"not null;default:''" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (journal *Journal) BeforeCreate(*gorm.DB) error {
	journal.ID = ensureID(journal.ID)
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func utcPointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	converted := value.UTC()
	return &converted
}
