package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Medication struct {
	ID            uuid.UUID           `gorm:"type:text;primaryKey" json:"id"`
	JournalID     uuid.UUID           `gorm:"type:text;not null;index" json:"journal_id"`
	Name          string              `gorm:"not null" json:"name"`
	DefaultAmount decimal.NullDecimal `gorm:"type:text" json:"default_amount"`
	DefaultUnit   *string             `json:"default_unit,omitempty"`
	IsAsNeeded    bool                `gorm:"not null;default:false" json:"is_as_needed"`
	UseCase       *string             `json:"use_case,omitempty"`
	Notes         string              `json:"notes"`
	CreatedAt     time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (medication *Medication) BeforeCreate(*gorm.DB) error {
	medication.ID = ensureID(medication.ID)
	return nil
}

// UseCaseLabel falls back to "General" for medications without a use case.
func (medication Medication) UseCaseLabel() string {
	if medication.UseCase == nil || *medication.UseCase == "" {
		return "General"
	}
	return *medication.UseCase
}
