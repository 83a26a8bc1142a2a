package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Origin string

const (
	OriginScheduled Origin = "scheduled"
	OriginAsNeeded  Origin = "asNeeded"
	OriginManual    Origin = "manual"
)

// ParseOrigin maps unknown values to manual.
func ParseOrigin(raw string) Origin {
	switch Origin(strings.TrimSpace(raw)) {
	case OriginScheduled:
		return OriginScheduled
	case OriginAsNeeded:
		return OriginAsNeeded
	default:
		return OriginManual
	}
}

type Intake struct {
	ID            uuid.UUID           `gorm:"type:text;primaryKey" json:"id"`
	MedicationID  uuid.UUID           `gorm:"type:text;not null;index" json:"medication_id"`
	ScheduleID    *uuid.UUID          `gorm:"type:text;index" json:"schedule_id,omitempty"`
	EntryID       *uuid.UUID          `gorm:"type:text;index" json:"entry_id,omitempty"`
	Amount        decimal.NullDecimal `gorm:"type:text" json:"amount"`
	Unit          *string             `json:"unit,omitempty"`
	Timestamp     time.Time           `gorm:"not null;index" json:"timestamp"`
	ScheduledDate *time.Time          `json:"scheduled_date,omitempty"`
	Origin        Origin              `gorm:"not null;default:manual" json:"origin"`
	Notes         *string             `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (Intake) TableName() string {
	return "medication_intakes"
}

func (intake *Intake) BeforeCreate(*gorm.DB) error {
	intake.ID = ensureID(intake.ID)
	return nil
}

// BeforeSave stores instants in UTC so range queries compare like with like.
func (intake *Intake) BeforeSave(*gorm.DB) error {
	intake.Timestamp = intake.Timestamp.UTC()
	intake.ScheduledDate = utcPointer(intake.ScheduledDate)
	return nil
}

// LinkageConsistent reports whether the schedule reference agrees with the origin.
func (intake Intake) LinkageConsistent() bool {
	return (intake.ScheduleID != nil) == (intake.Origin == OriginScheduled)
}
