package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Cadence string

const (
	CadenceDaily    Cadence = "daily"
	CadenceWeekly   Cadence = "weekly"
	CadenceInterval Cadence = "interval"
	CadenceCustom   Cadence = "custom"
)

func ParseCadence(raw string) (Cadence, error) {
	switch Cadence(strings.ToLower(strings.TrimSpace(raw))) {
	case CadenceDaily, "":
		return CadenceDaily, nil
	case CadenceWeekly:
		return CadenceWeekly, nil
	case CadenceInterval:
		return CadenceInterval, nil
	case CadenceCustom:
		return CadenceCustom, nil
	default:
		return "", fmt.Errorf("unknown cadence %q", raw)
	}
}

// UsesWeekdays reports whether the cadence is restricted by a weekday set.
func (cadence Cadence) UsesWeekdays() bool {
	return cadence == CadenceWeekly || cadence == CadenceCustom
}

type Schedule struct {
	ID           uuid.UUID           `gorm:"type:text;primaryKey" json:"id"`
	MedicationID uuid.UUID           `gorm:"type:text;not null;index" json:"medication_id"`
	Label        *string             `json:"label,omitempty"`
	Amount       decimal.NullDecimal `gorm:"type:text" json:"amount"`
	Unit         *string             `json:"unit,omitempty"`
	Cadence      Cadence             `gorm:"not null;default:daily" json:"cadence"`
	Interval     int                 `gorm:"not null;default:1" json:"interval"`
	DaysOfWeek   WeekdaySet          `gorm:"not null;default:0" json:"days_of_week"`
	Hour         int                 `gorm:"not null" json:"hour"`
	Minute       int                 `gorm:"not null" json:"minute"`
	TimeZone     string              `json:"time_zone"`
	StartDate    *time.Time          `json:"start_date,omitempty"`
	IsActive     bool                `gorm:"not null" json:"is_active"`
	SortOrder    int                 `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func (Schedule) TableName() string {
	return "medication_schedules"
}

func (schedule *Schedule) BeforeCreate(*gorm.DB) error {
	schedule.ID = ensureID(schedule.ID)
	return nil
}

func (schedule *Schedule) BeforeSave(*gorm.DB) error {
	schedule.StartDate = utcPointer(schedule.StartDate)
	return nil
}

// EffectiveInterval clamps stored intervals below one to one.
func (schedule Schedule) EffectiveInterval() int {
	if schedule.Interval < 1 {
		return 1
	}
	return schedule.Interval
}

func (schedule Schedule) LabelText() string {
	if schedule.Label == nil {
		return ""
	}
	return *schedule.Label
}
