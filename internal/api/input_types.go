package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/services"
)

type journalPayload struct {
	Title string `json:"title"`
}

type medicationPayload struct {
	Name          string           `json:"name"`
	DefaultAmount *decimal.Decimal `json:"default_amount"`
	DefaultUnit   *string          `json:"default_unit"`
	IsAsNeeded    bool             `json:"is_as_needed"`
	UseCase       *string          `json:"use_case"`
	Notes         string           `json:"notes"`
}

func (payload medicationPayload) input() services.MedicationInput {
	return services.MedicationInput{
		Name:          payload.Name,
		DefaultAmount: payload.DefaultAmount,
		DefaultUnit:   payload.DefaultUnit,
		IsAsNeeded:    payload.IsAsNeeded,
		UseCase:       payload.UseCase,
		Notes:         payload.Notes,
	}
}

type schedulePayload struct {
	Label     *string          `json:"label"`
	Amount    *decimal.Decimal `json:"amount"`
	Unit      *string          `json:"unit"`
	Cadence   string           `json:"cadence"`
	Interval  int              `json:"interval"`
	Weekdays  []int            `json:"weekdays"`
	Hour      int              `json:"hour"`
	Minute    int              `json:"minute"`
	TimeZone  string           `json:"time_zone"`
	StartDate *time.Time       `json:"start_date"`
	IsActive  *bool            `json:"is_active"`
	SortOrder *int             `json:"sort_order"`
}

func (payload schedulePayload) input() services.ScheduleInput {
	return services.ScheduleInput{
		Label:     payload.Label,
		Amount:    payload.Amount,
		Unit:      payload.Unit,
		Cadence:   payload.Cadence,
		Interval:  payload.Interval,
		Weekdays:  payload.Weekdays,
		Hour:      payload.Hour,
		Minute:    payload.Minute,
		TimeZone:  payload.TimeZone,
		StartDate: payload.StartDate,
		IsActive:  payload.IsActive,
		SortOrder: payload.SortOrder,
	}
}

type intakePayload struct {
	Amount    *decimal.Decimal `json:"amount"`
	Unit      *string          `json:"unit"`
	Timestamp *time.Time       `json:"timestamp"`
	Notes     *string          `json:"notes"`
}

type intakeEditPayload struct {
	Amount      *decimal.Decimal `json:"amount"`
	ClearAmount bool             `json:"clear_amount"`
	Unit        *string          `json:"unit"`
	Timestamp   *time.Time       `json:"timestamp"`
	Notes       *string          `json:"notes"`
}

func (payload intakeEditPayload) edit() services.IntakeEdit {
	return services.IntakeEdit{
		Amount:      payload.Amount,
		ClearAmount: payload.ClearAmount,
		Unit:        payload.Unit,
		Timestamp:   payload.Timestamp,
		Notes:       payload.Notes,
	}
}

type entryPayload struct {
	Timestamp      *time.Time `json:"timestamp"`
	Severity       int        `json:"severity"`
	Headache       int        `json:"headache"`
	Nausea         int        `json:"nausea"`
	Anxiety        int        `json:"anxiety"`
	IsMenstruating bool       `json:"is_menstruating"`
	Note           *string    `json:"note"`
	SentimentLabel *string    `json:"sentiment_label"`
	SentimentScore *float64   `json:"sentiment_score"`
}

func (payload entryPayload) input(now time.Time) services.EntryInput {
	timestamp := now
	if payload.Timestamp != nil {
		timestamp = *payload.Timestamp
	}
	return services.EntryInput{
		Timestamp:      timestamp,
		Severity:       payload.Severity,
		Headache:       payload.Headache,
		Nausea:         payload.Nausea,
		Anxiety:        payload.Anxiety,
		IsMenstruating: payload.IsMenstruating,
		Note:           payload.Note,
		SentimentLabel: payload.SentimentLabel,
		SentimentScore: payload.SentimentScore,
	}
}

type togglePayload struct {
	SourceID uuid.UUID `json:"source_id"`
	Date     string    `json:"date"`
	Taken    bool      `json:"taken"`
}
