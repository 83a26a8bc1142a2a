package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
)

const (
	SyntheticScheduleHour   = 8
	SyntheticScheduleMinute = 0
)

// ScheduleLocation is the zone dose instants are built in.
func ScheduleLocation(schedule models.Schedule, fallback *time.Location) *time.Location {
	return ResolveLocation(schedule.TimeZone, fallback)
}

// OccurrenceOn reports when schedule is due on the calendar date of day in
// location. The instant itself is built in the schedule's own zone.
func OccurrenceOn(schedule models.Schedule, day time.Time, location *time.Location) (time.Time, bool) {
	if !schedule.IsActive {
		return time.Time{}, false
	}
	if schedule.Hour < 0 || schedule.Hour > 23 || schedule.Minute < 0 || schedule.Minute > 59 {
		return time.Time{}, false
	}
	if location == nil {
		location = time.UTC
	}

	date := CivilDate(day, location)
	scheduleLocation := ScheduleLocation(schedule, location)

	switch schedule.Cadence {
	case models.CadenceDaily, "":
	case models.CadenceWeekly, models.CadenceCustom:
		if !schedule.DaysOfWeek.Permits(date.Weekday()) {
			return time.Time{}, false
		}
	case models.CadenceInterval:
		if schedule.StartDate == nil {
			return time.Time{}, false
		}
		anchor := CivilDate(*schedule.StartDate, scheduleLocation)
		distance := int(date.Sub(anchor).Hours() / 24)
		if distance < 0 || distance%schedule.EffectiveInterval() != 0 {
			return time.Time{}, false
		}
	default:
		return time.Time{}, false
	}

	year, month, dayOfMonth := date.Date()
	return time.Date(year, month, dayOfMonth, schedule.Hour, schedule.Minute, 0, 0, scheduleLocation), true
}

// ValidateSchedule rejects rows that could never produce a meaningful occurrence.
func ValidateSchedule(schedule models.Schedule) error {
	if _, err := models.ParseCadence(string(schedule.Cadence)); err != nil {
		return invariantError("%v", err)
	}
	if schedule.Hour < 0 || schedule.Hour > 23 {
		return invariantError("hour %d out of range", schedule.Hour)
	}
	if schedule.Minute < 0 || schedule.Minute > 59 {
		return invariantError("minute %d out of range", schedule.Minute)
	}
	if schedule.TimeZone != "" {
		if _, err := time.LoadLocation(schedule.TimeZone); err != nil {
			return invariantError("unknown time zone %q", schedule.TimeZone)
		}
	}
	if schedule.Cadence == models.CadenceInterval {
		if schedule.StartDate == nil {
			return invariantError("interval schedule requires a start date")
		}
		if schedule.Interval < 1 {
			return invariantError("interval must be at least 1, got %d", schedule.Interval)
		}
	}
	return nil
}

// ScheduleSource is either a persisted schedule or the implicit daily dose of
// a medication that has no schedules.
type ScheduleSource interface {
	SourceID() uuid.UUID
	SourceMedication() models.Medication
	Occurrence(day time.Time, location *time.Location) (time.Time, bool)
	scheduleSource()
}

type ExplicitSchedule struct {
	Schedule   models.Schedule
	Medication models.Medication
}

func (source ExplicitSchedule) SourceID() uuid.UUID { return source.Schedule.ID }

func (source ExplicitSchedule) SourceMedication() models.Medication { return source.Medication }

func (source ExplicitSchedule) Occurrence(day time.Time, location *time.Location) (time.Time, bool) {
	return OccurrenceOn(source.Schedule, day, location)
}

func (ExplicitSchedule) scheduleSource() {}

// SyntheticSchedule is keyed by its medication's ID.
type SyntheticSchedule struct {
	Medication models.Medication
}

func (source SyntheticSchedule) SourceID() uuid.UUID { return source.Medication.ID }

func (source SyntheticSchedule) SourceMedication() models.Medication { return source.Medication }

// Schedule renders the implicit daily 08:00 dose in the caller's zone.
func (source SyntheticSchedule) Schedule() models.Schedule {
	return models.Schedule{
		MedicationID: source.Medication.ID,
		Cadence:      models.CadenceDaily,
		Interval:     1,
		Hour:         SyntheticScheduleHour,
		Minute:       SyntheticScheduleMinute,
		IsActive:     true,
	}
}

func (source SyntheticSchedule) Occurrence(day time.Time, location *time.Location) (time.Time, bool) {
	return OccurrenceOn(source.Schedule(), day, location)
}

func (SyntheticSchedule) scheduleSource() {}

// SourcesForMedication lists the active schedules of a scheduled medication,
// or its synthetic schedule when nothing was ever persisted for it.
func SourcesForMedication(medication models.Medication, schedules []models.Schedule) []ScheduleSource {
	if medication.IsAsNeeded {
		return nil
	}
	if len(schedules) == 0 {
		return []ScheduleSource{SyntheticSchedule{Medication: medication}}
	}
	sources := make([]ScheduleSource, 0, len(schedules))
	for _, schedule := range schedules {
		if schedule.MedicationID != medication.ID || !schedule.IsActive {
			continue
		}
		sources = append(sources, ExplicitSchedule{Schedule: schedule, Medication: medication})
	}
	return sources
}
