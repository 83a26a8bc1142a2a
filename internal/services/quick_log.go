package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/models"
)

const untitledMedicationName = "Untitled"

type ScheduledOccurrence struct {
	SourceID       uuid.UUID           `json:"source_id"`
	ScheduleID     *uuid.UUID          `json:"schedule_id,omitempty"`
	Synthetic      bool                `json:"synthetic"`
	MedicationID   uuid.UUID           `json:"medication_id"`
	MedicationName string              `json:"medication_name"`
	UseCase        string              `json:"use_case,omitempty"`
	ScheduleLabel  string              `json:"schedule_label,omitempty"`
	ScheduledAt    time.Time           `json:"scheduled_at"`
	Amount         decimal.NullDecimal `json:"amount"`
	Unit           *string             `json:"unit,omitempty"`
	DisplayAmount  string              `json:"display_amount,omitempty"`
	Taken          bool                `json:"taken"`
	LoggedAt       *time.Time          `json:"logged_at,omitempty"`
}

type AsNeededItem struct {
	MedicationID   uuid.UUID           `json:"medication_id"`
	MedicationName string              `json:"medication_name"`
	UseCase        string              `json:"use_case,omitempty"`
	DefaultAmount  decimal.NullDecimal `json:"default_amount"`
	Unit           *string             `json:"unit,omitempty"`
	DisplayAmount  string              `json:"display_amount,omitempty"`
	LastLoggedAt   *time.Time          `json:"last_logged_at,omitempty"`
}

type DailySnapshot struct {
	Day            time.Time             `json:"day"`
	Scheduled      []ScheduledOccurrence `json:"scheduled"`
	AsNeeded       []AsNeededItem        `json:"as_needed"`
	HasMedications bool                  `json:"has_medications"`
}

type QuickLogInput struct {
	Day         time.Time
	Location    *time.Location
	Medications []models.Medication
	Schedules   []models.Schedule
	// DayIntakes holds intakes whose timestamp falls on Day.
	DayIntakes   []models.Intake
	LastLoggedAt map[uuid.UUID]time.Time
}

type QuickLogService struct {
	medications MedicationReader
	schedules   ScheduleReader
	intakes     IntakeReader
}

func NewQuickLogService(medications MedicationReader, schedules ScheduleReader, intakes IntakeReader) *QuickLogService {
	return &QuickLogService{
		medications: medications,
		schedules:   schedules,
		intakes:     intakes,
	}
}

func (service *QuickLogService) BuildDailySnapshot(journalID uuid.UUID, day time.Time, location *time.Location) (DailySnapshot, error) {
	medications, err := service.medications.ListByJournal(journalID)
	if err != nil {
		return DailySnapshot{}, storeError("list medications", err)
	}
	ids := medicationIDs(medications)

	schedules, err := service.schedules.ListByMedications(ids)
	if err != nil {
		return DailySnapshot{}, storeError("list schedules", err)
	}

	dayStart, dayEnd := DayRange(day, location)
	dayIntakes, err := service.intakes.ListByMedicationsInRange(ids, dayStart, dayEnd)
	if err != nil {
		return DailySnapshot{}, storeError("list intakes", err)
	}

	asNeededIDs := make([]uuid.UUID, 0)
	for _, medication := range medications {
		if medication.IsAsNeeded {
			asNeededIDs = append(asNeededIDs, medication.ID)
		}
	}
	lastLogged := map[uuid.UUID]time.Time{}
	if len(asNeededIDs) > 0 {
		lastLogged, err = service.intakes.LatestTimestamps(asNeededIDs)
		if err != nil {
			return DailySnapshot{}, storeError("latest intakes", err)
		}
	}

	return BuildDailySnapshot(QuickLogInput{
		Day:          day,
		Location:     location,
		Medications:  medications,
		Schedules:    schedules,
		DayIntakes:   dayIntakes,
		LastLoggedAt: lastLogged,
	}), nil
}

// ResolveSource finds the quick-log row a toggle refers to. Schedule IDs
// resolve to explicit schedules, medication IDs to synthetic ones.
func (service *QuickLogService) ResolveSource(journalID uuid.UUID, sourceID uuid.UUID) (ScheduleSource, bool, error) {
	medications, err := service.medications.ListByJournal(journalID)
	if err != nil {
		return nil, false, storeError("list medications", err)
	}
	schedules, err := service.schedules.ListByMedications(medicationIDs(medications))
	if err != nil {
		return nil, false, storeError("list schedules", err)
	}

	grouped := schedulesByMedication(schedules)
	for _, medication := range medications {
		for _, source := range SourcesForMedication(medication, grouped[medication.ID]) {
			if source.SourceID() == sourceID {
				return source, true, nil
			}
		}
	}
	return nil, false, nil
}

func BuildDailySnapshot(input QuickLogInput) DailySnapshot {
	location := input.Location
	if location == nil {
		location = time.UTC
	}
	dayStart, dayEnd := DayRange(input.Day, location)

	taken := takenOnDay(input.DayIntakes, dayStart, dayEnd)
	grouped := schedulesByMedication(input.Schedules)

	snapshot := DailySnapshot{
		Day:            dayStart,
		Scheduled:      make([]ScheduledOccurrence, 0),
		AsNeeded:       make([]AsNeededItem, 0),
		HasMedications: len(input.Medications) > 0,
	}

	for _, medication := range input.Medications {
		name := medicationDisplayName(medication)
		if medication.IsAsNeeded {
			item := AsNeededItem{
				MedicationID:   medication.ID,
				MedicationName: name,
				UseCase:        medication.UseCaseLabel(),
				DefaultAmount:  medication.DefaultAmount,
				Unit:           copyString(medication.DefaultUnit),
				DisplayAmount:  displayAmount(medication.DefaultAmount, medication.DefaultUnit),
			}
			if last, ok := input.LastLoggedAt[medication.ID]; ok {
				lastCopy := last
				item.LastLoggedAt = &lastCopy
			}
			snapshot.AsNeeded = append(snapshot.AsNeeded, item)
			continue
		}

		for _, source := range SourcesForMedication(medication, grouped[medication.ID]) {
			scheduledAt, ok := source.Occurrence(dayStart, location)
			if !ok {
				continue
			}

			occurrence := ScheduledOccurrence{
				SourceID:       source.SourceID(),
				MedicationID:   medication.ID,
				MedicationName: name,
				UseCase:        medication.UseCaseLabel(),
				ScheduledAt:    scheduledAt,
			}
			switch typed := source.(type) {
			case ExplicitSchedule:
				scheduleID := typed.Schedule.ID
				occurrence.ScheduleID = &scheduleID
				occurrence.ScheduleLabel = typed.Schedule.LabelText()
				occurrence.Amount, occurrence.Unit = ScheduledDose(typed.Schedule, medication)
			case SyntheticSchedule:
				occurrence.Synthetic = true
				occurrence.Amount = medication.DefaultAmount
				occurrence.Unit = copyString(medication.DefaultUnit)
			}
			occurrence.DisplayAmount = displayAmount(occurrence.Amount, occurrence.Unit)

			if loggedAt, ok := taken[source.SourceID()]; ok {
				loggedCopy := loggedAt
				occurrence.Taken = true
				occurrence.LoggedAt = &loggedCopy
			}
			snapshot.Scheduled = append(snapshot.Scheduled, occurrence)
		}
	}

	sort.SliceStable(snapshot.Scheduled, func(i, j int) bool {
		left, right := snapshot.Scheduled[i], snapshot.Scheduled[j]
		if !left.ScheduledAt.Equal(right.ScheduledAt) {
			return left.ScheduledAt.Before(right.ScheduledAt)
		}
		return left.MedicationName < right.MedicationName
	})
	sort.SliceStable(snapshot.AsNeeded, func(i, j int) bool {
		left, right := snapshot.AsNeeded[i], snapshot.AsNeeded[j]
		if left.MedicationName != right.MedicationName {
			return left.MedicationName < right.MedicationName
		}
		return timeOrZero(left.LastLoggedAt).Before(timeOrZero(right.LastLoggedAt))
	})

	return snapshot
}

// takenOnDay keys intakes by schedule ID, or by medication ID when they have
// none, keeping the latest timestamp per key.
func takenOnDay(intakes []models.Intake, dayStart time.Time, dayEnd time.Time) map[uuid.UUID]time.Time {
	taken := make(map[uuid.UUID]time.Time, len(intakes))
	for _, intake := range intakes {
		if intake.Timestamp.Before(dayStart) || !intake.Timestamp.Before(dayEnd) {
			continue
		}
		key := intake.MedicationID
		if intake.ScheduleID != nil {
			key = *intake.ScheduleID
		}
		if existing, ok := taken[key]; !ok || intake.Timestamp.After(existing) {
			taken[key] = intake.Timestamp
		}
	}
	return taken
}

func medicationDisplayName(medication models.Medication) string {
	name := strings.TrimSpace(medication.Name)
	if name == "" {
		return untitledMedicationName
	}
	return name
}

func displayAmount(amount decimal.NullDecimal, unit *string) string {
	if !amount.Valid {
		return ""
	}
	return FormatDose(amount, unit)
}

func timeOrZero(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}
