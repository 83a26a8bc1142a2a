package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
)

type MedicationReader interface {
	ListByJournal(journalID uuid.UUID) ([]models.Medication, error)
}

type ScheduleReader interface {
	ListByMedications(medicationIDs []uuid.UUID) ([]models.Schedule, error)
}

// IntakeReader ranges are half-open on Timestamp.
type IntakeReader interface {
	ListByMedicationsInRange(medicationIDs []uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error)
	LatestTimestamps(medicationIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
}

type EntryReader interface {
	ListByJournalInRange(journalID uuid.UUID, from time.Time, to time.Time) ([]models.Entry, error)
}

func medicationIDs(medications []models.Medication) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(medications))
	for _, medication := range medications {
		ids = append(ids, medication.ID)
	}
	return ids
}

func schedulesByMedication(schedules []models.Schedule) map[uuid.UUID][]models.Schedule {
	grouped := make(map[uuid.UUID][]models.Schedule)
	for _, schedule := range schedules {
		grouped[schedule.MedicationID] = append(grouped[schedule.MedicationID], schedule)
	}
	for id := range grouped {
		grouped[id] = sortedSchedules(grouped[id])
	}
	return grouped
}

func intakesByMedication(intakes []models.Intake) map[uuid.UUID][]models.Intake {
	grouped := make(map[uuid.UUID][]models.Intake)
	for _, intake := range intakes {
		grouped[intake.MedicationID] = append(grouped[intake.MedicationID], intake)
	}
	return grouped
}

// atCivilDate turns a CivilDate value back into midnight of that date in location.
func atCivilDate(date time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	year, month, day := date.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

func withinClosed(value time.Time, start time.Time, end time.Time) bool {
	return !value.Before(start) && !value.After(end)
}
