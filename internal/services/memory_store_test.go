package services

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
)

// memoryStore is an in-memory IntakeStore that also backs the read-side
// interfaces through the small view types below.
type memoryStore struct {
	medications map[uuid.UUID]models.Medication
	schedules   map[uuid.UUID]models.Schedule
	intakes     map[uuid.UUID]models.Intake
	entries     []models.Entry
	writeErr    error
	readErr     error
	txCount     int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		medications: map[uuid.UUID]models.Medication{},
		schedules:   map[uuid.UUID]models.Schedule{},
		intakes:     map[uuid.UUID]models.Intake{},
	}
}

func (store *memoryStore) addMedication(medication models.Medication) models.Medication {
	if medication.ID == uuid.Nil {
		medication.ID = uuid.New()
	}
	store.medications[medication.ID] = medication
	return medication
}

func (store *memoryStore) addSchedule(schedule models.Schedule) models.Schedule {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	store.schedules[schedule.ID] = schedule
	return schedule
}

func (store *memoryStore) addIntake(intake models.Intake) models.Intake {
	if intake.ID == uuid.Nil {
		intake.ID = uuid.New()
	}
	store.intakes[intake.ID] = intake
	return intake
}

func (store *memoryStore) intakeList() []models.Intake {
	result := make([]models.Intake, 0, len(store.intakes))
	for _, intake := range store.intakes {
		result = append(result, intake)
	}
	sortIntakesByTimestamp(result)
	return result
}

func (store *memoryStore) Atomically(fn func(tx IntakeTx) error) error {
	store.txCount++
	return fn(store)
}

func (store *memoryStore) FindMedication(id uuid.UUID) (models.Medication, bool, error) {
	if store.readErr != nil {
		return models.Medication{}, false, store.readErr
	}
	medication, ok := store.medications[id]
	return medication, ok, nil
}

func (store *memoryStore) ListSchedules(medicationID uuid.UUID) ([]models.Schedule, error) {
	result := make([]models.Schedule, 0)
	for _, schedule := range store.schedules {
		if schedule.MedicationID == medicationID {
			result = append(result, schedule)
		}
	}
	return sortedSchedules(result), nil
}

func (store *memoryStore) ListScheduledIntakes(scheduleID uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error) {
	result := make([]models.Intake, 0)
	for _, intake := range store.intakeList() {
		if intake.ScheduleID == nil || *intake.ScheduleID != scheduleID || intake.ScheduledDate == nil {
			continue
		}
		if withinClosed(*intake.ScheduledDate, from, to) {
			result = append(result, intake)
		}
	}
	return result, nil
}

func (store *memoryStore) ListUnscheduledIntakes(medicationID uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error) {
	result := make([]models.Intake, 0)
	for _, intake := range store.intakeList() {
		if intake.MedicationID != medicationID || intake.ScheduleID != nil {
			continue
		}
		if !intake.Timestamp.Before(from) && intake.Timestamp.Before(to) {
			result = append(result, intake)
		}
	}
	return result, nil
}

func (store *memoryStore) FindIntake(id uuid.UUID) (models.Intake, bool, error) {
	intake, ok := store.intakes[id]
	return intake, ok, nil
}

func (store *memoryStore) CreateIntake(intake *models.Intake) error {
	if store.writeErr != nil {
		return store.writeErr
	}
	if intake.ID == uuid.Nil {
		intake.ID = uuid.New()
	}
	store.intakes[intake.ID] = *intake
	return nil
}

func (store *memoryStore) SaveIntake(intake *models.Intake) error {
	if store.writeErr != nil {
		return store.writeErr
	}
	if _, ok := store.intakes[intake.ID]; !ok {
		return errors.New("intake missing")
	}
	store.intakes[intake.ID] = *intake
	return nil
}

func (store *memoryStore) DeleteIntakes(ids []uuid.UUID) error {
	if store.writeErr != nil {
		return store.writeErr
	}
	for _, id := range ids {
		delete(store.intakes, id)
	}
	return nil
}

func (store *memoryStore) SaveMedication(medication *models.Medication) error {
	if store.writeErr != nil {
		return store.writeErr
	}
	store.medications[medication.ID] = *medication
	return nil
}

type memoryMedications struct{ store *memoryStore }

func (view memoryMedications) ListByJournal(journalID uuid.UUID) ([]models.Medication, error) {
	if view.store.readErr != nil {
		return nil, view.store.readErr
	}
	result := make([]models.Medication, 0)
	for _, medication := range view.store.medications {
		if medication.JournalID == journalID {
			result = append(result, medication)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type memorySchedules struct{ store *memoryStore }

func (view memorySchedules) ListByMedications(medicationIDs []uuid.UUID) ([]models.Schedule, error) {
	result := make([]models.Schedule, 0)
	for _, id := range medicationIDs {
		schedules, _ := view.store.ListSchedules(id)
		result = append(result, schedules...)
	}
	return result, nil
}

type memoryIntakes struct{ store *memoryStore }

func (view memoryIntakes) ListByMedicationsInRange(medicationIDs []uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error) {
	wanted := idSet(medicationIDs)
	result := make([]models.Intake, 0)
	for _, intake := range view.store.intakeList() {
		if _, ok := wanted[intake.MedicationID]; !ok {
			continue
		}
		if !intake.Timestamp.Before(from) && intake.Timestamp.Before(to) {
			result = append(result, intake)
		}
	}
	return result, nil
}

func (view memoryIntakes) LatestTimestamps(medicationIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	wanted := idSet(medicationIDs)
	latest := map[uuid.UUID]time.Time{}
	for _, intake := range view.store.intakes {
		if _, ok := wanted[intake.MedicationID]; !ok {
			continue
		}
		if current, ok := latest[intake.MedicationID]; !ok || intake.Timestamp.After(current) {
			latest[intake.MedicationID] = intake.Timestamp
		}
	}
	return latest, nil
}

func (view memoryIntakes) ListByMedications(medicationIDs []uuid.UUID) ([]models.Intake, error) {
	return view.ListByMedicationsInRange(medicationIDs, time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
}

type memoryEntries struct{ store *memoryStore }

func (view memoryEntries) ListByJournalInRange(journalID uuid.UUID, from time.Time, to time.Time) ([]models.Entry, error) {
	result := make([]models.Entry, 0)
	for _, entry := range view.store.entries {
		if entry.JournalID == journalID && !entry.Timestamp.Before(from) && entry.Timestamp.Before(to) {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (view memoryEntries) ListByJournal(journalID uuid.UUID) ([]models.Entry, error) {
	result := make([]models.Entry, 0)
	for _, entry := range view.store.entries {
		if entry.JournalID == journalID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

type recordingNotifier struct {
	changes []JournalChange
}

func (notifier *recordingNotifier) Notify(change JournalChange) {
	notifier.changes = append(notifier.changes, change)
}

func stringPtr(value string) *string {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}

func utcDate(year int, month time.Month, day int, hour int, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}
