package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubJournalRepo struct {
	journals map[uuid.UUID]models.Journal
}

func newStubJournalRepo(ids ...uuid.UUID) *stubJournalRepo {
	repo := &stubJournalRepo{journals: map[uuid.UUID]models.Journal{}}
	for _, id := range ids {
		repo.journals[id] = models.Journal{ID: id}
	}
	return repo
}

func (stub *stubJournalRepo) FindByID(id uuid.UUID) (models.Journal, bool, error) {
	journal, ok := stub.journals[id]
	return journal, ok, nil
}

func (stub *stubJournalRepo) Create(journal *models.Journal) error {
	if journal.ID == uuid.Nil {
		journal.ID = uuid.New()
	}
	stub.journals[journal.ID] = *journal
	return nil
}

type stubMedicationRepo struct {
	medications map[uuid.UUID]models.Medication
	deleted     []uuid.UUID
	schedules   *stubScheduleRepo
	asNeeded    int
}

func (stub *stubMedicationRepo) ListByJournal(journalID uuid.UUID) ([]models.Medication, error) {
	result := make([]models.Medication, 0)
	for _, medication := range stub.medications {
		if medication.JournalID == journalID {
			result = append(result, medication)
		}
	}
	return result, nil
}

func (stub *stubMedicationRepo) FindByID(id uuid.UUID) (models.Medication, bool, error) {
	medication, ok := stub.medications[id]
	return medication, ok, nil
}

func (stub *stubMedicationRepo) Create(medication *models.Medication) error {
	if medication.ID == uuid.Nil {
		medication.ID = uuid.New()
	}
	stub.medications[medication.ID] = *medication
	return nil
}

func (stub *stubMedicationRepo) Save(medication *models.Medication) error {
	stub.medications[medication.ID] = *medication
	return nil
}

func (stub *stubMedicationRepo) SaveAsNeeded(medication *models.Medication) error {
	stub.asNeeded++
	if stub.schedules != nil {
		for id, schedule := range stub.schedules.schedules {
			if schedule.MedicationID == medication.ID {
				delete(stub.schedules.schedules, id)
			}
		}
	}
	return stub.Save(medication)
}

func (stub *stubMedicationRepo) Delete(id uuid.UUID) error {
	delete(stub.medications, id)
	stub.deleted = append(stub.deleted, id)
	return nil
}

type stubScheduleRepo struct {
	schedules map[uuid.UUID]models.Schedule
}

func (stub *stubScheduleRepo) FindByID(id uuid.UUID) (models.Schedule, bool, error) {
	schedule, ok := stub.schedules[id]
	return schedule, ok, nil
}

func (stub *stubScheduleRepo) ListByMedication(medicationID uuid.UUID) ([]models.Schedule, error) {
	result := make([]models.Schedule, 0)
	for _, schedule := range stub.schedules {
		if schedule.MedicationID == medicationID {
			result = append(result, schedule)
		}
	}
	return result, nil
}

func (stub *stubScheduleRepo) Create(schedule *models.Schedule) error {
	if schedule.ID == uuid.Nil {
		schedule.ID = uuid.New()
	}
	stub.schedules[schedule.ID] = *schedule
	return nil
}

func (stub *stubScheduleRepo) Save(schedule *models.Schedule) error {
	stub.schedules[schedule.ID] = *schedule
	return nil
}

func (stub *stubScheduleRepo) Delete(id uuid.UUID) error {
	delete(stub.schedules, id)
	return nil
}

type stubEntryRepo struct {
	created []models.Entry
}

func (stub *stubEntryRepo) FindByID(id uuid.UUID) (models.Entry, bool, error) {
	for _, entry := range stub.created {
		if entry.ID == id {
			return entry, true, nil
		}
	}
	return models.Entry{}, false, nil
}

func (stub *stubEntryRepo) ListByJournalInRange(uuid.UUID, time.Time, time.Time) ([]models.Entry, error) {
	return stub.created, nil
}

func (stub *stubEntryRepo) Create(entry *models.Entry) error {
	entry.ID = uuid.New()
	stub.created = append(stub.created, *entry)
	return nil
}

func (stub *stubEntryRepo) Delete(id uuid.UUID) error {
	kept := stub.created[:0]
	for _, entry := range stub.created {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	stub.created = kept
	return nil
}

func TestMedicationServiceCreateValidatesInput(t *testing.T) {
	journalID := uuid.New()
	medications := &stubMedicationRepo{medications: map[uuid.UUID]models.Medication{}}
	notifier := &recordingNotifier{}
	service := NewMedicationService(newStubJournalRepo(journalID), medications, notifier)

	if _, err := service.Create(journalID, MedicationInput{Name: "   "}); !errors.Is(err, ErrInvalidMedicationName) {
		t.Fatalf("expected ErrInvalidMedicationName, got %v", err)
	}
	negative := decimal.NewFromInt(-5)
	if _, err := service.Create(journalID, MedicationInput{Name: "Aspirin", DefaultAmount: &negative}); !errors.Is(err, ErrInvalidMedicationDose) {
		t.Fatalf("expected ErrInvalidMedicationDose, got %v", err)
	}
	if _, err := service.Create(uuid.New(), MedicationInput{Name: "Aspirin"}); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("expected ErrJournalNotFound, got %v", err)
	}

	amount := decimal.NewFromInt(100)
	medication, err := service.Create(journalID, MedicationInput{Name: " Aspirin ", DefaultAmount: &amount, DefaultUnit: stringPtr(" mg "), UseCase: stringPtr("")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if medication.Name != "Aspirin" || *medication.DefaultUnit != "mg" || medication.UseCase != nil {
		t.Fatalf("expected trimmed fields, got %#v", medication)
	}
	if len(notifier.changes) != 1 || notifier.changes[0].Kind != ChangeMedications {
		t.Fatalf("expected one medications change, got %#v", notifier.changes)
	}
}

func TestMedicationServiceDelete(t *testing.T) {
	journalID := uuid.New()
	medications := &stubMedicationRepo{medications: map[uuid.UUID]models.Medication{}}
	service := NewMedicationService(newStubJournalRepo(journalID), medications, nil)

	medication, err := service.Create(journalID, MedicationInput{Name: "Aspirin"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := service.Delete(medication.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(medications.deleted) != 1 || medications.deleted[0] != medication.ID {
		t.Fatalf("expected repository delete, got %v", medications.deleted)
	}
	if err := service.Delete(medication.ID); !errors.Is(err, ErrMedicationNotFound) {
		t.Fatalf("expected ErrMedicationNotFound, got %v", err)
	}
}

func TestMedicationServiceUpdateToAsNeededDropsSchedules(t *testing.T) {
	journalID := uuid.New()
	schedules := &stubScheduleRepo{schedules: map[uuid.UUID]models.Schedule{}}
	medications := &stubMedicationRepo{medications: map[uuid.UUID]models.Medication{}, schedules: schedules}
	service := NewMedicationService(newStubJournalRepo(journalID), medications, nil)
	scheduleService := NewScheduleService(medications, schedules, nil, nil)

	medication, err := service.Create(journalID, MedicationInput{Name: "Ibuprofen"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := scheduleService.Create(medication.ID, ScheduleInput{Cadence: "daily", Hour: 8}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	if _, err := service.Update(medication.ID, MedicationInput{Name: "Ibuprofen", UseCase: stringPtr("Pain")}); err != nil {
		t.Fatalf("update scheduled: %v", err)
	}
	if medications.asNeeded != 0 || len(schedules.schedules) != 1 {
		t.Fatalf("expected schedules kept while scheduled, got %d schedules", len(schedules.schedules))
	}

	updated, err := service.Update(medication.ID, MedicationInput{Name: "Ibuprofen", IsAsNeeded: true})
	if err != nil {
		t.Fatalf("update as-needed: %v", err)
	}
	if !updated.IsAsNeeded {
		t.Fatal("expected medication to be as-needed")
	}
	if medications.asNeeded != 1 {
		t.Fatalf("expected as-needed save path, got %d calls", medications.asNeeded)
	}
	if remaining, _ := schedules.ListByMedication(medication.ID); len(remaining) != 0 {
		t.Fatalf("expected schedules removed, got %d", len(remaining))
	}
}

func TestScheduleServiceCreate(t *testing.T) {
	journalID := uuid.New()
	scheduled := models.Medication{ID: uuid.New(), JournalID: journalID, Name: "Sertraline"}
	asNeeded := models.Medication{ID: uuid.New(), JournalID: journalID, Name: "Ibuprofen", IsAsNeeded: true}
	medications := &stubMedicationRepo{medications: map[uuid.UUID]models.Medication{scheduled.ID: scheduled, asNeeded.ID: asNeeded}}
	schedules := &stubScheduleRepo{schedules: map[uuid.UUID]models.Schedule{}}
	core, logs := observer.New(zap.WarnLevel)
	service := NewScheduleService(medications, schedules, nil, zap.New(core))

	if _, err := service.Create(asNeeded.ID, ScheduleInput{Hour: 8}); !errors.Is(err, ErrAsNeededSchedule) {
		t.Fatalf("expected ErrAsNeededSchedule, got %v", err)
	}
	if _, err := service.Create(scheduled.ID, ScheduleInput{Cadence: "interval", Interval: 2, Hour: 8}); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation for unanchored interval, got %v", err)
	}
	if _, err := service.Create(uuid.New(), ScheduleInput{Hour: 8}); !errors.Is(err, ErrMedicationNotFound) {
		t.Fatalf("expected ErrMedicationNotFound, got %v", err)
	}

	first, err := service.Create(scheduled.ID, ScheduleInput{Hour: 8, Weekdays: []int{1, 3}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Cadence != models.CadenceDaily || !first.IsActive || first.SortOrder != 0 {
		t.Fatalf("unexpected defaults %#v", first)
	}

	second, err := service.Create(scheduled.ID, ScheduleInput{Cadence: "weekly", Hour: 20})
	if err != nil {
		t.Fatalf("create weekly: %v", err)
	}
	if second.SortOrder != 1 {
		t.Fatalf("expected sort order 1, got %d", second.SortOrder)
	}
	if logs.FilterMessage("schedule has no weekdays selected and will occur every day").Len() != 1 {
		t.Fatalf("expected a warning for the empty weekday set, got %d entries", logs.Len())
	}
}

func TestScheduleServiceUpdateAndDelete(t *testing.T) {
	medication := models.Medication{ID: uuid.New(), JournalID: uuid.New(), Name: "Sertraline"}
	medications := &stubMedicationRepo{medications: map[uuid.UUID]models.Medication{medication.ID: medication}}
	schedules := &stubScheduleRepo{schedules: map[uuid.UUID]models.Schedule{}}
	notifier := &recordingNotifier{}
	service := NewScheduleService(medications, schedules, notifier, nil)

	created, err := service.Create(medication.ID, ScheduleInput{Hour: 8})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	inactive := false
	updated, err := service.Update(created.ID, ScheduleInput{Cadence: "interval", Interval: 3, Hour: 9, StartDate: timePtr(utcDate(2024, 1, 1, 0, 0)), IsActive: &inactive})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Cadence != models.CadenceInterval || updated.Interval != 3 || updated.IsActive {
		t.Fatalf("unexpected update %#v", updated)
	}

	if err := service.Delete(created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := service.Find(created.ID); !errors.Is(err, ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
	if len(notifier.changes) != 3 || notifier.changes[2].JournalID != medication.JournalID {
		t.Fatalf("expected three schedule changes, got %#v", notifier.changes)
	}
}

func TestEntryServiceValidatesScores(t *testing.T) {
	journalID := uuid.New()
	entries := &stubEntryRepo{}
	service := NewEntryService(newStubJournalRepo(journalID), entries, nil)

	tests := []struct {
		name  string
		input EntryInput
		want  error
	}{
		{name: "severity too high", input: EntryInput{Severity: 11}, want: ErrInvalidEntrySeverity},
		{name: "negative sub score", input: EntryInput{Severity: 3, Nausea: -1}, want: ErrInvalidEntrySeverity},
		{name: "sentiment out of range", input: EntryInput{Severity: 3, SentimentScore: func() *float64 { value := 1.5; return &value }()}, want: ErrInvalidSentiment},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := service.Create(journalID, testCase.input); !errors.Is(err, testCase.want) {
				t.Fatalf("expected %v, got %v", testCase.want, err)
			}
		})
	}

	entry, err := service.Create(journalID, EntryInput{Timestamp: utcDate(2024, 1, 1, 9, 0), Severity: 10, Note: stringPtr("  ")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Note != nil || entry.Severity != 10 {
		t.Fatalf("unexpected entry %#v", entry)
	}
	if _, err := service.Create(uuid.New(), EntryInput{Severity: 1}); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("expected ErrJournalNotFound, got %v", err)
	}
}

func TestEntryServiceDelete(t *testing.T) {
	journalID := uuid.New()
	entries := &stubEntryRepo{}
	notifier := &recordingNotifier{}
	service := NewEntryService(newStubJournalRepo(journalID), entries, notifier)

	entry, err := service.Create(journalID, EntryInput{Timestamp: utcDate(2024, 1, 1, 9, 0), Severity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := service.Delete(entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(entries.created) != 0 {
		t.Fatalf("expected entry removed, got %d", len(entries.created))
	}
	if err := service.Delete(entry.ID); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if len(notifier.changes) != 2 || notifier.changes[1].Kind != ChangeEntries {
		t.Fatalf("expected create and delete changes, got %#v", notifier.changes)
	}
}

func TestJournalServiceCreateAndFind(t *testing.T) {
	repo := newStubJournalRepo()
	notifier := &recordingNotifier{}
	service := NewJournalService(repo, notifier)

	journal, err := service.Create("  Migraine diary ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if journal.Title != "Migraine diary" {
		t.Fatalf("expected trimmed title, got %q", journal.Title)
	}
	found, err := service.Find(journal.ID)
	if err != nil || found.ID != journal.ID {
		t.Fatalf("expected to find journal, got %#v err=%v", found, err)
	}
	if _, err := service.Find(uuid.New()); !errors.Is(err, ErrJournalNotFound) {
		t.Fatalf("expected ErrJournalNotFound, got %v", err)
	}
	if len(notifier.changes) != 1 || notifier.changes[0].Kind != ChangeJournal {
		t.Fatalf("expected one journal change, got %#v", notifier.changes)
	}
}
