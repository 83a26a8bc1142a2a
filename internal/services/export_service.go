package services

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/models"
)

type ExportIntakeReader interface {
	ListByMedications(medicationIDs []uuid.UUID) ([]models.Intake, error)
}

type ExportEntryReader interface {
	ListByJournal(journalID uuid.UUID) ([]models.Entry, error)
}

type ExportService struct {
	medications MedicationReader
	schedules   ScheduleReader
	intakes     ExportIntakeReader
	entries     ExportEntryReader
}

type ExportSummary struct {
	ExportedEntries     int `json:"exported_entries"`
	ExportedMedications int `json:"exported_medications"`
	ExportedSchedules   int `json:"exported_schedules"`
	ExportedIntakes     int `json:"exported_intakes"`
}

type EntryExport struct {
	ID                  uuid.UUID   `json:"id"`
	Timestamp           time.Time   `json:"timestamp"`
	Severity            int         `json:"severity"`
	Headache            int         `json:"headache"`
	Nausea              int         `json:"nausea"`
	Anxiety             int         `json:"anxiety"`
	Note                *string     `json:"note,omitempty"`
	IsMenstruating      bool        `json:"isMenstruating"`
	SentimentLabel      *string     `json:"sentimentLabel,omitempty"`
	SentimentScore      *float64    `json:"sentimentScore,omitempty"`
	MedicationIntakeIDs []uuid.UUID `json:"medicationIntakeIdentifiers"`
}

type ScheduleExport struct {
	ID           uuid.UUID           `json:"id"`
	MedicationID uuid.UUID           `json:"medicationID"`
	Label        *string             `json:"label,omitempty"`
	Cadence      models.Cadence      `json:"cadence"`
	Interval     int                 `json:"interval"`
	Weekdays     []int               `json:"weekdays"`
	Hour         int                 `json:"hour"`
	Minute       int                 `json:"minute"`
	Amount       decimal.NullDecimal `json:"amount"`
	Unit         *string             `json:"unit,omitempty"`
	IsActive     bool                `json:"isActive"`
	SortOrder    int                 `json:"sortOrder"`
	StartDate    *time.Time          `json:"startDate,omitempty"`
	TimeZone     string              `json:"timeZoneIdentifier,omitempty"`
}

type IntakeExport struct {
	ID            uuid.UUID           `json:"id"`
	MedicationID  uuid.UUID           `json:"medicationID"`
	EntryID       *uuid.UUID          `json:"entryID,omitempty"`
	ScheduleID    *uuid.UUID          `json:"scheduleID,omitempty"`
	Origin        models.Origin       `json:"origin"`
	Timestamp     time.Time           `json:"timestamp"`
	ScheduledDate *time.Time          `json:"scheduledDate,omitempty"`
	Amount        decimal.NullDecimal `json:"amount"`
	Unit          *string             `json:"unit,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
}

type MedicationExport struct {
	ID            uuid.UUID           `json:"id"`
	Name          string              `json:"name"`
	CreatedAt     time.Time           `json:"createdAt"`
	DefaultAmount decimal.NullDecimal `json:"defaultAmount"`
	DefaultUnit   *string             `json:"defaultUnit,omitempty"`
	UseCase       *string             `json:"useCase,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	IsAsNeeded    bool                `json:"isAsNeeded"`
	Schedules     []ScheduleExport    `json:"schedules"`
	Intakes       []IntakeExport      `json:"intakes"`
}

// ExportDataset is everything one journal export contains. Schedules and
// Intakes repeat the nested medication data flattened for tabular formats.
type ExportDataset struct {
	GeneratedAt time.Time          `json:"generatedAt"`
	Entries     []EntryExport      `json:"entries"`
	Medications []MedicationExport `json:"medications"`
	Schedules   []ScheduleExport   `json:"-"`
	Intakes     []IntakeExport     `json:"-"`
}

type ExportInput struct {
	Entries     []models.Entry
	Medications []models.Medication
	Schedules   []models.Schedule
	Intakes     []models.Intake
	Location    *time.Location
}

func NewExportService(medications MedicationReader, schedules ScheduleReader, intakes ExportIntakeReader, entries ExportEntryReader) *ExportService {
	return &ExportService{
		medications: medications,
		schedules:   schedules,
		intakes:     intakes,
		entries:     entries,
	}
}

func (service *ExportService) BuildDataset(journalID uuid.UUID, location *time.Location, generatedAt time.Time) (ExportDataset, error) {
	medications, err := service.medications.ListByJournal(journalID)
	if err != nil {
		return ExportDataset{}, storeError("list medications", err)
	}
	ids := medicationIDs(medications)
	schedules, err := service.schedules.ListByMedications(ids)
	if err != nil {
		return ExportDataset{}, storeError("list schedules", err)
	}
	intakes, err := service.intakes.ListByMedications(ids)
	if err != nil {
		return ExportDataset{}, storeError("list intakes", err)
	}
	entries, err := service.entries.ListByJournal(journalID)
	if err != nil {
		return ExportDataset{}, storeError("list entries", err)
	}

	return BuildExportDataset(ExportInput{
		Entries:     entries,
		Medications: medications,
		Schedules:   schedules,
		Intakes:     intakes,
		Location:    location,
	}, generatedAt), nil
}

func (dataset ExportDataset) Summary() ExportSummary {
	return ExportSummary{
		ExportedEntries:     len(dataset.Entries),
		ExportedMedications: len(dataset.Medications),
		ExportedSchedules:   len(dataset.Schedules),
		ExportedIntakes:     len(dataset.Intakes),
	}
}

func BuildExportDataset(input ExportInput, generatedAt time.Time) ExportDataset {
	entries := make([]models.Entry, len(input.Entries))
	copy(entries, input.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	medications := make([]models.Medication, len(input.Medications))
	copy(medications, input.Medications)
	sort.SliceStable(medications, func(i, j int) bool {
		return medications[i].CreatedAt.Before(medications[j].CreatedAt)
	})

	intakes := make([]models.Intake, len(input.Intakes))
	copy(intakes, input.Intakes)
	sortIntakesByTimestamp(intakes)

	links := ResolveEntryLinks(ReconciliationInput{
		Intakes:     intakes,
		Entries:     entries,
		Medications: medications,
		Schedules:   input.Schedules,
		Location:    input.Location,
	})

	intakesByEntry := make(map[uuid.UUID][]uuid.UUID)
	for _, intake := range intakes {
		entryID, ok := links[intake.ID]
		if !ok {
			continue
		}
		intakesByEntry[entryID] = appendUniqueID(intakesByEntry[entryID], intake.ID)
	}

	dataset := ExportDataset{
		GeneratedAt: generatedAt,
		Entries:     make([]EntryExport, 0, len(entries)),
		Medications: make([]MedicationExport, 0, len(medications)),
		Schedules:   make([]ScheduleExport, 0, len(input.Schedules)),
		Intakes:     make([]IntakeExport, 0, len(intakes)),
	}

	for _, entry := range entries {
		intakeIDs := intakesByEntry[entry.ID]
		if intakeIDs == nil {
			intakeIDs = []uuid.UUID{}
		}
		dataset.Entries = append(dataset.Entries, EntryExport{
			ID:                  entry.ID,
			Timestamp:           entry.Timestamp,
			Severity:            entry.Severity,
			Headache:            entry.Headache,
			Nausea:              entry.Nausea,
			Anxiety:             entry.Anxiety,
			Note:                entry.Note,
			IsMenstruating:      entry.IsMenstruating,
			SentimentLabel:      entry.SentimentLabel,
			SentimentScore:      entry.SentimentScore,
			MedicationIntakeIDs: intakeIDs,
		})
	}

	schedulesByMed := schedulesByMedication(input.Schedules)
	intakesByMed := intakesByMedication(intakes)
	for _, medication := range medications {
		medicationExport := MedicationExport{
			ID:            medication.ID,
			Name:          medication.Name,
			CreatedAt:     medication.CreatedAt,
			DefaultAmount: medication.DefaultAmount,
			DefaultUnit:   medication.DefaultUnit,
			UseCase:       medication.UseCase,
			Notes:         medication.Notes,
			IsAsNeeded:    medication.IsAsNeeded,
			Schedules:     make([]ScheduleExport, 0),
			Intakes:       make([]IntakeExport, 0),
		}
		for _, schedule := range schedulesByMed[medication.ID] {
			medicationExport.Schedules = append(medicationExport.Schedules, scheduleExport(schedule))
		}
		for _, intake := range intakesByMed[medication.ID] {
			exported := intakeExport(intake)
			if entryID, ok := links[intake.ID]; ok {
				linked := entryID
				exported.EntryID = &linked
			}
			medicationExport.Intakes = append(medicationExport.Intakes, exported)
		}

		dataset.Medications = append(dataset.Medications, medicationExport)
		dataset.Schedules = append(dataset.Schedules, medicationExport.Schedules...)
		dataset.Intakes = append(dataset.Intakes, medicationExport.Intakes...)
	}

	return dataset
}

func scheduleExport(schedule models.Schedule) ScheduleExport {
	return ScheduleExport{
		ID:           schedule.ID,
		MedicationID: schedule.MedicationID,
		Label:        schedule.Label,
		Cadence:      schedule.Cadence,
		Interval:     schedule.EffectiveInterval(),
		Weekdays:     schedule.DaysOfWeek.Ints(),
		Hour:         schedule.Hour,
		Minute:       schedule.Minute,
		Amount:       schedule.Amount,
		Unit:         schedule.Unit,
		IsActive:     schedule.IsActive,
		SortOrder:    schedule.SortOrder,
		StartDate:    schedule.StartDate,
		TimeZone:     schedule.TimeZone,
	}
}

func intakeExport(intake models.Intake) IntakeExport {
	return IntakeExport{
		ID:            intake.ID,
		MedicationID:  intake.MedicationID,
		ScheduleID:    intake.ScheduleID,
		Origin:        intake.Origin,
		Timestamp:     intake.Timestamp,
		ScheduledDate: intake.ScheduledDate,
		Amount:        intake.Amount,
		Unit:          intake.Unit,
		Notes:         intake.Notes,
	}
}

func appendUniqueID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
