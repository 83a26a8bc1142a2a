// Package export encodes a journal export dataset as JSON, a ZIP of CSV files
// or an XLSX workbook.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/services"
)

// Table is one tabular view of the dataset: a CSV file or a worksheet.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func (table Table) FileName() string {
	return table.Name + ".csv"
}

// Tables returns the four tables in a fixed order: entries, medications,
// schedules, intakes.
func Tables(dataset services.ExportDataset) []Table {
	return []Table{
		entriesTable(dataset.Entries),
		medicationsTable(dataset.Medications),
		schedulesTable(dataset.Schedules),
		intakesTable(dataset.Intakes),
	}
}

func entriesTable(entries []services.EntryExport) Table {
	table := Table{
		Name:   "symptom_entries",
		Header: []string{"id", "timestamp", "severity", "headache", "nausea", "anxiety", "note", "isMenstruating", "sentimentLabel", "sentimentScore", "medicationIntakeIDs"},
		Rows:   make([][]string, 0, len(entries)),
	}
	for _, entry := range entries {
		score := ""
		if entry.SentimentScore != nil {
			score = strconv.FormatFloat(*entry.SentimentScore, 'f', -1, 64)
		}
		table.Rows = append(table.Rows, []string{
			entry.ID.String(),
			formatTime(entry.Timestamp),
			strconv.Itoa(entry.Severity),
			strconv.Itoa(entry.Headache),
			strconv.Itoa(entry.Nausea),
			strconv.Itoa(entry.Anxiety),
			stringValue(entry.Note),
			strconv.FormatBool(entry.IsMenstruating),
			stringValue(entry.SentimentLabel),
			score,
			joinIDs(entry.MedicationIntakeIDs),
		})
	}
	return table
}

func medicationsTable(medications []services.MedicationExport) Table {
	table := Table{
		Name:   "medications",
		Header: []string{"id", "name", "createdAt", "defaultAmount", "defaultUnit", "useCase", "notes", "isAsNeeded", "scheduleIDs", "intakeIDs"},
		Rows:   make([][]string, 0, len(medications)),
	}
	for _, medication := range medications {
		scheduleIDs := make([]uuid.UUID, 0, len(medication.Schedules))
		for _, schedule := range medication.Schedules {
			scheduleIDs = append(scheduleIDs, schedule.ID)
		}
		intakeIDs := make([]uuid.UUID, 0, len(medication.Intakes))
		for _, intake := range medication.Intakes {
			intakeIDs = append(intakeIDs, intake.ID)
		}
		table.Rows = append(table.Rows, []string{
			medication.ID.String(),
			medication.Name,
			formatTime(medication.CreatedAt),
			decimalValue(medication.DefaultAmount),
			stringValue(medication.DefaultUnit),
			stringValue(medication.UseCase),
			medication.Notes,
			strconv.FormatBool(medication.IsAsNeeded),
			joinIDs(scheduleIDs),
			joinIDs(intakeIDs),
		})
	}
	return table
}

func schedulesTable(schedules []services.ScheduleExport) Table {
	table := Table{
		Name:   "medication_schedules",
		Header: []string{"id", "medicationID", "label", "cadence", "interval", "weekdays", "hour", "minute", "amount", "unit", "isActive", "sortOrder", "startDate", "timeZoneIdentifier"},
		Rows:   make([][]string, 0, len(schedules)),
	}
	for _, schedule := range schedules {
		weekdays := make([]string, 0, len(schedule.Weekdays))
		for _, day := range schedule.Weekdays {
			weekdays = append(weekdays, strconv.Itoa(day))
		}
		startDate := ""
		if schedule.StartDate != nil {
			startDate = formatTime(*schedule.StartDate)
		}
		table.Rows = append(table.Rows, []string{
			schedule.ID.String(),
			schedule.MedicationID.String(),
			stringValue(schedule.Label),
			string(schedule.Cadence),
			strconv.Itoa(schedule.Interval),
			strings.Join(weekdays, "|"),
			strconv.Itoa(schedule.Hour),
			strconv.Itoa(schedule.Minute),
			decimalValue(schedule.Amount),
			stringValue(schedule.Unit),
			strconv.FormatBool(schedule.IsActive),
			strconv.Itoa(schedule.SortOrder),
			startDate,
			schedule.TimeZone,
		})
	}
	return table
}

func intakesTable(intakes []services.IntakeExport) Table {
	table := Table{
		Name:   "medication_intakes",
		Header: []string{"id", "medicationID", "entryID", "scheduleID", "origin", "timestamp", "scheduledDate", "amount", "unit", "notes"},
		Rows:   make([][]string, 0, len(intakes)),
	}
	for _, intake := range intakes {
		scheduledDate := ""
		if intake.ScheduledDate != nil {
			scheduledDate = formatTime(*intake.ScheduledDate)
		}
		table.Rows = append(table.Rows, []string{
			intake.ID.String(),
			intake.MedicationID.String(),
			optionalID(intake.EntryID),
			optionalID(intake.ScheduleID),
			string(intake.Origin),
			formatTime(intake.Timestamp),
			scheduledDate,
			decimalValue(intake.Amount),
			stringValue(intake.Unit),
			stringValue(intake.Notes),
		})
	}
	return table
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func decimalValue(value decimal.NullDecimal) string {
	if !value.Valid {
		return ""
	}
	return value.Decimal.String()
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func joinIDs(ids []uuid.UUID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.String())
	}
	return strings.Join(parts, "|")
}
