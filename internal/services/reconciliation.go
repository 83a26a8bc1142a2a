package services

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
)

type ReconciliationInput struct {
	Intakes     []models.Intake
	Entries     []models.Entry
	Medications []models.Medication
	Schedules   []models.Schedule
	Location    *time.Location
}

// ResolveEntryLinks maps intake IDs to the entry each intake belongs to.
// Explicit links win. Otherwise the entry of the same journal on the same
// calendar day closest in time is chosen, with ties going to the smallest
// entry ID. Intakes without a same-day entry stay unassigned.
func ResolveEntryLinks(input ReconciliationInput) map[uuid.UUID]uuid.UUID {
	links := make(map[uuid.UUID]uuid.UUID, len(input.Intakes))
	if len(input.Intakes) == 0 {
		return links
	}
	location := input.Location
	if location == nil {
		location = time.UTC
	}

	journalByMedication := make(map[uuid.UUID]uuid.UUID, len(input.Medications))
	for _, medication := range input.Medications {
		journalByMedication[medication.ID] = medication.JournalID
	}
	medicationBySchedule := make(map[uuid.UUID]uuid.UUID, len(input.Schedules))
	for _, schedule := range input.Schedules {
		medicationBySchedule[schedule.ID] = schedule.MedicationID
	}
	entriesByJournal := make(map[uuid.UUID][]models.Entry)
	for _, entry := range input.Entries {
		entriesByJournal[entry.JournalID] = append(entriesByJournal[entry.JournalID], entry)
	}

	for _, intake := range input.Intakes {
		if intake.EntryID != nil {
			links[intake.ID] = *intake.EntryID
			continue
		}

		journalID, ok := journalByMedication[intake.MedicationID]
		if !ok && intake.ScheduleID != nil {
			if medicationID, found := medicationBySchedule[*intake.ScheduleID]; found {
				journalID, ok = journalByMedication[medicationID]
			}
		}
		if !ok {
			continue
		}

		if entryID, found := nearestSameDayEntry(entriesByJournal[journalID], intake.Timestamp, location); found {
			links[intake.ID] = entryID
		}
	}
	return links
}

func nearestSameDayEntry(candidates []models.Entry, moment time.Time, location *time.Location) (uuid.UUID, bool) {
	var (
		best     uuid.UUID
		bestDiff time.Duration
		found    bool
	)
	for _, candidate := range candidates {
		if !SameDay(candidate.Timestamp, moment, location) {
			continue
		}
		diff := absDuration(candidate.Timestamp.Sub(moment))
		if !found || diff < bestDiff || (diff == bestDiff && bytes.Compare(candidate.ID[:], best[:]) < 0) {
			best, bestDiff, found = candidate.ID, diff, true
		}
	}
	return best, found
}
