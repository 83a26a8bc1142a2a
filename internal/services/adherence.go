package services

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/models"
)

type AdherenceSummary struct {
	MedicationID   uuid.UUID           `json:"medication_id"`
	Name           string              `json:"name"`
	UseCase        string              `json:"use_case,omitempty"`
	IsAsNeeded     bool                `json:"is_as_needed"`
	ScheduledCount int                 `json:"scheduled_count"`
	TakenCount     int                 `json:"taken_count"`
	AdherenceRate  float64             `json:"adherence_rate"`
	AverageAmount  decimal.NullDecimal `json:"average_amount"`
	AverageUnit    *string             `json:"average_unit,omitempty"`
	AverageDose    string              `json:"average_dose,omitempty"`
}

type AdherenceInput struct {
	Start       time.Time
	Now         time.Time
	Location    *time.Location
	Medications []models.Medication
	Schedules   []models.Schedule
	// Intakes must cover every intake whose timestamp lies in [Start, Now].
	Intakes   []models.Intake
	Tolerance time.Duration
}

type AdherenceService struct {
	medications MedicationReader
	schedules   ScheduleReader
	intakes     IntakeReader
}

func NewAdherenceService(medications MedicationReader, schedules ScheduleReader, intakes IntakeReader) *AdherenceService {
	return &AdherenceService{
		medications: medications,
		schedules:   schedules,
		intakes:     intakes,
	}
}

func (service *AdherenceService) Report(journalID uuid.UUID, start time.Time, now time.Time, location *time.Location) ([]AdherenceSummary, error) {
	medications, err := service.medications.ListByJournal(journalID)
	if err != nil {
		return nil, storeError("list medications", err)
	}
	ids := medicationIDs(medications)
	schedules, err := service.schedules.ListByMedications(ids)
	if err != nil {
		return nil, storeError("list schedules", err)
	}
	intakes, err := service.intakes.ListByMedicationsInRange(ids, start, now.Add(time.Nanosecond))
	if err != nil {
		return nil, storeError("list intakes", err)
	}

	return BuildAdherenceReport(AdherenceInput{
		Start:       start,
		Now:         now,
		Location:    location,
		Medications: medications,
		Schedules:   schedules,
		Intakes:     intakes,
	}), nil
}

// AdherenceRate is taken over scheduled clamped to [0, 1]. Without scheduled
// doses any intake counts as full adherence.
func AdherenceRate(scheduledCount int, takenCount int) float64 {
	if scheduledCount <= 0 {
		if takenCount > 0 {
			return 1
		}
		return 0
	}
	rate := float64(takenCount) / float64(scheduledCount)
	if rate > 1 {
		return 1
	}
	if rate < 0 {
		return 0
	}
	return rate
}

func BuildAdherenceReport(input AdherenceInput) []AdherenceSummary {
	location := input.Location
	if location == nil {
		location = time.UTC
	}
	tolerance := input.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultMatchTolerance
	}

	inRange := make([]models.Intake, 0, len(input.Intakes))
	for _, intake := range input.Intakes {
		if withinClosed(intake.Timestamp, input.Start, input.Now) {
			inRange = append(inRange, intake)
		}
	}
	intakesByMed := intakesByMedication(inRange)
	schedulesByMed := schedulesByMedication(input.Schedules)

	report := make([]AdherenceSummary, 0, len(input.Medications))
	for _, medication := range input.Medications {
		medicationIntakes := intakesByMed[medication.ID]

		scheduledCount, takenCount := 0, 0
		if medication.IsAsNeeded {
			takenCount = len(medicationIntakes)
		} else {
			for _, schedule := range schedulesByMed[medication.ID] {
				if !schedule.IsActive {
					continue
				}
				scheduled, taken := countScheduleAdherence(schedule, medicationIntakes, input.Start, input.Now, location, tolerance)
				scheduledCount += scheduled
				takenCount += taken
			}
			for _, intake := range medicationIntakes {
				if intake.Origin != models.OriginScheduled {
					takenCount++
				}
			}
		}

		if scheduledCount == 0 && takenCount == 0 {
			continue
		}

		summary := AdherenceSummary{
			MedicationID:   medication.ID,
			Name:           medicationDisplayName(medication),
			UseCase:        medication.UseCaseLabel(),
			IsAsNeeded:     medication.IsAsNeeded,
			ScheduledCount: scheduledCount,
			TakenCount:     takenCount,
			AdherenceRate:  AdherenceRate(scheduledCount, takenCount),
		}
		summary.AverageAmount, summary.AverageUnit = averageDose(medicationIntakes, medication.DefaultUnit)
		if summary.AverageAmount.Valid {
			summary.AverageDose = FormatDose(summary.AverageAmount, summary.AverageUnit)
		}
		report = append(report, summary)
	}

	sort.SliceStable(report, func(i, j int) bool {
		if report[i].ScheduledCount != report[j].ScheduledCount {
			return report[i].ScheduledCount > report[j].ScheduledCount
		}
		return report[i].Name < report[j].Name
	})
	return report
}

// countScheduleAdherence walks every calendar day from the later of start and
// the schedule's start date up to now.
func countScheduleAdherence(schedule models.Schedule, intakes []models.Intake, start time.Time, now time.Time, location *time.Location, tolerance time.Duration) (int, int) {
	firstDay := CivilDate(start, location)
	if schedule.StartDate != nil {
		if anchorDay := CivilDate(*schedule.StartDate, location); anchorDay.After(firstDay) {
			firstDay = anchorDay
		}
	}
	lastDay := CivilDate(now, location)

	scheduled, taken := 0, 0
	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		occurrence, ok := OccurrenceOn(schedule, atCivilDate(day, location), location)
		if !ok || !withinClosed(occurrence, start, now) {
			continue
		}
		scheduled++
		if match, found := MatchScheduledIntake(intakes, schedule.ID, occurrence, tolerance); found && withinClosed(match.Timestamp, start, now) {
			taken++
		}
	}
	return scheduled, taken
}

// averageDose averages the recorded amounts and pairs them with the most
// frequent unit. Ties go to the alphabetically first unit.
func averageDose(intakes []models.Intake, fallbackUnit *string) (decimal.NullDecimal, *string) {
	sum := decimal.Zero
	count := 0
	unitCounts := map[string]int{}
	for _, intake := range intakes {
		if !intake.Amount.Valid {
			continue
		}
		sum = sum.Add(intake.Amount.Decimal)
		count++
		if intake.Unit != nil {
			if unit := strings.TrimSpace(*intake.Unit); unit != "" {
				unitCounts[unit]++
			}
		}
	}
	if count == 0 {
		return decimal.NullDecimal{}, nil
	}

	average := sum.DivRound(decimal.NewFromInt(int64(count)), 8).Round(doseDecimalPlaces)

	var (
		unit      string
		unitCount int
	)
	for candidate, candidateCount := range unitCounts {
		if candidateCount > unitCount || (candidateCount == unitCount && candidate < unit) {
			unit, unitCount = candidate, candidateCount
		}
	}
	if unitCount == 0 {
		return decimal.NewNullDecimal(average), copyString(fallbackUnit)
	}
	return decimal.NewNullDecimal(average), &unit
}
