package services

import (
	"time"

	"github.com/google/uuid"
)

type TrendService struct {
	medications MedicationReader
	schedules   ScheduleReader
	intakes     IntakeReader
	entries     EntryReader
	translator  Translator
}

func NewTrendService(medications MedicationReader, schedules ScheduleReader, intakes IntakeReader, entries EntryReader, translator Translator) *TrendService {
	if translator == nil {
		translator = KeyTranslator{}
	}
	return &TrendService{
		medications: medications,
		schedules:   schedules,
		intakes:     intakes,
		entries:     entries,
		translator:  translator,
	}
}

func (service *TrendService) Report(journalID uuid.UUID, trendRange TrendRange, now time.Time, location *time.Location, language string) (TrendReport, error) {
	start := trendRange.Start(now)
	end := now.Add(time.Nanosecond)

	medications, err := service.medications.ListByJournal(journalID)
	if err != nil {
		return TrendReport{}, storeError("list medications", err)
	}
	ids := medicationIDs(medications)
	schedules, err := service.schedules.ListByMedications(ids)
	if err != nil {
		return TrendReport{}, storeError("list schedules", err)
	}
	intakes, err := service.intakes.ListByMedicationsInRange(ids, start, end)
	if err != nil {
		return TrendReport{}, storeError("list intakes", err)
	}
	entries, err := service.entries.ListByJournalInRange(journalID, start, end)
	if err != nil {
		return TrendReport{}, storeError("list entries", err)
	}

	calculator := TrendCalculator{
		Entries:     entries,
		Intakes:     intakes,
		Medications: medications,
		Location:    location,
		Translator:  service.translator,
		Language:    language,
	}

	return TrendReport{
		Range:                trendRange,
		Start:                start,
		End:                  now,
		DailySeverity:        calculator.DailySeverity(start, now),
		Heatmap:              calculator.HourlyHeatmap(start, now),
		MedicationEffects:    calculator.MedicationEffects(start, now),
		MenstruationAverages: calculator.MenstruationAverages(start, now),
		MenstruationDelta:    calculator.MenstruationDeltaDescription(start, now),
		PainBreakdown:        calculator.PainBreakdown(start, now),
		AsNeededUsage:        calculator.AsNeededUsage(start, now),
		Sentiment:            calculator.SentimentOverview(start, now),
		Adherence: BuildAdherenceReport(AdherenceInput{
			Start:       start,
			Now:         now,
			Location:    location,
			Medications: medications,
			Schedules:   schedules,
			Intakes:     intakes,
		}),
		Insights: calculator.Insights(trendRange, start, now),
	}, nil
}
