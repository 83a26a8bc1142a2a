package services

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
)

var ErrInvalidTrendRange = errors.New("invalid trend range")

const (
	MenstruatingLabel    = "Menstruating"
	NotMenstruatingLabel = "Not Menstruating"

	effectThreshold            = 0.1
	menstruationStableDelta    = 0.1
	menstruationInsightDelta   = 0.5
	medicationInsightDelta     = 1.0
	morningHighSeverity        = 7.0
	morningHighMinimumCount    = 3
	morningStartHour           = 5
	morningEndHour             = 11
	positiveSentimentThreshold = 0.4
	negativeSentimentThreshold = -0.1
)

type TrendRange string

const (
	TrendRangeWeek    TrendRange = "7d"
	TrendRangeMonth   TrendRange = "30d"
	TrendRangeQuarter TrendRange = "90d"
)

func ParseTrendRange(raw string) (TrendRange, error) {
	switch TrendRange(strings.ToLower(strings.TrimSpace(raw))) {
	case TrendRangeWeek, "":
		return TrendRangeWeek, nil
	case TrendRangeMonth:
		return TrendRangeMonth, nil
	case TrendRangeQuarter:
		return TrendRangeQuarter, nil
	default:
		return "", ErrInvalidTrendRange
	}
}

func (trendRange TrendRange) Days() int {
	switch trendRange {
	case TrendRangeMonth:
		return 30
	case TrendRangeQuarter:
		return 90
	default:
		return 7
	}
}

// Start is the instant the range begins for a report generated at now.
func (trendRange TrendRange) Start(now time.Time) time.Time {
	return now.Add(-time.Duration(trendRange.Days()) * 24 * time.Hour)
}

type Translator interface {
	Translatef(language string, key string, args ...any) string
}

// KeyTranslator echoes message keys. It stands in when no catalog is wired.
type KeyTranslator struct{}

func (KeyTranslator) Translatef(language string, key string, args ...any) string {
	return key
}

type DailySeverityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

type HeatmapCell struct {
	Weekday time.Weekday `json:"weekday"`
	Hour    int          `json:"hour"`
	Value   float64      `json:"value"`
}

type MedicationEffect struct {
	MedicationID uuid.UUID `json:"medication_id"`
	Name         string    `json:"name"`
	Delta        float64   `json:"delta"`
}

type MenstruationAverage struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

type PainPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type AsNeededUsage struct {
	Label           string   `json:"label"`
	Count           int      `json:"count"`
	MedicationNames []string `json:"medication_names"`
}

type SentimentOverview struct {
	AverageScore         *float64 `json:"average_score,omitempty"`
	LabeledCount         int      `json:"labeled_count"`
	PendingAnalysisCount int      `json:"pending_analysis_count"`
	Tone                 string   `json:"tone,omitempty"`
	Description          string   `json:"description"`
}

type InsightKind string

const (
	InsightMorningHighs     InsightKind = "morning_highs"
	InsightMedicationEffect InsightKind = "medication_effect"
	InsightMenstruation     InsightKind = "menstruation"
)

type TrendInsight struct {
	Kind   InsightKind `json:"kind"`
	Title  string      `json:"title"`
	Detail string      `json:"detail,omitempty"`
}

type TrendReport struct {
	Range                TrendRange            `json:"range"`
	Start                time.Time             `json:"start"`
	End                  time.Time             `json:"end"`
	DailySeverity        []DailySeverityPoint  `json:"daily_severity"`
	Heatmap              []HeatmapCell         `json:"heatmap"`
	MedicationEffects    []MedicationEffect    `json:"medication_effects"`
	MenstruationAverages []MenstruationAverage `json:"menstruation_averages"`
	MenstruationDelta    string                `json:"menstruation_delta,omitempty"`
	PainBreakdown        []PainPoint           `json:"pain_breakdown"`
	AsNeededUsage        []AsNeededUsage       `json:"as_needed_usage"`
	Sentiment            *SentimentOverview    `json:"sentiment,omitempty"`
	Adherence            []AdherenceSummary    `json:"adherence"`
	Insights             []TrendInsight        `json:"insights"`
}

// TrendCalculator derives symptom trends from one snapshot of a journal.
// Every method only looks at entries and intakes between start and now.
type TrendCalculator struct {
	Entries     []models.Entry
	Intakes     []models.Intake
	Medications []models.Medication
	Location    *time.Location
	Translator  Translator
	Language    string
}

// SeverityValue is the entry's severity, or the mean of its positive
// sub-scores when severity was left at zero.
func SeverityValue(entry models.Entry) (float64, bool) {
	if entry.Severity > 0 {
		return float64(entry.Severity), true
	}
	return positiveMean(float64(entry.Headache), float64(entry.Nausea), float64(entry.Anxiety))
}

func (calculator TrendCalculator) DailySeverity(start time.Time, now time.Time) []DailySeverityPoint {
	location := calculator.location()
	grouped := map[time.Time][]float64{}
	for _, entry := range calculator.entriesIn(start, now) {
		value, ok := SeverityValue(entry)
		if !ok {
			continue
		}
		day := DateAtLocation(entry.Timestamp, location)
		grouped[day] = append(grouped[day], value)
	}

	points := make([]DailySeverityPoint, 0, len(grouped))
	for day, values := range grouped {
		points = append(points, DailySeverityPoint{Date: day, Value: mean(values)})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

func (calculator TrendCalculator) HourlyHeatmap(start time.Time, now time.Time) []HeatmapCell {
	location := calculator.location()
	type weekHour struct {
		weekday time.Weekday
		hour    int
	}
	grouped := map[weekHour][]float64{}
	for _, entry := range calculator.entriesIn(start, now) {
		value, ok := SeverityValue(entry)
		if !ok {
			continue
		}
		local := entry.Timestamp.In(location)
		key := weekHour{weekday: local.Weekday(), hour: local.Hour()}
		grouped[key] = append(grouped[key], value)
	}

	cells := make([]HeatmapCell, 0, len(grouped))
	for key, values := range grouped {
		cells = append(cells, HeatmapCell{Weekday: key.weekday, Hour: key.hour, Value: mean(values)})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Weekday != cells[j].Weekday {
			return cells[i].Weekday < cells[j].Weekday
		}
		return cells[i].Hour < cells[j].Hour
	})
	return cells
}

// MedicationEffects compares the baseline daily severity with the severity on
// days a medication was taken or was due. Positive deltas mean lower severity.
func (calculator TrendCalculator) MedicationEffects(start time.Time, now time.Time) []MedicationEffect {
	points := calculator.DailySeverity(start, now)
	if len(points) == 0 {
		return []MedicationEffect{}
	}
	location := calculator.location()

	severityByDay := make(map[time.Time]float64, len(points))
	values := make([]float64, 0, len(points))
	for _, point := range points {
		severityByDay[point.Date] = point.Value
		values = append(values, point.Value)
	}
	baseline := mean(values)

	days := map[uuid.UUID]map[time.Time]struct{}{}
	for _, intake := range calculator.intakesIn(start, now) {
		if days[intake.MedicationID] == nil {
			days[intake.MedicationID] = map[time.Time]struct{}{}
		}
		days[intake.MedicationID][DateAtLocation(intake.Timestamp, location)] = struct{}{}
		if intake.ScheduledDate != nil {
			days[intake.MedicationID][DateAtLocation(*intake.ScheduledDate, location)] = struct{}{}
		}
	}

	names := calculator.medicationNames()
	effects := make([]MedicationEffect, 0, len(days))
	for medicationID, medicationDays := range days {
		daySeverities := make([]float64, 0, len(medicationDays))
		for day := range medicationDays {
			if value, ok := severityByDay[day]; ok {
				daySeverities = append(daySeverities, value)
			}
		}
		if len(daySeverities) == 0 {
			continue
		}
		delta := baseline - mean(daySeverities)
		if math.Abs(delta) <= effectThreshold {
			continue
		}
		name, ok := names[medicationID]
		if !ok {
			name = "Medication"
		}
		effects = append(effects, MedicationEffect{MedicationID: medicationID, Name: name, Delta: delta})
	}

	sort.Slice(effects, func(i, j int) bool {
		if effects[i].Delta != effects[j].Delta {
			return effects[i].Delta > effects[j].Delta
		}
		if effects[i].Name != effects[j].Name {
			return effects[i].Name < effects[j].Name
		}
		return effects[i].MedicationID.String() < effects[j].MedicationID.String()
	})
	return effects
}

func (calculator TrendCalculator) MenstruationAverages(start time.Time, now time.Time) []MenstruationAverage {
	type partition struct {
		values []float64
		count  int
	}
	partitions := map[bool]*partition{}
	for _, entry := range calculator.entriesIn(start, now) {
		bucket, ok := partitions[entry.IsMenstruating]
		if !ok {
			bucket = &partition{}
			partitions[entry.IsMenstruating] = bucket
		}
		bucket.count++
		if value, ok := SeverityValue(entry); ok {
			bucket.values = append(bucket.values, value)
		}
	}

	averages := make([]MenstruationAverage, 0, 2)
	for menstruating, bucket := range partitions {
		if len(bucket.values) == 0 {
			continue
		}
		label := NotMenstruatingLabel
		if menstruating {
			label = MenstruatingLabel
		}
		averages = append(averages, MenstruationAverage{Label: label, Value: mean(bucket.values), Count: bucket.count})
	}
	sort.Slice(averages, func(i, j int) bool {
		return averages[i].Label < averages[j].Label
	})
	return averages
}

// MenstruationDelta is the average severity while menstruating minus the
// average otherwise. ok is false unless both partitions have values.
func (calculator TrendCalculator) MenstruationDelta(start time.Time, now time.Time) (float64, bool) {
	var menstruating, other *MenstruationAverage
	averages := calculator.MenstruationAverages(start, now)
	for index := range averages {
		switch averages[index].Label {
		case MenstruatingLabel:
			menstruating = &averages[index]
		case NotMenstruatingLabel:
			other = &averages[index]
		}
	}
	if menstruating == nil || other == nil {
		return 0, false
	}
	return menstruating.Value - other.Value, true
}

func (calculator TrendCalculator) MenstruationDeltaDescription(start time.Time, now time.Time) string {
	delta, ok := calculator.MenstruationDelta(start, now)
	if !ok {
		return ""
	}
	switch {
	case math.Abs(delta) < menstruationStableDelta:
		return calculator.translate("trends.menstruation.stable")
	case delta > 0:
		return calculator.translate("trends.menstruation.higher", math.Abs(delta))
	default:
		return calculator.translate("trends.menstruation.lower", math.Abs(delta))
	}
}

func (calculator TrendCalculator) PainBreakdown(start time.Time, now time.Time) []PainPoint {
	entries := calculator.entriesIn(start, now)
	points := make([]PainPoint, 0, 4)
	if len(entries) == 0 {
		return points
	}

	overall := make([]float64, 0, len(entries))
	headache := make([]float64, 0, len(entries))
	nausea := make([]float64, 0, len(entries))
	anxiety := make([]float64, 0, len(entries))
	for _, entry := range entries {
		if value, ok := SeverityValue(entry); ok {
			overall = append(overall, value)
		}
		headache = appendPositive(headache, entry.Headache)
		nausea = appendPositive(nausea, entry.Nausea)
		anxiety = appendPositive(anxiety, entry.Anxiety)
	}

	for _, series := range []struct {
		label  string
		values []float64
	}{
		{label: "Overall", values: overall},
		{label: "Headache", values: headache},
		{label: "Nausea", values: nausea},
		{label: "Anxiety", values: anxiety},
	} {
		if len(series.values) > 0 {
			points = append(points, PainPoint{Label: series.label, Value: mean(series.values)})
		}
	}
	return points
}

// AsNeededUsage groups as-needed doses by the medication's use case.
func (calculator TrendCalculator) AsNeededUsage(start time.Time, now time.Time) []AsNeededUsage {
	medications := make(map[uuid.UUID]models.Medication, len(calculator.Medications))
	for _, medication := range calculator.Medications {
		medications[medication.ID] = medication
	}

	type usage struct {
		count int
		names map[string]struct{}
	}
	groups := map[string]*usage{}
	for _, intake := range calculator.intakesIn(start, now) {
		if intake.Origin != models.OriginAsNeeded {
			continue
		}
		name := "Medication"
		label := name
		if medication, ok := medications[intake.MedicationID]; ok {
			name = medicationDisplayName(medication)
			label = medication.UseCaseLabel()
		}
		group, ok := groups[label]
		if !ok {
			group = &usage{names: map[string]struct{}{}}
			groups[label] = group
		}
		group.count++
		group.names[name] = struct{}{}
	}

	result := make([]AsNeededUsage, 0, len(groups))
	for label, group := range groups {
		names := make([]string, 0, len(group.names))
		for name := range group.names {
			names = append(names, name)
		}
		sort.Strings(names)
		result = append(result, AsNeededUsage{Label: label, Count: group.count, MedicationNames: names})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	return result
}

func (calculator TrendCalculator) SentimentOverview(start time.Time, now time.Time) *SentimentOverview {
	entries := calculator.entriesIn(start, now)
	if len(entries) == 0 {
		return nil
	}

	scores := make([]float64, 0, len(entries))
	pending := 0
	for _, entry := range entries {
		if entry.SentimentScore != nil {
			scores = append(scores, *entry.SentimentScore)
			continue
		}
		if entry.Note != nil && strings.TrimSpace(*entry.Note) != "" {
			pending++
		}
	}

	overview := &SentimentOverview{LabeledCount: len(scores), PendingAnalysisCount: pending}
	if len(scores) == 0 {
		overview.Description = calculator.translate("trends.sentiment.pending")
		return overview
	}

	average := mean(scores)
	overview.AverageScore = &average
	switch {
	case average >= positiveSentimentThreshold:
		overview.Tone = "positive"
	case average <= negativeSentimentThreshold:
		overview.Tone = "concerning"
	default:
		overview.Tone = "neutral"
	}
	overview.Description = calculator.translate("trends.sentiment.average", average, calculator.translate("trends.sentiment.tone."+overview.Tone))
	return overview
}

// Insights runs the three heuristics independently; any subset may fire.
func (calculator TrendCalculator) Insights(trendRange TrendRange, start time.Time, now time.Time) []TrendInsight {
	entries := calculator.entriesIn(start, now)
	insights := make([]TrendInsight, 0, 3)
	if len(entries) == 0 {
		return insights
	}
	location := calculator.location()

	morningHighs := 0
	for _, entry := range entries {
		hour := entry.Timestamp.In(location).Hour()
		if hour < morningStartHour || hour >= morningEndHour {
			continue
		}
		if value, ok := SeverityValue(entry); ok && value >= morningHighSeverity {
			morningHighs++
		}
	}
	if morningHighs >= morningHighMinimumCount {
		if trendRange == TrendRangeWeek {
			insights = append(insights, TrendInsight{
				Kind:   InsightMorningHighs,
				Title:  calculator.translate("insight.morning_highs.week.title", morningHighs),
				Detail: calculator.translate("insight.morning_highs.week.detail"),
			})
		} else {
			insights = append(insights, TrendInsight{
				Kind:   InsightMorningHighs,
				Title:  calculator.translate("insight.morning_highs.range.title", morningHighs, string(trendRange)),
				Detail: calculator.translate("insight.morning_highs.range.detail"),
			})
		}
	}

	if effects := calculator.MedicationEffects(start, now); len(effects) > 0 && effects[0].Delta > medicationInsightDelta {
		insights = append(insights, TrendInsight{
			Kind:   InsightMedicationEffect,
			Title:  calculator.translate("insight.medication_effect.title", effects[0].Name, effects[0].Delta),
			Detail: calculator.translate("insight.medication_effect.detail"),
		})
	}

	if delta, ok := calculator.MenstruationDelta(start, now); ok && math.Abs(delta) >= menstruationInsightDelta {
		key := "insight.menstruation.lower.title"
		if delta > 0 {
			key = "insight.menstruation.higher.title"
		}
		insights = append(insights, TrendInsight{
			Kind:   InsightMenstruation,
			Title:  calculator.translate(key, math.Abs(delta)),
			Detail: calculator.translate("insight.menstruation.detail"),
		})
	}

	return insights
}

func (calculator TrendCalculator) location() *time.Location {
	if calculator.Location == nil {
		return time.UTC
	}
	return calculator.Location
}

func (calculator TrendCalculator) translate(key string, args ...any) string {
	if calculator.Translator == nil {
		return KeyTranslator{}.Translatef(calculator.Language, key, args...)
	}
	return calculator.Translator.Translatef(calculator.Language, key, args...)
}

func (calculator TrendCalculator) entriesIn(start time.Time, now time.Time) []models.Entry {
	filtered := make([]models.Entry, 0, len(calculator.Entries))
	for _, entry := range calculator.Entries {
		if withinClosed(entry.Timestamp, start, now) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func (calculator TrendCalculator) intakesIn(start time.Time, now time.Time) []models.Intake {
	filtered := make([]models.Intake, 0, len(calculator.Intakes))
	for _, intake := range calculator.Intakes {
		if withinClosed(intake.Timestamp, start, now) {
			filtered = append(filtered, intake)
		}
	}
	return filtered
}

func (calculator TrendCalculator) medicationNames() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(calculator.Medications))
	for _, medication := range calculator.Medications {
		names[medication.ID] = medicationDisplayName(medication)
	}
	return names
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, value := range values {
		total += value
	}
	return total / float64(len(values))
}

func positiveMean(values ...float64) (float64, bool) {
	positive := make([]float64, 0, len(values))
	for _, value := range values {
		if value > 0 {
			positive = append(positive, value)
		}
	}
	if len(positive) == 0 {
		return 0, false
	}
	return mean(positive), true
}

func appendPositive(values []float64, score int) []float64 {
	if score > 0 {
		return append(values, float64(score))
	}
	return values
}
