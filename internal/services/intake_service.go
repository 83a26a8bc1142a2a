package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/models"
	"go.uber.org/zap"
)

const DefaultMatchTolerance = 15 * time.Minute

var (
	ErrIntakeNotFound    = errors.New("intake not found")
	ErrInvalidIntakeDose = errors.New("invalid intake dose")
)

// IntakeTx is the slice of the store the intake workflows read and write.
// Implementations returned by Atomically run every call in one transaction.
type IntakeTx interface {
	FindMedication(id uuid.UUID) (models.Medication, bool, error)
	ListSchedules(medicationID uuid.UUID) ([]models.Schedule, error)
	ListScheduledIntakes(scheduleID uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error)
	ListUnscheduledIntakes(medicationID uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error)
	FindIntake(id uuid.UUID) (models.Intake, bool, error)
	CreateIntake(intake *models.Intake) error
	SaveIntake(intake *models.Intake) error
	DeleteIntakes(ids []uuid.UUID) error
	SaveMedication(medication *models.Medication) error
}

type IntakeStore interface {
	IntakeTx
	Atomically(fn func(tx IntakeTx) error) error
}

type IntakeService struct {
	store     IntakeStore
	notifier  ChangeNotifier
	logger    *zap.Logger
	tolerance time.Duration
	now       func() time.Time
}

// MedicationDefaults is the suggested dose written back to a medication after
// an as-needed log.
type MedicationDefaults struct {
	Amount decimal.NullDecimal
	Unit   *string
}

type AsNeededLog struct {
	Intake   models.Intake
	Defaults MedicationDefaults
}

// IntakeEdit carries the user-editable fields of an intake. Nil fields are left untouched.
type IntakeEdit struct {
	Amount      *decimal.Decimal
	ClearAmount bool
	Unit        *string
	Timestamp   *time.Time
	Notes       *string
}

func NewIntakeService(store IntakeStore, notifier ChangeNotifier, logger *zap.Logger) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &IntakeService{
		store:     store,
		notifier:  notifier,
		logger:    logger,
		tolerance: DefaultMatchTolerance,
		now:       time.Now,
	}
}

func (service *IntakeService) WithClock(now func() time.Time) *IntakeService {
	service.now = now
	return service
}

// MatchScheduledIntake picks the scheduled intake of scheduleID nearest to
// occurrence within tolerance. Equal distances resolve to the smaller ID.
func MatchScheduledIntake(intakes []models.Intake, scheduleID uuid.UUID, occurrence time.Time, tolerance time.Duration) (models.Intake, bool) {
	var (
		best     models.Intake
		bestDiff time.Duration
		found    bool
	)
	for _, intake := range intakes {
		if intake.Origin != models.OriginScheduled || intake.ScheduleID == nil || *intake.ScheduleID != scheduleID {
			continue
		}
		if intake.ScheduledDate == nil {
			continue
		}
		diff := absDuration(intake.ScheduledDate.Sub(occurrence))
		if diff > tolerance {
			continue
		}
		if !found || diff < bestDiff || (diff == bestDiff && intake.ID.String() < best.ID.String()) {
			best, bestDiff, found = intake, diff, true
		}
	}
	return best, found
}

// ScheduledDose resolves the amount and unit a scheduled intake is recorded with.
func ScheduledDose(schedule models.Schedule, medication models.Medication) (decimal.NullDecimal, *string) {
	amount := schedule.Amount
	if !amount.Valid {
		amount = medication.DefaultAmount
	}
	unit := schedule.Unit
	if unit == nil {
		unit = medication.DefaultUnit
	}
	return amount, copyString(unit)
}

// PlanAsNeededLog builds the intake for an as-needed dose and the defaults the
// medication should carry afterwards. It does not touch the store.
func PlanAsNeededLog(medication models.Medication, schedules []models.Schedule, amount *decimal.Decimal, unit *string, at time.Time) AsNeededLog {
	resolvedAmount := medication.DefaultAmount
	if amount != nil {
		resolvedAmount = decimal.NewNullDecimal(*amount)
	}

	resolvedUnit := trimmedOrNil(unit)
	if resolvedUnit == nil {
		resolvedUnit = copyString(medication.DefaultUnit)
	}
	if resolvedUnit == nil {
		ordered := sortedSchedules(schedules)
		if len(ordered) > 0 {
			resolvedUnit = copyString(ordered[0].Unit)
		}
	}

	defaults := MedicationDefaults{Amount: medication.DefaultAmount, Unit: copyString(medication.DefaultUnit)}
	if resolvedAmount.Valid {
		defaults.Amount = resolvedAmount
	}
	if resolvedUnit != nil {
		defaults.Unit = copyString(resolvedUnit)
	}

	return AsNeededLog{
		Intake: models.Intake{
			MedicationID: medication.ID,
			Amount:       resolvedAmount,
			Unit:         resolvedUnit,
			Timestamp:    at,
			Origin:       models.OriginAsNeeded,
		},
		Defaults: defaults,
	}
}

// QuickLogLoggedAt is the timestamp recorded when a dose is ticked off without
// an explicit time: now for today, the occurrence itself for past days.
func QuickLogLoggedAt(day time.Time, occurrence time.Time, now time.Time, location *time.Location) time.Time {
	if SameDay(day, now, location) {
		return now
	}
	return occurrence
}

func (service *IntakeService) FindScheduledIntake(schedule models.Schedule, occurrence time.Time) (*models.Intake, error) {
	intakes, err := service.store.ListScheduledIntakes(schedule.ID, occurrence.Add(-service.tolerance), occurrence.Add(service.tolerance))
	if err != nil {
		return nil, storeError("list scheduled intakes", err)
	}
	match, ok := MatchScheduledIntake(intakes, schedule.ID, occurrence, service.tolerance)
	if !ok {
		return nil, nil
	}
	return &match, nil
}

// ScheduledIntakeOn returns the intake recorded for schedule on day, if any.
func (service *IntakeService) ScheduledIntakeOn(schedule models.Schedule, day time.Time, location *time.Location) (*models.Intake, error) {
	occurrence, ok := OccurrenceOn(schedule, day, location)
	if !ok {
		return nil, nil
	}
	return service.FindScheduledIntake(schedule, occurrence)
}

// SetScheduledIntake marks the occurrence of schedule on day as taken or not.
// Repeating a call with the same arguments changes nothing. Without loggedAt
// the intake is stamped per QuickLogLoggedAt so it lands on day.
func (service *IntakeService) SetScheduledIntake(schedule models.Schedule, day time.Time, location *time.Location, taken bool, loggedAt *time.Time) (*models.Intake, error) {
	occurrence, ok := OccurrenceOn(schedule, day, location)
	if !ok {
		return nil, nil
	}

	var (
		result    *models.Intake
		journalID uuid.UUID
		changed   bool
	)
	err := service.store.Atomically(func(tx IntakeTx) error {
		medication, found, err := tx.FindMedication(schedule.MedicationID)
		if err != nil {
			return storeError("find medication", err)
		}
		if !found {
			return nil
		}
		journalID = medication.JournalID

		candidates, err := tx.ListScheduledIntakes(schedule.ID, occurrence.Add(-service.tolerance), occurrence.Add(service.tolerance))
		if err != nil {
			return storeError("list scheduled intakes", err)
		}
		existing, exists := MatchScheduledIntake(candidates, schedule.ID, occurrence, service.tolerance)

		switch {
		case taken && exists:
			result = &existing
			return nil
		case taken:
			timestamp := QuickLogLoggedAt(day, occurrence, service.now(), location)
			if loggedAt != nil {
				timestamp = *loggedAt
			}
			amount, unit := ScheduledDose(schedule, medication)
			scheduleID := schedule.ID
			scheduledDate := occurrence
			intake := models.Intake{
				MedicationID:  medication.ID,
				ScheduleID:    &scheduleID,
				Amount:        amount,
				Unit:          unit,
				Timestamp:     timestamp,
				ScheduledDate: &scheduledDate,
				Origin:        models.OriginScheduled,
			}
			if err := tx.CreateIntake(&intake); err != nil {
				return storeError("create intake", err)
			}
			if err := service.touchMedication(tx, &medication); err != nil {
				return err
			}
			result = &intake
			changed = true
			return nil
		case exists:
			if err := tx.DeleteIntakes([]uuid.UUID{existing.ID}); err != nil {
				return storeError("delete intake", err)
			}
			if err := service.touchMedication(tx, &medication); err != nil {
				return err
			}
			changed = true
			return nil
		default:
			return nil
		}
	})
	if err != nil {
		service.logger.Error("set scheduled intake failed",
			zap.String("schedule_id", schedule.ID.String()),
			zap.Bool("taken", taken),
			zap.Error(err),
		)
		return nil, err
	}
	if changed {
		service.notify(journalID, ChangeIntakes)
	}
	return result, nil
}

// SetSourceIntake toggles a quick-log row. Synthetic schedules record manual
// intakes and clearing one removes every unscheduled intake of that day.
func (service *IntakeService) SetSourceIntake(source ScheduleSource, day time.Time, location *time.Location, taken bool, loggedAt *time.Time) (*models.Intake, error) {
	switch typed := source.(type) {
	case ExplicitSchedule:
		return service.SetScheduledIntake(typed.Schedule, day, location, taken, loggedAt)
	case SyntheticSchedule:
		return service.setSyntheticIntake(typed.Medication, day, location, taken, loggedAt)
	default:
		return nil, invariantError("unsupported schedule source %T", source)
	}
}

func (service *IntakeService) setSyntheticIntake(medication models.Medication, day time.Time, location *time.Location, taken bool, loggedAt *time.Time) (*models.Intake, error) {
	dayStart, dayEnd := DayRange(day, location)

	var (
		result    *models.Intake
		journalID uuid.UUID
		changed   bool
	)
	err := service.store.Atomically(func(tx IntakeTx) error {
		stored, found, err := tx.FindMedication(medication.ID)
		if err != nil {
			return storeError("find medication", err)
		}
		if !found {
			return nil
		}
		journalID = stored.JournalID

		existing, err := tx.ListUnscheduledIntakes(stored.ID, dayStart, dayEnd)
		if err != nil {
			return storeError("list unscheduled intakes", err)
		}

		if !taken {
			if len(existing) == 0 {
				return nil
			}
			ids := make([]uuid.UUID, 0, len(existing))
			for _, intake := range existing {
				ids = append(ids, intake.ID)
			}
			if err := tx.DeleteIntakes(ids); err != nil {
				return storeError("delete intakes", err)
			}
			changed = true
			return service.touchMedication(tx, &stored)
		}

		if len(existing) > 0 {
			sortIntakesByTimestamp(existing)
			result = &existing[0]
			return nil
		}

		timestamp := QuickLogLoggedAt(day, dayStart, service.now(), location)
		if occurrence, ok := (SyntheticSchedule{Medication: stored}).Occurrence(day, location); ok {
			timestamp = QuickLogLoggedAt(day, occurrence, service.now(), location)
		}
		if loggedAt != nil {
			timestamp = *loggedAt
		}
		intake := models.Intake{
			MedicationID: stored.ID,
			Amount:       stored.DefaultAmount,
			Unit:         copyString(stored.DefaultUnit),
			Timestamp:    timestamp,
			Origin:       models.OriginManual,
		}
		if err := tx.CreateIntake(&intake); err != nil {
			return storeError("create intake", err)
		}
		result = &intake
		changed = true
		return service.touchMedication(tx, &stored)
	})
	if err != nil {
		service.logger.Error("set synthetic intake failed",
			zap.String("medication_id", medication.ID.String()),
			zap.Bool("taken", taken),
			zap.Error(err),
		)
		return nil, err
	}
	if changed {
		service.notify(journalID, ChangeIntakes)
	}
	return result, nil
}

// LogAsNeeded records an as-needed dose and stores the dose used as the
// medication's new default, both in one transaction. A missing medication
// yields nil.
func (service *IntakeService) LogAsNeeded(medicationID uuid.UUID, amount *decimal.Decimal, unit *string, at time.Time) (*AsNeededLog, error) {
	if amount != nil && amount.IsNegative() {
		return nil, ErrInvalidIntakeDose
	}

	var result *AsNeededLog
	var journalID uuid.UUID
	err := service.store.Atomically(func(tx IntakeTx) error {
		medication, found, err := tx.FindMedication(medicationID)
		if err != nil {
			return storeError("find medication", err)
		}
		if !found {
			return nil
		}
		journalID = medication.JournalID
		schedules, err := tx.ListSchedules(medication.ID)
		if err != nil {
			return storeError("list schedules", err)
		}

		plan := PlanAsNeededLog(medication, schedules, amount, unit, at)
		if err := tx.CreateIntake(&plan.Intake); err != nil {
			return storeError("create intake", err)
		}

		medication.DefaultAmount = plan.Defaults.Amount
		medication.DefaultUnit = plan.Defaults.Unit
		medication.UpdatedAt = service.now()
		if err := tx.SaveMedication(&medication); err != nil {
			return storeError("save medication defaults", err)
		}
		result = &plan
		return nil
	})
	if err != nil {
		service.logger.Error("log as-needed intake failed", zap.String("medication_id", medicationID.String()), zap.Error(err))
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	service.notify(journalID, ChangeIntakes)
	return result, nil
}

// LogManualIntake back-fills a dose that was taken outside any schedule.
func (service *IntakeService) LogManualIntake(medicationID uuid.UUID, amount *decimal.Decimal, unit *string, at time.Time, notes *string) (*models.Intake, error) {
	if amount != nil && amount.IsNegative() {
		return nil, ErrInvalidIntakeDose
	}

	var result *models.Intake
	var journalID uuid.UUID
	err := service.store.Atomically(func(tx IntakeTx) error {
		medication, found, err := tx.FindMedication(medicationID)
		if err != nil {
			return storeError("find medication", err)
		}
		if !found {
			return nil
		}
		journalID = medication.JournalID

		intake := models.Intake{
			MedicationID: medication.ID,
			Amount:       medication.DefaultAmount,
			Unit:         copyString(medication.DefaultUnit),
			Timestamp:    at,
			Origin:       models.OriginManual,
			Notes:        trimmedOrNil(notes),
		}
		if amount != nil {
			intake.Amount = decimal.NewNullDecimal(*amount)
		}
		if resolved := trimmedOrNil(unit); resolved != nil {
			intake.Unit = resolved
		}
		if err := tx.CreateIntake(&intake); err != nil {
			return storeError("create intake", err)
		}
		result = &intake
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		service.notify(journalID, ChangeIntakes)
	}
	return result, nil
}

// UpdateIntake applies edit to the editable fields of an intake. The
// medication, schedule, entry, scheduled date and origin are preserved.
func (service *IntakeService) UpdateIntake(id uuid.UUID, edit IntakeEdit) (models.Intake, error) {
	if edit.Amount != nil && edit.Amount.IsNegative() {
		return models.Intake{}, ErrInvalidIntakeDose
	}

	var updated models.Intake
	var journalID uuid.UUID
	err := service.store.Atomically(func(tx IntakeTx) error {
		intake, found, err := tx.FindIntake(id)
		if err != nil {
			return storeError("find intake", err)
		}
		if !found {
			return ErrIntakeNotFound
		}

		updated = MergeIntakeEdit(intake, edit)
		if err := tx.SaveIntake(&updated); err != nil {
			return storeError("save intake", err)
		}
		if medication, found, err := tx.FindMedication(updated.MedicationID); err == nil && found {
			journalID = medication.JournalID
		}
		return nil
	})
	if err != nil {
		return models.Intake{}, err
	}
	service.notify(journalID, ChangeIntakes)
	return updated, nil
}

func MergeIntakeEdit(intake models.Intake, edit IntakeEdit) models.Intake {
	merged := intake
	switch {
	case edit.ClearAmount:
		merged.Amount = decimal.NullDecimal{}
	case edit.Amount != nil:
		merged.Amount = decimal.NewNullDecimal(*edit.Amount)
	}
	if edit.Unit != nil {
		merged.Unit = trimmedOrNil(edit.Unit)
	}
	if edit.Timestamp != nil {
		merged.Timestamp = *edit.Timestamp
	}
	if edit.Notes != nil {
		merged.Notes = trimmedOrNil(edit.Notes)
	}
	return merged
}

func (service *IntakeService) DeleteIntake(id uuid.UUID) error {
	var journalID uuid.UUID
	err := service.store.Atomically(func(tx IntakeTx) error {
		intake, found, err := tx.FindIntake(id)
		if err != nil {
			return storeError("find intake", err)
		}
		if !found {
			return ErrIntakeNotFound
		}
		if medication, found, err := tx.FindMedication(intake.MedicationID); err == nil && found {
			journalID = medication.JournalID
		}
		if err := tx.DeleteIntakes([]uuid.UUID{intake.ID}); err != nil {
			return storeError("delete intake", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	service.notify(journalID, ChangeIntakes)
	return nil
}

func (service *IntakeService) touchMedication(tx IntakeTx, medication *models.Medication) error {
	medication.UpdatedAt = service.now()
	if err := tx.SaveMedication(medication); err != nil {
		return storeError("touch medication", err)
	}
	return nil
}

func (service *IntakeService) notify(journalID uuid.UUID, kind ChangeKind) {
	if journalID == uuid.Nil {
		return
	}
	service.notifier.Notify(JournalChange{JournalID: journalID, Kind: kind, At: service.now()})
}

func sortedSchedules(schedules []models.Schedule) []models.Schedule {
	ordered := make([]models.Schedule, len(schedules))
	copy(ordered, schedules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].SortOrder != ordered[j].SortOrder {
			return ordered[i].SortOrder < ordered[j].SortOrder
		}
		if ordered[i].Hour != ordered[j].Hour {
			return ordered[i].Hour < ordered[j].Hour
		}
		return ordered[i].Minute < ordered[j].Minute
	})
	return ordered
}

func sortIntakesByTimestamp(intakes []models.Intake) {
	sort.SliceStable(intakes, func(i, j int) bool {
		if intakes[i].Timestamp.Equal(intakes[j].Timestamp) {
			return intakes[i].ID.String() < intakes[j].ID.String()
		}
		return intakes[i].Timestamp.Before(intakes[j].Timestamp)
	})
}

func absDuration(value time.Duration) time.Duration {
	if value < 0 {
		return -value
	}
	return value
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
