package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/models"
	"go.uber.org/zap"
)

var (
	ErrScheduleNotFound    = errors.New("schedule not found")
	ErrAsNeededSchedule    = errors.New("as-needed medications cannot carry schedules")
	ErrInvalidScheduleDose = errors.New("invalid schedule dose")
)

type ScheduleRepository interface {
	FindByID(id uuid.UUID) (models.Schedule, bool, error)
	ListByMedication(medicationID uuid.UUID) ([]models.Schedule, error)
	Create(schedule *models.Schedule) error
	Save(schedule *models.Schedule) error
	// Delete removes the schedule. Intakes recorded against it are kept as manual intakes.
	Delete(id uuid.UUID) error
}

type ScheduleInput struct {
	Label     *string
	Amount    *decimal.Decimal
	Unit      *string
	Cadence   string
	Interval  int
	Weekdays  []int
	Hour      int
	Minute    int
	TimeZone  string
	StartDate *time.Time
	IsActive  *bool
	SortOrder *int
}

type ScheduleService struct {
	medications MedicationRepository
	schedules   ScheduleRepository
	notifier    ChangeNotifier
	logger      *zap.Logger
	now         func() time.Time
}

func NewScheduleService(medications MedicationRepository, schedules ScheduleRepository, notifier ChangeNotifier, logger *zap.Logger) *ScheduleService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		medications: medications,
		schedules:   schedules,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

func (service *ScheduleService) Find(id uuid.UUID) (models.Schedule, error) {
	schedule, found, err := service.schedules.FindByID(id)
	if err != nil {
		return models.Schedule{}, storeError("find schedule", err)
	}
	if !found {
		return models.Schedule{}, ErrScheduleNotFound
	}
	return schedule, nil
}

func (service *ScheduleService) Create(medicationID uuid.UUID, input ScheduleInput) (models.Schedule, error) {
	medication, err := service.findMedication(medicationID)
	if err != nil {
		return models.Schedule{}, err
	}
	if medication.IsAsNeeded {
		return models.Schedule{}, ErrAsNeededSchedule
	}

	existing, err := service.schedules.ListByMedication(medication.ID)
	if err != nil {
		return models.Schedule{}, storeError("list schedules", err)
	}

	schedule := models.Schedule{
		MedicationID: medication.ID,
		IsActive:     true,
		SortOrder:    len(existing),
	}
	if err := service.apply(&schedule, input); err != nil {
		return models.Schedule{}, err
	}
	schedule.CreatedAt = service.now()
	schedule.UpdatedAt = schedule.CreatedAt
	if err := service.schedules.Create(&schedule); err != nil {
		return models.Schedule{}, storeError("create schedule", err)
	}
	service.notify(medication.JournalID)
	return schedule, nil
}

func (service *ScheduleService) Update(id uuid.UUID, input ScheduleInput) (models.Schedule, error) {
	schedule, err := service.Find(id)
	if err != nil {
		return models.Schedule{}, err
	}
	medication, err := service.findMedication(schedule.MedicationID)
	if err != nil {
		return models.Schedule{}, err
	}
	if err := service.apply(&schedule, input); err != nil {
		return models.Schedule{}, err
	}
	schedule.UpdatedAt = service.now()
	if err := service.schedules.Save(&schedule); err != nil {
		return models.Schedule{}, storeError("save schedule", err)
	}
	service.notify(medication.JournalID)
	return schedule, nil
}

func (service *ScheduleService) Delete(id uuid.UUID) error {
	schedule, err := service.Find(id)
	if err != nil {
		return err
	}
	var journalID uuid.UUID
	if medication, found, err := service.medications.FindByID(schedule.MedicationID); err == nil && found {
		journalID = medication.JournalID
	}
	if err := service.schedules.Delete(schedule.ID); err != nil {
		return storeError("delete schedule", err)
	}
	service.notify(journalID)
	return nil
}

func (service *ScheduleService) findMedication(id uuid.UUID) (models.Medication, error) {
	medication, found, err := service.medications.FindByID(id)
	if err != nil {
		return models.Medication{}, storeError("find medication", err)
	}
	if !found {
		return models.Medication{}, ErrMedicationNotFound
	}
	return medication, nil
}

func (service *ScheduleService) apply(schedule *models.Schedule, input ScheduleInput) error {
	cadence, err := models.ParseCadence(input.Cadence)
	if err != nil {
		return invariantError("%v", err)
	}
	if input.Amount != nil && input.Amount.IsNegative() {
		return ErrInvalidScheduleDose
	}

	schedule.Label = trimmedOrNil(input.Label)
	schedule.Amount = decimal.NullDecimal{}
	if input.Amount != nil {
		schedule.Amount = decimal.NewNullDecimal(*input.Amount)
	}
	schedule.Unit = trimmedOrNil(input.Unit)
	schedule.Cadence = cadence
	schedule.Interval = input.Interval
	if schedule.Interval < 1 {
		schedule.Interval = 1
	}
	schedule.DaysOfWeek = models.WeekdaySetFromInts(input.Weekdays)
	schedule.Hour = input.Hour
	schedule.Minute = input.Minute
	schedule.TimeZone = strings.TrimSpace(input.TimeZone)
	schedule.StartDate = input.StartDate
	if input.IsActive != nil {
		schedule.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		schedule.SortOrder = *input.SortOrder
	}

	if err := ValidateSchedule(*schedule); err != nil {
		return err
	}
	if cadence.UsesWeekdays() && schedule.DaysOfWeek.IsEmpty() {
		service.logger.Warn("schedule has no weekdays selected and will occur every day",
			zap.String("medication_id", schedule.MedicationID.String()),
			zap.String("cadence", string(cadence)),
		)
	}
	return nil
}

func (service *ScheduleService) notify(journalID uuid.UUID) {
	if journalID == uuid.Nil {
		return
	}
	service.notifier.Notify(JournalChange{JournalID: journalID, Kind: ChangeSchedules, At: service.now()})
}
