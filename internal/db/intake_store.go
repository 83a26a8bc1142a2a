package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
	"github.com/terraincognita07/medjournal/internal/services"
	"gorm.io/gorm"
)

// IntakeStore serves the intake workflows. Outside Atomically each call runs
// on its own; inside, every call shares the callback's transaction.
type IntakeStore struct {
	database *gorm.DB
}

func NewIntakeStore(database *gorm.DB) *IntakeStore {
	return &IntakeStore{database: database}
}

func (store *IntakeStore) Atomically(fn func(tx services.IntakeTx) error) error {
	return store.database.Transaction(func(tx *gorm.DB) error {
		return fn(&IntakeStore{database: tx})
	})
}

func (store *IntakeStore) FindMedication(id uuid.UUID) (models.Medication, bool, error) {
	return findMedication(store.database, id)
}

func (store *IntakeStore) ListSchedules(medicationID uuid.UUID) ([]models.Schedule, error) {
	return listSchedules(store.database, medicationID)
}

// ListScheduledIntakes matches on the scheduled occurrence, both bounds inclusive.
func (store *IntakeStore) ListScheduledIntakes(scheduleID uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error) {
	intakes := make([]models.Intake, 0)
	if err := store.database.
		Where("schedule_id = ? AND scheduled_date >= ? AND scheduled_date <= ?", scheduleID, from.UTC(), to.UTC()).
		Order("scheduled_date ASC, id ASC").
		Find(&intakes).Error; err != nil {
		return nil, err
	}
	return intakes, nil
}

// ListUnscheduledIntakes returns intakes of the medication without a schedule
// whose timestamp lies in [from, to).
func (store *IntakeStore) ListUnscheduledIntakes(medicationID uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error) {
	intakes := make([]models.Intake, 0)
	if err := store.database.
		Where("medication_id = ? AND schedule_id IS NULL AND timestamp >= ? AND timestamp < ?", medicationID, from.UTC(), to.UTC()).
		Order("timestamp ASC, id ASC").
		Find(&intakes).Error; err != nil {
		return nil, err
	}
	return intakes, nil
}

func (store *IntakeStore) FindIntake(id uuid.UUID) (models.Intake, bool, error) {
	return findIntake(store.database, id)
}

func (store *IntakeStore) CreateIntake(intake *models.Intake) error {
	return store.database.Create(intake).Error
}

func (store *IntakeStore) SaveIntake(intake *models.Intake) error {
	return store.database.Save(intake).Error
}

func (store *IntakeStore) DeleteIntakes(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return store.database.Where("id IN ?", ids).Delete(&models.Intake{}).Error
}

func (store *IntakeStore) SaveMedication(medication *models.Medication) error {
	return store.database.Save(medication).Error
}
