package db

import (
	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
	"gorm.io/gorm"
)

const scheduleOrder = "sort_order ASC, hour ASC, minute ASC, id ASC"

type ScheduleRepository struct {
	database *gorm.DB
}

func NewScheduleRepository(database *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{database: database}
}

func (repo *ScheduleRepository) FindByID(id uuid.UUID) (models.Schedule, bool, error) {
	schedule := models.Schedule{}
	result := repo.database.Where("id = ?", id).Limit(1).Find(&schedule)
	if result.Error != nil {
		return models.Schedule{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Schedule{}, false, nil
	}
	return schedule, true, nil
}

func (repo *ScheduleRepository) ListByMedication(medicationID uuid.UUID) ([]models.Schedule, error) {
	return listSchedules(repo.database, medicationID)
}

func (repo *ScheduleRepository) ListByMedications(medicationIDs []uuid.UUID) ([]models.Schedule, error) {
	schedules := make([]models.Schedule, 0)
	if len(medicationIDs) == 0 {
		return schedules, nil
	}
	if err := repo.database.
		Where("medication_id IN ?", medicationIDs).
		Order("medication_id ASC, " + scheduleOrder).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (repo *ScheduleRepository) Create(schedule *models.Schedule) error {
	return repo.database.Create(schedule).Error
}

func (repo *ScheduleRepository) Save(schedule *models.Schedule) error {
	return repo.database.Save(schedule).Error
}

// Delete removes the schedule and turns the intakes recorded against it into
// manual intakes so history survives.
func (repo *ScheduleRepository) Delete(id uuid.UUID) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Intake{}).
			Where("schedule_id = ?", id).
			Updates(map[string]any{"schedule_id": nil, "origin": models.OriginManual}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Schedule{}).Error
	})
}

func listSchedules(database *gorm.DB, medicationID uuid.UUID) ([]models.Schedule, error) {
	schedules := make([]models.Schedule, 0)
	if err := database.
		Where("medication_id = ?", medicationID).
		Order(scheduleOrder).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}
