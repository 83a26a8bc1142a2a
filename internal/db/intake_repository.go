package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
	"gorm.io/gorm"
)

type IntakeRepository struct {
	database *gorm.DB
}

func NewIntakeRepository(database *gorm.DB) *IntakeRepository {
	return &IntakeRepository{database: database}
}

func (repo *IntakeRepository) FindByID(id uuid.UUID) (models.Intake, bool, error) {
	return findIntake(repo.database, id)
}

func (repo *IntakeRepository) ListByMedications(medicationIDs []uuid.UUID) ([]models.Intake, error) {
	intakes := make([]models.Intake, 0)
	if len(medicationIDs) == 0 {
		return intakes, nil
	}
	if err := repo.database.
		Where("medication_id IN ?", medicationIDs).
		Order("timestamp ASC, id ASC").
		Find(&intakes).Error; err != nil {
		return nil, err
	}
	return intakes, nil
}

// ListByMedicationsInRange returns intakes whose timestamp lies in [from, to).
func (repo *IntakeRepository) ListByMedicationsInRange(medicationIDs []uuid.UUID, from time.Time, to time.Time) ([]models.Intake, error) {
	intakes := make([]models.Intake, 0)
	if len(medicationIDs) == 0 {
		return intakes, nil
	}
	if err := repo.database.
		Where("medication_id IN ? AND timestamp >= ? AND timestamp < ?", medicationIDs, from.UTC(), to.UTC()).
		Order("timestamp ASC, id ASC").
		Find(&intakes).Error; err != nil {
		return nil, err
	}
	return intakes, nil
}

// LatestTimestamps maps each medication with at least one intake to its most
// recent intake timestamp.
func (repo *IntakeRepository) LatestTimestamps(medicationIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	latest := make(map[uuid.UUID]time.Time, len(medicationIDs))
	if len(medicationIDs) == 0 {
		return latest, nil
	}

	rows := make([]models.Intake, 0)
	if err := repo.database.
		Select("medication_id", "timestamp").
		Where("medication_id IN ?", medicationIDs).
		Order("timestamp DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, seen := latest[row.MedicationID]; !seen {
			latest[row.MedicationID] = row.Timestamp
		}
	}
	return latest, nil
}

func findIntake(database *gorm.DB, id uuid.UUID) (models.Intake, bool, error) {
	intake := models.Intake{}
	result := database.Where("id = ?", id).Limit(1).Find(&intake)
	if result.Error != nil {
		return models.Intake{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Intake{}, false, nil
	}
	return intake, true, nil
}
