package db

import (
	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
	"gorm.io/gorm"
)

type MedicationRepository struct {
	database *gorm.DB
}

func NewMedicationRepository(database *gorm.DB) *MedicationRepository {
	return &MedicationRepository{database: database}
}

func (repo *MedicationRepository) ListByJournal(journalID uuid.UUID) ([]models.Medication, error) {
	medications := make([]models.Medication, 0)
	if err := repo.database.
		Where("journal_id = ?", journalID).
		Order("created_at ASC, id ASC").
		Find(&medications).Error; err != nil {
		return nil, err
	}
	return medications, nil
}

func (repo *MedicationRepository) FindByID(id uuid.UUID) (models.Medication, bool, error) {
	return findMedication(repo.database, id)
}

func (repo *MedicationRepository) Create(medication *models.Medication) error {
	return repo.database.Create(medication).Error
}

func (repo *MedicationRepository) Save(medication *models.Medication) error {
	return repo.database.Save(medication).Error
}

// SaveAsNeeded saves the medication and drops its schedules. Intakes that
// pointed at those schedules are kept as manual intakes.
func (repo *MedicationRepository) SaveAsNeeded(medication *models.Medication) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Intake{}).
			Where("schedule_id IN (SELECT id FROM medication_schedules WHERE medication_id = ?)", medication.ID).
			Updates(map[string]any{"schedule_id": nil, "origin": models.OriginManual}).Error; err != nil {
			return err
		}
		if err := tx.Where("medication_id = ?", medication.ID).Delete(&models.Schedule{}).Error; err != nil {
			return err
		}
		return tx.Save(medication).Error
	})
}

// Delete removes the medication, its schedules and its intakes in one transaction.
func (repo *MedicationRepository) Delete(id uuid.UUID) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("medication_id = ?", id).Delete(&models.Intake{}).Error; err != nil {
			return err
		}
		if err := tx.Where("medication_id = ?", id).Delete(&models.Schedule{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Medication{}).Error
	})
}

func findMedication(database *gorm.DB, id uuid.UUID) (models.Medication, bool, error) {
	medication := models.Medication{}
	result := database.Where("id = ?", id).Limit(1).Find(&medication)
	if result.Error != nil {
		return models.Medication{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Medication{}, false, nil
	}
	return medication, true, nil
}
