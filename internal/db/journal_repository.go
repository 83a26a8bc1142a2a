package db

import (
	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
	"gorm.io/gorm"
)

type JournalRepository struct {
	database *gorm.DB
}

func NewJournalRepository(database *gorm.DB) *JournalRepository {
	return &JournalRepository{database: database}
}

func (repo *JournalRepository) FindByID(id uuid.UUID) (models.Journal, bool, error) {
	journal := models.Journal{}
	result := repo.database.Where("id = ?", id).Limit(1).Find(&journal)
	if result.Error != nil {
		return models.Journal{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Journal{}, false, nil
	}
	return journal, true, nil
}

func (repo *JournalRepository) List() ([]models.Journal, error) {
	journals := make([]models.Journal, 0)
	if err := repo.database.Order("created_at ASC, id ASC").Find(&journals).Error; err != nil {
		return nil, err
	}
	return journals, nil
}

func (repo *JournalRepository) Create(journal *models.Journal) error {
	return repo.database.Create(journal).Error
}
