package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
	"gorm.io/gorm"
)

type EntryRepository struct {
	database *gorm.DB
}

func NewEntryRepository(database *gorm.DB) *EntryRepository {
	return &EntryRepository{database: database}
}

func (repo *EntryRepository) FindByID(id uuid.UUID) (models.Entry, bool, error) {
	entry := models.Entry{}
	result := repo.database.Where("id = ?", id).Limit(1).Find(&entry)
	if result.Error != nil {
		return models.Entry{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Entry{}, false, nil
	}
	return entry, true, nil
}

func (repo *EntryRepository) ListByJournal(journalID uuid.UUID) ([]models.Entry, error) {
	entries := make([]models.Entry, 0)
	if err := repo.database.
		Where("journal_id = ?", journalID).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *EntryRepository) ListByJournalInRange(journalID uuid.UUID, from time.Time, to time.Time) ([]models.Entry, error) {
	entries := make([]models.Entry, 0)
	if err := repo.database.
		Where("journal_id = ? AND timestamp >= ? AND timestamp < ?", journalID, from.UTC(), to.UTC()).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (repo *EntryRepository) Create(entry *models.Entry) error {
	return repo.database.Create(entry).Error
}

func (repo *EntryRepository) Delete(id uuid.UUID) error {
	return repo.database.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Intake{}).
			Where("entry_id = ?", id).
			Update("entry_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Entry{}).Error
	})
}
