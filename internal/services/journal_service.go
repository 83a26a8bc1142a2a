package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
)

var ErrJournalNotFound = errors.New("journal not found")

const maxJournalTitleLength = 120

type JournalRepository interface {
	FindByID(id uuid.UUID) (models.Journal, bool, error)
	Create(journal *models.Journal) error
}

type JournalService struct {
	journals JournalRepository
	notifier ChangeNotifier
	now      func() time.Time
}

func NewJournalService(journals JournalRepository, notifier ChangeNotifier) *JournalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &JournalService{journals: journals, notifier: notifier, now: time.Now}
}

func (service *JournalService) Create(title string) (models.Journal, error) {
	title = strings.TrimSpace(title)
	if len(title) > maxJournalTitleLength {
		title = title[:maxJournalTitleLength]
	}
	journal := models.Journal{Title: title, CreatedAt: service.now()}
	if err := service.journals.Create(&journal); err != nil {
		return models.Journal{}, storeError("create journal", err)
	}
	service.notifier.Notify(JournalChange{JournalID: journal.ID, Kind: ChangeJournal, At: journal.CreatedAt})
	return journal, nil
}

func (service *JournalService) Find(id uuid.UUID) (models.Journal, error) {
	journal, found, err := service.journals.FindByID(id)
	if err != nil {
		return models.Journal{}, storeError("find journal", err)
	}
	if !found {
		return models.Journal{}, ErrJournalNotFound
	}
	return journal, nil
}
