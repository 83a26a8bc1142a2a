package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/models"
)

var (
	ErrEntryNotFound        = errors.New("entry not found")
	ErrInvalidEntrySeverity = errors.New("invalid entry severity")
	ErrInvalidSentiment     = errors.New("invalid sentiment score")
)

type EntryRepository interface {
	FindByID(id uuid.UUID) (models.Entry, bool, error)
	ListByJournalInRange(journalID uuid.UUID, from time.Time, to time.Time) ([]models.Entry, error)
	Create(entry *models.Entry) error
	// Delete removes the entry and unlinks any intake that referenced it.
	Delete(id uuid.UUID) error
}

type EntryInput struct {
	Timestamp      time.Time
	Severity       int
	Headache       int
	Nausea         int
	Anxiety        int
	IsMenstruating bool
	Note           *string
	SentimentLabel *string
	SentimentScore *float64
}

type EntryService struct {
	journals JournalRepository
	entries  EntryRepository
	notifier ChangeNotifier
	now      func() time.Time
}

func NewEntryService(journals JournalRepository, entries EntryRepository, notifier ChangeNotifier) *EntryService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &EntryService{journals: journals, entries: entries, notifier: notifier, now: time.Now}
}

func (service *EntryService) Create(journalID uuid.UUID, input EntryInput) (models.Entry, error) {
	if err := ValidateEntryInput(input); err != nil {
		return models.Entry{}, err
	}
	if _, found, err := service.journals.FindByID(journalID); err != nil {
		return models.Entry{}, storeError("find journal", err)
	} else if !found {
		return models.Entry{}, ErrJournalNotFound
	}

	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = service.now()
	}
	entry := models.Entry{
		JournalID:      journalID,
		Timestamp:      timestamp,
		Severity:       input.Severity,
		Headache:       input.Headache,
		Nausea:         input.Nausea,
		Anxiety:        input.Anxiety,
		IsMenstruating: input.IsMenstruating,
		Note:           trimmedOrNil(input.Note),
		SentimentLabel: trimmedOrNil(input.SentimentLabel),
		SentimentScore: input.SentimentScore,
	}
	if err := service.entries.Create(&entry); err != nil {
		return models.Entry{}, storeError("create entry", err)
	}
	service.notifier.Notify(JournalChange{JournalID: journalID, Kind: ChangeEntries, At: service.now()})
	return entry, nil
}

func (service *EntryService) ListInRange(journalID uuid.UUID, from time.Time, to time.Time) ([]models.Entry, error) {
	entries, err := service.entries.ListByJournalInRange(journalID, from, to)
	if err != nil {
		return nil, storeError("list entries", err)
	}
	return entries, nil
}

func (service *EntryService) Delete(id uuid.UUID) error {
	entry, found, err := service.entries.FindByID(id)
	if err != nil {
		return storeError("find entry", err)
	}
	if !found {
		return ErrEntryNotFound
	}
	if err := service.entries.Delete(id); err != nil {
		return storeError("delete entry", err)
	}
	service.notifier.Notify(JournalChange{JournalID: entry.JournalID, Kind: ChangeEntries, At: service.now()})
	return nil
}

func ValidateEntryInput(input EntryInput) error {
	for _, score := range []int{input.Severity, input.Headache, input.Nausea, input.Anxiety} {
		if score < models.MinSeverity || score > models.MaxSeverity {
			return ErrInvalidEntrySeverity
		}
	}
	if input.SentimentScore != nil && (*input.SentimentScore < -1 || *input.SentimentScore > 1) {
		return ErrInvalidSentiment
	}
	return nil
}
