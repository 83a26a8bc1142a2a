package services

import (
	"time"

	"github.com/google/uuid"
)

type ChangeKind string

const (
	ChangeJournal     ChangeKind = "journal"
	ChangeMedications ChangeKind = "medications"
	ChangeSchedules   ChangeKind = "schedules"
	ChangeIntakes     ChangeKind = "intakes"
	ChangeEntries     ChangeKind = "entries"
)

// JournalChange tells subscribers that derived views of a journal are stale.
type JournalChange struct {
	JournalID uuid.UUID  `json:"journal_id"`
	Kind      ChangeKind `json:"kind"`
	At        time.Time  `json:"at"`
}

type ChangeNotifier interface {
	Notify(change JournalChange)
}

type NopNotifier struct{}

func (NopNotifier) Notify(JournalChange) {}
