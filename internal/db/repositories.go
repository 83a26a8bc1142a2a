package db

import "gorm.io/gorm"

type Repositories struct {
	Journals    *JournalRepository
	Medications *MedicationRepository
	Schedules   *ScheduleRepository
	Intakes     *IntakeRepository
	Entries     *EntryRepository
	IntakeStore *IntakeStore
}

func NewRepositories(database *gorm.DB) *Repositories {
	return &Repositories{
		Journals:    NewJournalRepository(database),
		Medications: NewMedicationRepository(database),
		Schedules:   NewScheduleRepository(database),
		Intakes:     NewIntakeRepository(database),
		Entries:     NewEntryRepository(database),
		IntakeStore: NewIntakeStore(database),
	}
}
