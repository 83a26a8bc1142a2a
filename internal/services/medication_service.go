package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/terraincognita07/medjournal/internal/models"
)

var (
	ErrMedicationNotFound    = errors.New("medication not found")
	ErrInvalidMedicationName = errors.New("invalid medication name")
	ErrInvalidMedicationDose = errors.New("invalid medication dose")
)

const maxMedicationNameLength = 120

type MedicationRepository interface {
	ListByJournal(journalID uuid.UUID) ([]models.Medication, error)
	FindByID(id uuid.UUID) (models.Medication, bool, error)
	Create(medication *models.Medication) error
	Save(medication *models.Medication) error
	// SaveAsNeeded saves an as-needed medication and removes its schedules in
	// the same transaction. Intakes recorded against them become manual.
	SaveAsNeeded(medication *models.Medication) error
	// Delete removes the medication together with its schedules and intakes.
	Delete(id uuid.UUID) error
}

type MedicationInput struct {
	Name          string
	DefaultAmount *decimal.Decimal
	DefaultUnit   *string
	IsAsNeeded    bool
	UseCase       *string
	Notes         string
}

type MedicationService struct {
	journals    JournalRepository
	medications MedicationRepository
	notifier    ChangeNotifier
	now         func() time.Time
}

func NewMedicationService(journals JournalRepository, medications MedicationRepository, notifier ChangeNotifier) *MedicationService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &MedicationService{
		journals:    journals,
		medications: medications,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (service *MedicationService) List(journalID uuid.UUID) ([]models.Medication, error) {
	medications, err := service.medications.ListByJournal(journalID)
	if err != nil {
		return nil, storeError("list medications", err)
	}
	return medications, nil
}

func (service *MedicationService) Find(id uuid.UUID) (models.Medication, error) {
	medication, found, err := service.medications.FindByID(id)
	if err != nil {
		return models.Medication{}, storeError("find medication", err)
	}
	if !found {
		return models.Medication{}, ErrMedicationNotFound
	}
	return medication, nil
}

func (service *MedicationService) Create(journalID uuid.UUID, input MedicationInput) (models.Medication, error) {
	if _, found, err := service.journals.FindByID(journalID); err != nil {
		return models.Medication{}, storeError("find journal", err)
	} else if !found {
		return models.Medication{}, ErrJournalNotFound
	}

	medication := models.Medication{JournalID: journalID, CreatedAt: service.now()}
	if err := applyMedicationInput(&medication, input); err != nil {
		return models.Medication{}, err
	}
	medication.UpdatedAt = medication.CreatedAt
	if err := service.medications.Create(&medication); err != nil {
		return models.Medication{}, storeError("create medication", err)
	}
	service.notify(journalID)
	return medication, nil
}

func (service *MedicationService) Update(id uuid.UUID, input MedicationInput) (models.Medication, error) {
	medication, err := service.Find(id)
	if err != nil {
		return models.Medication{}, err
	}
	if err := applyMedicationInput(&medication, input); err != nil {
		return models.Medication{}, err
	}
	medication.UpdatedAt = service.now()
	save := service.medications.Save
	if medication.IsAsNeeded {
		save = service.medications.SaveAsNeeded
	}
	if err := save(&medication); err != nil {
		return models.Medication{}, storeError("save medication", err)
	}
	service.notify(medication.JournalID)
	return medication, nil
}

func (service *MedicationService) Delete(id uuid.UUID) error {
	medication, err := service.Find(id)
	if err != nil {
		return err
	}
	if err := service.medications.Delete(medication.ID); err != nil {
		return storeError("delete medication", err)
	}
	service.notify(medication.JournalID)
	return nil
}

func (service *MedicationService) notify(journalID uuid.UUID) {
	service.notifier.Notify(JournalChange{JournalID: journalID, Kind: ChangeMedications, At: service.now()})
}

func applyMedicationInput(medication *models.Medication, input MedicationInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxMedicationNameLength {
		return ErrInvalidMedicationName
	}
	if input.DefaultAmount != nil && input.DefaultAmount.IsNegative() {
		return ErrInvalidMedicationDose
	}

	medication.Name = name
	medication.DefaultAmount = decimal.NullDecimal{}
	if input.DefaultAmount != nil {
		medication.DefaultAmount = decimal.NewNullDecimal(*input.DefaultAmount)
	}
	medication.DefaultUnit = trimmedOrNil(input.DefaultUnit)
	medication.IsAsNeeded = input.IsAsNeeded
	medication.UseCase = trimmedOrNil(input.UseCase)
	medication.Notes = strings.TrimSpace(input.Notes)
	return nil
}
