package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medjournal/internal/services"
)

func (handler *Handler) LogAsNeeded(c *fiber.Ctx) error {
	medicationID, err := parseIDParam(c, "medication")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := intakePayload{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return apiError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}
	at := handler.now()
	if payload.Timestamp != nil {
		at = *payload.Timestamp
	}

	logged, err := handler.intakeService.LogAsNeeded(medicationID, payload.Amount, payload.Unit, at)
	if err != nil {
		return handler.serviceError(c, err)
	}
	if logged == nil {
		return handler.serviceError(c, services.ErrMedicationNotFound)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"intake":         logged.Intake,
		"default_amount": logged.Defaults.Amount,
		"default_unit":   logged.Defaults.Unit,
	})
}

func (handler *Handler) LogManualIntake(c *fiber.Ctx) error {
	medicationID, err := parseIDParam(c, "medication")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := intakePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.Timestamp == nil {
		return apiError(c, fiber.StatusBadRequest, "timestamp is required")
	}

	intake, err := handler.intakeService.LogManualIntake(medicationID, payload.Amount, payload.Unit, *payload.Timestamp, payload.Notes)
	if err != nil {
		return handler.serviceError(c, err)
	}
	if intake == nil {
		return handler.serviceError(c, services.ErrMedicationNotFound)
	}
	return c.Status(fiber.StatusCreated).JSON(intake)
}

func (handler *Handler) UpdateIntake(c *fiber.Ctx) error {
	intakeID, err := parseIDParam(c, "intake")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := intakeEditPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	intake, err := handler.intakeService.UpdateIntake(intakeID, payload.edit())
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(intake)
}

func (handler *Handler) DeleteIntake(c *fiber.Ctx) error {
	intakeID, err := parseIDParam(c, "intake")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := handler.intakeService.DeleteIntake(intakeID); err != nil {
		return handler.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) CreateEntry(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	payload := entryPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	entry, err := handler.entryService.Create(journalID, payload.input(handler.now()))
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (handler *Handler) DeleteEntry(c *fiber.Ctx) error {
	entryID, err := parseIDParam(c, "entry")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := handler.entryService.Delete(entryID); err != nil {
		return handler.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
