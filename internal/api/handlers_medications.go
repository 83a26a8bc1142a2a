package api

import (
	"github.com/gofiber/fiber/v2"
)

func (handler *Handler) ListMedications(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	medications, err := handler.medicationService.List(journalID)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(medications)
}

func (handler *Handler) CreateMedication(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	payload := medicationPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	medication, err := handler.medicationService.Create(journalID, payload.input())
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(medication)
}

func (handler *Handler) UpdateMedication(c *fiber.Ctx) error {
	medicationID, err := parseIDParam(c, "medication")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := medicationPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	medication, err := handler.medicationService.Update(medicationID, payload.input())
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(medication)
}

func (handler *Handler) DeleteMedication(c *fiber.Ctx) error {
	medicationID, err := parseIDParam(c, "medication")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := handler.medicationService.Delete(medicationID); err != nil {
		return handler.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) CreateSchedule(c *fiber.Ctx) error {
	medicationID, err := parseIDParam(c, "medication")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := schedulePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	schedule, err := handler.scheduleService.Create(medicationID, payload.input())
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(schedule)
}

func (handler *Handler) UpdateSchedule(c *fiber.Ctx) error {
	scheduleID, err := parseIDParam(c, "schedule")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := schedulePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}

	schedule, err := handler.scheduleService.Update(scheduleID, payload.input())
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(schedule)
}

func (handler *Handler) DeleteSchedule(c *fiber.Ctx) error {
	scheduleID, err := parseIDParam(c, "schedule")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := handler.scheduleService.Delete(scheduleID); err != nil {
		return handler.serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
