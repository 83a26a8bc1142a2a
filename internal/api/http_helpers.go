package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/terraincognita07/medjournal/internal/services"
	"go.uber.org/zap"
)

const dayLayout = "2006-01-02"

var errInvalidDate = errors.New("invalid date")

var notFoundErrors = []error{
	services.ErrJournalNotFound,
	services.ErrMedicationNotFound,
	services.ErrScheduleNotFound,
	services.ErrEntryNotFound,
	services.ErrIntakeNotFound,
}

var validationErrors = []error{
	services.ErrInvariantViolation,
	services.ErrInvalidMedicationName,
	services.ErrInvalidMedicationDose,
	services.ErrAsNeededSchedule,
	services.ErrInvalidScheduleDose,
	services.ErrInvalidEntrySeverity,
	services.ErrInvalidSentiment,
	services.ErrInvalidIntakeDose,
}

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// serviceError maps a service failure onto a status code. Store failures are
// logged and reported without their cause.
func (handler *Handler) serviceError(c *fiber.Ctx, err error) error {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return apiError(c, fiber.StatusNotFound, target.Error())
		}
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return apiError(c, fiber.StatusUnprocessableEntity, err.Error())
		}
	}
	if errors.Is(err, services.ErrInvalidTrendRange) {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	handler.logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	if errors.Is(err, services.ErrStoreUnavailable) {
		return apiError(c, fiber.StatusServiceUnavailable, services.ErrStoreUnavailable.Error())
	}
	return apiError(c, fiber.StatusInternalServerError, "internal error")
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id", name)
	}
	return id, nil
}

// parseDayParam reads a YYYY-MM-DD date as midnight in location. An empty
// value means today.
func parseDayParam(raw string, now time.Time, location *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return services.DateAtLocation(now, location), nil
	}
	day, err := time.ParseInLocation(dayLayout, raw, location)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return day, nil
}

// requestLocation honours an optional ?tz= override of the server zone.
func (handler *Handler) requestLocation(c *fiber.Ctx) *time.Location {
	return services.ResolveLocation(c.Query("tz"), handler.location)
}

// requireJournal resolves the :journal param. When ok is false the error
// response has already been written and its result is returned as err.
func (handler *Handler) requireJournal(c *fiber.Ctx) (journalID uuid.UUID, ok bool, err error) {
	journalID, parseErr := parseIDParam(c, "journal")
	if parseErr != nil {
		return uuid.Nil, false, apiError(c, fiber.StatusBadRequest, parseErr.Error())
	}
	if _, findErr := handler.journalService.Find(journalID); findErr != nil {
		return uuid.Nil, false, handler.serviceError(c, findErr)
	}
	return journalID, true, nil
}

func setExportAttachmentHeaders(c *fiber.Ctx, contentType string, filename string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", filename))
}
