package api

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/medjournal/internal/export"
	"github.com/terraincognita07/medjournal/internal/services"
)

func (handler *Handler) GetQuickLog(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	location := handler.requestLocation(c)
	day, err := parseDayParam(c.Query("date"), handler.now(), location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	snapshot, err := handler.quickLogService.BuildDailySnapshot(journalID, day, location)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(snapshot)
}

func (handler *Handler) ToggleQuickLog(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	payload := togglePayload{}
	if err := c.BodyParser(&payload); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid payload")
	}
	location := handler.requestLocation(c)
	day, err := parseDayParam(payload.Date, handler.now(), location)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	source, found, err := handler.quickLogService.ResolveSource(journalID, payload.SourceID)
	if err != nil {
		return handler.serviceError(c, err)
	}
	if !found {
		return handler.serviceError(c, services.ErrScheduleNotFound)
	}

	intake, err := handler.intakeService.SetSourceIntake(source, day, location, payload.Taken, nil)
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"source_id": payload.SourceID,
		"date":      day.Format(dayLayout),
		"taken":     intake != nil,
		"intake":    intake,
	})
}

func (handler *Handler) GetAdherence(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	trendRange, err := services.ParseTrendRange(c.Query("range"))
	if err != nil {
		return handler.serviceError(c, err)
	}
	now := handler.now()
	summaries, err := handler.adherenceService.Report(journalID, trendRange.Start(now), now, handler.requestLocation(c))
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(fiber.Map{
		"range":       trendRange,
		"medications": summaries,
	})
}

func (handler *Handler) GetTrends(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	trendRange, err := services.ParseTrendRange(c.Query("range"))
	if err != nil {
		return handler.serviceError(c, err)
	}
	report, err := handler.trendService.Report(journalID, trendRange, handler.now(), handler.requestLocation(c), handler.currentLanguage(c))
	if err != nil {
		return handler.serviceError(c, err)
	}
	return c.JSON(report)
}

func (handler *Handler) Export(c *fiber.Ctx) error {
	journalID, ok, err := handler.requireJournal(c)
	if !ok {
		return err
	}

	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}
	now := handler.now()
	dataset, err := handler.exportService.BuildDataset(journalID, handler.requestLocation(c), now)
	if err != nil {
		return handler.serviceError(c, err)
	}

	var output bytes.Buffer
	if _, err := export.Write(&output, format, dataset); err != nil {
		return handler.serviceError(c, err)
	}
	if handler.metrics != nil {
		handler.metrics.ObserveExport(string(format))
	}

	setExportAttachmentHeaders(c, format.ContentType(), format.FileName(now))
	return c.Send(output.Bytes())
}
