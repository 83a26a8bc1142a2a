package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	if handler.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(handler.gatherer, promhttp.HandlerOpts{})))
	}
	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")

	api.Post("/journals", handler.CreateJournal)

	journal := api.Group("/journals/:journal")
	journal.Get("/medications", handler.ListMedications)
	journal.Post("/medications", handler.CreateMedication)
	journal.Post("/entries", handler.CreateEntry)
	journal.Get("/quick-log", handler.GetQuickLog)
	journal.Post("/quick-log/toggle", handler.ToggleQuickLog)
	journal.Get("/adherence", handler.GetAdherence)
	journal.Get("/trends", handler.GetTrends)
	journal.Get("/export/:format", handler.Export)
	journal.Get("/events", handler.StreamEvents)

	medications := api.Group("/medications/:medication")
	medications.Put("", handler.UpdateMedication)
	medications.Delete("", handler.DeleteMedication)
	medications.Post("/schedules", handler.CreateSchedule)
	medications.Post("/as-needed", handler.LogAsNeeded)
	medications.Post("/intakes", handler.LogManualIntake)

	api.Put("/schedules/:schedule", handler.UpdateSchedule)
	api.Delete("/schedules/:schedule", handler.DeleteSchedule)

	api.Put("/intakes/:intake", handler.UpdateIntake)
	api.Delete("/intakes/:intake", handler.DeleteIntake)

	api.Delete("/entries/:entry", handler.DeleteEntry)
}
