package api

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/terraincognita07/medjournal/internal/db"
	"github.com/terraincognita07/medjournal/internal/events"
	"github.com/terraincognita07/medjournal/internal/i18n"
	"github.com/terraincognita07/medjournal/internal/metrics"
	"github.com/terraincognita07/medjournal/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Handler struct {
	repositories *db.Repositories
	location     *time.Location
	i18n         *i18n.Manager
	broadcaster  *events.Broadcaster
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	logger       *zap.Logger
	now          func() time.Time

	journalService    *services.JournalService
	medicationService *services.MedicationService
	scheduleService   *services.ScheduleService
	entryService      *services.EntryService
	intakeService     *services.IntakeService
	quickLogService   *services.QuickLogService
	adherenceService  *services.AdherenceService
	trendService      *services.TrendService
	exportService     *services.ExportService
}

// Options carries the collaborators a Handler needs besides the database.
// Notifier receives every change; Broadcaster backs the event stream and
// should normally be part of Notifier as well.
type Options struct {
	Location    *time.Location
	I18n        *i18n.Manager
	Notifier    services.ChangeNotifier
	Broadcaster *events.Broadcaster
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

func NewHandler(database *gorm.DB, options Options) (*Handler, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}
	if options.I18n == nil {
		return nil, errors.New("i18n manager is required")
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Broadcaster == nil {
		options.Broadcaster = events.NewBroadcaster()
	}
	if options.Notifier == nil {
		options.Notifier = options.Broadcaster
	}

	handler := &Handler{
		location:    options.Location,
		i18n:        options.I18n,
		broadcaster: options.Broadcaster,
		metrics:     options.Metrics,
		gatherer:    options.Gatherer,
		logger:      options.Logger,
		now:         time.Now,
	}
	return handler.withDependencies(database, options.Notifier), nil
}

func (handler *Handler) withDependencies(database *gorm.DB, notifier services.ChangeNotifier) *Handler {
	repos := db.NewRepositories(database)
	handler.repositories = repos
	handler.journalService = services.NewJournalService(repos.Journals, notifier)
	handler.medicationService = services.NewMedicationService(repos.Journals, repos.Medications, notifier)
	handler.scheduleService = services.NewScheduleService(repos.Medications, repos.Schedules, notifier, handler.logger.Named("schedules"))
	handler.entryService = services.NewEntryService(repos.Journals, repos.Entries, notifier)
	handler.intakeService = services.NewIntakeService(repos.IntakeStore, notifier, handler.logger.Named("intakes"))
	handler.quickLogService = services.NewQuickLogService(repos.Medications, repos.Schedules, repos.Intakes)
	handler.adherenceService = services.NewAdherenceService(repos.Medications, repos.Schedules, repos.Intakes)
	handler.trendService = services.NewTrendService(repos.Medications, repos.Schedules, repos.Intakes, repos.Entries, handler.i18n)
	handler.exportService = services.NewExportService(repos.Medications, repos.Schedules, repos.Intakes, repos.Entries)
	return handler
}

// WithClock replaces the wall clock used for "now" in reports and toggles.
func (handler *Handler) WithClock(now func() time.Time) *Handler {
	if now != nil {
		handler.now = now
		handler.intakeService.WithClock(now)
	}
	return handler
}
