package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/medjournal/internal/api"
	"github.com/terraincognita07/medjournal/internal/config"
	"github.com/terraincognita07/medjournal/internal/events"
	"github.com/terraincognita07/medjournal/internal/i18n"
	"github.com/terraincognita07/medjournal/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServeCommand(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnvironment(options, stdoutSink)
			if err != nil {
				return err
			}
			defer env.Close()
			return runServe(cmd.Context(), env)
		},
	}
}

// Server is the assembled HTTP application plus whatever has to be released
// when it stops.
type Server struct {
	App     *fiber.App
	Handler *api.Handler
	redis   *redis.Client
}

func (server *Server) Close() error {
	if server.redis != nil {
		return server.redis.Close()
	}
	return nil
}

func NewServer(cfg *config.Config, logger *zap.Logger, database *gorm.DB) (*Server, error) {
	i18nManager, err := i18n.NewManager(cfg.Language.Default)
	if err != nil {
		return nil, fmt.Errorf("i18n init failed: %w", err)
	}

	server := &Server{}
	broadcaster := events.NewBroadcaster()
	notifier := events.Fanout{broadcaster}

	options := api.Options{
		Location:    cfg.Location(),
		I18n:        i18nManager,
		Broadcaster: broadcaster,
		Logger:      logger.Named("api"),
	}
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		options.Metrics = metrics.New(registry)
		options.Gatherer = registry
		notifier = append(notifier, options.Metrics)
	}
	if cfg.Redis.Addr != "" {
		server.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		notifier = append(notifier, events.NewRedisNotifier(server.redis, cfg.Redis.Channel, logger.Named("redis")))
	}
	options.Notifier = notifier

	handler, err := api.NewHandler(database, options)
	if err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("handler init failed: %w", err)
	}
	server.Handler = handler

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/events")
		},
	}))
	app.Use(handler.MetricsMiddleware)
	app.Use(handler.LanguageMiddleware)
	api.RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	server.App = app
	return server, nil
}

func runServe(parent context.Context, env *environment) error {
	server, err := NewServer(env.config, env.logger, env.database)
	if err != nil {
		return err
	}
	defer server.Close()

	if parent == nil {
		parent = context.Background()
	}
	sigCtx, stopSignals := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), env.config.Server.ShutdownTimeout)
		defer cancel()
		if err := server.App.ShutdownWithContext(shutdownCtx); err != nil {
			env.logger.Error("server shutdown failed", zap.Error(err))
		}
	}()

	env.logger.Info("medjournal listening",
		zap.Int("port", env.config.Server.Port),
		zap.String("database", env.config.Database.Path),
		zap.String("timezone", env.config.Location().String()),
		zap.Bool("metrics", env.config.Metrics.Enabled),
		zap.Bool("redis", env.config.Redis.Addr != ""),
	)
	if err := server.App.Listen(fmt.Sprintf(":%d", env.config.Server.Port)); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}
