// Package cli wires the medjournal command line: the HTTP server and a few
// offline commands that run the same services against the local database.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/medjournal/internal/config"
	"github.com/terraincognita07/medjournal/internal/db"
	"github.com/terraincognita07/medjournal/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const serviceName = "medjournal"

var (
	stdoutSink = zapcore.Lock(os.Stdout)
	stderrSink = zapcore.Lock(os.Stderr)
)

type rootOptions struct {
	configPath string
}

func NewRootCommand(version string) *cobra.Command {
	options := &rootOptions{}

	root := &cobra.Command{
		Use:   "medjournal",
		Short: "Medication schedules, adherence and symptom trends",
		Long: `medjournal keeps medication schedules, intakes and symptom entries in a
local SQLite database and serves the quick log, adherence and trend views
over HTTP.

Settings come from an optional YAML file and MEDJOURNAL_* environment
variables, e.g. MEDJOURNAL_DATABASE_PATH or MEDJOURNAL_SERVER_PORT.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&options.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCommand(options))
	root.AddCommand(newJournalCommand(options))
	root.AddCommand(newSnapshotCommand(options))
	root.AddCommand(newAdherenceCommand(options))
	root.AddCommand(newExportCommand(options))
	root.AddCommand(newWatchCommand(options))
	return root
}

// environment is what every command needs: settings, a logger and, for most
// commands, the database.
type environment struct {
	config       *config.Config
	logger       *zap.Logger
	database     *gorm.DB
	repositories *db.Repositories
}

// loadEnvironment logs to logOutput. Offline commands pass stderr so their
// stdout stays machine readable.
func loadEnvironment(options *rootOptions, logOutput zapcore.WriteSyncer) (*environment, error) {
	cfg, err := config.Load(options.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &environment{
		config: cfg,
		logger: logging.NewWithWriter(cfg.Log.Level, cfg.Log.Format, serviceName, logOutput),
	}, nil
}

func openEnvironment(options *rootOptions, logOutput zapcore.WriteSyncer) (*environment, error) {
	env, err := loadEnvironment(options, logOutput)
	if err != nil {
		return nil, err
	}
	database, err := db.OpenSQLite(env.config.Database.Path, env.logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}
	env.database = database
	env.repositories = db.NewRepositories(database)
	return env, nil
}

func (env *environment) Close() {
	if env.database != nil {
		if sqlDB, err := env.database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = env.logger.Sync()
}
