package db

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	embeddedmigrations "github.com/terraincognita07/medjournal/migrations"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.sql$`)

type migration struct {
	Version string
	Order   int
	Name    string
	SQL     string
}

type MigrationRecord struct {
	Version string `gorm:"column:version"`
	Name    string `gorm:"column:name"`
}

type migrator struct {
	database *gorm.DB
	files    fs.FS
	logger   *zap.Logger
}

func newMigrator(database *gorm.DB, logger *zap.Logger) *migrator {
	return &migrator{database: database, files: embeddedmigrations.Files, logger: logger}
}

func (runner *migrator) apply() error {
	if err := runner.ensureTable(); err != nil {
		return err
	}

	pending, err := runner.load()
	if err != nil {
		return err
	}
	applied, err := AppliedMigrations(runner.database)
	if err != nil {
		return err
	}
	done := make(map[string]struct{}, len(applied))
	for _, record := range applied {
		done[record.Version] = struct{}{}
	}

	for _, candidate := range pending {
		if _, ok := done[candidate.Version]; ok {
			continue
		}
		if err := runner.run(candidate); err != nil {
			return err
		}
		runner.logger.Info("applied migration", zap.String("version", candidate.Version), zap.String("name", candidate.Name))
	}
	return nil
}

func (runner *migrator) ensureTable() error {
	const createTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	if err := runner.database.Exec(createTableSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func (runner *migrator) load() ([]migration, error) {
	entries, err := fs.ReadDir(runner.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	loaded := make([]migration, 0, len(entries))
	seen := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if len(matches) != 2 {
			continue
		}

		version := matches[1]
		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", entry.Name(), err)
		}
		if existing, ok := seen[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %s and %s", version, existing, entry.Name())
		}
		seen[version] = entry.Name()

		raw, err := fs.ReadFile(runner.files, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		loaded = append(loaded, migration{Version: version, Order: order, Name: entry.Name(), SQL: string(raw)})
	}

	sort.Slice(loaded, func(i, j int) bool {
		if loaded[i].Order == loaded[j].Order {
			return loaded[i].Name < loaded[j].Name
		}
		return loaded[i].Order < loaded[j].Order
	})
	return loaded, nil
}

func (runner *migrator) run(candidate migration) error {
	return runner.database.Transaction(func(tx *gorm.DB) error {
		statements := splitSQLStatements(candidate.SQL)
		if len(statements) == 0 {
			return errors.New("migration has no SQL statements")
		}
		for _, statement := range statements {
			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("execute migration %s statement %q: %w", candidate.Name, statement, err)
			}
		}
		if err := tx.Exec(`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`, candidate.Version, candidate.Name).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", candidate.Name, err)
		}
		return nil
	})
}

// AppliedMigrations lists recorded migrations in version order.
func AppliedMigrations(database *gorm.DB) ([]MigrationRecord, error) {
	records := make([]MigrationRecord, 0)
	if err := database.Raw(`SELECT version, name FROM schema_migrations ORDER BY CAST(version AS INTEGER)`).Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	return records, nil
}

func splitSQLStatements(sqlText string) []string {
	parts := strings.Split(sqlText, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}
