package migrations

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/uptrace/bun"

	"event-in/internal/logger"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var files embed.FS

// Schema concatenates the up migrations for driver in version order.
func Schema(driver string) (string, error) {
	names, err := fs.Glob(files, "sql/"+driver+"/*.up.sql")
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no migrations for driver %q", driver)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		content, err := files.ReadFile(name)
		if err != nil {
			return "", err
		}
		b.Write(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Runner applies the embedded schema migrations for one dialect.
type Runner struct {
	bunDB    *bun.DB
	driver   string
	logger   *logger.Logger
	migrator *migrate.Migrate
}

// NewRunner creates a runner for driver ("sqlite" or "postgres").
func NewRunner(bunDB *bun.DB, driver string, log *logger.Logger) *Runner {
	return &Runner{
		bunDB:  bunDB,
		driver: driver,
		logger: log,
	}
}

// Initialize prepares the migration system
func (r *Runner) Initialize() error {
	src, err := iofs.New(files, "sql/"+r.driver)
	if err != nil {
		return fmt.Errorf("failed to open %s migrations: %w", r.driver, err)
	}

	var driver database.Driver
	switch r.driver {
	case "sqlite":
		driver, err = sqlite.WithInstance(r.bunDB.DB, &sqlite.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(r.bunDB.DB, &postgres.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", r.driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s migration driver: %w", r.driver, err)
	}

	migrator, err := migrate.NewWithInstance("iofs", src, r.driver, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	r.migrator = migrator
	return nil
}

// MigrateUp runs all pending migrations and repairs a dirty version left by
// an interrupted run.
func (r *Runner) MigrateUp() error {
	if r.migrator == nil {
		if err := r.Initialize(); err != nil {
			return err
		}
	}

	version, dirty, err := r.migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		previous := int(version) - 1
		if previous == 0 {
			previous = database.NilVersion
		}
		r.logger.Warn("MIGRATE", fmt.Sprintf("Detected dirty migration at version %d, forcing version %d", version, previous))
		if err := r.migrator.Force(previous); err != nil {
			return fmt.Errorf("failed to fix dirty migration: %w", err)
		}
	}

	if err := r.migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, _, err = r.migrator.Version()
	if err == nil {
		r.logger.Info("MIGRATE", fmt.Sprintf("Current schema version: %d", version))
	} else if !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	return nil
}

// MigrateDown rolls back all migrations
func (r *Runner) MigrateDown() error {
	if r.migrator == nil {
		if err := r.Initialize(); err != nil {
			return err
		}
	}

	if err := r.migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Version returns the applied schema version; 0 when nothing ran yet.
func (r *Runner) Version() (uint, bool, error) {
	if r.migrator == nil {
		if err := r.Initialize(); err != nil {
			return 0, false, err
		}
	}

	version, dirty, err := r.migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
