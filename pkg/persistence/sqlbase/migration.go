// Package sqlbase runs versioned SQL migrations for the SQL persistence backends.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrDirtySchema means a previous migration failed halfway and needs manual repair.
var ErrDirtySchema = errors.New("database schema is dirty")

// MigrationManager applies the *.up.sql files under dir in source, tracked in schema_migrations.
type MigrationManager struct {
	db     *sql.DB
	logger *slog.Logger
	source fs.FS
	dir    string
}

func NewMigrationManager(logger *slog.Logger, db *sql.DB, source fs.FS, dir string) *MigrationManager {
	return &MigrationManager{
		db:     db,
		logger: logger,
		source: source,
		dir:    dir,
	}
}

// RunMigrations applies every pending migration. An up-to-date schema is not an error.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting database migrations")

	return m.withMigrator(ctx, func(migrator *migrate.Migrate) error {
		before, err := currentVersion(migrator)
		if err != nil {
			return err
		}

		m.logger.InfoContext(ctx, "Current schema version", "version", before)

		err = migrator.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.InfoContext(ctx, "Database schema is up to date", "version", before)

			return nil
		}

		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}

		after, err := currentVersion(migrator)
		if err != nil {
			return err
		}

		m.logger.InfoContext(ctx, "Database migrations completed", "from", before, "to", after)

		return nil
	})
}

// CurrentVersion returns the applied schema version, 0 before the first migration.
func (m *MigrationManager) CurrentVersion(ctx context.Context) (uint, error) {
	var version uint

	err := m.withMigrator(ctx, func(migrator *migrate.Migrate) error {
		v, err := currentVersion(migrator)
		version = v

		return err
	})

	return version, err
}

// withMigrator runs fn on a migrator bound to a dedicated connection, so closing the
// migrator never closes the shared pool.
func (m *MigrationManager) withMigrator(ctx context.Context, fn func(*migrate.Migrate) error) error {
	source, err := iofs.New(m.source, m.dir)
	if err != nil {
		return fmt.Errorf("failed to open migration files: %w", err)
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		_ = source.Close()

		return fmt.Errorf("failed to acquire migration connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		_ = source.Close()
		_ = conn.Close()

		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = source.Close()
		_ = driver.Close()

		return fmt.Errorf("failed to create migrator: %w", err)
	}

	migrator.Log = logAdapter{logger: m.logger, ctx: ctx}

	defer func() {
		sourceErr, dbErr := migrator.Close()
		if sourceErr != nil || dbErr != nil {
			m.logger.WarnContext(ctx, "Failed to close migrator", "source_error", sourceErr, "database_error", dbErr)
		}
	}()

	return fn(migrator)
}

func currentVersion(migrator *migrate.Migrate) (uint, error) {
	version, dirty, err := migrator.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	if dirty {
		return version, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}

	return version, nil
}

// logAdapter forwards golang-migrate's printf logging to slog at debug level.
type logAdapter struct {
	logger *slog.Logger
	ctx    context.Context
}

func (l logAdapter) Printf(format string, v ...any) {
	l.logger.DebugContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l logAdapter) Verbose() bool {
	return l.logger.Enabled(l.ctx, slog.LevelDebug)
}
