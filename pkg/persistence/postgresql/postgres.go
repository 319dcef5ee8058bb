// Package postgresql provides PostgreSQL persistence for projects, workflows and threads.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/machinehq/flowbuilder/pkg/persistence"
	"github.com/machinehq/flowbuilder/pkg/persistence/sqlbase"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	migrations   *sqlbase.MigrationManager
	workflowRepo *WorkflowRepository
	projectRepo  *ProjectRepository
	threadRepo   *ThreadRepository
}

// NewPersistence creates a new PostgreSQL persistence layer and migrates the schema.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrationFiles, migrationDir)

	postgres := &Persistence{
		db:           database,
		migrations:   migrationManager,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger),
		projectRepo:  NewProjectRepository(database, logger),
		threadRepo:   NewThreadRepository(database, logger),
	}

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// SchemaVersion returns the applied migration version.
func (p *Persistence) SchemaVersion(ctx context.Context) (uint, error) {
	return p.migrations.CurrentVersion(ctx)
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) ProjectRepository() persistence.ProjectRepository {
	return p.projectRepo
}

func (p *Persistence) ThreadRepository() persistence.ThreadRepository {
	return p.threadRepo
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
