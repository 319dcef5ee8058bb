package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/persistence"
)

type ThreadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewThreadRepository(db *sql.DB, logger *slog.Logger) *ThreadRepository {
	return &ThreadRepository{db: db, logger: logger}
}

func (r *ThreadRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Thread, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, COALESCE(workflow_id, ''), created_at
		FROM threads
		WHERE project_id = $1
		ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	threads := make([]*models.Thread, 0)

	for rows.Next() {
		var thread models.Thread
		if err := rows.Scan(&thread.ID, &thread.ProjectID, &thread.WorkflowID, &thread.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}

		threads = append(threads, &thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	return threads, nil
}

func (r *ThreadRepository) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	var thread models.Thread

	err := r.db.QueryRowContext(ctx,
		"SELECT id, project_id, COALESCE(workflow_id, ''), created_at FROM threads WHERE id = $1", id,
	).Scan(&thread.ID, &thread.ProjectID, &thread.WorkflowID, &thread.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewThreadError("GetByID", id, persistence.ErrThreadNotFound)
		}

		return nil, fmt.Errorf("failed to scan thread: %w", err)
	}

	return &thread, nil
}

func (r *ThreadRepository) Save(ctx context.Context, thread *models.Thread) error {
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	var workflowID sql.NullString
	if thread.WorkflowID != "" {
		workflowID = sql.NullString{String: thread.WorkflowID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO threads (id, project_id, workflow_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			project_id = EXCLUDED.project_id,
			workflow_id = EXCLUDED.workflow_id
	`, thread.ID, thread.ProjectID, workflowID, thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}

	return nil
}

func (r *ThreadRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM threads WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewThreadError("Delete", id, persistence.ErrThreadNotFound)
	}

	return nil
}
