// Package persistence provides the data storage abstraction for projects, workflows and threads.
package persistence

import (
	"context"

	"github.com/machinehq/flowbuilder/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ProjectRepository() ProjectRepository
	ThreadRepository() ThreadRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflows. GetByID returns ErrWorkflowNotFound for unknown ids.
type WorkflowRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

type ProjectRepository interface {
	List(ctx context.Context) ([]*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Save(ctx context.Context, project *models.Project) error
}

// ThreadRepository stores threads created by executions. Delete of an unknown id returns ErrThreadNotFound.
type ThreadRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]*models.Thread, error)
	GetByID(ctx context.Context, id string) (*models.Thread, error)
	Save(ctx context.Context, thread *models.Thread) error
	Delete(ctx context.Context, id string) error
}
