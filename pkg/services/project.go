package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/persistence"
)

type Project struct {
	persistence persistence.Persistence
}

func NewProject(persistence persistence.Persistence) *Project {
	return &Project{persistence: persistence}
}

func (p *Project) List(ctx context.Context) ([]*models.Project, error) {
	projects, err := p.persistence.ProjectRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return projects, nil
}

func (p *Project) Create(ctx context.Context, req *models.CreateProjectRequest) (*models.Project, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("Create", CodeNameRequired, "project name is required", ErrInvalidRequest)
	}

	project := &models.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	err := p.persistence.ProjectRepository().Save(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}
