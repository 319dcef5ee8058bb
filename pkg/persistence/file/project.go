package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/persistence"
)

type ProjectRepository struct {
	root string
}

func NewProjectRepository(root string) *ProjectRepository {
	return &ProjectRepository{root: root}
}

// List returns every project ordered by name.
func (pr *ProjectRepository) List(_ context.Context) ([]*models.Project, error) {
	projects, err := listDocuments[models.Project](pr.root, projectsDir)
	if err != nil {
		return nil, err
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })

	return projects, nil
}

func (pr *ProjectRepository) GetByID(_ context.Context, id string) (*models.Project, error) {
	project, err := readDocument[models.Project](pr.root, projectsDir, id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewProjectError("GetByID", id, persistence.ErrProjectNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch project %s: %w", id, err)
	}

	return project, nil
}

func (pr *ProjectRepository) Save(_ context.Context, project *models.Project) error {
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}

	return writeDocument(pr.root, projectsDir, project.ID, project)
}
