package mocks

import (
	"context"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	Workflows *MockWorkflowRepository
	Projects  *MockProjectRepository
	Threads   *MockThreadRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Workflows: &MockWorkflowRepository{},
		Projects:  &MockProjectRepository{},
		Threads:   &MockThreadRepository{},
	}
}

func (m *MockPersistence) WorkflowRepository() persistence.WorkflowRepository {
	return m.Workflows
}

func (m *MockPersistence) ProjectRepository() persistence.ProjectRepository {
	return m.Projects
}

func (m *MockPersistence) ThreadRepository() persistence.ThreadRepository {
	return m.Threads
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockWorkflowRepository is a mock implementation of persistence.WorkflowRepository interface.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Workflow, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockProjectRepository is a mock implementation of persistence.ProjectRepository interface.
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) List(ctx context.Context) ([]*models.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) Save(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)

	return args.Error(0)
}

// MockThreadRepository is a mock implementation of persistence.ThreadRepository interface.
type MockThreadRepository struct {
	mock.Mock
}

func (m *MockThreadRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Thread, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Thread), args.Error(1)
}

func (m *MockThreadRepository) GetByID(ctx context.Context, id string) (*models.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *MockThreadRepository) Save(ctx context.Context, thread *models.Thread) error {
	args := m.Called(ctx, thread)

	return args.Error(0)
}

func (m *MockThreadRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}
