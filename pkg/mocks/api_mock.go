package mocks

import (
	"context"

	"github.com/machinehq/flowbuilder/pkg/editor"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockAPI is a mock implementation of editor.API interface.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockAPI) CreateWorkflow(ctx context.Context, req models.CreateWorkflowRequest) (*models.Workflow, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockAPI) UpdateWorkflow(ctx context.Context, id string, req models.UpdateWorkflowRequest) error {
	args := m.Called(ctx, id, req)

	return args.Error(0)
}

func (m *MockAPI) AutoSaveWorkflowFlow(ctx context.Context, id string, req models.AutoSaveFlowRequest) error {
	args := m.Called(ctx, id, req)

	return args.Error(0)
}

func (m *MockAPI) UpdateWorkflowStatus(ctx context.Context, id string, status models.WorkflowStatus) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *MockAPI) ExecuteWorkflow(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)

	return args.String(0), args.Error(1)
}

// MockNotifier is a mock implementation of editor.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, level editor.Level, title, message string) {
	m.Called(level, title, message)
}
