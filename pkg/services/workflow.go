package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/machinehq/flowbuilder/pkg/eventbus"
	"github.com/machinehq/flowbuilder/pkg/events"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/otelhelper"
	"github.com/machinehq/flowbuilder/pkg/persistence"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Workflow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. A nil tracer falls back to the global provider.
func NewWorkflow(
	persistence persistence.Persistence,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Workflow {
	if tracer == nil {
		tracer = otel.Tracer("flowbuilder/services")
	}

	return &Workflow{
		persistence: persistence,
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListByProject returns the workflows of a project. An empty project id lists every workflow.
func (w *Workflow) ListByProject(ctx context.Context, projectID string) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().ListByProject(ctx, strings.TrimSpace(projectID))
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create adds a new workflow to a project. The status defaults to draft.
func (w *Workflow) Create(ctx context.Context, req *models.CreateWorkflowRequest) (*models.Workflow, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrWorkflowNameRequired
	}

	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, ErrProjectRequired
	}

	status := req.Status
	if status == "" {
		status = models.WorkflowStatusDraft
	}

	if !status.IsValid() {
		return nil, NewValidationError("Create", CodeInvalidStatus, fmt.Sprintf("invalid status '%s'", status), ErrInvalidStatus)
	}

	if _, err := w.persistence.ProjectRepository().GetByID(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		Name:        name,
		Description: req.Description,
		Status:      status,
		ProjectID:   req.ProjectID,
		Definition:  persistedDefinition(req.Definition.Nodes, req.Definition.Edges),
		Metadata:    withDefaultLimits(req.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.DebugContext(ctx, "Workflow created", "workflow_id", workflow.ID, "project_id", workflow.ProjectID)

	return workflow, nil
}

// Update applies the non-nil fields of req to an existing workflow.
func (w *Workflow) Update(ctx context.Context, workflowID string, req *models.UpdateWorkflowRequest) (*models.Workflow, error) {
	workflow, err := w.editable(ctx, "Update", workflowID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrWorkflowNameRequired
		}

		workflow.Name = name
	}

	if req.Description != nil {
		workflow.Description = *req.Description
	}

	if req.Definition != nil {
		workflow.Definition = persistedDefinition(req.Definition.Nodes, req.Definition.Edges)
	}

	if req.Metadata != nil {
		workflow.Metadata = withDefaultLimits(req.Metadata)
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// SaveFlow stores an autosaved graph. The metadata description always replaces the workflow's;
// a blank metadata name keeps the current name.
func (w *Workflow) SaveFlow(ctx context.Context, workflowID string, req *models.AutoSaveFlowRequest) (*models.Workflow, error) {
	workflow, err := w.editable(ctx, "SaveFlow", workflowID)
	if err != nil {
		return nil, err
	}

	workflow.Definition = persistedDefinition(req.Nodes, req.Edges)
	workflow.Metadata = withDefaultLimits(&req.Metadata)

	if name := strings.TrimSpace(req.Metadata.Name); name != "" {
		workflow.Name = name
	}

	workflow.Description = req.Metadata.Description

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow flow: %w", err)
	}

	w.logger.DebugContext(ctx, "Workflow flow saved",
		"workflow_id", workflow.ID,
		"nodes", len(workflow.Definition.Nodes),
		"edges", len(workflow.Definition.Edges))

	return workflow, nil
}

// UpdateStatus moves a workflow along the status lifecycle. Setting the current status is a no-op.
func (w *Workflow) UpdateStatus(ctx context.Context, workflowID string, status models.WorkflowStatus) (*models.Workflow, error) {
	if !status.IsValid() {
		return nil, NewValidationError("UpdateStatus", CodeInvalidStatus, fmt.Sprintf("invalid status '%s'", status), ErrInvalidStatus)
	}

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	from := workflow.Status
	if from == status {
		return workflow, nil
	}

	if !CanTransition(from, status) {
		return nil, &ServiceError{
			Op:      "UpdateStatus",
			Code:    CodeInvalidTransition,
			Message: fmt.Sprintf("cannot move workflow from '%s' to '%s'", from, status),
			Err:     ErrInvalidTransition,
		}
	}

	workflow.Status = status

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow status: %w", err)
	}

	err = w.publisher.Publish(ctx, workflow.ID, events.WorkflowStatusChanged{
		BaseEvent: events.NewBaseEvent(events.WorkflowStatusChangedEvent, workflow.ID, workflow.ProjectID),
		From:      from,
		To:        status,
	})
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to publish status change", "workflow_id", workflow.ID, "error", err)
	}

	return workflow, nil
}

// Execute records a new thread for the workflow and hands the run to the execution backend.
func (w *Workflow) Execute(ctx context.Context, workflowID string) (*models.Thread, error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if !IsExecutable(workflow) {
		err = ErrNotExecutable
		if workflow.Status == models.WorkflowStatusDraft {
			err = ErrNodesRequired
		}

		otelhelper.SetError(span, err, attribute.String(otelhelper.WorkflowStatusKey, string(workflow.Status)))

		return nil, &ServiceError{Op: "Execute", Code: CodeNotExecutable, Err: err}
	}

	thread := &models.Thread{
		ID:         uuid.New().String(),
		ProjectID:  workflow.ProjectID,
		WorkflowID: workflow.ID,
		CreatedAt:  time.Now().UTC(),
	}

	span.SetAttributes(attribute.String(otelhelper.ThreadIDKey, thread.ID))

	err = w.persistence.ThreadRepository().Save(ctx, thread)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create thread: %w", err)
	}

	err = w.publisher.Publish(ctx, workflow.ID, events.WorkflowExecutionRequested{
		BaseEvent:  events.NewBaseEvent(events.WorkflowExecutionRequestedEvent, workflow.ID, workflow.ProjectID),
		ThreadID:   thread.ID,
		Definition: workflow.Definition,
		Metadata:   workflow.Metadata,
	})
	if err != nil {
		otelhelper.SetError(span, err)

		if deleteErr := w.persistence.ThreadRepository().Delete(ctx, thread.ID); deleteErr != nil {
			w.logger.ErrorContext(ctx, "Failed to remove thread after publish failure",
				"thread_id", thread.ID, "error", deleteErr)
		}

		return nil, fmt.Errorf("failed to request execution: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow execution requested", "workflow_id", workflow.ID, "thread_id", thread.ID)

	return thread, nil
}

func (w *Workflow) editable(ctx context.Context, op, workflowID string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, &ServiceError{Op: op, Code: CodeArchived, Err: ErrWorkflowArchived}
	}

	return workflow, nil
}

// persistedDefinition strips editor-only edge styling and guarantees non-nil slices.
func persistedDefinition(nodes []*models.Node, edges []*models.Edge) models.Definition {
	definition := models.Definition{
		Nodes: make([]*models.Node, 0, len(nodes)),
		Edges: make([]*models.Edge, 0, len(edges)),
	}

	for _, node := range nodes {
		if node != nil {
			definition.Nodes = append(definition.Nodes, node.Clone())
		}
	}

	for _, edge := range edges {
		if edge != nil {
			definition.Edges = append(definition.Edges, edge.Persisted())
		}
	}

	return definition
}

func withDefaultLimits(metadata *models.FlowMetadata) models.FlowMetadata {
	var out models.FlowMetadata
	if metadata != nil {
		out = *metadata
	}

	if out.MaxExecutionTime <= 0 {
		out.MaxExecutionTime = models.DefaultMaxExecutionTime
	}

	if out.MaxRetries <= 0 {
		out.MaxRetries = models.DefaultMaxRetries
	}

	return out
}
