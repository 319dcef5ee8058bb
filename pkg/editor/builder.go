// Package editor drives a workflow graph through user edits, validation, autosave and the remote API.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/machinehq/flowbuilder/pkg/autosave"
	"github.com/machinehq/flowbuilder/pkg/changes"
	"github.com/machinehq/flowbuilder/pkg/graph"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/registry"
	"github.com/machinehq/flowbuilder/pkg/templates"
	"github.com/machinehq/flowbuilder/pkg/validation"
)

var (
	// ErrValidation is returned by Save and Run when the graph has error-severity issues.
	ErrValidation = errors.New("workflow has validation errors")

	ErrNotSaved  = errors.New("workflow has not been saved")
	ErrNoProject = errors.New("workflow has no project")
)

// API is the subset of the remote facade the builder needs.
type API interface {
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	CreateWorkflow(ctx context.Context, req models.CreateWorkflowRequest) (*models.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, req models.UpdateWorkflowRequest) error
	AutoSaveWorkflowFlow(ctx context.Context, id string, req models.AutoSaveFlowRequest) error
	UpdateWorkflowStatus(ctx context.Context, id string, status models.WorkflowStatus) error
	ExecuteWorkflow(ctx context.Context, id string) (string, error)
}

type Config struct {
	Logger    *slog.Logger
	Registry  *registry.Registry
	Validator *validation.Validator
	Notifier  Notifier
	Autosave  autosave.Config
}

type Builder struct {
	ctx       context.Context
	logger    *slog.Logger
	api       API
	store     *graph.Store
	sync      *graph.Synchronizer
	validator *validation.Validator
	autosaver *autosave.Autosaver
	notifier  Notifier

	// graphMu serializes read-modify-write cycles on the store.
	graphMu sync.Mutex

	metaMu      sync.RWMutex
	workflowID  string
	name        string
	description string
	projectID   string
	status      models.WorkflowStatus
	metadata    models.FlowMetadata

	// saveMu is shared with the autosaver so manual and automatic saves never overlap.
	saveMu sync.Mutex
}

func NewBuilder(ctx context.Context, api API, cfg Config) *Builder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Registry == nil {
		cfg.Registry = registry.NewDefaultRegistry(cfg.Logger)
	}

	if cfg.Validator == nil {
		cfg.Validator = validation.NewDefault(cfg.Logger, cfg.Registry)
	}

	if cfg.Notifier == nil {
		cfg.Notifier = NewLogNotifier(cfg.Logger)
	}

	b := &Builder{
		ctx:       ctx,
		logger:    cfg.Logger.With("module", "editor"),
		api:       api,
		store:     graph.NewStore(),
		sync:      graph.NewSynchronizer(cfg.Registry),
		validator: cfg.Validator,
		notifier:  cfg.Notifier,
		status:    models.WorkflowStatusDraft,
		metadata: models.FlowMetadata{
			MaxExecutionTime: models.DefaultMaxExecutionTime,
			MaxRetries:       models.DefaultMaxRetries,
		},
	}

	autosaveCfg := cfg.Autosave
	autosaveCfg.Logger = b.logger
	autosaveCfg.SaveLock = &b.saveMu
	autosaveCfg.OnError = func(err error) {
		b.notifier.Notify(b.ctx, LevelError, "Autosave failed", err.Error())
	}

	b.autosaver = autosave.New(ctx, b.Snapshot, b.autosave, autosaveCfg)

	return b
}

// Store exposes the underlying graph container for rendering.
func (b *Builder) Store() *graph.Store { return b.store }

func (b *Builder) Nodes() []*models.Node { return b.store.Nodes() }

func (b *Builder) Edges() []*models.Edge { return b.store.Edges() }

func (b *Builder) WorkflowID() string {
	b.metaMu.RLock()
	defer b.metaMu.RUnlock()

	return b.workflowID
}

func (b *Builder) Name() string {
	b.metaMu.RLock()
	defer b.metaMu.RUnlock()

	return b.name
}

func (b *Builder) Status() models.WorkflowStatus {
	b.metaMu.RLock()
	defer b.metaMu.RUnlock()

	return b.status
}

// Snapshot captures the persisted projection of the current state.
func (b *Builder) Snapshot() *changes.Snapshot {
	b.metaMu.RLock()
	name, description := b.name, b.description
	b.metaMu.RUnlock()

	return changes.Capture(name, description, b.store.Nodes(), b.store.Edges())
}

// HasUnsavedChanges reports whether the state differs from the last save.
func (b *Builder) HasUnsavedChanges() bool {
	return changes.HasChanges(b.Snapshot(), b.autosaver.Baseline())
}

// LastSavedAt returns when the workflow was last persisted, zero if never.
func (b *Builder) LastSavedAt() time.Time { return b.autosaver.SavedAt() }

func (b *Builder) AutosaveState() autosave.State { return b.autosaver.State() }

// Issues validates the current graph.
func (b *Builder) Issues() validation.Result {
	return b.validator.Validate(b.store.Nodes(), b.store.Edges())
}

func (b *Builder) AddNode(node *models.Node) {
	if node.ID == "" {
		node.ID = fmt.Sprintf("%s-%s", node.Type, uuid.NewString())
	}

	b.store.AddNode(node)
	b.autosaver.Touch()
}

func (b *Builder) MoveNode(id string, position models.Position) error {
	if err := b.store.MoveNode(id, position); err != nil {
		return err
	}

	b.autosaver.Touch()

	return nil
}

// UpdateNodeData edits a node payload. Connection lists cannot be changed this way.
func (b *Builder) UpdateNodeData(id string, fn func(*models.NodeData)) error {
	if err := b.store.UpdateNodeData(id, fn); err != nil {
		return err
	}

	b.autosaver.Touch()

	return nil
}

// RemoveNodes deletes nodes together with every edge touching them.
func (b *Builder) RemoveNodes(ids ...string) error {
	b.graphMu.Lock()

	nodes := b.store.Nodes()
	for _, id := range ids {
		if _, ok := b.store.Node(id); !ok {
			b.graphMu.Unlock()

			return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
		}
	}

	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		removed[id] = true
	}

	var edgeChanges []models.EdgeChange

	for _, edge := range b.store.Edges() {
		if removed[edge.Source] || removed[edge.Target] {
			edgeChanges = append(edgeChanges, models.EdgeChange{Type: models.EdgeChangeRemove, ID: edge.ID})
		}
	}

	kept := make([]*models.Node, 0, len(nodes))

	for _, node := range nodes {
		if !removed[node.ID] {
			kept = append(kept, node)
		}
	}

	newNodes, newEdges := b.sync.ApplyEdgeChanges(kept, b.store.Edges(), edgeChanges)
	b.store.Reset(newNodes, newEdges)
	b.graphMu.Unlock()

	b.autosaver.Touch()

	return nil
}

// Connect adds an edge between two existing nodes. An empty edge id is generated.
func (b *Builder) Connect(edge *models.Edge) error {
	if _, ok := b.store.Node(edge.Source); !ok {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, edge.Source)
	}

	if _, ok := b.store.Node(edge.Target); !ok {
		return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, edge.Target)
	}

	if edge.ID == "" {
		edge.ID = "edge-" + uuid.NewString()
	}

	b.ApplyEdgeChanges([]models.EdgeChange{{Type: models.EdgeChangeAdd, Item: edge}})

	return nil
}

// ApplyEdgeChanges applies a canvas change event and repairs node connection lists.
func (b *Builder) ApplyEdgeChanges(edgeChanges []models.EdgeChange) {
	b.graphMu.Lock()
	nodes, edges := b.sync.ApplyEdgeChanges(b.store.Nodes(), b.store.Edges(), edgeChanges)
	b.store.Reset(nodes, edges)
	b.graphMu.Unlock()

	b.autosaver.Touch()
}

func (b *Builder) SetName(name string) {
	b.setMeta(func() { b.name = name })
}

func (b *Builder) SetDescription(description string) {
	b.setMeta(func() { b.description = description })
}

func (b *Builder) SetProject(projectID string) {
	b.setMeta(func() { b.projectID = projectID })
}

func (b *Builder) setMeta(fn func()) {
	b.metaMu.Lock()
	fn()
	b.metaMu.Unlock()

	b.autosaver.Touch()
}

// Load replaces the editor state with a persisted workflow and arms autosave.
func (b *Builder) Load(ctx context.Context, id string) error {
	workflow, err := b.api.GetWorkflow(ctx, id)
	if err != nil {
		b.notifier.Notify(ctx, LevelError, "Failed to load workflow", err.Error())

		return fmt.Errorf("failed to load workflow %s: %w", id, err)
	}

	b.saveMu.Lock()
	b.autosaver.Cancel()
	nodes := b.replace(workflow)
	b.autosaver.Arm(workflow.ID, b.Snapshot())
	b.saveMu.Unlock()

	b.logger.InfoContext(ctx, "Loaded workflow", "workflow_id", workflow.ID, "nodes", len(nodes))

	return nil
}

// Import replaces the editor state with a workflow that did not come from the backend,
// such as a file. The state counts as unsaved; Save updates when the workflow has an id
// and creates it otherwise. Autosave follows the imported id and stays off without one.
func (b *Builder) Import(workflow *models.Workflow) {
	b.saveMu.Lock()
	defer b.saveMu.Unlock()

	b.autosaver.Cancel()
	b.replace(workflow)

	if workflow.ID == "" {
		b.autosaver.Disarm()

		return
	}

	b.autosaver.Arm(workflow.ID, nil)
}

func (b *Builder) replace(workflow *models.Workflow) []*models.Node {
	b.graphMu.Lock()
	nodes := b.sync.Rebuild(workflow.Definition.Nodes, workflow.Definition.Edges)
	b.store.Reset(nodes, workflow.Definition.Edges)
	b.graphMu.Unlock()

	b.metaMu.Lock()
	b.workflowID = workflow.ID
	b.name = workflow.Name
	b.description = workflow.Description
	b.projectID = workflow.ProjectID

	if workflow.Status != "" {
		b.status = workflow.Status
	}

	b.metadata = workflow.Metadata
	b.metaMu.Unlock()

	return nodes
}

// LoadTemplate replaces the graph with a built-in template.
func (b *Builder) LoadTemplate(name string) error {
	tpl, err := templates.Get(name)
	if err != nil {
		return err
	}

	b.graphMu.Lock()
	b.store.Reset(tpl.Nodes, tpl.Edges)
	b.graphMu.Unlock()

	b.metaMu.Lock()
	if b.name == "" {
		b.name = tpl.Name
	}

	if b.description == "" {
		b.description = tpl.Description
	}
	b.metaMu.Unlock()

	b.autosaver.Touch()

	return nil
}

func (b *Builder) validate(ctx context.Context, action string) error {
	result := b.Issues()
	if result.Valid {
		return nil
	}

	err := result.Err()
	b.notifier.Notify(ctx, LevelError, "Cannot "+action+" workflow", err.Error())

	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Save persists the workflow, creating it on first save. It never reaches the network
// while the graph has validation errors.
func (b *Builder) Save(ctx context.Context) error {
	if err := b.validate(ctx, "save"); err != nil {
		return err
	}

	b.autosaver.Cancel()

	if err := b.save(ctx); err != nil {
		b.notifier.Notify(ctx, LevelError, "Failed to save workflow", err.Error())

		return err
	}

	b.notifier.Notify(ctx, LevelSuccess, "Workflow saved", "")

	// Edits made while the request was in flight.
	b.autosaver.Touch()

	return nil
}

func (b *Builder) save(ctx context.Context) error {
	b.saveMu.Lock()
	defer b.saveMu.Unlock()

	snapshot := b.Snapshot()

	b.metaMu.RLock()
	id, projectID, status := b.workflowID, b.projectID, b.status
	metadata := b.flowMetadataLocked(snapshot)
	b.metaMu.RUnlock()

	definition := models.Definition{Nodes: snapshot.Nodes, Edges: snapshot.Edges}

	if id != "" {
		err := b.api.UpdateWorkflow(ctx, id, models.UpdateWorkflowRequest{
			Name:        &snapshot.Name,
			Description: &snapshot.Description,
			Definition:  &definition,
			Metadata:    &metadata,
		})
		if err != nil {
			return fmt.Errorf("failed to update workflow: %w", err)
		}

		b.autosaver.Arm(id, snapshot)
		b.autosaver.MarkSaved(snapshot)
		b.logger.InfoContext(ctx, "Saved workflow", "workflow_id", id)

		return nil
	}

	if projectID == "" {
		return ErrNoProject
	}

	created, err := b.api.CreateWorkflow(ctx, models.CreateWorkflowRequest{
		Name:        snapshot.Name,
		Description: snapshot.Description,
		ProjectID:   projectID,
		Status:      status,
		Definition:  definition,
		Metadata:    &metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	b.metaMu.Lock()
	b.workflowID = created.ID
	if created.Status != "" {
		b.status = created.Status
	}
	b.metaMu.Unlock()

	b.autosaver.Arm(created.ID, snapshot)
	b.autosaver.MarkSaved(snapshot)
	b.logger.InfoContext(ctx, "Created workflow", "workflow_id", created.ID)

	return nil
}

// Run saves pending changes if needed and starts an execution, returning its thread id.
func (b *Builder) Run(ctx context.Context) (string, error) {
	if err := b.validate(ctx, "run"); err != nil {
		return "", err
	}

	if b.WorkflowID() == "" || b.HasUnsavedChanges() {
		b.autosaver.Cancel()

		if err := b.save(ctx); err != nil {
			b.notifier.Notify(ctx, LevelError, "Failed to save workflow", err.Error())

			return "", err
		}
	}

	id := b.WorkflowID()

	threadID, err := b.api.ExecuteWorkflow(ctx, id)
	if err != nil {
		b.notifier.Notify(ctx, LevelError, "Failed to run workflow", err.Error())

		return "", fmt.Errorf("failed to execute workflow: %w", err)
	}

	b.notifier.Notify(ctx, LevelSuccess, "Workflow started", "thread "+threadID)
	b.logger.InfoContext(ctx, "Executed workflow", "workflow_id", id, "thread_id", threadID)

	return threadID, nil
}

// ToggleStatus flips an active workflow to paused and anything else to active.
func (b *Builder) ToggleStatus(ctx context.Context) (models.WorkflowStatus, error) {
	b.metaMu.RLock()
	id, current := b.workflowID, b.status
	b.metaMu.RUnlock()

	if id == "" {
		return current, ErrNotSaved
	}

	next := models.WorkflowStatusActive
	if current == models.WorkflowStatusActive {
		next = models.WorkflowStatusPaused
	}

	if err := b.api.UpdateWorkflowStatus(ctx, id, next); err != nil {
		b.notifier.Notify(ctx, LevelError, "Failed to update workflow status", err.Error())

		return current, fmt.Errorf("failed to update workflow status: %w", err)
	}

	b.metaMu.Lock()
	b.status = next
	b.metaMu.Unlock()

	b.notifier.Notify(ctx, LevelSuccess, "Workflow "+string(next), "")

	return next, nil
}

// Close stops autosave. Requests already sent are not cancelled.
func (b *Builder) Close() {
	b.autosaver.Stop()
}

func (b *Builder) autosave(ctx context.Context, id string, snapshot *changes.Snapshot) error {
	b.metaMu.RLock()
	metadata := b.flowMetadataLocked(snapshot)
	b.metaMu.RUnlock()

	return b.api.AutoSaveWorkflowFlow(ctx, id, models.AutoSaveFlowRequest{
		Nodes:    snapshot.Nodes,
		Edges:    snapshot.Edges,
		Metadata: metadata,
	})
}

func (b *Builder) flowMetadataLocked(snapshot *changes.Snapshot) models.FlowMetadata {
	metadata := b.metadata
	metadata.Name = snapshot.Name
	metadata.Description = snapshot.Description

	if metadata.MaxExecutionTime == 0 {
		metadata.MaxExecutionTime = models.DefaultMaxExecutionTime
	}

	if metadata.MaxRetries == 0 {
		metadata.MaxRetries = models.DefaultMaxRetries
	}

	return metadata
}
