package models

// CreateWorkflowRequest is the body of POST /workflows.
type CreateWorkflowRequest struct {
	Name        string         `json:"name"             validate:"required,min=1"`
	Description string         `json:"description"`
	ProjectID   string         `json:"project_id"       validate:"required"`
	Status      WorkflowStatus `json:"status,omitempty" validate:"omitempty,oneof=draft active paused disabled archived"`
	Definition  Definition     `json:"definition"`
	Metadata    *FlowMetadata  `json:"metadata,omitempty"`
}

// UpdateWorkflowRequest is the body of PUT /workflows/:id. Nil fields are left unchanged.
type UpdateWorkflowRequest struct {
	Name        *string       `json:"name,omitempty"        validate:"omitempty,min=1"`
	Description *string       `json:"description,omitempty"`
	Definition  *Definition   `json:"definition,omitempty"`
	Metadata    *FlowMetadata `json:"metadata,omitempty"`
}

// AutoSaveFlowRequest is the body of PUT /workflows/:id/flow.
type AutoSaveFlowRequest struct {
	Nodes    []*Node      `json:"nodes"`
	Edges    []*Edge      `json:"edges"`
	Metadata FlowMetadata `json:"metadata"`
}

// UpdateStatusRequest is the body of PATCH /workflows/:id/status.
type UpdateStatusRequest struct {
	Status WorkflowStatus `json:"status" validate:"required,oneof=draft active paused disabled archived"`
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name        string `json:"name"        validate:"required,min=1"`
	Description string `json:"description"`
}

// ExecuteWorkflowResponse is returned by POST /workflows/:id/execute.
type ExecuteWorkflowResponse struct {
	ThreadID string `json:"thread_id"`
}
