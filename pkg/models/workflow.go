// Package models defines the core domain models for the workflow builder graph.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"    // Editable, never triggered
	WorkflowStatusActive   WorkflowStatus = "active"   // Eligible for triggered execution
	WorkflowStatusPaused   WorkflowStatus = "paused"   // Temporarily not triggered
	WorkflowStatusDisabled WorkflowStatus = "disabled" // Turned off by an operator
	WorkflowStatusArchived WorkflowStatus = "archived" // Terminal
)

// WorkflowStatuses lists every known status.
var WorkflowStatuses = []WorkflowStatus{
	WorkflowStatusDraft,
	WorkflowStatusActive,
	WorkflowStatusPaused,
	WorkflowStatusDisabled,
	WorkflowStatusArchived,
}

// IsValid reports whether s is one of the known statuses.
func (s WorkflowStatus) IsValid() bool {
	for _, status := range WorkflowStatuses {
		if s == status {
			return true
		}
	}

	return false
}

// Definition is the graph part of a workflow as persisted by the backend.
type Definition struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Workflow represents a workflow owned by a project.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"                  validate:"required,min=1"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"                validate:"required"`
	ProjectID   string         `json:"project_id"            validate:"required"`
	Definition  Definition     `json:"definition"`
	Metadata    FlowMetadata   `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// FlowMetadata is the metadata block sent along with an autosaved flow.
type FlowMetadata struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	MaxExecutionTime int    `json:"max_execution_time"`
	MaxRetries       int    `json:"max_retries"`
	IsTemplate       bool   `json:"is_template"`
}

// Default execution limits applied when a workflow has none.
const (
	DefaultMaxExecutionTime = 3600
	DefaultMaxRetries       = 3
)
