package models

import "time"

// Project owns workflows and threads.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"        validate:"required,min=1"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Thread is the conversation created when a workflow is executed.
type Thread struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
