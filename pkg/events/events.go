// Package events defines the events the backend emits when workflows change or are executed.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/machinehq/flowbuilder/pkg/models"
)

type EventType string

const Topic = "flowbuilder.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowExecutionRequestedEvent EventType = "workflow.execution.requested"
	WorkflowStatusChangedEvent      EventType = "workflow.status.changed"
	ThreadDeletedEvent              EventType = "thread.deleted"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID string    `json:"workflow_id,omitempty"`
	ProjectID  string    `json:"project_id"`
}

func NewBaseEvent(eventType EventType, workflowID, projectID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		ProjectID:  projectID,
	}
}

// WorkflowExecutionRequested hands a saved graph over to the execution backend.
type WorkflowExecutionRequested struct {
	BaseEvent

	ThreadID   string              `json:"thread_id"`
	Definition models.Definition   `json:"definition"`
	Metadata   models.FlowMetadata `json:"metadata"`
}

func (e WorkflowExecutionRequested) GetType() EventType {
	return WorkflowExecutionRequestedEvent
}

type WorkflowStatusChanged struct {
	BaseEvent

	From models.WorkflowStatus `json:"from"`
	To   models.WorkflowStatus `json:"to"`
}

func (e WorkflowStatusChanged) GetType() EventType {
	return WorkflowStatusChangedEvent
}

type ThreadDeleted struct {
	BaseEvent

	ThreadID string `json:"thread_id"`
}

func (e ThreadDeleted) GetType() EventType {
	return ThreadDeletedEvent
}
