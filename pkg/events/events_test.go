package events

import (
	"encoding/json"
	"testing"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	base := NewBaseEvent(WorkflowExecutionRequestedEvent, "wf-1", "p-1")

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, WorkflowExecutionRequestedEvent, base.Type)
	assert.Equal(t, "wf-1", base.WorkflowID)
	assert.Equal(t, "p-1", base.ProjectID)
	assert.False(t, base.Timestamp.IsZero())

	assert.NotEqual(t, base.ID, NewBaseEvent(WorkflowExecutionRequestedEvent, "wf-1", "p-1").ID)
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, WorkflowExecutionRequestedEvent, WorkflowExecutionRequested{}.GetType())
	assert.Equal(t, WorkflowStatusChangedEvent, WorkflowStatusChanged{}.GetType())
	assert.Equal(t, ThreadDeletedEvent, ThreadDeleted{}.GetType())
}

func TestWorkflowExecutionRequested_JSON(t *testing.T) {
	event := WorkflowExecutionRequested{
		BaseEvent: NewBaseEvent(WorkflowExecutionRequestedEvent, "wf-1", "p-1"),
		ThreadID:  "thread-1",
		Definition: models.Definition{
			Nodes: []*models.Node{{ID: "agent-1", Type: models.NodeTypeAgent, Data: models.NodeData{Label: "Agent"}}},
			Edges: []*models.Edge{},
		},
	}

	raw, err := json.Marshal(event)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Equal(t, "workflow.execution.requested", fields["type"])
	assert.Equal(t, "thread-1", fields["thread_id"])
	assert.Equal(t, "wf-1", fields["workflow_id"])
	assert.Contains(t, fields, "definition")
}
