package models

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeData_PreservesUnknownKeys(t *testing.T) {
	raw := `{
		"label": "Researcher",
		"nodeId": "web-search",
		"model": "large",
		"temperature": 0.2,
		"tools": ["search", {"name": "fetch"}],
		"connectedTools": [{"id": "tool-1", "name": "Search", "type": "toolConnectionNode", "handleId": "tools"}]
	}`

	var data NodeData
	require.NoError(t, json.Unmarshal([]byte(raw), &data))

	assert.Equal(t, "Researcher", data.Label)
	assert.Equal(t, "web-search", data.NodeID)
	require.Len(t, data.ConnectedTools, 1)
	assert.Equal(t, "tool-1", data.ConnectedTools[0].ID)
	assert.Equal(t, "large", data.Extra["model"])
	assert.InDelta(t, 0.2, data.Extra["temperature"], 1e-9)
	assert.NotContains(t, data.Extra, "label")

	encoded, err := json.Marshal(data)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(encoded, &flat))
	assert.Equal(t, "large", flat["model"])
	assert.Equal(t, []any{"search", map[string]any{"name": "fetch"}}, flat["tools"])
	assert.Equal(t, []any{}, flat["inputConnections"])
	assert.Equal(t, []any{}, flat["outputConnections"])
}

func TestNodeData_TypedFieldsWinOverExtra(t *testing.T) {
	data := NodeData{Label: "typed", Extra: map[string]any{"label": "stale"}}

	flat, err := data.AsMap()
	require.NoError(t, err)
	assert.Equal(t, "typed", flat["label"])
	assert.NotContains(t, flat, "nodeId")
}

func TestNode_CloneIsDeep(t *testing.T) {
	original := &Node{
		ID:   "agent-1",
		Type: NodeTypeAgent,
		Data: NodeData{
			Label:          "Agent",
			ConnectedTools: []ConnectionRef{{ID: "tool-1"}},
			Extra:          map[string]any{"config": map[string]any{"depth": 2.0}, "tags": []any{"a"}},
		},
	}

	clone := original.Clone()
	require.Empty(t, cmp.Diff(original, clone))

	clone.Data.ConnectedTools[0].ID = "tool-2"
	clone.Data.Extra["config"].(map[string]any)["depth"] = 3.0
	clone.Data.Extra["tags"].([]any)[0] = "b"

	assert.Equal(t, "tool-1", original.Data.ConnectedTools[0].ID)
	assert.Equal(t, 2.0, original.Data.Extra["config"].(map[string]any)["depth"])
	assert.Equal(t, "a", original.Data.Extra["tags"].([]any)[0])

	var nilNode *Node
	assert.Nil(t, nilNode.Clone())
}

func TestNode_DisplayName(t *testing.T) {
	assert.Equal(t, "Agent", (&Node{ID: "agent-1", Data: NodeData{Label: "Agent"}}).DisplayName())
	assert.Equal(t, "agent-1", (&Node{ID: "agent-1"}).DisplayName())
}

func TestNode_EditorStateNotSerialized(t *testing.T) {
	encoded, err := json.Marshal(&Node{ID: "n", Type: NodeTypeInput, Selected: true, Dragging: true})
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "elected")
	assert.NotContains(t, string(encoded), "ragging")
}

func TestEdge_Persisted(t *testing.T) {
	edge := &Edge{
		ID:           "e1",
		Source:       "tool-1",
		Target:       "agent-1",
		SourceHandle: HandleToolConnection,
		TargetHandle: HandleTools,
		Type:         "smoothstep",
		Animated:     true,
		Style:        map[string]any{"stroke": "#888"},
		MarkerEnd:    map[string]any{"type": "arrow"},
	}

	persisted := edge.Persisted()
	assert.Equal(t, &Edge{
		ID:           "e1",
		Source:       "tool-1",
		Target:       "agent-1",
		SourceHandle: HandleToolConnection,
		TargetHandle: HandleTools,
	}, persisted)

	assert.True(t, edge.IsToolWiring())
	assert.True(t, edge.SameLink(persisted))
	assert.False(t, edge.SameLink(&Edge{Source: "tool-1", Target: "agent-1", SourceHandle: HandleOutput, TargetHandle: HandleTools}))

	clone := edge.Clone()
	clone.Style["stroke"] = "#000"
	assert.Equal(t, "#888", edge.Style["stroke"])
}

func TestWorkflowStatus_IsValid(t *testing.T) {
	for _, status := range WorkflowStatuses {
		assert.True(t, status.IsValid(), status)
	}

	assert.False(t, WorkflowStatus("running").IsValid())
	assert.False(t, WorkflowStatus("").IsValid())
}

func TestRequests_ValidationTags(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name  string
		value any
		valid bool
	}{
		{name: "create ok", value: CreateWorkflowRequest{Name: "wf", ProjectID: "p"}, valid: true},
		{name: "create missing project", value: CreateWorkflowRequest{Name: "wf"}, valid: false},
		{name: "create bad status", value: CreateWorkflowRequest{Name: "wf", ProjectID: "p", Status: "running"}, valid: false},
		{name: "status ok", value: UpdateStatusRequest{Status: WorkflowStatusPaused}, valid: true},
		{name: "status empty", value: UpdateStatusRequest{}, valid: false},
		{name: "node unknown type", value: Node{ID: "n", Type: "loopNode"}, valid: false},
		{name: "node ok", value: Node{ID: "n", Type: NodeTypeMCP}, valid: true},
		{name: "edge missing target", value: Edge{ID: "e", Source: "a"}, valid: false},
		{name: "project blank", value: CreateProjectRequest{}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.value)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
