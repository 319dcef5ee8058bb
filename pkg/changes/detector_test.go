package changes

import (
	"testing"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/stretchr/testify/assert"
)

func baseGraph() ([]*models.Node, []*models.Edge) {
	nodes := []*models.Node{
		{
			ID:       "tool-1",
			Type:     models.NodeTypeToolConnection,
			Position: models.Position{X: 100, Y: 200},
			Data:     models.NodeData{Label: "Web Search", NodeID: "web_search"},
		},
		{
			ID:       "agent-1",
			Type:     models.NodeTypeAgent,
			Position: models.Position{X: 400, Y: 200},
			Data: models.NodeData{
				Label: "Test Agent",
				Extra: map[string]any{"model": "gpt"},
			},
		},
	}

	edges := []*models.Edge{
		{
			ID:           "e1",
			Source:       "tool-1",
			Target:       "agent-1",
			SourceHandle: models.HandleToolConnection,
			TargetHandle: models.HandleTools,
			Animated:     true,
		},
	}

	return nodes, edges
}

func TestHasChanges_FalseRightAfterSave(t *testing.T) {
	nodes, edges := baseGraph()

	saved := Capture("Flow", "desc", nodes, edges)
	current := Capture("Flow", "desc", nodes, edges)

	assert.False(t, HasChanges(current, saved))
	assert.Empty(t, Diff(current, saved))
}

func TestHasChanges_NilBaseline(t *testing.T) {
	nodes, edges := baseGraph()

	assert.True(t, HasChanges(Capture("Flow", "", nodes, edges), nil))
	assert.False(t, HasChanges(nil, nil))
	assert.True(t, HasChanges(nil, Capture("Flow", "", nodes, edges)))
}

func TestHasChanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(name, desc *string, nodes *[]*models.Node, edges *[]*models.Edge)
		want   bool
	}{
		{
			name: "node moved",
			mutate: func(_, _ *string, nodes *[]*models.Node, _ *[]*models.Edge) {
				(*nodes)[0].Position.X = 101
			},
			want: true,
		},
		{
			name: "node data changed",
			mutate: func(_, _ *string, nodes *[]*models.Node, _ *[]*models.Edge) {
				(*nodes)[1].Data.Extra["model"] = "claude"
			},
			want: true,
		},
		{
			name: "node type changed",
			mutate: func(_, _ *string, nodes *[]*models.Node, _ *[]*models.Edge) {
				(*nodes)[0].Type = models.NodeTypeMCP
			},
			want: true,
		},
		{
			name: "edge added",
			mutate: func(_, _ *string, _ *[]*models.Node, edges *[]*models.Edge) {
				*edges = append(*edges, &models.Edge{ID: "e2", Source: "agent-1", Target: "tool-1"})
			},
			want: true,
		},
		{
			name: "edge removed",
			mutate: func(_, _ *string, _ *[]*models.Node, edges *[]*models.Edge) {
				*edges = nil
			},
			want: true,
		},
		{
			name: "edge handle changed",
			mutate: func(_, _ *string, _ *[]*models.Node, edges *[]*models.Edge) {
				(*edges)[0].TargetHandle = models.HandleInput
			},
			want: true,
		},
		{
			name: "name edited",
			mutate: func(name, _ *string, _ *[]*models.Node, _ *[]*models.Edge) {
				*name = "Flow 2"
			},
			want: true,
		},
		{
			name: "description edited",
			mutate: func(_, desc *string, _ *[]*models.Node, _ *[]*models.Edge) {
				*desc = "other"
			},
			want: true,
		},
		{
			name: "selection is volatile",
			mutate: func(_, _ *string, nodes *[]*models.Node, _ *[]*models.Edge) {
				(*nodes)[0].Selected = true
				(*nodes)[1].Dragging = true
			},
			want: false,
		},
		{
			name: "edge styling is volatile",
			mutate: func(_, _ *string, _ *[]*models.Node, edges *[]*models.Edge) {
				(*edges)[0].Animated = false
				(*edges)[0].Style = map[string]any{"stroke": "red"}
				(*edges)[0].Type = "smoothstep"
			},
			want: false,
		},
		{
			name: "empty versus nil connection lists",
			mutate: func(_, _ *string, nodes *[]*models.Node, _ *[]*models.Edge) {
				(*nodes)[0].Data.OutputConnections = []models.ConnectionRef{}
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, edges := baseGraph()
			saved := Capture("Flow", "desc", nodes, edges)

			name, desc := "Flow", "desc"
			tt.mutate(&name, &desc, &nodes, &edges)

			assert.Equal(t, tt.want, HasChanges(Capture(name, desc, nodes, edges), saved))
		})
	}
}

func TestCapture_IsIndependentOfSource(t *testing.T) {
	nodes, edges := baseGraph()
	snapshot := Capture("Flow", "", nodes, edges)

	nodes[1].Data.Extra["model"] = "changed"
	edges[0].Source = "changed"

	assert.Equal(t, "gpt", snapshot.Nodes[1].Data.Extra["model"])
	assert.Equal(t, "tool-1", snapshot.Edges[0].Source)
	assert.False(t, snapshot.Edges[0].Animated)
}
