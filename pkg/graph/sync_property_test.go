package graph_test

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/machinehq/flowbuilder/pkg/graph"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/registry"
	"github.com/machinehq/flowbuilder/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var handlePairs = [][2]string{
	{models.HandleToolConnection, models.HandleTools},
	{models.HandleOutput, models.HandleInput},
	{models.HandleMCPConnection, models.HandleTools},
}

func propertyNodes() []*models.Node {
	return []*models.Node{
		{ID: "n0", Type: models.NodeTypeInput, Data: models.NodeData{Label: "Input"}},
		{ID: "n1", Type: models.NodeTypeToolConnection, Data: models.NodeData{Label: "Tool"}},
		{ID: "n2", Type: models.NodeTypeMCP, Data: models.NodeData{Label: "MCP"}},
		{ID: "n3", Type: models.NodeTypeAgent, Data: models.NodeData{Label: "Agent A"}},
		{ID: "n4", Type: models.NodeTypeAgent, Data: models.NodeData{Label: "Agent B"}},
	}
}

func drawEdge(t *rapid.T, label string) *models.Edge {
	source := rapid.IntRange(0, 4).Draw(t, label+"_source")
	target := rapid.IntRange(0, 4).Draw(t, label+"_target")
	handles := rapid.SampledFrom(handlePairs).Draw(t, label+"_handles")

	return &models.Edge{
		ID:           fmt.Sprintf("%s-n%d-n%d-%s-%s", label, source, target, handles[0], handles[1]),
		Source:       fmt.Sprintf("n%d", source),
		Target:       fmt.Sprintf("n%d", target),
		SourceHandle: handles[0],
		TargetHandle: handles[1],
	}
}

func TestSynchronizer_Property_AddThenRemoveRestores(t *testing.T) {
	s := graph.NewSynchronizer(registry.NewDefaultRegistry(slog.Default()))

	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 6).Draw(t, "count")

		nodes := propertyNodes()
		edges := make([]*models.Edge, 0, count)

		for i := range count {
			nodes, edges = s.ApplyEdgeChanges(nodes, edges, []models.EdgeChange{
				{Type: models.EdgeChangeAdd, Item: drawEdge(t, fmt.Sprintf("base%d", i))},
			})
		}

		before := graph.CloneNodes(nodes)
		extra := drawEdge(t, "extra")

		if rapid.Bool().Draw(t, "repeat") {
			nodes, edges = s.ApplyEdgeChanges(nodes, edges, []models.EdgeChange{{Type: models.EdgeChangeAdd, Item: extra}})
		}

		added := len(edges)
		nodes, edges = s.ApplyEdgeChanges(nodes, edges, []models.EdgeChange{{Type: models.EdgeChangeAdd, Item: extra}})

		if len(edges) == added {
			// Already present (same id or same link): nothing to undo.
			return
		}

		nodes, _ = s.ApplyEdgeChanges(nodes, edges, []models.EdgeChange{{Type: models.EdgeChangeRemove, ID: extra.ID}})

		if diff := cmp.Diff(before, nodes, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("node data not restored (-before +after):\n%s", diff)
		}
	})
}

func TestSynchronizer_Property_ProjectionMatchesRebuild(t *testing.T) {
	s := graph.NewSynchronizer(registry.NewDefaultRegistry(slog.Default()))

	rapid.Check(t, func(t *rapid.T) {
		nodes := propertyNodes()
		var edges []*models.Edge

		steps := rapid.IntRange(1, 12).Draw(t, "steps")
		for i := range steps {
			if len(edges) > 0 && rapid.Bool().Draw(t, fmt.Sprintf("remove%d", i)) {
				victim := rapid.IntRange(0, len(edges)-1).Draw(t, fmt.Sprintf("victim%d", i))
				nodes, edges = s.ApplyEdgeChanges(nodes, edges, []models.EdgeChange{
					{Type: models.EdgeChangeRemove, ID: edges[victim].ID},
				})

				continue
			}

			nodes, edges = s.ApplyEdgeChanges(nodes, edges, []models.EdgeChange{
				{Type: models.EdgeChangeAdd, Item: drawEdge(t, fmt.Sprintf("step%d", i))},
			})
		}

		rebuilt := s.Rebuild(nodes, edges)

		for i := range nodes {
			assertSameRefs(t, rebuilt[i].Data.ConnectedTools, nodes[i].Data.ConnectedTools)
			assertSameRefs(t, rebuilt[i].Data.InputConnections, nodes[i].Data.InputConnections)
			assertSameRefs(t, rebuilt[i].Data.OutputConnections, nodes[i].Data.OutputConnections)
		}
	})
}

func assertSameRefs(t *rapid.T, want, got []models.ConnectionRef) {
	sortRefs := cmpopts.SortSlices(func(a, b models.ConnectionRef) bool {
		if a.ID != b.ID {
			return a.ID < b.ID
		}

		return a.HandleID < b.HandleID
	})

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty(), sortRefs); diff != "" {
		t.Fatalf("projection drifted from edges (-rebuild +incremental):\n%s", diff)
	}
}

func TestSynchronizer_TemplateEdgeRemoval(t *testing.T) {
	s := graph.NewSynchronizer(registry.NewDefaultRegistry(slog.Default()))

	tpl, err := templates.Get(templates.WebSearchAgent)
	require.NoError(t, err)
	require.Len(t, tpl.Edges, 1)

	nodes, edges := s.ApplyEdgeChanges(tpl.Nodes, tpl.Edges, []models.EdgeChange{
		{Type: models.EdgeChangeRemove, ID: tpl.Edges[0].ID},
	})

	assert.Empty(t, edges)

	for _, node := range nodes {
		switch node.Type {
		case models.NodeTypeAgent:
			assert.Empty(t, node.Data.ConnectedTools)
			assert.Empty(t, node.Data.InputConnections)
		case models.NodeTypeToolConnection:
			assert.Empty(t, node.Data.OutputConnections)
		}
	}
}
