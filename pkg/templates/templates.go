// Package templates provides the built-in workflow graphs a new workflow can start from.
package templates

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/machinehq/flowbuilder/pkg/graph"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/registry"
)

// WebSearchAgent is a tool connection node wired into an agent's tool input.
const WebSearchAgent = "web-search-agent"

// ErrTemplateNotFound is returned for unknown template names.
var ErrTemplateNotFound = errors.New("template not found")

// Template is a named starting graph.
type Template struct {
	Name        string
	Description string
	Nodes       []*models.Node
	Edges       []*models.Edge
}

var builtins = map[string]func() Template{
	WebSearchAgent: webSearchAgent,
}

// Names returns the names of every built-in template.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Get returns a fresh copy of a template with its connection lists already derived.
func Get(name string) (Template, error) {
	build, ok := builtins[name]
	if !ok {
		return Template{}, ErrTemplateNotFound
	}

	tpl := build()
	sync := graph.NewSynchronizer(registry.NewDefaultRegistry(slog.Default()))
	tpl.Nodes = sync.Rebuild(tpl.Nodes, tpl.Edges)

	return tpl, nil
}

func webSearchAgent() Template {
	return Template{
		Name:        "Web Search Agent",
		Description: "An agent with a web search tool",
		Nodes: []*models.Node{
			{
				ID:       "tool-1",
				Type:     models.NodeTypeToolConnection,
				Position: models.Position{X: 100, Y: 200},
				Data: models.NodeData{
					Label:  "Web Search",
					NodeID: "web_search",
					Extra: map[string]any{
						"description": "Search the web for up to date information",
					},
				},
			},
			{
				ID:       "agent-1",
				Type:     models.NodeTypeAgent,
				Position: models.Position{X: 400, Y: 200},
				Data: models.NodeData{
					Label:  "Test Agent",
					NodeID: "agent",
					Extra: map[string]any{
						"instructions": "You are a helpful assistant.",
					},
				},
			},
		},
		Edges: []*models.Edge{
			{
				ID:           "edge-tool-1-agent-1",
				Source:       "tool-1",
				Target:       "agent-1",
				SourceHandle: models.HandleToolConnection,
				TargetHandle: models.HandleTools,
				Type:         "smoothstep",
				Animated:     true,
				Style:        map[string]any{"stroke": "#6366f1"},
				MarkerEnd:    map[string]any{"type": "arrowclosed"},
			},
		},
	}
}
