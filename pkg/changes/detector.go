// Package changes decides whether the editor state differs from what was last persisted.
package changes

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/machinehq/flowbuilder/pkg/models"
)

// Snapshot is the persisted projection of the editor state: node id, type, position and data,
// edge id, endpoints and handles, plus the workflow name and description.
type Snapshot struct {
	Name        string
	Description string
	Nodes       []*models.Node
	Edges       []*models.Edge
}

// Capture builds a snapshot, dropping fields the server does not persist.
func Capture(name, description string, nodes []*models.Node, edges []*models.Edge) *Snapshot {
	snapshot := &Snapshot{
		Name:        name,
		Description: description,
		Nodes:       make([]*models.Node, 0, len(nodes)),
		Edges:       make([]*models.Edge, 0, len(edges)),
	}

	for _, n := range nodes {
		clone := n.Clone()
		clone.Selected = false
		clone.Dragging = false
		snapshot.Nodes = append(snapshot.Nodes, clone)
	}

	for _, e := range edges {
		snapshot.Edges = append(snapshot.Edges, e.Persisted())
	}

	return snapshot
}

var compareOptions = []cmp.Option{
	cmpopts.EquateEmpty(),
}

// HasChanges reports whether current differs from lastSaved. A missing baseline always differs.
func HasChanges(current, lastSaved *Snapshot) bool {
	if lastSaved == nil {
		return current != nil
	}

	if current == nil {
		return true
	}

	return !cmp.Equal(current, lastSaved, compareOptions...)
}

// Diff renders the difference between two snapshots for debug logging.
func Diff(current, lastSaved *Snapshot) string {
	return cmp.Diff(lastSaved, current, compareOptions...)
}
