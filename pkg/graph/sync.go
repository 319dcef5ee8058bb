package graph

import (
	"slices"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/registry"
)

// Synchronizer maintains the connectedTools, inputConnections and outputConnections
// lists on node data as a projection of the edge set. It never mutates its inputs.
//
// Entries record the far node id and one handle, so an entry is backed by an edge when:
//   - inputConnections{id, handle}: edge source == id, target == node, targetHandle == handle
//   - connectedTools{id, handle}: edge source == id, target == node, sourceHandle == handle, tool wiring
//   - outputConnections{id, handle}: edge source == node, target == id, sourceHandle == handle
type Synchronizer struct {
	registry *registry.Registry
}

// NewSynchronizer creates a synchronizer using reg to infer connection categories.
func NewSynchronizer(reg *registry.Registry) *Synchronizer {
	return &Synchronizer{registry: reg}
}

// Connect returns nodes with the entries describing edge appended to both endpoints.
// Appends are deduplicated by (id, handleId). Unknown endpoints leave the graph unchanged.
func (s *Synchronizer) Connect(nodes []*models.Node, edge *models.Edge) []*models.Node {
	out := CloneNodes(nodes)

	source := findNode(out, edge.Source)
	target := findNode(out, edge.Target)

	if source == nil || target == nil {
		return out
	}

	target.Data.InputConnections = appendRef(target.Data.InputConnections, models.ConnectionRef{
		ID:       source.ID,
		Name:     source.DisplayName(),
		Type:     s.registry.Category(source),
		HandleID: edge.TargetHandle,
	})

	if edge.IsToolWiring() {
		target.Data.ConnectedTools = appendRef(target.Data.ConnectedTools, models.ConnectionRef{
			ID:       source.ID,
			Name:     source.DisplayName(),
			Type:     s.registry.Category(source),
			HandleID: edge.SourceHandle,
		})
	}

	source.Data.OutputConnections = appendRef(source.Data.OutputConnections, models.ConnectionRef{
		ID:       target.ID,
		Name:     target.DisplayName(),
		Type:     s.registry.Category(target),
		HandleID: edge.SourceHandle,
	})

	return out
}

// Prune returns nodes with every connection entry that is no longer backed by an edge removed.
func (s *Synchronizer) Prune(nodes []*models.Node, edges []*models.Edge) []*models.Node {
	out := CloneNodes(nodes)

	for _, node := range out {
		node.Data.InputConnections = filterRefs(node.Data.InputConnections, func(ref models.ConnectionRef) bool {
			return slices.ContainsFunc(edges, func(e *models.Edge) bool {
				return e.Source == ref.ID && e.Target == node.ID && e.TargetHandle == ref.HandleID
			})
		})

		node.Data.ConnectedTools = filterRefs(node.Data.ConnectedTools, func(ref models.ConnectionRef) bool {
			return slices.ContainsFunc(edges, func(e *models.Edge) bool {
				return e.Source == ref.ID && e.Target == node.ID && e.SourceHandle == ref.HandleID && e.IsToolWiring()
			})
		})

		node.Data.OutputConnections = filterRefs(node.Data.OutputConnections, func(ref models.ConnectionRef) bool {
			return slices.ContainsFunc(edges, func(e *models.Edge) bool {
				return e.Source == node.ID && e.Target == ref.ID && e.SourceHandle == ref.HandleID
			})
		})
	}

	return out
}

// Rebuild discards every connection entry and derives them again from edges.
func (s *Synchronizer) Rebuild(nodes []*models.Node, edges []*models.Edge) []*models.Node {
	out := CloneNodes(nodes)

	for _, node := range out {
		node.Data.ConnectedTools = nil
		node.Data.InputConnections = nil
		node.Data.OutputConnections = nil
	}

	for _, edge := range edges {
		out = s.Connect(out, edge)
	}

	return out
}

// ApplyEdgeChanges applies a change event to the edge list and repairs node data.
// Only remove and replace entries trigger pruning; add and replace entries connect.
func (s *Synchronizer) ApplyEdgeChanges(
	nodes []*models.Node,
	edges []*models.Edge,
	changes []models.EdgeChange,
) ([]*models.Node, []*models.Edge) {
	newEdges := CloneEdges(edges)
	added := make([]*models.Edge, 0)
	removed := false

	for _, change := range changes {
		switch change.Type {
		case models.EdgeChangeRemove:
			before := len(newEdges)
			newEdges = slices.DeleteFunc(newEdges, func(e *models.Edge) bool { return e.ID == change.ID })
			removed = removed || len(newEdges) != before
		case models.EdgeChangeAdd:
			if change.Item == nil || containsEdge(newEdges, change.Item) {
				continue
			}

			newEdges = append(newEdges, change.Item.Clone())
			added = append(added, change.Item)
		case models.EdgeChangeReplace:
			if change.Item == nil {
				continue
			}

			id := change.ID
			if id == "" {
				id = change.Item.ID
			}

			i := slices.IndexFunc(newEdges, func(e *models.Edge) bool { return e.ID == id })
			if i < 0 {
				continue
			}

			newEdges[i] = change.Item.Clone()
			added = append(added, change.Item)
			removed = true
		case models.EdgeChangeSelect:
			// Selection is canvas state only.
		}
	}

	newNodes := CloneNodes(nodes)
	if removed {
		newNodes = s.Prune(newNodes, newEdges)
	}

	for _, edge := range added {
		newNodes = s.Connect(newNodes, edge)
	}

	return newNodes, newEdges
}

func containsEdge(edges []*models.Edge, edge *models.Edge) bool {
	return slices.ContainsFunc(edges, func(e *models.Edge) bool {
		return e.ID == edge.ID || e.SameLink(edge)
	})
}

func findNode(nodes []*models.Node, id string) *models.Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}

	return nil
}

func appendRef(refs []models.ConnectionRef, ref models.ConnectionRef) []models.ConnectionRef {
	if slices.ContainsFunc(refs, func(r models.ConnectionRef) bool {
		return r.ID == ref.ID && r.HandleID == ref.HandleID
	}) {
		return refs
	}

	return append(refs, ref)
}

func filterRefs(refs []models.ConnectionRef, keep func(models.ConnectionRef) bool) []models.ConnectionRef {
	out := make([]models.ConnectionRef, 0, len(refs))

	for _, ref := range refs {
		if keep(ref) {
			out = append(out, ref)
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}
