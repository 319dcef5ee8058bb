// Package graph holds the in-memory workflow graph and keeps the denormalized
// connection lists on each node consistent with the edge set.
package graph

import (
	"errors"
	"slices"
	"sync"

	"github.com/machinehq/flowbuilder/pkg/models"
)

var (
	// ErrNodeNotFound is returned when a mutation targets an unknown node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrEdgeNotFound is returned when a mutation targets an unknown edge.
	ErrEdgeNotFound = errors.New("edge not found")
)

// Mutation names the kind of change a Store observer is notified about.
type Mutation string

const (
	MutationNodeAdded   Mutation = "node_added"
	MutationNodeMoved   Mutation = "node_moved"
	MutationNodeUpdated Mutation = "node_updated"
	MutationNodeRemoved Mutation = "node_removed"
	MutationNodesSet    Mutation = "nodes_set"
	MutationEdgeAdded   Mutation = "edge_added"
	MutationEdgeRemoved Mutation = "edge_removed"
	MutationEdgesSet    Mutation = "edges_set"
	MutationReset       Mutation = "reset"
)

// Observer is called after every successful mutation.
type Observer func(Mutation)

// Store is a raw observable container for nodes and edges. It performs no validation.
type Store struct {
	mu        sync.RWMutex
	nodes     []*models.Node
	edges     []*models.Edge
	observers map[int]Observer
	nextID    int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:     []*models.Node{},
		edges:     []*models.Edge{},
		observers: make(map[int]Observer),
	}
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.observers, id)
	}
}

// Nodes returns a deep copy of the current nodes.
func (s *Store) Nodes() []*models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return CloneNodes(s.nodes)
}

// Edges returns a deep copy of the current edges.
func (s *Store) Edges() []*models.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return CloneEdges(s.edges)
}

// Node returns a copy of a single node.
func (s *Store) Node(id string) (*models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.nodeIndex(id)
	if i < 0 {
		return nil, false
	}

	return s.nodes[i].Clone(), true
}

// AddNode appends a node.
func (s *Store) AddNode(node *models.Node) {
	_ = s.mutate(MutationNodeAdded, func() error {
		s.nodes = append(s.nodes, node.Clone())

		return nil
	})
}

// MoveNode sets the position of a node.
func (s *Store) MoveNode(id string, position models.Position) error {
	return s.mutate(MutationNodeMoved, func() error {
		i := s.nodeIndex(id)
		if i < 0 {
			return ErrNodeNotFound
		}

		s.nodes[i].Position = position

		return nil
	})
}

// UpdateNodeData applies fn to a copy of the node data. The connection lists are
// restored afterwards: they only change through edge changes.
func (s *Store) UpdateNodeData(id string, fn func(*models.NodeData)) error {
	return s.mutate(MutationNodeUpdated, func() error {
		i := s.nodeIndex(id)
		if i < 0 {
			return ErrNodeNotFound
		}

		current := s.nodes[i].Data
		data := current.Clone()
		fn(&data)

		data.ConnectedTools = current.ConnectedTools
		data.InputConnections = current.InputConnections
		data.OutputConnections = current.OutputConnections
		s.nodes[i].Data = data

		return nil
	})
}

// RemoveNode removes a node. Edges touching it are left alone.
func (s *Store) RemoveNode(id string) error {
	return s.mutate(MutationNodeRemoved, func() error {
		i := s.nodeIndex(id)
		if i < 0 {
			return ErrNodeNotFound
		}

		s.nodes = slices.Delete(s.nodes, i, i+1)

		return nil
	})
}

// AddEdge appends an edge.
func (s *Store) AddEdge(edge *models.Edge) {
	_ = s.mutate(MutationEdgeAdded, func() error {
		s.edges = append(s.edges, edge.Clone())

		return nil
	})
}

// RemoveEdge removes an edge by id.
func (s *Store) RemoveEdge(id string) error {
	return s.mutate(MutationEdgeRemoved, func() error {
		i := slices.IndexFunc(s.edges, func(e *models.Edge) bool { return e.ID == id })
		if i < 0 {
			return ErrEdgeNotFound
		}

		s.edges = slices.Delete(s.edges, i, i+1)

		return nil
	})
}

// SetNodes replaces every node.
func (s *Store) SetNodes(nodes []*models.Node) {
	_ = s.mutate(MutationNodesSet, func() error {
		s.nodes = CloneNodes(nodes)

		return nil
	})
}

// SetEdges replaces every edge.
func (s *Store) SetEdges(edges []*models.Edge) {
	_ = s.mutate(MutationEdgesSet, func() error {
		s.edges = CloneEdges(edges)

		return nil
	})
}

// Reset replaces the whole graph.
func (s *Store) Reset(nodes []*models.Node, edges []*models.Edge) {
	_ = s.mutate(MutationReset, func() error {
		s.nodes = CloneNodes(nodes)
		s.edges = CloneEdges(edges)

		return nil
	})
}

func (s *Store) mutate(kind Mutation, fn func() error) error {
	s.mu.Lock()

	if err := fn(); err != nil {
		s.mu.Unlock()

		return err
	}

	observers := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}

	s.mu.Unlock()

	for _, o := range observers {
		o(kind)
	}

	return nil
}

func (s *Store) nodeIndex(id string) int {
	return slices.IndexFunc(s.nodes, func(n *models.Node) bool { return n.ID == id })
}

// CloneNodes deep-copies a node slice.
func CloneNodes(nodes []*models.Node) []*models.Node {
	out := make([]*models.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}

	return out
}

// CloneEdges deep-copies an edge slice.
func CloneEdges(edges []*models.Edge) []*models.Edge {
	out := make([]*models.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, e.Clone())
	}

	return out
}
