// Package registry provides the catalog of node types known to the workflow builder.
package registry

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/machinehq/flowbuilder/pkg/models"
)

// Connection categories written into ConnectionRef.Type.
const (
	CategoryInput   = "input"
	CategoryAgent   = "agent"
	CategoryTool    = "tool"
	CategoryMCP     = "mcp"
	CategoryUnknown = "unknown"
)

// Direction of a handle relative to its node.
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Spec declares the handles a node type exposes.
type Spec struct {
	Type     models.NodeType `json:"type"     yaml:"type"`
	Category string          `json:"category" yaml:"category"`
	Inputs   []string        `json:"inputs"   yaml:"inputs"`
	Outputs  []string        `json:"outputs"  yaml:"outputs"`
}

type Registry struct {
	logger *slog.Logger
	mu     sync.RWMutex
	specs  map[models.NodeType]Spec
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger: log,
		specs:  make(map[models.NodeType]Spec),
	}
}

// NewDefaultRegistry returns a registry with the built-in node types registered.
func NewDefaultRegistry(log *slog.Logger) *Registry {
	r := NewRegistry(log)
	r.RegisterDefaultNodes()

	return r
}

// RegisterDefaultNodes registers the built-in node types.
func (r *Registry) RegisterDefaultNodes() {
	r.Register(Spec{
		Type:     models.NodeTypeInput,
		Category: CategoryInput,
		Outputs:  []string{models.HandleOutput},
	})
	r.Register(Spec{
		Type:     models.NodeTypeAgent,
		Category: CategoryAgent,
		Inputs:   []string{models.HandleInput, models.HandleTools},
		Outputs:  []string{models.HandleOutput},
	})
	r.Register(Spec{
		Type:     models.NodeTypeToolConnection,
		Category: CategoryTool,
		Outputs:  []string{models.HandleToolConnection},
	})
	r.Register(Spec{
		Type:     models.NodeTypeMCP,
		Category: CategoryMCP,
		Outputs:  []string{models.HandleMCPConnection, models.HandleToolConnection},
	})
}

// Register adds or replaces a node type.
func (r *Registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[spec.Type]; exists {
		r.logger.Debug("Replacing node type", "type", spec.Type)
	}

	r.specs[spec.Type] = spec
}

// Lookup returns the spec registered for a node type.
func (r *Registry) Lookup(nodeType models.NodeType) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[nodeType]

	return spec, ok
}

// Types returns the registered node types in sorted order.
func (r *Registry) Types() []models.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]models.NodeType, 0, len(r.specs))
	for t := range r.specs {
		types = append(types, t)
	}

	slices.Sort(types)

	return types
}

// Category infers the connection category of a node from its type.
func (r *Registry) Category(node *models.Node) string {
	if node == nil {
		return CategoryUnknown
	}

	spec, ok := r.Lookup(node.Type)
	if !ok || spec.Category == "" {
		return CategoryUnknown
	}

	return spec.Category
}

// HasHandle reports whether nodeType declares handle in the given direction.
// An empty handle means the default handle and is always accepted.
func (r *Registry) HasHandle(nodeType models.NodeType, direction Direction, handle string) (bool, error) {
	spec, ok := r.Lookup(nodeType)
	if !ok {
		return false, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	if handle == "" {
		return true, nil
	}

	if direction == DirectionInput {
		return slices.Contains(spec.Inputs, handle), nil
	}

	return slices.Contains(spec.Outputs, handle), nil
}

func (r *Registry) HealthCheck() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.specs) == 0 {
		return "No node types registered", false
	}

	return fmt.Sprintf("%d node types registered", len(r.specs)), true
}
