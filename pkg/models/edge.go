package models

import "maps"

// Built-in handle names.
const (
	HandleToolConnection = "tool-connection" // tool output
	HandleTools          = "tools"           // agent tool input
	HandleInput          = "input"
	HandleOutput         = "output"
	HandleMCPConnection  = "mcp-connection"
)

// Edge is a directed link from a named output handle on Source to a named input handle on Target.
type Edge struct {
	ID           string         `json:"id"                  validate:"required"`
	Source       string         `json:"source"              validate:"required"`
	Target       string         `json:"target"              validate:"required"`
	SourceHandle string         `json:"sourceHandle"`
	TargetHandle string         `json:"targetHandle"`
	Type         string         `json:"type,omitempty"`
	Animated     bool           `json:"animated,omitempty"`
	Style        map[string]any `json:"style,omitempty"`
	MarkerEnd    map[string]any `json:"markerEnd,omitempty"`
}

// IsToolWiring reports whether the edge wires a tool into an agent's tool input.
func (e *Edge) IsToolWiring() bool {
	return e.SourceHandle == HandleToolConnection && e.TargetHandle == HandleTools
}

// SameLink reports whether both edges connect the same handles of the same nodes.
func (e *Edge) SameLink(other *Edge) bool {
	return e.Source == other.Source &&
		e.Target == other.Target &&
		e.SourceHandle == other.SourceHandle &&
		e.TargetHandle == other.TargetHandle
}

// Persisted returns a copy without styling and animation fields.
func (e *Edge) Persisted() *Edge {
	return &Edge{
		ID:           e.ID,
		Source:       e.Source,
		Target:       e.Target,
		SourceHandle: e.SourceHandle,
		TargetHandle: e.TargetHandle,
	}
}

// Clone returns a deep copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}

	clone := *e
	clone.Style = maps.Clone(e.Style)
	clone.MarkerEnd = maps.Clone(e.MarkerEnd)

	return &clone
}

// EdgeChangeType is the kind of an entry in an edge change event.
type EdgeChangeType string

const (
	EdgeChangeAdd     EdgeChangeType = "add"
	EdgeChangeRemove  EdgeChangeType = "remove"
	EdgeChangeSelect  EdgeChangeType = "select"
	EdgeChangeReplace EdgeChangeType = "replace"
)

// EdgeChange is one entry of a change event emitted by the canvas.
// Item is set for add and replace, ID for remove, select and replace.
type EdgeChange struct {
	Type     EdgeChangeType `json:"type"`
	ID       string         `json:"id,omitempty"`
	Item     *Edge          `json:"item,omitempty"`
	Selected bool           `json:"selected,omitempty"`
}
