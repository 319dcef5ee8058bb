package models

import (
	"encoding/json"
	"maps"
	"slices"
)

// NodeType identifies which visual unit a node represents.
type NodeType string

const (
	NodeTypeInput          NodeType = "inputNode"
	NodeTypeAgent          NodeType = "agentNode"
	NodeTypeToolConnection NodeType = "toolConnectionNode"
	NodeTypeMCP            NodeType = "mcpNode"
)

// NodeTypes lists every built-in node type.
var NodeTypes = []NodeType{NodeTypeInput, NodeTypeAgent, NodeTypeToolConnection, NodeTypeMCP}

// Position is a node location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ConnectionRef describes the node on the other end of an edge, denormalized into node data.
type ConnectionRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	HandleID string `json:"handleId"`
}

// Node is a workflow graph node.
type Node struct {
	ID       string   `json:"id"       validate:"required"`
	Type     NodeType `json:"type"     validate:"required,oneof=inputNode agentNode toolConnectionNode mcpNode"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`

	// Editor-only state, never persisted.
	Selected bool `json:"-"`
	Dragging bool `json:"-"`
}

// NodeData is the per-node payload. Known keys are typed; everything else lives in Extra.
type NodeData struct {
	Label             string
	NodeID            string
	ConnectedTools    []ConnectionRef
	InputConnections  []ConnectionRef
	OutputConnections []ConnectionRef
	Extra             map[string]any
}

const (
	dataKeyLabel             = "label"
	dataKeyNodeID            = "nodeId"
	dataKeyConnectedTools    = "connectedTools"
	dataKeyInputConnections  = "inputConnections"
	dataKeyOutputConnections = "outputConnections"
)

// MarshalJSON flattens the typed fields and Extra into one object.
func (d NodeData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+5)
	maps.Copy(out, d.Extra)

	out[dataKeyLabel] = d.Label

	if d.NodeID != "" {
		out[dataKeyNodeID] = d.NodeID
	}

	out[dataKeyConnectedTools] = nonNilRefs(d.ConnectedTools)
	out[dataKeyInputConnections] = nonNilRefs(d.InputConnections)
	out[dataKeyOutputConnections] = nonNilRefs(d.OutputConnections)

	return json.Marshal(out)
}

// UnmarshalJSON splits a flat object back into typed fields and Extra.
func (d *NodeData) UnmarshalJSON(raw []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	*d = NodeData{}

	for key, value := range fields {
		var err error

		switch key {
		case dataKeyLabel:
			err = json.Unmarshal(value, &d.Label)
		case dataKeyNodeID:
			err = json.Unmarshal(value, &d.NodeID)
		case dataKeyConnectedTools:
			err = json.Unmarshal(value, &d.ConnectedTools)
		case dataKeyInputConnections:
			err = json.Unmarshal(value, &d.InputConnections)
		case dataKeyOutputConnections:
			err = json.Unmarshal(value, &d.OutputConnections)
		default:
			var v any

			err = json.Unmarshal(value, &v)
			if err == nil {
				if d.Extra == nil {
					d.Extra = make(map[string]any)
				}

				d.Extra[key] = v
			}
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// AsMap returns the flat representation used by schema validation.
func (d NodeData) AsMap() (map[string]any, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}

	var out map[string]any

	err = json.Unmarshal(raw, &out)

	return out, err
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	clone := *n
	clone.Data = n.Data.Clone()

	return &clone
}

// Clone returns a deep copy of the node data.
func (d NodeData) Clone() NodeData {
	clone := d
	clone.ConnectedTools = slices.Clone(d.ConnectedTools)
	clone.InputConnections = slices.Clone(d.InputConnections)
	clone.OutputConnections = slices.Clone(d.OutputConnections)

	if d.Extra != nil {
		clone.Extra = cloneMap(d.Extra)
	}

	return clone
}

// DisplayName is the name shown in connection badges: the label, or the id when unlabeled.
func (n *Node) DisplayName() string {
	if n.Data.Label != "" {
		return n.Data.Label
	}

	return n.ID
}

func nonNilRefs(refs []ConnectionRef) []ConnectionRef {
	if refs == nil {
		return []ConnectionRef{}
	}

	return refs
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))

	for k, v := range in {
		out[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return value
	}
}
