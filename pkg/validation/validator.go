// Package validation checks the shape of a workflow graph before it is saved or run.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/registry"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidWorkflow = errors.New("invalid workflow")

// IssueType is the severity of a reported issue.
type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
)

type Issue struct {
	Type    IssueType `json:"type"`
	Rule    RuleName  `json:"rule"`
	Message string    `json:"message"`
	NodeID  string    `json:"node_id,omitempty"`
	EdgeID  string    `json:"edge_id,omitempty"`
}

// Result is the outcome of a validation run. Valid is false iff an error-severity issue exists.
type Result struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Errors returns the error-severity issues.
func (r Result) Errors() []Issue {
	return r.filter(IssueError)
}

// Warnings returns the advisory issues.
func (r Result) Warnings() []Issue {
	return r.filter(IssueWarning)
}

// Err returns nil for a valid result, otherwise ErrInvalidWorkflow with every error message.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}

	messages := make([]string, 0, len(r.Issues))
	for _, issue := range r.Errors() {
		messages = append(messages, issue.Message)
	}

	return fmt.Errorf("%w: %s", ErrInvalidWorkflow, strings.Join(messages, "; "))
}

func (r Result) filter(t IssueType) []Issue {
	var out []Issue

	for _, issue := range r.Issues {
		if issue.Type == t {
			out = append(out, issue)
		}
	}

	return out
}

type Validator struct {
	logger   *slog.Logger
	rules    RuleSet
	registry *registry.Registry
	structs  *validator.Validate
	schemas  map[models.NodeType]*gojsonschema.Schema
}

// New compiles the node data schemas of rules. A schema that does not compile is an error.
func New(log *slog.Logger, reg *registry.Registry, rules RuleSet) (*Validator, error) {
	v := &Validator{
		logger:   log.With("module", "validation"),
		rules:    rules,
		registry: reg,
		structs:  validator.New(),
		schemas:  make(map[models.NodeType]*gojsonschema.Schema),
	}

	for nodeType, schema := range rules[RuleNodeDataSchema].Schemas {
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
		if err != nil {
			return nil, fmt.Errorf("%w: schema for '%s': %w", ErrInvalidRules, nodeType, err)
		}

		v.schemas[nodeType] = compiled
	}

	return v, nil
}

// NewDefault returns a validator running the built-in rules.
func NewDefault(log *slog.Logger, reg *registry.Registry) *Validator {
	v, err := New(log, reg, DefaultRules())
	if err != nil {
		panic(err)
	}

	return v
}

type check struct {
	rules  RuleSet
	issues []Issue
}

func (c *check) report(rule RuleName, nodeID, edgeID, format string, args ...any) {
	severity := c.rules.severity(rule)
	if severity == SeverityOff {
		return
	}

	issueType := IssueWarning
	if severity == SeverityError {
		issueType = IssueError
	}

	c.issues = append(c.issues, Issue{
		Type:    issueType,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
		NodeID:  nodeID,
		EdgeID:  edgeID,
	})
}

// Validate runs every enabled rule. It never mutates its inputs.
func (v *Validator) Validate(nodes []*models.Node, edges []*models.Edge) Result {
	c := &check{rules: v.rules}

	if len(nodes) == 0 {
		c.report(RuleEmptyGraph, "", "", "Workflow has no nodes")
	}

	byID := make(map[string]*models.Node, len(nodes))

	for _, node := range nodes {
		if err := v.structs.Struct(node); err != nil {
			c.issues = append(c.issues, Issue{
				Type:    IssueError,
				Message: fmt.Sprintf("Node '%s' is malformed: %v", node.DisplayName(), err),
				NodeID:  node.ID,
			})
		}

		byID[node.ID] = node
	}

	v.checkRequiredTypes(c, nodes)
	v.checkEdges(c, byID, edges)
	v.checkAgentInputs(c, nodes, byID, edges)
	v.checkIsolated(c, nodes, edges)
	v.checkNodeData(c, nodes)

	result := Result{Valid: true, Issues: c.issues}
	if len(result.Errors()) > 0 {
		result.Valid = false
	}

	v.logger.Debug("Validated workflow", "nodes", len(nodes), "edges", len(edges), "issues", len(c.issues))

	return result
}

func (v *Validator) checkRequiredTypes(c *check, nodes []*models.Node) {
	if len(nodes) == 0 {
		return
	}

	for _, required := range v.rules[RuleRequiredNodeTypes].NodeTypes {
		found := slices.ContainsFunc(nodes, func(n *models.Node) bool { return n.Type == required })
		if !found {
			c.report(RuleRequiredNodeTypes, "", "", "Workflow requires at least one %s", required)
		}
	}
}

func (v *Validator) checkEdges(c *check, byID map[string]*models.Node, edges []*models.Edge) {
	for _, edge := range edges {
		source, sourceOK := byID[edge.Source]
		target, targetOK := byID[edge.Target]

		if !sourceOK {
			c.report(RuleDanglingEdge, "", edge.ID, "Edge '%s' starts at missing node '%s'", edge.ID, edge.Source)
		}

		if !targetOK {
			c.report(RuleDanglingEdge, "", edge.ID, "Edge '%s' ends at missing node '%s'", edge.ID, edge.Target)
		}

		if edge.Source == edge.Target {
			c.report(RuleSelfLoop, edge.Source, edge.ID, "Edge '%s' connects a node to itself", edge.ID)
		}

		if sourceOK {
			v.checkHandle(c, source, registry.DirectionOutput, edge.SourceHandle, edge.ID)
		}

		if targetOK {
			v.checkHandle(c, target, registry.DirectionInput, edge.TargetHandle, edge.ID)
		}
	}
}

func (v *Validator) checkHandle(c *check, node *models.Node, direction registry.Direction, handle, edgeID string) {
	ok, err := v.registry.HasHandle(node.Type, direction, handle)
	if err != nil {
		c.report(RuleUnknownHandle, node.ID, edgeID, "Node '%s' has unknown type '%s'", node.DisplayName(), node.Type)

		return
	}

	if !ok {
		c.report(RuleUnknownHandle, node.ID, edgeID,
			"Node '%s' has no %s handle '%s'", node.DisplayName(), direction, handle)
	}
}

// checkAgentInputs walks edges backwards from each agent looking for an input node.
func (v *Validator) checkAgentInputs(c *check, nodes []*models.Node, byID map[string]*models.Node, edges []*models.Edge) {
	upstream := make(map[string][]string)
	for _, edge := range edges {
		upstream[edge.Target] = append(upstream[edge.Target], edge.Source)
	}

	for _, node := range nodes {
		if node.Type != models.NodeTypeAgent {
			continue
		}

		if !reachesInput(node.ID, upstream, byID) {
			c.report(RuleAgentInput, node.ID, "", "Agent '%s' is not reachable from an input node", node.DisplayName())
		}
	}
}

func reachesInput(start string, upstream map[string][]string, byID map[string]*models.Node) bool {
	seen := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		for _, prev := range upstream[id] {
			if seen[prev] {
				continue
			}

			seen[prev] = true

			if node, ok := byID[prev]; ok && node.Type == models.NodeTypeInput {
				return true
			}

			queue = append(queue, prev)
		}
	}

	return false
}

func (v *Validator) checkIsolated(c *check, nodes []*models.Node, edges []*models.Edge) {
	if len(nodes) < 2 {
		return
	}

	touched := make(map[string]bool, len(edges)*2)
	for _, edge := range edges {
		touched[edge.Source] = true
		touched[edge.Target] = true
	}

	for _, node := range nodes {
		if !touched[node.ID] {
			c.report(RuleIsolatedNode, node.ID, "", "Node '%s' is not connected", node.DisplayName())
		}
	}
}

func (v *Validator) checkNodeData(c *check, nodes []*models.Node) {
	for _, node := range nodes {
		schema, ok := v.schemas[node.Type]
		if !ok {
			continue
		}

		data, err := node.Data.AsMap()
		if err != nil {
			c.report(RuleNodeDataSchema, node.ID, "", "Node '%s' data cannot be encoded: %v", node.DisplayName(), err)

			continue
		}

		result, err := schema.Validate(gojsonschema.NewGoLoader(data))
		if err != nil {
			c.report(RuleNodeDataSchema, node.ID, "", "Node '%s' data cannot be checked: %v", node.DisplayName(), err)

			continue
		}

		if !result.Valid() {
			var details []string
			for _, e := range result.Errors() {
				details = append(details, e.String())
			}

			c.report(RuleNodeDataSchema, node.ID, "",
				"Node '%s' data is invalid: %s", node.DisplayName(), strings.Join(details, "; "))
		}
	}
}
