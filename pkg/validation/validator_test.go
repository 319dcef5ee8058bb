package validation

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/registry"
	"github.com/machinehq/flowbuilder/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()

	return NewDefault(slog.Default(), registry.NewDefaultRegistry(slog.Default()))
}

func rulesOf(issues []Issue) []RuleName {
	out := make([]RuleName, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Rule)
	}

	return out
}

func TestValidate_TemplateIsSaveable(t *testing.T) {
	v := newTestValidator(t)

	tpl, err := templates.Get(templates.WebSearchAgent)
	require.NoError(t, err)

	result := v.Validate(tpl.Nodes, tpl.Edges)

	assert.True(t, result.Valid)
	require.NoError(t, result.Err())
	assert.Empty(t, result.Errors())
	assert.Equal(t, []RuleName{RuleAgentInput}, rulesOf(result.Warnings()))
}

func TestValidate_EmptyGraph(t *testing.T) {
	v := newTestValidator(t)

	result := v.Validate(nil, nil)

	assert.False(t, result.Valid)
	assert.Equal(t, []RuleName{RuleEmptyGraph}, rulesOf(result.Errors()))
	require.ErrorIs(t, result.Err(), ErrInvalidWorkflow)
	assert.Contains(t, result.Err().Error(), "Workflow has no nodes")
}

func TestValidate_Rules(t *testing.T) {
	input := &models.Node{ID: "in", Type: models.NodeTypeInput, Data: models.NodeData{Label: "Input"}}
	agent := &models.Node{ID: "agent", Type: models.NodeTypeAgent, Data: models.NodeData{Label: "Agent"}}
	tool := &models.Node{ID: "tool", Type: models.NodeTypeToolConnection, Data: models.NodeData{Label: "Tool"}}

	tests := []struct {
		name         string
		nodes        []*models.Node
		edges        []*models.Edge
		wantErrors   []RuleName
		wantWarnings []RuleName
	}{
		{
			name:  "input wired to agent",
			nodes: []*models.Node{input, agent},
			edges: []*models.Edge{
				{ID: "e1", Source: "in", Target: "agent", SourceHandle: models.HandleOutput, TargetHandle: models.HandleInput},
			},
		},
		{
			name:       "no agent",
			nodes:      []*models.Node{tool},
			wantErrors: []RuleName{RuleRequiredNodeTypes},
		},
		{
			name:  "dangling edge",
			nodes: []*models.Node{input, agent},
			edges: []*models.Edge{
				{ID: "e1", Source: "in", Target: "agent", SourceHandle: models.HandleOutput, TargetHandle: models.HandleInput},
				{ID: "e2", Source: "ghost", Target: "agent", TargetHandle: models.HandleTools},
			},
			wantErrors: []RuleName{RuleDanglingEdge},
		},
		{
			name:  "self loop",
			nodes: []*models.Node{input, agent},
			edges: []*models.Edge{
				{ID: "e1", Source: "in", Target: "agent", SourceHandle: models.HandleOutput, TargetHandle: models.HandleInput},
				{ID: "e2", Source: "agent", Target: "agent", SourceHandle: models.HandleOutput, TargetHandle: models.HandleInput},
			},
			wantErrors: []RuleName{RuleSelfLoop},
		},
		{
			name:  "unknown handle",
			nodes: []*models.Node{input, agent},
			edges: []*models.Edge{
				{ID: "e1", Source: "in", Target: "agent", SourceHandle: models.HandleOutput, TargetHandle: "bogus"},
			},
			wantErrors: []RuleName{RuleUnknownHandle},
		},
		{
			name:         "agent without input",
			nodes:        []*models.Node{agent},
			wantWarnings: []RuleName{RuleAgentInput},
		},
		{
			name:  "isolated node",
			nodes: []*models.Node{input, agent, tool},
			edges: []*models.Edge{
				{ID: "e1", Source: "in", Target: "agent", SourceHandle: models.HandleOutput, TargetHandle: models.HandleInput},
			},
			wantWarnings: []RuleName{RuleIsolatedNode},
		},
		{
			name: "agent without label",
			nodes: []*models.Node{
				{ID: "agent", Type: models.NodeTypeAgent},
			},
			wantErrors:   []RuleName{RuleNodeDataSchema},
			wantWarnings: []RuleName{RuleAgentInput},
		},
	}

	v := newTestValidator(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.nodes, tt.edges)

			assert.ElementsMatch(t, tt.wantErrors, rulesOf(result.Errors()))
			assert.ElementsMatch(t, tt.wantWarnings, rulesOf(result.Warnings()))
			assert.Equal(t, len(tt.wantErrors) == 0, result.Valid)
		})
	}
}

func TestValidate_MalformedNode(t *testing.T) {
	v := newTestValidator(t)

	result := v.Validate([]*models.Node{
		{ID: "agent", Type: models.NodeTypeAgent, Data: models.NodeData{Label: "Agent"}},
		{ID: "", Type: "bogusNode"},
	}, nil)

	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors())
}

func TestValidate_DoesNotMutate(t *testing.T) {
	v := newTestValidator(t)

	tpl, err := templates.Get(templates.WebSearchAgent)
	require.NoError(t, err)

	before, _ := templates.Get(templates.WebSearchAgent)
	_ = v.Validate(tpl.Nodes, tpl.Edges)

	assert.Equal(t, before.Nodes, tpl.Nodes)
	assert.Equal(t, before.Edges, tpl.Edges)
}

func TestLoadRules_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent_input:
  severity: error
isolated_node:
  severity: off
`), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, SeverityError, rules[RuleAgentInput].Severity)
	assert.Equal(t, SeverityOff, rules[RuleIsolatedNode].Severity)
	assert.Equal(t, SeverityError, rules[RuleEmptyGraph].Severity)

	v, err := New(slog.Default(), registry.NewDefaultRegistry(slog.Default()), rules)
	require.NoError(t, err)

	tpl, err := templates.Get(templates.WebSearchAgent)
	require.NoError(t, err)

	result := v.Validate(tpl.Nodes, tpl.Edges)
	assert.False(t, result.Valid)
	assert.Equal(t, []RuleName{RuleAgentInput}, rulesOf(result.Errors()))
}

func TestLoadRules_OverrideKeepsBuiltInDetails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_data_schema:
  severity: warning
  schemas:
    mcpNode:
      type: object
      required: [label]
required_node_types:
  severity: warning
`), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	schemaRule := rules[RuleNodeDataSchema]
	assert.Equal(t, SeverityWarning, schemaRule.Severity)
	assert.Contains(t, schemaRule.Schemas, models.NodeTypeAgent)
	assert.Contains(t, schemaRule.Schemas, models.NodeTypeToolConnection)
	assert.Contains(t, schemaRule.Schemas, models.NodeTypeMCP)

	assert.Equal(t, SeverityWarning, rules[RuleRequiredNodeTypes].Severity)
	assert.Equal(t, []models.NodeType{models.NodeTypeAgent}, rules[RuleRequiredNodeTypes].NodeTypes)

	assert.NotContains(t, DefaultRules()[RuleNodeDataSchema].Schemas, models.NodeTypeMCP)
}

func TestParseRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown rule", data: "no_such_rule:\n  severity: error\n"},
		{name: "bad severity", data: "self_loop:\n  severity: fatal\n"},
		{name: "not yaml", data: "self_loop: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRules([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalidRules)
		})
	}
}

func TestNew_BadSchema(t *testing.T) {
	rules := RuleSet{
		RuleNodeDataSchema: {
			Severity: SeverityError,
			Schemas:  map[models.NodeType]map[string]any{models.NodeTypeAgent: {"type": 42}},
		},
	}

	_, err := New(slog.Default(), registry.NewDefaultRegistry(slog.Default()), rules)
	assert.ErrorIs(t, err, ErrInvalidRules)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
