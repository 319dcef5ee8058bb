package validation

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/machinehq/flowbuilder/pkg/models"
	"gopkg.in/yaml.v3"
)

// Severity of a rule. SeverityOff disables it.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityOff     Severity = "off"
)

// RuleName identifies a built-in check.
type RuleName string

const (
	RuleEmptyGraph        RuleName = "empty_graph"
	RuleRequiredNodeTypes RuleName = "required_node_types"
	RuleDanglingEdge      RuleName = "dangling_edge"
	RuleUnknownHandle     RuleName = "unknown_handle"
	RuleSelfLoop          RuleName = "self_loop"
	RuleAgentInput        RuleName = "agent_input"
	RuleIsolatedNode      RuleName = "isolated_node"
	RuleNodeDataSchema    RuleName = "node_data_schema"
)

var ruleNames = []RuleName{
	RuleEmptyGraph,
	RuleRequiredNodeTypes,
	RuleDanglingEdge,
	RuleUnknownHandle,
	RuleSelfLoop,
	RuleAgentInput,
	RuleIsolatedNode,
	RuleNodeDataSchema,
}

// Rule configures one check.
type Rule struct {
	Severity  Severity                           `yaml:"severity"             validate:"required,oneof=error warning off"`
	NodeTypes []models.NodeType                  `yaml:"node_types,omitempty"`
	Schemas   map[models.NodeType]map[string]any `yaml:"schemas,omitempty"`
}

// RuleSet maps rule names to their configuration. Rules missing from the set are off.
type RuleSet map[RuleName]Rule

var ErrInvalidRules = errors.New("invalid validation rules")

//go:embed default_rules.yaml
var defaultRules []byte

// DefaultRules returns the built-in rule table.
func DefaultRules() RuleSet {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("built-in validation rules: %v", err))
	}

	return rules
}

// LoadRules reads a YAML rule file and overlays it on the defaults. An override keeps the
// built-in node types when it lists none, and its schemas replace built-in ones per node type.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	overrides, err := ParseRules(data)
	if err != nil {
		return nil, err
	}

	rules := DefaultRules()
	for name, rule := range overrides {
		rules[name] = rules[name].overlay(rule)
	}

	return rules, nil
}

func (r Rule) overlay(override Rule) Rule {
	out := Rule{Severity: override.Severity, NodeTypes: override.NodeTypes}
	if len(out.NodeTypes) == 0 {
		out.NodeTypes = r.NodeTypes
	}

	if len(r.Schemas) > 0 || len(override.Schemas) > 0 {
		out.Schemas = make(map[models.NodeType]map[string]any, len(r.Schemas)+len(override.Schemas))
		maps.Copy(out.Schemas, r.Schemas)
		maps.Copy(out.Schemas, override.Schemas)
	}

	return out
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}

	if rules == nil {
		rules = RuleSet{}
	}

	validate := validator.New()

	for name, rule := range rules {
		if !slices.Contains(ruleNames, name) {
			return nil, fmt.Errorf("%w: unknown rule '%s'", ErrInvalidRules, name)
		}

		if err := validate.Struct(rule); err != nil {
			return nil, fmt.Errorf("%w: rule '%s': %w", ErrInvalidRules, name, err)
		}
	}

	return rules, nil
}

func (r RuleSet) severity(name RuleName) Severity {
	rule, ok := r[name]
	if !ok || rule.Severity == "" {
		return SeverityOff
	}

	return rule.Severity
}
