package registry

import (
	"log/slog"
	"testing"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(slog.Default())

	assert.Equal(t, []models.NodeType{
		models.NodeTypeAgent,
		models.NodeTypeInput,
		models.NodeTypeMCP,
		models.NodeTypeToolConnection,
	}, r.Types())

	msg, ok := r.HealthCheck()
	assert.True(t, ok)
	assert.Equal(t, "4 node types registered", msg)
}

func TestRegistry_HealthCheck_Empty(t *testing.T) {
	r := NewRegistry(slog.Default())

	_, ok := r.HealthCheck()
	assert.False(t, ok)
}

func TestRegistry_Category(t *testing.T) {
	r := NewDefaultRegistry(slog.Default())

	tests := []struct {
		name string
		node *models.Node
		want string
	}{
		{"input", &models.Node{Type: models.NodeTypeInput}, CategoryInput},
		{"agent", &models.Node{Type: models.NodeTypeAgent}, CategoryAgent},
		{"tool", &models.Node{Type: models.NodeTypeToolConnection}, CategoryTool},
		{"mcp", &models.Node{Type: models.NodeTypeMCP}, CategoryMCP},
		{"unregistered", &models.Node{Type: "customNode"}, CategoryUnknown},
		{"nil", nil, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Category(tt.node))
		})
	}
}

func TestRegistry_HasHandle(t *testing.T) {
	r := NewDefaultRegistry(slog.Default())

	ok, err := r.HasHandle(models.NodeTypeAgent, DirectionInput, models.HandleTools)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasHandle(models.NodeTypeAgent, DirectionOutput, models.HandleTools)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.HasHandle(models.NodeTypeToolConnection, DirectionOutput, models.HandleToolConnection)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.HasHandle(models.NodeTypeInput, DirectionOutput, "")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = r.HasHandle("customNode", DirectionInput, "x")
	assert.Error(t, err)
}

func TestRegistry_Register_Replaces(t *testing.T) {
	r := NewDefaultRegistry(slog.Default())

	r.Register(Spec{Type: models.NodeTypeInput, Category: "trigger", Outputs: []string{"fire"}})

	spec, ok := r.Lookup(models.NodeTypeInput)
	require.True(t, ok)
	assert.Equal(t, "trigger", spec.Category)
	assert.Equal(t, []string{"fire"}, spec.Outputs)
}
