package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	p := NewPersistence("/tmp/test")
	fp := p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)

	p = NewPersistence("file:///tmp/test")
	fp = p.(*Persistence)
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence(filepath.Join(t.TempDir(), "missing")).HealthCheck(t.Context()))
	assert.NoError(t, NewPersistence(t.TempDir()).Close(t.Context()))
}

func TestWorkflowRepository_RoundTrip(t *testing.T) {
	testDir := t.TempDir()
	repo := NewPersistence(testDir).WorkflowRepository()
	ctx := t.Context()

	workflow := &models.Workflow{
		ID:        "wf-1",
		Name:      "Search",
		Status:    models.WorkflowStatusDraft,
		ProjectID: "p1",
		Definition: models.Definition{
			Nodes: []*models.Node{
				{
					ID:   "agent-1",
					Type: models.NodeTypeAgent,
					Data: models.NodeData{Label: "Agent", Extra: map[string]any{"model": "gpt"}},
				},
			},
			Edges: []*models.Edge{},
		},
		Metadata: models.FlowMetadata{MaxRetries: 3},
	}

	require.NoError(t, repo.Save(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.FileExists(t, filepath.Join(testDir, "workflows", "wf-1.json"))

	loaded, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Search", loaded.Name)
	require.Len(t, loaded.Definition.Nodes, 1)
	assert.Equal(t, "gpt", loaded.Definition.Nodes[0].Data.Extra["model"])
	assert.Equal(t, 3, loaded.Metadata.MaxRetries)

	require.NoError(t, repo.Save(ctx, &models.Workflow{ID: "wf-2", Name: "Other", ProjectID: "p2"}))

	workflows, err := repo.ListByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, workflows, 1)
	assert.Equal(t, "wf-1", workflows[0].ID)

	all, err := repo.ListByProject(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.Delete(ctx, "wf-1"))

	_, err = repo.GetByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.True(t, persistence.IsWorkflowNotFound(repo.Delete(ctx, "wf-1")))
}

func TestWorkflowRepository_EmptyDirectory(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	workflows, err := repo.ListByProject(t.Context(), "p1")
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestWorkflowRepository_RejectsPathTraversal(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.GetByID(t.Context(), "../secret")
	require.Error(t, err)
	assert.False(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_CorruptFile(t *testing.T) {
	testDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(testDir, "workflows"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "workflows", "bad.json"), []byte("{"), 0o600))

	_, err := NewWorkflowRepository(testDir).GetByID(t.Context(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestProjectAndThreadRepositories(t *testing.T) {
	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	projects := p.ProjectRepository()
	require.NoError(t, projects.Save(ctx, &models.Project{ID: "p2", Name: "Zeta"}))
	require.NoError(t, projects.Save(ctx, &models.Project{ID: "p1", Name: "Alpha"}))

	list, err := projects.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)

	_, err = projects.GetByID(ctx, "missing")
	assert.True(t, persistence.IsProjectNotFound(err))

	threads := p.ThreadRepository()
	require.NoError(t, threads.Save(ctx, &models.Thread{ID: "t1", ProjectID: "p1", WorkflowID: "wf-1"}))

	thread, err := threads.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", thread.WorkflowID)

	byProject, err := threads.ListByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, byProject, 1)

	require.NoError(t, threads.Delete(ctx, "t1"))
	assert.True(t, persistence.IsThreadNotFound(threads.Delete(ctx, "t1")))
}
