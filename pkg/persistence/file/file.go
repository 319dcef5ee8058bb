// Package file provides file-based persistence, one JSON document per entity.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/machinehq/flowbuilder/pkg/persistence"
)

const (
	workflowsDir = "workflows"
	projectsDir  = "projects"
	threadsDir   = "threads"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
	projectRepo  *ProjectRepository
	threadRepo   *ThreadRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		workflowRepo: NewWorkflowRepository(cleanRoot),
		projectRepo:  NewProjectRepository(cleanRoot),
		threadRepo:   NewThreadRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) ProjectRepository() persistence.ProjectRepository {
	return fp.projectRepo
}

func (fp *Persistence) ThreadRepository() persistence.ThreadRepository {
	return fp.threadRepo
}

// documentPath rejects ids that would escape the collection directory.
func documentPath(root, collection, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}

	return filepath.Clean(path.Join(root, collection, id+".json")), nil
}

// readDocument returns fs.ErrNotExist when the document is missing.
func readDocument[T any](root, collection, id string) (*T, error) {
	filePath, err := documentPath(root, collection, id)
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var doc T
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return &doc, nil
}

func writeDocument(root, collection, id string, doc any) error {
	filePath, err := documentPath(root, collection, id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(path.Join(root, collection), 0o750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	return os.WriteFile(filePath, data, 0o600)
}

func removeDocument(root, collection, id string) error {
	filePath, err := documentPath(root, collection, id)
	if err != nil {
		return err
	}

	return os.Remove(filePath)
}

func listDocuments[T any](root, collection string) ([]*T, error) {
	dir := os.DirFS(path.Join(root, collection))

	jsonFiles, err := fs.Glob(dir, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", collection, err)
	}

	docs := make([]*T, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		doc, err := readDocument[T](root, collection, strings.TrimSuffix(name, ".json"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}
