package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/persistence"
)

type ThreadRepository struct {
	root string
}

func NewThreadRepository(root string) *ThreadRepository {
	return &ThreadRepository{root: root}
}

// ListByProject returns the threads of a project, newest first.
func (tr *ThreadRepository) ListByProject(_ context.Context, projectID string) ([]*models.Thread, error) {
	all, err := listDocuments[models.Thread](tr.root, threadsDir)
	if err != nil {
		return nil, err
	}

	threads := make([]*models.Thread, 0, len(all))

	for _, thread := range all {
		if thread.ProjectID == projectID {
			threads = append(threads, thread)
		}
	}

	sort.Slice(threads, func(i, j int) bool { return threads[i].CreatedAt.After(threads[j].CreatedAt) })

	return threads, nil
}

func (tr *ThreadRepository) GetByID(_ context.Context, id string) (*models.Thread, error) {
	thread, err := readDocument[models.Thread](tr.root, threadsDir, id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewThreadError("GetByID", id, persistence.ErrThreadNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch thread %s: %w", id, err)
	}

	return thread, nil
}

func (tr *ThreadRepository) Save(_ context.Context, thread *models.Thread) error {
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = time.Now().UTC()
	}

	return writeDocument(tr.root, threadsDir, thread.ID, thread)
}

func (tr *ThreadRepository) Delete(_ context.Context, id string) error {
	err := removeDocument(tr.root, threadsDir, id)
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewThreadError("Delete", id, persistence.ErrThreadNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", id, err)
	}

	return nil
}
