package services

import (
	"context"
	"log/slog"

	"github.com/machinehq/flowbuilder/pkg/eventbus"
	"github.com/machinehq/flowbuilder/pkg/events"
	"github.com/machinehq/flowbuilder/pkg/models"
	"github.com/machinehq/flowbuilder/pkg/persistence"
)

type Thread struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewThread(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Thread {
	return &Thread{
		persistence: persistence,
		publisher:   publisher,
		logger:      logger.With("module", "thread_service"),
	}
}

func (t *Thread) ListByProject(ctx context.Context, projectID string) ([]*models.Thread, error) {
	return t.persistence.ThreadRepository().ListByProject(ctx, projectID)
}

// Delete removes a thread and tells the execution side to drop its conversation.
func (t *Thread) Delete(ctx context.Context, threadID string) error {
	thread, err := t.persistence.ThreadRepository().GetByID(ctx, threadID)
	if err != nil {
		return err
	}

	err = t.persistence.ThreadRepository().Delete(ctx, threadID)
	if err != nil {
		return err
	}

	err = t.publisher.Publish(ctx, thread.ID, events.ThreadDeleted{
		BaseEvent: events.NewBaseEvent(events.ThreadDeletedEvent, thread.WorkflowID, thread.ProjectID),
		ThreadID:  thread.ID,
	})
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to publish thread deletion", "thread_id", thread.ID, "error", err)
	}

	return nil
}
