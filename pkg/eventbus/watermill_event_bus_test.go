package eventbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/machinehq/flowbuilder/pkg/channels/gochannel"
	"github.com/machinehq/flowbuilder/pkg/eventbus"
	"github.com/machinehq/flowbuilder/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub := gochannel.CreateTestChannel(watermill.NopLogger{})
	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		assert.NoError(t, bus.Close())
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan *events.WorkflowExecutionRequested, 1)

	require.NoError(t, bus.Handle(events.WorkflowExecutionRequestedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.WorkflowExecutionRequested)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	err := bus.Publish(t.Context(), "wf-1", events.WorkflowExecutionRequested{
		BaseEvent: events.NewBaseEvent(events.WorkflowExecutionRequestedEvent, "wf-1", "p-1"),
		ThreadID:  "thread-1",
	})
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, "thread-1", event.ThreadID)
		assert.Equal(t, "wf-1", event.WorkflowID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan string, 1)

	require.NoError(t, bus.Handle(events.ThreadDeletedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.ThreadDeleted).ThreadID

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	// Blocks until acked, so a hang here means the unhandled event was never acked.
	require.NoError(t, bus.Publish(t.Context(), "wf-1", events.WorkflowStatusChanged{
		BaseEvent: events.NewBaseEvent(events.WorkflowStatusChangedEvent, "wf-1", "p-1"),
	}))

	require.NoError(t, bus.Publish(t.Context(), "thread-9", events.ThreadDeleted{
		BaseEvent: events.NewBaseEvent(events.ThreadDeletedEvent, "", "p-1"),
		ThreadID:  "thread-9",
	}))

	select {
	case id := <-received:
		assert.Equal(t, "thread-9", id)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_HandlerErrorNacks(t *testing.T) {
	bus := newTestBus(t)
	attempts := make(chan struct{}, 4)

	require.NoError(t, bus.Handle(events.ThreadDeletedEvent, func(_ context.Context, _ any) error {
		attempts <- struct{}{}
		if len(attempts) == 1 {
			return errors.New("boom")
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "t-1", events.ThreadDeleted{
		BaseEvent: events.NewBaseEvent(events.ThreadDeletedEvent, "", "p-1"),
		ThreadID:  "t-1",
	}))

	assert.GreaterOrEqual(t, len(attempts), 2)
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEmpty(t, bus.GenerateID())
	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

func TestOn_DeliversTypedEvent(t *testing.T) {
	bus := newTestBus(t)
	received := make(chan *events.WorkflowStatusChanged, 1)

	require.NoError(t, eventbus.On(bus, events.WorkflowStatusChangedEvent, func(_ context.Context, event *events.WorkflowStatusChanged) error {
		received <- event

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	require.NoError(t, bus.Publish(t.Context(), "wf-1", events.WorkflowStatusChanged{
		BaseEvent: events.NewBaseEvent(events.WorkflowStatusChangedEvent, "wf-1", "p-1"),
		From:      "draft",
		To:        "active",
	}))

	select {
	case event := <-received:
		assert.Equal(t, "wf-1", event.WorkflowID)
		assert.EqualValues(t, "active", event.To)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestOn_RejectsMismatchedPayload(t *testing.T) {
	var registered eventbus.EventHandler

	sub := handlerCapture(func(handler eventbus.EventHandler) { registered = handler })

	require.NoError(t, eventbus.On(sub, events.ThreadDeletedEvent, func(context.Context, *events.ThreadDeleted) error {
		return nil
	}))
	require.NotNil(t, registered)

	err := registered(t.Context(), &events.WorkflowStatusChanged{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected payload")
}

type handlerCapture func(eventbus.EventHandler)

func (c handlerCapture) Handle(_ events.EventType, handler eventbus.EventHandler) error {
	c(handler)

	return nil
}

func (c handlerCapture) Subscribe(context.Context) error { return nil }
