package mocks

import (
	"context"
	"sync"

	"github.com/machinehq/flowbuilder/pkg/eventbus"
	"github.com/machinehq/flowbuilder/pkg/events"
	"github.com/stretchr/testify/mock"
)

// MockEventBus is a testify mock of eventbus.EventBus that also keeps every event
// passed to Publish, whatever the stubbed result.
type MockEventBus struct {
	mock.Mock

	mu        sync.Mutex
	published []eventbus.Event
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	m.mu.Lock()
	m.published = append(m.published, event)
	m.mu.Unlock()

	args := m.Called(ctx, key, event)

	return args.Error(0)
}

// Published returns the events of the given type, in publish order.
func (m *MockEventBus) Published(eventType events.EventType) []eventbus.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []eventbus.Event

	for _, event := range m.published {
		if event.GetType() == eventType {
			out = append(out, event)
		}
	}

	return out
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	return m.Called(eventType, handler).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

func (m *MockEventBus) GenerateID() string {
	return m.Called().String(0)
}
