package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/machinehq/flowbuilder/pkg/channels/gochannel"
	"github.com/machinehq/flowbuilder/pkg/channels/kafka"
	"github.com/machinehq/flowbuilder/pkg/eventbus"
)

// NewEventBus builds the event bus for provider: "gochannel" (in memory, the default) or "kafka".
func NewEventBus(provider, brokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case "", "gochannel":
		pub, sub := gochannel.CreateChannel(adapter)

		return eventbus.NewWatermillEventBus(pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, kafka.Config{
			Brokers:  kafka.ParseBrokers(brokers),
			ClientID: "flowbuilder-api",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
