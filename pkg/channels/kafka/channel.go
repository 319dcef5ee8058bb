// Package kafka wires watermill-kafka publishers and subscribers for the event bus.
package kafka

import (
	"errors"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/machinehq/flowbuilder/pkg/events"
)

var ErrNoBrokers = errors.New("no Kafka brokers configured")

type Config struct {
	Brokers []string

	// ClientID doubles as the consumer group suffix.
	ClientID string
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(raw string) []string {
	brokers := make([]string, 0)

	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}

// partitionKey keeps every event of one workflow on the same partition, so consumers see
// status changes and execution requests in publish order.
func partitionKey(_ string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(events.EventMetadataKey), nil
}

func CreateChannel(logger watermill.LoggerAdapter, cfg Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	if cfg.ClientID == "" {
		cfg.ClientID = "flowbuilder"
	}

	marshaler := kafka.NewWithPartitioningMarshaler(partitionKey)

	consumerConfig := kafka.DefaultSaramaSubscriberConfig()
	consumerConfig.ClientID = cfg.ClientID
	consumerConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			Unmarshaler:           marshaler,
			OverwriteSaramaConfig: consumerConfig,
			ConsumerGroup:         "cg-" + cfg.ClientID,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		return nil, nil, err
	}

	producerConfig := kafka.DefaultSaramaSyncPublisherConfig()
	producerConfig.ClientID = cfg.ClientID
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             marshaler,
			OverwriteSaramaConfig: producerConfig,
			OTELEnabled:           true,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return publisher, subscriber, nil
}
