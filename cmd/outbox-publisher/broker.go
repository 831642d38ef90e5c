package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/kafka"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/registry"
	"github.com/angelmondragon/bazaar-backend/pkg/pubsub"
)

// Message is the broker-neutral unit the publisher loop hands to a broker.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}

type broker interface {
	Name() string
	Ping(context.Context) error
	Publish(context.Context, Message) error
	Close() error
}

// newBroker opens the configured broker and the matching topic layout.
func newBroker(ctx context.Context, cfg *config.Config, logg *logger.Logger) (broker, registry.Topics, error) {
	switch cfg.Outbox.Broker {
	case config.OutboxBrokerKafka:
		producer, err := kafka.NewProducer(cfg.Kafka, logg)
		if err != nil {
			return nil, registry.Topics{}, err
		}
		return &kafkaBroker{producer: producer}, registry.KafkaTopics(cfg.Kafka), nil
	case config.OutboxBrokerPubSub, "":
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, registry.Topics{}, err
		}
		return newGCPBroker(client), registry.PubSubTopics(cfg.PubSub), nil
	default:
		return nil, registry.Topics{}, fmt.Errorf("unsupported outbox broker %q", cfg.Outbox.Broker)
	}
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
	Close() error
}

type gcpBroker struct {
	client     pubSubClient
	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func newGCPBroker(client pubSubClient) *gcpBroker {
	return &gcpBroker{client: client, publishers: make(map[string]*gcppubsub.Publisher)}
}

func (b *gcpBroker) Name() string { return config.OutboxBrokerPubSub }

func (b *gcpBroker) Ping(ctx context.Context) error { return b.client.Ping(ctx) }

func (b *gcpBroker) publisher(topic string) *gcppubsub.Publisher {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pub, ok := b.publishers[topic]; ok {
		return pub
	}
	pub := b.client.Publisher(topic)
	if pub != nil {
		b.publishers[topic] = pub
	}
	return pub
}

func (b *gcpBroker) Publish(ctx context.Context, msg Message) error {
	pub := b.publisher(msg.Topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", msg.Topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.Key,
	})
	if result == nil {
		return errors.New("publish result is nil")
	}
	if _, err := result.Get(ctx); err != nil {
		// a failed ordered publish pauses its key until resumed
		if msg.Key != "" && pub.EnableMessageOrdering {
			pub.ResumePublish(msg.Key)
		}
		return err
	}
	return nil
}

func (b *gcpBroker) Close() error {
	b.mu.Lock()
	for topic, pub := range b.publishers {
		pub.Stop()
		delete(b.publishers, topic)
	}
	b.mu.Unlock()
	return b.client.Close()
}

type kafkaBroker struct {
	producer *kafka.Producer
}

func (b *kafkaBroker) Name() string { return config.OutboxBrokerKafka }

func (b *kafkaBroker) Ping(ctx context.Context) error { return b.producer.Ping(ctx) }

func (b *kafkaBroker) Publish(ctx context.Context, msg Message) error {
	return b.producer.Publish(ctx, msg.Topic, msg.Key, msg.Data, msg.Attributes)
}

func (b *kafkaBroker) Close() error { return b.producer.Close() }
