package registry

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/payloads"
)

// Topics names the destination per aggregate family.
type Topics struct {
	Bargains   string
	Orders     string
	Settlement string
}

// PubSubTopics reads the topic names from the Pub/Sub config.
func PubSubTopics(cfg config.PubSubConfig) Topics {
	return Topics{
		Bargains:   cfg.BargainsTopic,
		Orders:     cfg.OrdersTopic,
		Settlement: cfg.SettlementTopic,
	}
}

// KafkaTopics derives "<prefix>.bargains" style topic names.
func KafkaTopics(cfg config.KafkaConfig) Topics {
	prefix := strings.TrimSuffix(strings.TrimSpace(cfg.TopicPrefix), ".")
	name := func(suffix string) string {
		if prefix == "" {
			return suffix
		}
		return prefix + "." + suffix
	}
	return Topics{
		Bargains:   name("bargains"),
		Orders:     name("orders"),
		Settlement: name("settlement"),
	}
}

// EventDescriptor links an event type to its aggregate/topic/payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.Envelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry builds the registry with the given topic names.
func NewEventRegistry(topics Topics) (*EventRegistry, error) {
	if topics.Bargains == "" {
		return nil, fmt.Errorf("bargains topic is required")
	}
	if topics.Orders == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	if topics.Settlement == "" {
		return nil, fmt.Errorf("settlement topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	bargainEvent := func() any { return &payloads.BargainEvent{} }
	for _, eventType := range []enums.OutboxEventType{
		enums.EventBargainProposed,
		enums.EventBargainCountered,
		enums.EventBargainAccepted,
		enums.EventBargainRejected,
		enums.EventBargainExpired,
	} {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateBargain,
			Topic:          topics.Bargains,
			PayloadFactory: bargainEvent,
		})
	}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventOrderPlaced,
			PayloadFactory: func() any { return &payloads.OrderPlacedEvent{} },
		},
		{
			EventType:      enums.EventOrderStatusChanged,
			PayloadFactory: func() any { return &payloads.OrderStatusChangedEvent{} },
		},
		{
			EventType:      enums.EventOrderCancelled,
			PayloadFactory: func() any { return &payloads.OrderCancelledEvent{} },
		},
		{
			EventType:      enums.EventOrderPaid,
			PayloadFactory: func() any { return &payloads.OrderPaidEvent{} },
		},
	} {
		desc.AggregateType = enums.AggregateOrder
		desc.Topic = topics.Orders
		reg.register(desc)
	}
	settlementEvent := func() any { return &payloads.SettlementEvent{} }
	for _, eventType := range []enums.OutboxEventType{
		enums.EventSettlementTransferred,
		enums.EventSettlementFailed,
	} {
		reg.register(EventDescriptor{
			EventType:      eventType,
			AggregateType:  enums.AggregateTransaction,
			Topic:          topics.Settlement,
			PayloadFactory: settlementEvent,
		})
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Topics lists every distinct destination, used by publishers to pre-create topics.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		out = append(out, desc.Topic)
	}
	return out
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	if envelope.EventType != "" && envelope.EventType != event.EventType {
		return nil, NewNonRetryableError(fmt.Errorf("envelope type %s does not match row type %s", envelope.EventType, event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := envelope.Into(payload); err != nil {
		return nil, NewNonRetryableError(err)
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
