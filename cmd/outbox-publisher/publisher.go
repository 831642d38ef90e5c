package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	"github.com/angelmondragon/bazaar-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxBackoff  = 10 * time.Second
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	BuryTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetried
	outcomeDeadLettered
)

func (o outcome) String() string {
	switch o {
	case outcomePublished:
		return "published"
	case outcomeRetried:
		return "retried"
	default:
		return "dead_lettered"
	}
}

type PublisherParams struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	DB          dbClient
	Broker      broker
	Repository  outboxRepository
	Registry    registryResolver
	DeadLetters deadLetterStore
	Metrics     *metrics.OutboxMetrics
}

// Publisher drains outbox_events to the broker. Each batch runs in one
// transaction holding row locks so several replicas can run side by side.
type Publisher struct {
	logg        *logger.Logger
	db          dbClient
	repo        outboxRepository
	broker      broker
	registry    registryResolver
	dead        deadLetterStore
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
	retry       *backoff.ExponentialBackOff
}

func NewPublisher(params PublisherParams) (*Publisher, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("broker is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DeadLetters == nil:
		return nil, errors.New("dead letter store is required")
	}

	cfg := params.Outbox
	p := &Publisher{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		broker:      params.Broker,
		registry:    params.Registry,
		dead:        params.DeadLetters,
		metrics:     params.Metrics,
		batchSize:   positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		poll:        defaultPoll,
	}
	if cfg.PollIntervalMS > 0 {
		p.poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	maxBackoff := defaultMaxBackoff
	if cfg.MaxBackoffMS > 0 {
		maxBackoff = time.Duration(cfg.MaxBackoffMS) * time.Millisecond
	}

	p.retry = backoff.NewExponentialBackOff()
	p.retry.InitialInterval = p.poll
	p.retry.MaxInterval = maxBackoff
	p.retry.MaxElapsedTime = 0
	p.retry.Reset()
	return p, nil
}

// Run polls until ctx is cancelled. A failing batch backs off exponentially; a
// full batch is followed immediately by the next one.
func (p *Publisher) Run(ctx context.Context) error {
	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"database", p.db.Ping},
		{p.broker.Name(), p.broker.Ping},
	}
	for _, check := range checks {
		if err := check.ping(ctx); err != nil {
			p.logg.Error(ctx, check.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", check.name, err)
		}
	}

	for {
		claimed, err := p.drain(ctx)
		wait := p.poll
		switch {
		case err != nil:
			p.logg.Error(ctx, "outbox.batch_failed", err)
			wait = p.retry.NextBackOff()
		case claimed > 0:
			p.retry.Reset()
			wait = 0
		default:
			p.retry.Reset()
		}
		if err := sleep(ctx, wait); err != nil {
			p.logg.Info(ctx, "outbox publisher stopping")
			return err
		}
	}
}

// drain handles one batch and reports how many rows it claimed.
func (p *Publisher) drain(ctx context.Context) (int, error) {
	var claimed int
	err := p.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := p.repo.FetchUnpublishedForPublish(tx, p.batchSize, p.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		claimed = len(events)
		if claimed == 0 {
			return nil
		}
		p.metrics.ObserveBatch(claimed)
		for _, event := range events {
			if err := p.handle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (p *Publisher) handle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	fields := eventFields(event)

	resolved, err := p.registry.Resolve(event)
	if err != nil {
		reason := enums.OutboxDLQReasonNonRetryable
		if !event.EventType.IsValid() {
			reason = enums.OutboxDLQReasonUnroutable
		}
		if err := p.bury(ctx, tx, event, reason, err, fields); err != nil {
			return err
		}
		p.metrics.Outcome(string(event.EventType), outcomeDeadLettered.String())
		return nil
	}
	fields["topic"] = resolved.Descriptor.Topic
	fields["event_id"] = resolved.Envelope.EventID.String()

	pubErr := p.publish(ctx, event, resolved)
	result, reason := p.classify(event, pubErr)
	switch result {
	case outcomePublished:
		if err := p.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		p.logg.Info(p.logg.WithFields(ctx, fields), "outbox.published")
	case outcomeRetried:
		fields["attempt_count"] = event.AttemptCount + 1
		fields["error"] = pubErr.Error()
		p.logg.Warn(p.logg.WithFields(ctx, fields), "outbox.publish_failed")
		if err := p.repo.MarkFailedTx(tx, event.ID, pubErr); err != nil {
			return fmt.Errorf("mark failed %s: %w", event.ID, err)
		}
	case outcomeDeadLettered:
		if reason == enums.OutboxDLQReasonMaxAttempts {
			pubErr = fmt.Errorf("giving up after %d attempts: %w", event.AttemptCount+1, pubErr)
		}
		if err := p.bury(ctx, tx, event, reason, pubErr, fields); err != nil {
			return err
		}
	}
	p.metrics.Outcome(string(event.EventType), result.String())
	return nil
}

// classify decides what a publish result means for the row.
func (p *Publisher) classify(event models.OutboxEvent, err error) (outcome, enums.OutboxDLQErrorReason) {
	if err == nil {
		return outcomePublished, ""
	}
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return outcomeDeadLettered, enums.OutboxDLQReasonNonRetryable
	}
	if event.AttemptCount+1 >= p.maxAttempts {
		return outcomeDeadLettered, enums.OutboxDLQReasonMaxAttempts
	}
	return outcomeRetried, ""
}

func (p *Publisher) bury(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	fields["error"] = cause.Error()
	p.logg.Warn(p.logg.WithFields(ctx, fields), "outbox.dead_lettered")

	if err := p.dead.BuryTx(tx, event, reason, cause); err != nil {
		return fmt.Errorf("dead-letter %s: %w", event.ID, err)
	}
	if err := p.repo.MarkTerminalTx(tx, event.ID, cause, p.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	if topic == "" {
		return registry.NewNonRetryableError(fmt.Errorf("no topic routed for %s", event.EventType))
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.broker.Publish(ctx, Message{
		Topic: topic,
		Key:   event.AggregateID.String(),
		Data:  event.Payload,
		Attributes: map[string]string{
			"event_id":         resolved.Envelope.EventID.String(),
			"event_type":       string(event.EventType),
			"aggregate_type":   string(event.AggregateType),
			"aggregate_id":     event.AggregateID.String(),
			"occurred_at":      resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
			"envelope_version": strconv.Itoa(resolved.Envelope.Version),
		},
	})
}

func eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
