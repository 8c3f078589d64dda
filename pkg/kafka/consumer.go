package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// DefaultHandlerAttempts is how often a handler runs for one message before
// the message is dead-lettered and committed.
const DefaultHandlerAttempts = 3

// Handler processes one event.
type Handler func(ctx context.Context, event *Event) error

// MessageReader is the part of *kafka.Reader used by Consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DeadLetterPublisher receives messages whose handler kept failing.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, msg kafka.Message, lastErr error, group string) error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
	// Attempts per message. Zero means DefaultHandlerAttempts.
	Attempts int
	// RetryBackoff is multiplied by the attempt number between attempts.
	RetryBackoff time.Duration
}

// DefaultConsumerConfig returns the consumer settings for topic in group.
func DefaultConsumerConfig(brokers []string, group, topic string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:      brokers,
		GroupID:      group,
		Topic:        topic,
		MinBytes:     1,
		MaxBytes:     10e6,
		Attempts:     DefaultHandlerAttempts,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// Consumer reads events from one topic and hands them to a Handler. Offsets
// are committed after the handler succeeds, or after the message has been
// dead-lettered.
type Consumer struct {
	reader    MessageReader
	cfg       ConsumerConfig
	handler   Handler
	dlq       DeadLetterPublisher
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewConsumer creates a consumer backed by a kafka-go reader. dlq may be nil.
func NewConsumer(cfg ConsumerConfig, handler Handler, dlq DeadLetterPublisher, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, cfg, handler, dlq, logger)
}

// NewConsumerWithReader creates a consumer on top of an existing reader.
func NewConsumerWithReader(r MessageReader, cfg ConsumerConfig, handler Handler, dlq DeadLetterPublisher, logger *slog.Logger) *Consumer {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultHandlerAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader:  r,
		cfg:     cfg,
		handler: handler,
		dlq:     dlq,
		logger:  logger.With(slog.String("topic", cfg.Topic), slog.String("group", cfg.GroupID)),
	}
}

// Start consumes messages until ctx is canceled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping")
				return nil
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.cfg.RetryBackoff):
			}
			continue
		}

		if stop := c.process(ctx, msg); stop {
			return nil
		}
	}
}

// process handles one message and commits it. It reports whether ctx was
// canceled while retrying.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	received.WithLabelValues(c.cfg.Topic, c.cfg.GroupID).Inc()

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to unmarshal event",
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(ctx, msg, err)
		c.commit(ctx, msg)
		return false
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, NewKafkaHeaderCarrier(&msg.Headers))

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			break
		}
		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.cfg.Attempts),
			slog.String("error", lastErr.Error()),
		)
		if attempt < c.cfg.Attempts {
			select {
			case <-ctx.Done():
				return true
			case <-time.After(time.Duration(attempt) * c.cfg.RetryBackoff):
			}
		}
	}
	observeHandled(c.cfg.Topic, c.cfg.GroupID, start, lastErr)

	if lastErr != nil {
		c.logger.ErrorContext(ctx, "handler failed after all attempts",
			slog.String("event_type", event.EventType),
			slog.String("aggregate_id", event.AggregateID),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.String("error", lastErr.Error()),
		)
		c.deadLetter(ctx, msg, lastErr)
	}
	c.commit(ctx, msg)
	return false
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, err error) {
	if c.dlq == nil {
		return
	}
	if dlqErr := c.dlq.Publish(ctx, msg, err, c.cfg.GroupID); dlqErr != nil {
		c.logger.ErrorContext(ctx, "failed to dead-letter message", slog.String("error", dlqErr.Error()))
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "failed to commit message",
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
	}
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
