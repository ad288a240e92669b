package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
)

// Handler processes one event. Returning an error triggers a retry.
type Handler func(ctx context.Context, event *Event) error

// messageReader is the subset of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topics   []string
	MinBytes int
	MaxBytes int

	// MaxAttempts bounds handler attempts per message before it is sent to
	// the DLQ (when configured) and committed.
	MaxAttempts uint
	RetryWait   time.Duration
}

// Consumer reads events from a consumer group and hands them to a Handler,
// retrying failures and diverting poison messages to a dead-letter topic.
type Consumer struct {
	reader    messageReader
	handler   Handler
	dlq       *DLQProducer
	group     string
	attempts  uint
	retryWait time.Duration
	logger    *slog.Logger
	closeOnce sync.Once
}

// NewConsumer creates a consumer for cfg.Topics in group cfg.GroupID.
// dlq may be nil, in which case poison messages are only logged.
func NewConsumer(cfg ConsumerConfig, handler Handler, dlq *DLQProducer, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return newConsumer(r, cfg, handler, dlq, logger)
}

func newConsumer(r messageReader, cfg ConsumerConfig, handler Handler, dlq *DLQProducer, logger *slog.Logger) *Consumer {
	attempts := cfg.MaxAttempts
	if attempts == 0 {
		attempts = 3
	}
	wait := cfg.RetryWait
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}
	return &Consumer{
		reader:    r,
		handler:   handler,
		dlq:       dlq,
		group:     cfg.GroupID,
		attempts:  attempts,
		retryWait: wait,
		logger:    logger,
	}
}

// Start consumes until ctx is canceled. Messages are committed after they
// are handled, dead-lettered or found undecodable.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.InfoContext(ctx, "consumer started", slog.String("group", c.group))
	defer c.Close() //nolint:errcheck

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfoContext(ctx, "consumer stopping", slog.String("group", c.group))
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.ErrorContext(ctx, "fetch message failed", slog.String("error", err.Error()))
			continue
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.ErrorContext(ctx, "commit message failed",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	msgCtx := extractTrace(ctx, msg.Headers)

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.ErrorContext(msgCtx, "undecodable message",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.String("error", err.Error()),
		)
		c.deadLetter(msgCtx, msg, err)
		return
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	_, err = backoff.Retry(msgCtx, func() (struct{}, error) {
		return struct{}{}, c.handler(msgCtx, event)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.logger.WarnContext(msgCtx, "handler failed, will retry",
				slog.String("event_type", event.EventType),
				slog.String("event_id", event.EventID),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err == nil {
		consumerMessagesProcessed.WithLabelValues(msg.Topic, c.group).Inc()
		return
	}
	if ctx.Err() != nil {
		return
	}

	consumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
	c.logger.ErrorContext(msgCtx, "handler failed after all retries",
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.String("topic", msg.Topic),
		slog.Int64("offset", msg.Offset),
		slog.String("error", err.Error()),
	)
	c.deadLetter(msgCtx, msg, err)
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		c.logger.ErrorContext(ctx, "dead-letter publish failed", slog.String("error", err.Error()))
		return
	}
	consumerDLQPublished.WithLabelValues(msg.Topic, c.group).Inc()
}

// Close closes the reader. It is safe to call multiple times.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
