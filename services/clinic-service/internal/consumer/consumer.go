// Package consumer reads events other services publish about this clinic's
// appointments.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clinicflow/clinicflow/libs/kafkax"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox dedupes events by id. Record returns false for an id seen before.
type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// MessageReader is the part of *kafka.Reader the consumer uses. Offsets are
// committed explicitly, so a message is only acknowledged once it is settled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ErrPermanent marks handler failures that redelivery cannot fix, such as a
// malformed payload. Those events stay recorded in the inbox.
var ErrPermanent = errors.New("permanent event failure")

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
	tracer  trace.Tracer
	retry   time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, inbox, reader, handler)
}

func NewWithReader(logger *slog.Logger, inbox Inbox, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inbox,
		handler: handler,
		tracer:  otel.Tracer("kafka"),
		retry:   time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !c.wait(ctx) {
				return
			}
			continue
		}
		// The offset stays uncommitted until the message is settled, so a
		// restart redelivers it. Later messages wait behind it.
		for !c.Handle(ctx, msg) {
			if !c.wait(ctx) {
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit error", "err", err, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.retry):
		return true
	}
}

// Handle processes one message and reports whether it is settled: handled,
// a duplicate, or failed permanently. Transient failures release the inbox
// entry and return false so the message is tried again.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) bool {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := c.tracer.Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	logger := c.logger.With("event_id", meta.EventID, "event_type", meta.EventType)

	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		logger.Error("inbox record failed", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false
	}
	if !ok {
		logger.Info("duplicate event ignored")
		return true
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		logger.Error("handler error", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrPermanent) {
			return true
		}
		if ferr := c.inbox.Forget(ctxSpan, meta.EventID); ferr != nil {
			logger.Error("inbox release failed", "err", ferr)
		}
		return false
	}
	return true
}
