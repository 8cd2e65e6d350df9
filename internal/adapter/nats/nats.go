// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/a2agate/internal/logger"
	"github.com/Strob0t/a2agate/internal/port/messagequeue"
)

const (
	streamName = "A2AGATE"

	headerRequestID     = "X-Request-ID"
	headerCorrelationID = "X-Correlation-ID"
	dlqSuffix           = ".dlq"
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ messagequeue.Queue = (*Queue)(nil)

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url, nats.Name("a2agate"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"a2a.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// Publish validates data against the subject schema and sends it. Request
// and correlation IDs found in ctx travel as message headers.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	if err := messagequeue.Validate(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}

	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}
	if id := logger.CorrelationID(ctx); id != "" {
		msg.Header.Set(headerCorrelationID, id)
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject. Messages
// that fail schema validation are moved to subject+".dlq" instead of being
// handed to the handler.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handle(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

func (q *Queue) handle(msg jetstream.Msg, handler messagequeue.Handler) {
	subject := msg.Subject()

	if err := messagequeue.Validate(subject, msg.Data()); err != nil {
		slog.Warn("invalid message moved to dlq", "subject", subject, "error", err)
		q.moveToDLQ(msg)
		return
	}

	ctx := context.Background()
	if h := msg.Headers(); h != nil {
		if id := h.Get(headerRequestID); id != "" {
			ctx = logger.WithRequestID(ctx, id)
		}
		if id := h.Get(headerCorrelationID); id != "" {
			ctx = logger.WithCorrelationID(ctx, id)
		}
	}

	if err := handler(ctx, subject, msg.Data()); err != nil {
		slog.Error("message handler failed", "subject", subject, "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("nats ack failed", "error", ackErr)
	}
}

func (q *Queue) moveToDLQ(msg jetstream.Msg) {
	dlq := &nats.Msg{Subject: msg.Subject() + dlqSuffix, Data: msg.Data(), Header: msg.Headers()}
	if _, err := q.js.PublishMsg(context.Background(), dlq); err != nil {
		slog.Error("nats dlq publish failed", "subject", dlq.Subject, "error", err)
		_ = msg.Nak()
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "error", err)
	}
}

// JetStream returns the JetStream context the queue publishes through.
func (q *Queue) JetStream() jetstream.JetStream {
	return q.js
}

// IsConnected reports whether the underlying connection is up.
func (q *Queue) IsConnected() bool {
	return q.nc != nil && q.nc.IsConnected()
}

// Close drains subscriptions and shuts down the NATS connection.
func (q *Queue) Close() error {
	if err := q.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		q.nc.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
