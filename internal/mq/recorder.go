package mq

import (
	"context"
	"log/slog"

	"github.com/shaiso/bgjob/internal/domain"
)

// MessagePublisher — то, что нужно EventRecorder (реализует *Publisher).
type MessagePublisher interface {
	Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error
}

// EventRecorder публикует записи Runner'а как события job.
//
// Реализует worker.Recorder. Ошибки публикации только логируются.
type EventRecorder struct {
	publisher MessagePublisher
	logger    *slog.Logger
}

// NewEventRecorder создаёт EventRecorder.
func NewEventRecorder(publisher MessagePublisher, logger *slog.Logger) *EventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRecorder{publisher: publisher, logger: logger}
}

// RecordAttempt публикует job.attempt, а для успешной попытки ещё и job.succeeded.
func (r *EventRecorder) RecordAttempt(ctx context.Context, rec *domain.AttemptRecord) {
	payload := AttemptPayload(rec)

	key := RoutingKeyAttemptFailed
	if rec.Succeeded() {
		key = RoutingKeyAttemptSucceeded
	}
	r.publish(ctx, key, NewMessage(MessageTypeJobAttempt, payload))

	if rec.Succeeded() {
		r.publish(ctx, RoutingKeySucceeded, NewMessage(MessageTypeJobSucceeded, payload))
	}
}

// RecordFailure публикует job.failed.
func (r *EventRecorder) RecordFailure(ctx context.Context, rec *domain.FailureRecord) {
	r.publish(ctx, RoutingKeyFailed, NewMessage(MessageTypeJobFailed, FailurePayload(rec)))
}

func (r *EventRecorder) publish(ctx context.Context, key RoutingKey, msg *Message) {
	if err := r.publisher.Publish(ctx, ExchangeJobs, key, msg); err != nil {
		r.logger.Warn("failed to publish job event",
			"routing_key", key,
			"type", msg.Type,
			"error", err,
		)
	}
}
