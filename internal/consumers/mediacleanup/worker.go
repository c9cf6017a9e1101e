package mediacleanup

import (
	"context"
	"encoding/json"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
)

// Worker pumps Pub/Sub deliveries into the cleanup consumer, acking only
// when processing succeeded or the message is unreadable.
type Worker struct {
	subscription *gcppubsub.Subscriber
	consumer     *Consumer
	logg         *logger.Logger
}

// NewWorker wires a subscription to a cleanup consumer.
func NewWorker(subscription *gcppubsub.Subscriber, consumer *Consumer, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("subscription is required")
	}
	if consumer == nil {
		return nil, errors.New("consumer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{
		subscription: subscription,
		consumer:     consumer,
		logg:         logg,
	}, nil
}

// Run blocks receiving messages until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.handle(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// handle reports whether the message should be nacked for redelivery.
func (w *Worker) handle(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := w.logg.WithField(ctx, "message_id", msg.ID)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		// An unreadable message never becomes readable. Ack it so the
		// subscription does not churn on poison payloads.
		w.logg.Error(logCtx, "undecodable cleanup message dropped", err)
		return false
	}

	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	if err := w.consumer.Process(logCtx, eventType, envelope); err != nil {
		w.logg.Error(logCtx, "cleanup processing failed", err)
		return true
	}
	return false
}
