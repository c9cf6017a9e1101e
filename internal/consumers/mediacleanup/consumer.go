package mediacleanup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox/payloads"
)

const cleanupConsumerName = "media-cleanup"

type objectDeleter interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer purges GCS objects for deleted gallery media while honoring Redis
// idempotency. The media row is already gone when the event arrives, so
// every object key travels in the payload.
type Consumer struct {
	gcs     objectDeleter
	bucket  string
	manager idempotencyChecker
	logg    *logger.Logger
}

// NewConsumer builds a media cleanup consumer.
func NewConsumer(gcs objectDeleter, bucket string, manager idempotencyChecker, logg *logger.Logger) (*Consumer, error) {
	if gcs == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		gcs:     gcs,
		bucket:  strings.TrimSpace(bucket),
		manager: manager,
		logg:    logg,
	}, nil
}

// Process deletes the original, thumb and medium objects named by the event.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if eventType != enums.EventMediaDeleted {
		c.logg.Info(logCtx, "event not handled by media cleanup consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, cleanupConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	var payload payloads.MediaDeletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to decode media deleted payload", err)
		_ = c.manager.Delete(ctx, cleanupConsumerName, eventID)
		return err
	}
	if payload.GCSKey == "" {
		_ = c.manager.Delete(ctx, cleanupConsumerName, eventID)
		return fmt.Errorf("gcs key missing from payload")
	}

	keys := []string{payload.GCSKey}
	if payload.ThumbKey != "" {
		keys = append(keys, payload.ThumbKey)
	}
	if payload.MediumKey != "" {
		keys = append(keys, payload.MediumKey)
	}

	for _, key := range keys {
		if err := c.gcs.DeleteObject(ctx, c.bucket, key); err != nil {
			c.logg.Error(c.logg.WithField(logCtx, "gcs_key", key), "failed to delete storage object", err)
			_ = c.manager.Delete(ctx, cleanupConsumerName, eventID)
			return err
		}
	}

	c.logg.Info(c.logg.WithField(logCtx, "media_id", payload.MediaID.String()), "media storage objects purged")
	return nil
}
