package mediacleanup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox/payloads"
)

func TestCleanupConsumerDeletesAllObjectVariants(t *testing.T) {
	deleter := &fakeDeleter{}
	manager := fakeIdempotency{
		check:    func(context.Context, string, uuid.UUID) (bool, error) { return false, nil },
		deleteFn: func(context.Context, string, uuid.UUID) error { return nil },
	}
	consumer := mustConsumer(t, deleter, manager)

	mediaID := uuid.New()
	envelope := buildEnvelope(t, uuid.New(), payloads.MediaDeletedEvent{
		MediaID:   mediaID,
		Category:  enums.MediaCategoryFamily,
		GCSKey:    "gallery/family/old.jpg",
		ThumbKey:  "gallery/family/old_thumb.jpg",
		MediumKey: "gallery/family/old_medium.jpg",
		DeletedAt: time.Now(),
	})

	if err := consumer.Process(context.Background(), enums.EventMediaDeleted, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	want := []string{
		"gallery/family/old.jpg",
		"gallery/family/old_thumb.jpg",
		"gallery/family/old_medium.jpg",
	}
	if len(deleter.deleted) != len(want) {
		t.Fatalf("expected %d deletes, got %d", len(want), len(deleter.deleted))
	}
	for i, key := range want {
		if deleter.deleted[i] != key {
			t.Fatalf("delete %d: expected %q, got %q", i, key, deleter.deleted[i])
		}
	}
}

func TestCleanupConsumerSkipsUnrelatedEvents(t *testing.T) {
	deleter := &fakeDeleter{}
	manager := fakeIdempotency{
		check:    func(context.Context, string, uuid.UUID) (bool, error) { return false, nil },
		deleteFn: func(context.Context, string, uuid.UUID) error { return nil },
	}
	consumer := mustConsumer(t, deleter, manager)

	envelope := buildEnvelope(t, uuid.New(), map[string]any{})
	if err := consumer.Process(context.Background(), enums.EventRSVPSubmitted, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(deleter.deleted) != 0 {
		t.Fatalf("expected no deletes for unrelated event")
	}
}

func TestCleanupConsumerIsIdempotent(t *testing.T) {
	deleter := &fakeDeleter{}
	manager := fakeIdempotency{
		check:    func(context.Context, string, uuid.UUID) (bool, error) { return true, nil },
		deleteFn: func(context.Context, string, uuid.UUID) error { return nil },
	}
	consumer := mustConsumer(t, deleter, manager)

	envelope := buildEnvelope(t, uuid.New(), payloads.MediaDeletedEvent{
		MediaID: uuid.New(),
		GCSKey:  "gallery/other/dup.jpg",
	})
	if err := consumer.Process(context.Background(), enums.EventMediaDeleted, envelope); err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(deleter.deleted) != 0 {
		t.Fatalf("expected no deletes when already processed")
	}
}

func TestCleanupConsumerReleasesMarkerOnDeleteFailure(t *testing.T) {
	deleter := &fakeDeleter{err: errors.New("storage down")}
	released := false
	manager := fakeIdempotency{
		check: func(context.Context, string, uuid.UUID) (bool, error) { return false, nil },
		deleteFn: func(context.Context, string, uuid.UUID) error {
			released = true
			return nil
		},
	}
	consumer := mustConsumer(t, deleter, manager)

	envelope := buildEnvelope(t, uuid.New(), payloads.MediaDeletedEvent{
		MediaID: uuid.New(),
		GCSKey:  "gallery/ceremony/broken.jpg",
	})
	if err := consumer.Process(context.Background(), enums.EventMediaDeleted, envelope); err == nil {
		t.Fatalf("expected error when storage delete fails")
	}
	if !released {
		t.Fatalf("expected idempotency marker release on failure")
	}
}

func TestCleanupConsumerRejectsPayloadWithoutKey(t *testing.T) {
	deleter := &fakeDeleter{}
	released := false
	manager := fakeIdempotency{
		check: func(context.Context, string, uuid.UUID) (bool, error) { return false, nil },
		deleteFn: func(context.Context, string, uuid.UUID) error {
			released = true
			return nil
		},
	}
	consumer := mustConsumer(t, deleter, manager)

	envelope := buildEnvelope(t, uuid.New(), payloads.MediaDeletedEvent{MediaID: uuid.New()})
	if err := consumer.Process(context.Background(), enums.EventMediaDeleted, envelope); err == nil {
		t.Fatalf("expected error for payload without gcs key")
	}
	if !released {
		t.Fatalf("expected idempotency marker release on bad payload")
	}
}

type fakeDeleter struct {
	deleted []string
	err     error
}

func (f *fakeDeleter) DeleteObject(_ context.Context, _ string, object string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, object)
	return nil
}

type fakeIdempotency struct {
	check    func(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	deleteFn func(ctx context.Context, consumer string, eventID uuid.UUID) error
}

func (f fakeIdempotency) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	return f.check(ctx, consumer, eventID)
}

func (f fakeIdempotency) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	return f.deleteFn(ctx, consumer, eventID)
}

func mustConsumer(t *testing.T, deleter *fakeDeleter, manager fakeIdempotency) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(deleter, "wedding-media", manager, logger.New(logger.Options{
		ServiceName: "media-cleanup-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	}))
	if err != nil {
		t.Fatalf("failed to build consumer: %v", err)
	}
	return consumer
}

func buildEnvelope(t *testing.T, eventID uuid.UUID, payload any) outbox.PayloadEnvelope {
	t.Helper()
	bytes, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now(),
		Data:       bytes,
	}
}
