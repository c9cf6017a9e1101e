package gallery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/sortsession"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
)

type stubRepo struct {
	rows       []models.Media
	created    *models.Media
	readyID    uuid.UUID
	deletedIDs []uuid.UUID
	orders     map[uuid.UUID]int
	renumbered bool

	createErr error
	listErr   error
}

func (s *stubRepo) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = media
	s.rows = append(s.rows, *media)
	return media, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) ListOrdered(ctx context.Context) ([]models.Media, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Media, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

func (s *stubRepo) List(ctx context.Context, filter ListFilter) ([]models.Media, error) {
	var out []models.Media
	for _, row := range s.rows {
		if filter.Status != nil && row.Status != *filter.Status {
			continue
		}
		if filter.Category != nil && row.Category != *filter.Category {
			continue
		}
		out = append(out, row)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *stubRepo) MaxDisplayOrder(ctx context.Context) (int, error) {
	max := 0
	for _, row := range s.rows {
		if row.DisplayOrder > max {
			max = row.DisplayOrder
		}
	}
	return max, nil
}

func (s *stubRepo) UpdateDisplayOrders(tx *gorm.DB, orders map[uuid.UUID]int) error {
	s.orders = orders
	return nil
}

func (s *stubRepo) RenumberTx(tx *gorm.DB) error {
	s.renumbered = true
	return nil
}

func (s *stubRepo) UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Media, error) {
	return s.FindByID(ctx, id)
}

func (s *stubRepo) MarkReady(ctx context.Context, id uuid.UUID, uploadedAt time.Time) error {
	s.readyID = id
	return nil
}

func (s *stubRepo) DeleteTx(tx *gorm.DB, ids []uuid.UUID) ([]models.Media, error) {
	var deleted []models.Media
	var kept []models.Media
	for _, row := range s.rows {
		found := false
		for _, id := range ids {
			if row.ID == id {
				found = true
				break
			}
		}
		if found {
			deleted = append(deleted, row)
		} else {
			kept = append(kept, row)
		}
	}
	if len(deleted) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	s.rows = kept
	s.deletedIDs = ids
	return deleted, nil
}

func (s *stubRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.DeleteTx(&gorm.DB{}, []uuid.UUID{id})
	return err
}

func (s *stubRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Media, error) {
	var out []models.Media
	for _, row := range s.rows {
		if row.Status == enums.MediaStatusPending && row.CreatedAt.Before(cutoff) {
			out = append(out, row)
		}
	}
	return out, nil
}

type stubGCS struct {
	uploads   []string
	deletes   []string
	uploadErr error
	delErr    error
	signErr   error
	lastBody  []byte
}

func (s *stubGCS) UploadObject(ctx context.Context, bucket, object, contentType string, body io.Reader) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, _ := io.ReadAll(body)
	s.lastBody = data
	s.uploads = append(s.uploads, object)
	return nil
}

func (s *stubGCS) DeleteObject(ctx context.Context, bucket, object string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.deletes = append(s.deletes, object)
	return nil
}

func (s *stubGCS) SignedReadURL(bucket, object string, expires time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return "https://storage.example.com/" + object, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubEmitter struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "gallery-test",
		Level:       logger.ParseLevel("debug"),
		Output:      io.Discard,
	})
}

func newTestService(t *testing.T, repo *stubRepo, gcs *stubGCS, emitter *stubEmitter) Service {
	t.Helper()
	svc, err := NewService(
		repo,
		gcs,
		stubTx{},
		emitter,
		sortsession.NewStore(time.Hour, 10),
		"wedding-media",
		config.MediaConfig{
			ImageMaxBytes: 5 * 1024 * 1024,
			VideoMaxBytes: 50 * 1024 * 1024,
		},
		time.Hour,
		testLogger(),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedMedia(title string, order int, status enums.MediaStatus) models.Media {
	thumb := "gallery/other/" + title + "_thumb.jpg"
	medium := "gallery/other/" + title + "_medium.jpg"
	uploaded := time.Now().Add(-time.Duration(order) * time.Minute)
	return models.Media{
		ID:           uuid.New(),
		Category:     enums.MediaCategoryOther,
		Status:       status,
		Title:        title,
		FileName:     title + ".jpg",
		MimeType:     "image/jpeg",
		SizeBytes:    1024,
		GCSKey:       "gallery/other/" + title + ".jpg",
		ThumbKey:     &thumb,
		MediumKey:    &medium,
		DisplayOrder: order,
		UploadedAt:   &uploaded,
		CreatedAt:    uploaded,
	}
}

func TestUploadStoresObjectAndAppendsToOrder(t *testing.T) {
	repo := &stubRepo{rows: []models.Media{seedMedia("first", 1, enums.MediaStatusReady)}}
	gcs := &stubGCS{}
	svc := newTestService(t, repo, gcs, &stubEmitter{})

	media, err := svc.Upload(context.Background(), UploadInput{
		Category:  enums.MediaCategoryCeremony,
		Title:     "Lễ gia tiên",
		FileName:  "le gia tien.jpg",
		MimeType:  "image/jpeg",
		SizeBytes: 2048,
		Body:      bytes.NewReader([]byte("jpeg-bytes")),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if media.DisplayOrder != 2 {
		t.Fatalf("expected display order 2, got %d", media.DisplayOrder)
	}
	if media.Status != enums.MediaStatusReady {
		t.Fatalf("expected ready status, got %s", media.Status)
	}
	if media.FileName != "le-gia-tien.jpg" {
		t.Fatalf("expected sanitized file name, got %q", media.FileName)
	}
	if len(gcs.uploads) != 1 || !strings.HasPrefix(gcs.uploads[0], "gallery/ceremony/") {
		t.Fatalf("unexpected uploads: %v", gcs.uploads)
	}
	if string(gcs.lastBody) != "jpeg-bytes" {
		t.Fatalf("body not streamed to storage")
	}
	if repo.readyID != media.ID {
		t.Fatalf("expected row marked ready")
	}
	if media.ThumbKey == nil || media.MediumKey == nil {
		t.Fatalf("expected derived keys for image upload")
	}
}

func TestUploadRejectsOversizedImageBeforeStorage(t *testing.T) {
	repo := &stubRepo{}
	gcs := &stubGCS{}
	svc := newTestService(t, repo, gcs, &stubEmitter{})

	_, err := svc.Upload(context.Background(), UploadInput{
		Category:  enums.MediaCategoryFamily,
		FileName:  "huge.jpg",
		MimeType:  "image/jpeg",
		SizeBytes: 6 * 1024 * 1024,
		Body:      bytes.NewReader([]byte("x")),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.created != nil {
		t.Fatalf("no row should be created on validation failure")
	}
	if len(gcs.uploads) != 0 {
		t.Fatalf("no object should be stored on validation failure")
	}
}

func TestUploadRejectsUnsupportedMime(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubGCS{}, &stubEmitter{})

	_, err := svc.Upload(context.Background(), UploadInput{
		Category:  enums.MediaCategoryOther,
		FileName:  "doc.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 100,
		Body:      bytes.NewReader([]byte("x")),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadKeepsStorageErrorCode(t *testing.T) {
	repo := &stubRepo{}
	gcs := &stubGCS{
		uploadErr: pkgerrors.Wrap(
			pkgerrors.CodeMachineWake,
			errors.New("503 Service Unavailable"),
			"gcs upload failed",
		),
	}
	svc := newTestService(t, repo, gcs, &stubEmitter{})

	_, err := svc.Upload(context.Background(), UploadInput{
		Category:  enums.MediaCategoryFamily,
		FileName:  "photo.jpg",
		MimeType:  "image/jpeg",
		SizeBytes: 2048,
		Body:      bytes.NewReader([]byte("jpeg-bytes")),
	})
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected classified error, got %v", err)
	}
	// A cold storage backend must not be flattened into a generic
	// dependency failure; the waking-up message drives the client UX.
	if typed.Code() != pkgerrors.CodeMachineWake {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeMachineWake, typed.Code())
	}
}

func TestUploadVideoSkipsDerivedKeys(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	media, err := svc.Upload(context.Background(), UploadInput{
		Category:  enums.MediaCategoryReception,
		FileName:  "toast.mp4",
		MimeType:  "video/mp4",
		SizeBytes: 10 * 1024 * 1024,
		Body:      bytes.NewReader([]byte("mp4")),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if media.ThumbKey != nil || media.MediumKey != nil {
		t.Fatalf("videos should not get derived keys")
	}
}

func TestDeleteEmitsEventPerRowAndRenumbers(t *testing.T) {
	first := seedMedia("first", 1, enums.MediaStatusReady)
	second := seedMedia("second", 2, enums.MediaStatusReady)
	third := seedMedia("third", 3, enums.MediaStatusReady)
	repo := &stubRepo{rows: []models.Media{first, second, third}}
	emitter := &stubEmitter{}
	svc := newTestService(t, repo, &stubGCS{}, emitter)

	actor := outbox.ActorRef{AdminID: uuid.New(), Email: "admin@example.com"}
	if err := svc.Delete(context.Background(), actor, []uuid.UUID{first.ID, third.ID}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(emitter.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(emitter.events))
	}
	for _, event := range emitter.events {
		if event.EventType != enums.EventMediaDeleted {
			t.Fatalf("unexpected event type %s", event.EventType)
		}
		if event.AggregateType != enums.AggregateMedia {
			t.Fatalf("unexpected aggregate type %s", event.AggregateType)
		}
	}
	if !repo.renumbered {
		t.Fatalf("expected surviving rows renumbered")
	}
	if len(repo.rows) != 1 || repo.rows[0].ID != second.ID {
		t.Fatalf("unexpected surviving rows")
	}
}

func TestDeleteUnknownIDFails(t *testing.T) {
	repo := &stubRepo{rows: []models.Media{seedMedia("only", 1, enums.MediaStatusReady)}}
	emitter := &stubEmitter{}
	svc := newTestService(t, repo, &stubGCS{}, emitter)

	err := svc.Delete(context.Background(), outbox.ActorRef{}, []uuid.UUID{uuid.New()})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
	if len(emitter.events) != 0 {
		t.Fatalf("no events should be emitted on failed delete")
	}
}

func TestReorderRejectsPartialAssignments(t *testing.T) {
	first := seedMedia("first", 1, enums.MediaStatusReady)
	second := seedMedia("second", 2, enums.MediaStatusReady)
	repo := &stubRepo{rows: []models.Media{first, second}}
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	err := svc.Reorder(context.Background(), []OrderAssignment{{ID: first.ID, DisplayOrder: 1}})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReorderRejectsDuplicateOrders(t *testing.T) {
	first := seedMedia("first", 1, enums.MediaStatusReady)
	second := seedMedia("second", 2, enums.MediaStatusReady)
	repo := &stubRepo{rows: []models.Media{first, second}}
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	err := svc.Reorder(context.Background(), []OrderAssignment{
		{ID: first.ID, DisplayOrder: 1},
		{ID: second.ID, DisplayOrder: 1},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReorderPersistsAssignments(t *testing.T) {
	first := seedMedia("first", 1, enums.MediaStatusReady)
	second := seedMedia("second", 2, enums.MediaStatusReady)
	repo := &stubRepo{rows: []models.Media{first, second}}
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	err := svc.Reorder(context.Background(), []OrderAssignment{
		{ID: first.ID, DisplayOrder: 2},
		{ID: second.ID, DisplayOrder: 1},
	})
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if repo.orders[first.ID] != 2 || repo.orders[second.ID] != 1 {
		t.Fatalf("unexpected persisted orders: %v", repo.orders)
	}
}

func TestCleanupPendingRemovesStaleRowsAndObjects(t *testing.T) {
	stale := seedMedia("stale", 1, enums.MediaStatusPending)
	stale.CreatedAt = time.Now().Add(-48 * time.Hour)
	fresh := seedMedia("fresh", 2, enums.MediaStatusPending)
	fresh.CreatedAt = time.Now()
	ready := seedMedia("ready", 3, enums.MediaStatusReady)
	repo := &stubRepo{rows: []models.Media{stale, fresh, ready}}
	gcs := &stubGCS{}
	svc := newTestService(t, repo, gcs, &stubEmitter{})

	removed, err := svc.CleanupPending(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupPending: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if len(gcs.deletes) != 1 || gcs.deletes[0] != stale.GCSKey {
		t.Fatalf("unexpected storage deletes: %v", gcs.deletes)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("expected 2 rows remaining, got %d", len(repo.rows))
	}
}

func TestListPublicOnlyReturnsReadyMedia(t *testing.T) {
	ready := seedMedia("ready", 1, enums.MediaStatusReady)
	pending := seedMedia("pending", 2, enums.MediaStatusPending)
	repo := &stubRepo{rows: []models.Media{ready, pending}}
	svc := newTestService(t, repo, &stubGCS{}, &stubEmitter{})

	result, err := svc.ListPublic(context.Background(), PublicListParams{})
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].ID != ready.ID {
		t.Fatalf("expected only ready media, got %d items", len(result.Items))
	}
	if result.Items[0].URL == "" || result.Items[0].ThumbURL == "" {
		t.Fatalf("expected signed URLs on listed items")
	}
}
