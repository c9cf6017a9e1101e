package gallery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
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
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox/payloads"
)

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListOrdered(ctx context.Context) ([]models.Media, error)
	List(ctx context.Context, filter ListFilter) ([]models.Media, error)
	MaxDisplayOrder(ctx context.Context) (int, error)
	UpdateDisplayOrders(tx *gorm.DB, orders map[uuid.UUID]int) error
	RenumberTx(tx *gorm.DB) error
	UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Media, error)
	MarkReady(ctx context.Context, id uuid.UUID, uploadedAt time.Time) error
	DeleteTx(tx *gorm.DB, ids []uuid.UUID) ([]models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Media, error)
}

type gcsClient interface {
	UploadObject(ctx context.Context, bucket, object, contentType string, body io.Reader) error
	DeleteObject(ctx context.Context, bucket, object string) error
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes gallery media management: uploads, listing, metadata
// editing, deletion with storage cleanup, and the reorder workflow.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*models.Media, error)
	Get(ctx context.Context, id uuid.UUID) (*MediaView, error)
	ListPublic(ctx context.Context, params PublicListParams) (*ListResult, error)
	ListAdmin(ctx context.Context, params AdminListParams) (*ListResult, error)
	UpdateMeta(ctx context.Context, id uuid.UUID, input UpdateMetaInput) (*models.Media, error)
	Delete(ctx context.Context, actor outbox.ActorRef, ids []uuid.UUID) error
	Reorder(ctx context.Context, assignments []OrderAssignment) error
	CleanupPending(ctx context.Context, maxAge time.Duration) (int, error)

	StartSortSession(ctx context.Context) (sortsession.State, error)
	GetSortSession(id uuid.UUID) (sortsession.State, error)
	SortSessionHistory(id uuid.UUID) ([]sortsession.Snapshot, error)
	ApplySortOperation(ctx context.Context, id uuid.UUID, input SortOperationInput) (sortsession.State, error)
	StartDrag(id, itemID uuid.UUID) (sortsession.State, error)
	Drop(ctx context.Context, id uuid.UUID, targetIndex int) (sortsession.State, error)
	CancelDrag(id uuid.UUID) (sortsession.State, error)
	Undo(id uuid.UUID) (sortsession.State, error)
	Redo(id uuid.UUID) (sortsession.State, error)
	SetSelection(id uuid.UUID, ids []uuid.UUID) (sortsession.State, error)
	SetAutoSave(id uuid.UUID, enabled bool) (sortsession.State, error)
	SaveOrder(ctx context.Context, id uuid.UUID) (sortsession.State, error)
	EndSortSession(id uuid.UUID)
}

type service struct {
	repo     mediaRepository
	gcs      gcsClient
	tx       txRunner
	outbox   outboxEmitter
	sessions *sortsession.Store
	logg     *logger.Logger

	bucket     string
	limits     uploadLimits
	readExpiry time.Duration
}

// NewService wires the gallery service.
func NewService(
	repo mediaRepository,
	gcs gcsClient,
	tx txRunner,
	emitter outboxEmitter,
	sessions *sortsession.Store,
	bucket string,
	mediaCfg config.MediaConfig,
	readExpiry time.Duration,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if gcs == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("sort session store required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	return &service{
		repo:     repo,
		gcs:      gcs,
		tx:       tx,
		outbox:   emitter,
		sessions: sessions,
		logg:     logg,
		bucket:   bucket,
		limits: uploadLimits{
			ImageMaxBytes: mediaCfg.ImageMaxBytes,
			VideoMaxBytes: mediaCfg.VideoMaxBytes,
		},
		readExpiry: readExpiry,
	}, nil
}

// UploadInput carries one multipart upload.
type UploadInput struct {
	Category  enums.MediaCategory
	Title     string
	AltText   string
	FileName  string
	MimeType  string
	SizeBytes int64
	Body      io.Reader
}

// Upload validates the file, stores the original to GCS and records the
// media row at the end of the display order. Validation failures reject the
// request before any storage or database write.
func (s *service) Upload(ctx context.Context, input UploadInput) (*models.Media, error) {
	if !input.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media category")
	}
	if input.Body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file body required")
	}
	cleanName, mediaType, err := validateUpload(input.FileName, input.MimeType, input.SizeBytes, s.limits)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = strings.TrimSuffix(cleanName, path.Ext(cleanName))
	}

	id := uuid.New()
	key := objectKey(input.Category, id, cleanName)
	thumbKey := derivedKey(key, "thumb")
	mediumKey := derivedKey(key, "medium")

	maxOrder, err := s.repo.MaxDisplayOrder(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading display order")
	}

	media := &models.Media{
		ID:           id,
		Category:     input.Category,
		Status:       enums.MediaStatusPending,
		Title:        title,
		FileName:     cleanName,
		MimeType:     mediaType,
		SizeBytes:    input.SizeBytes,
		GCSKey:       key,
		DisplayOrder: maxOrder + 1,
	}
	if alt := strings.TrimSpace(input.AltText); alt != "" {
		media.AltText = &alt
	}
	if !isVideoMime(mediaType) {
		media.ThumbKey = &thumbKey
		media.MediumKey = &mediumKey
	}

	if _, err := s.repo.Create(ctx, media); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating media record")
	}

	if err := s.gcs.UploadObject(ctx, s.bucket, key, mediaType, input.Body); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "gcs_key", key), "media upload to storage failed", err)
		return nil, pkgerrors.Wrap(storageErrCode(err), err, "storing media object")
	}

	now := time.Now()
	if err := s.repo.MarkReady(ctx, id, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalizing media record")
	}
	media.Status = enums.MediaStatusReady
	media.UploadedAt = &now

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"media_id":   id.String(),
		"category":   input.Category.String(),
		"mime_type":  mediaType,
		"size_bytes": input.SizeBytes,
	})
	s.logg.Info(logCtx, "media uploaded")
	return media, nil
}

// MediaView augments a media row with short-lived read URLs.
type MediaView struct {
	models.Media
	URL       string `json:"url"`
	ThumbURL  string `json:"thumb_url,omitempty"`
	MediumURL string `json:"medium_url,omitempty"`
}

// Get returns one media item with signed read URLs.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*MediaView, error) {
	media, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyRepoErr(err, "media not found")
	}
	view, err := s.view(*media)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) view(media models.Media) (*MediaView, error) {
	url, err := s.gcs.SignedReadURL(s.bucket, media.GCSKey, s.readExpiry)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing media URL")
	}
	view := &MediaView{Media: media, URL: url}
	if media.ThumbKey != nil {
		if view.ThumbURL, err = s.gcs.SignedReadURL(s.bucket, *media.ThumbKey, s.readExpiry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing thumb URL")
		}
	}
	if media.MediumKey != nil {
		if view.MediumURL, err = s.gcs.SignedReadURL(s.bucket, *media.MediumKey, s.readExpiry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing medium URL")
		}
	}
	return view, nil
}

// UpdateMetaInput patches editable fields; nil pointers leave fields alone.
type UpdateMetaInput struct {
	Title    *string
	AltText  *string
	Category *enums.MediaCategory
	Featured *bool
}

// UpdateMeta edits title, alt text, category and featured flag.
func (s *service) UpdateMeta(ctx context.Context, id uuid.UUID, input UpdateMetaInput) (*models.Media, error) {
	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = title
	}
	if input.AltText != nil {
		updates["alt_text"] = strings.TrimSpace(*input.AltText)
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media category")
		}
		updates["category"] = *input.Category
	}
	if input.Featured != nil {
		updates["featured"] = *input.Featured
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	media, err := s.repo.UpdateMeta(ctx, id, updates)
	if err != nil {
		return nil, classifyRepoErr(err, "media not found")
	}
	return media, nil
}

// Delete removes one or more media rows, renumbers the survivors and emits a
// deletion event per row so the storage worker purges the objects. Row
// deletion and event insert share one transaction.
func (s *service) Delete(ctx context.Context, actor outbox.ActorRef, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one media id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		deleted, err := s.repo.DeleteTx(tx, ids)
		if err != nil {
			return err
		}
		if len(deleted) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more media ids not found")
		}

		now := time.Now()
		for _, row := range deleted {
			payload := payloads.MediaDeletedEvent{
				MediaID:   row.ID,
				Category:  row.Category,
				GCSKey:    row.GCSKey,
				DeletedAt: now,
			}
			if row.ThumbKey != nil {
				payload.ThumbKey = *row.ThumbKey
			}
			if row.MediumKey != nil {
				payload.MediumKey = *row.MediumKey
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventMediaDeleted,
				AggregateType: enums.AggregateMedia,
				AggregateID:   row.ID,
				Actor:         &actor,
				Data:          payload,
				Version:       1,
				OccurredAt:    now,
			}
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return err
			}
		}

		// Close the gaps left by the deleted rows.
		return s.repo.RenumberTx(tx)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting media")
	}

	s.logg.Info(s.logg.WithField(ctx, "count", len(ids)), "media deleted")
	return nil
}

// OrderAssignment is one row of the canonical reorder payload.
type OrderAssignment struct {
	ID           uuid.UUID `json:"id"`
	DisplayOrder int       `json:"display_order"`
}

// Reorder persists an explicit order. Every gallery item must appear exactly
// once and the orders must be the sequence 1..n.
func (s *service) Reorder(ctx context.Context, assignments []OrderAssignment) error {
	if len(assignments) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order assignments required")
	}

	orders := make(map[uuid.UUID]int, len(assignments))
	seenOrders := make(map[int]struct{}, len(assignments))
	for _, a := range assignments {
		if a.ID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "media id required")
		}
		if a.DisplayOrder < 1 || a.DisplayOrder > len(assignments) {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("display_order must be between 1 and %d", len(assignments)))
		}
		if _, dup := orders[a.ID]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate media id in assignments")
		}
		if _, dup := seenOrders[a.DisplayOrder]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate display_order in assignments")
		}
		orders[a.ID] = a.DisplayOrder
		seenOrders[a.DisplayOrder] = struct{}{}
	}

	existing, err := s.repo.ListOrdered(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing media")
	}
	if len(existing) != len(assignments) {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignments must cover every gallery item")
	}
	for _, row := range existing {
		if _, ok := orders[row.ID]; !ok {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("media %s missing from assignments", row.ID))
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdateDisplayOrders(tx, orders)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting display order")
	}
	return nil
}

// CleanupPending deletes pending rows older than maxAge along with their
// stored objects. Uploads that never completed leave these rows behind.
func (s *service) CleanupPending(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	rows, err := s.repo.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stale pending media")
	}
	removed := 0
	for _, row := range rows {
		if err := s.gcs.DeleteObject(ctx, s.bucket, row.GCSKey); err != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"gcs_key": row.GCSKey, "error": err.Error()})
			s.logg.Warn(logCtx, "stale object delete failed")
			continue
		}
		if err := s.repo.Delete(ctx, row.ID); err != nil {
			return removed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting stale media row")
		}
		removed++
	}
	if removed > 0 {
		s.logg.Info(s.logg.WithField(ctx, "removed", removed), "stale pending media cleaned up")
	}
	return removed, nil
}

func objectKey(category enums.MediaCategory, id uuid.UUID, fileName string) string {
	return fmt.Sprintf("gallery/%s/%s-%s", category, id, fileName)
}

func derivedKey(key, variant string) string {
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "_" + variant + ext
}

// storageErrCode keeps the code the storage client already classified
// (machine wake, timeout, rate limit) instead of flattening it to DEPENDENCY.
func storageErrCode(err error) pkgerrors.Code {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Code()
	}
	return pkgerrors.CodeDependency
}

func classifyRepoErr(err error, notFoundMsg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "media query failed")
}
