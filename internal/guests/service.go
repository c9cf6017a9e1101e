package guests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/pagination"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/redis"
)

const maxNameLength = 200
const maxNoteLength = 1000

type guestRepository interface {
	Create(ctx context.Context, guest *models.Guest) (*models.Guest, error)
	Find(ctx context.Context, id uuid.UUID) (*models.Guest, error)
	List(ctx context.Context, filter ListFilter) ([]models.Guest, *pagination.Cursor, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Guest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type guestCache interface {
	GuestKey(guestID string) string
	CacheJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	FetchJSON(ctx context.Context, key string, dest any) error
	Del(ctx context.Context, keys ...string) error
}

// Service exposes the public invitation lookup and admin guest CRUD.
type Service interface {
	Invitation(ctx context.Context, id uuid.UUID) (*InvitationView, error)
	List(ctx context.Context, params AdminListParams) (*ListResult, error)
	Create(ctx context.Context, input CreateInput) (*models.Guest, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Guest, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     guestRepository
	cache    guestCache
	cacheTTL time.Duration
	logg     *logger.Logger
}

// NewService wires the guest service.
func NewService(repo guestRepository, cache guestCache, cacheTTL time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("guest repository required")
	}
	if cache == nil {
		return nil, fmt.Errorf("guest cache required")
	}
	if cacheTTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	return &service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logg:     logg,
	}, nil
}

// InvitationView is the public shape of a personal invitation link.
type InvitationView struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Venue      enums.Venue `json:"venue"`
	CustomNote string      `json:"custom_note,omitempty"`
}

// Invitation serves the public invitation page through the guest cache.
func (s *service) Invitation(ctx context.Context, id uuid.UUID) (*InvitationView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest id required")
	}

	key := s.cache.GuestKey(id.String())
	var view InvitationView
	err := s.cache.FetchJSON(ctx, key, &view)
	if err == nil {
		return &view, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		// Serve from the database when the cache is unreachable.
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "guest cache read failed")
	}

	guest, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "guest not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading guest")
	}

	view = invitationView(guest)
	if err := s.cache.CacheJSON(ctx, key, view, s.cacheTTL); err != nil {
		s.logg.Warn(s.logg.WithGuestID(ctx, id.String()), "guest cache write failed")
	}
	return &view, nil
}

func invitationView(guest *models.Guest) InvitationView {
	view := InvitationView{
		ID:    guest.ID,
		Name:  guest.Name,
		Venue: guest.Venue,
	}
	if guest.CustomNote != nil {
		view.CustomNote = *guest.CustomNote
	}
	return view
}

// AdminListParams filters the back-office guest table.
type AdminListParams struct {
	Venue  *enums.Venue
	Search string
	Limit  int
	Cursor string
}

// ListResult is one page of guests.
type ListResult struct {
	Items      []models.Guest `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// List returns guests for the back office, newest first.
func (s *service) List(ctx context.Context, params AdminListParams) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, ListFilter{
		Venue:  params.Venue,
		Search: params.Search,
		Limit:  params.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing guests")
	}

	result := &ListResult{Items: rows, HasMore: next != nil}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// CreateInput is a new invitation.
type CreateInput struct {
	Name       string
	Venue      enums.Venue
	CustomNote string
}

// Create registers a guest and returns the row carrying the invitation id.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Guest, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid name")
	}
	if !input.Venue.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue")
	}
	note := strings.TrimSpace(input.CustomNote)
	if len(note) > maxNoteLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom_note is too long")
	}

	guest := &models.Guest{
		ID:    uuid.New(),
		Name:  name,
		Venue: input.Venue,
	}
	if note != "" {
		guest.CustomNote = &note
	}

	created, err := s.repo.Create(ctx, guest)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating guest")
	}
	s.logg.Info(s.logg.WithGuestID(ctx, created.ID.String()), "guest created")
	return created, nil
}

// UpdateInput patches a guest; nil pointers leave fields alone.
type UpdateInput struct {
	Name       *string
	Venue      *enums.Venue
	CustomNote *string
}

// Update edits a guest and invalidates the cached invitation.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Guest, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxNameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid name")
		}
		updates["name"] = name
	}
	if input.Venue != nil {
		if !input.Venue.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue")
		}
		updates["venue"] = *input.Venue
	}
	if input.CustomNote != nil {
		note := strings.TrimSpace(*input.CustomNote)
		if len(note) > maxNoteLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "custom_note is too long")
		}
		updates["custom_note"] = note
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	guest, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "guest not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating guest")
	}

	s.invalidate(ctx, id)
	return guest, nil
}

// Delete removes a guest and invalidates the cached invitation.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "guest not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting guest")
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache.Del(ctx, s.cache.GuestKey(id.String())); err != nil {
		s.logg.Warn(s.logg.WithGuestID(ctx, id.String()), "guest cache invalidation failed")
	}
}
