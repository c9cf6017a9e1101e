package rsvp

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox/payloads"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/pagination"
)

const maxNameLength = 200
const maxMessageLength = 2000

type rsvpRepository interface {
	CreateTx(tx *gorm.DB, reply *models.RSVP) (*models.RSVP, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.RSVP, error)
	List(ctx context.Context, filter ListFilter) ([]models.RSVP, int64, error)
	ListAll(ctx context.Context, filter ListFilter) ([]models.RSVP, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.RSVP, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context) ([]SummaryRow, error)
}

type guestFinder interface {
	Find(ctx context.Context, id uuid.UUID) (*models.Guest, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the public submission form and the admin reply table.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.RSVP, error)
	List(ctx context.Context, params AdminListParams) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.RSVP, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ExportCSV(ctx context.Context, params AdminListParams, w io.Writer) error
	Summary(ctx context.Context) ([]SummaryRow, error)
}

type service struct {
	repo         rsvpRepository
	guests       guestFinder
	tx           txRunner
	outbox       outboxEmitter
	logg         *logger.Logger
	maxPartySize int
}

// NewService wires the RSVP service.
func NewService(repo rsvpRepository, guests guestFinder, tx txRunner, emitter outboxEmitter, maxPartySize int, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rsvp repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if maxPartySize < 1 {
		return nil, fmt.Errorf("max party size must be at least 1")
	}
	return &service{
		repo:         repo,
		guests:       guests,
		tx:           tx,
		outbox:       emitter,
		logg:         logg,
		maxPartySize: maxPartySize,
	}, nil
}

// SubmitInput is one public form submission.
type SubmitInput struct {
	GuestID    *uuid.UUID
	Name       string
	Venue      enums.Venue
	Attendance enums.Attendance
	PartySize  int
	Message    string
}

// Submit records a public reply and queues the digest event in one
// transaction.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.RSVP, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(name) > maxNameLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is too long")
	}
	if !input.Venue.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue")
	}
	if !input.Attendance.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid attendance")
	}
	if input.PartySize < 1 || input.PartySize > s.maxPartySize {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("party_size must be between 1 and %d", s.maxPartySize))
	}
	message := strings.TrimSpace(input.Message)
	if len(message) > maxMessageLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is too long")
	}

	reply := &models.RSVP{
		ID:         uuid.New(),
		Name:       name,
		Venue:      input.Venue,
		Attendance: input.Attendance,
		PartySize:  input.PartySize,
	}
	if message != "" {
		reply.Message = &message
	}
	if input.GuestID != nil && *input.GuestID != uuid.Nil {
		// Unknown ids are dropped rather than rejected; the public form
		// still works when an invitation link is stale.
		if s.guests != nil {
			if _, err := s.guests.Find(ctx, *input.GuestID); err == nil {
				reply.GuestID = input.GuestID
			}
		}
	}

	now := time.Now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.CreateTx(tx, reply); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRSVPSubmitted,
			AggregateType: enums.AggregateRSVP,
			AggregateID:   reply.ID,
			Data: payloads.RSVPSubmittedEvent{
				RSVPID:      reply.ID,
				GuestID:     reply.GuestID,
				Name:        reply.Name,
				Venue:       reply.Venue,
				Attendance:  reply.Attendance,
				PartySize:   reply.PartySize,
				SubmittedAt: now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording rsvp")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"rsvp_id":    reply.ID.String(),
		"venue":      reply.Venue.String(),
		"attendance": reply.Attendance.String(),
		"party_size": reply.PartySize,
	})
	s.logg.Info(logCtx, "rsvp submitted")
	return reply, nil
}

// AdminListParams filters the back-office reply table.
type AdminListParams struct {
	Venue      *enums.Venue
	Attendance *enums.Attendance
	Search     string
	SortBy     string
	Descending bool
	Limit      int
	Page       int
}

// ListResult is one page of replies plus table totals.
type ListResult struct {
	Items []models.RSVP `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (p AdminListParams) toFilter() (ListFilter, int, int, error) {
	if p.SortBy != "" {
		if _, ok := sortColumns[p.SortBy]; !ok {
			return ListFilter{}, 0, 0, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("unsupported sort column %q", p.SortBy))
		}
	}
	limit := pagination.NormalizeLimit(p.Limit)
	page := p.Page
	if page < 1 {
		page = 1
	}
	return ListFilter{
		Venue:      p.Venue,
		Attendance: p.Attendance,
		Search:     p.Search,
		SortBy:     p.SortBy,
		Descending: p.Descending,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}, page, limit, nil
}

// List returns one admin table page.
func (s *service) List(ctx context.Context, params AdminListParams) (*ListResult, error) {
	filter, page, limit, err := params.toFilter()
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing rsvps")
	}
	return &ListResult{
		Items: rows,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// UpdateInput patches a reply; nil pointers leave fields alone.
type UpdateInput struct {
	Name       *string
	Venue      *enums.Venue
	Attendance *enums.Attendance
	PartySize  *int
	Message    *string
}

// Update edits a reply from the back office.
func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.RSVP, error) {
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
	if input.Attendance != nil {
		if !input.Attendance.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid attendance")
		}
		updates["attendance"] = *input.Attendance
	}
	if input.PartySize != nil {
		if *input.PartySize < 1 || *input.PartySize > s.maxPartySize {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("party_size must be between 1 and %d", s.maxPartySize))
		}
		updates["party_size"] = *input.PartySize
	}
	if input.Message != nil {
		message := strings.TrimSpace(*input.Message)
		if len(message) > maxMessageLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is too long")
		}
		updates["message"] = message
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	reply, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rsvp not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating rsvp")
	}
	return reply, nil
}

// Delete removes a reply.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "rsvp not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting rsvp")
	}
	return nil
}

var exportHeader = []string{"id", "guest_id", "name", "venue", "attendance", "party_size", "message", "created_at"}

// ExportCSV streams the filtered replies as CSV.
func (s *service) ExportCSV(ctx context.Context, params AdminListParams, w io.Writer) error {
	filter, _, _, err := params.toFilter()
	if err != nil {
		return err
	}
	rows, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing rsvps for export")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv header")
	}
	for _, row := range rows {
		guestID := ""
		if row.GuestID != nil {
			guestID = row.GuestID.String()
		}
		message := ""
		if row.Message != nil {
			message = *row.Message
		}
		record := []string{
			row.ID.String(),
			guestID,
			row.Name,
			string(row.Venue),
			string(row.Attendance),
			strconv.Itoa(row.PartySize),
			message,
			row.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing csv row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flushing csv")
	}
	return nil
}

// Summary aggregates headcounts per venue and attendance for the digest job.
func (s *service) Summary(ctx context.Context) ([]SummaryRow, error) {
	rows, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "aggregating rsvps")
	}
	return rows, nil
}
