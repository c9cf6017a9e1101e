package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/api/responses"
	"github.com/minhngo-dev/thiepcuoi-backend/api/validators"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/rsvp"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
)

type rsvpSubmitRequest struct {
	GuestID    *uuid.UUID `json:"guest_id"`
	Name       string     `json:"name" validate:"required"`
	Venue      string     `json:"venue" validate:"required"`
	Attendance string     `json:"attendance" validate:"required"`
	PartySize  int        `json:"party_size" validate:"required,min=1"`
	Message    string     `json:"message"`
}

func (req rsvpSubmitRequest) toInput() (rsvp.SubmitInput, error) {
	venue, err := enums.ParseVenue(strings.TrimSpace(req.Venue))
	if err != nil {
		return rsvp.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue")
	}
	attendance, err := enums.ParseAttendance(strings.TrimSpace(req.Attendance))
	if err != nil {
		return rsvp.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid attendance")
	}
	return rsvp.SubmitInput{
		GuestID:    req.GuestID,
		Name:       req.Name,
		Venue:      venue,
		Attendance: attendance,
		PartySize:  req.PartySize,
		Message:    req.Message,
	}, nil
}

// RSVPSubmit accepts a reply from the public invitation page.
func RSVPSubmit(svc rsvp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rsvp service unavailable"))
			return
		}

		var body rsvpSubmitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, reply)
	}
}

func rsvpListParams(r *http.Request) (rsvp.AdminListParams, error) {
	params := rsvp.AdminListParams{
		Search:     validators.SanitizeString(r.URL.Query().Get("search"), 200),
		SortBy:     strings.TrimSpace(r.URL.Query().Get("sort_by")),
		Descending: strings.EqualFold(r.URL.Query().Get("order"), "desc"),
	}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
	if err != nil {
		return rsvp.AdminListParams{}, err
	}
	params.Limit = limit

	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
	if err != nil {
		return rsvp.AdminListParams{}, err
	}
	params.Page = page

	if raw := strings.TrimSpace(r.URL.Query().Get("venue")); raw != "" {
		venue, parseErr := enums.ParseVenue(raw)
		if parseErr != nil {
			return rsvp.AdminListParams{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue")
		}
		params.Venue = &venue
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("attendance")); raw != "" {
		attendance, parseErr := enums.ParseAttendance(raw)
		if parseErr != nil {
			return rsvp.AdminListParams{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid attendance")
		}
		params.Attendance = &attendance
	}

	return params, nil
}

// RSVPAdminList serves the back-office reply table.
func RSVPAdminList(svc rsvp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rsvp service unavailable"))
			return
		}

		params, err := rsvpListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type rsvpUpdateRequest struct {
	Name       *string `json:"name"`
	Venue      *string `json:"venue"`
	Attendance *string `json:"attendance"`
	PartySize  *int    `json:"party_size"`
	Message    *string `json:"message"`
}

func (req rsvpUpdateRequest) toInput() (rsvp.UpdateInput, error) {
	input := rsvp.UpdateInput{
		Name:      req.Name,
		PartySize: req.PartySize,
		Message:   req.Message,
	}
	if req.Venue != nil {
		venue, err := enums.ParseVenue(strings.TrimSpace(*req.Venue))
		if err != nil {
			return rsvp.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue")
		}
		input.Venue = &venue
	}
	if req.Attendance != nil {
		attendance, err := enums.ParseAttendance(strings.TrimSpace(*req.Attendance))
		if err != nil {
			return rsvp.UpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid attendance")
		}
		input.Attendance = &attendance
	}
	return input, nil
}

func RSVPUpdate(svc rsvp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rsvp service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "rsvpID"), "rsvpID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body rsvpUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, reply)
	}
}

func RSVPDelete(svc rsvp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rsvp service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "rsvpID"), "rsvpID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// RSVPExport streams the filtered reply table as a CSV download.
func RSVPExport(svc rsvp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rsvp service unavailable"))
			return
		}

		params, err := rsvpListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filename := fmt.Sprintf("rsvp-%s.csv", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

		if err := svc.ExportCSV(r.Context(), params, w); err != nil {
			// Headers are already on the wire; log instead of writing a
			// JSON error into the CSV stream.
			if logg != nil {
				logg.Error(r.Context(), "rsvp.export_failed", err)
			}
		}
	}
}

func RSVPSummary(svc rsvp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "rsvp service unavailable"))
			return
		}

		rows, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"rows": rows})
	}
}
