package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/minhngo-dev/thiepcuoi-backend/api/responses"
	"github.com/minhngo-dev/thiepcuoi-backend/api/validators"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/guests"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
)

// Invitation serves the personalized invitation for one guest link.
func Invitation(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "guestID"), "guestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Invitation(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// GuestsList serves the back-office guest table.
func GuestsList(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}

		params := guests.AdminListParams{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 200),
			Cursor: r.URL.Query().Get("cursor"),
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		if raw := strings.TrimSpace(r.URL.Query().Get("venue")); raw != "" {
			venue, parseErr := enums.ParseVenue(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue"))
				return
			}
			params.Venue = &venue
		}

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type guestCreateRequest struct {
	Name       string `json:"name" validate:"required"`
	Venue      string `json:"venue" validate:"required"`
	CustomNote string `json:"custom_note"`
}

func GuestCreate(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}

		var body guestCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		venue, err := enums.ParseVenue(strings.TrimSpace(body.Venue))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue"))
			return
		}

		guest, err := svc.Create(r.Context(), guests.CreateInput{
			Name:       body.Name,
			Venue:      venue,
			CustomNote: body.CustomNote,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, guest)
	}
}

type guestUpdateRequest struct {
	Name       *string `json:"name"`
	Venue      *string `json:"venue"`
	CustomNote *string `json:"custom_note"`
}

func GuestUpdate(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "guestID"), "guestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body guestUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := guests.UpdateInput{
			Name:       body.Name,
			CustomNote: body.CustomNote,
		}
		if body.Venue != nil {
			venue, parseErr := enums.ParseVenue(strings.TrimSpace(*body.Venue))
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid venue"))
				return
			}
			input.Venue = &venue
		}

		guest, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, guest)
	}
}

func GuestDelete(svc guests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "guest service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "guestID"), "guestID")
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
