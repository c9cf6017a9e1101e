package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/api/responses"
	"github.com/minhngo-dev/thiepcuoi-backend/api/validators"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/gallery"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/ordering"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/sortsession"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
)

type sortItemView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
}

type dragStateView struct {
	Phase       string    `json:"phase"`
	ItemID      uuid.UUID `json:"item_id,omitempty"`
	TargetIndex int       `json:"target_index"`
}

type sortSessionView struct {
	ID             uuid.UUID      `json:"id"`
	Items          []sortItemView `json:"items"`
	Selection      []uuid.UUID    `json:"selection"`
	Drag           dragStateView  `json:"drag"`
	PendingChanges bool           `json:"pending_changes"`
	CanUndo        bool           `json:"can_undo"`
	CanRedo        bool           `json:"can_redo"`
	HistorySize    int            `json:"history_size"`
	IsSaving       bool           `json:"is_saving"`
	AutoSave       bool           `json:"auto_save"`
	LastError      string         `json:"last_error,omitempty"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

type historyEntryView struct {
	Timestamp   time.Time      `json:"timestamp"`
	Operation   string         `json:"operation"`
	Description string         `json:"description"`
	Order       []sortItemView `json:"order"`
}

func itemViews(items []ordering.Item) []sortItemView {
	views := make([]sortItemView, 0, len(items))
	for _, item := range items {
		views = append(views, sortItemView{
			ID:           item.ID,
			Name:         item.Name,
			DisplayOrder: item.DisplayOrder,
		})
	}
	return views
}

func sessionView(state sortsession.State) sortSessionView {
	return sortSessionView{
		ID:        state.ID,
		Items:     itemViews(state.Current),
		Selection: state.Selection,
		Drag: dragStateView{
			Phase:       string(state.Drag.Phase),
			ItemID:      state.Drag.ItemID,
			TargetIndex: state.Drag.TargetIndex,
		},
		PendingChanges: state.PendingChanges,
		CanUndo:        state.CanUndo,
		CanRedo:        state.CanRedo,
		HistorySize:    state.HistorySize,
		IsSaving:       state.IsSaving,
		AutoSave:       state.AutoSave,
		LastError:      state.LastError,
		ExpiresAt:      state.ExpiresAt,
	}
}

func sessionIDFromRequest(r *http.Request) (uuid.UUID, error) {
	return validators.ParsePathUUID(chi.URLParam(r, "sessionID"), "sessionID")
}

func writeSessionState(w http.ResponseWriter, r *http.Request, logg *logger.Logger, state sortsession.State, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, sessionView(state))
}

// SortSessionStart opens a reorder workspace seeded from the current order.
func SortSessionStart(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}
		state, err := svc.StartSortSession(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionView(state))
	}
}

func SortSessionGet(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.GetSortSession(id)
		writeSessionState(w, r, logg, state, err)
	}
}

func SortSessionHistory(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshots, err := svc.SortSessionHistory(id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries := make([]historyEntryView, 0, len(snapshots))
		for _, snap := range snapshots {
			entries = append(entries, historyEntryView{
				Timestamp:   snap.Timestamp,
				Operation:   string(snap.Operation),
				Description: snap.Description,
				Order:       itemViews(snap.Order),
			})
		}
		responses.WriteSuccess(w, map[string]any{"history": entries})
	}
}

type sortOperationRequest struct {
	Operation string `json:"operation" validate:"required"`
	Direction string `json:"direction"`
}

// SortSessionApply runs one bulk sort operation inside the session.
func SortSessionApply(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sortOperationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		op, err := enums.ParseSortOperation(strings.TrimSpace(body.Operation))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid operation"))
			return
		}

		input := gallery.SortOperationInput{Operation: op}
		switch strings.TrimSpace(body.Direction) {
		case "", string(ordering.Ascending):
			input.Direction = ordering.Ascending
		case string(ordering.Descending):
			input.Direction = ordering.Descending
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid direction"))
			return
		}

		state, err := svc.ApplySortOperation(r.Context(), id, input)
		writeSessionState(w, r, logg, state, err)
	}
}

type dragStartRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

func SortSessionDragStart(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body dragStartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.StartDrag(id, body.ItemID)
		writeSessionState(w, r, logg, state, err)
	}
}

type dropRequest struct {
	TargetIndex int `json:"target_index"`
}

func SortSessionDrop(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body dropRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.Drop(r.Context(), id, body.TargetIndex)
		writeSessionState(w, r, logg, state, err)
	}
}

func SortSessionDragCancel(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.CancelDrag(id)
		writeSessionState(w, r, logg, state, err)
	}
}

func SortSessionUndo(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.Undo(id)
		writeSessionState(w, r, logg, state, err)
	}
}

func SortSessionRedo(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.Redo(id)
		writeSessionState(w, r, logg, state, err)
	}
}

type selectionRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func SortSessionSelection(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body selectionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.SetSelection(id, body.IDs)
		writeSessionState(w, r, logg, state, err)
	}
}

type autoSaveRequest struct {
	Enabled bool `json:"enabled"`
}

func SortSessionAutoSave(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body autoSaveRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.SetAutoSave(id, body.Enabled)
		writeSessionState(w, r, logg, state, err)
	}
}

// SortSessionSave persists the working order to the gallery.
func SortSessionSave(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		state, err := svc.SaveOrder(r.Context(), id)
		writeSessionState(w, r, logg, state, err)
	}
}

// SortSessionEnd discards the workspace. Unsaved changes are dropped.
func SortSessionEnd(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := sessionIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		svc.EndSortSession(id)
		responses.WriteSuccess(w, map[string]string{"status": "ended"})
	}
}
