package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/api/middleware"
	"github.com/minhngo-dev/thiepcuoi-backend/api/responses"
	"github.com/minhngo-dev/thiepcuoi-backend/api/validators"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/gallery"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
)

// multipartMemoryLimit keeps small form fields in memory; file parts above
// this spill to temp files.
const multipartMemoryLimit = 10 << 20

// GalleryUpload accepts one multipart upload from the back office. The file
// part is named "file"; category, title and alt_text ride alongside as
// form fields.
func GalleryUpload(svc gallery.Service, mediaCfg config.MediaConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		maxBytes := mediaCfg.VideoMaxBytes + multipartMemoryLimit
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart request"))
			return
		}

		category, err := enums.ParseMediaCategory(strings.TrimSpace(r.FormValue("category")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file part required"))
			return
		}
		defer func() { _ = file.Close() }()

		input := gallery.UploadInput{
			Category:  category,
			Title:     r.FormValue("title"),
			AltText:   r.FormValue("alt_text"),
			FileName:  header.Filename,
			MimeType:  header.Header.Get("Content-Type"),
			SizeBytes: header.Size,
			Body:      file,
		}

		media, err := svc.Upload(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, media)
	}
}

// PublicGallery serves the visitor-facing gallery in display order.
func PublicGallery(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		params := gallery.PublicListParams{
			Cursor: r.URL.Query().Get("cursor"),
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, parseErr := enums.ParseMediaCategory(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category"))
				return
			}
			params.Category = &category
		}

		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Featured = featured

		result, err := svc.ListPublic(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// GalleryAdminList serves the back-office media table, any status.
func GalleryAdminList(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		params := gallery.AdminListParams{
			Search: validators.SanitizeString(r.URL.Query().Get("search"), 200),
			Cursor: r.URL.Query().Get("cursor"),
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		if raw := strings.TrimSpace(r.URL.Query().Get("category")); raw != "" {
			category, parseErr := enums.ParseMediaCategory(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid category"))
				return
			}
			params.Category = &category
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseMediaStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status"))
				return
			}
			params.Status = &status
		}

		featured, err := validators.ParseQueryBool(r, "featured")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Featured = featured

		result, err := svc.ListAdmin(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func GalleryGet(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "mediaID"), "mediaID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

type galleryUpdateRequest struct {
	Title    *string `json:"title"`
	AltText  *string `json:"alt_text"`
	Category *string `json:"category"`
	Featured *bool   `json:"featured"`
}

func (req galleryUpdateRequest) toInput() (gallery.UpdateMetaInput, error) {
	input := gallery.UpdateMetaInput{
		Title:    req.Title,
		AltText:  req.AltText,
		Featured: req.Featured,
	}
	if req.Category != nil {
		category, err := enums.ParseMediaCategory(strings.TrimSpace(*req.Category))
		if err != nil {
			return gallery.UpdateMetaInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid category")
		}
		input.Category = &category
	}
	return input, nil
}

func GalleryUpdate(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "mediaID"), "mediaID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body galleryUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		media, err := svc.UpdateMeta(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, media)
	}
}

type galleryDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// GalleryDelete removes a batch of media. Storage objects are cleaned up
// asynchronously through the deletion events queued in the same transaction.
func GalleryDelete(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body galleryDeleteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, body.IDs); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": len(body.IDs)})
	}
}

// GalleryDeleteOne removes a single media item by path ID.
func GalleryDeleteOne(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "mediaID"), "mediaID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), actor, []uuid.UUID{id}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"deleted": 1})
	}
}

type galleryReorderRequest struct {
	Items []gallery.OrderAssignment `json:"items" validate:"required,min=1"`
}

// GalleryReorder persists an explicit full ordering in one shot, without
// going through a sort session.
func GalleryReorder(svc gallery.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gallery service unavailable"))
			return
		}

		var body galleryReorderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reorder(r.Context(), body.Items); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "reordered"})
	}
}

func actorFromRequest(r *http.Request) (outbox.ActorRef, error) {
	adminID, err := adminIDFromRequest(r)
	if err != nil {
		return outbox.ActorRef{}, err
	}
	return outbox.ActorRef{
		AdminID: adminID,
		Email:   middleware.AdminEmailFromContext(r.Context()),
	}, nil
}
