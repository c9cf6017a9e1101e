package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/minhngo-dev/thiepcuoi-backend/api/controllers"
	"github.com/minhngo-dev/thiepcuoi-backend/api/middleware"
	"github.com/minhngo-dev/thiepcuoi-backend/api/responses"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/auth"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/gallery"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/guests"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/rsvp"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/auth/session"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db"
	pkgerrors "github.com/minhngo-dev/thiepcuoi-backend/pkg/errors"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/metrics"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/redis"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/storage/gcs"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	GCS            gcs.Pinger
	SessionChecker session.AccessSessionChecker
	AuthService    auth.Service
	GalleryService gallery.Service
	RSVPService    rsvp.Service
	GuestsService  guests.Service
	HTTPMetrics    *metrics.HTTPMetrics
	Registry       *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	rsvpPolicy := middleware.NewIPRateLimitPolicy(
		"rsvp",
		cfg.AuthRateLimit.RSVPWindow,
		cfg.AuthRateLimit.RSVPIPLimit,
	)

	// Assign the concrete client through typed variables so a nil client
	// stays a nil interface and the middleware nil checks keep working.
	var redisPinger redis.Pinger
	var idemStore redis.IdempotencyStore
	var limiterStore middleware.RateLimiterStore
	if deps.Redis != nil {
		redisPinger = deps.Redis
		idemStore = deps.Redis
		limiterStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger, deps.GCS))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/gallery", controllers.PublicGallery(deps.GalleryService, logg))
		r.Get("/invitations/{guestID}", controllers.Invitation(deps.GuestsService, logg))
		r.With(
			middleware.IPRateLimit(rsvpPolicy, limiterStore, logg),
			middleware.Idempotency(idemStore, logg),
		).Post("/rsvp", controllers.RSVPSubmit(deps.RSVPService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Login throttling lives in the auth service so the email and
			// IP windows share one code path.
			r.Post("/login", controllers.AuthLogin(deps.AuthService, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
				r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
				r.Get("/me", controllers.AuthMe(deps.AuthService, logg))
				r.Post("/change-password", controllers.AuthChangePassword(deps.AuthService, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Route("/gallery", func(r chi.Router) {
				r.Get("/", controllers.GalleryAdminList(deps.GalleryService, logg))
				// Video uploads can take a while on wedding-venue wifi;
				// cap them instead of holding the connection forever.
				r.Method(http.MethodPost, "/media", http.TimeoutHandler(
					controllers.GalleryUpload(deps.GalleryService, cfg.Media, logg),
					cfg.Media.UploadTimeout,
					responses.ErrorBody(pkgerrors.CodeTimeout),
				))
				r.Get("/media/{mediaID}", controllers.GalleryGet(deps.GalleryService, logg))
				r.Patch("/media/{mediaID}", controllers.GalleryUpdate(deps.GalleryService, logg))
				r.Delete("/media/{mediaID}", controllers.GalleryDeleteOne(deps.GalleryService, logg))
				r.Post("/media/delete", controllers.GalleryDelete(deps.GalleryService, logg))
				r.Put("/order", controllers.GalleryReorder(deps.GalleryService, logg))
			})

			r.Route("/sort-sessions", func(r chi.Router) {
				r.Post("/", controllers.SortSessionStart(deps.GalleryService, logg))
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", controllers.SortSessionGet(deps.GalleryService, logg))
					r.Get("/history", controllers.SortSessionHistory(deps.GalleryService, logg))
					r.Post("/operations", controllers.SortSessionApply(deps.GalleryService, logg))
					r.Post("/drag", controllers.SortSessionDragStart(deps.GalleryService, logg))
					r.Post("/drop", controllers.SortSessionDrop(deps.GalleryService, logg))
					r.Post("/drag/cancel", controllers.SortSessionDragCancel(deps.GalleryService, logg))
					r.Post("/undo", controllers.SortSessionUndo(deps.GalleryService, logg))
					r.Post("/redo", controllers.SortSessionRedo(deps.GalleryService, logg))
					r.Put("/selection", controllers.SortSessionSelection(deps.GalleryService, logg))
					r.Put("/autosave", controllers.SortSessionAutoSave(deps.GalleryService, logg))
					r.Post("/save", controllers.SortSessionSave(deps.GalleryService, logg))
					r.Delete("/", controllers.SortSessionEnd(deps.GalleryService, logg))
				})
			})

			r.Route("/rsvp", func(r chi.Router) {
				r.Get("/", controllers.RSVPAdminList(deps.RSVPService, logg))
				r.Get("/summary", controllers.RSVPSummary(deps.RSVPService, logg))
				r.Get("/export", controllers.RSVPExport(deps.RSVPService, logg))
				r.Patch("/{rsvpID}", controllers.RSVPUpdate(deps.RSVPService, logg))
				r.Delete("/{rsvpID}", controllers.RSVPDelete(deps.RSVPService, logg))
			})

			r.Route("/guests", func(r chi.Router) {
				r.Get("/", controllers.GuestsList(deps.GuestsService, logg))
				r.Post("/", controllers.GuestCreate(deps.GuestsService, logg))
				r.Patch("/{guestID}", controllers.GuestUpdate(deps.GuestsService, logg))
				r.Delete("/{guestID}", controllers.GuestDelete(deps.GuestsService, logg))
			})
		})
	})

	return r
}
