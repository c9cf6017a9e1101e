package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minhngo-dev/thiepcuoi-backend/api/routes"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/auth"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/cron"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/gallery"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/guests"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/rsvp"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/sortsession"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/auth/session"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/metrics"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/migrate"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/redis"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		AdminRepo:      auth.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		RateLimiter:    redisClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		RateLimits:     cfg.AuthRateLimit,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	sessions := sortsession.NewStore(cfg.SortSession.TTL, cfg.SortSession.MaxHistory)

	galleryService, err := gallery.NewService(
		gallery.NewRepository(dbClient.DB()),
		gcsClient,
		dbClient,
		outboxService,
		sessions,
		cfg.GCS.BucketName,
		cfg.Media,
		cfg.GCS.DownloadURLExpiry,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create gallery service", err)
		os.Exit(1)
	}

	guestsRepo := guests.NewRepository(dbClient.DB())
	guestsService, err := guests.NewService(guestsRepo, redisClient, cfg.Guests.CacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create guests service", err)
		os.Exit(1)
	}

	rsvpService, err := rsvp.NewService(
		rsvp.NewRepository(dbClient.DB()),
		guestsRepo,
		dbClient,
		outboxService,
		cfg.RSVP.MaxPartySize,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create rsvp service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	// Sort sessions live in this process, so their reaper has to run here
	// rather than in the cron worker.
	reaper, err := cron.NewSortSessionReaperJob(cron.SortSessionReaperJobParams{
		Logger: logg,
		Store:  sessions,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sort session reaper", err)
		os.Exit(1)
	}
	reaperService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reaper),
		Lock:     cron.LocalLock{},
		Metrics:  metrics.NewCronJobMetrics(registry),
		Interval: 15 * time.Minute,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reaper service", err)
		os.Exit(1)
	}
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go func() {
		if err := reaperService.Run(reaperCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(reaperCtx, "sort session reaper stopped unexpectedly", err)
		}
	}()

	handler := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		GCS:            gcsClient,
		SessionChecker: sessionManager,
		AuthService:    authService,
		GalleryService: galleryService,
		RSVPService:    rsvpService,
		GuestsService:  guestsService,
		HTTPMetrics:    httpMetrics,
		Registry:       registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
