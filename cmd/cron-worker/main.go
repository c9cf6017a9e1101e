package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/cron"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/gallery"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/guests"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/rsvp"
	"github.com/minhngo-dev/thiepcuoi-backend/internal/sortsession"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/config"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/metrics"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/migrate"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/outbox"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/redis"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/storage/gcs"
)

const lockKeyFormat = "tc:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	galleryService, err := gallery.NewService(
		gallery.NewRepository(dbClient.DB()),
		gcsClient,
		dbClient,
		outboxService,
		sortsession.NewStore(cfg.SortSession.TTL, cfg.SortSession.MaxHistory),
		cfg.GCS.BucketName,
		cfg.Media,
		cfg.GCS.DownloadURLExpiry,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create gallery service", err)
		os.Exit(1)
	}

	rsvpService, err := rsvp.NewService(
		rsvp.NewRepository(dbClient.DB()),
		guests.NewRepository(dbClient.DB()),
		dbClient,
		outboxService,
		cfg.RSVP.MaxPartySize,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create rsvp service", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewPendingMediaCleanupJob(cron.PendingMediaCleanupJobParams{
		Logger:  logg,
		Gallery: galleryService,
		MaxAge:  cfg.Media.PendingMaxAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pending media cleanup job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	digestJob, err := cron.NewRSVPDigestJob(cron.RSVPDigestJobParams{
		Logger: logg,
		RSVP:   rsvpService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create rsvp digest job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanupJob, retentionJob, digestJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
