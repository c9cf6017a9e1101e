package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
)

const defaultPendingMaxAge = 24 * time.Hour

type pendingMediaCleaner interface {
	CleanupPending(ctx context.Context, maxAge time.Duration) (int, error)
}

// PendingMediaCleanupJobParams configure the stale upload sweeper.
type PendingMediaCleanupJobParams struct {
	Logger  *logger.Logger
	Gallery pendingMediaCleaner
	MaxAge  time.Duration
}

// NewPendingMediaCleanupJob removes media rows stuck in pending together with
// whatever made it to storage before the upload died.
func NewPendingMediaCleanupJob(params PendingMediaCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Gallery == nil {
		return nil, fmt.Errorf("gallery service required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultPendingMaxAge
	}
	return &pendingMediaCleanupJob{
		logg:    params.Logger,
		gallery: params.Gallery,
		maxAge:  maxAge,
	}, nil
}

type pendingMediaCleanupJob struct {
	logg    *logger.Logger
	gallery pendingMediaCleaner
	maxAge  time.Duration
}

func (j *pendingMediaCleanupJob) Name() string { return "pending-media-cleanup" }

func (j *pendingMediaCleanupJob) Run(ctx context.Context) error {
	removed, err := j.gallery.CleanupPending(ctx, j.maxAge)
	if err != nil {
		return fmt.Errorf("pending media cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"max_age":       j.maxAge.String(),
		"media_removed": removed,
	})
	j.logg.Info(logCtx, "pending media cleanup complete")
	return nil
}
