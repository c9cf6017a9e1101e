package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
)

type sessionReaper interface {
	ReapExpired(now time.Time) int
}

// SortSessionReaperJobParams configure the reorder session reaper.
type SortSessionReaperJobParams struct {
	Logger *logger.Logger
	Store  sessionReaper
}

// NewSortSessionReaperJob drops reorder sessions whose TTL has lapsed. Unsaved
// changes in those sessions are gone for good; the media keep their last saved
// order.
func NewSortSessionReaperJob(params SortSessionReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &sortSessionReaperJob{
		logg:  params.Logger,
		store: params.Store,
		now:   time.Now,
	}, nil
}

type sortSessionReaperJob struct {
	logg  *logger.Logger
	store sessionReaper
	now   func() time.Time
}

func (j *sortSessionReaperJob) Name() string { return "sort-session-reaper" }

func (j *sortSessionReaperJob) Run(ctx context.Context) error {
	reaped := j.store.ReapExpired(j.now().UTC())
	logCtx := j.logg.WithField(ctx, "sessions_reaped", reaped)
	j.logg.Info(logCtx, "expired sort sessions reaped")
	return nil
}
