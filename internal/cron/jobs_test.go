package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/rsvp"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
)

func cronTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}

type fakeSessionStore struct {
	reaped  int
	lastNow time.Time
}

func (f *fakeSessionStore) ReapExpired(now time.Time) int {
	f.lastNow = now
	return f.reaped
}

func TestSortSessionReaperJob(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := &fakeSessionStore{reaped: 3}
	jobIface, err := NewSortSessionReaperJob(SortSessionReaperJobParams{
		Logger: cronTestLogger(),
		Store:  store,
	})
	if err != nil {
		t.Fatalf("NewSortSessionReaperJob: %v", err)
	}
	job := jobIface.(*sortSessionReaperJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !store.lastNow.Equal(now) {
		t.Fatalf("expected reap at %s, got %s", now, store.lastNow)
	}
}

type fakeGalleryCleaner struct {
	lastMaxAge time.Duration
	removed    int
	err        error
}

func (f *fakeGalleryCleaner) CleanupPending(ctx context.Context, maxAge time.Duration) (int, error) {
	f.lastMaxAge = maxAge
	if f.err != nil {
		return 0, f.err
	}
	return f.removed, nil
}

func TestPendingMediaCleanupJob(t *testing.T) {
	cleaner := &fakeGalleryCleaner{removed: 2}
	job, err := NewPendingMediaCleanupJob(PendingMediaCleanupJobParams{
		Logger:  cronTestLogger(),
		Gallery: cleaner,
		MaxAge:  6 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewPendingMediaCleanupJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cleaner.lastMaxAge != 6*time.Hour {
		t.Fatalf("expected configured max age, got %s", cleaner.lastMaxAge)
	}
}

func TestPendingMediaCleanupJobDefaultsMaxAge(t *testing.T) {
	cleaner := &fakeGalleryCleaner{}
	job, err := NewPendingMediaCleanupJob(PendingMediaCleanupJobParams{
		Logger:  cronTestLogger(),
		Gallery: cleaner,
	})
	if err != nil {
		t.Fatalf("NewPendingMediaCleanupJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cleaner.lastMaxAge != defaultPendingMaxAge {
		t.Fatalf("expected default max age, got %s", cleaner.lastMaxAge)
	}
}

func TestPendingMediaCleanupJobPropagatesErrors(t *testing.T) {
	cleaner := &fakeGalleryCleaner{err: errors.New("boom")}
	job, err := NewPendingMediaCleanupJob(PendingMediaCleanupJobParams{
		Logger:  cronTestLogger(),
		Gallery: cleaner,
	})
	if err != nil {
		t.Fatalf("NewPendingMediaCleanupJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeOutboxRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
}

func (f *fakeOutboxRepo) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

func TestOutboxRetentionJobCutoff(t *testing.T) {
	now := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRepo{deleted: 17}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     cronTestLogger(),
		Repository: repo,
		Retention:  7,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	expected := now.Add(-7 * 24 * time.Hour)
	if !repo.lastCutoff.Equal(expected) {
		t.Fatalf("expected cutoff %s, got %s", expected, repo.lastCutoff)
	}
}

func TestOutboxRetentionJobPropagatesErrors(t *testing.T) {
	repo := &fakeOutboxRepo{err: errors.New("boom")}
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     cronTestLogger(),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeSummarizer struct {
	rows []rsvp.SummaryRow
	err  error
}

func (f *fakeSummarizer) Summary(ctx context.Context) ([]rsvp.SummaryRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func TestRSVPDigestJob(t *testing.T) {
	summarizer := &fakeSummarizer{rows: []rsvp.SummaryRow{
		{Venue: enums.VenueGroom, Attendance: enums.AttendanceYes, Replies: 2, Guests: 5},
		{Venue: enums.VenueBride, Attendance: enums.AttendanceNo, Replies: 1, Guests: 1},
	}}
	job, err := NewRSVPDigestJob(RSVPDigestJobParams{
		Logger: cronTestLogger(),
		RSVP:   summarizer,
	})
	if err != nil {
		t.Fatalf("NewRSVPDigestJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRSVPDigestJobPropagatesErrors(t *testing.T) {
	job, err := NewRSVPDigestJob(RSVPDigestJobParams{
		Logger: cronTestLogger(),
		RSVP:   &fakeSummarizer{err: errors.New("boom")},
	})
	if err != nil {
		t.Fatalf("NewRSVPDigestJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
