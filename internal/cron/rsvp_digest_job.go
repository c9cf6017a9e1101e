package cron

import (
	"context"
	"fmt"

	"github.com/minhngo-dev/thiepcuoi-backend/internal/rsvp"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/logger"
)

type rsvpSummarizer interface {
	Summary(ctx context.Context) ([]rsvp.SummaryRow, error)
}

// RSVPDigestJobParams configure the reply digest.
type RSVPDigestJobParams struct {
	Logger *logger.Logger
	RSVP   rsvpSummarizer
}

// NewRSVPDigestJob logs a per-venue headcount digest so the couple can follow
// replies from the worker logs without opening the back office.
func NewRSVPDigestJob(params RSVPDigestJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.RSVP == nil {
		return nil, fmt.Errorf("rsvp service required")
	}
	return &rsvpDigestJob{
		logg: params.Logger,
		rsvp: params.RSVP,
	}, nil
}

type rsvpDigestJob struct {
	logg *logger.Logger
	rsvp rsvpSummarizer
}

func (j *rsvpDigestJob) Name() string { return "rsvp-digest" }

func (j *rsvpDigestJob) Run(ctx context.Context) error {
	rows, err := j.rsvp.Summary(ctx)
	if err != nil {
		return fmt.Errorf("rsvp digest: %w", err)
	}

	var totalReplies, attendingGuests int64
	fields := map[string]any{}
	for _, row := range rows {
		totalReplies += row.Replies
		if row.Attendance == enums.AttendanceYes {
			attendingGuests += row.Guests
		}
		key := fmt.Sprintf("%s_%s", row.Venue, row.Attendance)
		fields[key+"_replies"] = row.Replies
		fields[key+"_guests"] = row.Guests
	}
	fields["total_replies"] = totalReplies
	fields["attending_guests"] = attendingGuests

	j.logg.Info(j.logg.WithFields(ctx, fields), "rsvp digest")
	return nil
}
