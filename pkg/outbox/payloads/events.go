package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
)

// MediaDeletedEvent tells the storage worker which objects to purge after an
// admin removes a gallery item. The database row is gone by the time this
// event is delivered, so keys travel inline.
type MediaDeletedEvent struct {
	MediaID   uuid.UUID           `json:"media_id"`
	Category  enums.MediaCategory `json:"category"`
	GCSKey    string              `json:"gcs_key"`
	ThumbKey  string              `json:"thumb_key,omitempty"`
	MediumKey string              `json:"medium_key,omitempty"`
	DeletedAt time.Time           `json:"deleted_at"`
}

// RSVPSubmittedEvent records a public form submission for downstream digests.
type RSVPSubmittedEvent struct {
	RSVPID      uuid.UUID        `json:"rsvp_id"`
	GuestID     *uuid.UUID       `json:"guest_id,omitempty"`
	Name        string           `json:"name"`
	Venue       enums.Venue      `json:"venue"`
	Attendance  enums.Attendance `json:"attendance"`
	PartySize   int              `json:"party_size"`
	SubmittedAt time.Time        `json:"submitted_at"`
}
