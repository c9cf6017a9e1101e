package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
)

// RSVP stores one submitted reply from the public invitation form.
type RSVP struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GuestID    *uuid.UUID       `gorm:"column:guest_id;type:uuid"`
	Name       string           `gorm:"column:name;not null"`
	Venue      enums.Venue      `gorm:"column:venue;type:venue;not null"`
	Attendance enums.Attendance `gorm:"column:attendance;type:attendance;not null"`
	PartySize  int              `gorm:"column:party_size;not null;default:1"`
	Message    *string          `gorm:"column:message"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
