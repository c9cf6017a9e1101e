package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
)

// Guest is an invited guest with a personal invitation link.
type Guest struct {
	ID         uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name       string      `gorm:"column:name;not null"`
	Venue      enums.Venue `gorm:"column:venue;type:venue;not null"`
	CustomNote *string     `gorm:"column:custom_note"`
	CreatedAt  time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
