package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
)

// Media is a gallery item shown on the public album pages. DisplayOrder is
// unique and sequential from 1 within a category.
type Media struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Category     enums.MediaCategory `gorm:"column:category;type:media_category;not null"`
	Status       enums.MediaStatus   `gorm:"column:status;type:media_status;not null;default:'pending'"`
	Title        string              `gorm:"column:title;not null"`
	AltText      *string             `gorm:"column:alt_text"`
	FileName     string              `gorm:"column:file_name;not null"`
	MimeType     string              `gorm:"column:mime_type;not null"`
	SizeBytes    int64               `gorm:"column:size_bytes;not null"`
	GCSKey       string              `gorm:"column:gcs_key;not null;unique"`
	ThumbKey     *string             `gorm:"column:thumb_key"`
	MediumKey    *string             `gorm:"column:medium_key"`
	DisplayOrder int                 `gorm:"column:display_order;not null;default:0"`
	Featured     bool                `gorm:"column:featured;not null;default:false"`
	UploadedAt   *time.Time          `gorm:"column:uploaded_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsVideo reports whether the item holds a video asset.
func (m Media) IsVideo() bool {
	return len(m.MimeType) >= 6 && m.MimeType[:6] == "video/"
}
