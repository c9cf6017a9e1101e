package guests

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/pagination"
)

// Repository exposes guest persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a guest repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a guest.
func (r *Repository) Create(ctx context.Context, guest *models.Guest) (*models.Guest, error) {
	if err := r.db.WithContext(ctx).Create(guest).Error; err != nil {
		return nil, err
	}
	return guest, nil
}

// Find retrieves one guest.
func (r *Repository) Find(ctx context.Context, id uuid.UUID) (*models.Guest, error) {
	var guest models.Guest
	if err := r.db.WithContext(ctx).First(&guest, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &guest, nil
}

// ListFilter configures the admin guest listing.
type ListFilter struct {
	Venue  *enums.Venue
	Search string
	Limit  int
	Cursor *pagination.Cursor
}

// List returns guests newest first with keyset pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Guest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(filter.Limit)
	normalized := pagination.NormalizeLimit(filter.Limit)

	query := r.db.WithContext(ctx).Model(&models.Guest{})
	if filter.Venue != nil {
		query = query.Where("venue = ?", *filter.Venue)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(name) LIKE ?", pattern)
	}
	if filter.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var guests []models.Guest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&guests).Error; err != nil {
		return nil, nil, err
	}

	if len(guests) > normalized {
		guests = guests[:normalized]
		last := guests[normalized-1]
		return guests, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return guests, nil, nil
}

// Update patches the supplied columns.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Guest, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Guest{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.Find(ctx, id)
}

// Delete removes a guest. RSVPs keep their reply but lose the link
// (FK is ON DELETE SET NULL).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Guest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
