package gallery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
)

// Repository exposes gallery media persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a gallery repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a media record.
func (r *Repository) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if err := r.db.WithContext(ctx).Create(media).Error; err != nil {
		return nil, err
	}
	return media, nil
}

// FindByID retrieves a media record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListOrdered returns every media row sorted by display order.
func (r *Repository) ListOrdered(ctx context.Context) ([]models.Media, error) {
	var rows []models.Media
	err := r.db.WithContext(ctx).
		Order("display_order ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ListFilter configures admin and public listing.
type ListFilter struct {
	Category   *enums.MediaCategory
	Status     *enums.MediaStatus
	Featured   *bool
	Search     string
	AfterOrder int
	AfterID    uuid.UUID
	Limit      int
}

// List returns rows ordered by display order with keyset pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Media, error) {
	query := r.db.WithContext(ctx).Model(&models.Media{})
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(title) LIKE ? OR lower(file_name) LIKE ?", pattern, pattern)
	}
	if filter.AfterOrder > 0 {
		query = query.Where(
			"(display_order > ?) OR (display_order = ? AND id > ?)",
			filter.AfterOrder, filter.AfterOrder, filter.AfterID,
		)
	}
	var rows []models.Media
	err := query.
		Order("display_order ASC").
		Order("id ASC").
		Limit(filter.Limit).
		Find(&rows).Error
	return rows, err
}

// MaxDisplayOrder returns the highest display order, 0 for an empty gallery.
func (r *Repository) MaxDisplayOrder(ctx context.Context) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Select("MAX(display_order)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// UpdateDisplayOrders applies the given id -> order assignments inside tx.
func (r *Repository) UpdateDisplayOrders(tx *gorm.DB, orders map[uuid.UUID]int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	for id, order := range orders {
		result := tx.Model(&models.Media{}).
			Where("id = ?", id).
			Update("display_order", order)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// RenumberTx rewrites display orders to the sequence 1..n inside tx.
func (r *Repository) RenumberTx(tx *gorm.DB) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	var rows []models.Media
	if err := tx.Order("display_order ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return err
	}
	orders := map[uuid.UUID]int{}
	for i, row := range rows {
		if row.DisplayOrder != i+1 {
			orders[row.ID] = i + 1
		}
	}
	if len(orders) == 0 {
		return nil
	}
	return r.UpdateDisplayOrders(tx, orders)
}

// UpdateMeta patches the editable metadata fields.
func (r *Repository) UpdateMeta(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.Media, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// MarkReady flips a pending row to ready and records the upload time.
func (r *Repository) MarkReady(ctx context.Context, id uuid.UUID, uploadedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      enums.MediaStatusReady,
			"uploaded_at": uploadedAt,
		}).Error
}

// DeleteTx removes rows by id inside tx and returns the deleted rows.
func (r *Repository) DeleteTx(tx *gorm.DB, ids []uuid.UUID) ([]models.Media, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var rows []models.Media
	if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Media{}).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes a single media record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Media{}).Error
}

// ListPendingOlderThan returns pending rows created before the cutoff.
func (r *Repository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.Media, error) {
	var rows []models.Media
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.MediaStatusPending, cutoff).
		Find(&rows).Error
	return rows, err
}
