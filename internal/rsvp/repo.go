package rsvp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
)

// Sortable columns for the admin listing. Anything else falls back to the
// default so raw input never reaches the ORDER BY clause.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"venue":      "venue",
	"attendance": "attendance",
	"party_size": "party_size",
}

const defaultSortColumn = "created_at"

// Repository exposes RSVP persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an RSVP repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx persists a reply inside tx.
func (r *Repository) CreateTx(tx *gorm.DB, reply *models.RSVP) (*models.RSVP, error) {
	if err := tx.Create(reply).Error; err != nil {
		return nil, err
	}
	return reply, nil
}

// FindByID retrieves one reply.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.RSVP, error) {
	var reply models.RSVP
	if err := r.db.WithContext(ctx).First(&reply, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reply, nil
}

// ListFilter configures the admin listing.
type ListFilter struct {
	Venue      *enums.Venue
	Attendance *enums.Attendance
	Search     string
	SortBy     string
	Descending bool
	Limit      int
	Offset     int
}

// List returns one page of replies plus the total count for the filter.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.RSVP, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.RSVP{})
	if filter.Venue != nil {
		query = query.Where("venue = ?", *filter.Venue)
	}
	if filter.Attendance != nil {
		query = query.Where("attendance = ?", *filter.Attendance)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(name) LIKE ? OR lower(coalesce(message, '')) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = defaultSortColumn
	}
	direction := "ASC"
	if filter.Descending || (filter.SortBy == "" && column == defaultSortColumn) {
		direction = "DESC"
	}

	var rows []models.RSVP
	err := query.
		Order(column + " " + direction).
		Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	return rows, total, err
}

// ListAll returns every reply for the filter in the requested order, for CSV
// export.
func (r *Repository) ListAll(ctx context.Context, filter ListFilter) ([]models.RSVP, error) {
	filter.Limit = -1
	filter.Offset = 0
	rows, _, err := r.List(ctx, filter)
	return rows, err
}

// Update patches the supplied columns.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (*models.RSVP, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RSVP{}).
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

// Delete removes one reply.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RSVP{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SummaryRow is one attendance bucket per venue.
type SummaryRow struct {
	Venue      enums.Venue      `gorm:"column:venue"`
	Attendance enums.Attendance `gorm:"column:attendance"`
	Replies    int64            `gorm:"column:replies"`
	Guests     int64            `gorm:"column:guests"`
}

// Summary aggregates reply and headcounts per venue and attendance.
func (r *Repository) Summary(ctx context.Context) ([]SummaryRow, error) {
	var rows []SummaryRow
	err := r.db.WithContext(ctx).
		Model(&models.RSVP{}).
		Select("venue, attendance, COUNT(*) AS replies, SUM(party_size) AS guests").
		Group("venue").
		Group("attendance").
		Order("venue ASC").
		Order("attendance ASC").
		Scan(&rows).Error
	return rows, err
}
