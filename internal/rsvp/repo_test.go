package rsvp

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/db/models"
	"github.com/minhngo-dev/thiepcuoi-backend/pkg/enums"
)

func setupRSVPTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS rsvps (
  id TEXT PRIMARY KEY,
  guest_id TEXT,
  name TEXT NOT NULL,
  venue TEXT NOT NULL,
  attendance TEXT NOT NULL,
  party_size INTEGER NOT NULL DEFAULT 1,
  message TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertReply(t *testing.T, db *gorm.DB, name string, venue enums.Venue, attendance enums.Attendance, partySize int) *models.RSVP {
	t.Helper()
	reply := &models.RSVP{
		ID:         uuid.New(),
		Name:       name,
		Venue:      venue,
		Attendance: attendance,
		PartySize:  partySize,
	}
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		_, err := NewRepository(db).CreateTx(tx, reply)
		return err
	}))
	return reply
}

func TestRepositoryListFilters(t *testing.T) {
	db := setupRSVPTestDB(t)
	repo := NewRepository(db)

	insertReply(t, db, "An", enums.VenueGroom, enums.AttendanceYes, 2)
	insertReply(t, db, "Bình", enums.VenueBride, enums.AttendanceYes, 3)
	insertReply(t, db, "Cường", enums.VenueGroom, enums.AttendanceNo, 1)

	groom := enums.VenueGroom
	rows, total, err := repo.List(context.Background(), ListFilter{Venue: &groom, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	yes := enums.AttendanceYes
	rows, total, err = repo.List(context.Background(), ListFilter{Venue: &groom, Attendance: &yes, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "An", rows[0].Name)
}

func TestRepositoryListSearchMatchesNameAndMessage(t *testing.T) {
	db := setupRSVPTestDB(t)
	repo := NewRepository(db)

	withMessage := insertReply(t, db, "An", enums.VenueGroom, enums.AttendanceYes, 2)
	note := "hẹn gặp ở tiệc"
	require.NoError(t, db.Model(&models.RSVP{}).Where("id = ?", withMessage.ID).Update("message", note).Error)
	insertReply(t, db, "Bình", enums.VenueBride, enums.AttendanceYes, 1)

	rows, _, err := repo.List(context.Background(), ListFilter{Search: "tiệc", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, withMessage.ID, rows[0].ID)

	rows, _, err = repo.List(context.Background(), ListFilter{Search: "bình", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bình", rows[0].Name)
}

func TestRepositoryListSortWhitelist(t *testing.T) {
	db := setupRSVPTestDB(t)
	repo := NewRepository(db)

	insertReply(t, db, "An", enums.VenueGroom, enums.AttendanceYes, 5)
	insertReply(t, db, "Bình", enums.VenueBride, enums.AttendanceYes, 1)
	insertReply(t, db, "Cường", enums.VenueGroom, enums.AttendanceNo, 3)

	rows, _, err := repo.List(context.Background(), ListFilter{SortBy: "party_size", Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].PartySize)
	assert.Equal(t, 5, rows[2].PartySize)

	rows, _, err = repo.List(context.Background(), ListFilter{SortBy: "party_size", Descending: true, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 5, rows[0].PartySize)

	// Unknown columns fall back to created_at rather than reaching SQL.
	rows, _, err = repo.List(context.Background(), ListFilter{SortBy: "drop table", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRepositoryListPagination(t *testing.T) {
	db := setupRSVPTestDB(t)
	repo := NewRepository(db)

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		insertReply(t, db, name, enums.VenueGroom, enums.AttendanceYes, 1)
	}

	rows, total, err := repo.List(context.Background(), ListFilter{SortBy: "name", Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, rows, 2)
	assert.Equal(t, "c", rows[0].Name)
	assert.Equal(t, "d", rows[1].Name)
}

func TestRepositoryUpdateAndDelete(t *testing.T) {
	db := setupRSVPTestDB(t)
	repo := NewRepository(db)

	reply := insertReply(t, db, "An", enums.VenueGroom, enums.AttendancePending, 1)

	updated, err := repo.Update(context.Background(), reply.ID, map[string]any{
		"attendance": enums.AttendanceYes,
		"party_size": 4,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AttendanceYes, updated.Attendance)
	assert.Equal(t, 4, updated.PartySize)

	_, err = repo.Update(context.Background(), uuid.New(), map[string]any{"party_size": 2})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(context.Background(), reply.ID))
	assert.ErrorIs(t, repo.Delete(context.Background(), reply.ID), gorm.ErrRecordNotFound)
}

func TestRepositorySummary(t *testing.T) {
	db := setupRSVPTestDB(t)
	repo := NewRepository(db)

	insertReply(t, db, "An", enums.VenueGroom, enums.AttendanceYes, 2)
	insertReply(t, db, "Bình", enums.VenueGroom, enums.AttendanceYes, 3)
	insertReply(t, db, "Cường", enums.VenueBride, enums.AttendanceNo, 1)

	rows, err := repo.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byKey := map[string]SummaryRow{}
	for _, row := range rows {
		byKey[string(row.Venue)+"/"+string(row.Attendance)] = row
	}
	groomYes := byKey["groom/attending"]
	assert.EqualValues(t, 2, groomYes.Replies)
	assert.EqualValues(t, 5, groomYes.Guests)
	brideNo := byKey["bride/declined"]
	assert.EqualValues(t, 1, brideNo.Replies)
	assert.EqualValues(t, 1, brideNo.Guests)
}
