package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minhngo-dev/thiepcuoi-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestMediaMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_media.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS media",
		"display_order INTEGER NOT NULL DEFAULT 0 CHECK (display_order >= 0)",
		"ux_media_gcs_key",
		"DROP TABLE IF EXISTS media",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestRSVPMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_rsvps.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS rsvps",
		"FOREIGN KEY (guest_id) REFERENCES guests(id) ON DELETE SET NULL",
		"CHECK (party_size >= 1)",
		"DROP TABLE IF EXISTS rsvps",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationHasPartialUniqueIndex(t *testing.T) {
	content := readMigration(t, "*_create_outbox_events.sql")

	checks := []string{
		"ux_outbox_events_event_aggregate",
		"WHERE published_at IS NULL",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
