package database

import (
	"database/sql"
	"os"
	"regexp"
	"testing"
)

func TestGenerateUsername(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", `^adalovelace\d{4}$`},
		{"Dr. Jean-Luc Picard the Second", `^drjeanlucpic\d{4}$`},
		{"李 雷", `^learner\d{4}$`},
		{"", `^learner\d{4}$`},
	}
	for _, tt := range tests {
		got := GenerateUsername(tt.name)
		if !regexp.MustCompile(tt.want).MatchString(got) {
			t.Errorf("GenerateUsername(%q) = %q, want match %s", tt.name, got, tt.want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("embedded %d migration files, want 4 (up and down for users and kv_entries)", len(entries))
	}
}

// TestMigrateIntegration runs against TEST_DATABASE_URL when it is set.
func TestMigrateIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, dirty, ok, err := Version(db)
	if err != nil || !ok || dirty || version != 2 {
		t.Errorf("Version = %d dirty=%v ok=%v err=%v", version, dirty, ok, err)
	}
}
