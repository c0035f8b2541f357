package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"community-cms/backend/internal/db"
)

func TestParseDirection(t *testing.T) {
	testCases := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"up", Up, false},
		{"down", Down, false},
		{"", "", true},
		{"UP", "", true},
		{"sideways", "", true},
	}
	for _, tc := range testCases {
		got, err := ParseDirection(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseDirection(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRun_Validation(t *testing.T) {
	if err := Run("", Up); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("Run with empty DSN = %v, want DATABASE_URL error", err)
	}
	if err := Run("postgres://localhost/cms", Direction("left")); err == nil || !strings.Contains(err.Error(), "direction") {
		t.Errorf("Run with bad direction = %v, want direction error", err)
	}
	if _, _, err := Version(""); err == nil {
		t.Error("Version with empty DSN should fail")
	}
}

func TestEmbeddedMigrations_Paired(t *testing.T) {
	names, err := fs.Glob(db.MigrationFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) == 0 {
		t.Fatal("no embedded migrations")
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, n := range names {
		var pair string
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			pair = strings.TrimSuffix(n, ".up.sql") + ".down.sql"
		case strings.HasSuffix(n, ".down.sql"):
			pair = strings.TrimSuffix(n, ".down.sql") + ".up.sql"
		default:
			t.Errorf("%s is neither an up nor a down migration", n)
			continue
		}
		if !set[pair] {
			t.Errorf("%s has no matching %s", n, pair)
		}
	}
}

func TestLatest(t *testing.T) {
	v, err := Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if v < 1 {
		t.Errorf("Latest = %d, want >= 1", v)
	}
}
