package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRoundsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_distribution_rounds.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no rounds migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE round_state_enum AS ENUM",
		"CREATE TABLE IF NOT EXISTS distribution_rounds",
		"FOREIGN KEY (property_id) REFERENCES properties(id) ON DELETE CASCADE",
		"CHECK (deposited_units >= 0)",
		"CHECK (remainder_units >= 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_rounds_property_sequence",
		"DROP TABLE IF EXISTS distribution_rounds",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestClaimsMigrationContainsUniqueIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_claims.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no claims migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS claims",
		"FOREIGN KEY (round_id) REFERENCES distribution_rounds(id) ON DELETE CASCADE",
		"CHECK (amount_units > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_claims_round_holder",
		"DROP TABLE IF EXISTS claims",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
