package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProposalsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_proposals.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no proposals migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS proposals",
		"FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE",
		"CHECK (bid_amount > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_proposals_job_freelancer ON proposals (job_id, freelancer_id)",
		"DROP TABLE IF EXISTS proposals",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestReviewsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_reviews.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no reviews migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CHECK (score >= 1 AND score <= 5)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_reviews_contract_reviewer ON reviews (contract_id, reviewer_id)",
		"DROP TABLE IF EXISTS reviews",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
