package issue

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"triage_server/core/domain"
)

func TestLoad(t *testing.T) {
	repo, err := Load(filepath.Join("testdata", "issues.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if repo.Len() != 4 {
		t.Errorf("Len() = %d, want 4", repo.Len())
	}

	rec, ok := repo.Lookup(101)
	if !ok {
		t.Fatal("Lookup(101) missed")
	}
	if rec.Device != "MTCM IntelliPod" {
		t.Errorf("Device = %q, want %q", rec.Device, "MTCM IntelliPod")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "nope.json"), zerolog.Nop()); err == nil {
		t.Error("Load() on missing file should fail")
	}
}

func TestLookup(t *testing.T) {
	repo := NewRepository([]domain.IssueRecord{
		{IssueNumber: 101, Issue: "first", Solution: "s1"},
		{IssueNumber: 204, Issue: "dup a", Solution: "s2"},
		{IssueNumber: 204, Issue: "dup b", Solution: "s3"},
	})

	tests := []struct {
		name      string
		code      int
		wantIssue string
		wantOK    bool
	}{
		{name: "exact match", code: 101, wantIssue: "first", wantOK: true},
		{name: "first match wins on duplicates", code: 204, wantIssue: "dup a", wantOK: true},
		{name: "miss", code: 999, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := repo.Lookup(tt.code)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%d) ok = %v, want %v", tt.code, ok, tt.wantOK)
			}
			if ok && rec.Issue != tt.wantIssue {
				t.Errorf("Lookup(%d).Issue = %q, want %q", tt.code, rec.Issue, tt.wantIssue)
			}
		})
	}
}

func TestLookupEmptyDataset(t *testing.T) {
	repo := NewRepository(nil)
	if _, ok := repo.Lookup(1); ok {
		t.Error("Lookup on empty dataset should miss")
	}
}
