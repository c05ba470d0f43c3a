// Package issue loads the reference issue dataset and resolves extracted
// error codes against it.
package issue

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"triage_server/core/domain"
)

// Repository holds the issue dataset fully in memory. Records keep their
// file order; lookups return the first match and enforce no uniqueness.
type Repository struct {
	records []domain.IssueRecord
	log     zerolog.Logger
}

// Load reads the dataset file (an ordered JSON array of records) into a new
// repository. A missing file is an error; an empty array is not.
func Load(path string, log zerolog.Logger) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issue dataset: %w", err)
	}

	var records []domain.IssueRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse issue dataset %s: %w", path, err)
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("issue dataset loaded")

	return &Repository{
		records: records,
		log:     log.With().Str("component", "issue_repository").Logger(),
	}, nil
}

// NewRepository builds a repository from in-memory records (used by tests
// and by callers that load the dataset elsewhere).
func NewRepository(records []domain.IssueRecord) *Repository {
	return &Repository{records: records, log: zerolog.Nop()}
}

// Lookup returns the first record whose issue number equals code.
func (r *Repository) Lookup(code int) (*domain.IssueRecord, bool) {
	for i := range r.records {
		if r.records[i].IssueNumber == code {
			rec := r.records[i]
			return &rec, true
		}
	}
	return nil, false
}

// Len returns the number of loaded records.
func (r *Repository) Len() int {
	return len(r.records)
}
