// Package persistence provides seen-message stores used for poll dedup.
package persistence

import (
	"context"
	"sync"

	"triage_server/core/port/out"
)

// MemorySeenStore keeps seen message IDs in process memory. The set is
// lost on restart, which matches the platform-level behavior that read
// messages stop appearing in the unread query anyway.
type MemorySeenStore struct {
	ids map[string]struct{}
	mu  sync.Mutex
}

func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{ids: make(map[string]struct{})}
}

// MarkSeen records id and reports whether it was newly added.
func (s *MemorySeenStore) MarkSeen(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false, nil
	}
	s.ids[id] = struct{}{}
	return true, nil
}

// Reset clears the set.
func (s *MemorySeenStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
	return nil
}

// Len returns the number of recorded IDs.
func (s *MemorySeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

var _ out.SeenStore = (*MemorySeenStore)(nil)
