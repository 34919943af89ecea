package application

import (
	"sync"
	"time"
)

// StagedForm holds the partially collected form fields between the modal
// submit and the final select answer. Never persisted: a restart in this
// window loses in-flight submissions.
type StagedForm struct {
	MinecraftUsername       string
	MinecraftUUID           string
	IsValidMinecraftAccount bool
	Reason                  string
	Experience              string
}

type stagingEntry struct {
	form    StagedForm
	addedAt time.Time
}

// staging is the transient form map. Entries expire after the TTL so an
// abandoned form does not leak for the life of the process.
type staging struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]stagingEntry
	now     func() time.Time
}

func newStaging(ttl time.Duration) *staging {
	return &staging{
		ttl:     ttl,
		entries: make(map[string]stagingEntry),
		now:     time.Now,
	}
}

func (s *staging) put(userID string, form StagedForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[userID] = stagingEntry{form: form, addedAt: s.now()}
}

// take consumes and deletes the entry exactly once; a second reader finds
// nothing.
func (s *staging) take(userID string) (StagedForm, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	entry, ok := s.entries[userID]
	if !ok {
		return StagedForm{}, false
	}
	delete(s.entries, userID)
	return entry.form, true
}

// sweep drops expired entries. Caller holds s.mu.
func (s *staging) sweep() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for userID, entry := range s.entries {
		if entry.addedAt.Before(cutoff) {
			delete(s.entries, userID)
		}
	}
}

func (s *staging) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	return len(s.entries)
}
