package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. Everything is lost on
// restart, which suits development and tests. Expired entries are dropped
// when read.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	byUser  map[uuid.UUID]map[string]struct{}
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	userID  uuid.UUID
	expires time.Time
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries: map[string]memoryEntry{},
		byUser:  map[uuid.UUID]map[string]struct{}{},
		now:     now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expires) {
		s.remove(id, entry.userID)
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[sess.ID]; ok && prev.userID != sess.UserID {
		s.unindex(sess.ID, prev.userID)
	}
	s.entries[sess.ID] = memoryEntry{data: payload, userID: sess.UserID, expires: s.now().Add(ttl)}
	if sess.UserID != uuid.Nil {
		ids := s.byUser[sess.UserID]
		if ids == nil {
			ids = map[string]struct{}{}
			s.byUser[sess.UserID] = ids
		}
		ids[sess.ID] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := sess.UserID
	if entry, ok := s.entries[sess.ID]; ok {
		userID = entry.userID
	}
	s.remove(sess.ID, userID)
	return nil
}

// remove drops id and its user index entry. Callers hold s.mu.
func (s *MemoryStore) remove(id string, userID uuid.UUID) {
	delete(s.entries, id)
	s.unindex(id, userID)
}

func (s *MemoryStore) unindex(id string, userID uuid.UUID) {
	ids := s.byUser[userID]
	if ids == nil {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.byUser, userID)
	}
}

func (s *MemoryStore) SessionIDs(_ context.Context, userID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.byUser[userID]))
	for id := range s.byUser[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// IndexedUsers returns the number of users with at least one indexed session.
func (s *MemoryStore) IndexedUsers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}
