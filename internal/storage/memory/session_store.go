package memory

import (
	"context"
	"sort"
	"sync"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// SessionStore is an in-memory implementation of storage.SessionStore.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FunnelSession // keyed by session id
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.FunnelSession),
	}
}

// Insert adds a finalized session. Returns ErrDuplicateKey if the ID exists.
func (s *SessionStore) Insert(_ context.Context, sess *domain.FunnelSession) error {
	if sess == nil || sess.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sess.ID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[sess.ID] = copySession(sess)
	return nil
}

// GetByID retrieves a session. Returns ErrNotFound if it does not exist.
func (s *SessionStore) GetByID(_ context.Context, id string) (*domain.FunnelSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySession(sess), nil
}

// GetRecent retrieves the most recent sessions, newest first.
func (s *SessionStore) GetRecent(_ context.Context, limit int) ([]*domain.FunnelSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FunnelSession
	for _, sess := range s.data {
		result = append(result, copySession(sess))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartTime.After(result[j].StartTime)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copySession deep-copies the session maps so callers cannot mutate stored
// state.
func copySession(sess *domain.FunnelSession) *domain.FunnelSession {
	out := *sess
	out.StageCounts = copyCounts(sess.StageCounts)
	out.StageErrors = copyCounts(sess.StageErrors)
	out.APIBudgetUsed = copyCounts(sess.APIBudgetUsed)
	return &out
}

func copyCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
