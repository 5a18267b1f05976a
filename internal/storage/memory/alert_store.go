package memory

import (
	"context"
	"sort"
	"sync"

	"dexradar/internal/domain"
	"dexradar/internal/idhash"
	"dexradar/internal/storage"
)

// AlertStore is an in-memory implementation of storage.AlertStore.
type AlertStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Alert // keyed by session_id + pair key
}

// NewAlertStore creates a new in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{
		data: make(map[string]*domain.Alert),
	}
}

// Insert adds an alert. Returns ErrDuplicateKey if the
// (session_id, chain_id, pair_id) key exists.
func (s *AlertStore) Insert(_ context.Context, a *domain.Alert) error {
	if a == nil || a.SessionID == "" || a.PairID == "" {
		return storage.ErrInvalidInput
	}

	key := a.SessionID + "/" + idhash.PairKey(a.ChainID, a.PairID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	alertCopy := copyAlert(a)
	s.data[key] = &alertCopy
	return nil
}

// GetBySession retrieves a session's alerts ordered by final score DESC.
func (s *AlertStore) GetBySession(_ context.Context, sessionID string) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.data {
		if a.SessionID == sessionID {
			alertCopy := copyAlert(a)
			result = append(result, &alertCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FinalScore > result[j].FinalScore
	})

	return result, nil
}

// GetRecent retrieves the most recent alerts, newest first.
func (s *AlertStore) GetRecent(_ context.Context, limit int) ([]*domain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Alert
	for _, a := range s.data {
		alertCopy := copyAlert(a)
		result = append(result, &alertCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt > result[j].CreatedAt
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// copyAlert deep-copies the slice fields so stored rows never share state with
// the caller.
func copyAlert(a *domain.Alert) domain.Alert {
	out := *a
	out.CriticalFlags = append([]string(nil), a.CriticalFlags...)
	out.Tags = append([]domain.TokenTag(nil), a.Tags...)
	return out
}
