package memory

import (
	"context"
	"sync"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[string][]domain.CandidateReport // keyed by session id
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[string][]domain.CandidateReport),
	}
}

// InsertBatch archives one session's raw candidate reports.
func (s *SnapshotStore) InsertBatch(_ context.Context, sessionID string, reports []domain.CandidateReport) error {
	if sessionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sessionID] = append(s.data[sessionID], reports...)
	return nil
}

// CountBySession returns the number of archived reports for a session.
func (s *SnapshotStore) CountBySession(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data[sessionID]), nil
}
