// Package memory provides in-memory storage implementations. Used by tests
// and by runs that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"dexradar/internal/domain"
	"dexradar/internal/idhash"
	"dexradar/internal/storage"
)

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	data map[string]*candidateRow // keyed by session_id + pair key
}

type candidateRow struct {
	sessionID string
	candidate domain.ScoredCandidate
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{
		data: make(map[string]*candidateRow),
	}
}

// Insert adds a scored candidate. Returns ErrDuplicateKey if the
// (session_id, chain_id, pair_id) key exists.
func (s *CandidateStore) Insert(_ context.Context, sessionID string, c *domain.ScoredCandidate) error {
	if c == nil || sessionID == "" || c.PairID == "" {
		return storage.ErrInvalidInput
	}

	key := sessionID + "/" + idhash.PairKey(c.ChainID, c.PairID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[key] = &candidateRow{sessionID: sessionID, candidate: copyCandidate(c)}
	return nil
}

// GetBySession retrieves a session's candidates ordered by final score DESC.
func (s *CandidateStore) GetBySession(_ context.Context, sessionID string) ([]*domain.ScoredCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoredCandidate
	for _, row := range s.data {
		if row.sessionID == sessionID {
			c := copyCandidate(&row.candidate)
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FinalScore > result[j].FinalScore
	})

	return result, nil
}

// GetByPair retrieves every stored scoring of one pair across sessions.
func (s *CandidateStore) GetByPair(_ context.Context, chainID, pairID string) ([]*domain.ScoredCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ScoredCandidate
	for _, row := range s.data {
		if row.candidate.ChainID == chainID && row.candidate.PairID == pairID {
			c := copyCandidate(&row.candidate)
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FinalScore > result[j].FinalScore
	})

	return result, nil
}

// copyCandidate deep-copies the annotation pointers so stored rows never share
// state with the caller.
func copyCandidate(c *domain.ScoredCandidate) domain.ScoredCandidate {
	out := *c
	if c.Risk != nil {
		risk := *c.Risk
		out.Risk = &risk
	}
	if c.Security != nil {
		sec := *c.Security
		out.Security = &sec
	}
	if c.Verdict != nil {
		verdict := *c.Verdict
		verdict.Tags = append([]domain.TokenTag(nil), c.Verdict.Tags...)
		verdict.CriticalFlags = append([]string(nil), c.Verdict.CriticalFlags...)
		out.Verdict = &verdict
	}
	return out
}
