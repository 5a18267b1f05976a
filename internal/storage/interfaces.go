// Package storage defines the persistence contract for funnel output. Memory,
// Postgres and ClickHouse backends implement these interfaces; the funnel
// depends only on the contract.
package storage

import (
	"context"

	"dexradar/internal/domain"
)

// CandidateStore persists fully scored candidates per session.
type CandidateStore interface {
	// Insert adds a scored candidate. Returns ErrDuplicateKey if the
	// (session_id, chain_id, pair_id) key exists.
	Insert(ctx context.Context, sessionID string, c *domain.ScoredCandidate) error

	// GetBySession retrieves a session's candidates ordered by final score
	// descending.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.ScoredCandidate, error)

	// GetByPair retrieves every stored scoring of one pair across sessions.
	GetByPair(ctx context.Context, chainID, pairID string) ([]*domain.ScoredCandidate, error)
}

// AlertStore persists emitted alerts.
type AlertStore interface {
	// Insert adds an alert. Returns ErrDuplicateKey if the
	// (session_id, chain_id, pair_id) key exists.
	Insert(ctx context.Context, a *domain.Alert) error

	// GetBySession retrieves a session's alerts ordered by final score
	// descending.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.Alert, error)

	// GetRecent retrieves the most recent alerts, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.Alert, error)
}

// SessionStore persists finalized funnel sessions.
type SessionStore interface {
	// Insert adds a finalized session. Returns ErrDuplicateKey if the
	// session ID exists.
	Insert(ctx context.Context, s *domain.FunnelSession) error

	// GetByID retrieves a session. Returns ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*domain.FunnelSession, error)

	// GetRecent retrieves the most recent sessions, newest first.
	GetRecent(ctx context.Context, limit int) ([]*domain.FunnelSession, error)
}

// SnapshotStore archives raw discovery output for offline analysis. Backed by
// ClickHouse in production; writes are batched, never row at a time.
type SnapshotStore interface {
	// InsertBatch archives one session's raw candidate reports.
	InsertBatch(ctx context.Context, sessionID string, reports []domain.CandidateReport) error

	// CountBySession returns the number of archived reports for a session.
	CountBySession(ctx context.Context, sessionID string) (int, error)
}
