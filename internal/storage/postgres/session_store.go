package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// SessionStore implements storage.SessionStore using PostgreSQL.
type SessionStore struct {
	pool *Pool
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool *Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SessionStore = (*SessionStore)(nil)

const sessionColumns = `
	session_id, start_time, end_time, stage_counts, stage_errors,
	api_budget_used, alerts_emitted, duration_ms
`

// Insert adds a finalized session. Returns ErrDuplicateKey if the ID exists.
func (s *SessionStore) Insert(ctx context.Context, sess *domain.FunnelSession) error {
	if sess == nil || sess.ID == "" {
		return storage.ErrInvalidInput
	}

	counts, err := json.Marshal(sess.StageCounts)
	if err != nil {
		return fmt.Errorf("encode stage counts: %w", err)
	}
	errCounts, err := json.Marshal(sess.StageErrors)
	if err != nil {
		return fmt.Errorf("encode stage errors: %w", err)
	}
	budgetUsed, err := json.Marshal(sess.APIBudgetUsed)
	if err != nil {
		return fmt.Errorf("encode budget: %w", err)
	}

	query := `
		INSERT INTO funnel_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		sess.ID,
		sess.StartTime,
		sess.EndTime,
		counts,
		errCounts,
		budgetUsed,
		sess.AlertsEmitted,
		sess.Duration.Milliseconds(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID retrieves a session. Returns ErrNotFound if it does not exist.
func (s *SessionStore) GetByID(ctx context.Context, id string) (*domain.FunnelSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM funnel_sessions
		WHERE session_id = $1
	`

	sess, err := scanSession(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	return sess, nil
}

// GetRecent retrieves the most recent sessions, newest first.
func (s *SessionStore) GetRecent(ctx context.Context, limit int) ([]*domain.FunnelSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM funnel_sessions
		ORDER BY start_time DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent sessions: %w", err)
	}
	defer rows.Close()

	var result []*domain.FunnelSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func scanSession(row pgx.Row) (*domain.FunnelSession, error) {
	var (
		sess                          domain.FunnelSession
		counts, errCounts, budgetUsed []byte
		durationMS                    int64
	)
	err := row.Scan(
		&sess.ID,
		&sess.StartTime,
		&sess.EndTime,
		&counts,
		&errCounts,
		&budgetUsed,
		&sess.AlertsEmitted,
		&durationMS,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(counts, &sess.StageCounts); err != nil {
		return nil, fmt.Errorf("decode stage counts: %w", err)
	}
	if err := json.Unmarshal(errCounts, &sess.StageErrors); err != nil {
		return nil, fmt.Errorf("decode stage errors: %w", err)
	}
	if err := json.Unmarshal(budgetUsed, &sess.APIBudgetUsed); err != nil {
		return nil, fmt.Errorf("decode budget: %w", err)
	}
	sess.Duration = time.Duration(durationMS) * time.Millisecond
	return &sess, nil
}
