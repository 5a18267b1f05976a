package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// AlertStore implements storage.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *Pool
}

// NewAlertStore creates a new AlertStore.
func NewAlertStore(pool *Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertStore = (*AlertStore)(nil)

const alertColumns = `
	session_id, chain_id, pair_id, token_symbol, final_score,
	recommendation, tier, critical_flags, tags, created_at_ms
`

// Insert adds an alert. Returns ErrDuplicateKey if the
// (session_id, chain_id, pair_id) key exists.
func (s *AlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	if a == nil || a.SessionID == "" || a.PairID == "" {
		return storage.ErrInvalidInput
	}

	flags, err := json.Marshal(a.CriticalFlags)
	if err != nil {
		return fmt.Errorf("encode critical flags: %w", err)
	}
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.pool.Exec(ctx, query,
		a.SessionID,
		a.ChainID,
		a.PairID,
		a.TokenSymbol,
		a.FinalScore,
		string(a.Recommendation),
		string(a.Tier),
		flags,
		tags,
		a.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// GetBySession retrieves a session's alerts ordered by final score DESC.
func (s *AlertStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE session_id = $1
		ORDER BY final_score DESC, pair_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get alerts by session: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetRecent retrieves the most recent alerts, newest first.
func (s *AlertStore) GetRecent(ctx context.Context, limit int) ([]*domain.Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		ORDER BY created_at_ms DESC, pair_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get recent alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

func scanAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var result []*domain.Alert
	for rows.Next() {
		var (
			a           domain.Alert
			flags, tags []byte
		)
		err := rows.Scan(
			&a.SessionID,
			&a.ChainID,
			&a.PairID,
			&a.TokenSymbol,
			&a.FinalScore,
			&a.Recommendation,
			&a.Tier,
			&flags,
			&tags,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}

		if err := json.Unmarshal(flags, &a.CriticalFlags); err != nil {
			return nil, fmt.Errorf("decode critical flags: %w", err)
		}
		if err := json.Unmarshal(tags, &a.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}

		result = append(result, &a)
	}
	return result, rows.Err()
}
