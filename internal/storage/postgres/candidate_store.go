package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const candidateColumns = `
	session_id, chain_id, pair_id, token_address, token_symbol, token_name,
	liquidity_usd, volume_24h_usd, price_change_pct, created_at_ms, age_minutes,
	discovery_score, discovery_reason, source,
	risk, risk_error, security, security_error, verdict, final_score
`

// Insert adds a scored candidate. Returns ErrDuplicateKey if the
// (session_id, chain_id, pair_id) key exists.
func (s *CandidateStore) Insert(ctx context.Context, sessionID string, c *domain.ScoredCandidate) error {
	if c == nil || sessionID == "" || c.PairID == "" {
		return storage.ErrInvalidInput
	}

	risk, err := toJSONB(c.Risk)
	if err != nil {
		return fmt.Errorf("encode risk: %w", err)
	}
	security, err := toJSONB(c.Security)
	if err != nil {
		return fmt.Errorf("encode security: %w", err)
	}
	verdict, err := toJSONB(c.Verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}

	query := `
		INSERT INTO scored_candidates (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err = s.pool.Exec(ctx, query,
		sessionID,
		c.ChainID,
		c.PairID,
		c.TokenAddress,
		c.TokenSymbol,
		c.TokenName,
		c.LiquidityUSD,
		c.Volume24hUSD,
		c.PriceChangePct,
		c.CreatedAt,
		c.AgeMinutes,
		c.DiscoveryScore,
		c.DiscoveryReason,
		c.Source,
		risk,
		c.RiskError,
		security,
		c.SecurityError,
		verdict,
		c.FinalScore,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// GetBySession retrieves a session's candidates ordered by final score DESC.
func (s *CandidateStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.ScoredCandidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM scored_candidates
		WHERE session_id = $1
		ORDER BY final_score DESC, pair_id ASC
	`

	rows, err := s.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get candidates by session: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetByPair retrieves every stored scoring of one pair across sessions.
func (s *CandidateStore) GetByPair(ctx context.Context, chainID, pairID string) ([]*domain.ScoredCandidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM scored_candidates
		WHERE chain_id = $1 AND pair_id = $2
		ORDER BY final_score DESC, session_id ASC
	`

	rows, err := s.pool.Query(ctx, query, chainID, pairID)
	if err != nil {
		return nil, fmt.Errorf("get candidates by pair: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func scanCandidates(rows pgx.Rows) ([]*domain.ScoredCandidate, error) {
	var result []*domain.ScoredCandidate
	for rows.Next() {
		var (
			c                       domain.ScoredCandidate
			sessionID               string
			risk, security, verdict []byte
		)
		err := rows.Scan(
			&sessionID,
			&c.ChainID,
			&c.PairID,
			&c.TokenAddress,
			&c.TokenSymbol,
			&c.TokenName,
			&c.LiquidityUSD,
			&c.Volume24hUSD,
			&c.PriceChangePct,
			&c.CreatedAt,
			&c.AgeMinutes,
			&c.DiscoveryScore,
			&c.DiscoveryReason,
			&c.Source,
			&risk,
			&c.RiskError,
			&security,
			&c.SecurityError,
			&verdict,
			&c.FinalScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}

		if err := fromJSONB(risk, &c.Risk); err != nil {
			return nil, fmt.Errorf("decode risk: %w", err)
		}
		if err := fromJSONB(security, &c.Security); err != nil {
			return nil, fmt.Errorf("decode security: %w", err)
		}
		if err := fromJSONB(verdict, &c.Verdict); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}

		result = append(result, &c)
	}
	return result, rows.Err()
}

// toJSONB encodes v for a nullable JSONB column. Nil pointers map to NULL.
func toJSONB[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// fromJSONB decodes a nullable JSONB column into a pointer field.
func fromJSONB[T any](data []byte, out **T) error {
	if len(data) == 0 {
		*out = nil
		return nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return err
	}
	*out = v
	return nil
}
