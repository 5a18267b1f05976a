package clickhouse

import (
	"context"
	"fmt"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse. Discovery
// output is append-only analytics data, so rows go through batch inserts into
// a MergeTree table.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// schemaDDL mirrors sql/clickhouse/001_snapshots.sql.
const schemaDDL = `
	CREATE TABLE IF NOT EXISTS discovery_snapshots (
		session_id          String,
		chain_id            String,
		pair_id             String,
		token_address       String,
		token_symbol        String,
		token_name          String,
		liquidity_usd       Float64,
		volume_24h_usd      Float64,
		price_change_pct    Float64,
		created_at_ms       UInt64,
		age_minutes         Float64,
		discovery_score     Int32,
		discovery_reason    String,
		source              String,
		inserted_at         DateTime DEFAULT now()
	) ENGINE = MergeTree()
	ORDER BY (session_id, chain_id, pair_id)
	SETTINGS index_granularity = 8192
`

// EnsureSchema creates the snapshot table if it does not exist.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create discovery_snapshots: %w", err)
	}
	return nil
}

// InsertBatch archives one session's raw candidate reports.
func (s *SnapshotStore) InsertBatch(ctx context.Context, sessionID string, reports []domain.CandidateReport) error {
	if sessionID == "" {
		return storage.ErrInvalidInput
	}
	if len(reports) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO discovery_snapshots (
			session_id, chain_id, pair_id, token_address, token_symbol,
			token_name, liquidity_usd, volume_24h_usd, price_change_pct,
			created_at_ms, age_minutes, discovery_score, discovery_reason, source
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot batch: %w", err)
	}

	for _, r := range reports {
		err := batch.Append(
			sessionID,
			r.ChainID,
			r.PairID,
			r.TokenAddress,
			r.TokenSymbol,
			r.TokenName,
			r.LiquidityUSD,
			r.Volume24hUSD,
			r.PriceChangePct,
			uint64(r.CreatedAt),
			r.AgeMinutes,
			int32(r.DiscoveryScore),
			r.DiscoveryReason,
			r.Source,
		)
		if err != nil {
			return fmt.Errorf("append snapshot for pair %s: %w", r.PairID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send snapshot batch: %w", err)
	}
	return nil
}

// CountBySession returns the number of archived reports for a session.
func (s *SnapshotStore) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count()
		FROM discovery_snapshots
		WHERE session_id = ?
	`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return int(count), nil
}
