package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

func sampleCandidate(pair string, score int) *domain.ScoredCandidate {
	c := &domain.ScoredCandidate{FinalScore: score}
	c.ChainID = "ethereum"
	c.PairID = pair
	c.TokenAddress = "0x2222222222222222222222222222222222222222"
	c.TokenSymbol = "TKN"
	c.LiquidityUSD = 50_000
	c.DiscoveryScore = 80
	c.Source = "uni-v2"
	c.Risk = &domain.OnChainRiskResult{LPLockPct: 95, HolderTop10Pct: 20, OverallRisk: domain.RiskSafe, APICallsUsed: 2}
	c.Verdict = &domain.TierVerdict{
		Tier:       domain.TierStrong,
		Confidence: 0.8,
		Tags: []domain.TokenTag{
			{Name: "LP_LOCKED", Category: domain.CategoryLPLock, Status: domain.TagGreen, Weight: 1},
		},
	}
	return c
}

func TestCandidateStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewCandidateStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "sess-1", sampleCandidate("0xaaa", 70)))
	require.NoError(t, store.Insert(ctx, "sess-1", sampleCandidate("0xbbb", 90)))

	err := store.Insert(ctx, "sess-1", sampleCandidate("0xaaa", 70))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0xbbb", got[0].PairID, "final-score DESC order")

	// Nested JSONB documents survive the round trip.
	require.NotNil(t, got[0].Risk)
	assert.Equal(t, 95.0, got[0].Risk.LPLockPct)
	require.NotNil(t, got[0].Verdict)
	assert.Equal(t, domain.TierStrong, got[0].Verdict.Tier)
	require.Len(t, got[0].Verdict.Tags, 1)
	assert.Nil(t, got[0].Security, "absent enrichment stays NULL")

	byPair, err := store.GetByPair(ctx, "ethereum", "0xaaa")
	require.NoError(t, err)
	assert.Len(t, byPair, 1)
}
