package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

func sampleAlert(session, pair string, score int, createdAt int64) *domain.Alert {
	return &domain.Alert{
		SessionID:      session,
		PairID:         pair,
		ChainID:        "ethereum",
		TokenSymbol:    "TKN",
		FinalScore:     score,
		Recommendation: domain.RecBuy,
		Tier:           domain.TierStrong,
		CriticalFlags:  []string{},
		Tags: []domain.TokenTag{
			{Name: "LP_LOCKED", Category: domain.CategoryLPLock, Status: domain.TagGreen, Weight: 1},
		},
		CreatedAt: createdAt,
	}
}

func TestAlertStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAlertStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleAlert("sess-1", "0xaaa", 70, 100)))
	require.NoError(t, store.Insert(ctx, sampleAlert("sess-1", "0xbbb", 90, 200)))
	require.NoError(t, store.Insert(ctx, sampleAlert("sess-2", "0xccc", 80, 300)))

	err := store.Insert(ctx, sampleAlert("sess-1", "0xaaa", 70, 100))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	bySession, err := store.GetBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, bySession, 2)
	assert.Equal(t, "0xbbb", bySession[0].PairID, "final-score DESC order")
	require.Len(t, bySession[0].Tags, 1)
	assert.Equal(t, domain.TagGreen, bySession[0].Tags[0].Status)

	recent, err := store.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "0xccc", recent[0].PairID, "newest first")
}
