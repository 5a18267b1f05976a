package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

func TestSessionStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSessionStore(pool)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Millisecond)
	sess := &domain.FunnelSession{
		ID:            "sess-1",
		StartTime:     start,
		EndTime:       start.Add(time.Minute),
		StageCounts:   map[string]int{domain.StageDiscovery: 40, domain.StageAlert: 2},
		StageErrors:   map[string]int{domain.StageOnChain: 1},
		APIBudgetUsed: map[string]int{"security": 15},
		AlertsEmitted: 2,
		Duration:      time.Minute,
	}
	require.NoError(t, store.Insert(ctx, sess))

	err := store.Insert(ctx, sess)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 40, got.StageCounts[domain.StageDiscovery])
	assert.Equal(t, 15, got.APIBudgetUsed["security"])
	assert.Equal(t, time.Minute, got.Duration)
	assert.True(t, got.StartTime.Equal(start))

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	older := *sess
	older.ID = "sess-0"
	older.StartTime = start.Add(-time.Hour)
	require.NoError(t, store.Insert(ctx, &older))

	recent, err := store.GetRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "sess-1", recent[0].ID, "newest first")
}
