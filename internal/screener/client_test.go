package screener

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/retry"
)

func screenerBody(createdAt int64) string {
	return fmt.Sprintf(`{
		"pairs": [
			{
				"chainId": "bsc",
				"pairAddress": "0x1111111111111111111111111111111111111111",
				"baseToken": {"address": "0x2222222222222222222222222222222222222222", "name": "Moon Token", "symbol": "MOON"},
				"liquidity": {"usd": 54321.5},
				"volume": {"h24": 120000},
				"priceChange": {"h24": 42.5},
				"pairCreatedAt": %d
			},
			{
				"chainId": "bsc",
				"pairAddress": "0x3333333333333333333333333333333333333333",
				"baseToken": {"address": "not-an-address", "name": "Bad", "symbol": "BAD"},
				"liquidity": {"usd": 1000},
				"volume": {"h24": 10},
				"priceChange": {"h24": 0},
				"pairCreatedAt": %d
			}
		]
	}`, createdAt, createdAt)
}

func TestLatestPairs_ParsesAndSkips(t *testing.T) {
	createdAt := time.Now().Add(-90 * time.Minute).UnixMilli()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/pairs/bsc", r.URL.Path)
		fmt.Fprint(w, screenerBody(createdAt))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRateLimit(1000, 10))
	reports, skipped, err := client.LatestPairs(context.Background(), "bsc")
	require.NoError(t, err)

	assert.Equal(t, 1, skipped, "record with invalid token address must be skipped")
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, "0x1111111111111111111111111111111111111111", r.PairID)
	assert.Equal(t, "MOON", r.TokenSymbol)
	assert.Equal(t, 54321.5, r.LiquidityUSD)
	assert.Equal(t, 120000.0, r.Volume24hUSD)
	assert.Equal(t, 42.5, r.PriceChangePct)
	assert.Equal(t, SourceName, r.Source)
	assert.InDelta(t, 90, r.AgeMinutes, 2)
}

func TestLatestPairs_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL,
		WithRateLimit(1000, 10),
		WithRetryPolicy(retry.FixedPolicy(2, time.Millisecond)))

	_, _, err := client.LatestPairs(context.Background(), "bsc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
}
