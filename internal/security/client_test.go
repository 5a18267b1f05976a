package security

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/apierr"
	"dexradar/internal/budget"
	"dexradar/internal/retry"
)

const testToken = "0x2222222222222222222222222222222222222222"

func TestTokenReport_ParsesStringFlags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/token_security/bsc")
		assert.Equal(t, testToken, r.URL.Query().Get("contract_addresses"))
		fmt.Fprint(w, `{"is_honeypot": "1", "is_open_source": "0", "buy_tax": 12.5, "sell_tax": 60, "holder_count": 150}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	report, err := client.TokenReport(context.Background(), "bsc", testToken)
	require.NoError(t, err)

	assert.True(t, report.IsHoneypot)
	assert.False(t, report.ContractVerified)
	assert.Equal(t, 12.5, report.BuyTaxPct)
	assert.Equal(t, 60.0, report.SellTaxPct)
	assert.Equal(t, 150, report.HolderCount)
	assert.Equal(t, 1, report.APICallsUsed)
}

func TestTokenReport_BudgetDeniedBeforeNetwork(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	tracker := budget.NewTracker(map[string]budget.Quota{ServiceName: {PerDay: 0, PerMinute: 1}})
	client := NewClient(srv.URL, WithBudget(tracker))

	_, err := client.TokenReport(context.Background(), "bsc", testToken)
	require.NoError(t, err)

	_, err = client.TokenReport(context.Background(), "bsc", testToken)
	require.True(t, errors.Is(err, apierr.ErrBudgetExceeded))
	assert.Equal(t, 1, calls, "denied request must never reach the network")
}

func TestTokenReport_ApplicationErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message": "token not indexed yet"}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.TokenReport(context.Background(), "bsc", testToken)

	var pe *apierr.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "token not indexed yet", pe.Message)
}

func TestTokenReport_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithRetryPolicy(retry.FixedPolicy(1, time.Millisecond)))

	for i := 0; i < 5; i++ {
		_, err := client.TokenReport(context.Background(), "bsc", testToken)
		require.Error(t, err)
	}

	// Breaker is now open: the failure is immediate, without a request.
	_, err := client.TokenReport(context.Background(), "bsc", testToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
