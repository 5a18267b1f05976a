package onchain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/budget"
	"dexradar/internal/domain"
)

func TestGrade(t *testing.T) {
	cases := []struct {
		lpLock, top10 float64
		want          domain.RiskLevel
	}{
		{95, 20, domain.RiskSafe},
		{85, 35, domain.RiskSafe},     // concentration below the moderate band
		{85, 40, domain.RiskModerate}, // moderate band starts at 40
		{70, 30, domain.RiskModerate}, // lp below 80
		{85, 60, domain.RiskHigh},     // high band starts at 60
		{85, 65, domain.RiskHigh},
		{40, 20, domain.RiskHigh}, // lp below 50
		{95, 85, domain.RiskCritical},
		{2, 10, domain.RiskCritical}, // lp essentially unlocked
		{0, 99, domain.RiskCritical},
	}
	for _, c := range cases {
		got := Grade(c.lpLock, c.top10)
		assert.Equal(t, c.want, got, "Grade(%v, %v)", c.lpLock, c.top10)
	}
}

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/holders/"):
			fmt.Fprint(w, `{"holders": [{"address": "0xaa", "pct": 12.0}, {"address": "0xbb", "pct": 9.5}]}`)
		case strings.HasPrefix(r.URL.Path, "/lplock/"):
			fmt.Fprint(w, `{"locked_pct": 92.0}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tracker := budget.NewTracker(nil)
	analyzer := NewAnalyzer(srv.URL, WithBudget(tracker))

	result, err := analyzer.Analyze(context.Background(), "bsc",
		"0x2222222222222222222222222222222222222222",
		"0x1111111111111111111111111111111111111111")
	require.NoError(t, err)

	assert.Equal(t, 92.0, result.LPLockPct)
	assert.Equal(t, 21.5, result.HolderTop10Pct)
	assert.Equal(t, domain.RiskSafe, result.OverallRisk)
	assert.Equal(t, 2, result.APICallsUsed)
	assert.Equal(t, 2, tracker.Snapshot()[ServiceName])
}

func TestAnalyze_TransportFailureSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	analyzer := NewAnalyzer(srv.URL)
	analyzer.policy.MaxAttempts = 1

	_, err := analyzer.Analyze(context.Background(), "bsc", "0xtoken", "0xpair")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch holders")
}
