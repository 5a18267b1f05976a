// Package onchain grades candidate risk from explorer data: LP lock
// percentage and holder concentration. Consumed only by the funnel's on-chain
// filter stage.
package onchain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"dexradar/internal/apierr"
	"dexradar/internal/budget"
	"dexradar/internal/domain"
	"dexradar/internal/retry"
)

// ServiceName is the budget service key for explorer calls.
const ServiceName = "onchain"

// DefaultTimeout bounds a single explorer request.
const DefaultTimeout = 20 * time.Second

// Risk grading thresholds.
const (
	criticalTop10Pct = 80.0
	criticalLPPct    = 5.0
	highTop10Pct     = 60.0
	highLPPct        = 50.0
	moderateTop10Pct = 40.0
	moderateLPPct    = 80.0
)

// Analyzer fetches holder and LP lock data and grades overall risk.
type Analyzer struct {
	baseURL string
	client  *http.Client
	policy  retry.Policy
	budget  *budget.Tracker
	logger  zerolog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Analyzer) { a.client = hc }
}

// WithRetryPolicy sets the transport retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// WithBudget sets the usage tracker. Requests charge ServiceName.
func WithBudget(t *budget.Tracker) Option {
	return func(a *Analyzer) { a.budget = t }
}

// WithLogger sets the analyzer logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates an explorer-backed risk analyzer.
func NewAnalyzer(baseURL string, opts ...Option) *Analyzer {
	a := &Analyzer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		policy:  retry.DefaultPolicy(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type holdersResponse struct {
	Holders []struct {
		Address string  `json:"address"`
		Pct     float64 `json:"pct"`
	} `json:"holders"`
}

type lpLockResponse struct {
	LockedPct float64 `json:"locked_pct"`
}

// Analyze fetches holder concentration and LP lock data for one candidate and
// grades overall risk. Two explorer calls per candidate.
func (a *Analyzer) Analyze(ctx context.Context, chainID, tokenAddress, pairID string) (*domain.OnChainRiskResult, error) {
	calls := 0

	var holders holdersResponse
	url := fmt.Sprintf("%s/holders/%s/%s?top=10", a.baseURL, chainID, tokenAddress)
	if err := a.call(ctx, url, &holders); err != nil {
		return nil, fmt.Errorf("fetch holders: %w", err)
	}
	calls++

	var lock lpLockResponse
	url = fmt.Sprintf("%s/lplock/%s/%s", a.baseURL, chainID, pairID)
	if err := a.call(ctx, url, &lock); err != nil {
		return nil, fmt.Errorf("fetch lp lock: %w", err)
	}
	calls++

	var top10 float64
	for _, h := range holders.Holders {
		top10 += h.Pct
	}

	result := &domain.OnChainRiskResult{
		LPLockPct:      lock.LockedPct,
		HolderTop10Pct: top10,
		OverallRisk:    Grade(lock.LockedPct, top10),
		APICallsUsed:   calls,
	}

	a.logger.Debug().
		Str("chain", chainID).
		Str("token", tokenAddress).
		Float64("lp_lock_pct", result.LPLockPct).
		Float64("top10_pct", result.HolderTop10Pct).
		Str("risk", string(result.OverallRisk)).
		Msg("onchain risk graded")

	return result, nil
}

// Grade maps LP lock and holder concentration onto a risk level. Worst
// matching level wins.
func Grade(lpLockPct, holderTop10Pct float64) domain.RiskLevel {
	switch {
	case holderTop10Pct >= criticalTop10Pct || lpLockPct < criticalLPPct:
		return domain.RiskCritical
	case holderTop10Pct >= highTop10Pct || lpLockPct < highLPPct:
		return domain.RiskHigh
	case holderTop10Pct >= moderateTop10Pct || lpLockPct < moderateLPPct:
		return domain.RiskModerate
	default:
		return domain.RiskSafe
	}
}

func (a *Analyzer) call(ctx context.Context, url string, out any) error {
	if a.budget != nil {
		if err := a.budget.TryUse(ServiceName, 1); err != nil {
			return err
		}
	}

	return a.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return &apierr.TransportError{Err: err}
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &apierr.TransportError{Err: err}
		}

		if resp.StatusCode != http.StatusOK {
			return &apierr.TransportError{
				Status: resp.StatusCode,
				Err:    fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(body))),
			}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return &apierr.ProtocolError{Message: fmt.Sprintf("malformed response body: %v", err)}
		}
		return nil
	})
}
