// Package screener provides a REST client for pair/volume discovery endpoints
// serving dexscreener-shaped responses.
package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dexradar/internal/addrcheck"
	"dexradar/internal/apierr"
	"dexradar/internal/budget"
	"dexradar/internal/domain"
	"dexradar/internal/retry"
)

// SourceName identifies screener-discovered candidates in reports.
const SourceName = "screener"

// DefaultTimeout bounds a single screener request.
const DefaultTimeout = 15 * time.Second

// Client fetches per-chain pair lists. Rate limited: public screener APIs
// throttle aggressively.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	policy  retry.Policy
	budget  *budget.Tracker
	service string
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRateLimit sets the request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithRetryPolicy sets the transport retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithBudget counts requests against the named service.
func WithBudget(t *budget.Tracker, service string) Option {
	return func(c *Client) {
		c.budget = t
		c.service = service
	}
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a screener client.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		policy:  retry.DefaultPolicy(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// pairsResponse mirrors the screener wire format.
type pairsResponse struct {
	Pairs []pairRecord `json:"pairs"`
}

type pairRecord struct {
	ChainID     string `json:"chainId"`
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	PairCreatedAt int64 `json:"pairCreatedAt"` // epoch milliseconds
}

// LatestPairs fetches the newest pairs for one chain and normalizes them into
// CandidateReports. Malformed records are skipped and counted, never fatal.
func (c *Client) LatestPairs(ctx context.Context, chainID string) ([]domain.CandidateReport, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	url := fmt.Sprintf("%s/latest/dex/pairs/%s", c.baseURL, chainID)

	var resp pairsResponse
	err := c.policy.Do(ctx, func() error {
		if c.budget != nil {
			if berr := c.budget.TryUse(c.service, 1); berr != nil {
				return berr
			}
		}
		return c.get(ctx, url, &resp)
	})
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	reports := make([]domain.CandidateReport, 0, len(resp.Pairs))
	skipped := 0
	for _, p := range resp.Pairs {
		report, perr := c.toReport(p, now)
		if perr != nil {
			skipped++
			c.logger.Debug().Str("chain", chainID).Err(perr).Msg("skipping malformed pair record")
			continue
		}
		reports = append(reports, report)
	}

	return reports, skipped, nil
}

// get performs one GET, classifying failures per the shared taxonomy.
func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
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
}

// toReport validates and converts one wire record.
func (c *Client) toReport(p pairRecord, now time.Time) (domain.CandidateReport, error) {
	if p.PairAddress == "" {
		return domain.CandidateReport{}, &apierr.DataError{Field: "pairAddress", Err: fmt.Errorf("missing")}
	}
	if p.PairCreatedAt <= 0 {
		return domain.CandidateReport{}, &apierr.DataError{Field: "pairCreatedAt", Err: fmt.Errorf("missing or zero")}
	}
	if !addrcheck.ValidForChain(p.ChainID, p.BaseToken.Address) {
		return domain.CandidateReport{}, &apierr.DataError{
			Field: "baseToken.address",
			Err:   fmt.Errorf("address %q not valid for chain %s", p.BaseToken.Address, p.ChainID),
		}
	}

	age := now.Sub(time.UnixMilli(p.PairCreatedAt)).Minutes()
	if age < 0 {
		age = 0
	}

	return domain.CandidateReport{
		PairID:         p.PairAddress,
		ChainID:        p.ChainID,
		TokenAddress:   p.BaseToken.Address,
		TokenSymbol:    p.BaseToken.Symbol,
		TokenName:      p.BaseToken.Name,
		LiquidityUSD:   p.Liquidity.USD,
		Volume24hUSD:   p.Volume.H24,
		PriceChangePct: p.PriceChange.H24,
		CreatedAt:      p.PairCreatedAt,
		AgeMinutes:     age,
		Source:         SourceName,
	}, nil
}
