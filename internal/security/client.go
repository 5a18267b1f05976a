// Package security provides a client for token security/metadata REST
// endpoints: honeypot and verification flags plus tax levels, keyed by
// (chain_id, token_address). Calls are paid, so the client is budget-gated
// and wrapped in a circuit breaker.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"dexradar/internal/apierr"
	"dexradar/internal/budget"
	"dexradar/internal/domain"
	"dexradar/internal/retry"
)

// ServiceName is the budget service key for the security API.
const ServiceName = "security"

// DefaultTimeout bounds a single security request.
const DefaultTimeout = 20 * time.Second

// Client fetches token security reports.
type Client struct {
	baseURL string
	client  *http.Client
	policy  retry.Policy
	breaker *gobreaker.CircuitBreaker
	budget  *budget.Tracker
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithRetryPolicy sets the transport retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithBudget sets the usage tracker. Requests charge ServiceName.
func WithBudget(t *budget.Tracker) Option {
	return func(c *Client) { c.budget = t }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a security API client.
func NewClient(baseURL string, opts ...Option) *Client {
	st := gobreaker.Settings{Name: ServiceName}
	st.Interval = 60 * time.Second
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		policy:  retry.DefaultPolicy(),
		breaker: gobreaker.NewCircuitBreaker(st),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// tokenResponse mirrors the security API wire format. Flags come back as
// "0"/"1" strings on several providers, so a tolerant bool type is used.
type tokenResponse struct {
	IsHoneypot   boolish `json:"is_honeypot"`
	IsOpenSource boolish `json:"is_open_source"`
	BuyTax       float64 `json:"buy_tax"`
	SellTax      float64 `json:"sell_tax"`
	HolderCount  int     `json:"holder_count"`
	Message      string  `json:"message,omitempty"`
}

// boolish accepts true/false, 0/1 and "0"/"1".
type boolish bool

func (b *boolish) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "1", "true":
		*b = true
	case "0", "false", "", "null":
		*b = false
	default:
		return fmt.Errorf("unrecognized boolean %q", s)
	}
	return nil
}

// TokenReport fetches the security report for one token. Budget denial
// surfaces as apierr.ErrBudgetExceeded before any network traffic.
func (c *Client) TokenReport(ctx context.Context, chainID, tokenAddress string) (*domain.SecurityReport, error) {
	if c.budget != nil {
		if err := c.budget.TryUse(ServiceName, 1); err != nil {
			return nil, err
		}
	}

	url := fmt.Sprintf("%s/token_security/%s?contract_addresses=%s", c.baseURL, chainID, tokenAddress)

	var resp tokenResponse
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.policy.Do(ctx, func() error {
			return c.get(ctx, url, &resp)
		})
	})
	if err != nil {
		return nil, err
	}

	if resp.Message != "" {
		return nil, &apierr.ProtocolError{Message: resp.Message}
	}

	report := &domain.SecurityReport{
		IsHoneypot:       bool(resp.IsHoneypot),
		ContractVerified: bool(resp.IsOpenSource),
		BuyTaxPct:        resp.BuyTax,
		SellTaxPct:       resp.SellTax,
		HolderCount:      resp.HolderCount,
		APICallsUsed:     1,
	}

	c.logger.Debug().
		Str("chain", chainID).
		Str("token", tokenAddress).
		Bool("honeypot", report.IsHoneypot).
		Msg("security report fetched")

	return report, nil
}

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
