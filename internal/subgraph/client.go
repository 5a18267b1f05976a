// Package subgraph provides an HTTP client for GraphQL subgraph endpoints.
package subgraph

import (
	"bytes"
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
	"dexradar/internal/retry"
)

// DefaultTimeout bounds a single subgraph request.
const DefaultTimeout = 30 * time.Second

// Client executes GraphQL queries against one subgraph endpoint. Transport
// failures are retried per the configured policy; GraphQL-level errors are
// surfaced immediately as ProtocolErrors.
type Client struct {
	endpoint string
	client   *http.Client
	policy   retry.Policy
	budget   *budget.Tracker
	service  string
	logger   zerolog.Logger
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

// WithBudget counts every request against the named service on the tracker.
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

// NewClient creates a subgraph client for the given endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
		policy:   retry.DefaultPolicy(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// gqlRequest is the request body for a GraphQL POST.
type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// gqlResponse is the standard GraphQL response envelope.
type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

// Query executes a GraphQL query and returns the raw data payload. Callers
// receive a TransportError (after retries), a ProtocolError, or
// apierr.ErrBudgetExceeded.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var data json.RawMessage
	err = c.policy.Do(ctx, func() error {
		if c.budget != nil {
			if berr := c.budget.TryUse(c.service, 1); berr != nil {
				return berr
			}
		}

		req, rerr := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if rerr != nil {
			return fmt.Errorf("create request: %w", rerr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, rerr := c.client.Do(req)
		if rerr != nil {
			return &apierr.TransportError{Err: rerr}
		}
		defer resp.Body.Close()

		respBody, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return &apierr.TransportError{Err: rerr}
		}

		if resp.StatusCode != http.StatusOK {
			return &apierr.TransportError{
				Status: resp.StatusCode,
				Err:    fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(respBody))),
			}
		}

		var gr gqlResponse
		if rerr := json.Unmarshal(respBody, &gr); rerr != nil {
			return &apierr.TransportError{Err: fmt.Errorf("unmarshal response: %w", rerr)}
		}

		// A well-formed response with an errors array is an application-level
		// failure, distinct from transport problems, and is not retried.
		if len(gr.Errors) > 0 {
			msgs := make([]string, 0, len(gr.Errors))
			for _, e := range gr.Errors {
				msgs = append(msgs, e.Message)
			}
			return &apierr.ProtocolError{Message: strings.Join(msgs, "; ")}
		}

		data = gr.Data
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("endpoint", c.endpoint).Int("bytes", len(data)).Msg("subgraph query ok")
	return data, nil
}
