package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"dexradar/internal/apierr"
	"dexradar/internal/domain"
	"dexradar/internal/observability"
)

// Default collector configuration.
const (
	DefaultPageSize  = 100
	DefaultMaxPages  = 20
	DefaultPageDelay = 500 * time.Millisecond
)

// Querier executes one GraphQL query. Implemented by subgraph.Client.
type Querier interface {
	Query(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error)
}

// QuerierFactory resolves the querier for a source; sources point at
// different endpoints.
type QuerierFactory func(src domain.SourceDescriptor) (Querier, error)

// Collector drains paginated result sets page by page. Pages within one
// (source, slice) are strictly sequential: each request's offset depends on
// the previous page, and early exit needs the previous page's record count.
type Collector struct {
	queriers QuerierFactory
	registry *Registry
	pageSize int
	maxPages int
	limiter  *rate.Limiter
	clock    func() time.Time
	logger   zerolog.Logger
}

// Options configures a Collector.
type Options struct {
	Queriers QuerierFactory
	Registry *Registry

	PageSize  int           // records per page, default DefaultPageSize
	MaxPages  int           // safety ceiling per (source, slice), default DefaultMaxPages
	PageDelay time.Duration // politeness spacing between page requests

	Clock  func() time.Time
	Logger *zerolog.Logger
}

// New creates a Collector.
func New(opts Options) *Collector {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	delay := opts.PageDelay
	if delay <= 0 {
		delay = DefaultPageDelay
	}
	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Collector{
		queriers: opts.Queriers,
		registry: registry,
		pageSize: pageSize,
		maxPages: maxPages,
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
		clock:    clock,
		logger:   logger,
	}
}

// Collect drains all pages for one (source, slice) pair. The result always
// carries whatever was accumulated: a transport or protocol failure, or a
// mid-page cancellation, marks Success=false but keeps earlier records.
func (c *Collector) Collect(ctx context.Context, src domain.SourceDescriptor, slice domain.TimeSlice) *domain.PaginationResult {
	start := c.clock()
	result := &domain.PaginationResult{
		SourceName: src.Name,
		Slice:      slice,
	}

	adapter, err := c.registry.Lookup(src.Schema)
	if err != nil {
		return c.finish(result, start, err)
	}
	querier, err := c.queriers(src)
	if err != nil {
		return c.finish(result, start, fmt.Errorf("resolve querier for %s: %w", src.Name, err))
	}

	for page := 0; ; page++ {
		if page >= c.maxPages {
			c.logger.Warn().
				Str("source", src.Name).
				Int("slice", slice.Index).
				Int("max_pages", c.maxPages).
				Msg("page ceiling reached, truncating collection")
			observability.RecordPageCapHit(src.Name)
			return c.finish(result, start, nil)
		}

		// Politeness spacing between page requests.
		if err := c.limiter.Wait(ctx); err != nil {
			return c.finish(result, start, err)
		}

		query, vars := adapter.BuildQuery(src, slice, c.pageSize, page*c.pageSize)
		pageStart := c.clock()
		data, err := querier.Query(ctx, query, vars)
		result.TotalRequests++
		if err != nil {
			return c.finish(result, start, err)
		}

		raws, err := extractRecords(data, adapter.ResultField())
		if err != nil {
			return c.finish(result, start, err)
		}
		result.TotalPages++
		observability.RecordPageFetched(src.Name, len(raws), c.clock().Sub(pageStart).Seconds())

		if len(raws) == 0 {
			return c.finish(result, start, nil)
		}

		now := c.clock()
		for _, raw := range raws {
			report, perr := adapter.ParseRecord(src, raw, now)
			if perr != nil {
				var de *apierr.DataError
				if errors.As(perr, &de) {
					result.SkippedRecords++
					c.logger.Debug().Str("source", src.Name).Err(perr).Msg("skipping malformed record")
					continue
				}
				return c.finish(result, start, perr)
			}
			result.Records = append(result.Records, report)
		}

		// A short page is the last page.
		if len(raws) < c.pageSize {
			return c.finish(result, start, nil)
		}
	}
}

// finish stamps totals and the outcome onto the result.
func (c *Collector) finish(result *domain.PaginationResult, start time.Time, err error) *domain.PaginationResult {
	result.TotalRecords = len(result.Records)
	result.Duration = c.clock().Sub(start)
	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		observability.RecordCollectionError(result.SourceName)
	} else {
		result.Success = true
	}
	return result
}

// extractRecords pulls the record list from the data payload under field.
func extractRecords(data json.RawMessage, field string) ([]RawRecord, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &apierr.ProtocolError{Message: fmt.Sprintf("malformed data payload: %v", err)}
	}

	list, ok := payload[field]
	if !ok {
		return nil, &apierr.ProtocolError{Message: fmt.Sprintf("response missing result field %q", field)}
	}

	var raws []RawRecord
	if err := json.Unmarshal(list, &raws); err != nil {
		return nil, &apierr.ProtocolError{Message: fmt.Sprintf("result field %q is not a record list: %v", field, err)}
	}
	return raws, nil
}
