// Package discovery fans collection out over every active source and time
// slice, merges in screener and live-stream records, and deduplicates the
// stream into one scored candidate list.
package discovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"dexradar/internal/domain"
	"dexradar/internal/idhash"
	"dexradar/internal/timeslice"
)

// PageCollector drains one (source, slice) pair. Implemented by
// collector.Collector.
type PageCollector interface {
	Collect(ctx context.Context, src domain.SourceDescriptor, slice domain.TimeSlice) *domain.PaginationResult
}

// PairScreener lists recently created pairs per chain. Implemented by
// screener.Client.
type PairScreener interface {
	LatestPairs(ctx context.Context, chainID string) ([]domain.CandidateReport, int, error)
}

// Result is the output of one discovery run. PageResults is the unit of
// partial failure: a failed slice keeps its accumulated records and never
// discards sibling slices.
type Result struct {
	Candidates  []domain.CandidateReport
	PageResults []*domain.PaginationResult
	Duplicates  int
	Errors      []string
	Duration    time.Duration
}

// Session runs one discovery pass. Fresh per run; holds no state between runs.
type Session struct {
	collector PageCollector
	screener  PairScreener
	live      <-chan domain.CandidateReport
	clock     func() time.Time
	logger    zerolog.Logger
}

// Options configures a Session.
type Options struct {
	Collector PageCollector
	Screener  PairScreener // optional per-chain screener merge
	Live      <-chan domain.CandidateReport

	Clock  func() time.Time
	Logger *zerolog.Logger
}

// NewSession creates a discovery session.
func NewSession(opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Session{
		collector: opts.Collector,
		screener:  opts.Screener,
		live:      opts.Live,
		clock:     clock,
		logger:    logger,
	}
}

// Run collects over sources x slices, newest slices first, merges screener
// and buffered live-stream records, deduplicates on (chain_id, pair_id) with
// first-seen-wins, scores every survivor, and returns candidates ordered by
// discovery score descending.
func (s *Session) Run(ctx context.Context, sources []domain.SourceDescriptor, slices []domain.TimeSlice) *Result {
	start := s.clock()
	result := &Result{}

	ordered := make([]domain.TimeSlice, len(slices))
	copy(ordered, slices)
	timeslice.NewestFirst(ordered)

	bySources := make([]domain.SourceDescriptor, len(sources))
	copy(bySources, sources)
	sort.SliceStable(bySources, func(i, j int) bool {
		return bySources[i].Priority < bySources[j].Priority
	})

	seen := make(map[string]bool)

	for _, src := range bySources {
		if !src.Active {
			continue
		}
		for _, slice := range ordered {
			if ctx.Err() != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("discovery aborted: %v", ctx.Err()))
				return s.finish(result, seen, start)
			}

			page := s.collector.Collect(ctx, src, slice)
			result.PageResults = append(result.PageResults, page)
			if !page.Success {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s slice %d: %s", src.Name, slice.Index, page.ErrorMessage))
			}
			s.merge(result, seen, page.Records)
		}
	}

	s.mergeScreener(ctx, result, seen, sources)
	s.drainLive(result, seen)

	return s.finish(result, seen, start)
}

// merge adds records not seen before. First-seen wins: subgraph slices run
// first and their records take precedence over screener and live copies.
func (s *Session) merge(result *Result, seen map[string]bool, records []domain.CandidateReport) {
	for _, rec := range records {
		key := idhash.PairKey(rec.ChainID, rec.PairID)
		if seen[key] {
			result.Duplicates++
			continue
		}
		seen[key] = true
		result.Candidates = append(result.Candidates, rec)
	}
}

// mergeScreener pulls the screener's latest pairs for every distinct chain.
// Screener failures degrade discovery, they never abort it.
func (s *Session) mergeScreener(ctx context.Context, result *Result, seen map[string]bool, sources []domain.SourceDescriptor) {
	if s.screener == nil {
		return
	}

	chains := make(map[string]bool)
	for _, src := range sources {
		if src.Active && !chains[src.ChainID] {
			chains[src.ChainID] = true
		}
	}

	ordered := make([]string, 0, len(chains))
	for chain := range chains {
		ordered = append(ordered, chain)
	}
	sort.Strings(ordered)

	for _, chain := range ordered {
		records, skipped, err := s.screener.LatestPairs(ctx, chain)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("screener %s: %v", chain, err))
			continue
		}
		if skipped > 0 {
			s.logger.Debug().Str("chain", chain).Int("skipped", skipped).Msg("screener skipped malformed records")
		}
		s.merge(result, seen, records)
	}
}

// drainLive empties whatever the live stream has buffered without blocking.
func (s *Session) drainLive(result *Result, seen map[string]bool) {
	if s.live == nil {
		return
	}
	for {
		select {
		case rec, ok := <-s.live:
			if !ok {
				return
			}
			s.merge(result, seen, []domain.CandidateReport{rec})
		default:
			return
		}
	}
}

func (s *Session) finish(result *Result, seen map[string]bool, start time.Time) *Result {
	for i := range result.Candidates {
		score, reason := ScoreCandidate(result.Candidates[i])
		result.Candidates[i].DiscoveryScore = score
		result.Candidates[i].DiscoveryReason = reason
	}

	sort.SliceStable(result.Candidates, func(i, j int) bool {
		return result.Candidates[i].DiscoveryScore > result.Candidates[j].DiscoveryScore
	})

	result.Duration = s.clock().Sub(start)

	s.logger.Info().
		Int("candidates", len(result.Candidates)).
		Int("duplicates", result.Duplicates).
		Int("page_results", len(result.PageResults)).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("discovery run complete")

	return result
}
