// Package main provides a one-shot discovery run: collect over the configured
// sources and slices, score the candidates, and print the result. No paid
// stages, no persistence; useful for tuning sources and thresholds.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dexradar/internal/budget"
	"dexradar/internal/collector"
	"dexradar/internal/config"
	"dexradar/internal/discovery"
	"dexradar/internal/domain"
	"dexradar/internal/screener"
	"dexradar/internal/subgraph"
	"dexradar/internal/timeslice"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	top := flag.Int("top", 25, "Number of candidates to print")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(level)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling discovery...\n", sig)
		cancel()
	}()

	slices, err := timeslice.Generate(
		cfg.Slicing.MinAgeDays, cfg.Slicing.MaxAgeDays, cfg.Slicing.SliceDays,
		time.Now().UTC(),
		timeslice.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating slices: %v\n", err)
		os.Exit(1)
	}
	warnings, err := timeslice.Validate(slices)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error validating slices: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	tracker := budget.NewTracker(cfg.QuotaTable())

	clients := make(map[string]*subgraph.Client)
	queriers := func(src domain.SourceDescriptor) (collector.Querier, error) {
		if cfg.Endpoints.SubgraphBaseURL == "" {
			return nil, fmt.Errorf("no subgraph base URL configured")
		}
		url := strings.TrimRight(cfg.Endpoints.SubgraphBaseURL, "/") + "/" + src.EndpointID
		c, ok := clients[url]
		if !ok {
			c = subgraph.NewClient(url,
				subgraph.WithBudget(tracker, "subgraph"),
				subgraph.WithLogger(logger),
			)
			clients[url] = c
		}
		return c, nil
	}

	coll := collector.New(collector.Options{
		Queriers:  queriers,
		PageSize:  cfg.Collector.PageSize,
		MaxPages:  cfg.Collector.MaxPages,
		PageDelay: cfg.PageDelay(),
		Logger:    &logger,
	})

	opts := discovery.Options{Collector: coll, Logger: &logger}
	if cfg.Endpoints.ScreenerBaseURL != "" {
		opts.Screener = screener.NewClient(cfg.Endpoints.ScreenerBaseURL,
			screener.WithBudget(tracker, screener.SourceName),
			screener.WithLogger(logger),
		)
	}

	fmt.Println("=== Discovery ===")
	fmt.Printf("Sources: %d, slices: %d (age %.0f-%.0f days)\n",
		len(cfg.Sources), len(slices), cfg.Slicing.MinAgeDays, cfg.Slicing.MaxAgeDays)

	result := discovery.NewSession(opts).Run(ctx, cfg.SourceDescriptors(), slices)

	fmt.Printf("\nCompleted in %v:\n", result.Duration.Round(time.Millisecond))
	fmt.Printf("  Candidates: %d\n", len(result.Candidates))
	fmt.Printf("  Duplicates: %d\n", result.Duplicates)
	fmt.Printf("  Pages:      %d\n", countPages(result.PageResults))
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors:     %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	limit := *top
	if limit > len(result.Candidates) {
		limit = len(result.Candidates)
	}
	if limit == 0 {
		return
	}

	fmt.Printf("\nTop %d by discovery score:\n", limit)
	fmt.Printf("%-5s %-12s %-10s %-44s %12s %12s\n", "SCORE", "SYMBOL", "CHAIN", "PAIR", "LIQ_USD", "VOL24_USD")
	for _, c := range result.Candidates[:limit] {
		fmt.Printf("%-5d %-12s %-10s %-44s %12.0f %12.0f\n",
			c.DiscoveryScore, c.TokenSymbol, c.ChainID, c.PairID, c.LiquidityUSD, c.Volume24hUSD)
	}
}

func countPages(results []*domain.PaginationResult) int {
	total := 0
	for _, r := range results {
		total += r.TotalPages
	}
	return total
}
