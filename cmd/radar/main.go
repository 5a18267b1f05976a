// Package main provides the radar service: scheduled funnel sessions over the
// configured sources, a livestream subscription between runs, and Prometheus
// metrics on an HTTP endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dexradar/internal/alert"
	"dexradar/internal/budget"
	"dexradar/internal/collector"
	"dexradar/internal/config"
	"dexradar/internal/discovery"
	"dexradar/internal/domain"
	"dexradar/internal/funnel"
	"dexradar/internal/livestream"
	"dexradar/internal/observability"
	"dexradar/internal/onchain"
	"dexradar/internal/scoring"
	"dexradar/internal/screener"
	"dexradar/internal/security"
	"dexradar/internal/storage"
	chstore "dexradar/internal/storage/clickhouse"
	"dexradar/internal/storage/memory"
	pgstore "dexradar/internal/storage/postgres"
	"dexradar/internal/subgraph"
	"dexradar/internal/timeslice"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "Path to the YAML config file")
	interval := flag.Duration("interval", 1*time.Hour, "Funnel session interval")
	once := flag.Bool("once", false, "Run a single session and exit")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of configured DSNs")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if *debug {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}
	if len(cfg.Sources) == 0 {
		logger.Fatal().Msg("no sources configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	stores, cleanup, err := createStores(ctx, cfg, *useMemory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create stores")
	}
	defer cleanup()

	go serveMetrics(*metricsAddr, logger)

	app, err := buildApp(ctx, cfg, stores, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("build funnel")
	}

	if *once {
		if err := app.runSession(ctx); err != nil {
			logger.Fatal().Err(err).Msg("funnel session failed")
		}
		return
	}

	// First session immediately, then on the interval.
	if err := app.runSession(ctx); err != nil {
		logger.Error().Err(err).Msg("funnel session failed")
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutdown complete")
			return
		case <-ticker.C:
			if err := app.runSession(ctx); err != nil {
				logger.Error().Err(err).Msg("funnel session failed")
			}
		}
	}
}

// stores groups the storage backends behind the funnel's interfaces.
type stores struct {
	candidates storage.CandidateStore
	alerts     storage.AlertStore
	sessions   storage.SessionStore
	snapshots  storage.SnapshotStore
}

// createStores wires Postgres and ClickHouse when DSNs are configured, falling
// back to in-memory stores otherwise.
func createStores(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) (*stores, func(), error) {
	if useMemory || (cfg.Storage.PostgresDSN == "" && cfg.Storage.ClickHouseDSN == "") {
		logger.Info().Msg("using in-memory storage")
		return &stores{
			candidates: memory.NewCandidateStore(),
			alerts:     memory.NewAlertStore(),
			sessions:   memory.NewSessionStore(),
			snapshots:  memory.NewSnapshotStore(),
		}, func() {}, nil
	}

	s := &stores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := pgstore.Migrate(ctx, pool, "sql/postgres"); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.candidates = pgstore.NewCandidateStore(pool)
		s.alerts = pgstore.NewAlertStore(pool)
		s.sessions = pgstore.NewSessionStore(pool)
	} else {
		s.candidates = memory.NewCandidateStore()
		s.alerts = memory.NewAlertStore()
		s.sessions = memory.NewSessionStore()
	}

	if cfg.Storage.ClickHouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.Storage.ClickHouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		snapshots := chstore.NewSnapshotStore(conn)
		if err := snapshots.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ensure clickhouse schema: %w", err)
		}
		s.snapshots = snapshots
	} else {
		s.snapshots = memory.NewSnapshotStore()
	}

	return s, cleanup, nil
}

// app holds everything one funnel session needs.
type app struct {
	cfg     *config.Config
	orch    *funnel.Orchestrator
	sources []domain.SourceDescriptor
	logger  zerolog.Logger
}

// buildApp assembles the funnel from the configuration.
func buildApp(ctx context.Context, cfg *config.Config, st *stores, logger zerolog.Logger) (*app, error) {
	tracker := budget.NewTracker(cfg.QuotaTable())

	// One subgraph client per endpoint, shared across sources.
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

	sessionOpts := discovery.Options{
		Collector: coll,
		Logger:    &logger,
	}
	if cfg.Endpoints.ScreenerBaseURL != "" {
		sessionOpts.Screener = screener.NewClient(cfg.Endpoints.ScreenerBaseURL,
			screener.WithBudget(tracker, screener.SourceName),
			screener.WithLogger(logger),
		)
	}
	if cfg.Endpoints.LivestreamURL != "" {
		stream := livestream.NewStream(cfg.Endpoints.LivestreamURL, livestream.DefaultConfig(), logger)
		live, err := stream.Subscribe(ctx)
		if err != nil {
			return nil, fmt.Errorf("subscribe livestream: %w", err)
		}
		sessionOpts.Live = live
	}

	var risk funnel.RiskAnalyzer
	if cfg.Endpoints.ExplorerBaseURL != "" {
		risk = onchain.NewAnalyzer(cfg.Endpoints.ExplorerBaseURL,
			onchain.WithBudget(tracker),
			onchain.WithLogger(logger),
		)
	}
	var sec funnel.SecurityProvider
	if cfg.Endpoints.SecurityBaseURL != "" {
		sec = security.NewClient(cfg.Endpoints.SecurityBaseURL,
			security.WithBudget(tracker),
			security.WithLogger(logger),
		)
	}

	notifiers := []alert.Notifier{alert.NewLogNotifier(logger)}
	if cfg.Telegram.Enabled {
		token := os.Getenv("TELEGRAM_BOT_TOKEN")
		if token == "" {
			return nil, fmt.Errorf("telegram enabled but TELEGRAM_BOT_TOKEN is not set")
		}
		tg, err := alert.NewTelegramNotifier(token, cfg.Telegram.ChatID, logger)
		if err != nil {
			return nil, fmt.Errorf("create telegram notifier: %w", err)
		}
		notifiers = append(notifiers, tg)
	}

	engine := scoring.NewEngine(
		scoring.Config{StrongMinCriteria: cfg.Scoring.StrongMinCriteria},
		scoring.WithLogger(logger),
	)

	orch := funnel.New(funnel.Options{
		Discovery:      discovery.NewSession(sessionOpts),
		Risk:           risk,
		Security:       sec,
		Engine:         engine,
		Budget:         tracker,
		Notifiers:      notifiers,
		Thresholds:     cfg.FunnelThresholds(),
		CandidateStore: st.candidates,
		AlertStore:     st.alerts,
		SessionStore:   st.sessions,
		SnapshotStore:  st.snapshots,
		Sources:        cfg.SourceDescriptors(),
		Logger:         &logger,
	})

	return &app{cfg: cfg, orch: orch, sources: cfg.SourceDescriptors(), logger: logger}, nil
}

// runSession generates fresh slices and runs the funnel once.
func (a *app) runSession(ctx context.Context) error {
	slices, err := timeslice.Generate(
		a.cfg.Slicing.MinAgeDays, a.cfg.Slicing.MaxAgeDays, a.cfg.Slicing.SliceDays,
		time.Now().UTC(),
		timeslice.WithLogger(a.logger),
	)
	if err != nil {
		return fmt.Errorf("generate slices: %w", err)
	}
	warnings, err := timeslice.Validate(slices)
	if err != nil {
		return fmt.Errorf("validate slices: %w", err)
	}
	for _, w := range warnings {
		a.logger.Warn().Str("warning", w).Msg("slice validation")
	}

	orch := a.orch.WithSlices(slices)
	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("session_id", result.Session.ID).
		Int("candidates", len(result.Candidates)).
		Int("alerts", len(result.Alerts)).
		Int("vetoed", result.Vetoed).
		Int("errors", len(result.Errors)).
		Msg("session summary")
	return nil
}

// serveMetrics exposes health and Prometheus metrics.
func serveMetrics(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
