// Package funnel sequences the discovery funnel: Discovery → OnChain-risk
// filter → paid Enrichment → Final scoring → Alert emission. Stages run in
// order, never backwards; candidate count shrinks and per-candidate cost
// grows stage by stage.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"dexradar/internal/alert"
	"dexradar/internal/budget"
	"dexradar/internal/discovery"
	"dexradar/internal/domain"
	"dexradar/internal/idhash"
	"dexradar/internal/observability"
	"dexradar/internal/scoring"
	"dexradar/internal/security"
	"dexradar/internal/storage"
)

// Discoverer runs one discovery pass. Implemented by discovery.Session.
type Discoverer interface {
	Run(ctx context.Context, sources []domain.SourceDescriptor, slices []domain.TimeSlice) *discovery.Result
}

// RiskAnalyzer grades one candidate's on-chain risk. Implemented by
// onchain.Analyzer.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, chainID, tokenAddress, pairID string) (*domain.OnChainRiskResult, error)
}

// SecurityProvider fetches the paid token security report. Implemented by
// security.Client.
type SecurityProvider interface {
	TokenReport(ctx context.Context, chainID, tokenAddress string) (*domain.SecurityReport, error)
}

// Thresholds are the stage admission parameters.
type Thresholds struct {
	OnChainMinScore int // minimum discovery score admitted to the on-chain filter
	OnChainMax      int // candidate cap entering the on-chain filter

	EnrichTopK        int // survivors admitted to enrichment, by discovery score
	EnrichBaseBar     int // admission bar with comfortable quota
	EnrichHighBar     int // admission bar with scarce quota
	QuotaLowWatermark int // remaining daily quota below this switches to the high bar

	AlertMinScore int // minimum final score for an alert
	Alertable     []domain.Recommendation
}

// DefaultThresholds returns the default stage parameters.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OnChainMinScore:   40,
		OnChainMax:        50,
		EnrichTopK:        20,
		EnrichBaseBar:     55,
		EnrichHighBar:     75,
		QuotaLowWatermark: 50,
		AlertMinScore:     70,
		Alertable:         []domain.Recommendation{domain.RecStrongBuy, domain.RecBuy},
	}
}

// Orchestrator runs the five funnel stages over one session.
type Orchestrator struct {
	discovery  Discoverer
	risk       RiskAnalyzer
	security   SecurityProvider
	engine     *scoring.Engine
	budget     *budget.Tracker
	notifiers  []alert.Notifier
	thresholds Thresholds

	candidateStore storage.CandidateStore
	alertStore     storage.AlertStore
	sessionStore   storage.SessionStore
	snapshotStore  storage.SnapshotStore

	sources []domain.SourceDescriptor
	slices  []domain.TimeSlice

	clock  func() time.Time
	logger zerolog.Logger
}

// Options configures an Orchestrator. Stores and notifiers are optional;
// a nil store skips that persistence concern.
type Options struct {
	Discovery Discoverer
	Risk      RiskAnalyzer
	Security  SecurityProvider
	Engine    *scoring.Engine
	Budget    *budget.Tracker
	Notifiers []alert.Notifier

	Thresholds Thresholds

	CandidateStore storage.CandidateStore
	AlertStore     storage.AlertStore
	SessionStore   storage.SessionStore
	SnapshotStore  storage.SnapshotStore

	Sources []domain.SourceDescriptor
	Slices  []domain.TimeSlice

	Clock  func() time.Time
	Logger *zerolog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	thresholds := opts.Thresholds
	if thresholds.OnChainMax == 0 && thresholds.AlertMinScore == 0 {
		thresholds = DefaultThresholds()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	tracker := opts.Budget
	if tracker == nil {
		tracker = budget.NewTracker(nil)
	}

	return &Orchestrator{
		discovery:      opts.Discovery,
		risk:           opts.Risk,
		security:       opts.Security,
		engine:         opts.Engine,
		budget:         tracker,
		notifiers:      opts.Notifiers,
		thresholds:     thresholds,
		candidateStore: opts.CandidateStore,
		alertStore:     opts.AlertStore,
		sessionStore:   opts.SessionStore,
		snapshotStore:  opts.SnapshotStore,
		sources:        opts.Sources,
		slices:         opts.Slices,
		clock:          clock,
		logger:         logger,
	}
}

// WithSlices returns a copy of the orchestrator targeting the given slices.
// Slices are regenerated per session since they anchor to the current time.
func (o *Orchestrator) WithSlices(slices []domain.TimeSlice) *Orchestrator {
	c := *o
	c.slices = slices
	return &c
}

// Result is the output of one funnel run.
type Result struct {
	Session    *domain.FunnelSession
	Candidates []domain.ScoredCandidate
	Alerts     []domain.Alert
	Vetoed     int
	Errors     []string
}

// Run executes the funnel once. A run can finish with zero alerts; the
// session's stage counts and error counts always explain the attrition.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	start := o.clock()
	session := &domain.FunnelSession{
		ID:          idhash.SessionID(start),
		StartTime:   start,
		StageCounts: make(map[string]int),
		StageErrors: make(map[string]int),
	}
	result := &Result{Session: session}

	// Stage 1: discovery.
	disc := o.discovery.Run(ctx, o.sources, o.slices)
	session.StageCounts[domain.StageDiscovery] = len(disc.Candidates)
	session.StageErrors[domain.StageDiscovery] = len(disc.Errors)
	result.Errors = append(result.Errors, disc.Errors...)
	o.archiveSnapshot(ctx, session.ID, disc.Candidates, result)

	// Stage 2: on-chain risk filter.
	annotated, vetoed := o.runOnChain(ctx, disc.Candidates, session, result)
	result.Vetoed = vetoed
	session.StageCounts[domain.StageOnChain] = len(annotated)

	// Stage 3: paid enrichment.
	enriched := o.runEnrichment(ctx, annotated, session, result)
	session.StageCounts[domain.StageEnrichment] = len(enriched)

	// Stage 4: final scoring.
	scored := o.runScoring(ctx, enriched, session, result)
	session.StageCounts[domain.StageScoring] = len(scored)
	result.Candidates = scored

	// Stage 5: alert emission.
	alerts := o.runAlerts(ctx, scored, session, result)
	session.StageCounts[domain.StageAlert] = len(alerts)
	result.Alerts = alerts

	// Finalize once; the session record is read-only afterwards.
	session.EndTime = o.clock()
	session.Duration = session.EndTime.Sub(session.StartTime)
	session.APIBudgetUsed = o.budget.Snapshot()
	session.AlertsEmitted = len(alerts)

	for stage, count := range session.StageCounts {
		observability.RecordStageOutput(stage, count)
	}
	for service, calls := range session.APIBudgetUsed {
		observability.RecordAPICalls(service, calls)
	}
	observability.RecordSessionFinalized(session.Duration.Seconds(), session.EndTime.Unix())

	if o.sessionStore != nil {
		if err := o.sessionStore.Insert(ctx, session); err != nil {
			return result, fmt.Errorf("persist session %s: %w", session.ID, err)
		}
	}

	o.logger.Info().
		Str("session_id", session.ID).
		Int("discovered", session.StageCounts[domain.StageDiscovery]).
		Int("vetoed", vetoed).
		Int("alerts", len(alerts)).
		Dur("duration", session.Duration).
		Msg("funnel session complete")

	return result, nil
}

// runOnChain admits candidates above the discovery score bar, caps the batch,
// and vetoes CRITICAL risk outright. An analysis failure is not a veto: the
// candidate proceeds without on-chain data, flagged with the error.
func (o *Orchestrator) runOnChain(ctx context.Context, candidates []domain.CandidateReport, session *domain.FunnelSession, result *Result) ([]domain.RiskAnnotated, int) {
	admitted := make([]domain.CandidateReport, 0, len(candidates))
	for _, c := range candidates {
		if c.DiscoveryScore >= o.thresholds.OnChainMinScore {
			admitted = append(admitted, c)
		}
	}
	sort.SliceStable(admitted, func(i, j int) bool {
		return admitted[i].DiscoveryScore > admitted[j].DiscoveryScore
	})
	if len(admitted) > o.thresholds.OnChainMax {
		admitted = admitted[:o.thresholds.OnChainMax]
	}

	var out []domain.RiskAnnotated
	vetoed := 0
	for _, c := range admitted {
		annotated := domain.RiskAnnotated{CandidateReport: c}

		if o.risk != nil {
			risk, err := o.risk.Analyze(ctx, c.ChainID, c.TokenAddress, c.PairID)
			switch {
			case err != nil:
				annotated.RiskError = err.Error()
				session.StageErrors[domain.StageOnChain]++
				result.Errors = append(result.Errors, fmt.Sprintf("onchain %s/%s: %v", c.ChainID, c.PairID, err))
			case risk.OverallRisk == domain.RiskCritical:
				vetoed++
				observability.RecordVeto()
				o.logger.Debug().Str("pair", c.PairID).Int("score", c.DiscoveryScore).Msg("candidate vetoed on critical risk")
				continue
			default:
				annotated.Risk = risk
			}
		}
		out = append(out, annotated)
	}
	return out, vetoed
}

// runEnrichment takes the top-K survivors and spends a paid security call on
// each one the admission predicate approves. Denied candidates leave the
// funnel here but stay in the stage-2 record; enrichment failures continue
// without data.
func (o *Orchestrator) runEnrichment(ctx context.Context, candidates []domain.RiskAnnotated, session *domain.FunnelSession, result *Result) []domain.ScoredCandidate {
	sorted := make([]domain.RiskAnnotated, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DiscoveryScore > sorted[j].DiscoveryScore
	})
	if len(sorted) > o.thresholds.EnrichTopK {
		sorted = sorted[:o.thresholds.EnrichTopK]
	}

	var out []domain.ScoredCandidate
	for _, c := range sorted {
		if !o.admitEnrichment(c.DiscoveryScore) {
			observability.RecordEnrichmentDenied()
			o.logger.Debug().Str("pair", c.PairID).Int("score", c.DiscoveryScore).Msg("enrichment denied by budget predicate")
			continue
		}

		scored := domain.ScoredCandidate{RiskAnnotated: c}
		if o.security != nil {
			report, err := o.security.TokenReport(ctx, c.ChainID, c.TokenAddress)
			if err != nil {
				scored.SecurityError = err.Error()
				session.StageErrors[domain.StageEnrichment]++
				result.Errors = append(result.Errors, fmt.Sprintf("enrich %s/%s: %v", c.ChainID, c.PairID, err))
			} else {
				scored.Security = report
			}
		}
		out = append(out, scored)
	}
	return out
}

// admitEnrichment is the budget-aware admission predicate: with scarce
// remaining daily quota only high-scoring candidates earn a paid call.
func (o *Orchestrator) admitEnrichment(score int) bool {
	remaining := o.budget.RemainingDay(security.ServiceName)
	bar := o.thresholds.EnrichBaseBar
	if remaining != budget.Unlimited && remaining < o.thresholds.QuotaLowWatermark {
		bar = o.thresholds.EnrichHighBar
	}
	return score > bar
}

// runScoring recombines every accumulated signal through the scoring engine
// and re-sorts by final score.
func (o *Orchestrator) runScoring(ctx context.Context, candidates []domain.ScoredCandidate, session *domain.FunnelSession, result *Result) []domain.ScoredCandidate {
	out := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		verdict := o.engine.Classify(buildMetrics(c))
		c.Verdict = verdict
		c.FinalScore = scoring.Score(c.DiscoveryScore, verdict)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalScore > out[j].FinalScore
	})

	if o.candidateStore != nil {
		for i := range out {
			err := o.candidateStore.Insert(ctx, session.ID, &out[i])
			if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				session.StageErrors[domain.StageScoring]++
				result.Errors = append(result.Errors, fmt.Sprintf("persist candidate %s: %v", out[i].PairID, err))
			}
		}
	}
	return out
}

// runAlerts keeps candidates above the alert bar with an alertable
// recommendation and delivers one alert each. Delivery failures are logged
// and counted, never fatal.
func (o *Orchestrator) runAlerts(ctx context.Context, candidates []domain.ScoredCandidate, session *domain.FunnelSession, result *Result) []domain.Alert {
	var alerts []domain.Alert
	now := o.clock()

	for _, c := range candidates {
		if c.FinalScore < o.thresholds.AlertMinScore || c.Verdict == nil {
			continue
		}
		if !o.alertable(scoring.RecommendationFor(c.Verdict.Tier)) {
			continue
		}

		a := alert.Build(session.ID, c, now)
		alerts = append(alerts, a)
		observability.RecordAlert()

		if o.alertStore != nil {
			if err := o.alertStore.Insert(ctx, &a); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				session.StageErrors[domain.StageAlert]++
				result.Errors = append(result.Errors, fmt.Sprintf("persist alert %s: %v", a.PairID, err))
			}
		}
		for _, n := range o.notifiers {
			if err := n.Notify(ctx, a); err != nil {
				session.StageErrors[domain.StageAlert]++
				result.Errors = append(result.Errors, fmt.Sprintf("notify %s: %v", a.PairID, err))
				o.logger.Warn().Err(err).Str("pair", a.PairID).Msg("alert delivery failed")
			}
		}
	}
	return alerts
}

func (o *Orchestrator) alertable(rec domain.Recommendation) bool {
	for _, r := range o.thresholds.Alertable {
		if r == rec {
			return true
		}
	}
	return false
}

func (o *Orchestrator) archiveSnapshot(ctx context.Context, sessionID string, reports []domain.CandidateReport, result *Result) {
	if o.snapshotStore == nil || len(reports) == 0 {
		return
	}
	if err := o.snapshotStore.InsertBatch(ctx, sessionID, reports); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("archive snapshot: %v", err))
		o.logger.Warn().Err(err).Msg("snapshot archive failed")
	}
}

// buildMetrics maps a candidate's accumulated signals onto the scoring
// engine's input. Missing stages leave the corresponding fields nil.
func buildMetrics(c domain.ScoredCandidate) scoring.Metrics {
	var m scoring.Metrics

	if c.LiquidityUSD > 0 {
		ratio := c.Volume24hUSD / c.LiquidityUSD
		m.VolumeToLiquidity = &ratio
	}
	if c.Risk != nil {
		m.LPLockPct = &c.Risk.LPLockPct
		m.HolderTop10Pct = &c.Risk.HolderTop10Pct
	}
	if c.Security != nil {
		m.IsHoneypot = &c.Security.IsHoneypot
		m.ContractVerified = &c.Security.ContractVerified
		m.BuyTaxPct = &c.Security.BuyTaxPct
		m.SellTaxPct = &c.Security.SellTaxPct
	}
	return m
}
