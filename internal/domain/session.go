package domain

import "time"

// Funnel stage names, in execution order.
const (
	StageDiscovery  = "discovery"
	StageOnChain    = "onchain_filter"
	StageEnrichment = "enrichment"
	StageScoring    = "final_scoring"
	StageAlert      = "alert_emission"
)

// Stages lists the funnel stages in execution order.
var Stages = []string{StageDiscovery, StageOnChain, StageEnrichment, StageScoring, StageAlert}

// FunnelSession is the append-only record of one orchestration run. Counters
// are written once at session close and read-only afterwards; stage counts make
// attrition auditable even when a session ends with zero alerts.
type FunnelSession struct {
	ID            string
	StartTime     time.Time
	EndTime       time.Time
	StageCounts   map[string]int // surviving candidates per stage
	StageErrors   map[string]int // isolated per-candidate errors per stage
	APIBudgetUsed map[string]int // external calls per service
	AlertsEmitted int
	Duration      time.Duration
}

// Alert is one emitted alert record for a surviving candidate.
type Alert struct {
	SessionID      string
	PairID         string
	ChainID        string
	TokenSymbol    string
	FinalScore     int
	Recommendation Recommendation
	Tier           Tier
	CriticalFlags  []string
	Tags           []TokenTag
	CreatedAt      int64 // Unix milliseconds
}
