package domain

// CandidateReport is a standardized token pair record produced by the
// Discovery stage. Immutable once emitted: later funnel stages annotate via
// RiskAnnotated / ScoredCandidate wrappers instead of mutating in place.
type CandidateReport struct {
	PairID          string
	ChainID         string
	TokenAddress    string
	TokenSymbol     string
	TokenName       string
	LiquidityUSD    float64
	Volume24hUSD    float64
	PriceChangePct  float64
	CreatedAt       int64 // pair creation, Unix milliseconds
	AgeMinutes      float64
	DiscoveryScore  int // [0, 100]
	DiscoveryReason string
	Source          string // source descriptor name
}

// RiskAnnotated extends a CandidateReport with the OnChain filter stage's
// result. Risk is nil when the analysis failed; RiskError carries the reason
// and the candidate proceeds without on-chain data.
type RiskAnnotated struct {
	CandidateReport
	Risk      *OnChainRiskResult
	RiskError string
}

// ScoredCandidate extends a RiskAnnotated candidate with enrichment data and
// the final scoring verdict.
type ScoredCandidate struct {
	RiskAnnotated
	Security      *SecurityReport // nil when enrichment was denied or failed
	SecurityError string
	Verdict       *TierVerdict
	FinalScore    int // [0, 100]
}

// SecurityReport holds paid enrichment data for one token: contract security
// flags and tax levels from a token security API.
type SecurityReport struct {
	IsHoneypot       bool
	ContractVerified bool
	BuyTaxPct        float64
	SellTaxPct       float64
	HolderCount      int
	APICallsUsed     int
}
