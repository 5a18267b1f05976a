package domain

// RiskLevel grades the overall on-chain risk of a candidate.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "SAFE"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// IsValid checks if the risk level is a known value.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskSafe, RiskModerate, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// OnChainRiskResult is produced by the on-chain risk analyzer for one
// candidate. CRITICAL vetoes the candidate regardless of score.
type OnChainRiskResult struct {
	LPLockPct      float64
	HolderTop10Pct float64
	OverallRisk    RiskLevel
	APICallsUsed   int
}
