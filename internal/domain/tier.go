package domain

// Tier is the aggregate verdict derived from a candidate's full tag set.
type Tier string

const (
	TierPremium     Tier = "PREMIUM"
	TierStrong      Tier = "STRONG"
	TierSpeculative Tier = "SPECULATIVE"
	TierAvoid       Tier = "AVOID"
)

// IsValid checks if the tier is a known value.
func (t Tier) IsValid() bool {
	switch t {
	case TierPremium, TierStrong, TierSpeculative, TierAvoid:
		return true
	}
	return false
}

// Recommendation is the action suggested for a scored candidate.
type Recommendation string

const (
	RecStrongBuy Recommendation = "STRONG_BUY"
	RecBuy       Recommendation = "BUY"
	RecWatch     Recommendation = "WATCH"
	RecAvoid     Recommendation = "AVOID"
)

// TierVerdict is the scoring engine's output for one candidate.
type TierVerdict struct {
	Tier             Tier
	Tags             []TokenTag
	CriticalFlags    []string
	Confidence       float64 // [0, 1]
	DataCompleteness float64 // [0, 1], fraction of metric categories with data
}
