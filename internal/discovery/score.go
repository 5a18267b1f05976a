package discovery

import (
	"strings"

	"dexradar/internal/domain"
)

// Discovery score thresholds. Four additive components, 100 points total.
const (
	liquidityDeepUSD = 100_000.0
	liquidityOkUSD   = 25_000.0
	liquidityMinUSD  = 10_000.0

	activityHighRatio = 0.5
	activityLowRatio  = 0.1

	momentumStrongPct = 20.0

	freshAgeDays    = 45.0
	moderateAgeDays = 60.0
)

// ScoreCandidate grades a raw candidate on the cheap signals available at
// discovery time: liquidity depth, trading activity, price momentum, and
// recency. Returns the score on [0,100] and a human-readable reason.
func ScoreCandidate(rec domain.CandidateReport) (int, string) {
	score := 0
	var reasons []string

	switch {
	case rec.LiquidityUSD >= liquidityDeepUSD:
		score += 30
		reasons = append(reasons, "deep liquidity")
	case rec.LiquidityUSD >= liquidityOkUSD:
		score += 20
		reasons = append(reasons, "solid liquidity")
	case rec.LiquidityUSD >= liquidityMinUSD:
		score += 10
		reasons = append(reasons, "minimal liquidity")
	}

	if rec.LiquidityUSD > 0 {
		ratio := rec.Volume24hUSD / rec.LiquidityUSD
		switch {
		case ratio >= activityHighRatio:
			score += 30
			reasons = append(reasons, "high trading activity")
		case ratio >= activityLowRatio:
			score += 15
			reasons = append(reasons, "moderate trading activity")
		}
	}

	switch {
	case rec.PriceChangePct >= momentumStrongPct:
		score += 20
		reasons = append(reasons, "strong momentum")
	case rec.PriceChangePct > 0:
		score += 10
		reasons = append(reasons, "positive momentum")
	}

	ageDays := rec.AgeMinutes / (24 * 60)
	switch {
	case ageDays <= freshAgeDays:
		score += 20
		reasons = append(reasons, "recently created")
	case ageDays <= moderateAgeDays:
		score += 10
		reasons = append(reasons, "moderately aged")
	}

	if len(reasons) == 0 {
		return 0, "no positive signals"
	}
	return score, strings.Join(reasons, ", ")
}
