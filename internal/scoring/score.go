package scoring

import (
	"math"

	"dexradar/internal/domain"
)

// Blend of discovery evidence vs tag evidence in the final score.
const (
	discoveryShare = 0.4
	tagShare       = 0.6
)

// Score combines the discovery score with the weighted tag evidence into the
// final additive score on [0,100]. When every tag has zero weight (all
// metrics missing) the discovery score carries through unchanged.
func Score(discoveryScore int, verdict *domain.TierVerdict) int {
	var weightSum, valueSum float64
	for _, tag := range verdict.Tags {
		weightSum += tag.Weight
		valueSum += tag.Weight * statusValue(tag.Status)
	}
	if weightSum == 0 {
		return clampScore(discoveryScore)
	}

	tagScore := valueSum / weightSum * 100
	blended := discoveryShare*float64(discoveryScore) + tagShare*tagScore
	return clampScore(int(math.Round(blended)))
}

func statusValue(s domain.TagStatus) float64 {
	switch s {
	case domain.TagGreen:
		return 1.0
	case domain.TagYellow:
		return 0.5
	default:
		return 0
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// RecommendationFor maps a tier onto the suggested action.
func RecommendationFor(tier domain.Tier) domain.Recommendation {
	switch tier {
	case domain.TierPremium:
		return domain.RecStrongBuy
	case domain.TierStrong:
		return domain.RecBuy
	case domain.TierSpeculative:
		return domain.RecWatch
	default:
		return domain.RecAvoid
	}
}
