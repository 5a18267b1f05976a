package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexradar/internal/domain"
)

func fp(v float64) *float64 { return &v }
func bp(v bool) *bool       { return &v }

// allGreen is a metric set that satisfies every category.
func allGreen() Metrics {
	return Metrics{
		VolumeToLiquidity: fp(0.8),
		VolumeAccel:       fp(2.0),
		IsHoneypot:        bp(false),
		ContractVerified:  bp(true),
		BuyTaxPct:         fp(2),
		SellTaxPct:        fp(2),
		LPLockPct:         fp(95),
		HolderTop10Pct:    fp(20),
	}
}

func TestClassify_AllGreenIsPremium(t *testing.T) {
	engine := NewEngine(Config{})
	verdict := engine.Classify(allGreen())

	assert.Equal(t, domain.TierPremium, verdict.Tier)
	assert.Empty(t, verdict.CriticalFlags)
	assert.Equal(t, 1.0, verdict.DataCompleteness)
	require.Len(t, verdict.Tags, 7)

	seen := map[string]bool{}
	for _, tag := range verdict.Tags {
		assert.Equal(t, domain.TagGreen, tag.Status, tag.Category)
		assert.False(t, seen[tag.Category], "duplicate tag for %s", tag.Category)
		seen[tag.Category] = true
	}
}

func TestClassify_CriticalFlagForcesAvoid(t *testing.T) {
	// Monotonicity: one RED critical tag on an otherwise premium-grade
	// metric set must downgrade the whole verdict.
	m := allGreen()
	m.IsHoneypot = bp(true)

	verdict := NewEngine(Config{}).Classify(m)
	assert.Equal(t, domain.TierAvoid, verdict.Tier)
	assert.Equal(t, []string{FlagHoneypot}, verdict.CriticalFlags)
}

func TestClassify_ExtremeBuyTaxIsAvoid(t *testing.T) {
	m := allGreen()
	m.BuyTaxPct = fp(60)

	verdict := NewEngine(Config{}).Classify(m)
	assert.Equal(t, domain.TierAvoid, verdict.Tier)
	assert.Contains(t, verdict.CriticalFlags, FlagExtremeTaxes)

	var taxTag *domain.TokenTag
	for i := range verdict.Tags {
		if verdict.Tags[i].Category == domain.CategoryTax {
			taxTag = &verdict.Tags[i]
		}
	}
	require.NotNil(t, taxTag)
	assert.Equal(t, FlagExtremeTaxes, taxTag.Name)
	assert.Equal(t, domain.TagRed, taxTag.Status)
}

func TestClassify_ConfidenceFlooredWithRedTag(t *testing.T) {
	// Mostly missing data plus a RED tag: raw confidence would fall well
	// below 0.5, the floor must hold it there.
	m := Metrics{IsHoneypot: bp(true)}

	verdict := NewEngine(Config{}).Classify(m)
	assert.Equal(t, domain.TierAvoid, verdict.Tier)
	assert.GreaterOrEqual(t, verdict.Confidence, 0.5)
	assert.LessOrEqual(t, verdict.Confidence, 1.0)
}

func TestClassify_StrongWithEnoughCriteria(t *testing.T) {
	// Unverified contract blocks PREMIUM but is not a critical flag;
	// enough green criteria remain for STRONG.
	m := allGreen()
	m.ContractVerified = nil

	verdict := NewEngine(Config{StrongMinCriteria: 3}).Classify(m)
	assert.Equal(t, domain.TierStrong, verdict.Tier)
	assert.Empty(t, verdict.CriticalFlags)
}

func TestClassify_SpeculativeWhenLittleIsKnown(t *testing.T) {
	m := Metrics{
		VolumeToLiquidity: fp(0.2), // yellow
		IsHoneypot:        bp(false),
	}

	verdict := NewEngine(Config{}).Classify(m)
	assert.Equal(t, domain.TierSpeculative, verdict.Tier)
	assert.InDelta(t, 2.0/7.0, verdict.DataCompleteness, 1e-9)
}

func TestClassify_MissingMetricsYieldUnknownTags(t *testing.T) {
	verdict := NewEngine(Config{}).Classify(Metrics{})

	require.Len(t, verdict.Tags, 7)
	for _, tag := range verdict.Tags {
		assert.Equal(t, domain.TagYellow, tag.Status, tag.Category)
		assert.Zero(t, tag.Weight, tag.Category)
	}
	assert.Zero(t, verdict.DataCompleteness)
	assert.Equal(t, domain.TierSpeculative, verdict.Tier)
}

func TestScore(t *testing.T) {
	engine := NewEngine(Config{})

	green := engine.Classify(allGreen())
	assert.Equal(t, 100, Score(100, green))
	// All-green tag evidence pulls a weak discovery score upward.
	assert.Greater(t, Score(40, green), 40)

	// No usable tag evidence: discovery score passes through.
	empty := engine.Classify(Metrics{})
	assert.Equal(t, 55, Score(55, empty))

	avoid := engine.Classify(Metrics{IsHoneypot: bp(true)})
	assert.Less(t, Score(90, avoid), 90)
}

func TestRecommendationFor(t *testing.T) {
	assert.Equal(t, domain.RecStrongBuy, RecommendationFor(domain.TierPremium))
	assert.Equal(t, domain.RecBuy, RecommendationFor(domain.TierStrong))
	assert.Equal(t, domain.RecWatch, RecommendationFor(domain.TierSpeculative))
	assert.Equal(t, domain.RecAvoid, RecommendationFor(domain.TierAvoid))
}
