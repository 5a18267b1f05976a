// Package scoring classifies a candidate's accumulated metrics into
// categorized tags and an aggregate tier verdict. Classification is a pure
// function of the input metrics; the engine holds only configuration.
package scoring

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"dexradar/internal/domain"
)

// Metrics is the raw signal bundle gathered across funnel stages. Pointer
// fields are nil when the upstream stage could not supply the value; a
// missing metric yields a YELLOW "unknown" tag and lowers data completeness.
type Metrics struct {
	VolumeToLiquidity *float64 // 24h volume / liquidity
	VolumeAccel       *float64 // 24h volume vs prior period ratio
	IsHoneypot        *bool
	ContractVerified  *bool
	BuyTaxPct         *float64
	SellTaxPct        *float64
	LPLockPct         *float64
	HolderTop10Pct    *float64
}

// Threshold table. One row per metric category.
const (
	activityGreenRatio  = 0.5
	activityYellowRatio = 0.1

	accelGreenRatio  = 1.5
	accelYellowRatio = 1.0

	taxYellowPct = 10.0
	taxRedPct    = 30.0

	lpLockGreenPct  = 80.0
	lpLockYellowPct = 50.0

	concentrationGreenPct  = 40.0
	concentrationYellowPct = 60.0
)

// Critical flag names. A RED tag with one of these names disqualifies the
// candidate outright.
const (
	FlagHoneypot              = "HONEYPOT"
	FlagLPNotLocked           = "LP_NOT_LOCKED"
	FlagDeadActivity          = "DEAD_ACTIVITY"
	FlagNoAcceleration        = "NO_ACCELERATION"
	FlagExtremeTaxes          = "EXTREME_TAXES"
	FlagCriticalConcentration = "CRITICAL_CONCENTRATION"
)

// Confidence adjustment factors.
const (
	redPenalty    = 0.3
	greenBonus    = 0.1
	redConfidence = 0.5 // floor when any RED tag is present
)

// DefaultStrongMinCriteria is how many STRONG-set criteria must be GREEN for
// a STRONG verdict.
const DefaultStrongMinCriteria = 3

// Config tunes tier resolution.
type Config struct {
	// StrongMinCriteria is the minimum number of satisfied STRONG criteria.
	// Zero means DefaultStrongMinCriteria.
	StrongMinCriteria int
}

// Engine turns a metric bundle into a tier verdict.
type Engine struct {
	strongMin int
	logger    zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a scoring engine.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		strongMin: cfg.StrongMinCriteria,
		logger:    zerolog.Nop(),
	}
	if e.strongMin <= 0 {
		e.strongMin = DefaultStrongMinCriteria
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// premiumCriteria must ALL be GREEN for a PREMIUM verdict.
var premiumCriteria = []string{
	domain.CategoryHoneypot,
	domain.CategoryVerification,
	domain.CategoryLPLock,
	domain.CategoryTax,
	domain.CategoryActivity,
}

// strongCriteria count toward the STRONG threshold.
var strongCriteria = []string{
	domain.CategoryHoneypot,
	domain.CategoryLPLock,
	domain.CategoryTax,
	domain.CategoryActivity,
	domain.CategoryAcceleration,
	domain.CategoryConcentration,
}

// Classify evaluates every metric category and resolves the tier. Exactly one
// tag per category is produced; critical RED tags force AVOID regardless of
// the rest of the tag set.
func (e *Engine) Classify(m Metrics) *domain.TierVerdict {
	tags := []domain.TokenTag{
		e.activityTag(m.VolumeToLiquidity),
		e.accelerationTag(m.VolumeAccel),
		e.honeypotTag(m.IsHoneypot),
		e.verificationTag(m.ContractVerified),
		e.taxTag(m.BuyTaxPct, m.SellTaxPct),
		e.lpLockTag(m.LPLockPct),
		e.concentrationTag(m.HolderTop10Pct),
	}

	var flags []string
	for _, tag := range tags {
		if tag.Status == domain.TagRed && isCriticalFlag(tag.Name) {
			flags = append(flags, tag.Name)
		}
	}

	completeness := e.completeness(m)
	verdict := &domain.TierVerdict{
		Tier:             e.resolveTier(tags, flags),
		Tags:             tags,
		CriticalFlags:    flags,
		Confidence:       confidence(completeness, tags),
		DataCompleteness: completeness,
	}

	e.logger.Debug().
		Str("tier", string(verdict.Tier)).
		Strs("critical_flags", flags).
		Float64("confidence", verdict.Confidence).
		Float64("completeness", completeness).
		Msg("candidate classified")

	return verdict
}

// resolveTier applies the resolution order: critical flags, PREMIUM, STRONG,
// SPECULATIVE. First match wins.
func (e *Engine) resolveTier(tags []domain.TokenTag, flags []string) domain.Tier {
	if len(flags) > 0 {
		return domain.TierAvoid
	}

	green := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if tag.Status == domain.TagGreen {
			green[tag.Category] = true
		}
	}

	premium := true
	for _, category := range premiumCriteria {
		if !green[category] {
			premium = false
			break
		}
	}
	if premium {
		return domain.TierPremium
	}

	satisfied := 0
	for _, category := range strongCriteria {
		if green[category] {
			satisfied++
		}
	}
	if satisfied >= e.strongMin {
		return domain.TierStrong
	}

	return domain.TierSpeculative
}

// confidence starts from data completeness, penalizes RED tags and rewards
// GREEN tags proportionally, clamps to [0,1], and floors at redConfidence
// when any RED tag exists so an AVOID verdict is never reported with false
// precision in either direction.
func confidence(completeness float64, tags []domain.TokenTag) float64 {
	var reds, greens float64
	for _, tag := range tags {
		switch tag.Status {
		case domain.TagRed:
			reds++
		case domain.TagGreen:
			greens++
		}
	}
	total := float64(len(tags))

	c := completeness - redPenalty*(reds/total) + greenBonus*(greens/total)
	c = math.Max(0, math.Min(1, c))
	if reds > 0 && c < redConfidence {
		c = redConfidence
	}
	return c
}

func (e *Engine) completeness(m Metrics) float64 {
	present := 0
	total := 7
	if m.VolumeToLiquidity != nil {
		present++
	}
	if m.VolumeAccel != nil {
		present++
	}
	if m.IsHoneypot != nil {
		present++
	}
	if m.ContractVerified != nil {
		present++
	}
	if m.BuyTaxPct != nil || m.SellTaxPct != nil {
		present++
	}
	if m.LPLockPct != nil {
		present++
	}
	if m.HolderTop10Pct != nil {
		present++
	}
	return float64(present) / float64(total)
}

func isCriticalFlag(name string) bool {
	switch name {
	case FlagHoneypot, FlagLPNotLocked, FlagDeadActivity,
		FlagNoAcceleration, FlagExtremeTaxes, FlagCriticalConcentration:
		return true
	}
	return false
}

func (e *Engine) activityTag(ratio *float64) domain.TokenTag {
	tag := domain.TokenTag{
		Category:  domain.CategoryActivity,
		Threshold: fmt.Sprintf("volume/liquidity >= %.2f healthy, >= %.2f marginal", activityGreenRatio, activityYellowRatio),
		Weight:    0.9,
	}
	if ratio == nil {
		return unknown(tag, "ACTIVITY_UNKNOWN", "no volume or liquidity data")
	}
	tag.Value = fmt.Sprintf("%.3f", *ratio)
	switch {
	case *ratio >= activityGreenRatio:
		tag.Name, tag.Status = "HIGH_ACTIVITY", domain.TagGreen
		tag.Reasoning = "trading volume is healthy relative to pool depth"
	case *ratio >= activityYellowRatio:
		tag.Name, tag.Status = "MODERATE_ACTIVITY", domain.TagYellow
		tag.Reasoning = "trading volume is marginal relative to pool depth"
	default:
		tag.Name, tag.Status = FlagDeadActivity, domain.TagRed
		tag.Reasoning = "pair shows almost no trading against its liquidity"
	}
	return tag
}

func (e *Engine) accelerationTag(ratio *float64) domain.TokenTag {
	tag := domain.TokenTag{
		Category:  domain.CategoryAcceleration,
		Threshold: fmt.Sprintf("volume ratio >= %.2f accelerating, >= %.2f steady", accelGreenRatio, accelYellowRatio),
		Weight:    0.7,
	}
	if ratio == nil {
		return unknown(tag, "ACCELERATION_UNKNOWN", "no prior-period volume data")
	}
	tag.Value = fmt.Sprintf("%.3f", *ratio)
	switch {
	case *ratio >= accelGreenRatio:
		tag.Name, tag.Status = "STRONG_ACCELERATION", domain.TagGreen
		tag.Reasoning = "volume is growing against the prior period"
	case *ratio >= accelYellowRatio:
		tag.Name, tag.Status = "STEADY_VOLUME", domain.TagYellow
		tag.Reasoning = "volume is flat against the prior period"
	default:
		tag.Name, tag.Status = FlagNoAcceleration, domain.TagRed
		tag.Reasoning = "volume is shrinking against the prior period"
	}
	return tag
}

func (e *Engine) honeypotTag(isHoneypot *bool) domain.TokenTag {
	tag := domain.TokenTag{
		Category:  domain.CategoryHoneypot,
		Threshold: "honeypot simulation must pass",
		Weight:    1.0,
	}
	if isHoneypot == nil {
		return unknown(tag, "HONEYPOT_UNKNOWN", "no security report")
	}
	tag.Value = fmt.Sprintf("%t", *isHoneypot)
	if *isHoneypot {
		tag.Name, tag.Status = FlagHoneypot, domain.TagRed
		tag.Reasoning = "sell simulation failed, token is a honeypot"
	} else {
		tag.Name, tag.Status = "NOT_HONEYPOT", domain.TagGreen
		tag.Reasoning = "sell simulation passed"
	}
	return tag
}

func (e *Engine) verificationTag(verified *bool) domain.TokenTag {
	tag := domain.TokenTag{
		Category:  domain.CategoryVerification,
		Threshold: "contract source must be published",
		Weight:    0.5,
	}
	if verified == nil {
		return unknown(tag, "VERIFICATION_UNKNOWN", "no security report")
	}
	tag.Value = fmt.Sprintf("%t", *verified)
	if *verified {
		tag.Name, tag.Status = "CONTRACT_VERIFIED", domain.TagGreen
		tag.Reasoning = "contract source is published and verified"
	} else {
		tag.Name, tag.Status = "CONTRACT_UNVERIFIED", domain.TagRed
		tag.Reasoning = "contract source is not published"
	}
	return tag
}

func (e *Engine) taxTag(buy, sell *float64) domain.TokenTag {
	tag := domain.TokenTag{
		Category:  domain.CategoryTax,
		Threshold: fmt.Sprintf("worst tax < %.0f%% acceptable, < %.0f%% tolerable", taxYellowPct, taxRedPct),
		Weight:    0.8,
	}
	if buy == nil && sell == nil {
		return unknown(tag, "TAXES_UNKNOWN", "no tax data")
	}
	worst := 0.0
	if buy != nil {
		worst = *buy
	}
	if sell != nil && *sell > worst {
		worst = *sell
	}
	tag.Value = fmt.Sprintf("%.1f%%", worst)
	switch {
	case worst >= taxRedPct:
		tag.Name, tag.Status = FlagExtremeTaxes, domain.TagRed
		tag.Reasoning = "buy or sell tax is confiscatory"
	case worst >= taxYellowPct:
		tag.Name, tag.Status = "ELEVATED_TAXES", domain.TagYellow
		tag.Reasoning = "buy or sell tax is above the comfortable range"
	default:
		tag.Name, tag.Status = "LOW_TAXES", domain.TagGreen
		tag.Reasoning = "taxes are within the normal range"
	}
	return tag
}

func (e *Engine) lpLockTag(lockPct *float64) domain.TokenTag {
	tag := domain.TokenTag{
		Category:  domain.CategoryLPLock,
		Threshold: fmt.Sprintf("locked >= %.0f%% safe, >= %.0f%% partial", lpLockGreenPct, lpLockYellowPct),
		Weight:    1.0,
	}
	if lockPct == nil {
		return unknown(tag, "LP_LOCK_UNKNOWN", "no lock data")
	}
	tag.Value = fmt.Sprintf("%.1f%%", *lockPct)
	switch {
	case *lockPct >= lpLockGreenPct:
		tag.Name, tag.Status = "LP_LOCKED", domain.TagGreen
		tag.Reasoning = "liquidity is locked"
	case *lockPct >= lpLockYellowPct:
		tag.Name, tag.Status = "LP_PARTIALLY_LOCKED", domain.TagYellow
		tag.Reasoning = "only part of the liquidity is locked"
	default:
		tag.Name, tag.Status = FlagLPNotLocked, domain.TagRed
		tag.Reasoning = "liquidity can be pulled at any time"
	}
	return tag
}

func (e *Engine) concentrationTag(top10 *float64) domain.TokenTag {
	tag := domain.TokenTag{
		Category:  domain.CategoryConcentration,
		Threshold: fmt.Sprintf("top-10 holders < %.0f%% healthy, < %.0f%% elevated", concentrationGreenPct, concentrationYellowPct),
		Weight:    0.8,
	}
	if top10 == nil {
		return unknown(tag, "CONCENTRATION_UNKNOWN", "no holder data")
	}
	tag.Value = fmt.Sprintf("%.1f%%", *top10)
	switch {
	case *top10 < concentrationGreenPct:
		tag.Name, tag.Status = "HEALTHY_DISTRIBUTION", domain.TagGreen
		tag.Reasoning = "supply is spread across many holders"
	case *top10 < concentrationYellowPct:
		tag.Name, tag.Status = "ELEVATED_CONCENTRATION", domain.TagYellow
		tag.Reasoning = "top holders control a large share of supply"
	default:
		tag.Name, tag.Status = FlagCriticalConcentration, domain.TagRed
		tag.Reasoning = "top holders control enough supply to crash the pair"
	}
	return tag
}

// unknown marks a category that could not be evaluated. Weight drops to zero
// so missing data never moves the score, only the completeness.
func unknown(tag domain.TokenTag, name, reason string) domain.TokenTag {
	tag.Name = name
	tag.Status = domain.TagYellow
	tag.Value = "n/a"
	tag.Reasoning = reason
	tag.Weight = 0
	return tag
}
