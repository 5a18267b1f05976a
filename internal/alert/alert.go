// Package alert builds and delivers alert records for candidates that survive
// the whole funnel.
package alert

import (
	"context"
	"time"

	"dexradar/internal/domain"
	"dexradar/internal/scoring"
)

// Build creates the alert record for one surviving candidate.
func Build(sessionID string, c domain.ScoredCandidate, now time.Time) domain.Alert {
	a := domain.Alert{
		SessionID:   sessionID,
		PairID:      c.PairID,
		ChainID:     c.ChainID,
		TokenSymbol: c.TokenSymbol,
		FinalScore:  c.FinalScore,
		CreatedAt:   now.UnixMilli(),
	}
	if c.Verdict != nil {
		a.Tier = c.Verdict.Tier
		a.Tags = c.Verdict.Tags
		a.CriticalFlags = c.Verdict.CriticalFlags
		a.Recommendation = scoring.RecommendationFor(c.Verdict.Tier)
	}
	return a
}

// Notifier delivers one alert to an output channel. Delivery failures degrade
// a session, they never abort it.
type Notifier interface {
	Notify(ctx context.Context, a domain.Alert) error
}
