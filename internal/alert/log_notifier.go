package alert

import (
	"context"

	"github.com/rs/zerolog"

	"dexradar/internal/domain"
)

// LogNotifier writes alerts to the structured log. Always configured; the
// log is the delivery channel of last resort.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert at info level.
func (n *LogNotifier) Notify(_ context.Context, a domain.Alert) error {
	n.logger.Info().
		Str("session_id", a.SessionID).
		Str("chain", a.ChainID).
		Str("pair", a.PairID).
		Str("symbol", a.TokenSymbol).
		Int("final_score", a.FinalScore).
		Str("tier", string(a.Tier)).
		Str("recommendation", string(a.Recommendation)).
		Strs("critical_flags", a.CriticalFlags).
		Msg("alert")
	return nil
}
