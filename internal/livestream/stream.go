// Package livestream subscribes to a pair-created event feed over WebSocket
// and surfaces new pairs as candidate reports. Supplements the sliced
// historical collection with near-real-time discoveries.
package livestream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"dexradar/internal/addrcheck"
	"dexradar/internal/domain"
	"dexradar/internal/observability"
)

// SourceName identifies live-discovered candidates in reports.
const SourceName = "livestream"

// Config tunes stream behavior.
type Config struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout bounds a single message read.
	ReadTimeout time.Duration
	// Buffer is the report channel capacity.
	Buffer int
}

// DefaultConfig returns the default stream configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		Buffer:            256,
	}
}

// Stream reads pair-created events from one WebSocket endpoint.
type Stream struct {
	endpoint string
	config   Config
	logger   zerolog.Logger
}

// NewStream creates a stream for the given ws:// or wss:// endpoint.
func NewStream(endpoint string, config Config, logger zerolog.Logger) *Stream {
	if config.Buffer <= 0 {
		config.Buffer = DefaultConfig().Buffer
	}
	return &Stream{endpoint: endpoint, config: config, logger: logger}
}

// pairEvent is the wire format of one feed message.
type pairEvent struct {
	Type string `json:"type"`
	Pair struct {
		ChainID      string  `json:"chainId"`
		PairAddress  string  `json:"pairAddress"`
		TokenAddress string  `json:"tokenAddress"`
		TokenSymbol  string  `json:"tokenSymbol"`
		TokenName    string  `json:"tokenName"`
		LiquidityUSD float64 `json:"liquidityUsd"`
		CreatedAt    int64   `json:"createdAt"` // epoch milliseconds
	} `json:"pair"`
}

// Subscribe starts the read loop and returns the report channel. The channel
// closes when ctx is cancelled. Connection drops trigger reconnects with
// capped backoff; malformed messages are skipped.
func (s *Stream) Subscribe(ctx context.Context) (<-chan domain.CandidateReport, error) {
	out := make(chan domain.CandidateReport, s.config.Buffer)
	go s.run(ctx, out)
	return out, nil
}

func (s *Stream) run(ctx context.Context, out chan<- domain.CandidateReport) {
	defer close(out)

	delay := s.config.ReconnectDelay
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.endpoint, nil)
		if err != nil {
			s.logger.Warn().Err(err).Dur("retry_in", delay).Msg("livestream dial failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			continue
		}

		delay = s.config.ReconnectDelay
		s.logger.Info().Str("endpoint", s.endpoint).Msg("livestream connected")
		observability.SetLivestreamConnected(true)

		if err := s.readLoop(ctx, conn, out); err != nil {
			s.logger.Warn().Err(err).Msg("livestream read loop ended")
		}
		observability.SetLivestreamConnected(false)
		conn.Close()
	}
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- domain.CandidateReport) error {
	// Unblock reads when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		if s.config.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		report, ok := s.parse(msg)
		if !ok {
			continue
		}

		select {
		case out <- report:
		case <-ctx.Done():
			return ctx.Err()
		default:
			s.logger.Warn().Msg("livestream buffer full, dropping report")
		}
	}
}

// parse converts one feed message, rejecting anything malformed.
func (s *Stream) parse(msg []byte) (domain.CandidateReport, bool) {
	var ev pairEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		s.logger.Debug().Err(err).Msg("skipping malformed livestream message")
		return domain.CandidateReport{}, false
	}
	if ev.Type != "pair_created" {
		return domain.CandidateReport{}, false
	}
	p := ev.Pair
	if p.PairAddress == "" || p.CreatedAt <= 0 {
		return domain.CandidateReport{}, false
	}
	if !addrcheck.ValidForChain(p.ChainID, p.TokenAddress) {
		s.logger.Debug().Str("token", p.TokenAddress).Msg("skipping livestream pair with invalid address")
		return domain.CandidateReport{}, false
	}

	age := time.Since(time.UnixMilli(p.CreatedAt)).Minutes()
	if age < 0 {
		age = 0
	}

	return domain.CandidateReport{
		PairID:       p.PairAddress,
		ChainID:      p.ChainID,
		TokenAddress: p.TokenAddress,
		TokenSymbol:  p.TokenSymbol,
		TokenName:    p.TokenName,
		LiquidityUSD: p.LiquidityUSD,
		CreatedAt:    p.CreatedAt,
		AgeMinutes:   age,
		Source:       SourceName,
	}, true
}
