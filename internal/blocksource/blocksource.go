// Package blocksource drives the pipeline's "new block" heartbeat. It composes three transports in strict preference order —
// WebSocket subscription, HTTP block filter, plain polling — and falls back
// to the next one down whenever the current transport dies. Regardless of
// which transport is live, every observed height passes through a single
// monotonic gate so the rest of the pipeline sees each new block exactly
// once, in order, with duplicates and reorg-order arrivals suppressed.
package blocksource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nodies-labs/liqsentinel/internal/pkg/hexutil"
	"github.com/nodies-labs/liqsentinel/internal/ports/outbound"
)

// Strategy identifies one of the three transports, in preference order.
type Strategy int

const (
	StrategySubscription Strategy = iota
	StrategyHTTPFilter
	StrategyPolling
)

func (s Strategy) String() string {
	switch s {
	case StrategySubscription:
		return "subscription"
	case StrategyHTTPFilter:
		return "http_filter"
	case StrategyPolling:
		return "polling"
	default:
		return "unknown"
	}
}

// Config wires the transports and their tuning knobs. Subscriber and RPC
// are both optional; Source falls back to whichever is available, and
// requires at least RPC to be non-nil since Polling is the terminal rung.
type Config struct {
	Subscriber outbound.BlockSubscriber
	RPC        outbound.RPCClient
	Logger     *slog.Logger

	// StallTimeout is how long the Subscription strategy tolerates
	// receiving no header before it is declared dead and abandoned.
	StallTimeout time.Duration

	// FilterPollInterval is how often GetFilterChanges is polled by the
	// HTTP filter strategy.
	FilterPollInterval time.Duration

	// PollInitialBackoff is the Polling strategy's steady-state interval
	// between eth_blockNumber calls, and the value backoff resets to
	// after a successful call.
	PollInitialBackoff time.Duration
	// PollMaxBackoff caps the backoff reached after consecutive
	// eth_blockNumber failures.
	PollMaxBackoff time.Duration
	// PollBackoffFactor multiplies the interval after each failure.
	PollBackoffFactor float64

	// ForceStrategy pins the starting strategy, bypassing the normal
	// Subscriber/RPC-availability selection. Tests use this to exercise
	// the HTTP filter or Polling strategies in isolation.
	ForceStrategy *Strategy
}

func (c *Config) applyDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.StallTimeout <= 0 {
		c.StallTimeout = 30 * time.Second
	}
	if c.FilterPollInterval <= 0 {
		c.FilterPollInterval = 2 * time.Second
	}
	if c.PollInitialBackoff <= 0 {
		c.PollInitialBackoff = 10 * time.Millisecond
	}
	if c.PollMaxBackoff <= 0 {
		c.PollMaxBackoff = 80 * time.Millisecond
	}
	if c.PollBackoffFactor <= 0 {
		c.PollBackoffFactor = 2
	}
}

// Source runs the block-height state machine: subscription, then HTTP
// filter, then polling, in strict preference order with a fallback on
// failure.
type Source struct {
	cfg Config
}

// New builds a Source. RPC must be set unless ForceStrategy pins the
// Subscription strategy and the caller never expects a fallback.
func New(cfg Config) (*Source, error) {
	cfg.applyDefaults()
	if cfg.Subscriber == nil && cfg.RPC == nil {
		return nil, errors.New("blocksource: at least one of Subscriber or RPC must be set")
	}
	return &Source{cfg: cfg}, nil
}

// Run blocks until ctx is cancelled, invoking onBlock once for every new
// height observed, in strictly increasing order. It never returns except on
// ctx cancellation: once downgraded to Polling, that strategy retries
// eth_blockNumber forever rather than giving up.
func (s *Source) Run(ctx context.Context, onBlock func(height int64)) error {
	g := &gate{}
	strategy := s.startingStrategy()

	for {
		var err error
		logger := s.cfg.Logger.With("strategy", strategy.String())

		switch strategy {
		case StrategySubscription:
			logger.Info("block source strategy starting")
			err = s.runSubscription(ctx, g.admit, onBlock)
		case StrategyHTTPFilter:
			logger.Info("block source strategy starting")
			err = s.runHTTPFilter(ctx, g.admit, onBlock)
		default:
			logger.Info("block source strategy starting")
			return s.runPolling(ctx, g.admit, onBlock)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		next := s.nextStrategy(strategy)
		logger.Warn("block source strategy failed, falling back", "error", err, "next_strategy", next.String())
		strategy = next
	}
}

func (s *Source) startingStrategy() Strategy {
	if s.cfg.ForceStrategy != nil {
		return *s.cfg.ForceStrategy
	}
	if s.cfg.Subscriber != nil {
		return StrategySubscription
	}
	return StrategyHTTPFilter
}

func (s *Source) nextStrategy(current Strategy) Strategy {
	if current == StrategySubscription && s.cfg.RPC != nil {
		return StrategyHTTPFilter
	}
	return StrategyPolling
}

// gate advances a monotonic last-seen height, admitting a height only if
// it is strictly greater than the last one admitted. This is what makes
// feeding [100,100,99,101,101,102] invoke a consumer for exactly
// 100,101,102 in order, regardless of which strategy or how many times a
// given height is observed.
type gate struct {
	mu      sync.Mutex
	last    int64
	hasSeen bool
}

func (g *gate) admit(height int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hasSeen && height <= g.last {
		return false
	}
	g.last = height
	g.hasSeen = true
	return true
}

func (s *Source) runSubscription(ctx context.Context, admit func(int64) bool, onBlock func(int64)) error {
	headers, err := s.cfg.Subscriber.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer s.cfg.Subscriber.Unsubscribe()

	stall := time.NewTimer(s.cfg.StallTimeout)
	defer stall.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case header, ok := <-headers:
			if !ok {
				return errors.New("subscription channel closed")
			}
			if !stall.Stop() {
				<-stall.C
			}
			stall.Reset(s.cfg.StallTimeout)

			height, err := hexutil.ParseInt64(header.Number)
			if err != nil {
				s.cfg.Logger.Warn("subscription: unparseable block number", "raw", header.Number, "error", err)
				continue
			}
			if admit(height) {
				onBlock(height)
			}
		case <-stall.C:
			return fmt.Errorf("subscription stalled: no header for %s", s.cfg.StallTimeout)
		}
	}
}

func (s *Source) runHTTPFilter(ctx context.Context, admit func(int64) bool, onBlock func(int64)) error {
	filterID, err := s.cfg.RPC.NewBlockFilter(ctx)
	if err != nil {
		return fmt.Errorf("new block filter: %w", err)
	}
	defer func() {
		uninstallCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.cfg.RPC.UninstallFilter(uninstallCtx, filterID); err != nil {
			s.cfg.Logger.Warn("uninstall block filter failed", "error", err)
		}
	}()

	ticker := time.NewTicker(s.cfg.FilterPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			changes, err := s.cfg.RPC.GetFilterChanges(ctx, filterID)
			if err != nil {
				return fmt.Errorf("get filter changes: %w", err)
			}
			if len(changes) == 0 {
				continue
			}
			height, err := s.cfg.RPC.BlockNumber(ctx)
			if err != nil {
				s.cfg.Logger.Warn("http filter: block number lookup failed", "error", err)
				continue
			}
			if admit(height) {
				onBlock(height)
			}
		}
	}
}

// runPolling is the terminal rung: it never returns on error, only on ctx
// cancellation, since there is nothing left to fall back to.
func (s *Source) runPolling(ctx context.Context, admit func(int64) bool, onBlock func(int64)) error {
	interval := s.cfg.PollInitialBackoff

	for {
		height, err := s.cfg.RPC.BlockNumber(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.cfg.Logger.Warn("polling: block number lookup failed", "error", err, "next_interval", interval)
			interval = time.Duration(float64(interval) * s.cfg.PollBackoffFactor)
			if interval > s.cfg.PollMaxBackoff {
				interval = s.cfg.PollMaxBackoff
			}
		} else {
			interval = s.cfg.PollInitialBackoff
			if admit(height) {
				onBlock(height)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
