// Package liveness implements the LiveService the inbound health port
// describes: ready once the agent has processed its first block, healthy
// while blocks keep landing inside a rolling staleness window.
package liveness

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nodies-labs/liqsentinel/internal/ports/inbound"
	"github.com/nodies-labs/liqsentinel/internal/watchlist"
)

// Tracker records the agent's last-processed block and the watchlist size
// at that tick, and answers both the HealthChecker and StatusProvider
// inbound ports from that state.
type Tracker struct {
	watchlist *watchlist.Watchlist

	lastBlock     atomic.Int64
	lastBlockUnix atomic.Int64
	prestaged     atomic.Int64
	triggered     atomic.Int64

	staleAfter time.Duration
}

// New builds a Tracker. staleAfter is how long a tick can go quiet before
// IsHealthy reports false; zero selects a 5 minute default.
func New(wl *watchlist.Watchlist, staleAfter time.Duration) *Tracker {
	if staleAfter <= 0 {
		staleAfter = 5 * time.Minute
	}
	return &Tracker{watchlist: wl, staleAfter: staleAfter}
}

// RecordBlock is called once per processed block by the orchestrator.
func (t *Tracker) RecordBlock(height int64, prestaged, triggered int) {
	t.lastBlock.Store(height)
	t.lastBlockUnix.Store(time.Now().Unix())
	t.prestaged.Store(int64(prestaged))
	t.triggered.Store(int64(triggered))
}

func (t *Tracker) IsReady() bool {
	return t.lastBlockUnix.Load() != 0
}

func (t *Tracker) IsHealthy() bool {
	last := t.lastBlockUnix.Load()
	if last == 0 {
		return false
	}
	return time.Since(time.Unix(last, 0)) <= t.staleAfter
}

// Status implements inbound.StatusProvider.
func (t *Tracker) Status(ctx context.Context) (inbound.StatusSnapshot, error) {
	return inbound.StatusSnapshot{
		LastBlock:      t.lastBlock.Load(),
		WatchlistSize:  t.watchlist.Len(),
		PrestagedCount: int(t.prestaged.Load()),
		TriggeredCount: int(t.triggered.Load()),
	}, nil
}

var (
	_ inbound.HealthChecker  = (*Tracker)(nil)
	_ inbound.StatusProvider = (*Tracker)(nil)
)
