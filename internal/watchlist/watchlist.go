// Package watchlist is an upsert-only store of (user, debt_asset,
// collateral_asset) positions, with prestage/trigger selection and an
// adaptive target-buffer policy (see DESIGN.md for the buffer-adaptation
// policy decision).
package watchlist

import (
	"sync"

	"github.com/nodies-labs/liqsentinel/internal/domain"
)

// Config holds the static watchlist bounds.
type Config struct {
	DefaultTargetBuffer float64
	BufferMin           float64
	BufferMax           float64
	MaxPrestage         int
}

// Watchlist is the upsert-only position store. Entries are never removed
// implicitly — only overwritten by a fresher scan result for
// the same key.
type Watchlist struct {
	cfg Config

	mu      sync.Mutex
	entries map[domain.WatchKey]domain.WatchEntry
}

func New(cfg Config) *Watchlist {
	if cfg.DefaultTargetBuffer <= 0 {
		cfg.DefaultTargetBuffer = 0.05
	}
	return &Watchlist{cfg: cfg, entries: make(map[domain.WatchKey]domain.WatchEntry)}
}

// Upsert inserts or overwrites entries by key. A zero TargetBuffer is
// replaced with the configured default.
func (w *Watchlist) Upsert(entries []domain.WatchEntry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range entries {
		if e.TargetBuffer <= 0 {
			e.TargetBuffer = w.cfg.DefaultTargetBuffer
		}
		w.entries[e.Key()] = e
	}
}

// Get returns the current entry for a key, if present.
func (w *Watchlist) Get(key domain.WatchKey) (domain.WatchEntry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entries[key]
	return e, ok
}

// Len returns the number of tracked entries.
func (w *Watchlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Prestage returns entries whose health factor is within the adapted
// buffer of 1.0,
// bounded by MaxPrestage — the lowest health factors are kept when the
// set would otherwise exceed the budget, since those are closest to
// triggering.
func (w *Watchlist) Prestage() []domain.WatchEntry {
	w.mu.Lock()
	all := make([]domain.WatchEntry, 0, len(w.entries))
	for _, e := range w.entries {
		if e.HealthFactor <= 1.0+e.TargetBuffer {
			all = append(all, e)
		}
	}
	w.mu.Unlock()

	sortByHealthFactorAscending(all)
	if w.cfg.MaxPrestage > 0 && len(all) > w.cfg.MaxPrestage {
		all = all[:w.cfg.MaxPrestage]
	}
	return all
}

// Trigger returns entries that are currently underwater
// (health_factor < 1.0): the execution-triggering set.
func (w *Watchlist) Trigger() []domain.WatchEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []domain.WatchEntry
	for _, e := range w.entries {
		if e.HealthFactor < 1.0 {
			out = append(out, e)
		}
	}
	return out
}

func sortByHealthFactorAscending(entries []domain.WatchEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].HealthFactor < entries[j-1].HealthFactor; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// AdaptBuffers applies the buffer adaptation policy (see DESIGN.md):
// after each scan, if the prestage set is below 25% of MaxPrestage,
// widen every entry's buffer by 10% (capped at BufferMax); if at or
// above 90%, narrow by 10% (floored at BufferMin); otherwise hold.
func (w *Watchlist) AdaptBuffers() {
	if w.cfg.MaxPrestage <= 0 {
		return
	}
	prestageCount := len(w.Prestage())
	ratio := float64(prestageCount) / float64(w.cfg.MaxPrestage)

	w.mu.Lock()
	defer w.mu.Unlock()
	for key, e := range w.entries {
		switch {
		case ratio < 0.25:
			e.TargetBuffer = clamp(e.TargetBuffer*1.10, w.cfg.BufferMin, w.cfg.BufferMax)
		case ratio >= 0.90:
			e.TargetBuffer = clamp(e.TargetBuffer*0.90, w.cfg.BufferMin, w.cfg.BufferMax)
		default:
			continue
		}
		w.entries[key] = e
	}
}

func clamp(v, min, max float64) float64 {
	if min > 0 && v < min {
		return min
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
