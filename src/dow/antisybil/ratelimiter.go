package antisybil

import (
	"sync"
	"time"
)

// slidingWindow counts events per wallet inside a trailing window. Entries
// older than the window are dropped on access, and Prune drops idle wallets
// entirely so the map stays bounded.
type slidingWindow struct {
	mu     sync.Mutex
	events map[string][]time.Time
	limit  int
	window time.Duration
}

func newSlidingWindow(limit int, window time.Duration) *slidingWindow {
	return &slidingWindow{
		events: make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
}

func (w *slidingWindow) trim(wallet string, now time.Time) []time.Time {
	cutoff := now.Add(-w.window)
	kept := w.events[wallet][:0]
	for _, t := range w.events[wallet] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(w.events, wallet)
		return nil
	}
	w.events[wallet] = kept
	return kept
}

// Allowed reports whether the wallet is under its limit right now.
func (w *slidingWindow) Allowed(wallet string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.trim(wallet, time.Now())) < w.limit
}

// Record registers an event for the wallet.
func (w *slidingWindow) Record(wallet string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	w.events[wallet] = append(w.trim(wallet, now), now)
}

// Count returns the wallet's events inside the current window.
func (w *slidingWindow) Count(wallet string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.trim(wallet, time.Now()))
}

// Prune drops every wallet whose events have all aged out.
func (w *slidingWindow) Prune() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	for wallet := range w.events {
		w.trim(wallet, now)
	}
}
