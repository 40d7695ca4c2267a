/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package arena

import "sync"

// RoundWatcher turns the terminal flag into a one-shot completion
// notification. The host observes its own world, mirrors observe received
// snapshots; either way the callback fires at most once per round, no
// matter how many more terminal states are observed afterwards.
type RoundWatcher struct {
	mu         sync.Mutex
	announced  bool
	onComplete func(Result)
}

func NewRoundWatcher(onComplete func(Result)) *RoundWatcher {
	return &RoundWatcher{onComplete: onComplete}
}

// Reset re-arms the watcher at round start.
func (rw *RoundWatcher) Reset() {
	rw.mu.Lock()
	rw.announced = false
	rw.mu.Unlock()
}

// Observe inspects a world and fires the completion callback on the first
// terminal observation.
func (rw *RoundWatcher) Observe(w *World) {
	if w == nil || !w.RoundOver {
		return
	}

	rw.mu.Lock()
	if rw.announced {
		rw.mu.Unlock()
		return
	}
	rw.announced = true
	fn := rw.onComplete
	rw.mu.Unlock()

	if fn != nil {
		fn(Result{WinnerKey: w.WinnerKey, TimeLeft: w.TimeLeft})
	}
}

// Announced reports whether this round's end was already signalled.
func (rw *RoundWatcher) Announced() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.announced
}
