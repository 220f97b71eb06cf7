package session

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrBusy is returned when a gated action is attempted while the gate
// is held.
var ErrBusy = errors.New("another action is already in progress")

// Gate is the per-guild admission control for mutating actions. It is a
// non-blocking try-lock with a liveness timeout, not a critical-section
// mutex: acquisition schedules a forced release after the hold window,
// whether or not the admitted action has finished. A slow engine or
// transport call can therefore never wedge a guild, at the price that
// actions must tolerate running past their window.
type Gate struct {
	mu   sync.Mutex
	held bool
	gen  uint64
}

// TryAcquire attempts to take the gate. It never blocks: if the gate is
// held, it fails immediately. On success the gate auto-releases after
// hold.
func (g *Gate) TryAcquire(hold time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held {
		return false
	}
	g.held = true
	g.gen++

	gen := g.gen
	time.AfterFunc(hold, func() { g.releaseGen(gen) })
	return true
}

// releaseGen releases the gate only if it still belongs to the same
// acquisition; a stale timer must not release a later holder.
func (g *Gate) releaseGen(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held && g.gen == gen {
		g.held = false
	}
}

// Held reports whether the gate is currently held.
func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// Run admits fn through the gate, or returns ErrBusy. The hold window
// starts at admission; fn may outlive it.
func (g *Gate) Run(hold time.Duration, fn func() error) error {
	if !g.TryAcquire(hold) {
		log.Printf("[Gate] Rejected action, gate held (window %s)", hold)
		return ErrBusy
	}
	return fn()
}
