package converter

import (
	"context"
	"sync"
)

// Gate is a cooperative pause latch. The pipeline waits on it at defined
// suspension points (before each document, before each asset); an in-flight
// fetch is never interrupted.
type Gate struct {
	mu     sync.Mutex
	resume chan struct{} // non-nil while paused
}

// NewGate creates an unpaused gate.
func NewGate() *Gate {
	return &Gate{}
}

// Pause makes subsequent Wait calls block until Resume.
func (g *Gate) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resume == nil {
		g.resume = make(chan struct{})
	}
}

// Resume releases all waiters.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resume != nil {
		close(g.resume)
		g.resume = nil
	}
}

// Paused reports the current latch state.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.resume != nil
}

// Wait blocks while the gate is paused. It returns the context's error if
// the run is cancelled while waiting.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		ch := g.resume
		g.mu.Unlock()

		if ch == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
