package app

import (
	"sync"
	"time"
)

// Countdown runs at most one round deadline at a time. It carries no state
// beyond the pending timer; the round machine owns all round state and treats
// a fired deadline and an admin close as the same idempotent transition.
type Countdown struct {
	mu    sync.Mutex
	timer *time.Timer
}

func NewCountdown() *Countdown {
	return &Countdown{}
}

// Start schedules fire after d, replacing any pending countdown.
func (c *Countdown) Start(d time.Duration, fire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(d, fire)
}

// Stop cancels the pending countdown, if any. A deadline that already fired
// is harmless: the close transition is a no-op on non-open rounds.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
