package engine

import "time"

// Clock supplies the two time readings the engine needs: how long the current
// think has been running, and how much budget is left on the game clock.
type Clock interface {
	Elapsed() time.Duration
	Remaining() time.Duration
}

type turnClock struct {
	start     time.Time
	remaining time.Duration
}

// NewTurnClock returns a Clock for a single turn. Elapsed time is measured
// from now; remaining is the game budget at the moment the turn started.
func NewTurnClock(remaining time.Duration) Clock {
	return &turnClock{
		start:     time.Now(),
		remaining: remaining,
	}
}

func (c *turnClock) Elapsed() time.Duration {
	return time.Since(c.start)
}

func (c *turnClock) Remaining() time.Duration {
	return c.remaining
}
