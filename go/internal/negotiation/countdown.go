package negotiation

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultCountdownSeconds is how long an outgoing teleport request waits for
// an answer before timing out.
const DefaultCountdownSeconds = 30

// Countdown is the repeating one-second tick bound to exactly one pending
// outgoing negotiation. onTick fires once per second with the new remaining
// value, including the final 0; onExpire fires after the 0 tick. Stopping the
// countdown releases its ticker; callers that start a replacement countdown
// must stop the prior one first.
type Countdown struct {
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// StartCountdown begins ticking on the given clock. In production the clock
// is clockwork.NewRealClock(); tests drive a FakeClock.
func StartCountdown(clock clockwork.Clock, seconds int, onTick func(remaining int), onExpire func()) *Countdown {
	c := &Countdown{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.run(clock, seconds, onTick, onExpire)
	return c
}

// Stop halts the countdown. It is idempotent and safe to call from a tick
// callback. A tick already in flight may still be delivered; consumers
// re-validate that the countdown is still the active one before mutating.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Done is closed once the countdown goroutine has exited.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

func (c *Countdown) run(clock clockwork.Clock, seconds int, onTick func(int), onExpire func()) {
	defer close(c.done)

	ticker := clock.NewTicker(time.Second)
	defer ticker.Stop()

	remaining := seconds
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.Chan():
			remaining--
			if remaining < 0 {
				return
			}
			onTick(remaining)
			if remaining == 0 {
				onExpire()
				return
			}
		}
	}
}
