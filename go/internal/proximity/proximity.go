// Package proximity derives the set of participants near the local one, used
// downstream for call grouping. It is a read-only function over the roster,
// recomputed on a throttle rather than per event.
package proximity

import (
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samber/lo"

	"github.com/townlink/townlink/go/internal/models"
)

const (
	// DefaultThreshold is the straight-line distance, in map units, under
	// which two participants count as nearby.
	DefaultThreshold = 80.0
	// DefaultInterval bounds how often the nearby set is recomputed.
	DefaultInterval = 300 * time.Millisecond
)

// Nearby returns the ids of the other participants close to local: sharing a
// non-empty zone id, or within the distance threshold.
func Nearby(local models.Participant, others []models.Participant, threshold float64) []string {
	ids := make([]string, 0, len(others))
	for _, p := range others {
		if isNearby(local, p, threshold) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func isNearby(a, b models.Participant, threshold float64) bool {
	if a.Location.ZoneID != "" && a.Location.ZoneID == b.Location.ZoneID {
		return true
	}
	return math.Hypot(a.Location.X-b.Location.X, a.Location.Y-b.Location.Y) < threshold
}

// Calculator throttles nearby-set recomputation and reports only set
// changes, so downstream consumers (call rejoin and the like) are not
// hammered by redundant updates.
type Calculator struct {
	clock     clockwork.Clock
	threshold float64
	interval  time.Duration

	lastRun time.Time
	nearby  []string
}

// NewCalculator builds a calculator. Zero threshold or interval select the
// defaults.
func NewCalculator(clock clockwork.Clock, threshold float64, interval time.Duration) *Calculator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Calculator{clock: clock, threshold: threshold, interval: interval}
}

// Update recomputes the nearby set if the throttle interval has elapsed.
// It returns the current set and whether it differs, order-independently,
// from the previous one. Throttled calls report no change.
func (c *Calculator) Update(local models.Participant, others []models.Participant) ([]string, bool) {
	now := c.clock.Now()
	if !c.lastRun.IsZero() && now.Sub(c.lastRun) < c.interval {
		return c.Current(), false
	}
	c.lastRun = now

	next := Nearby(local, others, c.threshold)
	left, right := lo.Difference(c.nearby, next)
	changed := len(left) > 0 || len(right) > 0
	c.nearby = next
	return c.Current(), changed
}

// Current returns a copy of the most recently computed nearby set.
func (c *Calculator) Current() []string {
	out := make([]string, len(c.nearby))
	copy(out, c.nearby)
	return out
}
