package game

import (
	"math/rand"
	"time"
)

// Clock supplies timestamps for throttled recomputation and suppression timers.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock only moves when told to. Headless runs and tests use it so
// throttles follow simulated time instead of host speed.
type ManualClock struct {
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (m *ManualClock) Now() time.Time { return m.now }

// Advance moves the clock forward by d.
func (m *ManualClock) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Set jumps the clock to t.
func (m *ManualClock) Set(t time.Time) {
	m.now = t
}

// simEpoch is where sim-owned clocks start.
var simEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Rand is the source of every random draw in the simulation.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// NewRand returns a seeded deterministic source.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed)) // #nosec G404 -- simulation only
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
