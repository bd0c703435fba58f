// Package schedule gates crawl runs. A run is admitted only when no
// other run holds the lock, the minimum interval since the previous
// start has elapsed, and the current time falls inside the configured
// active window.
package schedule

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Reasons a run is refused.
var (
	ErrAlreadyRunning = eris.New("schedule: a run is already in progress")
	ErrTooSoon        = eris.New("schedule: minimum interval since last run has not elapsed")
	ErrOutsideWindow  = eris.New("schedule: outside active hours")
)

// Gate serializes runs and enforces pacing. The zero value is not
// usable; construct with New.
type Gate struct {
	mu          sync.Mutex
	running     bool
	lastStart   time.Time
	minInterval time.Duration
	hourStart   int
	hourEnd     int
}

// New returns a Gate. A window of (0, 24) disables the active-hours
// check.
func New(minInterval time.Duration, hourStart, hourEnd int) *Gate {
	return &Gate{
		minInterval: minInterval,
		hourStart:   hourStart,
		hourEnd:     hourEnd,
	}
}

// TryStart admits a run starting at now, or returns the reason it is
// refused. On success the caller must call Finish when the run ends.
// The last-start timestamp advances even if the run later fails, so a
// crashing run still backs off.
func (g *Gate) TryStart(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return ErrAlreadyRunning
	}
	if !g.lastStart.IsZero() && now.Sub(g.lastStart) < g.minInterval {
		return ErrTooSoon
	}
	if !g.inWindow(now) {
		return ErrOutsideWindow
	}

	g.running = true
	g.lastStart = now
	return nil
}

// Finish releases the run lock.
func (g *Gate) Finish() {
	g.mu.Lock()
	g.running = false
	g.mu.Unlock()
}

// inWindow reports whether now's hour falls inside [hourStart, hourEnd).
// A wrapped window such as 22..6 spans midnight.
func (g *Gate) inWindow(now time.Time) bool {
	if g.hourStart == 0 && g.hourEnd == 24 {
		return true
	}
	h := now.Hour()
	if g.hourStart <= g.hourEnd {
		return h >= g.hourStart && h < g.hourEnd
	}
	return h >= g.hourStart || h < g.hourEnd
}
