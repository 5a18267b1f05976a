// Package budget tracks API usage against per-service daily and per-minute
// quotas. A Tracker is injected into every external call site so sessions can
// be tested in isolation with fresh budgets.
package budget

import (
	"sync"
	"time"

	"dexradar/internal/apierr"
)

// Quota limits calls for one external service. Zero means unlimited.
type Quota struct {
	PerMinute int
	PerDay    int
}

// Unlimited is returned by RemainingDay for services without a daily quota.
const Unlimited = -1

// Tracker is the only cross-call shared mutable state in a session. Every
// check-then-increment happens atomically under the mutex.
type Tracker struct {
	mu     sync.Mutex
	quotas map[string]Quota
	usage  map[string]*serviceUsage
	clock  func() time.Time
}

type serviceUsage struct {
	minuteStart time.Time
	minuteCount int
	dayStart    time.Time
	dayCount    int
	total       int
}

// NewTracker creates a tracker with the given quota table. Services absent
// from the table are unlimited but still counted.
func NewTracker(quotas map[string]Quota) *Tracker {
	if quotas == nil {
		quotas = map[string]Quota{}
	}
	return &Tracker{
		quotas: quotas,
		usage:  make(map[string]*serviceUsage),
		clock:  time.Now,
	}
}

// WithClock sets a custom clock for deterministic tests.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// TryUse records n calls against service if quota allows, or returns
// apierr.ErrBudgetExceeded without recording anything.
func (t *Tracker) TryUse(service string, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.roll(service)
	q := t.quotas[service]

	if q.PerMinute > 0 && u.minuteCount+n > q.PerMinute {
		return apierr.ErrBudgetExceeded
	}
	if q.PerDay > 0 && u.dayCount+n > q.PerDay {
		return apierr.ErrBudgetExceeded
	}

	u.minuteCount += n
	u.dayCount += n
	u.total += n
	return nil
}

// Use records n calls unconditionally. For call sites that discover usage
// after the fact (e.g. a collaborator reporting api_calls_used).
func (t *Tracker) Use(service string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.roll(service)
	u.minuteCount += n
	u.dayCount += n
	u.total += n
}

// RemainingDay returns the remaining daily quota for service, or Unlimited.
func (t *Tracker) RemainingDay(service string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	q := t.quotas[service]
	if q.PerDay <= 0 {
		return Unlimited
	}
	u := t.roll(service)
	remaining := q.PerDay - u.dayCount
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Snapshot returns total calls per service since tracker creation.
func (t *Tracker) Snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.usage))
	for svc, u := range t.usage {
		out[svc] = u.total
	}
	return out
}

// roll fetches the usage record for service, resetting expired windows.
// Caller must hold the mutex.
func (t *Tracker) roll(service string) *serviceUsage {
	now := t.clock()

	u, ok := t.usage[service]
	if !ok {
		u = &serviceUsage{minuteStart: now, dayStart: now}
		t.usage[service] = u
		return u
	}

	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart = now
		u.minuteCount = 0
	}
	ny, nd := now.Year(), now.YearDay()
	dy, dd := u.dayStart.Year(), u.dayStart.YearDay()
	if ny != dy || nd != dd {
		u.dayStart = now
		u.dayCount = 0
	}
	return u
}
