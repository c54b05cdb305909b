// Package tracker attributes elapsed active time and input events to the
// domain under the user's attention. Time accrues to a domain only while the
// window is focused and the user is not idle; everything else pauses the
// running interval without losing the domain.
package tracker

import (
	"time"

	"github.com/nv4818/webtrack/internal/model"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type Accumulator struct {
	clock Clock

	activeDomain string
	startedAt    *time.Time
	focused      bool
	idle         bool

	usage map[string]*model.UsageEntry
}

func New(clock Clock) *Accumulator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Accumulator{
		clock:   clock,
		focused: true,
		usage:   map[string]*model.UsageEntry{},
	}
}

func (a *Accumulator) ActiveDomain() string { return a.activeDomain }
func (a *Accumulator) Focused() bool        { return a.focused }
func (a *Accumulator) Idle() bool           { return a.idle }

// Tracking reports whether an interval is currently open.
func (a *Accumulator) Tracking() bool { return a.startedAt != nil }

// SwitchActiveDomain closes out the running interval, then begins tracking
// domain. An empty domain stops tracking entirely.
func (a *Accumulator) SwitchActiveDomain(domain string) {
	a.closeInterval()
	a.activeDomain = domain
	a.startedAt = nil
	if domain != "" && a.focused && !a.idle {
		now := a.clock.Now()
		a.startedAt = &now
	}
}

// SetFocus pauses accounting on focus loss and resumes it on regain. The
// caller re-resolves the active domain before calling with focused=true.
func (a *Accumulator) SetFocus(focused bool) {
	if a.focused == focused {
		return
	}
	a.focused = focused
	if focused {
		a.resume()
	} else {
		a.pause()
	}
}

// SetIdle pauses accounting on idle onset and resumes when activity returns,
// provided focus is still held.
func (a *Accumulator) SetIdle(idle bool) {
	if a.idle == idle {
		return
	}
	a.idle = idle
	if idle {
		a.pause()
	} else {
		a.resume()
	}
}

// RecordInput adds input deltas to domain. Events arriving while unfocused
// or idle are dropped, not queued.
func (a *Accumulator) RecordInput(domain string, delta model.InputDelta) {
	if domain == "" || delta.IsZero() {
		return
	}
	if !a.focused || a.idle {
		return
	}
	entry := a.ensureEntry(domain)
	entry.Keys += delta.Keys
	entry.Clicks += delta.Clicks
	entry.Scrolls += delta.Scrolls
	entry.MouseDistanceIn += delta.MouseDistanceIn
}

// CloseAndReopen closes the running interval into the accumulator and
// immediately reopens it, so the active domain is fully counted up to now
// without being double-counted across a report boundary. No-op unless an
// interval is open.
func (a *Accumulator) CloseAndReopen() {
	if a.startedAt == nil {
		return
	}
	a.closeInterval()
	now := a.clock.Now()
	a.startedAt = &now
}

// Usage returns a copy of the accumulated per-domain counters.
func (a *Accumulator) Usage() map[string]model.UsageEntry {
	out := make(map[string]model.UsageEntry, len(a.usage))
	for domain, entry := range a.usage {
		out[domain] = *entry
	}
	return out
}

// ClearDomains removes the given domains after a confirmed report send.
// Domains held back from the report survive untouched.
func (a *Accumulator) ClearDomains(domains []string) {
	for _, domain := range domains {
		delete(a.usage, domain)
	}
}

func (a *Accumulator) pause() {
	a.closeInterval()
	a.startedAt = nil
}

func (a *Accumulator) resume() {
	if a.activeDomain == "" || a.startedAt != nil {
		return
	}
	if !a.focused || a.idle {
		return
	}
	now := a.clock.Now()
	a.startedAt = &now
}

// closeInterval folds the elapsed whole seconds of the open interval into
// the active domain. Sub-second remainders are truncated, never rounded.
func (a *Accumulator) closeInterval() {
	if a.startedAt == nil || a.activeDomain == "" {
		return
	}
	elapsed := a.clock.Now().Sub(*a.startedAt)
	seconds := int64(elapsed / time.Second)
	if seconds <= 0 {
		return
	}
	a.ensureEntry(a.activeDomain).Seconds += seconds
}

func (a *Accumulator) ensureEntry(domain string) *model.UsageEntry {
	entry, ok := a.usage[domain]
	if !ok {
		entry = &model.UsageEntry{}
		a.usage[domain] = entry
	}
	return entry
}
