package tracker_test

import (
	"testing"
	"time"

	"github.com/nv4818/webtrack/internal/model"
	"github.com/nv4818/webtrack/internal/tracker"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSwitchAttributesElapsedSeconds(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SwitchActiveDomain("a.com")
	clock.Advance(10 * time.Second)
	acc.SwitchActiveDomain("b.com")
	clock.Advance(5 * time.Second)
	acc.SwitchActiveDomain("")

	usage := acc.Usage()
	if usage["a.com"].Seconds != 10 {
		t.Fatalf("a.com seconds = %d, want 10", usage["a.com"].Seconds)
	}
	if usage["b.com"].Seconds != 5 {
		t.Fatalf("b.com seconds = %d, want 5", usage["b.com"].Seconds)
	}
	if acc.Tracking() {
		t.Fatalf("no interval should be open after switching to none")
	}
}

func TestSubSecondIntervalsTruncate(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SwitchActiveDomain("a.com")
	clock.Advance(900 * time.Millisecond)
	acc.SwitchActiveDomain("b.com")
	clock.Advance(2500 * time.Millisecond)
	acc.SwitchActiveDomain("")

	usage := acc.Usage()
	if _, ok := usage["a.com"]; ok {
		t.Fatalf("sub-second interval must not create an entry: %+v", usage)
	}
	if usage["b.com"].Seconds != 2 {
		t.Fatalf("b.com seconds = %d, want 2 (floor)", usage["b.com"].Seconds)
	}
}

func TestIdleWindowExcluded(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	// User views a.com for 30s, idles 70s, returns for 20s.
	acc.SwitchActiveDomain("a.com")
	clock.Advance(30 * time.Second)
	acc.SetIdle(true)
	clock.Advance(70 * time.Second)
	acc.SetIdle(false)
	clock.Advance(20 * time.Second)
	acc.SwitchActiveDomain("")

	usage := acc.Usage()
	if usage["a.com"].Seconds != 50 {
		t.Fatalf("a.com seconds = %d, want 50 (idle window excluded)", usage["a.com"].Seconds)
	}
}

func TestFocusLossPausesAndRetainsDomain(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SwitchActiveDomain("a.com")
	clock.Advance(12 * time.Second)
	acc.SetFocus(false)
	clock.Advance(60 * time.Second)

	if acc.ActiveDomain() != "a.com" {
		t.Fatalf("pause must retain the domain, got %q", acc.ActiveDomain())
	}
	if acc.Tracking() {
		t.Fatalf("pause must close the interval")
	}

	acc.SetFocus(true)
	clock.Advance(8 * time.Second)
	acc.SwitchActiveDomain("")

	if got := acc.Usage()["a.com"].Seconds; got != 20 {
		t.Fatalf("a.com seconds = %d, want 20", got)
	}
}

func TestResumeWhileIdleStaysPaused(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SwitchActiveDomain("a.com")
	acc.SetIdle(true)
	acc.SetFocus(false)
	clock.Advance(30 * time.Second)

	// Focus returns but the user is still idle: no interval opens.
	acc.SetFocus(true)
	if acc.Tracking() {
		t.Fatalf("regaining focus while idle must not resume")
	}
	clock.Advance(30 * time.Second)
	acc.SetIdle(false)
	if !acc.Tracking() {
		t.Fatalf("leaving idle with focus held must resume")
	}
	clock.Advance(5 * time.Second)
	acc.SwitchActiveDomain("")
	if got := acc.Usage()["a.com"].Seconds; got != 5 {
		t.Fatalf("a.com seconds = %d, want 5", got)
	}
}

func TestSwitchWhileUnfocusedDefersInterval(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SetFocus(false)
	acc.SwitchActiveDomain("a.com")
	if acc.Tracking() {
		t.Fatalf("switch while unfocused must not open an interval")
	}
	clock.Advance(40 * time.Second)
	acc.SetFocus(true)
	clock.Advance(7 * time.Second)
	acc.SwitchActiveDomain("")
	if got := acc.Usage()["a.com"].Seconds; got != 7 {
		t.Fatalf("a.com seconds = %d, want 7", got)
	}
}

func TestRecordInputGatedByFocusAndIdle(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)
	acc.SwitchActiveDomain("a.com")

	acc.RecordInput("a.com", model.InputDelta{Keys: 3, Clicks: 1, MouseDistanceIn: 0.4})
	acc.SetFocus(false)
	acc.RecordInput("a.com", model.InputDelta{Keys: 100})
	acc.SetFocus(true)
	acc.SetIdle(true)
	acc.RecordInput("a.com", model.InputDelta{Clicks: 100})
	acc.SetIdle(false)
	acc.RecordInput("a.com", model.InputDelta{Scrolls: 2})

	entry := acc.Usage()["a.com"]
	if entry.Keys != 3 || entry.Clicks != 1 || entry.Scrolls != 2 || entry.MouseDistanceIn != 0.4 {
		t.Fatalf("dropped input leaked into entry: %+v", entry)
	}
}

func TestRapidSwitchesOnlyKeepInputEntries(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SwitchActiveDomain("a.com")
	clock.Advance(300 * time.Millisecond)
	acc.RecordInput("a.com", model.InputDelta{Clicks: 1})
	acc.SwitchActiveDomain("b.com")
	clock.Advance(300 * time.Millisecond)
	acc.SwitchActiveDomain("c.com")
	clock.Advance(5 * time.Second)
	acc.SwitchActiveDomain("")

	usage := acc.Usage()
	if entry, ok := usage["a.com"]; !ok || entry.Seconds != 0 || entry.Clicks != 1 {
		t.Fatalf("a.com should appear with zero seconds and one click: %+v (ok=%v)", entry, ok)
	}
	if _, ok := usage["b.com"]; ok {
		t.Fatalf("b.com had no input and no whole second; must not appear: %+v", usage)
	}
	if usage["c.com"].Seconds != 5 {
		t.Fatalf("c.com seconds = %d, want 5", usage["c.com"].Seconds)
	}
}

func TestCloseAndReopenNeverDoubleCounts(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SwitchActiveDomain("a.com")
	clock.Advance(30 * time.Second)
	acc.CloseAndReopen()
	if got := acc.Usage()["a.com"].Seconds; got != 30 {
		t.Fatalf("after reopen: %d, want 30", got)
	}
	clock.Advance(30 * time.Second)
	acc.CloseAndReopen()
	clock.Advance(10 * time.Second)
	acc.SwitchActiveDomain("")

	if got := acc.Usage()["a.com"].Seconds; got != 70 {
		t.Fatalf("total = %d, want 70", got)
	}
}

func TestAttributedTimeNeverExceedsActiveWallClock(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	var activeWallClock time.Duration
	step := func(d time.Duration) {
		if acc.Focused() && !acc.Idle() {
			activeWallClock += d
		}
		clock.Advance(d)
	}

	acc.SwitchActiveDomain("a.com")
	step(3 * time.Second)
	acc.SetIdle(true)
	step(90 * time.Second)
	acc.SetIdle(false)
	step(1500 * time.Millisecond)
	acc.SwitchActiveDomain("b.com")
	step(700 * time.Millisecond)
	acc.SetFocus(false)
	step(45 * time.Second)
	acc.SetFocus(true)
	step(4 * time.Second)
	acc.CloseAndReopen()
	step(2 * time.Second)
	acc.SwitchActiveDomain("")

	var total int64
	for _, entry := range acc.Usage() {
		total += entry.Seconds
	}
	max := int64(activeWallClock / time.Second)
	if total > max {
		t.Fatalf("attributed %ds exceeds active wall clock %ds", total, max)
	}
}

func TestClearDomainsIsPartial(t *testing.T) {
	clock := newFakeClock()
	acc := tracker.New(clock)

	acc.SwitchActiveDomain("a.com")
	clock.Advance(5 * time.Second)
	acc.SwitchActiveDomain("b.com")
	clock.Advance(5 * time.Second)
	acc.SwitchActiveDomain("")

	acc.ClearDomains([]string{"a.com"})
	usage := acc.Usage()
	if _, ok := usage["a.com"]; ok {
		t.Fatalf("a.com should be cleared")
	}
	if usage["b.com"].Seconds != 5 {
		t.Fatalf("b.com must survive a partial clear: %+v", usage)
	}
}
