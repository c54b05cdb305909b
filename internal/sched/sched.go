// Package sched abstracts cancellable one-shot timers so the core and the
// transport can be driven deterministically in tests.
package sched

import "time"

type Timer interface {
	// Stop cancels the timer. Stopping an already-fired or already-stopped
	// timer is a no-op.
	Stop() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type realScheduler struct{}

func New() Scheduler { return realScheduler{} }

func (realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
