package vdapi

import "time"

// DefaultSettleInterval is the wait inserted after a mutating shell
// call. The shell completes switches and removals out of band and
// offers no synchronous confirmation on this path, so the directory
// compensates with a fixed delay.
const DefaultSettleInterval = 150 * time.Millisecond

// Settler is the completion-wait strategy applied after a desktop
// mutation. The default sleeps a fixed interval; an implementation
// subscribing to the shell's change notifications could replace it
// without touching the directory API.
type Settler interface {
	Settle()
}

// FixedSettler waits a constant interval.
type FixedSettler struct {
	Interval time.Duration
}

func (s FixedSettler) Settle() {
	if s.Interval > 0 {
		time.Sleep(s.Interval)
	}
}

// NoSettle skips the wait entirely.
type NoSettle struct{}

func (NoSettle) Settle() {}
