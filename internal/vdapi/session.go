package vdapi

import (
	"runtime"
	"sync"
)

// SessionState describes where a session is in its lifecycle.
type SessionState int

const (
	StateUninitialized SessionState = iota
	StateAcquiring
	StateReady
	StateFailed
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAcquiring:
		return "acquiring"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session owns the chained native capability handles needed for any
// virtual desktop operation: the public desktop manager, the shell
// service locator, and the internal desktop manager obtained through
// it. It is the only entry point that talks to the OS.
//
// The handles carry single-threaded-apartment affinity: create and use
// a session from one goroutine pinned to its OS thread (see the sta
// package) and do not share it across threads without marshaling.
type Session struct {
	native    *nativeSession
	state     SessionState
	stateMu   sync.Mutex
	closeOnce sync.Once
}

// NewSession acquires the capability handle chain. On failure every
// partially acquired handle has already been released. A session that
// could locate the public handles but not the internal desktop service
// fails with ErrFeatureUnavailable; other acquisition failures wrap
// ErrCapabilityInit.
func NewSession() (*Session, error) {
	s := &Session{state: StateAcquiring}

	native, err := openNative()
	if err != nil {
		s.setState(StateFailed)
		return nil, err
	}
	s.native = native
	s.setState(StateReady)

	// Backstop for callers that forget Close: every native handle is
	// released even on abnormal teardown.
	runtime.SetFinalizer(s, func(s *Session) { s.Close() })
	return s, nil
}

// State reports the session lifecycle state.
func (s *Session) State() SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Session) setState(st SessionState) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// BuildNumber returns the detected OS build, 0 when detection failed.
func (s *Session) BuildNumber() int {
	return s.native.buildNumber()
}

// NegotiatedInterface returns the internal manager interface identity
// the OS accepted.
func (s *Session) NegotiatedInterface() string {
	return s.native.negotiatedInterface()
}

// Close releases the held handles in reverse acquisition order,
// exactly once. Safe to call repeatedly and from a finalizer.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		runtime.SetFinalizer(s, nil)
		if s.native != nil {
			s.native.close()
		}
		s.setState(StateClosed)
	})
	return nil
}

func (s *Session) desktopBackend() desktopBackend { return s.native }
func (s *Session) windowSource() windowSource     { return s.native }
