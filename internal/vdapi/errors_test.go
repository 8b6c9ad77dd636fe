package vdapi

import (
	"errors"
	"testing"
)

func TestOpErrPassesThroughClassifiedErrors(t *testing.T) {
	nf := desktopNotFound(DesktopID{1})
	if got := opErr("switch desktop", nf); got != nf {
		t.Fatalf("NotFoundError was rewrapped: %v", got)
	}

	inv := &InvalidOperationError{Reason: "nope"}
	if got := opErr("remove desktop", inv); got != inv {
		t.Fatalf("InvalidOperationError was rewrapped: %v", got)
	}

	if got := opErr("list desktops", ErrSessionClosed); !errors.Is(got, ErrSessionClosed) {
		t.Fatalf("ErrSessionClosed lost: %v", got)
	}
	if got := opErr("list desktops", ErrUnsupported); !errors.Is(got, ErrUnsupported) {
		t.Fatalf("ErrUnsupported lost: %v", got)
	}
}

func TestOpErrWrapsUnclassifiedErrors(t *testing.T) {
	cause := errors.New("hresult 0x8000FFFF")
	got := opErr("create desktop", cause)

	var op *OperationError
	if !errors.As(got, &op) {
		t.Fatalf("got %T, want OperationError", got)
	}
	if op.Op != "create desktop" {
		t.Errorf("Op = %q", op.Op)
	}
	if !errors.Is(got, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
}

func TestSessionStateString(t *testing.T) {
	cases := map[SessionState]string{
		StateUninitialized: "uninitialized",
		StateAcquiring:     "acquiring",
		StateReady:         "ready",
		StateFailed:        "failed",
		StateClosed:        "closed",
		SessionState(99):   "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(state), got, want)
		}
	}
}
