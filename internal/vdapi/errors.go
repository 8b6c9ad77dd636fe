package vdapi

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityInit means session setup failed while acquiring the
	// shell capability handles. Fatal to session construction.
	ErrCapabilityInit = errors.New("vdapi: capability initialization failed")

	// ErrFeatureUnavailable means the public shell handles were
	// acquired but the internal desktop service could not be located:
	// the feature is off or absent, not broken.
	ErrFeatureUnavailable = errors.New("vdapi: virtual desktop feature unavailable")

	// ErrUnsupported is returned from every operation on platforms
	// without the virtual desktop shell feature.
	ErrUnsupported = errors.New("vdapi: virtual desktops not supported on this platform")

	// ErrSessionClosed is returned when an operation is issued against
	// a session whose handles have been released.
	ErrSessionClosed = errors.New("vdapi: session closed")
)

// NotFoundError reports that a caller-supplied identifier did not
// resolve to a live entity.
type NotFoundError struct {
	Kind string // "desktop" or "window"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("vdapi: %s %s not found", e.Kind, e.ID)
}

func desktopNotFound(id DesktopID) *NotFoundError {
	return &NotFoundError{Kind: "desktop", ID: id.String()}
}

// InvalidOperationError reports a structurally disallowed request,
// e.g. removing the last remaining desktop.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return "vdapi: invalid operation: " + e.Reason
}

// OperationError wraps a native failure that has no more specific
// classification. The underlying HRESULT diagnostic is preserved for
// callers that surface messages.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("vdapi: %s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// opErr wraps err as an OperationError unless it already carries a
// domain classification.
func opErr(op string, err error) error {
	var nf *NotFoundError
	var inv *InvalidOperationError
	if errors.As(err, &nf) || errors.As(err, &inv) ||
		errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrUnsupported) {
		return err
	}
	return &OperationError{Op: op, Err: err}
}
