// Package ipc exposes the desktop and window directories over a local
// control endpoint: a named pipe on Windows, a unix socket elsewhere.
// Messages are length-prefixed JSON envelopes.
package ipc

import (
	"encoding/json"

	"github.com/winvd/winvd/internal/vdapi"
)

// Request type constants.
const (
	TypeListDesktops   = "list_desktops"
	TypeCurrentDesktop = "current_desktop"
	TypeSwitchDesktop  = "switch_desktop"
	TypeSwitchNext     = "switch_next"
	TypeSwitchPrev     = "switch_prev"
	TypeCreateDesktop  = "create_desktop"
	TypeRemoveDesktop  = "remove_desktop"
	TypeMoveWindow     = "move_window"
	TypeListWindows    = "list_windows"
	TypeRefresh        = "refresh"
	TypePing           = "ping"
)

// MaxMessageSize is the maximum size of a JSON IPC message.
const MaxMessageSize = 4 * 1024 * 1024

// ProtocolVersion is the current control protocol version.
const ProtocolVersion = 1

// Envelope is the wire-format wrapper for all IPC messages.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Error classifies failures for the remote caller; see ErrorKind.
	Error *ErrorInfo `json:"error,omitempty"`
}

// ErrorKind mirrors the vdapi error taxonomy across the wire.
type ErrorKind string

const (
	ErrKindNotFound         ErrorKind = "not_found"
	ErrKindInvalidOperation ErrorKind = "invalid_operation"
	ErrKindUnavailable      ErrorKind = "unavailable"
	ErrKindOperationFailed  ErrorKind = "operation_failed"
	ErrKindBadRequest       ErrorKind = "bad_request"
)

// ErrorInfo carries a classified failure. ID is filled for not-found
// conditions so the caller can surface the offending identifier.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	ID      string    `json:"id,omitempty"`
}

// SwitchRequest targets a desktop by id.
type SwitchRequest struct {
	DesktopID string `json:"desktopId"`
}

// CreateRequest optionally names the new desktop.
type CreateRequest struct {
	Name string `json:"name,omitempty"`
}

// RemoveRequest targets a desktop by id.
type RemoveRequest struct {
	DesktopID string `json:"desktopId"`
}

// MoveWindowRequest reassigns a window to a desktop.
type MoveWindowRequest struct {
	Handle    uint64 `json:"handle"`
	DesktopID string `json:"desktopId"`
}

// ListWindowsRequest selects a window filter. Exactly one filter field
// is honored; all empty means "all windows".
type ListWindowsRequest struct {
	DesktopID   string `json:"desktopId,omitempty"`
	ProcessID   uint32 `json:"processId,omitempty"`
	ProcessName string `json:"processName,omitempty"`
	VisibleOnly bool   `json:"visibleOnly,omitempty"`
}

// DesktopsResponse lists desktop snapshots.
type DesktopsResponse struct {
	Desktops []vdapi.VirtualDesktop `json:"desktops"`
}

// DesktopResponse carries one desktop snapshot; Present is false when
// the shell reports no current desktop.
type DesktopResponse struct {
	Present bool                 `json:"present"`
	Desktop vdapi.VirtualDesktop `json:"desktop"`
}

// SwitchedResponse reports the boolean outcome of a navigation
// convenience operation.
type SwitchedResponse struct {
	Switched bool `json:"switched"`
}

// WindowsResponse lists window snapshots.
type WindowsResponse struct {
	Windows []vdapi.Window `json:"windows"`
}

// PingResponse reports daemon liveness and the negotiated interface.
type PingResponse struct {
	ProtocolVersion int    `json:"protocolVersion"`
	OSBuild         int    `json:"osBuild"`
	Interface       string `json:"interface"`
}
