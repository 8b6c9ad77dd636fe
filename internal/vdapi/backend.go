package vdapi

// desktopBackend is the narrow native surface the desktop directory
// drives. The Windows implementation lives on the session; tests
// substitute fakes.
type desktopBackend interface {
	// Desktops returns snapshots in the shell's current order. An
	// empty result is valid: the feature may be enumerable yet empty.
	Desktops() ([]VirtualDesktop, error)

	// Current returns the active desktop; ok is false when the shell
	// itself reports none.
	Current() (VirtualDesktop, bool, error)

	// Switch activates the desktop; found is false when the id does
	// not resolve.
	Switch(id DesktopID) (found bool, err error)

	// Adjacent returns the neighbor of from in the given direction
	// (adjacentLeft/adjacentRight); ok is false at the ends.
	Adjacent(from DesktopID, direction int) (d VirtualDesktop, ok bool, err error)

	// Create makes a new desktop and names it when the negotiated
	// interface supports naming; otherwise the name is dropped.
	Create(name string) (VirtualDesktop, error)

	// Remove deletes the desktop, reassigning its windows to
	// fallback; found is false when the id does not resolve.
	Remove(id, fallback DesktopID) (found bool, err error)

	// MoveWindow reassigns a top-level window; found is false when
	// the desktop id does not resolve.
	MoveWindow(h WindowHandle, id DesktopID) (found bool, err error)
}

// windowProbe is the raw per-window readout of one enumeration step,
// before the directory's filters run.
type windowProbe struct {
	Handle     WindowHandle
	Title      string
	Visible    bool
	HasCaption bool
	Minimized  bool
	Maximized  bool
	ProcessID  uint32

	// ShellRoot marks the desktop window and the shell's own root
	// window, which are never application windows.
	ShellRoot bool
}

// windowSource is the native surface the window directory drives.
type windowSource interface {
	// Walk visits every top-level window once and returns its probe.
	Walk() ([]windowProbe, error)

	// ProcessName resolves the image name of pid. Best effort: the
	// process may already be gone.
	ProcessName(pid uint32) (string, error)

	// WindowDesktop reports the desktop a window sits on; ok is false
	// when the shell has no association for it.
	WindowDesktop(h WindowHandle) (id DesktopID, ok bool, err error)
}
