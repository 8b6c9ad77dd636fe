package vdapi

import (
	"sync"

	"github.com/winvd/winvd/internal/logging"
)

var log = logging.L("vdapi")

// DesktopDirectory exposes CRUD and navigation over virtual desktops.
// Mutating operations are serialized by an internal mutex; the settle
// strategy runs after each mutation while the lock is held.
type DesktopDirectory struct {
	backend desktopBackend
	settler Settler
	mu      sync.Mutex
}

// DesktopOption configures a DesktopDirectory.
type DesktopOption func(*DesktopDirectory)

// WithSettler overrides the completion-wait strategy.
func WithSettler(s Settler) DesktopOption {
	return func(d *DesktopDirectory) { d.settler = s }
}

// NewDesktopDirectory builds a directory over the session's capability
// handles.
func NewDesktopDirectory(sess *Session, opts ...DesktopOption) *DesktopDirectory {
	return newDesktopDirectory(sess.desktopBackend(), opts...)
}

func newDesktopDirectory(b desktopBackend, opts ...DesktopOption) *DesktopDirectory {
	d := &DesktopDirectory{
		backend: b,
		settler: FixedSettler{Interval: DefaultSettleInterval},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// List returns a snapshot of every enumerable desktop. An empty slice
// is a valid result, not an error.
func (d *DesktopDirectory) List() ([]VirtualDesktop, error) {
	desktops, err := d.backend.Desktops()
	if err != nil {
		return nil, opErr("list desktops", err)
	}
	return desktops, nil
}

// Current returns the active desktop, or ok=false when the shell
// reports none.
func (d *DesktopDirectory) Current() (VirtualDesktop, bool, error) {
	cur, ok, err := d.backend.Current()
	if err != nil {
		return VirtualDesktop{}, false, opErr("query current desktop", err)
	}
	return cur, ok, nil
}

// SwitchTo activates the desktop with the given id. Unknown ids raise
// NotFoundError.
func (d *DesktopDirectory) SwitchTo(id DesktopID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	found, err := d.backend.Switch(id)
	if err != nil {
		return opErr("switch desktop", err)
	}
	if !found {
		return desktopNotFound(id)
	}
	d.settler.Settle()
	return nil
}

// SwitchNext activates the desktop to the right of the current one,
// wrapping to the first desktop at the end. The return value is false
// when there is nothing to navigate to (no current desktop, or the
// listing is empty); navigation failures are deliberately a boolean
// outcome, not an error, unlike SwitchTo.
func (d *DesktopDirectory) SwitchNext() (bool, error) {
	return d.switchAdjacent(adjacentRight)
}

// SwitchPrevious activates the desktop to the left of the current one,
// wrapping to the last desktop at the start. Same boolean contract as
// SwitchNext.
func (d *DesktopDirectory) SwitchPrevious() (bool, error) {
	return d.switchAdjacent(adjacentLeft)
}

func (d *DesktopDirectory) switchAdjacent(direction int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cur, ok, err := d.backend.Current()
	if err != nil {
		return false, opErr("query current desktop", err)
	}
	if !ok {
		return false, nil
	}

	target, ok, err := d.backend.Adjacent(cur.ID, direction)
	if err != nil {
		return false, opErr("query adjacent desktop", err)
	}
	if !ok {
		// At an end: wrap around via the full listing.
		all, err := d.backend.Desktops()
		if err != nil {
			return false, opErr("list desktops", err)
		}
		if len(all) == 0 {
			return false, nil
		}
		if direction == adjacentRight {
			target = all[0]
		} else {
			target = all[len(all)-1]
		}
	}

	if target.ID == cur.ID {
		// Single desktop: wrapping lands where we started.
		return true, nil
	}

	found, err := d.backend.Switch(target.ID)
	if err != nil {
		return false, opErr("switch desktop", err)
	}
	if !found {
		// The target vanished between enumeration and switch.
		return false, nil
	}
	d.settler.Settle()
	return true, nil
}

// Create makes a new desktop and returns its snapshot. When the
// negotiated interface cannot name desktops the name is left absent
// rather than failing the call.
func (d *DesktopDirectory) Create(name string) (VirtualDesktop, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desk, err := d.backend.Create(name)
	if err != nil {
		return VirtualDesktop{}, opErr("create desktop", err)
	}
	d.settler.Settle()
	log.Info("desktop created", "id", desk.ID.String(), "name", desk.Name)
	return desk, nil
}

// Remove deletes the desktop with the given id, reassigning its
// windows to the current desktop. Unknown ids raise NotFoundError;
// removing the last remaining desktop raises InvalidOperationError.
func (d *DesktopDirectory) Remove(id DesktopID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.backend.Desktops()
	if err != nil {
		return opErr("list desktops", err)
	}
	if len(all) <= 1 {
		return &InvalidOperationError{Reason: "cannot remove the last remaining desktop"}
	}

	fallback, ok, err := d.backend.Current()
	if err != nil {
		return opErr("query current desktop", err)
	}
	if !ok || fallback.ID == id {
		// Removing the active desktop: fall back to another survivor.
		for _, desk := range all {
			if desk.ID != id {
				fallback = desk
				break
			}
		}
	}

	found, err := d.backend.Remove(id, fallback.ID)
	if err != nil {
		return opErr("remove desktop", err)
	}
	if !found {
		return desktopNotFound(id)
	}
	d.settler.Settle()
	log.Info("desktop removed", "id", id.String())
	return nil
}

// MoveWindow reassigns a top-level window to the desktop with the
// given id. The move targets the bare window handle, not its
// application view; certain modern application windows are owned by a
// different process and the shell rejects or ignores the move for
// them. That limitation is inherited from the underlying shell call.
func (d *DesktopDirectory) MoveWindow(h WindowHandle, id DesktopID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	found, err := d.backend.MoveWindow(h, id)
	if err != nil {
		return opErr("move window", err)
	}
	if !found {
		return desktopNotFound(id)
	}
	d.settler.Settle()
	return nil
}
