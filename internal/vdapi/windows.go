package vdapi

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a cached window enumeration may be
// before a read triggers a fresh pass.
const DefaultCacheTTL = time.Second

// unknownProcess is reported when the owning process cannot be
// queried, e.g. it exited between the walk and the lookup.
const unknownProcess = "Unknown"

// WindowDirectory produces filtered snapshots of top-level windows and
// their desktop association. Enumeration results are cached for a
// short TTL; all read accessors refresh the cache when it is missing
// or expired and then filter in memory. Reads and refreshes are
// safe for concurrent use.
type WindowDirectory struct {
	source windowSource
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	cache    []Window
	cachedAt time.Time
	valid    bool
}

// WindowOption configures a WindowDirectory.
type WindowOption func(*WindowDirectory)

// WithCacheTTL overrides the snapshot time-to-live.
func WithCacheTTL(ttl time.Duration) WindowOption {
	return func(w *WindowDirectory) { w.ttl = ttl }
}

// NewWindowDirectory builds a directory over the session's capability
// handles.
func NewWindowDirectory(sess *Session, opts ...WindowOption) *WindowDirectory {
	return newWindowDirectory(sess.windowSource(), opts...)
}

func newWindowDirectory(src windowSource, opts ...WindowOption) *WindowDirectory {
	w := &WindowDirectory{
		source: src,
		ttl:    DefaultCacheTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Refresh discards the cache and runs a new enumeration pass
// regardless of TTL.
func (w *WindowDirectory) Refresh() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refreshLocked()
}

// ListAll returns every window that survived the enumeration filters.
func (w *WindowDirectory) ListAll() ([]Window, error) {
	return w.filtered(func(Window) bool { return true })
}

// ListForDesktop returns the windows associated with the desktop.
func (w *WindowDirectory) ListForDesktop(id DesktopID) ([]Window, error) {
	return w.filtered(func(win Window) bool { return win.OnDesktop(id) })
}

// FindByHandle returns the cached window with the exact handle.
// Unknown handles raise NotFoundError.
func (w *WindowDirectory) FindByHandle(h WindowHandle) (Window, error) {
	wins, err := w.filtered(func(win Window) bool { return win.Handle == h })
	if err != nil {
		return Window{}, err
	}
	if len(wins) == 0 {
		return Window{}, &NotFoundError{Kind: "window", ID: windowHandleString(h)}
	}
	return wins[0], nil
}

// ListByProcessID returns the windows owned by the process.
func (w *WindowDirectory) ListByProcessID(pid uint32) ([]Window, error) {
	return w.filtered(func(win Window) bool { return win.ProcessID == pid })
}

// ListByProcessName returns the windows whose owning process name
// matches, case-insensitively.
func (w *WindowDirectory) ListByProcessName(name string) ([]Window, error) {
	return w.filtered(func(win Window) bool {
		return strings.EqualFold(win.ProcessName, name)
	})
}

// ListVisible returns the windows whose visibility flag was set at
// snapshot time.
func (w *WindowDirectory) ListVisible() ([]Window, error) {
	return w.filtered(func(win Window) bool { return win.IsVisible })
}

// filtered ensures the cache is fresh, then copies out the matching
// entries. No accessor triggers native work beyond the freshness
// check.
func (w *WindowDirectory) filtered(keep func(Window) bool) ([]Window, error) {
	w.mu.RLock()
	if w.freshLocked() {
		out := filterWindows(w.cache, keep)
		w.mu.RUnlock()
		return out, nil
	}
	w.mu.RUnlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.freshLocked() {
		if err := w.refreshLocked(); err != nil {
			return nil, err
		}
	}
	return filterWindows(w.cache, keep), nil
}

func filterWindows(cache []Window, keep func(Window) bool) []Window {
	out := make([]Window, 0, len(cache))
	for _, win := range cache {
		if keep(win) {
			out = append(out, win)
		}
	}
	return out
}

func (w *WindowDirectory) freshLocked() bool {
	return w.valid && w.now().Sub(w.cachedAt) < w.ttl
}

// refreshLocked runs the enumeration pass. Filter order follows the
// shell heuristics for "real" application windows: drop shell roots,
// invisible windows, caption-less windows and windows with an empty
// title. Per-window failures degrade that window, never the pass.
func (w *WindowDirectory) refreshLocked() error {
	probes, err := w.source.Walk()
	if err != nil {
		return opErr("enumerate windows", err)
	}

	snapshot := make([]Window, 0, len(probes))
	for _, p := range probes {
		if p.ShellRoot || !p.Visible || !p.HasCaption || p.Title == "" {
			continue
		}

		win := Window{
			Handle:      p.Handle,
			Title:       p.Title,
			ProcessID:   p.ProcessID,
			IsVisible:   p.Visible,
			IsMinimized: p.Minimized,
			IsMaximized: p.Maximized,
		}

		if name, err := w.source.ProcessName(p.ProcessID); err == nil && name != "" {
			win.ProcessName = name
		} else {
			win.ProcessName = unknownProcess
		}

		if id, ok, err := w.source.WindowDesktop(p.Handle); err == nil && ok {
			win.DesktopID = id
		}

		snapshot = append(snapshot, win)
	}

	w.cache = snapshot
	w.cachedAt = w.now()
	w.valid = true
	return nil
}

func windowHandleString(h WindowHandle) string {
	return fmt.Sprintf("0x%X", uintptr(h))
}
