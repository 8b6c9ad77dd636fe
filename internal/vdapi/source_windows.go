//go:build windows

package vdapi

import (
	"fmt"
	"unsafe"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/winvd/winvd/internal/winapi"
)

// windowSource implementation over user32 plus the public desktop
// manager. Probes carry everything the directory's filters need so a
// single walk reads each window once.

func (n *nativeSession) Walk() ([]windowProbe, error) {
	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return nil, ErrSessionClosed
	}

	shellRoot := winapi.ShellWindow()
	desktopRoot := winapi.DesktopWindow()

	var probes []windowProbe
	err := winapi.EnumWindows(func(hwnd uintptr) bool {
		p := windowProbe{
			Handle:    WindowHandle(hwnd),
			ShellRoot: hwnd == shellRoot || hwnd == desktopRoot,
		}
		if !p.ShellRoot {
			p.Visible = winapi.IsWindowVisible(hwnd)
			p.HasCaption = winapi.HasCaption(hwnd)
			if p.Visible && p.HasCaption {
				p.Title = winapi.WindowText(hwnd)
				p.Minimized, p.Maximized = winapi.Placement(hwnd)
				p.ProcessID = winapi.WindowProcessID(hwnd)
			}
		}
		probes = append(probes, p)
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return probes, nil
}

func (n *nativeSession) ProcessName(pid uint32) (string, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return proc.Name()
}

func (n *nativeSession) WindowDesktop(h WindowHandle) (DesktopID, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return DesktopID{}, false, ErrSessionClosed
	}

	var id DesktopID
	if _, err := winapi.ComCall(n.manager, vtblGetWindowDesktopId,
		uintptr(h), uintptr(unsafe.Pointer(&id))); err != nil {
		return DesktopID{}, false, fmt.Errorf("GetWindowDesktopId: %w", err)
	}
	if id.IsZero() {
		// The shell has no association for this window.
		return DesktopID{}, false, nil
	}
	return id, true, nil
}
