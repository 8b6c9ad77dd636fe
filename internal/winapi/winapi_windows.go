//go:build windows

// Package winapi holds the typed bindings to the Win32 windowing APIs
// used by the virtual desktop layer: top-level window enumeration,
// text/placement/style queries and owner process lookup.
package winapi

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modUser32 = windows.NewLazySystemDLL("user32.dll")

	procEnumWindows              = modUser32.NewProc("EnumWindows")
	procGetWindowTextW           = modUser32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = modUser32.NewProc("GetWindowTextLengthW")
	procIsWindowVisible          = modUser32.NewProc("IsWindowVisible")
	procGetWindowLongW           = modUser32.NewProc("GetWindowLongW")
	procGetWindowPlacement       = modUser32.NewProc("GetWindowPlacement")
	procGetWindowThreadProcessId = modUser32.NewProc("GetWindowThreadProcessId")
	procGetShellWindow           = modUser32.NewProc("GetShellWindow")
	procGetDesktopWindow         = modUser32.NewProc("GetDesktopWindow")
)

const (
	gwlStyle int32 = -16 // GWL_STYLE

	// WS_CAPTION = WS_BORDER | WS_DLGFRAME
	wsCaption = 0x00C00000

	swShowMinimized = 2
	swShowMaximized = 3
)

type rect struct {
	Left, Top, Right, Bottom int32
}

type point struct {
	X, Y int32
}

// windowPlacement matches WINDOWPLACEMENT.
type windowPlacement struct {
	Length         uint32
	Flags          uint32
	ShowCmd        uint32
	MinPosition    point
	MaxPosition    point
	NormalPosition rect
}

// EnumWindows walks all top-level windows, invoking fn for each until
// fn returns false or the walk ends.
func EnumWindows(fn func(hwnd uintptr) bool) error {
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if fn(hwnd) {
			return 1
		}
		return 0
	})
	ret, _, err := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return err
	}
	return nil
}

// WindowText returns the window's caption text, "" if it has none.
func WindowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	copied, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), n+1)
	if copied == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:copied])
}

// IsWindowVisible reports whether the window is currently visible.
func IsWindowVisible(hwnd uintptr) bool {
	ret, _, _ := procIsWindowVisible.Call(hwnd)
	return ret != 0
}

// HasCaption reports whether the window carries the WS_CAPTION style.
func HasCaption(hwnd uintptr) bool {
	// GWL_STYLE is a negative index; it must reach user32 as its
	// 32-bit two's-complement pattern.
	idx := gwlStyle
	style, _, _ := procGetWindowLongW.Call(hwnd, uintptr(uint32(idx)))
	return style&wsCaption == wsCaption
}

// Placement classifies the window's show state.
func Placement(hwnd uintptr) (minimized, maximized bool) {
	var wp windowPlacement
	wp.Length = uint32(unsafe.Sizeof(wp))
	ret, _, _ := procGetWindowPlacement.Call(hwnd, uintptr(unsafe.Pointer(&wp)))
	if ret == 0 {
		return false, false
	}
	return wp.ShowCmd == swShowMinimized, wp.ShowCmd == swShowMaximized
}

// WindowProcessID returns the id of the process that owns the window.
func WindowProcessID(hwnd uintptr) uint32 {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return pid
}

// ShellWindow returns the shell's root window handle (0 if none).
func ShellWindow() uintptr {
	ret, _, _ := procGetShellWindow.Call()
	return ret
}

// DesktopWindow returns the desktop root window handle.
func DesktopWindow() uintptr {
	ret, _, _ := procGetDesktopWindow.Call()
	return ret
}
