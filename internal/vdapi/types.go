// Package vdapi brokers access to the Windows shell's virtual desktop
// feature: enumerating desktops and top-level windows, switching,
// creating and removing desktops, and reassigning windows between them.
//
// The shell exposes most of this through undocumented COM interfaces
// whose identities change between OS builds; vdapi hides that behind a
// stable domain model. Desktop and window values returned from this
// package are snapshots: they never hold a live native reference.
package vdapi

import (
	"fmt"
	"strings"
)

// DesktopID is the 128-bit identifier the shell assigns to a virtual
// desktop. It is the only handle that is stable across enumerations;
// positional indexes are advisory and may shift.
type DesktopID [16]byte

// IsZero reports whether the id is the all-zero (absent) value.
func (id DesktopID) IsZero() bool {
	return id == DesktopID{}
}

// String formats the id in registry GUID form.
func (id DesktopID) String() string {
	return fmt.Sprintf("{%02X%02X%02X%02X-%02X%02X-%02X%02X-%02X%02X-%02X%02X%02X%02X%02X%02X}",
		id[3], id[2], id[1], id[0],
		id[5], id[4],
		id[7], id[6],
		id[8], id[9],
		id[10], id[11], id[12], id[13], id[14], id[15])
}

// ParseDesktopID parses a GUID string, with or without braces.
func ParseDesktopID(s string) (DesktopID, error) {
	s = strings.TrimPrefix(strings.TrimSuffix(strings.TrimSpace(s), "}"), "{")
	parts := strings.Split(s, "-")
	if len(parts) != 5 || len(parts[0]) != 8 || len(parts[1]) != 4 ||
		len(parts[2]) != 4 || len(parts[3]) != 4 || len(parts[4]) != 12 {
		return DesktopID{}, fmt.Errorf("vdapi: malformed desktop id %q", s)
	}

	var id DesktopID
	hex := strings.Join(parts, "")
	// Mixed-endian GUID layout: first three groups little-endian.
	order := []int{3, 2, 1, 0, 5, 4, 7, 6, 8, 9, 10, 11, 12, 13, 14, 15}
	for i, pos := range order {
		b, err := parseHexByte(hex[i*2 : i*2+2])
		if err != nil {
			return DesktopID{}, fmt.Errorf("vdapi: malformed desktop id %q", s)
		}
		id[pos] = b
	}
	return id, nil
}

func parseHexByte(s string) (byte, error) {
	var v byte
	for i := 0; i < 2; i++ {
		c := s[i]
		var n byte
		switch {
		case c >= '0' && c <= '9':
			n = c - '0'
		case c >= 'a' && c <= 'f':
			n = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			n = c - 'A' + 10
		default:
			return 0, fmt.Errorf("bad hex digit %q", c)
		}
		v = v<<4 | n
	}
	return v, nil
}

// VirtualDesktop is a point-in-time snapshot of one virtual desktop.
// Identity lives in ID; Name, Index and IsActive describe the moment
// the snapshot was taken and may be stale immediately afterwards.
type VirtualDesktop struct {
	ID DesktopID `json:"id" yaml:"id"`

	// Name is empty on OS builds whose negotiated desktop interface
	// does not expose names.
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Index    int    `json:"index" yaml:"index"`
	IsActive bool   `json:"isActive" yaml:"isActive"`
}

// WindowHandle is a top-level window handle (HWND). It dangles the
// moment the window closes; there is no synchronous signal here.
type WindowHandle uintptr

// Window is a snapshot of one top-level window taken during an
// enumeration pass. Equality is by Handle only.
type Window struct {
	Handle      WindowHandle `json:"handle" yaml:"handle"`
	Title       string       `json:"title" yaml:"title"`
	ProcessName string       `json:"processName" yaml:"processName"`
	ProcessID   uint32       `json:"processId" yaml:"processId"`
	IsVisible   bool         `json:"isVisible" yaml:"isVisible"`
	IsMinimized bool         `json:"isMinimized" yaml:"isMinimized"`
	IsMaximized bool         `json:"isMaximized" yaml:"isMaximized"`

	// DesktopID is zero until the desktop association has been
	// queried, and stays zero when the shell reports none.
	DesktopID DesktopID `json:"desktopId,omitempty" yaml:"desktopId,omitempty"`
}

// OnDesktop reports whether the window was associated with the given
// desktop at snapshot time.
func (w Window) OnDesktop(id DesktopID) bool {
	return !w.DesktopID.IsZero() && w.DesktopID == id
}
