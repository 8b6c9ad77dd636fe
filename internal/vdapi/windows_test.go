package vdapi

import (
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	probes    []windowProbe
	names     map[uint32]string
	desktops  map[WindowHandle]DesktopID
	walkCalls int
	walkErr   error
	nameErr   error
}

func (s *fakeSource) Walk() ([]windowProbe, error) {
	s.walkCalls++
	if s.walkErr != nil {
		return nil, s.walkErr
	}
	out := make([]windowProbe, len(s.probes))
	copy(out, s.probes)
	return out, nil
}

func (s *fakeSource) ProcessName(pid uint32) (string, error) {
	if s.nameErr != nil {
		return "", s.nameErr
	}
	name, ok := s.names[pid]
	if !ok {
		return "", errors.New("no such process")
	}
	return name, nil
}

func (s *fakeSource) WindowDesktop(h WindowHandle) (DesktopID, bool, error) {
	id, ok := s.desktops[h]
	return id, ok, nil
}

func appWindow(h WindowHandle, title string, pid uint32) windowProbe {
	return windowProbe{Handle: h, Title: title, Visible: true, HasCaption: true, ProcessID: pid}
}

// fakeClock drives the TTL without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testWindowDirectory(src windowSource) (*WindowDirectory, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := newWindowDirectory(src)
	w.now = clock.now
	return w, clock
}

func TestListAllFiltersNonApplicationWindows(t *testing.T) {
	src := &fakeSource{
		probes: []windowProbe{
			appWindow(1, "Editor", 100),
			{Handle: 2, Title: "Hidden", Visible: false, HasCaption: true, ProcessID: 100},
			{Handle: 3, Title: "Chromeless", Visible: true, HasCaption: false, ProcessID: 100},
			{Handle: 4, Title: "", Visible: true, HasCaption: true, ProcessID: 100},
			{Handle: 5, Title: "Program Manager", Visible: true, HasCaption: true, ProcessID: 1, ShellRoot: true},
		},
		names: map[uint32]string{100: "editor.exe"},
	}
	w, _ := testWindowDirectory(src)

	wins, err := w.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(wins) != 1 {
		t.Fatalf("got %d windows, want 1", len(wins))
	}
	if wins[0].Handle != 1 {
		t.Fatalf("survivor is handle %#x, want 1", uintptr(wins[0].Handle))
	}
	if wins[0].ProcessName != "editor.exe" {
		t.Errorf("process name %q, want editor.exe", wins[0].ProcessName)
	}
}

func TestCacheServesRepeatReadsWithinTTL(t *testing.T) {
	src := &fakeSource{probes: []windowProbe{appWindow(1, "Editor", 100)}}
	w, clock := testWindowDirectory(src)

	if _, err := w.ListAll(); err != nil {
		t.Fatal(err)
	}
	clock.advance(DefaultCacheTTL / 2)
	if _, err := w.ListAll(); err != nil {
		t.Fatal(err)
	}
	if src.walkCalls != 1 {
		t.Fatalf("walked %d times within the TTL, want 1", src.walkCalls)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	src := &fakeSource{probes: []windowProbe{appWindow(1, "Editor", 100)}}
	w, clock := testWindowDirectory(src)

	if _, err := w.ListAll(); err != nil {
		t.Fatal(err)
	}
	clock.advance(DefaultCacheTTL + time.Millisecond)
	if _, err := w.ListAll(); err != nil {
		t.Fatal(err)
	}
	if src.walkCalls != 2 {
		t.Fatalf("walked %d times across an expiry, want 2", src.walkCalls)
	}
}

func TestRefreshBypassesTTL(t *testing.T) {
	src := &fakeSource{probes: []windowProbe{appWindow(1, "Editor", 100)}}
	w, _ := testWindowDirectory(src)

	if _, err := w.ListAll(); err != nil {
		t.Fatal(err)
	}
	if err := w.Refresh(); err != nil {
		t.Fatal(err)
	}
	if src.walkCalls != 2 {
		t.Fatalf("walked %d times after an explicit refresh, want 2", src.walkCalls)
	}
}

func TestCustomTTL(t *testing.T) {
	src := &fakeSource{probes: []windowProbe{appWindow(1, "Editor", 100)}}
	clock := &fakeClock{t: time.Unix(1000, 0)}
	w := newWindowDirectory(src, WithCacheTTL(10*time.Second))
	w.now = clock.now

	if _, err := w.ListAll(); err != nil {
		t.Fatal(err)
	}
	clock.advance(5 * time.Second)
	if _, err := w.ListAll(); err != nil {
		t.Fatal(err)
	}
	if src.walkCalls != 1 {
		t.Fatalf("walked %d times inside a widened TTL, want 1", src.walkCalls)
	}
}

func TestListForDesktop(t *testing.T) {
	work := DesktopID{15: 1}
	other := DesktopID{15: 2}
	src := &fakeSource{
		probes: []windowProbe{
			appWindow(1, "Editor", 100),
			appWindow(2, "Browser", 200),
			appWindow(3, "Terminal", 300),
		},
		names:    map[uint32]string{100: "editor.exe", 200: "browser.exe", 300: "term.exe"},
		desktops: map[WindowHandle]DesktopID{1: work, 2: other, 3: work},
	}
	w, _ := testWindowDirectory(src)

	wins, err := w.ListForDesktop(work)
	if err != nil {
		t.Fatal(err)
	}
	if len(wins) != 2 {
		t.Fatalf("got %d windows on the desktop, want 2", len(wins))
	}
	for _, win := range wins {
		if win.DesktopID != work {
			t.Errorf("window %#x carries desktop %s", uintptr(win.Handle), win.DesktopID)
		}
	}
}

func TestFindByHandle(t *testing.T) {
	src := &fakeSource{
		probes: []windowProbe{appWindow(0xAB, "Editor", 100)},
		names:  map[uint32]string{100: "editor.exe"},
	}
	w, _ := testWindowDirectory(src)

	win, err := w.FindByHandle(0xAB)
	if err != nil {
		t.Fatal(err)
	}
	if win.Title != "Editor" {
		t.Fatalf("title %q, want Editor", win.Title)
	}

	_, err = w.FindByHandle(0xCD)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
	if nf.Kind != "window" {
		t.Errorf("NotFoundError kind %q, want window", nf.Kind)
	}
}

func TestListByProcess(t *testing.T) {
	src := &fakeSource{
		probes: []windowProbe{
			appWindow(1, "Editor", 100),
			appWindow(2, "Scratch", 100),
			appWindow(3, "Browser", 200),
		},
		names: map[uint32]string{100: "Editor.exe", 200: "browser.exe"},
	}
	w, _ := testWindowDirectory(src)

	byPID, err := w.ListByProcessID(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(byPID) != 2 {
		t.Fatalf("got %d windows for pid 100, want 2", len(byPID))
	}

	// Name matching is case-insensitive.
	byName, err := w.ListByProcessName("editor.EXE")
	if err != nil {
		t.Fatal(err)
	}
	if len(byName) != 2 {
		t.Fatalf("got %d windows for the process name, want 2", len(byName))
	}
}

func TestProcessNameFailureDegradesToUnknown(t *testing.T) {
	src := &fakeSource{
		probes:  []windowProbe{appWindow(1, "Orphan", 999)},
		nameErr: errors.New("process exited"),
	}
	w, _ := testWindowDirectory(src)

	wins, err := w.ListAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(wins) != 1 {
		t.Fatalf("got %d windows, want 1", len(wins))
	}
	if wins[0].ProcessName != unknownProcess {
		t.Fatalf("process name %q, want %q", wins[0].ProcessName, unknownProcess)
	}
}

func TestWalkFailureIsOperationError(t *testing.T) {
	src := &fakeSource{walkErr: errors.New("enumeration blew up")}
	w, _ := testWindowDirectory(src)

	_, err := w.ListAll()
	var op *OperationError
	if !errors.As(err, &op) {
		t.Fatalf("got %v, want OperationError", err)
	}
}

func TestListVisible(t *testing.T) {
	src := &fakeSource{
		probes: []windowProbe{
			appWindow(1, "Editor", 100),
			{Handle: 2, Title: "Minimized", Visible: true, HasCaption: true, Minimized: true, ProcessID: 100},
		},
		names: map[uint32]string{100: "editor.exe"},
	}
	w, _ := testWindowDirectory(src)

	wins, err := w.ListVisible()
	if err != nil {
		t.Fatal(err)
	}
	// Both survived the enumeration filters and both carried the
	// visibility flag at snapshot time.
	if len(wins) != 2 {
		t.Fatalf("got %d visible windows, want 2", len(wins))
	}
}
