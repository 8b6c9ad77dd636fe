package ipc

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/winvd/winvd/internal/sta"
	"github.com/winvd/winvd/internal/vdapi"
)

type fakeDesktops struct {
	desktops  []vdapi.VirtualDesktop
	listErr   error
	switchErr error
	removeErr error
	moveErr   error
	switched  []string
}

func (f *fakeDesktops) List() ([]vdapi.VirtualDesktop, error) {
	return f.desktops, f.listErr
}

func (f *fakeDesktops) Current() (vdapi.VirtualDesktop, bool, error) {
	if len(f.desktops) == 0 {
		return vdapi.VirtualDesktop{}, false, nil
	}
	return f.desktops[0], true, nil
}

func (f *fakeDesktops) SwitchTo(id vdapi.DesktopID) error {
	if f.switchErr != nil {
		return f.switchErr
	}
	f.switched = append(f.switched, id.String())
	return nil
}

func (f *fakeDesktops) SwitchNext() (bool, error) { return true, nil }

func (f *fakeDesktops) SwitchPrevious() (bool, error) { return false, nil }

func (f *fakeDesktops) Create(name string) (vdapi.VirtualDesktop, error) {
	return vdapi.VirtualDesktop{ID: vdapi.DesktopID{15: 9}, Name: name}, nil
}

func (f *fakeDesktops) Remove(vdapi.DesktopID) error { return f.removeErr }

func (f *fakeDesktops) MoveWindow(vdapi.WindowHandle, vdapi.DesktopID) error {
	return f.moveErr
}

type fakeWindows struct {
	windows []vdapi.Window
}

func (f *fakeWindows) ListAll() ([]vdapi.Window, error) { return f.windows, nil }

func (f *fakeWindows) ListForDesktop(id vdapi.DesktopID) ([]vdapi.Window, error) {
	var out []vdapi.Window
	for _, w := range f.windows {
		if w.OnDesktop(id) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeWindows) ListByProcessID(uint32) ([]vdapi.Window, error) { return nil, nil }

func (f *fakeWindows) ListByProcessName(string) ([]vdapi.Window, error) { return nil, nil }

func (f *fakeWindows) ListVisible() ([]vdapi.Window, error) { return f.windows, nil }

func (f *fakeWindows) Refresh() error { return nil }

type fakeSession struct{}

func (fakeSession) BuildNumber() int { return 22631 }

func (fakeSession) NegotiatedInterface() string { return "{A3175F2D-239C-4BD2-8AA0-EEBA8B0B138E}" }

// startServer runs a server's connection handler over one end of a
// net.Pipe and returns the caller's end.
func startServer(t *testing.T, desktops desktopService, windows windowService) *Conn {
	t.Helper()

	d := sta.New(4)
	t.Cleanup(func() { d.Shutdown(context.Background()) })

	srv := NewServer(fakeSession{}, desktops, windows, d)

	callerSide, serverSide := net.Pipe()
	t.Cleanup(func() { callerSide.Close() })
	go srv.handleConn(NewConn(serverSide))
	return NewConn(callerSide)
}

func exchange(t *testing.T, conn *Conn, id, msgType string, payload any) *Envelope {
	t.Helper()
	if err := conn.SendTyped(id, msgType, payload); err != nil {
		t.Fatalf("send %s: %v", msgType, err)
	}
	env, err := conn.Recv()
	if err != nil {
		t.Fatalf("recv %s: %v", msgType, err)
	}
	if env.ID != id {
		t.Fatalf("response id %q, want %q", env.ID, id)
	}
	return env
}

func TestServerListDesktops(t *testing.T) {
	desktops := &fakeDesktops{desktops: []vdapi.VirtualDesktop{
		{ID: vdapi.DesktopID{15: 1}, Name: "Main", IsActive: true},
		{ID: vdapi.DesktopID{15: 2}, Name: "Work", Index: 1},
	}}
	conn := startServer(t, desktops, &fakeWindows{})

	env := exchange(t, conn, "1", TypeListDesktops, nil)
	if env.Error != nil {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	var resp DesktopsResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Desktops) != 2 || resp.Desktops[0].Name != "Main" {
		t.Fatalf("unexpected desktops: %+v", resp.Desktops)
	}
}

func TestServerSwitchDispatchesParsedID(t *testing.T) {
	desktops := &fakeDesktops{}
	conn := startServer(t, desktops, &fakeWindows{})

	id := vdapi.DesktopID{15: 7}
	env := exchange(t, conn, "2", TypeSwitchDesktop, SwitchRequest{DesktopID: id.String()})
	if env.Error != nil {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	if len(desktops.switched) != 1 || desktops.switched[0] != id.String() {
		t.Fatalf("directory saw switches %v", desktops.switched)
	}
}

func TestServerNotFoundCarriesID(t *testing.T) {
	id := vdapi.DesktopID{15: 3}
	desktops := &fakeDesktops{
		switchErr: &vdapi.NotFoundError{Kind: "desktop", ID: id.String()},
	}
	conn := startServer(t, desktops, &fakeWindows{})

	env := exchange(t, conn, "3", TypeSwitchDesktop, SwitchRequest{DesktopID: id.String()})
	if env.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if env.Error.Kind != ErrKindNotFound {
		t.Errorf("kind = %q, want %q", env.Error.Kind, ErrKindNotFound)
	}
	if env.Error.ID != id.String() {
		t.Errorf("error id = %q, want %q", env.Error.ID, id)
	}
}

func TestServerInvalidOperation(t *testing.T) {
	desktops := &fakeDesktops{
		removeErr: &vdapi.InvalidOperationError{Reason: "cannot remove the last remaining desktop"},
	}
	conn := startServer(t, desktops, &fakeWindows{})

	env := exchange(t, conn, "4", TypeRemoveDesktop, RemoveRequest{
		DesktopID: vdapi.DesktopID{15: 1}.String(),
	})
	if env.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if env.Error.Kind != ErrKindInvalidOperation {
		t.Errorf("kind = %q, want %q", env.Error.Kind, ErrKindInvalidOperation)
	}
}

func TestServerUnavailable(t *testing.T) {
	desktops := &fakeDesktops{listErr: vdapi.ErrFeatureUnavailable}
	conn := startServer(t, desktops, &fakeWindows{})

	env := exchange(t, conn, "5", TypeListDesktops, nil)
	if env.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if env.Error.Kind != ErrKindUnavailable {
		t.Errorf("kind = %q, want %q", env.Error.Kind, ErrKindUnavailable)
	}
}

func TestServerMalformedIDIsBadRequest(t *testing.T) {
	conn := startServer(t, &fakeDesktops{}, &fakeWindows{})

	env := exchange(t, conn, "6", TypeSwitchDesktop, SwitchRequest{DesktopID: "not-a-guid"})
	if env.Error == nil {
		t.Fatal("expected an error envelope")
	}
	if env.Error.Kind != ErrKindBadRequest {
		t.Errorf("kind = %q, want %q", env.Error.Kind, ErrKindBadRequest)
	}
}

func TestServerUnknownTypeIsBadRequest(t *testing.T) {
	conn := startServer(t, &fakeDesktops{}, &fakeWindows{})

	env := exchange(t, conn, "7", "reticulate_splines", nil)
	if env.Error == nil || env.Error.Kind != ErrKindBadRequest {
		t.Fatalf("expected bad_request, got %+v", env.Error)
	}
}

func TestServerPing(t *testing.T) {
	conn := startServer(t, &fakeDesktops{}, &fakeWindows{})

	env := exchange(t, conn, "8", TypePing, nil)
	if env.Error != nil {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	var resp PingResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ProtocolVersion != ProtocolVersion || resp.OSBuild != 22631 {
		t.Fatalf("unexpected ping response: %+v", resp)
	}
}

func TestServerListWindowsByDesktop(t *testing.T) {
	work := vdapi.DesktopID{15: 1}
	windows := &fakeWindows{windows: []vdapi.Window{
		{Handle: 1, Title: "Editor", DesktopID: work},
		{Handle: 2, Title: "Browser", DesktopID: vdapi.DesktopID{15: 2}},
	}}
	conn := startServer(t, &fakeDesktops{}, windows)

	env := exchange(t, conn, "9", TypeListWindows, ListWindowsRequest{DesktopID: work.String()})
	if env.Error != nil {
		t.Fatalf("unexpected error: %+v", env.Error)
	}
	var resp WindowsResponse
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Windows) != 1 || resp.Windows[0].Title != "Editor" {
		t.Fatalf("unexpected windows: %+v", resp.Windows)
	}
}
