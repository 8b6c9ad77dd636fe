//go:build !windows

package vdapi

// The virtual desktop shell feature only exists on Windows. Session
// construction fails with ErrUnsupported everywhere else; the stub
// keeps the package compiling for cross-platform consumers and tests.

type nativeSession struct{}

func openNative() (*nativeSession, error) {
	return nil, ErrUnsupported
}

func (n *nativeSession) buildNumber() int            { return 0 }
func (n *nativeSession) negotiatedInterface() string { return "" }
func (n *nativeSession) close()                      {}

func (n *nativeSession) Desktops() ([]VirtualDesktop, error) {
	return nil, ErrUnsupported
}

func (n *nativeSession) Current() (VirtualDesktop, bool, error) {
	return VirtualDesktop{}, false, ErrUnsupported
}

func (n *nativeSession) Switch(DesktopID) (bool, error) {
	return false, ErrUnsupported
}

func (n *nativeSession) Adjacent(DesktopID, int) (VirtualDesktop, bool, error) {
	return VirtualDesktop{}, false, ErrUnsupported
}

func (n *nativeSession) Create(string) (VirtualDesktop, error) {
	return VirtualDesktop{}, ErrUnsupported
}

func (n *nativeSession) Remove(DesktopID, DesktopID) (bool, error) {
	return false, ErrUnsupported
}

func (n *nativeSession) MoveWindow(WindowHandle, DesktopID) (bool, error) {
	return false, ErrUnsupported
}

func (n *nativeSession) Walk() ([]windowProbe, error) {
	return nil, ErrUnsupported
}

func (n *nativeSession) ProcessName(uint32) (string, error) {
	return "", ErrUnsupported
}

func (n *nativeSession) WindowDesktop(WindowHandle) (DesktopID, bool, error) {
	return DesktopID{}, false, ErrUnsupported
}
