//go:build windows

package vdapi

import (
	"fmt"
	"sync"
	"unsafe"

	ole "github.com/go-ole/go-ole"

	"github.com/winvd/winvd/internal/logging"
	"github.com/winvd/winvd/internal/winapi"
)

var sessionLog = logging.L("vdapi.session")

// nativeSession holds the three chained capability handles. Acquisition
// order is public manager, then service locator, then internal manager;
// release runs in reverse. Every call site goes through the mutex so a
// Close cannot race an in-flight native call.
type nativeSession struct {
	mu     sync.Mutex
	closed bool

	manager  uintptr // IVirtualDesktopManager (public)
	provider uintptr // IServiceProvider on the immersive shell
	internal uintptr // internal desktop manager, negotiated identity

	build     int
	mgrIdent  ifaceIdentity
	mgrLayout managerLayout

	// Desktop object identity is negotiated lazily on the first
	// enumeration and then sticky.
	deskIdent  *ifaceIdentity
	deskIID    *ole.GUID
	deskLayout desktopLayout
}

// sFalse is the HRESULT CoInitializeEx returns when the apartment was
// already initialized on the calling thread.
const sFalse = 0x00000001

func openNative() (*nativeSession, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != sFalse {
			return nil, fmt.Errorf("%w: CoInitializeEx: %v", ErrCapabilityInit, err)
		}
	}

	n := &nativeSession{}

	build, err := winapi.OSBuildNumber()
	if err != nil {
		// Never block startup on version detection; probing covers
		// the unknown-build case.
		sessionLog.Warn("OS build detection failed, probing from legacy identities", "error", err)
		build = 0
	}
	n.build = build

	// Step 1: public desktop manager.
	managerUnk, err := ole.CreateInstance(clsidVirtualDesktopManager, iidVirtualDesktopManager)
	if err != nil || managerUnk == nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("%w: create public desktop manager: %v", ErrCapabilityInit, err)
	}
	n.manager = uintptr(unsafe.Pointer(managerUnk))

	// Step 2: shell service locator. On failure release step 1 first.
	providerUnk, err := ole.CreateInstance(clsidImmersiveShell, iidIServiceProvider)
	if err != nil || providerUnk == nil {
		winapi.ComRelease(n.manager)
		ole.CoUninitialize()
		return nil, fmt.Errorf("%w: create immersive shell service provider: %v", ErrCapabilityInit, err)
	}
	n.provider = uintptr(unsafe.Pointer(providerUnk))

	// Step 3: internal desktop manager, probing the identity list.
	if err := n.acquireInternal(); err != nil {
		winapi.ComRelease(n.provider)
		winapi.ComRelease(n.manager)
		ole.CoUninitialize()
		return nil, err
	}

	sessionLog.Info("capability session ready",
		"build", n.build,
		"managerInterface", n.mgrIdent.IID)
	return n, nil
}

// acquireInternal negotiates the internal manager interface identity by
// asking the service locator for each known identity in probe order and
// accepting the first the OS answers to.
func (n *nativeSession) acquireInternal() error {
	var lastErr error
	for _, ident := range managerProbeOrder(n.build) {
		iid := ole.NewGUID(ident.IID)
		var out uintptr
		_, err := winapi.ComCall(n.provider, vtblQueryService,
			uintptr(unsafe.Pointer(clsidVirtualDesktopManagerInternal)),
			uintptr(unsafe.Pointer(iid)),
			uintptr(unsafe.Pointer(&out)))
		if err != nil {
			if winapi.IsNoInterface(err) {
				sessionLog.Debug("interface identity rejected", "iid", ident.IID)
				lastErr = err
				continue
			}
			return fmt.Errorf("%w: query internal desktop manager: %v", ErrCapabilityInit, err)
		}
		if out == 0 {
			// The locator answered but returned nothing: the feature
			// is off on this system, not broken.
			return ErrFeatureUnavailable
		}
		n.internal = out
		n.mgrIdent = ident
		n.mgrLayout = managerLayouts[ident.Layout]
		return nil
	}
	return fmt.Errorf("%w: no known interface identity accepted (last: %v)", ErrFeatureUnavailable, lastErr)
}

func (n *nativeSession) buildNumber() int { return n.build }

func (n *nativeSession) negotiatedInterface() string { return n.mgrIdent.IID }

// close releases the handles in reverse acquisition order. Idempotent.
func (n *nativeSession) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	winapi.ComRelease(n.internal)
	winapi.ComRelease(n.provider)
	winapi.ComRelease(n.manager)
	n.internal, n.provider, n.manager = 0, 0, 0
	ole.CoUninitialize()
}

// call invokes a slot on the internal manager, inserting the leading
// monitor argument (null = all monitors) on layouts that take one.
func (n *nativeSession) call(slot int, monitorSlot bool, args ...uintptr) (uintptr, error) {
	if monitorSlot && n.mgrLayout.monitorArg {
		args = append([]uintptr{0}, args...)
	}
	return winapi.ComCall(n.internal, slot, args...)
}

// --- desktopBackend ---

func (n *nativeSession) Desktops() ([]VirtualDesktop, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrSessionClosed
	}
	return n.desktopsLocked()
}

func (n *nativeSession) desktopsLocked() ([]VirtualDesktop, error) {
	var currentID DesktopID
	if cur, err := n.currentDesktopLocked(); err == nil && cur != 0 {
		currentID, _ = n.desktopID(cur)
		winapi.ComRelease(cur)
	}

	var array uintptr
	if _, err := n.call(n.mgrLayout.getDesktops, true, uintptr(unsafe.Pointer(&array))); err != nil {
		return nil, fmt.Errorf("GetDesktops: %w", err)
	}
	if array == 0 {
		return nil, nil
	}
	defer winapi.ComRelease(array)

	var count uint32
	if _, err := winapi.ComCall(array, vtblObjArrayGetCount, uintptr(unsafe.Pointer(&count))); err != nil {
		return nil, fmt.Errorf("IObjectArray.GetCount: %w", err)
	}

	desktops := make([]VirtualDesktop, 0, count)
	for i := uint32(0); i < count; i++ {
		desk, err := n.desktopAtLocked(array, i)
		if err != nil {
			// One unreadable element does not fail the listing.
			sessionLog.Warn("skipping unenumerable desktop", "index", i, "error", err)
			continue
		}
		snap, err := n.snapshotLocked(desk)
		winapi.ComRelease(desk)
		if err != nil {
			sessionLog.Warn("skipping unreadable desktop", "index", i, "error", err)
			continue
		}
		snap.Index = int(i)
		snap.IsActive = !currentID.IsZero() && snap.ID == currentID
		desktops = append(desktops, snap)
	}
	return desktops, nil
}

// desktopAtLocked fetches element i of the desktop array, negotiating
// the desktop-object identity on first use.
func (n *nativeSession) desktopAtLocked(array uintptr, i uint32) (uintptr, error) {
	if n.deskIdent != nil {
		var out uintptr
		_, err := winapi.ComCall(array, vtblObjArrayGetAt, uintptr(i),
			uintptr(unsafe.Pointer(n.deskIID)), uintptr(unsafe.Pointer(&out)))
		if err != nil {
			return 0, err
		}
		return out, nil
	}

	var lastErr error
	for _, ident := range desktopProbeOrder(n.build) {
		iid := ole.NewGUID(ident.IID)
		var out uintptr
		_, err := winapi.ComCall(array, vtblObjArrayGetAt, uintptr(i),
			uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
		if err != nil {
			if winapi.IsNoInterface(err) {
				lastErr = err
				continue
			}
			return 0, err
		}
		n.deskIdent = &ident
		n.deskIID = iid
		n.deskLayout = desktopLayouts[ident.Layout]
		sessionLog.Debug("desktop object identity negotiated", "iid", ident.IID)
		return out, nil
	}
	return 0, fmt.Errorf("no desktop object identity accepted: %w", lastErr)
}

func (n *nativeSession) Current() (VirtualDesktop, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return VirtualDesktop{}, false, ErrSessionClosed
	}

	cur, err := n.currentDesktopLocked()
	if err != nil {
		return VirtualDesktop{}, false, err
	}
	if cur == 0 {
		return VirtualDesktop{}, false, nil
	}
	defer winapi.ComRelease(cur)

	snap, err := n.snapshotLocked(cur)
	if err != nil {
		return VirtualDesktop{}, false, err
	}
	snap.IsActive = true
	snap.Index = n.indexOfLocked(snap.ID)
	return snap, true, nil
}

func (n *nativeSession) currentDesktopLocked() (uintptr, error) {
	var out uintptr
	if _, err := n.call(n.mgrLayout.getCurrentDesktop, true, uintptr(unsafe.Pointer(&out))); err != nil {
		return 0, fmt.Errorf("GetCurrentDesktop: %w", err)
	}
	return out, nil
}

// indexOfLocked finds the position of id in the current listing, -1
// when it cannot be determined.
func (n *nativeSession) indexOfLocked(id DesktopID) int {
	all, err := n.desktopsLocked()
	if err != nil {
		return -1
	}
	for _, d := range all {
		if d.ID == id {
			return d.Index
		}
	}
	return -1
}

// snapshotLocked copies the desktop object's identity and name into a
// value snapshot. The native handle is not retained.
func (n *nativeSession) snapshotLocked(desk uintptr) (VirtualDesktop, error) {
	id, err := n.desktopID(desk)
	if err != nil {
		return VirtualDesktop{}, err
	}
	snap := VirtualDesktop{ID: id, Index: -1}

	if layout := n.layoutLocked(); layout.getName >= 0 {
		var h uintptr
		if _, err := winapi.ComCall(desk, layout.getName, uintptr(unsafe.Pointer(&h))); err == nil {
			snap.Name = winapi.HStringToString(h)
			winapi.DeleteHString(h)
		}
	}
	return snap, nil
}

// layoutLocked returns the negotiated desktop-object layout. Before
// any listing has negotiated one (e.g. a bare current-desktop call),
// the conservative legacy layout applies: all known generations carry
// GetID at the same slot and only newer ones add GetName.
func (n *nativeSession) layoutLocked() desktopLayout {
	if n.deskIdent != nil {
		return n.deskLayout
	}
	return desktopLayouts[layoutWin10]
}

func (n *nativeSession) desktopID(desk uintptr) (DesktopID, error) {
	var id DesktopID
	if _, err := winapi.ComCall(desk, n.layoutLocked().getID, uintptr(unsafe.Pointer(&id))); err != nil {
		return DesktopID{}, fmt.Errorf("IVirtualDesktop.GetId: %w", err)
	}
	return id, nil
}

// findDesktopLocked resolves an id to a native handle, 0 when the
// shell does not know it.
func (n *nativeSession) findDesktopLocked(id DesktopID) (uintptr, error) {
	guid := id
	var out uintptr
	_, err := winapi.ComCall(n.internal, n.mgrLayout.findDesktop,
		uintptr(unsafe.Pointer(&guid)), uintptr(unsafe.Pointer(&out)))
	if err != nil {
		// The shell answers an unknown id with TYPE_E_ELEMENTNOTFOUND
		// rather than a null handle. Anything else is a real failure.
		if winapi.IsElementNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("FindDesktop: %w", err)
	}
	return out, nil
}

func (n *nativeSession) Switch(id DesktopID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false, ErrSessionClosed
	}

	desk, err := n.findDesktopLocked(id)
	if err != nil {
		return false, err
	}
	if desk == 0 {
		return false, nil
	}
	defer winapi.ComRelease(desk)

	if _, err := n.call(n.mgrLayout.switchDesktop, true, desk); err != nil {
		return false, fmt.Errorf("SwitchDesktop: %w", err)
	}
	return true, nil
}

func (n *nativeSession) Adjacent(from DesktopID, direction int) (VirtualDesktop, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return VirtualDesktop{}, false, ErrSessionClosed
	}

	desk, err := n.findDesktopLocked(from)
	if err != nil {
		return VirtualDesktop{}, false, err
	}
	if desk == 0 {
		return VirtualDesktop{}, false, nil
	}
	defer winapi.ComRelease(desk)

	var out uintptr
	if _, err := winapi.ComCall(n.internal, n.mgrLayout.getAdjacentDesktop,
		desk, uintptr(direction), uintptr(unsafe.Pointer(&out))); err != nil {
		// The shell reports "no neighbor" as a failed HRESULT.
		return VirtualDesktop{}, false, nil
	}
	if out == 0 {
		return VirtualDesktop{}, false, nil
	}
	defer winapi.ComRelease(out)

	snap, err := n.snapshotLocked(out)
	if err != nil {
		return VirtualDesktop{}, false, err
	}
	return snap, true, nil
}

func (n *nativeSession) Create(name string) (VirtualDesktop, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return VirtualDesktop{}, ErrSessionClosed
	}

	var out uintptr
	if _, err := n.call(n.mgrLayout.createDesktop, true, uintptr(unsafe.Pointer(&out))); err != nil {
		return VirtualDesktop{}, fmt.Errorf("CreateDesktop: %w", err)
	}
	if out == 0 {
		return VirtualDesktop{}, fmt.Errorf("CreateDesktop returned null desktop")
	}
	defer winapi.ComRelease(out)

	if name != "" && n.mgrLayout.setDesktopName >= 0 {
		if err := n.setNameLocked(out, name); err != nil {
			// Naming is best effort: older interfaces cannot do it at
			// all, so a failure here leaves the name absent instead of
			// failing the create.
			sessionLog.Warn("could not name new desktop", "name", name, "error", err)
		}
	}
	return n.snapshotLocked(out)
}

func (n *nativeSession) setNameLocked(desk uintptr, name string) error {
	h, err := winapi.NewHString(name)
	if err != nil {
		return err
	}
	defer winapi.DeleteHString(h)
	_, err = winapi.ComCall(n.internal, n.mgrLayout.setDesktopName, desk, h)
	return err
}

func (n *nativeSession) Remove(id, fallback DesktopID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false, ErrSessionClosed
	}

	desk, err := n.findDesktopLocked(id)
	if err != nil {
		return false, err
	}
	if desk == 0 {
		return false, nil
	}
	defer winapi.ComRelease(desk)

	fb, err := n.findDesktopLocked(fallback)
	if err != nil {
		return false, err
	}
	if fb == 0 {
		return false, fmt.Errorf("fallback desktop %s not resolvable", fallback)
	}
	defer winapi.ComRelease(fb)

	if _, err := winapi.ComCall(n.internal, n.mgrLayout.removeDesktop, desk, fb); err != nil {
		return false, fmt.Errorf("RemoveDesktop: %w", err)
	}
	return true, nil
}

func (n *nativeSession) MoveWindow(h WindowHandle, id DesktopID) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return false, ErrSessionClosed
	}

	desk, err := n.findDesktopLocked(id)
	if err != nil {
		return false, err
	}
	if desk == 0 {
		return false, nil
	}
	winapi.ComRelease(desk)

	guid := id
	if _, err := winapi.ComCall(n.manager, vtblMoveWindowToDesktop,
		uintptr(h), uintptr(unsafe.Pointer(&guid))); err != nil {
		return false, fmt.Errorf("MoveWindowToDesktop: %w", err)
	}
	return true, nil
}
