//go:build windows

package vdapi

import ole "github.com/go-ole/go-ole"

// Component and interface identities consumed from the shell. The
// public pair is documented; everything else is undocumented and
// version-dependent (see resolver.go for the per-build identity sets).
var (
	// Public desktop manager: documented, stable across builds.
	clsidVirtualDesktopManager = ole.NewGUID("{AA509086-5CA9-4C25-8F95-589D3C07B48A}")
	iidVirtualDesktopManager   = ole.NewGUID("{A5CD92FF-29BE-454C-8D04-D82879FB3F1B}")

	// The shell's service locator.
	clsidImmersiveShell = ole.NewGUID("{C2F03A33-21F5-47FA-B4BB-156362A2F239}")
	iidIServiceProvider = ole.NewGUID("{6D5140C1-7436-11CE-8034-00AA006009FA}")

	// Service identity of the internal desktop manager. The service id
	// is stable; only the interface identity churns.
	clsidVirtualDesktopManagerInternal = ole.NewGUID("{C5E0CDCA-7B6E-41B2-9FC4-D93975CC467B}")
)

// Fixed vtable slots (IUnknown occupies 0..2).
const (
	// IServiceProvider
	vtblQueryService = 3

	// IVirtualDesktopManager (public)
	vtblGetWindowDesktopId  = 4
	vtblMoveWindowToDesktop = 5

	// IObjectArray
	vtblObjArrayGetCount = 3
	vtblObjArrayGetAt    = 4
)
