package vdapi

// The shell's internal virtual desktop interfaces are not part of any
// public contract; their identities have changed at least four times
// across releases. The resolver maps the running build number to a
// priority-ordered probe list of known identities. Callers try each in
// order and accept the first one the OS answers to, so an unseen build
// degrades to probing instead of failing on a single wrong guess.

// layoutKind selects the vtable shape that goes with an interface
// identity. Identities from the same release generation share a shape.
type layoutKind int

const (
	layoutWin10 layoutKind = iota
	layoutWin10Named            // late Win10: desktop object grew GetName
	layoutWin11
)

// ifaceIdentity pairs a binary interface identity (IID, brace form)
// with the vtable layout it implies and the first build it was
// observed on.
type ifaceIdentity struct {
	IID      string
	Layout   layoutKind
	MinBuild int
}

// Newest-first. These values are fixed constants lifted from observed
// shell builds; order matters.
var managerInternalIdentities = []ifaceIdentity{
	{IID: "{53F5CA0B-158F-4124-900C-057158060B27}", Layout: layoutWin11, MinBuild: 26100},
	{IID: "{A3175F2D-239C-4BD2-8AA0-EEBA8B0B138E}", Layout: layoutWin11, MinBuild: 22621},
	{IID: "{B2F925B9-5A0F-4D2E-9F4D-2B1507593C10}", Layout: layoutWin11, MinBuild: 22000},
	{IID: "{F31574D6-B682-4CDC-BD56-1827860ABEC6}", Layout: layoutWin10, MinBuild: 0},
}

var desktopIdentities = []ifaceIdentity{
	{IID: "{3F07F4BE-B107-441A-AF0F-39D82529072C}", Layout: layoutWin11, MinBuild: 22621},
	{IID: "{536D3495-B208-4CC9-AE26-DE8111275BF8}", Layout: layoutWin11, MinBuild: 22000},
	{IID: "{62FDF88B-11CA-4AFB-8BD8-2296DFAE49E2}", Layout: layoutWin10Named, MinBuild: 20231},
	{IID: "{FF72FFDD-BE7E-43FC-9C03-AD81681E88E4}", Layout: layoutWin10, MinBuild: 0},
}

// modernMajorBuild is the first Windows 11 build; at or above it the
// modern identities are preferred outright.
const modernMajorBuild = 22000

// resolveManagerInternal returns the single best internal-manager
// identity for the build, legacy as the last resort when the build is
// unknown (0).
func resolveManagerInternal(build int) ifaceIdentity {
	return resolve(build, managerInternalIdentities)
}

// resolveDesktop returns the single best desktop-object identity.
func resolveDesktop(build int) ifaceIdentity {
	return resolve(build, desktopIdentities)
}

func resolve(build int, known []ifaceIdentity) ifaceIdentity {
	for _, id := range known {
		if build >= id.MinBuild {
			return id
		}
	}
	// Unknown or undetectable build: last-resort legacy identity.
	return known[len(known)-1]
}

// probeOrder returns every known identity, those plausible for the
// build first (newest first), then the remainder as fallbacks. A wrong
// guess costs one E_NOINTERFACE answer before moving on.
func probeOrder(build int, known []ifaceIdentity) []ifaceIdentity {
	ordered := make([]ifaceIdentity, 0, len(known))
	for _, id := range known {
		if build >= id.MinBuild {
			ordered = append(ordered, id)
		}
	}
	for _, id := range known {
		if build < id.MinBuild {
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func managerProbeOrder(build int) []ifaceIdentity {
	return probeOrder(build, managerInternalIdentities)
}

func desktopProbeOrder(build int) []ifaceIdentity {
	return probeOrder(build, desktopIdentities)
}

// --- vtable layouts ---

// managerLayout maps internal desktop-manager operations to vtable
// slots for one release generation. A slot of -1 means the negotiated
// interface does not carry the operation.
type managerLayout struct {
	getCount           int
	getCurrentDesktop  int
	getDesktops        int
	getAdjacentDesktop int
	switchDesktop      int
	createDesktop      int
	removeDesktop      int
	findDesktop        int
	setDesktopName     int

	// monitorArg: Windows 11 shapes take an HMONITOR (or null for
	// "all monitors") ahead of the logical arguments.
	monitorArg bool
}

// desktopLayout maps virtual-desktop-object operations to slots.
type desktopLayout struct {
	getID   int
	getName int
}

var managerLayouts = map[layoutKind]managerLayout{
	layoutWin10: {
		getCount:           3,
		getCurrentDesktop:  6,
		getDesktops:        7,
		getAdjacentDesktop: 8,
		switchDesktop:      9,
		createDesktop:      10,
		removeDesktop:      11,
		findDesktop:        12,
		setDesktopName:     -1,
		monitorArg:         false,
	},
	layoutWin11: {
		getCount:           3,
		getCurrentDesktop:  6,
		getDesktops:        8,
		getAdjacentDesktop: 9,
		switchDesktop:      10,
		createDesktop:      11,
		removeDesktop:      13,
		findDesktop:        14,
		setDesktopName:     16,
		monitorArg:         true,
	},
}

var desktopLayouts = map[layoutKind]desktopLayout{
	layoutWin10:      {getID: 4, getName: -1},
	layoutWin10Named: {getID: 4, getName: 5},
	layoutWin11:      {getID: 4, getName: 5},
}

// Adjacent-desktop direction values understood by the shell.
const (
	adjacentLeft  = 3
	adjacentRight = 4
)
