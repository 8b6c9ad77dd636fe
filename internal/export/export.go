// Package export renders a point-in-time layout snapshot (desktops and
// the windows on them) as YAML for scripting and diagnostics.
package export

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/winvd/winvd/internal/vdapi"
)

// Layout is one full snapshot of the desktop arrangement.
type Layout struct {
	TakenAt  time.Time       `yaml:"takenAt"`
	OSBuild  int             `yaml:"osBuild,omitempty"`
	Desktops []DesktopLayout `yaml:"desktops"`

	// Orphans are windows the shell reported no desktop association
	// for.
	Orphans []WindowEntry `yaml:"orphans,omitempty"`
}

// DesktopLayout is one desktop with its windows.
type DesktopLayout struct {
	ID       string        `yaml:"id"`
	Name     string        `yaml:"name,omitempty"`
	Index    int           `yaml:"index"`
	IsActive bool          `yaml:"isActive"`
	Windows  []WindowEntry `yaml:"windows,omitempty"`
}

// WindowEntry is one window, flattened for the snapshot.
type WindowEntry struct {
	Handle      uint64 `yaml:"handle"`
	Title       string `yaml:"title"`
	ProcessName string `yaml:"processName"`
	ProcessID   uint32 `yaml:"processId"`
	Minimized   bool   `yaml:"minimized,omitempty"`
	Maximized   bool   `yaml:"maximized,omitempty"`
}

// Snapshot assembles a layout from the directories' current state.
func Snapshot(desktops []vdapi.VirtualDesktop, windows []vdapi.Window, osBuild int) Layout {
	layout := Layout{
		TakenAt:  time.Now().UTC(),
		OSBuild:  osBuild,
		Desktops: make([]DesktopLayout, 0, len(desktops)),
	}

	byDesktop := make(map[vdapi.DesktopID][]WindowEntry)
	for _, w := range windows {
		entry := WindowEntry{
			Handle:      uint64(w.Handle),
			Title:       w.Title,
			ProcessName: w.ProcessName,
			ProcessID:   w.ProcessID,
			Minimized:   w.IsMinimized,
			Maximized:   w.IsMaximized,
		}
		if w.DesktopID.IsZero() {
			layout.Orphans = append(layout.Orphans, entry)
			continue
		}
		byDesktop[w.DesktopID] = append(byDesktop[w.DesktopID], entry)
	}

	for _, d := range desktops {
		layout.Desktops = append(layout.Desktops, DesktopLayout{
			ID:       d.ID.String(),
			Name:     d.Name,
			Index:    d.Index,
			IsActive: d.IsActive,
			Windows:  byDesktop[d.ID],
		})
	}
	return layout
}

// Write renders the layout as YAML.
func Write(w io.Writer, layout Layout) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(layout); err != nil {
		return err
	}
	return enc.Close()
}
