package window

import (
	"fmt"
	"strings"

	"github.com/adamancini/deskshell/internal/types"
)

// EntryKind identifies the shape of a menu entry.
type EntryKind string

const (
	EntryAction    EntryKind = "action"
	EntryLabel     EntryKind = "label"
	EntrySeparator EntryKind = "separator"
	EntryContainer EntryKind = "container"
)

// MenuEntry is one item of the native menu. Label entries are display only.
type MenuEntry struct {
	Kind        EntryKind   `json:"kind" yaml:"kind"`
	Label       string      `json:"label,omitempty" yaml:"label,omitempty"`
	Accelerator string      `json:"accelerator,omitempty" yaml:"accelerator,omitempty"`
	Children    []MenuEntry `json:"children,omitempty" yaml:"children,omitempty"`
	Action      func()      `json:"-" yaml:"-"`
}

// MenuModel is the ordered menu installed for a window.
type MenuModel struct {
	Entries []MenuEntry `json:"entries" yaml:"entries"`
}

// MenuFacts are the static inputs of BuildMenu.
type MenuFacts struct {
	Family     types.PlatformFamily
	AppName    string
	AppVersion string
}

// MenuActions are the handlers bound to menu entries. Nil handlers are skipped at invocation.
type MenuActions struct {
	CheckForUpdates func()
	InstallUpdate   func()
	Quit            func()
}

// Menu labels.
const (
	LabelCheckForUpdates = "Check for updates"
	LabelInstallUpdate   = "Restart to install update"
	QuitAccelerator      = "Command+Q"
)

// BuildMenu returns the menu for the given platform. Only darwin has a native
// application menu; every other family gets an empty model.
func BuildMenu(facts MenuFacts, actions MenuActions) MenuModel {
	switch facts.Family {
	case types.PlatformDarwin:
		return MenuModel{Entries: []MenuEntry{{
			Kind:  EntryContainer,
			Label: facts.AppName,
			Children: []MenuEntry{
				{Kind: EntryLabel, Label: "Current version " + facts.AppVersion},
				{Kind: EntryAction, Label: LabelCheckForUpdates, Action: safe(actions.CheckForUpdates)},
				{Kind: EntryAction, Label: LabelInstallUpdate, Action: safe(actions.InstallUpdate)},
				{Kind: EntrySeparator},
				{Kind: EntryAction, Label: "Quit " + facts.AppName, Accelerator: QuitAccelerator, Action: safe(actions.Quit)},
			},
		}}}
	case types.PlatformWindows:
		return MenuModel{}
	case types.PlatformLinux:
		return MenuModel{}
	default:
		return MenuModel{}
	}
}

func safe(fn func()) func() {
	return func() {
		if fn != nil {
			fn()
		}
	}
}

// IsEmpty reports whether the model has no entries.
func (m MenuModel) IsEmpty() bool {
	return len(m.Entries) == 0
}

// Find returns the first entry with the given label, searching depth first.
func (m MenuModel) Find(label string) (MenuEntry, bool) {
	return find(m.Entries, label)
}

func find(entries []MenuEntry, label string) (MenuEntry, bool) {
	for _, e := range entries {
		if e.Label == label && e.Kind != EntrySeparator {
			return e, true
		}
		if found, ok := find(e.Children, label); ok {
			return found, true
		}
	}
	return MenuEntry{}, false
}

// String renders the model as an indented outline.
func (m MenuModel) String() string {
	if m.IsEmpty() {
		return "(no menu)"
	}
	var b strings.Builder
	writeEntries(&b, m.Entries, 0)
	return strings.TrimRight(b.String(), "\n")
}

func writeEntries(b *strings.Builder, entries []MenuEntry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		switch e.Kind {
		case EntrySeparator:
			fmt.Fprintf(b, "%s---\n", indent)
		case EntryLabel:
			fmt.Fprintf(b, "%s%s (disabled)\n", indent, e.Label)
		case EntryContainer:
			fmt.Fprintf(b, "%s%s\n", indent, e.Label)
			writeEntries(b, e.Children, depth+1)
		default:
			if e.Accelerator != "" {
				fmt.Fprintf(b, "%s%s [%s]\n", indent, e.Label, e.Accelerator)
			} else {
				fmt.Fprintf(b, "%s%s\n", indent, e.Label)
			}
		}
	}
}
