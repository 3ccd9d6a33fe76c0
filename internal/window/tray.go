package window

import (
	"strings"
	"sync"

	"fyne.io/systray"
	log "github.com/sirupsen/logrus"
)

// Tray renders a MenuModel as a system tray menu.
type Tray struct {
	title      string
	onActivate func()

	mu       sync.Mutex
	menu     *MenuModel
	ready    bool
	rendered bool
	done     chan struct{}
}

// NewTray creates a tray titled title. onActivate, when set, adds an entry
// that shows the window again.
func NewTray(title string, onActivate func()) *Tray {
	return &Tray{
		title:      title,
		onActivate: onActivate,
		done:       make(chan struct{}),
	}
}

// Install implements MenuInstaller. The model is rendered once the tray is
// ready; later installs of the same static menu are ignored.
func (t *Tray) Install(menu MenuModel) {
	t.mu.Lock()
	if t.menu != nil {
		t.mu.Unlock()
		return
	}
	t.menu = &menu
	ready := t.ready
	t.mu.Unlock()

	if ready {
		t.render()
	}
}

// Run blocks on the calling goroutine, which must be the main one, until Quit.
func (t *Tray) Run(onExit func()) {
	systray.Run(t.onReady, func() {
		close(t.done)
		if onExit != nil {
			onExit()
		}
	})
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.title)

	t.mu.Lock()
	t.ready = true
	installed := t.menu != nil
	t.mu.Unlock()

	if installed {
		t.render()
	}
}

func (t *Tray) render() {
	t.mu.Lock()
	if t.rendered {
		t.mu.Unlock()
		return
	}
	t.rendered = true
	menu := *t.menu
	t.mu.Unlock()

	items := trayItems(menu, t.onActivate)
	for _, it := range items {
		if it.separator {
			systray.AddSeparator()
			continue
		}
		mi := systray.AddMenuItem(it.label, it.tooltip)
		if it.disabled || it.action == nil {
			mi.Disable()
			continue
		}
		go t.listen(mi, it.action)
	}
	log.Debugf("tray menu rendered with %d items", len(items))
}

func (t *Tray) listen(mi *systray.MenuItem, action func()) {
	for {
		select {
		case <-mi.ClickedCh:
			action()
		case <-t.done:
			return
		}
	}
}

type trayItem struct {
	label     string
	tooltip   string
	disabled  bool
	separator bool
	action    func()
}

// trayItems flattens the model: a tray has no nested menus, so a container
// becomes a disabled header followed by its children.
func trayItems(menu MenuModel, onActivate func()) []trayItem {
	var items []trayItem
	if onActivate != nil {
		items = append(items, trayItem{label: "Show window", tooltip: "Show window", action: onActivate})
		if !menu.IsEmpty() {
			items = append(items, trayItem{separator: true})
		}
	}
	return appendTrayItems(items, menu.Entries, 0)
}

func appendTrayItems(items []trayItem, entries []MenuEntry, depth int) []trayItem {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		switch e.Kind {
		case EntrySeparator:
			items = append(items, trayItem{separator: true})
		case EntryLabel:
			items = append(items, trayItem{label: indent + e.Label, tooltip: e.Label, disabled: true})
		case EntryContainer:
			items = append(items, trayItem{label: indent + e.Label, tooltip: e.Label, disabled: true})
			items = appendTrayItems(items, e.Children, depth+1)
		default:
			tooltip := e.Label
			if e.Accelerator != "" {
				tooltip += " (" + e.Accelerator + ")"
			}
			items = append(items, trayItem{label: indent + e.Label, tooltip: tooltip, action: e.Action})
		}
	}
	return items
}
