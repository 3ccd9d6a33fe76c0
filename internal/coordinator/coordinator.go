// Package coordinator turns update checker lifecycle events into the status
// line shown by the UI, forwards the UI's check requests to the checker, and
// installs a downloaded update as soon as it is ready.
//
// The coordinator observes the checker; it never rejects an event because of
// the phase it last saw.
package coordinator

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/deskshell/internal/types"
	"github.com/adamancini/deskshell/internal/update"
)

// Checker is the update checker capability the coordinator drives.
// Lifecycle events reach the coordinator through the registered listener.
type Checker interface {
	Subscribe(l update.Listener)
	CheckForUpdates()
	QuitAndInstall()
}

// StatusSink receives status texts. Delivery may be silently dropped.
type StatusSink interface {
	SendStatus(text string)
}

// Coordinator bridges a Checker to a StatusSink.
type Coordinator struct {
	checker Checker
	sink    StatusSink

	mu    sync.Mutex
	phase types.Phase
}

// New creates a Coordinator and subscribes it to checker.
func New(checker Checker, sink StatusSink) *Coordinator {
	c := &Coordinator{
		checker: checker,
		sink:    sink,
		phase:   types.PhaseIdle,
	}
	checker.Subscribe(c)
	return c
}

// Phase returns the last phase observed.
func (c *Coordinator) Phase() types.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// RequestCheck asks the checker to look for an update. Requests are not deduplicated.
func (c *Coordinator) RequestCheck() {
	log.Debug("update check requested")
	c.setPhase(types.PhaseChecking)
	c.checker.CheckForUpdates()
}

// TriggerInstall asks the checker to quit and apply the staged update.
func (c *Coordinator) TriggerInstall() {
	log.Debug("install requested")
	c.checker.QuitAndInstall()
}

func (c *Coordinator) OnCheckingForUpdate() {
	c.Dispatch(Event{Kind: types.EventCheckingForUpdate})
}

// OnUpdateAvailable reports a newer version. The checker proceeds to download on its own.
func (c *Coordinator) OnUpdateAvailable(info *update.UpdateInfo) {
	c.Dispatch(Event{Kind: types.EventUpdateAvailable, Info: info})
}

func (c *Coordinator) OnUpdateNotAvailable(info *update.UpdateInfo) {
	c.Dispatch(Event{Kind: types.EventUpdateNotAvailable, Info: info})
}

func (c *Coordinator) OnDownloadProgress(progress update.ProgressInfo) {
	c.Dispatch(Event{Kind: types.EventDownloadProgress, Progress: progress})
}

// OnUpdateDownloaded reports completion and then installs without asking.
func (c *Coordinator) OnUpdateDownloaded(info *update.UpdateInfo) {
	c.Dispatch(Event{Kind: types.EventUpdateDownloaded, Info: info})
}

// OnError reports a checker failure. Nothing is retried.
func (c *Coordinator) OnError(err error) {
	c.Dispatch(Event{Kind: types.EventError, Err: err})
}

// Dispatch handles one lifecycle event: it records the phase, sends exactly
// one status text, and for a finished download triggers the install.
func (c *Coordinator) Dispatch(ev Event) {
	c.setPhase(ev.Kind.Phase())

	text := StatusFor(ev)
	entry := log.WithField("event", ev.Kind)
	if ev.Info != nil {
		entry = entry.WithField("version", ev.Info.LatestVersion)
	}
	if ev.Kind == types.EventDownloadProgress {
		entry.Trace(text)
	} else {
		entry.Info(text)
	}

	c.sink.SendStatus(text)

	if ev.Kind == types.EventUpdateDownloaded {
		c.TriggerInstall()
	}
}

func (c *Coordinator) setPhase(p types.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = p
}
