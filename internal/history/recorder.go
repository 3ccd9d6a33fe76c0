package history

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/deskshell/internal/update"
)

// Recorder is an update.Listener that writes check outcomes to a Manager.
// Checking and progress events are not recorded.
type Recorder struct {
	m *Manager

	mu     sync.Mutex
	staged *update.UpdateInfo
}

// NewRecorder creates a Recorder writing to m.
func NewRecorder(m *Manager) *Recorder {
	return &Recorder{m: m}
}

func (r *Recorder) OnCheckingForUpdate() {}

func (r *Recorder) OnUpdateAvailable(info *update.UpdateInfo) {
	r.add(withInfo(KindAvailable, info))
}

func (r *Recorder) OnUpdateNotAvailable(info *update.UpdateInfo) {
	e := withInfo(KindNotAvailable, info)
	e.LatestVersion = ""
	r.add(e)
}

func (r *Recorder) OnDownloadProgress(update.ProgressInfo) {}

func (r *Recorder) OnUpdateDownloaded(info *update.UpdateInfo) {
	r.mu.Lock()
	r.staged = info
	r.mu.Unlock()
	r.add(withInfo(KindDownloaded, info))
}

func (r *Recorder) OnError(err error) {
	e := Entry{Kind: KindError}
	if err != nil {
		e.Error = err.Error()
	}
	r.add(e)
}

// Installed records that the last downloaded update replaced the binary.
func (r *Recorder) Installed() {
	r.mu.Lock()
	info := r.staged
	r.staged = nil
	r.mu.Unlock()
	r.add(withInfo(KindInstalled, info))
}

func (r *Recorder) add(e Entry) {
	if _, err := r.m.Add(e); err != nil {
		log.Warnf("record update history: %v", err)
	}
}

func withInfo(kind Kind, info *update.UpdateInfo) Entry {
	e := Entry{Kind: kind}
	if info != nil {
		e.CurrentVersion = info.CurrentVersion
		e.LatestVersion = info.LatestVersion
	}
	return e
}
