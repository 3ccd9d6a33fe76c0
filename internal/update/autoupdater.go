package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

const jobQueueSize = 4

// Restarter relaunches the freshly installed executable and ends the current process.
type Restarter func(executable string) error

// AutoUpdater drives the full check, download, verify and install pipeline and
// reports each step to its listeners. All work runs on the goroutine that
// calls Run, so listeners never observe two events at once.
type AutoUpdater struct {
	appName    string
	executable string
	stageDir   string
	platform   Platform
	checker    Checker
	downloader Downloader
	replacer   Replacer
	restart    Restarter

	jobs     chan func(context.Context)
	done     chan struct{}
	checking atomic.Bool

	mu         sync.Mutex
	listeners  []Listener
	staged     string
	stagedInfo *UpdateInfo
}

// AutoUpdaterOption configures an AutoUpdater.
type AutoUpdaterOption func(*AutoUpdater)

// WithDownloader replaces the HTTP downloader.
func WithDownloader(d Downloader) AutoUpdaterOption {
	return func(u *AutoUpdater) {
		u.downloader = d
	}
}

// WithReplacer replaces the binary replacer.
func WithReplacer(r Replacer) AutoUpdaterOption {
	return func(u *AutoUpdater) {
		u.replacer = r
	}
}

// WithRestarter replaces the relaunch step run after a successful install.
func WithRestarter(r Restarter) AutoUpdaterOption {
	return func(u *AutoUpdater) {
		u.restart = r
	}
}

// WithStageDir sets where downloaded updates are kept until installed.
func WithStageDir(dir string) AutoUpdaterOption {
	return func(u *AutoUpdater) {
		u.stageDir = dir
	}
}

// WithTargetPlatform overrides the platform whose asset is staged.
func WithTargetPlatform(p Platform) AutoUpdaterOption {
	return func(u *AutoUpdater) {
		u.platform = p
	}
}

// NewAutoUpdater creates an AutoUpdater that replaces executable with
// releases of appName found by checker.
func NewAutoUpdater(appName, executable string, checker Checker, opts ...AutoUpdaterOption) *AutoUpdater {
	u := &AutoUpdater{
		appName:    appName,
		executable: executable,
		stageDir:   filepath.Join(os.TempDir(), appName+"-update"),
		platform:   Detect(),
		checker:    checker,
		downloader: NewHTTPDownloader(),
		replacer:   NewBinaryReplacer(executable),
		restart:    Relaunch,
		jobs:       make(chan func(context.Context), jobQueueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Subscribe registers a listener for lifecycle events.
func (u *AutoUpdater) Subscribe(l Listener) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listeners = append(u.listeners, l)
}

// Run processes queued work until ctx is cancelled. Every AutoUpdater needs
// exactly one Run: work queued before Run starts waits for it, and work queued
// after Run returns is discarded.
func (u *AutoUpdater) Run(ctx context.Context) {
	defer close(u.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-u.jobs:
			job(ctx)
		}
	}
}

// CheckForUpdates queues a check. A check requested while another one is
// still running is dropped.
func (u *AutoUpdater) CheckForUpdates() {
	if !u.checking.CompareAndSwap(false, true) {
		log.Debug("update check already in progress")
		return
	}
	u.enqueue(u.check)
}

// QuitAndInstall queues installation of the staged update followed by a relaunch.
func (u *AutoUpdater) QuitAndInstall() {
	u.enqueue(u.install)
}

// Staged returns the downloaded update waiting to be installed, if any.
func (u *AutoUpdater) Staged() (*UpdateInfo, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stagedInfo, u.staged != ""
}

// enqueue hands job to Run. Once the queue is full the job waits in its own
// goroutine until Run takes it or returns.
func (u *AutoUpdater) enqueue(job func(context.Context)) {
	select {
	case u.jobs <- job:
	default:
		go func() {
			select {
			case u.jobs <- job:
			case <-u.done:
			}
		}()
	}
}

func (u *AutoUpdater) check(ctx context.Context) {
	final := u.runCheck(ctx)
	u.checking.Store(false)
	final()
}

// runCheck performs one check and returns the delivery of its closing event.
// The in-progress flag is cleared before that event so listeners may request
// a new check from it.
func (u *AutoUpdater) runCheck(ctx context.Context) func() {
	u.each(func(l Listener) { l.OnCheckingForUpdate() })

	info, err := u.checker.CheckForUpdate(ctx)
	if err != nil {
		return u.failure(fmt.Errorf("check for update: %w", err))
	}

	if !info.Available {
		return func() { u.each(func(l Listener) { l.OnUpdateNotAvailable(info) }) }
	}

	log.Infof("update %s available (running %s)", info.LatestVersion, info.CurrentVersion)
	u.each(func(l Listener) { l.OnUpdateAvailable(info) })

	path, err := u.stage(ctx, info)
	if err != nil {
		return u.failure(err)
	}

	u.mu.Lock()
	u.staged = path
	u.stagedInfo = info
	u.mu.Unlock()

	return func() { u.each(func(l Listener) { l.OnUpdateDownloaded(info) }) }
}

// stage downloads and verifies the release asset for the target platform.
func (u *AutoUpdater) stage(ctx context.Context, info *UpdateInfo) (string, error) {
	if !u.platform.IsSupported() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, u.platform)
	}
	if info.AssetURL == "" || info.ChecksumURL == "" {
		return "", fmt.Errorf("%w for %s", ErrNoAsset, u.platform)
	}

	if err := os.MkdirAll(u.stageDir, 0755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	dst := filepath.Join(u.stageDir, u.platform.AssetName(u.appName))
	err := u.downloader.Download(ctx, info.AssetURL, dst, func(p ProgressInfo) {
		u.each(func(l Listener) { l.OnDownloadProgress(p) })
	})
	if err != nil {
		return "", fmt.Errorf("download update: %w", err)
	}

	if err := u.downloader.VerifyChecksum(ctx, dst, info.ChecksumURL); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("verify update: %w", err)
	}

	return dst, nil
}

func (u *AutoUpdater) install(_ context.Context) {
	u.mu.Lock()
	staged := u.staged
	u.mu.Unlock()

	if staged == "" {
		u.fail(ErrNothingStaged)
		return
	}

	if err := u.replacer.Replace(staged); err != nil {
		u.fail(fmt.Errorf("install update: %w", err))
		return
	}

	u.mu.Lock()
	u.staged = ""
	u.stagedInfo = nil
	u.mu.Unlock()

	log.Info("update installed, restarting")
	if err := u.restart(u.executable); err != nil {
		u.fail(fmt.Errorf("restart after update: %w", err))
	}
}

func (u *AutoUpdater) fail(err error) {
	u.failure(err)()
}

func (u *AutoUpdater) failure(err error) func() {
	return func() {
		log.Warnf("update: %v", err)
		u.each(func(l Listener) { l.OnError(err) })
	}
}

func (u *AutoUpdater) each(fn func(Listener)) {
	u.mu.Lock()
	listeners := slices.Clone(u.listeners)
	u.mu.Unlock()

	for _, l := range listeners {
		fn(l)
	}
}
