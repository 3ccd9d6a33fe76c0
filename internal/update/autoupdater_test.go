package update

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeChecker struct {
	info *UpdateInfo
	err  error
}

func (c *fakeChecker) CheckForUpdate(context.Context) (*UpdateInfo, error) {
	return c.info, c.err
}

type fakeDownloader struct {
	verifyErr error
}

func (d *fakeDownloader) Download(_ context.Context, _, dst string, onProgress ProgressFunc) error {
	onProgress(ProgressInfo{BytesPerSecond: 10, Percent: 50, Transferred: 5, Total: 10})
	onProgress(ProgressInfo{BytesPerSecond: 10, Percent: 100, Transferred: 10, Total: 10})
	return os.WriteFile(dst, []byte("new binary"), 0755)
}

func (d *fakeDownloader) VerifyChecksum(context.Context, string, string) error {
	return d.verifyErr
}

type fakeReplacer struct {
	mu       sync.Mutex
	replaced []string
	err      error
}

func (r *fakeReplacer) Replace(newBinary string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replaced = append(r.replaced, newBinary)
	return r.err
}

func (r *fakeReplacer) Rollback() error { return nil }

type recordingListener struct {
	events chan string
	errs   chan error
}

func newRecordingListener() *recordingListener {
	return &recordingListener{
		events: make(chan string, 32),
		errs:   make(chan error, 8),
	}
}

func (l *recordingListener) OnCheckingForUpdate()           { l.events <- "checking" }
func (l *recordingListener) OnUpdateAvailable(*UpdateInfo)    { l.events <- "available" }
func (l *recordingListener) OnUpdateNotAvailable(*UpdateInfo) { l.events <- "not-available" }
func (l *recordingListener) OnDownloadProgress(ProgressInfo)  { l.events <- "progress" }
func (l *recordingListener) OnUpdateDownloaded(*UpdateInfo)   { l.events <- "downloaded" }
func (l *recordingListener) OnError(err error) {
	l.errs <- err
	l.events <- "error"
}

func (l *recordingListener) next(t *testing.T, n int) []string {
	t.Helper()
	var got []string
	for i := 0; i < n; i++ {
		select {
		case ev := <-l.events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after events %v, wanted %d", got, n)
		}
	}
	return got
}

var availableInfo = &UpdateInfo{
	Available:      true,
	CurrentVersion: "1.0.0",
	LatestVersion:  "2.0.0",
	AssetURL:       "https://example.com/deskshell-linux-amd64",
	ChecksumURL:    "https://example.com/checksums.txt",
}

func startAutoUpdater(t *testing.T, checker Checker, opts ...AutoUpdaterOption) (*AutoUpdater, *recordingListener) {
	t.Helper()
	opts = append([]AutoUpdaterOption{
		WithStageDir(t.TempDir()),
		WithTargetPlatform(Platform{OS: "linux", Arch: "amd64"}),
		WithDownloader(&fakeDownloader{}),
		WithReplacer(&fakeReplacer{}),
		WithRestarter(func(string) error { return nil }),
	}, opts...)

	u := NewAutoUpdater("deskshell", "/opt/deskshell/deskshell", checker, opts...)
	listener := newRecordingListener()
	u.Subscribe(listener)

	ctx, cancel := context.WithCancel(context.Background())
	go u.Run(ctx)
	t.Cleanup(cancel)

	return u, listener
}

func TestAutoUpdater_NotAvailable(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{info: &UpdateInfo{CurrentVersion: "1.0.0", LatestVersion: "1.0.0"}})

	u.CheckForUpdates()

	got := listener.next(t, 2)
	want := []string{"checking", "not-available"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	if _, ok := u.Staged(); ok {
		t.Error("nothing should be staged")
	}
}

func TestAutoUpdater_DownloadsAndStages(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{info: availableInfo})

	u.CheckForUpdates()

	got := listener.next(t, 5)
	want := []string{"checking", "available", "progress", "progress", "downloaded"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	info, ok := u.Staged()
	if !ok {
		t.Fatal("update should be staged")
	}
	if info.LatestVersion != "2.0.0" {
		t.Errorf("staged version = %s, want 2.0.0", info.LatestVersion)
	}
}

func TestAutoUpdater_CheckAgainAfterCompletion(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{info: &UpdateInfo{}})

	u.CheckForUpdates()
	listener.next(t, 2)

	u.CheckForUpdates()
	got := listener.next(t, 2)
	if got[0] != "checking" {
		t.Errorf("second check should start with checking, got %v", got)
	}
}

func TestAutoUpdater_CheckError(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{err: errors.New("ENOTFOUND")})

	u.CheckForUpdates()

	got := listener.next(t, 2)
	want := []string{"checking", "error"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	err := <-listener.errs
	if err == nil || !strings.Contains(err.Error(), "ENOTFOUND") {
		t.Errorf("error = %v, want it to carry ENOTFOUND", err)
	}
}

func TestAutoUpdater_MissingAsset(t *testing.T) {
	info := *availableInfo
	info.AssetURL = ""
	u, listener := startAutoUpdater(t, &fakeChecker{info: &info})

	u.CheckForUpdates()
	listener.next(t, 3)

	if err := <-listener.errs; !errors.Is(err, ErrNoAsset) {
		t.Errorf("error = %v, want ErrNoAsset", err)
	}
}

func TestAutoUpdater_UnsupportedPlatform(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{info: availableInfo},
		WithTargetPlatform(Platform{OS: "plan9", Arch: "386"}))

	u.CheckForUpdates()
	listener.next(t, 3)

	if err := <-listener.errs; !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("error = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestAutoUpdater_ChecksumFailureDoesNotStage(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{info: availableInfo},
		WithDownloader(&fakeDownloader{verifyErr: errors.New("checksum mismatch")}))

	u.CheckForUpdates()

	got := listener.next(t, 5)
	if got[len(got)-1] != "error" {
		t.Errorf("events = %v, want trailing error", got)
	}
	if _, ok := u.Staged(); ok {
		t.Error("unverified update must not be staged")
	}
}

func TestAutoUpdater_QuitAndInstallWithoutStagedUpdate(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{})

	u.QuitAndInstall()

	listener.next(t, 1)
	if err := <-listener.errs; !errors.Is(err, ErrNothingStaged) {
		t.Errorf("error = %v, want ErrNothingStaged", err)
	}
}

type blockingChecker struct {
	calls   atomic.Int32
	release chan struct{}
}

func (c *blockingChecker) CheckForUpdate(context.Context) (*UpdateInfo, error) {
	c.calls.Add(1)
	<-c.release
	return &UpdateInfo{CurrentVersion: "1.0.0", LatestVersion: "1.0.0"}, nil
}

func TestAutoUpdater_DropsCheckWhileOneIsRunning(t *testing.T) {
	checker := &blockingChecker{release: make(chan struct{})}
	u, listener := startAutoUpdater(t, checker)

	u.CheckForUpdates()
	if got := listener.next(t, 1); got[0] != "checking" {
		t.Fatalf("first event = %q, want checking", got[0])
	}

	u.CheckForUpdates()
	u.CheckForUpdates()
	close(checker.release)

	if got := listener.next(t, 1); got[0] != "not-available" {
		t.Fatalf("closing event = %q, want not-available", got[0])
	}

	select {
	case ev := <-listener.events:
		t.Fatalf("unexpected event %q from a dropped check", ev)
	case <-time.After(200 * time.Millisecond):
	}
	if n := checker.calls.Load(); n != 1 {
		t.Errorf("checker called %d times, want 1", n)
	}
}

func TestAutoUpdater_WorkQueuedBeforeRun(t *testing.T) {
	u := NewAutoUpdater("deskshell", "/opt/deskshell/deskshell", &fakeChecker{},
		WithStageDir(t.TempDir()),
		WithReplacer(&fakeReplacer{}),
		WithRestarter(func(string) error { return nil }),
	)
	listener := newRecordingListener()
	u.Subscribe(listener)

	n := jobQueueSize + 2
	for i := 0; i < n; i++ {
		u.QuitAndInstall()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go u.Run(ctx)

	listener.next(t, n)
	for i := 0; i < n; i++ {
		if err := <-listener.errs; !errors.Is(err, ErrNothingStaged) {
			t.Errorf("error %d = %v, want ErrNothingStaged", i, err)
		}
	}
}

func TestAutoUpdater_QuitAndInstall(t *testing.T) {
	replacer := &fakeReplacer{}
	restarted := make(chan string, 1)

	u, listener := startAutoUpdater(t, &fakeChecker{info: availableInfo},
		WithReplacer(replacer),
		WithRestarter(func(executable string) error {
			restarted <- executable
			return nil
		}))

	u.CheckForUpdates()
	listener.next(t, 5)

	u.QuitAndInstall()

	select {
	case exe := <-restarted:
		if exe != "/opt/deskshell/deskshell" {
			t.Errorf("restarted %s, want /opt/deskshell/deskshell", exe)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("restart was not requested")
	}

	replacer.mu.Lock()
	defer replacer.mu.Unlock()
	if len(replacer.replaced) != 1 {
		t.Fatalf("Replace called %d times, want 1", len(replacer.replaced))
	}
	if _, ok := u.Staged(); ok {
		t.Error("staged update should be cleared after install")
	}
}

func TestAutoUpdater_InstallFailureReportsError(t *testing.T) {
	u, listener := startAutoUpdater(t, &fakeChecker{info: availableInfo},
		WithReplacer(&fakeReplacer{err: errors.New("permission denied")}))

	u.CheckForUpdates()
	listener.next(t, 5)

	u.QuitAndInstall()
	listener.next(t, 1)

	if err := <-listener.errs; err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("error = %v, want permission denied", err)
	}
}
