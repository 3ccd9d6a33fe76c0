package update

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedPlatform is returned when no release build exists for the running platform.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrNoAsset is returned when a release carries no binary or checksum for this platform.
	ErrNoAsset = errors.New("release has no matching asset")
	// ErrNothingStaged is returned by an install request when no update has been downloaded.
	ErrNothingStaged = errors.New("no update has been downloaded")
)

// UpdateInfo describes an available update
type UpdateInfo struct {
	Available      bool   `json:"available" yaml:"available"`             // Whether an update is available
	CurrentVersion string `json:"current_version" yaml:"current_version"` // Currently installed version
	LatestVersion  string `json:"latest_version" yaml:"latest_version"`   // Latest available version
	ReleaseURL     string `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	ReleaseNotes   string `json:"release_notes,omitempty" yaml:"release_notes,omitempty"`
	AssetURL       string `json:"-" yaml:"-"` // Direct download URL for the binary
	ChecksumURL    string `json:"-" yaml:"-"` // URL to checksums file
}

// ProgressInfo is a snapshot of an in-flight download.
type ProgressInfo struct {
	BytesPerSecond float64 `json:"bytes_per_second"`
	Percent        float64 `json:"percent"` // 0-100
	Transferred    int64   `json:"transferred"`
	Total          int64   `json:"total"`
}

// Platform describes the current system platform
type Platform struct {
	OS   string // Operating system (darwin, linux, windows)
	Arch string // Architecture (amd64, arm64)
}

// Checker checks for available updates
type Checker interface {
	CheckForUpdate(ctx context.Context) (*UpdateInfo, error)
}

// ProgressFunc receives download progress snapshots.
type ProgressFunc func(ProgressInfo)

// Downloader downloads and verifies binaries
type Downloader interface {
	Download(ctx context.Context, url, dst string, onProgress ProgressFunc) error
	VerifyChecksum(ctx context.Context, file, checksumURL string) error
}

// Replacer safely replaces the binary with rollback support
type Replacer interface {
	Replace(newBinary string) error
	Rollback() error
}

// Listener receives update lifecycle events. Calls are made one at a time
// from the AutoUpdater worker goroutine.
type Listener interface {
	OnCheckingForUpdate()
	OnUpdateAvailable(info *UpdateInfo)
	OnUpdateNotAvailable(info *UpdateInfo)
	OnDownloadProgress(progress ProgressInfo)
	OnUpdateDownloaded(info *UpdateInfo)
	OnError(err error)
}
