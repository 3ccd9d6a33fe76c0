package coordinator

import (
	"fmt"
	"strconv"

	"github.com/adamancini/deskshell/internal/types"
	"github.com/adamancini/deskshell/internal/update"
)

// Status texts sent to the UI for each lifecycle phase.
const (
	StatusChecking     = "checking for update"
	StatusAvailable    = "new version found"
	StatusNotAvailable = "already on latest version"
	StatusDownloaded   = "download complete, preparing to install"
)

// Event is one lifecycle event delivered by the update checker.
type Event struct {
	Kind     types.EventKind
	Info     *update.UpdateInfo
	Progress update.ProgressInfo
	Err      error
}

// StatusFor returns the status text for ev. It depends only on the event.
func StatusFor(ev Event) string {
	switch ev.Kind {
	case types.EventCheckingForUpdate:
		return StatusChecking
	case types.EventUpdateAvailable:
		return StatusAvailable
	case types.EventUpdateNotAvailable:
		return StatusNotAvailable
	case types.EventDownloadProgress:
		return ProgressStatus(ev.Progress)
	case types.EventUpdateDownloaded:
		return StatusDownloaded
	case types.EventError:
		return ErrorStatus(ev.Err)
	default:
		return fmt.Sprintf("unknown update event %q", ev.Kind)
	}
}

// ProgressStatus formats speed, percent, transferred and total in that order.
func ProgressStatus(p update.ProgressInfo) string {
	return fmt.Sprintf("speed: %s B/s, downloaded %s%% (%d/%d)",
		formatNumber(p.BytesPerSecond), formatNumber(p.Percent), p.Transferred, p.Total)
}

// ErrorStatus embeds the error detail in a status text.
func ErrorStatus(err error) string {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	return "update error: " + detail
}

// formatNumber prints whole numbers without a fraction and others with at most two decimals.
func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
