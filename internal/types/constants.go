// Package types provides type-safe constants shared by the deskshell packages.
//
// This package centralizes the enumerated types used throughout the codebase,
// replacing magic strings with typed constants that provide compile-time safety
// and validation methods.
package types

import (
	"fmt"
	"runtime"
	"strings"
)

// PlatformFamily identifies the operating system family the shell runs on.
type PlatformFamily string

const (
	// PlatformDarwin is macOS.
	PlatformDarwin PlatformFamily = "darwin"
	// PlatformWindows is Microsoft Windows.
	PlatformWindows PlatformFamily = "windows"
	// PlatformLinux is Linux.
	PlatformLinux PlatformFamily = "linux"
	// PlatformOther covers every family without dedicated handling.
	PlatformOther PlatformFamily = "other"
)

// AllPlatformFamilies returns all known platform families.
func AllPlatformFamilies() []PlatformFamily {
	return []PlatformFamily{PlatformDarwin, PlatformWindows, PlatformLinux, PlatformOther}
}

// Validate checks if the PlatformFamily is a valid value.
func (p PlatformFamily) Validate() error {
	switch p {
	case PlatformDarwin, PlatformWindows, PlatformLinux, PlatformOther:
		return nil
	case "":
		return fmt.Errorf("platform family is required")
	default:
		return fmt.Errorf("invalid platform family '%s' (must be darwin, windows, linux, or other)", p)
	}
}

// String returns the string representation of the PlatformFamily.
func (p PlatformFamily) String() string {
	return string(p)
}

// IsDarwin returns true if the platform is macOS.
func (p PlatformFamily) IsDarwin() bool {
	return p == PlatformDarwin
}

// KeepsRunningWithoutWindows reports whether applications on this family
// conventionally stay alive after their last window closes.
func (p PlatformFamily) KeepsRunningWithoutWindows() bool {
	return p == PlatformDarwin
}

// FamilyFromGOOS maps a GOOS value onto a PlatformFamily.
func FamilyFromGOOS(goos string) PlatformFamily {
	switch goos {
	case "darwin":
		return PlatformDarwin
	case "windows":
		return PlatformWindows
	case "linux":
		return PlatformLinux
	default:
		return PlatformOther
	}
}

// CurrentPlatformFamily returns the family of the running binary.
func CurrentPlatformFamily() PlatformFamily {
	return FamilyFromGOOS(runtime.GOOS)
}

// ParsePlatformFamily parses a string into a PlatformFamily.
// "macos" and "win32" are accepted as aliases.
func ParsePlatformFamily(s string) (PlatformFamily, error) {
	switch strings.ToLower(s) {
	case "macos", "mac", "osx":
		return PlatformDarwin, nil
	case "win32", "win":
		return PlatformWindows, nil
	}
	p := PlatformFamily(strings.ToLower(s))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// EventKind identifies an update checker lifecycle event.
type EventKind string

const (
	EventCheckingForUpdate  EventKind = "checking-for-update"
	EventUpdateAvailable    EventKind = "update-available"
	EventUpdateNotAvailable EventKind = "update-not-available"
	EventDownloadProgress   EventKind = "download-progress"
	EventUpdateDownloaded   EventKind = "update-downloaded"
	EventError              EventKind = "error"
)

// AllEventKinds returns all lifecycle event kinds in lifecycle order.
func AllEventKinds() []EventKind {
	return []EventKind{
		EventCheckingForUpdate,
		EventUpdateAvailable,
		EventUpdateNotAvailable,
		EventDownloadProgress,
		EventUpdateDownloaded,
		EventError,
	}
}

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Phase returns the lifecycle phase an event of this kind moves into.
func (k EventKind) Phase() Phase {
	switch k {
	case EventCheckingForUpdate:
		return PhaseChecking
	case EventUpdateAvailable:
		return PhaseAvailable
	case EventUpdateNotAvailable:
		return PhaseNotAvailable
	case EventDownloadProgress:
		return PhaseDownloading
	case EventUpdateDownloaded:
		return PhaseDownloaded
	default:
		return PhaseErrored
	}
}

// Phase is the last observed phase of the update lifecycle.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseChecking     Phase = "checking"
	PhaseAvailable    Phase = "available"
	PhaseDownloading  Phase = "downloading"
	PhaseDownloaded   Phase = "downloaded"
	PhaseNotAvailable Phase = "not-available"
	PhaseErrored      Phase = "errored"
)

// AllPhases returns all lifecycle phases.
func AllPhases() []Phase {
	return []Phase{
		PhaseIdle,
		PhaseChecking,
		PhaseAvailable,
		PhaseDownloading,
		PhaseDownloaded,
		PhaseNotAvailable,
		PhaseErrored,
	}
}

// String returns the string representation of the Phase.
func (p Phase) String() string {
	return string(p)
}

// IsSettled returns true when no check is in progress.
func (p Phase) IsSettled() bool {
	switch p {
	case PhaseIdle, PhaseNotAvailable, PhaseErrored:
		return true
	default:
		return false
	}
}
