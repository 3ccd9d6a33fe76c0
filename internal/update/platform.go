package update

import (
	"fmt"
	"runtime"
	"slices"
)

// supportedPlatforms lists the OS/arch pairs release builds are published for.
var supportedPlatforms = map[string][]string{
	"darwin":  {"amd64", "arm64"},
	"linux":   {"amd64", "arm64"},
	"windows": {"amd64", "arm64"},
}

// Detect returns the current platform (OS and architecture)
func Detect() Platform {
	return Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}
}

// AssetName returns the release asset name of app for this platform
// e.g., "deskshell-darwin-arm64" or "deskshell-windows-amd64.exe"
func (p Platform) AssetName(app string) string {
	name := fmt.Sprintf("%s-%s-%s", app, p.OS, p.Arch)
	if p.OS == "windows" {
		name += ".exe"
	}
	return name
}

// IsSupported returns true if this platform is supported
func (p Platform) IsSupported() bool {
	archs, ok := supportedPlatforms[p.OS]
	if !ok {
		return false
	}
	return slices.Contains(archs, p.Arch)
}

func (p Platform) String() string {
	return p.OS + "/" + p.Arch
}
