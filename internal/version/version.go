package version

import (
	"fmt"
	"os"
	"runtime"
)

var (
	// Version is the application version, set via ldflags during build.
	Version = "2.4.0"
	// Commit is the git commit hash, set via ldflags during build.
	Commit = "unknown"
	// BuildDate is the build timestamp, set via ldflags during build.
	BuildDate = "unknown"
	// Channel is the release channel this binary was built for, set via
	// ldflags during build. One of "stable", "beta", "nightly".
	Channel = "stable"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Channel   string `json:"channel"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Channel:   Channel,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns the application version string.
func String() string {
	return Version
}

// IsSupportedOS reports whether automatic update checking is possible on
// this operating system.
func IsSupportedOS() bool {
	switch runtime.GOOS {
	case "windows", "linux", "darwin":
		return true
	default:
		return false
	}
}

// IsNightly reports whether this binary was built on the nightly channel.
// Nightly builds move ahead of the release feed and must not be offered
// feed releases as updates.
func IsNightly() bool {
	return Channel == "nightly"
}

// IsFlatpak reports whether the process runs inside a Flatpak sandbox.
// Sandboxed installs are updated by the distribution format, not by us.
func IsFlatpak() bool {
	if os.Getenv("FLATPAK_ID") != "" {
		return true
	}
	_, err := os.Stat("/.flatpak-info")
	return err == nil
}

// UpdateCheckDisabledReason returns a human-readable reason when update
// checking is disabled for this build or environment, or "" when checks
// are allowed.
func UpdateCheckDisabledReason() string {
	if !IsSupportedOS() {
		return fmt.Sprintf("unsupported operating system %q", runtime.GOOS)
	}
	if IsFlatpak() {
		return "running inside a Flatpak sandbox"
	}
	if IsNightly() {
		return "nightly builds do not use the release feed"
	}
	return ""
}
