package updater

// Status is the externally visible state of the update coordinator.
// Exactly one value is current at any time; it starts at StatusIdle and
// only the coordinator's run loop mutates it.
type Status string

// Update statuses. The failure statuses are terminal until the next
// explicit check or install call.
const (
	StatusIdle              Status = "idle"
	StatusSearching         Status = "searching"
	StatusNoUpdateAvailable Status = "no_update_available"
	StatusUpdateAvailable   Status = "update_available"
	StatusSearchFailed      Status = "search_failed"
	StatusDownloading       Status = "downloading"
	StatusDownloadFailed    Status = "download_failed"
	StatusWriteFileFailed   Status = "write_file_failed"
	StatusLaunchFailed      Status = "launch_failed"
)

// ShouldShowUpdateButton reports whether the UI should render the update
// button for this status.
func (s Status) ShouldShowUpdateButton() bool {
	switch s {
	case StatusUpdateAvailable,
		StatusSearchFailed,
		StatusDownloading,
		StatusDownloadFailed,
		StatusWriteFileFailed,
		StatusLaunchFailed:
		return true
	default:
		return false
	}
}

// IsError reports whether the status is a failure outcome.
func (s Status) IsError() bool {
	switch s {
	case StatusSearchFailed, StatusDownloadFailed, StatusWriteFileFailed, StatusLaunchFailed:
		return true
	default:
		return false
	}
}

// ReleaseInfo is the result of a successful release-feed query: the
// online tag plus the per-platform download locations the current
// platform requires.
type ReleaseInfo struct {
	TagName      string
	InstallerURL string
	PortableURL  string
}

// artifact is the transient download product of one install attempt: the
// received bytes, where they go on disk, and how the updater is launched.
// It never outlives the attempt.
type artifact struct {
	data   []byte
	path   string
	launch []string
}
