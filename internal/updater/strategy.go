package updater

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/skratchdot/open-golang/open"
)

const (
	// UpdateGuideURL is opened on platforms without automatic installs.
	UpdateGuideURL = "https://chatterino.com"

	downloadTimeout = 10 * time.Minute

	installerFileName = "Update.exe"
	portableFileName  = "update.zip"
)

// Platform describes the runtime platform the strategy is selected for.
type Platform struct {
	OS       string // "windows", "darwin", "linux"
	Portable bool   // portable (non-installed) Windows distribution
}

// DetectPlatform builds the platform descriptor for the running process.
// A Windows install is treated as portable when a "portable" marker file
// sits next to the executable, or on explicit request.
func DetectPlatform(portable bool) Platform {
	p := Platform{OS: runtime.GOOS, Portable: portable}
	if p.OS == "windows" && !p.Portable {
		if exe, err := os.Executable(); err == nil {
			if _, err := os.Stat(filepath.Join(filepath.Dir(exe), "portable")); err == nil {
				p.Portable = true
			}
		}
	}
	return p
}

// RequiresInstallerURL reports whether the release feed must provide an
// installer URL for this platform.
func (p Platform) RequiresInstallerURL() bool {
	return p.OS == "windows" || p.OS == "darwin"
}

// RequiresPortableURL reports whether the release feed must provide a
// portable archive URL for this platform.
func (p Platform) RequiresPortableURL() bool {
	return p.OS == "windows"
}

// InstallOutcome is a strategy's terminal result when Install returns nil.
type InstallOutcome int

const (
	// OutcomeHandoff means an external updater/installer was launched
	// and the running client must exit so it can be replaced.
	OutcomeHandoff InstallOutcome = iota
	// OutcomeManual means the user was pointed at a browser page and
	// continues the update by hand; the client keeps running.
	OutcomeManual
)

// Strategy performs the platform-specific download-and-launch sequence
// for one release. Failures carry an error code that maps onto a
// terminal coordinator status.
type Strategy interface {
	Install(ctx context.Context, rel *ReleaseInfo) (InstallOutcome, error)
	// Downloads reports whether Install transfers an artifact, which is
	// what drives the Downloading status.
	Downloads() bool
}

// Launcher starts a process detached from the current one.
type Launcher interface {
	StartDetached(name string, args ...string) error
}

// ExecLauncher launches via os/exec and releases the child so it
// survives our exit.
type ExecLauncher struct{}

// StartDetached implements Launcher.
func (ExecLauncher) StartDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Opener opens a URL in the user's browser.
type Opener interface {
	OpenURL(url string) error
}

// BrowserOpener opens URLs with the system default handler.
type BrowserOpener struct{}

// OpenURL implements Opener.
func (BrowserOpener) OpenURL(url string) error {
	return open.Run(url)
}

// NewStrategy selects the install strategy for the platform. The
// returned strategy is fixed for the process lifetime.
func NewStrategy(p Platform, miscDir string, logger *slog.Logger) Strategy {
	switch p.OS {
	case "windows":
		if p.Portable {
			return &WindowsPortableStrategy{
				MiscDir:  miscDir,
				Launcher: ExecLauncher{},
				Client:   &http.Client{Timeout: downloadTimeout},
				Logger:   logger,
			}
		}
		return &WindowsInstallerStrategy{
			MiscDir:  miscDir,
			Launcher: ExecLauncher{},
			Client:   &http.Client{Timeout: downloadTimeout},
			Logger:   logger,
		}
	case "darwin":
		return &MacOSRedirectStrategy{Opener: BrowserOpener{}, Logger: logger}
	default:
		return &LinuxManualStrategy{Opener: BrowserOpener{}, GuideURL: UpdateGuideURL, Logger: logger}
	}
}

// WindowsInstallerStrategy downloads the installer and launches it
// detached; the running client exits once the installer is up.
type WindowsInstallerStrategy struct {
	MiscDir  string
	Launcher Launcher
	Client   *http.Client
	Logger   *slog.Logger
}

// Install implements Strategy.
func (s *WindowsInstallerStrategy) Install(ctx context.Context, rel *ReleaseInfo) (InstallOutcome, error) {
	data, err := fetch(ctx, s.Client, rel.InstallerURL)
	if err != nil {
		return 0, err
	}

	art := artifact{
		data: data,
		path: filepath.Join(s.MiscDir, installerFileName),
	}
	art.launch = []string{art.path}

	if err := writeArtifact(art.path, art.data); err != nil {
		return 0, err
	}
	s.Logger.Info("Installer written, launching", "path", art.path)

	if err := s.Launcher.StartDetached(art.launch[0], art.launch[1:]...); err != nil {
		return 0, newError(ErrCodeLaunchFailed, "failed to launch installer", err)
	}
	return OutcomeHandoff, nil
}

// Downloads implements Strategy.
func (s *WindowsInstallerStrategy) Downloads() bool { return true }

// WindowsPortableStrategy downloads the portable archive and hands it to
// the companion updater next to the running executable.
type WindowsPortableStrategy struct {
	MiscDir  string
	Launcher Launcher
	Client   *http.Client
	Logger   *slog.Logger

	// UpdaterPath overrides the companion updater location; empty means
	// updater.1/ChatterinoUpdater.exe relative to the executable.
	UpdaterPath string
}

func (s *WindowsPortableStrategy) updaterPath() (string, error) {
	if s.UpdaterPath != "" {
		return s.UpdaterPath, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(exe), "updater.1", "ChatterinoUpdater.exe"), nil
}

// Install implements Strategy.
func (s *WindowsPortableStrategy) Install(ctx context.Context, rel *ReleaseInfo) (InstallOutcome, error) {
	data, err := fetch(ctx, s.Client, rel.PortableURL)
	if err != nil {
		return 0, err
	}

	updater, err := s.updaterPath()
	if err != nil {
		return 0, newError(ErrCodeLaunchFailed, "cannot locate companion updater", err)
	}

	art := artifact{
		data: data,
		path: filepath.Join(s.MiscDir, portableFileName),
	}
	art.launch = []string{updater, art.path, "restart"}

	if err := writeArtifact(art.path, art.data); err != nil {
		return 0, err
	}
	s.Logger.Info("Portable archive written, handing off to updater", "path", art.path, "updater", updater)

	if err := s.Launcher.StartDetached(art.launch[0], art.launch[1:]...); err != nil {
		return 0, newError(ErrCodeLaunchFailed, "failed to launch companion updater", err)
	}
	return OutcomeHandoff, nil
}

// Downloads implements Strategy.
func (s *WindowsPortableStrategy) Downloads() bool { return true }

// MacOSRedirectStrategy opens the release page in the browser; the user
// downloads and installs by hand.
type MacOSRedirectStrategy struct {
	Opener Opener
	Logger *slog.Logger
}

// Install implements Strategy.
func (s *MacOSRedirectStrategy) Install(_ context.Context, rel *ReleaseInfo) (InstallOutcome, error) {
	s.Logger.Info("Opening release page for manual install", "url", rel.InstallerURL)
	if err := s.Opener.OpenURL(rel.InstallerURL); err != nil {
		return 0, newError(ErrCodeLaunchFailed, "failed to open release page", err)
	}
	return OutcomeManual, nil
}

// Downloads implements Strategy.
func (s *MacOSRedirectStrategy) Downloads() bool { return false }

// LinuxManualStrategy points the user at the update guide; automatic
// installation is not offered on Linux.
type LinuxManualStrategy struct {
	Opener   Opener
	GuideURL string
	Logger   *slog.Logger
}

// Install implements Strategy.
func (s *LinuxManualStrategy) Install(_ context.Context, _ *ReleaseInfo) (InstallOutcome, error) {
	s.Logger.Info("Automatic updates unavailable, opening update guide", "url", s.GuideURL)
	if err := s.Opener.OpenURL(s.GuideURL); err != nil {
		return 0, newError(ErrCodeLaunchFailed, "failed to open update guide", err)
	}
	return OutcomeManual, nil
}

// Downloads implements Strategy.
func (s *LinuxManualStrategy) Downloads() bool { return false }

// fetch downloads one artifact into memory. Any transport or HTTP-level
// failure, including the ten-minute timeout, is DOWNLOAD_FAILED.
func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newError(ErrCodeDownloadFailed, "failed to build download request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, newError(ErrCodeDownloadFailed, "download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(ErrCodeDownloadFailed,
			fmt.Sprintf("download returned status %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrCodeDownloadFailed, "download interrupted", err)
	}
	return data, nil
}

// writeArtifact writes the artifact with truncate-on-open semantics so a
// retried attempt overwrites the previous one. No integrity check is
// performed on the bytes.
func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return newError(ErrCodeWriteFailed, "failed to create artifact directory", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o755)
	if err != nil {
		return newError(ErrCodeWriteFailed, "failed to open artifact file", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return newError(ErrCodeWriteFailed, "failed to write artifact", err)
	}
	if err := f.Close(); err != nil {
		return newError(ErrCodeWriteFailed, "failed to flush artifact", err)
	}
	return nil
}
