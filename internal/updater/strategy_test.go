package updater

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

type fakeLauncher struct {
	name string
	args []string
	err  error
}

func (f *fakeLauncher) StartDetached(name string, args ...string) error {
	f.name = name
	f.args = args
	return f.err
}

type fakeOpener struct {
	url string
	err error
}

func (f *fakeOpener) OpenURL(url string) error {
	f.url = url
	return f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveBytes(t *testing.T, data []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWindowsInstallerStrategy(t *testing.T) {
	payload := []byte("installer bytes")
	srv := serveBytes(t, payload)

	dir := t.TempDir()
	launcher := &fakeLauncher{}
	s := &WindowsInstallerStrategy{
		MiscDir:  dir,
		Launcher: launcher,
		Client:   srv.Client(),
		Logger:   discardLogger(),
	}

	outcome, err := s.Install(context.Background(), &ReleaseInfo{InstallerURL: srv.URL})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if outcome != OutcomeHandoff {
		t.Errorf("outcome = %v, want OutcomeHandoff", outcome)
	}

	wantPath := filepath.Join(dir, "Update.exe")
	got, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("installer not written: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("written bytes differ from download")
	}
	if launcher.name != wantPath {
		t.Errorf("launched %q, want %q", launcher.name, wantPath)
	}
	if len(launcher.args) != 0 {
		t.Errorf("installer launched with args %v, want none", launcher.args)
	}
}

func TestWindowsInstallerOverwritesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Update.exe")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 1024), 0o755); err != nil {
		t.Fatal(err)
	}

	payload := []byte("short")
	srv := serveBytes(t, payload)
	s := &WindowsInstallerStrategy{
		MiscDir:  dir,
		Launcher: &fakeLauncher{},
		Client:   srv.Client(),
		Logger:   discardLogger(),
	}

	if _, err := s.Install(context.Background(), &ReleaseInfo{InstallerURL: srv.URL}); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("stale bytes survived the rewrite: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestWindowsPortableStrategy(t *testing.T) {
	payload := []byte("zip bytes")
	srv := serveBytes(t, payload)

	dir := t.TempDir()
	launcher := &fakeLauncher{}
	s := &WindowsPortableStrategy{
		MiscDir:     dir,
		Launcher:    launcher,
		Client:      srv.Client(),
		Logger:      discardLogger(),
		UpdaterPath: filepath.Join(dir, "updater.1", "ChatterinoUpdater.exe"),
	}

	outcome, err := s.Install(context.Background(), &ReleaseInfo{PortableURL: srv.URL})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if outcome != OutcomeHandoff {
		t.Errorf("outcome = %v, want OutcomeHandoff", outcome)
	}

	archivePath := filepath.Join(dir, "update.zip")
	if _, err := os.Stat(archivePath); err != nil {
		t.Fatalf("archive not written: %v", err)
	}
	if launcher.name != s.UpdaterPath {
		t.Errorf("launched %q, want companion updater", launcher.name)
	}
	want := []string{archivePath, "restart"}
	if len(launcher.args) != 2 || launcher.args[0] != want[0] || launcher.args[1] != want[1] {
		t.Errorf("updater args = %v, want %v", launcher.args, want)
	}
}

func TestStrategyDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	s := &WindowsInstallerStrategy{
		MiscDir:  t.TempDir(),
		Launcher: &fakeLauncher{},
		Client:   srv.Client(),
		Logger:   discardLogger(),
	}
	_, err := s.Install(context.Background(), &ReleaseInfo{InstallerURL: srv.URL})
	if errorCode(err) != ErrCodeDownloadFailed {
		t.Errorf("error = %v, want %s", err, ErrCodeDownloadFailed)
	}
}

func TestStrategyWriteFailure(t *testing.T) {
	// A regular file where the artifact directory should be makes every
	// write attempt fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "misc")
	if err := os.WriteFile(blocker, []byte("not a directory"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := serveBytes(t, []byte("data"))
	s := &WindowsInstallerStrategy{
		MiscDir:  blocker,
		Launcher: &fakeLauncher{},
		Client:   srv.Client(),
		Logger:   discardLogger(),
	}
	_, err := s.Install(context.Background(), &ReleaseInfo{InstallerURL: srv.URL})
	if errorCode(err) != ErrCodeWriteFailed {
		t.Errorf("error = %v, want %s", err, ErrCodeWriteFailed)
	}
}

func TestStrategyLaunchFailure(t *testing.T) {
	srv := serveBytes(t, []byte("data"))
	s := &WindowsInstallerStrategy{
		MiscDir:  t.TempDir(),
		Launcher: &fakeLauncher{err: errors.New("no such file")},
		Client:   srv.Client(),
		Logger:   discardLogger(),
	}
	_, err := s.Install(context.Background(), &ReleaseInfo{InstallerURL: srv.URL})
	if errorCode(err) != ErrCodeLaunchFailed {
		t.Errorf("error = %v, want %s", err, ErrCodeLaunchFailed)
	}
}

func TestMacOSRedirectStrategy(t *testing.T) {
	opener := &fakeOpener{}
	s := &MacOSRedirectStrategy{Opener: opener, Logger: discardLogger()}

	outcome, err := s.Install(context.Background(), &ReleaseInfo{InstallerURL: "https://example.com/dmg"})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if outcome != OutcomeManual {
		t.Errorf("outcome = %v, want OutcomeManual", outcome)
	}
	if opener.url != "https://example.com/dmg" {
		t.Errorf("opened %q", opener.url)
	}
	if s.Downloads() {
		t.Error("macOS strategy must not report downloads")
	}

	opener.err = errors.New("no browser")
	if _, err := s.Install(context.Background(), &ReleaseInfo{InstallerURL: "x"}); errorCode(err) != ErrCodeLaunchFailed {
		t.Errorf("error = %v, want %s", err, ErrCodeLaunchFailed)
	}
}

func TestLinuxManualStrategy(t *testing.T) {
	opener := &fakeOpener{}
	s := &LinuxManualStrategy{Opener: opener, GuideURL: UpdateGuideURL, Logger: discardLogger()}

	outcome, err := s.Install(context.Background(), &ReleaseInfo{})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if outcome != OutcomeManual {
		t.Errorf("outcome = %v, want OutcomeManual", outcome)
	}
	if opener.url != UpdateGuideURL {
		t.Errorf("opened %q, want update guide", opener.url)
	}
	if s.Downloads() {
		t.Error("linux strategy must not report downloads")
	}
}

func TestNewStrategySelection(t *testing.T) {
	logger := discardLogger()
	tests := []struct {
		platform Platform
		want     string
	}{
		{Platform{OS: "windows"}, "*updater.WindowsInstallerStrategy"},
		{Platform{OS: "windows", Portable: true}, "*updater.WindowsPortableStrategy"},
		{Platform{OS: "darwin"}, "*updater.MacOSRedirectStrategy"},
		{Platform{OS: "linux"}, "*updater.LinuxManualStrategy"},
		{Platform{OS: "freebsd"}, "*updater.LinuxManualStrategy"},
	}
	for _, tt := range tests {
		s := NewStrategy(tt.platform, t.TempDir(), logger)
		if got := typeName(s); got != tt.want {
			t.Errorf("NewStrategy(%+v) = %s, want %s", tt.platform, got, tt.want)
		}
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *WindowsInstallerStrategy:
		return "*updater.WindowsInstallerStrategy"
	case *WindowsPortableStrategy:
		return "*updater.WindowsPortableStrategy"
	case *MacOSRedirectStrategy:
		return "*updater.MacOSRedirectStrategy"
	case *LinuxManualStrategy:
		return "*updater.LinuxManualStrategy"
	default:
		return "unknown"
	}
}
