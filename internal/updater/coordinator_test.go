package updater

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/uriiusero/chatterino7/internal/events"
)

type fakeQuery struct {
	rel *ReleaseInfo
	err error
}

func (f *fakeQuery) Check(ctx context.Context, channel string) (*ReleaseInfo, error) {
	return f.rel, f.err
}

type fakeStrategy struct {
	outcome   InstallOutcome
	err       error
	downloads bool

	// block, when non-nil, holds Install until closed.
	block chan struct{}

	calls atomic.Int32
}

func (f *fakeStrategy) Install(ctx context.Context, rel *ReleaseInfo) (InstallOutcome, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.outcome, f.err
}

func (f *fakeStrategy) Downloads() bool { return f.downloads }

func newTestCoordinator(t *testing.T, q Query, s Strategy) *Coordinator {
	t.Helper()
	c := NewCoordinator(Config{
		Query:          q,
		Strategy:       s,
		Bus:            events.New(),
		Logger:         discardLogger(),
		CurrentVersion: "2.4.0",
		DisabledReason: func() string { return "" },
		Exit:           func(int) { t.Error("unexpected exit") },
	})
	t.Cleanup(c.Close)
	return c
}

func waitStatus(t *testing.T, c *Coordinator, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Status() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("status = %s, want %s", c.Status(), want)
}

func TestCheckForUpdates(t *testing.T) {
	t.Run("equal version", func(t *testing.T) {
		c := newTestCoordinator(t,
			&fakeQuery{rel: &ReleaseInfo{TagName: "v.2.4.0"}},
			&fakeStrategy{})
		c.CheckForUpdates(context.Background())
		waitStatus(t, c, StatusNoUpdateAvailable)
		if c.ShouldShowUpdateButton() {
			t.Error("update button shown with no update")
		}
	})

	t.Run("newer version available", func(t *testing.T) {
		c := newTestCoordinator(t,
			&fakeQuery{rel: &ReleaseInfo{TagName: "v.2.5.0", InstallerURL: "x", PortableURL: "y"}},
			&fakeStrategy{})
		c.CheckForUpdates(context.Background())
		waitStatus(t, c, StatusUpdateAvailable)
		if c.OnlineVersion() != "v.2.5.0" {
			t.Errorf("OnlineVersion = %q", c.OnlineVersion())
		}
		if c.IsDowngrade() {
			t.Error("newer release flagged as downgrade")
		}
		if !c.ShouldShowUpdateButton() {
			t.Error("update button hidden with update available")
		}
	})

	t.Run("older version is a downgrade", func(t *testing.T) {
		c := newTestCoordinator(t,
			&fakeQuery{rel: &ReleaseInfo{TagName: "v.2.3.0"}},
			&fakeStrategy{})
		c.CheckForUpdates(context.Background())
		waitStatus(t, c, StatusUpdateAvailable)
		if !c.IsDowngrade() {
			t.Error("older release not flagged as downgrade")
		}
	})

	t.Run("query failure", func(t *testing.T) {
		c := newTestCoordinator(t,
			&fakeQuery{err: newError(ErrCodeNetworkFailure, "feed down", nil)},
			&fakeStrategy{})
		c.CheckForUpdates(context.Background())
		waitStatus(t, c, StatusSearchFailed)
		if !c.IsError() {
			t.Error("SearchFailed not reported as error")
		}
	})

	t.Run("incomparable tag", func(t *testing.T) {
		c := newTestCoordinator(t,
			&fakeQuery{rel: &ReleaseInfo{TagName: "nightly-build"}},
			&fakeStrategy{})
		c.CheckForUpdates(context.Background())
		waitStatus(t, c, StatusSearchFailed)
	})

	t.Run("disabled build skips silently", func(t *testing.T) {
		c := NewCoordinator(Config{
			Query:          &fakeQuery{rel: &ReleaseInfo{TagName: "v.9.9.9"}},
			Strategy:       &fakeStrategy{},
			Logger:         discardLogger(),
			CurrentVersion: "2.4.0",
			DisabledReason: func() string { return "nightly builds do not use the release feed" },
			Exit:           func(int) { t.Error("unexpected exit") },
		})
		defer c.Close()

		c.CheckForUpdates(context.Background())
		time.Sleep(50 * time.Millisecond)
		if c.Status() != StatusIdle {
			t.Errorf("status = %s, want idle", c.Status())
		}
	})
}

func TestInstallUpdates(t *testing.T) {
	available := func(t *testing.T, s Strategy) *Coordinator {
		c := newTestCoordinator(t,
			&fakeQuery{rel: &ReleaseInfo{TagName: "v.2.5.0", InstallerURL: "x", PortableURL: "y"}},
			s)
		c.CheckForUpdates(context.Background())
		waitStatus(t, c, StatusUpdateAvailable)
		return c
	}

	t.Run("rejected without available update", func(t *testing.T) {
		c := newTestCoordinator(t, &fakeQuery{}, &fakeStrategy{})
		err := c.InstallUpdates(context.Background())
		if errorCode(err) != ErrCodeInvalidState {
			t.Fatalf("error = %v, want %s", err, ErrCodeInvalidState)
		}
		if c.Status() != StatusIdle {
			t.Errorf("status = %s, rejection must not transition", c.Status())
		}
	})

	t.Run("download failure", func(t *testing.T) {
		c := available(t, &fakeStrategy{downloads: true, err: newError(ErrCodeDownloadFailed, "404", nil)})
		if err := c.InstallUpdates(context.Background()); err != nil {
			t.Fatalf("InstallUpdates rejected: %v", err)
		}
		waitStatus(t, c, StatusDownloadFailed)
	})

	t.Run("write failure", func(t *testing.T) {
		c := available(t, &fakeStrategy{downloads: true, err: newError(ErrCodeWriteFailed, "disk full", nil)})
		if err := c.InstallUpdates(context.Background()); err != nil {
			t.Fatalf("InstallUpdates rejected: %v", err)
		}
		waitStatus(t, c, StatusWriteFileFailed)
	})

	t.Run("launch failure", func(t *testing.T) {
		c := available(t, &fakeStrategy{downloads: true, err: newError(ErrCodeLaunchFailed, "missing updater", nil)})
		if err := c.InstallUpdates(context.Background()); err != nil {
			t.Fatalf("InstallUpdates rejected: %v", err)
		}
		waitStatus(t, c, StatusLaunchFailed)
	})

	t.Run("handoff exits the process", func(t *testing.T) {
		var exitCode atomic.Int32
		exitCode.Store(-1)
		c := NewCoordinator(Config{
			Query:          &fakeQuery{rel: &ReleaseInfo{TagName: "v.2.5.0"}},
			Strategy:       &fakeStrategy{downloads: true, outcome: OutcomeHandoff},
			Logger:         discardLogger(),
			CurrentVersion: "2.4.0",
			DisabledReason: func() string { return "" },
			Exit:           func(code int) { exitCode.Store(int32(code)) },
		})
		defer c.Close()

		c.CheckForUpdates(context.Background())
		waitStatus(t, c, StatusUpdateAvailable)
		if err := c.InstallUpdates(context.Background()); err != nil {
			t.Fatalf("InstallUpdates rejected: %v", err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for exitCode.Load() == -1 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if exitCode.Load() != 0 {
			t.Errorf("exit code = %d, want 0", exitCode.Load())
		}
	})

	t.Run("manual outcome keeps the update available", func(t *testing.T) {
		c := available(t, &fakeStrategy{outcome: OutcomeManual})
		if err := c.InstallUpdates(context.Background()); err != nil {
			t.Fatalf("InstallUpdates rejected: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
		if c.Status() != StatusUpdateAvailable {
			t.Errorf("status = %s, want update_available", c.Status())
		}
	})

	t.Run("disabled build rejects install", func(t *testing.T) {
		c := NewCoordinator(Config{
			Query:          &fakeQuery{},
			Strategy:       &fakeStrategy{},
			Logger:         discardLogger(),
			CurrentVersion: "2.4.0",
			DisabledReason: func() string { return "running inside a Flatpak sandbox" },
			Exit:           func(int) { t.Error("unexpected exit") },
		})
		defer c.Close()

		if err := c.InstallUpdates(context.Background()); errorCode(err) != ErrCodeDisabled {
			t.Errorf("error = %v, want %s", err, ErrCodeDisabled)
		}
	})
}

func TestManualInstallNotifiesStatusOnce(t *testing.T) {
	// The manual-outcome path re-enters setStatus with UpdateAvailable
	// already current; observers must not see a second transition.
	bus := events.New()
	var available atomic.Int32
	unsub := bus.Subscribe(func(e events.UpdateStatusEvent) {
		if Status(e.Status) == StatusUpdateAvailable {
			available.Add(1)
		}
	})
	defer unsub()

	c := NewCoordinator(Config{
		Query:          &fakeQuery{rel: &ReleaseInfo{TagName: "v.2.5.0"}},
		Strategy:       &fakeStrategy{outcome: OutcomeManual},
		Bus:            bus,
		Logger:         discardLogger(),
		CurrentVersion: "2.4.0",
		DisabledReason: func() string { return "" },
		Exit:           func(int) { t.Error("unexpected exit") },
	})
	defer c.Close()

	c.CheckForUpdates(context.Background())
	waitStatus(t, c, StatusUpdateAvailable)
	if err := c.InstallUpdates(context.Background()); err != nil {
		t.Fatalf("InstallUpdates rejected: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for available.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	// Grace period for a duplicate event to surface if one were published.
	time.Sleep(200 * time.Millisecond)

	if c.Status() != StatusUpdateAvailable {
		t.Fatalf("status = %s, want update_available", c.Status())
	}
	if got := available.Load(); got != 1 {
		t.Errorf("update_available notifications = %d, want exactly 1", got)
	}
}

func TestCheckRejectedWhileDownloading(t *testing.T) {
	strategy := &fakeStrategy{
		downloads: true,
		err:       newError(ErrCodeDownloadFailed, "interrupted", nil),
		block:     make(chan struct{}),
	}
	c := newTestCoordinator(t,
		&fakeQuery{rel: &ReleaseInfo{TagName: "v.2.5.0"}},
		strategy)

	c.CheckForUpdates(context.Background())
	waitStatus(t, c, StatusUpdateAvailable)
	if err := c.InstallUpdates(context.Background()); err != nil {
		t.Fatalf("InstallUpdates rejected: %v", err)
	}
	waitStatus(t, c, StatusDownloading)

	// A check during an active download must not disturb it.
	c.CheckForUpdates(context.Background())
	time.Sleep(50 * time.Millisecond)
	if c.Status() != StatusDownloading {
		t.Fatalf("status = %s, check clobbered the download", c.Status())
	}

	close(strategy.block)
	waitStatus(t, c, StatusDownloadFailed)
}

func TestStatusTransitionsPublished(t *testing.T) {
	bus := events.New()
	var searching, available atomic.Int32
	unsub := bus.Subscribe(func(e events.UpdateStatusEvent) {
		switch Status(e.Status) {
		case StatusSearching:
			searching.Add(1)
		case StatusUpdateAvailable:
			available.Add(1)
		}
	})
	defer unsub()

	c := NewCoordinator(Config{
		Query:          &fakeQuery{rel: &ReleaseInfo{TagName: "v.2.5.0"}},
		Strategy:       &fakeStrategy{},
		Bus:            bus,
		Logger:         discardLogger(),
		CurrentVersion: "2.4.0",
		DisabledReason: func() string { return "" },
		Exit:           func(int) { t.Error("unexpected exit") },
	})
	defer c.Close()

	c.CheckForUpdates(context.Background())
	waitStatus(t, c, StatusUpdateAvailable)

	deadline := time.Now().Add(2 * time.Second)
	for (searching.Load() == 0 || available.Load() == 0) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if searching.Load() != 1 {
		t.Errorf("searching events = %d, want 1", searching.Load())
	}
	if available.Load() != 1 {
		t.Errorf("update_available events = %d, want 1", available.Load())
	}
}
