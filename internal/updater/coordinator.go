package updater

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/uriiusero/chatterino7/internal/events"
	"github.com/uriiusero/chatterino7/internal/version"
)

// Config carries the coordinator's dependencies. Query, Strategy and Bus
// are required; the rest default to the running build's values.
type Config struct {
	Query    Query
	Strategy Strategy
	Bus      *events.Bus
	Logger   *slog.Logger

	// CurrentVersion is the version the running build reports. Defaults
	// to the compiled-in version.
	CurrentVersion string

	// Channel selects the release track for each check. Defaults to the
	// stable track.
	Channel func() string

	// DisabledReason gates update checking. A non-empty return disables
	// checks entirely. Defaults to the build/environment gate.
	DisabledReason func() string

	// Exit terminates the process after a successful handoff to an
	// external installer. Defaults to os.Exit.
	Exit func(int)
}

// Coordinator owns the update lifecycle: checking the release feed,
// comparing versions and driving the platform install strategy. All state
// mutation happens on a single run-loop goroutine; concurrent calls are
// marshalled through it, so transitions never interleave.
type Coordinator struct {
	query    Query
	strategy Strategy
	bus      *events.Bus
	logger   *slog.Logger

	currentVersion string
	channel        func() string
	disabledReason string
	exit           func(int)

	// apply feeds state mutations to the run loop.
	apply chan func()
	quit  chan struct{}
	done  chan struct{}

	// mu guards the snapshot below for readers; writes only happen on
	// the run loop.
	mu            sync.RWMutex
	status        Status
	onlineVersion string
	isDowngrade   bool
	release       *ReleaseInfo
}

// NewCoordinator creates and starts a coordinator. Call Close to stop its
// run loop.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.CurrentVersion == "" {
		cfg.CurrentVersion = version.String()
	}
	if cfg.Channel == nil {
		cfg.Channel = func() string { return "stable" }
	}
	if cfg.DisabledReason == nil {
		cfg.DisabledReason = version.UpdateCheckDisabledReason
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Coordinator{
		query:          cfg.Query,
		strategy:       cfg.Strategy,
		bus:            cfg.Bus,
		logger:         cfg.Logger,
		currentVersion: cfg.CurrentVersion,
		channel:        cfg.Channel,
		disabledReason: cfg.DisabledReason(),
		exit:           cfg.Exit,
		apply:          make(chan func(), 16),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
		status:         StatusIdle,
	}
	recordStatus(StatusIdle)

	go c.run()
	return c
}

// run is the single goroutine allowed to mutate coordinator state.
func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.apply:
			fn()
		case <-c.quit:
			return
		}
	}
}

// submit marshals a mutation onto the run loop. Mutations submitted after
// Close are dropped.
func (c *Coordinator) submit(fn func()) {
	select {
	case c.apply <- fn:
	case <-c.quit:
	}
}

// Close stops the run loop. In-flight checks and installs finish their
// network work but their results are discarded.
func (c *Coordinator) Close() {
	close(c.quit)
	<-c.done
}

// Status returns the current update status.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// OnlineVersion returns the tag of the latest release seen by the last
// successful check, or "" before one completes.
func (c *Coordinator) OnlineVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onlineVersion
}

// IsDowngrade reports whether the available release is older than the
// running build.
func (c *Coordinator) IsDowngrade() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isDowngrade
}

// CurrentVersion returns the version the running build reports.
func (c *Coordinator) CurrentVersion() string {
	return c.currentVersion
}

// ShouldShowUpdateButton reports whether the UI should render the update
// button right now.
func (c *Coordinator) ShouldShowUpdateButton() bool {
	return c.Status().ShouldShowUpdateButton()
}

// IsError reports whether the current status is a failure outcome.
func (c *Coordinator) IsError() bool {
	return c.Status().IsError()
}

// DisabledReason returns why update checking is disabled, or "" when it
// is allowed. The gate is evaluated once at construction.
func (c *Coordinator) DisabledReason() string {
	return c.disabledReason
}

// CheckForUpdates queries the release feed and settles into exactly one
// of NoUpdateAvailable, UpdateAvailable or SearchFailed. Checks are
// silently skipped when updates are disabled for this build, and rejected
// while a download is in flight so a stale result cannot clobber it.
func (c *Coordinator) CheckForUpdates(ctx context.Context) {
	if c.disabledReason != "" {
		c.logger.Debug("Update check skipped", "reason", c.disabledReason)
		return
	}

	c.submit(func() {
		if c.status == StatusDownloading {
			c.logger.Warn("Update check rejected, download in progress")
			return
		}
		if c.status == StatusSearching {
			c.logger.Debug("Update check already running")
			return
		}
		c.setStatus(StatusSearching)

		channel := c.channel()
		c.logger.Info("Checking for updates", "channel", channel, "current", c.currentVersion)

		go func() {
			rel, err := c.query.Check(ctx, channel)
			c.submit(func() { c.finishCheck(rel, err) })
		}()
	})
}

// finishCheck interprets one check result. Runs on the run loop.
func (c *Coordinator) finishCheck(rel *ReleaseInfo, err error) {
	if c.status != StatusSearching {
		// A competing transition won; this result is stale.
		return
	}

	if err != nil {
		c.logger.Warn("Update check failed", "error", err)
		updateChecks.WithLabelValues(string(StatusSearchFailed)).Inc()
		c.setStatus(StatusSearchFailed)
		return
	}

	online := version.NormalizeTag(rel.TagName)
	switch version.Compare(online, c.currentVersion) {
	case version.OrderEqual:
		c.logger.Info("Already up to date", "version", c.currentVersion)
		updateChecks.WithLabelValues(string(StatusNoUpdateAvailable)).Inc()
		c.setStatus(StatusNoUpdateAvailable)
	case version.OrderIncomparable:
		c.logger.Warn("Online version tag is not comparable", "tag", rel.TagName)
		updateChecks.WithLabelValues(string(StatusSearchFailed)).Inc()
		c.setStatus(StatusSearchFailed)
	default:
		downgrade := version.IsDowngradeOf(online, c.currentVersion, c.logger)
		c.logger.Info("Update available",
			"online", rel.TagName, "current", c.currentVersion, "downgrade", downgrade)
		c.mu.Lock()
		c.release = rel
		c.onlineVersion = rel.TagName
		c.isDowngrade = downgrade
		c.mu.Unlock()
		updateChecks.WithLabelValues(string(StatusUpdateAvailable)).Inc()
		c.setStatus(StatusUpdateAvailable)
	}
}

// InstallUpdates starts installing the release found by the last check.
// It must be called while an update is available; anything else is a
// caller bug and returns an INVALID_STATE error without touching the
// status.
func (c *Coordinator) InstallUpdates(ctx context.Context) error {
	if c.disabledReason != "" {
		return newError(ErrCodeDisabled, c.disabledReason, nil)
	}

	errc := make(chan error, 1)
	c.submit(func() {
		if c.status != StatusUpdateAvailable {
			errc <- newError(ErrCodeInvalidState,
				"install requested but no update is available (status "+string(c.status)+")", nil)
			return
		}
		rel := c.release

		if c.strategy.Downloads() {
			c.setStatus(StatusDownloading)
		}
		errc <- nil

		go func() {
			outcome, err := c.strategy.Install(ctx, rel)
			c.submit(func() { c.finishInstall(outcome, err) })
		}()
	})

	select {
	case err := <-errc:
		return err
	case <-c.quit:
		return newError(ErrCodeInvalidState, "coordinator is closed", nil)
	}
}

// finishInstall lands the install attempt in its terminal state. Runs on
// the run loop.
func (c *Coordinator) finishInstall(outcome InstallOutcome, err error) {
	if err != nil {
		c.logger.Error("Update install failed", "error", err)
		status := StatusDownloadFailed
		switch errorCode(err) {
		case ErrCodeWriteFailed:
			status = StatusWriteFileFailed
		case ErrCodeLaunchFailed:
			status = StatusLaunchFailed
		}
		updateInstalls.WithLabelValues(string(status)).Inc()
		c.setStatus(status)
		return
	}

	updateInstalls.WithLabelValues("success").Inc()
	switch outcome {
	case OutcomeHandoff:
		c.logger.Info("External updater launched, exiting for replacement")
		c.exit(0)
	case OutcomeManual:
		c.logger.Info("Manual update started in browser")
		// The user finishes by hand; the update stays available.
		c.setStatus(StatusUpdateAvailable)
	}
}

// setStatus transitions to the new status and notifies observers. Calls
// with the current status are no-ops so observers never see duplicate
// transitions. Runs on the run loop.
func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	online := c.onlineVersion
	downgrade := c.isDowngrade
	c.mu.Unlock()

	recordStatus(s)
	c.logger.Debug("Update status changed", "status", string(s))

	if c.bus != nil {
		c.bus.Publish(events.UpdateStatusEvent{
			Status:        string(s),
			OnlineVersion: online,
			IsDowngrade:   downgrade,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
		})
	}
}
