package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uriiusero/chatterino7/cmd"
	"github.com/uriiusero/chatterino7/internal/api"
	"github.com/uriiusero/chatterino7/internal/config"
	"github.com/uriiusero/chatterino7/internal/events"
	"github.com/uriiusero/chatterino7/internal/logging"
	"github.com/uriiusero/chatterino7/internal/updater"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8091" toml:"server.port" env:"SERVER_PORT"`

	// Update settings
	SettingsFile  string `help:"User settings file" default:"settings.toml" toml:"updates.settings_file" env:"SETTINGS_FILE"`
	Endpoint      string `help:"Release feed endpoint" default:"https://chatterinohomies.com/api/latest-release" toml:"updates.endpoint" env:"UPDATES_ENDPOINT"`
	MiscDirectory string `help:"Directory for downloaded update artifacts (defaults to the user cache dir)" default:"" toml:"updates.misc_directory" env:"UPDATES_MISC_DIRECTORY"`
	Portable      bool   `help:"Treat this install as a portable distribution" default:"false" toml:"updates.portable" env:"UPDATES_PORTABLE"`
	CheckOnStart  bool   `help:"Check for updates at startup" default:"true" toml:"updates.check_on_start" env:"UPDATES_CHECK_ON_START"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingUpdater string `help:"Updater logging level" default:"info" toml:"logging.updater" env:"LOGGING_UPDATER"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingConfig  string `help:"Config logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			logging.GetLogger("main").Warn("Failed to load config", "error", loadErr)
		}

		// Initialize logging system
		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"updater": opts.LoggingUpdater,
				"api":     opts.LoggingAPI,
				"config":  opts.LoggingConfig,
			},
		})

		logger := logging.GetLogger("main")

		// Event bus for in-process event handling
		eventBus := events.New()

		// Bridge log entries onto the bus for the debug console stream
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// User settings with live reload for the release-track toggle
		settingsLogger := logging.GetLogger("config")
		settings, err := config.LoadSettings(opts.SettingsFile)
		if err != nil {
			settingsLogger.Warn("Failed to load settings, using defaults", "error", err, "path", opts.SettingsFile)
		}
		settingsStore := config.NewSettingsStore(settings, settingsLogger)

		settingsWatcher := config.NewWatcher(opts.SettingsFile, config.LoadSettings, settingsLogger)
		settingsWatcher.OnReload(func(fresh config.Settings) {
			settingsStore.Replace(fresh)
			eventBus.Publish(events.SettingsReloadedEvent{
				BetaUpdates: fresh.Updates.Beta,
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			})
		})

		// Update coordinator with the platform's install strategy
		updaterLogger := logging.GetLogger("updater")
		platform := updater.DetectPlatform(opts.Portable)
		miscDir := opts.MiscDirectory
		if miscDir == "" {
			if cacheDir, cacheErr := os.UserCacheDir(); cacheErr == nil {
				miscDir = filepath.Join(cacheDir, "chatterino7")
			} else {
				miscDir = "."
			}
		}

		coordinator := updater.NewCoordinator(updater.Config{
			Query:    updater.NewReleaseQuery(opts.Endpoint, platform),
			Strategy: updater.NewStrategy(platform, miscDir, updaterLogger),
			Bus:      eventBus,
			Logger:   updaterLogger,
			Channel:  settingsStore.Channel,
		})
		if reason := coordinator.DisabledReason(); reason != "" {
			logger.Info("Update checking disabled", "reason", reason)
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Coordinator:       coordinator,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
		})

		hooks.OnStart(func() {
			if startErr := settingsWatcher.Start(); startErr != nil {
				logger.Warn("Failed to watch settings file", "error", startErr)
			}

			if opts.CheckOnStart {
				coordinator.CheckForUpdates(context.Background())
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if stopErr := settingsWatcher.Stop(); stopErr != nil {
				logger.Error("Error stopping settings watcher", "error", stopErr)
			}
			coordinator.Close()
		})
	})

	// Add one-shot check command
	cli.Root().AddCommand(cmd.CreateCheckCmd())

	// Run the CLI
	cli.Run()
}
