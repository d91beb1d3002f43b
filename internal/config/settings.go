package config

import (
	"log/slog"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Settings is the persisted user settings file. Only the update-related
// knobs live here; option-style configuration goes through LoadConfig.
type Settings struct {
	Updates UpdateSettings `toml:"updates"`
}

// UpdateSettings selects the release track the update check follows.
type UpdateSettings struct {
	// Beta selects the beta release track instead of stable.
	Beta bool `toml:"beta"`
}

// LoadSettings reads the settings file. A missing file yields defaults.
func LoadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, err
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, err
	}
	return s, nil
}

// SettingsStore holds the current settings snapshot and swaps it atomically
// when the file is reloaded. Readers never see a half-applied reload.
type SettingsStore struct {
	mu       sync.RWMutex
	settings Settings
	logger   *slog.Logger
}

// NewSettingsStore creates a store seeded with the given settings.
func NewSettingsStore(settings Settings, logger *slog.Logger) *SettingsStore {
	return &SettingsStore{settings: settings, logger: logger}
}

// Replace swaps in a fresh settings snapshot.
func (s *SettingsStore) Replace(settings Settings) {
	s.mu.Lock()
	changed := s.settings != settings
	s.settings = settings
	s.mu.Unlock()
	if changed {
		s.logger.Info("Settings reloaded", "beta_updates", settings.Updates.Beta)
	}
}

// BetaUpdates reports whether the beta release track is selected.
func (s *SettingsStore) BetaUpdates() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Updates.Beta
}

// Channel returns the release-feed channel for the selected track.
func (s *SettingsStore) Channel() string {
	if s.BetaUpdates() {
		return "beta"
	}
	return "stable"
}
