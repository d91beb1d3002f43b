package events

// Event type constants for kelindar/event.
const (
	TypeUpdateStatus uint32 = iota + 1
	TypeLogEntry
	TypeSettingsReloaded
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// UpdateStatusEvent is published whenever the update coordinator's status
// changes. Observers (dialogs, the update button, SSE clients) key off this
// rather than polling.
type UpdateStatusEvent struct {
	Status        string `json:"status" example:"update_available" doc:"New update status"`
	OnlineVersion string `json:"online_version,omitempty" example:"v.2.5.0" doc:"Latest tag reported by the release feed"`
	IsDowngrade   bool   `json:"is_downgrade" example:"false" doc:"Whether the online release is older than the running build"`
	Timestamp     string `json:"timestamp" example:"2026-08-29T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for UpdateStatusEvent.
func (e UpdateStatusEvent) Type() uint32 { return TypeUpdateStatus }

// LogEntryEvent carries a log line to the debug console stream.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2026-08-29T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"updater" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// SettingsReloadedEvent is published after the settings file changes on
// disk and has been reloaded.
type SettingsReloadedEvent struct {
	BetaUpdates bool   `json:"beta_updates" example:"false" doc:"Whether the beta release track is selected"`
	Timestamp   string `json:"timestamp" example:"2026-08-29T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for SettingsReloadedEvent.
func (e SettingsReloadedEvent) Type() uint32 { return TypeSettingsReloaded }
