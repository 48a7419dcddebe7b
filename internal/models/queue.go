package models

import "time"

// QueueState is the counter document stored in queue_data.json.
type QueueState struct {
	CurrentNumber int    `json:"current_number"`
	TodayCount    int    `json:"today_count"`
	TotalPrinted  int    `json:"total_printed"`
	LastUpdate    string `json:"last_update"`
}

// DefaultQueue returns the queue state used when queue_data.json is missing.
func DefaultQueue() QueueState {
	return QueueState{CurrentNumber: DefaultStartNumber}
}

// TicketDesign is a named ticket layout stored under ticket_designs/.
type TicketDesign struct {
	Name         string                   `json:"name"`
	Timestamp    string                   `json:"timestamp"`
	TicketDesign map[string]any           `json:"ticket_design"`
	Elements     map[string]DesignElement `json:"elements"`
	LastSaved    string                   `json:"last_saved,omitempty"`
}

// DesignElement is the placement of one visual element on the ticket.
type DesignElement struct {
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Visible  bool   `json:"visible"`
	Text     string `json:"text,omitempty"`
	FontSize int    `json:"font_size,omitempty"`
	Color    string `json:"color,omitempty"`
}

// AutoSaveSnapshot is the crash-recovery mirror kept in autosave.json. Its
// presence at startup means the previous session did not shut down cleanly.
type AutoSaveSnapshot struct {
	Timestamp     string      `json:"timestamp"`
	Settings      Settings    `json:"settings"`
	Queue         *QueueState `json:"queue,omitempty"`
	CurrentNumber int         `json:"current_number"`
}

// Backup is one rotated copy of the mutable state.
type Backup struct {
	Timestamp string     `json:"timestamp"`
	Settings  Settings   `json:"settings"`
	Queue     QueueState `json:"queue"`
	Version   string     `json:"version"`
}

// EmergencyRecord is the minimal state written when a full save fails.
type EmergencyRecord struct {
	Timestamp       string `json:"timestamp"`
	CurrentNumber   int    `json:"current_number"`
	SettingsVersion string `json:"settings_version"`
}

// QueueView is the read model published to the UI layer.
type QueueView struct {
	CurrentNumber int    `json:"current_number"`
	TodayCount    int    `json:"today_count"`
	TotalPrinted  int    `json:"total_printed"`
	LastUpdate    string `json:"last_update"`
	StartNumber   int    `json:"start_number"`
	ActiveDesign  string `json:"active_design"`
	SaveCount     int    `json:"save_count"`
	LastSave      string `json:"last_save"`
}

// FormatTime renders t in the layout used inside persisted documents.
func FormatTime(t time.Time) string { return t.Format(TimeLayout) }

// Event kinds published on the event bus.
const (
	EventQueue    = "queue"
	EventSettings = "settings"
	EventDesigns  = "designs"
)

// Event is one change notification for the UI layer. Queue always carries the
// view at the time of the change.
type Event struct {
	Kind   string    `json:"kind"`
	Queue  QueueView `json:"queue"`
	Design string    `json:"design,omitempty"`
}
