// Package config persists kiosk state: settings, queue counters, the
// auto-save snapshot, rotated backups, and named ticket designs.
package config

import (
	"errors"

	"github.com/micro-nova/queuepi/internal/models"
)

// File and directory names inside the data directory.
const (
	SettingsFileName  = "settings.json"
	QueueFileName     = "queue_data.json"
	AutoSaveFileName  = "autosave.json"
	EmergencyFileName = "emergency_save.json"
	BackupDirName     = "backups"
	DesignDirName     = "ticket_designs"
)

var (
	// ErrInvalidDesignName is returned for names that cannot be used as a file name.
	ErrInvalidDesignName = errors.New("invalid design name")
	// ErrDesignNotFound is returned when deleting a design that does not exist.
	ErrDesignNotFound = errors.New("design not found")
)

// Store is the interface for persisting kiosk state. Load paths never fail:
// unreadable files fall back to defaults. Save paths report success as a bool
// and absorb I/O errors after logging them.
type Store interface {
	// LoadSettings returns the on-disk settings merged onto DefaultSettings.
	LoadSettings() models.Settings

	// SaveSettings writes the canonical settings, mirrors them into the
	// auto-save snapshot, and writes a rotated backup when enabled. It stamps
	// the auto_save metadata of the given document. On failure it writes an
	// emergency record and returns false.
	SaveSettings(settings models.Settings) bool

	// WriteSnapshot writes the auto-save snapshot and bumps auto_save.save_count.
	WriteSnapshot(settings models.Settings, queue models.QueueState) bool

	// LoadQueue returns the queue counters, or DefaultQueue.
	LoadQueue() models.QueueState

	// SaveQueue stamps queue.LastUpdate, writes the queue file, and mirrors it
	// into an existing snapshot.
	SaveQueue(queue *models.QueueState) bool

	// SaveTicketDesign writes a named design, keeping a timestamped copy of
	// any previous version.
	SaveTicketDesign(name string, design models.TicketDesign) error

	// LoadTicketDesigns returns every parseable design keyed by name.
	LoadTicketDesigns() map[string]models.TicketDesign

	// DeleteTicketDesign removes the current version of a design.
	DeleteTicketDesign(name string) error

	// ListBackups returns backup file names, oldest first.
	ListBackups() ([]string, error)

	// WriteEmergency writes the minimal record used when a full save fails.
	WriteEmergency(currentNumber int, version string) error

	// HasSnapshot reports whether an auto-save snapshot exists.
	HasSnapshot() bool

	// ReadSnapshot reads the auto-save snapshot.
	ReadSnapshot() (*models.AutoSaveSnapshot, error)

	// RemoveSnapshot deletes the auto-save snapshot. Missing is not an error.
	RemoveSnapshot() error

	// Path returns the data directory used by this store.
	Path() string
}
