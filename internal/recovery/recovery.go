// Package recovery reconciles the canonical settings file with a newer
// auto-save snapshot left behind by an interrupted session.
package recovery

import (
	"errors"
	"log/slog"
	"os"

	"github.com/micro-nova/queuepi/internal/models"
)

// Store is the subset of config.JSONStore the resolver needs.
type Store interface {
	SnapshotInfo() (os.FileInfo, error)
	SettingsInfo() (os.FileInfo, error)
	ReadSnapshot() (*models.AutoSaveSnapshot, error)
	LoadSettings() models.Settings
	WriteSettings(models.Settings) error
	WriteQueue(models.QueueState) error
}

// Reasons reported in Result.
const (
	ReasonNoSnapshot  = "no snapshot"
	ReasonStale       = "snapshot not newer than settings"
	ReasonUnreadable  = "snapshot unreadable"
	ReasonRecovered   = "snapshot newer than settings"
	ReasonNoSettings  = "settings file missing"
	ReasonWriteFailed = "canonical write failed"
)

// Result describes what Resolve decided.
type Result struct {
	Recovered bool
	Reason    string
}

// Resolve runs once before the controller is built. A snapshot strictly newer
// than settings.json (or one with no settings.json beside it) is merged onto
// the canonical settings and its queue replaces the queue file. Stale or
// unreadable snapshots are left in place and ignored.
func Resolve(store Store) Result {
	snapInfo, err := store.SnapshotInfo()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("recovery: cannot stat snapshot", "err", err)
		}
		return Result{Reason: ReasonNoSnapshot}
	}

	reason := ReasonRecovered
	settingsInfo, err := store.SettingsInfo()
	switch {
	case errors.Is(err, os.ErrNotExist):
		reason = ReasonNoSettings
	case err != nil:
		slog.Warn("recovery: cannot stat settings", "err", err)
		return Result{Reason: ReasonUnreadable}
	case !snapInfo.ModTime().After(settingsInfo.ModTime()):
		slog.Info("recovery: ignoring stale snapshot",
			"snapshot", snapInfo.ModTime(), "settings", settingsInfo.ModTime())
		return Result{Reason: ReasonStale}
	}

	snap, err := store.ReadSnapshot()
	if err != nil {
		slog.Warn("recovery: snapshot unreadable, keeping canonical settings", "err", err)
		return Result{Reason: ReasonUnreadable}
	}

	slog.Info("recovery: recovering from auto-save", "timestamp", snap.Timestamp, "current_number", snap.CurrentNumber)
	settings := store.LoadSettings()
	if snap.Settings != nil {
		if skipped := models.DeepMerge(settings, snap.Settings); len(skipped) > 0 {
			slog.Warn("recovery: snapshot settings with the wrong type ignored", "keys", skipped)
		}
	}
	if err := store.WriteSettings(settings); err != nil {
		slog.Error("recovery: failed to write recovered settings", "err", err)
		return Result{Reason: ReasonWriteFailed}
	}
	if snap.Queue != nil {
		if err := store.WriteQueue(*snap.Queue); err != nil {
			slog.Error("recovery: failed to write recovered queue", "err", err)
		}
	}
	return Result{Recovered: true, Reason: reason}
}
