package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tidwall/jsonc"

	"github.com/micro-nova/queuepi/internal/models"
)

const filePerm = 0644

// JSONStore is the on-disk Store. All writes go through one mutex and replace
// whole files atomically.
type JSONStore struct {
	mu        sync.Mutex
	dir       string
	backupDir string
	designDir string
	now       func() time.Time
}

// Option configures a JSONStore.
type Option func(*JSONStore)

// WithClock overrides the time source used for stamps and backup names.
func WithClock(now func() time.Time) Option {
	return func(s *JSONStore) { s.now = now }
}

// NewJSONStore creates a new JSON store rooted at dataDir and creates its
// directories.
func NewJSONStore(dataDir string, opts ...Option) (*JSONStore, error) {
	s := &JSONStore{
		dir:       dataDir,
		backupDir: filepath.Join(dataDir, BackupDirName),
		designDir: filepath.Join(dataDir, DesignDirName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, d := range []string{s.dir, s.backupDir, s.designDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", d, err)
		}
	}
	return s, nil
}

// Path returns the data directory.
func (s *JSONStore) Path() string { return s.dir }

// DesignDir returns the ticket design directory.
func (s *JSONStore) DesignDir() string { return s.designDir }

func (s *JSONStore) settingsPath() string  { return filepath.Join(s.dir, SettingsFileName) }
func (s *JSONStore) queuePath() string     { return filepath.Join(s.dir, QueueFileName) }
func (s *JSONStore) snapshotPath() string  { return filepath.Join(s.dir, AutoSaveFileName) }
func (s *JSONStore) emergencyPath() string { return filepath.Join(s.dir, EmergencyFileName) }

// LoadSettings reads settings.json and merges it onto the default schema.
// Missing or corrupt files yield the defaults.
func (s *JSONStore) LoadSettings() models.Settings {
	settings := models.DefaultSettings()
	data, err := os.ReadFile(s.settingsPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("config: cannot read settings, using defaults", "path", s.settingsPath(), "err", err)
		}
		return settings
	}
	var user map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &user); err != nil {
		slog.Warn("config: corrupt settings, using defaults", "path", s.settingsPath(), "err", err)
		return settings
	}
	if skipped := models.DeepMerge(settings, user); len(skipped) > 0 {
		slog.Warn("config: ignoring settings with the wrong type, keeping defaults", "path", s.settingsPath(), "keys", skipped)
	}
	migrateSettings(settings)
	return settings
}

// SaveSettings writes the canonical file, then the snapshot, then a backup.
func (s *JSONStore) SaveSettings(settings models.Settings) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeJSON(s.settingsPath(), settings); err != nil {
		slog.Error("config: failed to save settings", "path", s.settingsPath(), "err", err)
		s.emergencyLocked(settings.Int("current_number", models.DefaultStartNumber), settings.String("version", "unknown"))
		return false
	}

	queue := s.loadQueue()
	if err := s.writeSnapshotLocked(settings, &queue); err != nil {
		slog.Error("config: failed to write auto-save snapshot", "err", err)
	}

	if settings.Bool("business_rules.create_backups", true) {
		if err := s.writeBackupLocked(settings, queue); err != nil {
			slog.Error("config: failed to write backup", "err", err)
		}
	}

	slog.Debug("config: settings saved", "path", s.settingsPath())
	return true
}

// WriteSettings replaces the canonical settings file without touching the
// snapshot or backups.
func (s *JSONStore) WriteSettings(settings models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(s.settingsPath(), settings)
}

// WriteSnapshot writes autosave.json from the given state.
func (s *JSONStore) WriteSnapshot(settings models.Settings, queue models.QueueState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeSnapshotLocked(settings, &queue); err != nil {
		slog.Error("config: failed to write auto-save snapshot", "err", err)
		return false
	}
	return true
}

// WriteMinimalSnapshot writes a snapshot carrying only the counter and the
// settings version. Used when the full state cannot be captured.
func (s *JSONStore) WriteMinimalSnapshot(currentNumber int, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := models.AutoSaveSnapshot{
		Timestamp:     models.FormatTime(s.now()),
		Settings:      models.Settings{"version": version, "current_number": currentNumber},
		CurrentNumber: currentNumber,
	}
	return s.writeJSON(s.snapshotPath(), snap)
}

func (s *JSONStore) writeSnapshotLocked(settings models.Settings, queue *models.QueueState) error {
	ts := models.FormatTime(s.now())
	settings.Set("auto_save.last_save", ts)
	settings.Set("auto_save.save_count", settings.Int("auto_save.save_count", 0)+1)

	snap := models.AutoSaveSnapshot{
		Timestamp:     ts,
		Settings:      settings.Clone(),
		Queue:         queue,
		CurrentNumber: settings.Int("current_number", models.DefaultStartNumber),
	}
	if err := s.writeJSON(s.snapshotPath(), snap); err != nil {
		return err
	}
	slog.Debug("config: auto-save written", "timestamp", ts)
	return nil
}

// HasSnapshot reports whether autosave.json exists.
func (s *JSONStore) HasSnapshot() bool {
	_, err := os.Stat(s.snapshotPath())
	return err == nil
}

// ReadSnapshot parses autosave.json.
func (s *JSONStore) ReadSnapshot() (*models.AutoSaveSnapshot, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		return nil, err
	}
	var snap models.AutoSaveSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("config: parse snapshot: %w", err)
	}
	return &snap, nil
}

// RemoveSnapshot deletes autosave.json.
func (s *JSONStore) RemoveSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.snapshotPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SettingsInfo stats the canonical settings file.
func (s *JSONStore) SettingsInfo() (os.FileInfo, error) { return os.Stat(s.settingsPath()) }

// SnapshotInfo stats the auto-save snapshot.
func (s *JSONStore) SnapshotInfo() (os.FileInfo, error) { return os.Stat(s.snapshotPath()) }

// LoadQueue reads queue_data.json, falling back to DefaultQueue.
func (s *JSONStore) LoadQueue() models.QueueState {
	return s.loadQueue()
}

func (s *JSONStore) loadQueue() models.QueueState {
	data, err := os.ReadFile(s.queuePath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config: cannot read queue, using defaults", "path", s.queuePath(), "err", err)
		}
		return models.DefaultQueue()
	}
	q := models.DefaultQueue()
	if err := json.Unmarshal(data, &q); err != nil {
		slog.Warn("config: corrupt queue file, using defaults", "path", s.queuePath(), "err", err)
		return models.DefaultQueue()
	}
	migrateQueue(&q)
	return q
}

// SaveQueue writes queue_data.json and mirrors it into an existing snapshot.
func (s *JSONStore) SaveQueue(queue *models.QueueState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue.LastUpdate = models.FormatTime(s.now())
	if err := s.writeJSON(s.queuePath(), queue); err != nil {
		slog.Error("config: failed to save queue", "path", s.queuePath(), "err", err)
		return false
	}
	s.mirrorQueueLocked(*queue)
	return true
}

// WriteQueue replaces queue_data.json verbatim.
func (s *JSONStore) WriteQueue(queue models.QueueState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(s.queuePath(), queue)
}

func (s *JSONStore) mirrorQueueLocked(queue models.QueueState) {
	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		// No snapshot yet; the next cycle writes a full one.
		return
	}
	var snap models.AutoSaveSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("config: snapshot unreadable, queue not mirrored", "err", err)
		return
	}
	snap.Queue = &queue
	snap.Timestamp = queue.LastUpdate
	if err := s.writeJSON(s.snapshotPath(), snap); err != nil {
		slog.Warn("config: failed to mirror queue into snapshot", "err", err)
	}
}

// WriteEmergency writes emergency_save.json.
func (s *JSONStore) WriteEmergency(currentNumber int, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergencyLocked(currentNumber, version)
}

func (s *JSONStore) emergencyLocked(currentNumber int, version string) error {
	rec := models.EmergencyRecord{
		Timestamp:       models.FormatTime(s.now()),
		CurrentNumber:   currentNumber,
		SettingsVersion: version,
	}
	if err := s.writeJSON(s.emergencyPath(), rec); err != nil {
		slog.Error("config: emergency save failed", "path", s.emergencyPath(), "err", err)
		return err
	}
	slog.Info("config: emergency save created", "path", s.emergencyPath(), "current_number", currentNumber)
	return nil
}

// writeJSON encodes v with four-space indentation and atomically replaces path.
func (s *JSONStore) writeJSON(path string, v any) error {
	data, err := encodeJSON(v)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// writeFile replaces path atomically.
func writeFile(path string, data []byte) error {
	_, statErr := os.Stat(path)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if errors.Is(statErr, os.ErrNotExist) {
		// New files come out of a temp file with 0600.
		if err := os.Chmod(path, filePerm); err != nil {
			slog.Debug("config: chmod failed", "path", path, "err", err)
		}
	}
	return nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ Store = (*JSONStore)(nil)
