package config

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/micro-nova/queuepi/internal/models"
)

// MemStore is an in-memory Store for tests that never writes to disk.
type MemStore struct {
	mu        sync.Mutex
	settings  models.Settings
	queue     *models.QueueState
	snapshot  *models.AutoSaveSnapshot
	designs   map[string]models.TicketDesign
	backups   []string
	emergency *models.EmergencyRecord
	failSave  bool
	saves     int
}

// NewMemStore returns an empty in-memory store; loads return defaults.
func NewMemStore() *MemStore {
	return &MemStore{designs: make(map[string]models.TicketDesign)}
}

// SetFailSave makes SaveSettings fail, exercising the emergency path.
func (m *MemStore) SetFailSave(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSave = fail
}

// Saves returns how many times SaveSettings succeeded.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Emergency returns the last emergency record, if any.
func (m *MemStore) Emergency() *models.EmergencyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emergency == nil {
		return nil
	}
	cp := *m.emergency
	return &cp
}

// LoadSettings returns a merged copy of the stored settings.
func (m *MemStore) LoadSettings() models.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.DefaultSettings()
	if m.settings != nil {
		models.DeepMerge(s, m.settings)
	}
	return s
}

// SaveSettings stores a deep copy of settings and refreshes the snapshot.
func (m *MemStore) SaveSettings(settings models.Settings) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		m.emergency = &models.EmergencyRecord{
			Timestamp:       models.FormatTime(time.Now()),
			CurrentNumber:   settings.Int("current_number", models.DefaultStartNumber),
			SettingsVersion: settings.String("version", "unknown"),
		}
		return false
	}
	m.settings = settings.Clone()
	q := m.loadQueue()
	m.writeSnapshot(settings, q)
	if settings.Bool("business_rules.create_backups", true) {
		m.backups = append(m.backups, fmt.Sprintf("backup_%06d.json", len(m.backups)))
		if len(m.backups) > models.BackupRetention {
			m.backups = m.backups[len(m.backups)-models.BackupRetention:]
		}
	}
	m.saves++
	return true
}

// WriteSnapshot replaces the in-memory snapshot.
func (m *MemStore) WriteSnapshot(settings models.Settings, queue models.QueueState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeSnapshot(settings, queue)
	return true
}

func (m *MemStore) writeSnapshot(settings models.Settings, queue models.QueueState) {
	settings.Set("auto_save.save_count", settings.Int("auto_save.save_count", 0)+1)
	q := queue
	m.snapshot = &models.AutoSaveSnapshot{
		Timestamp:     models.FormatTime(time.Now()),
		Settings:      settings.Clone(),
		Queue:         &q,
		CurrentNumber: settings.Int("current_number", models.DefaultStartNumber),
	}
}

// LoadQueue returns the stored queue or DefaultQueue.
func (m *MemStore) LoadQueue() models.QueueState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadQueue()
}

func (m *MemStore) loadQueue() models.QueueState {
	if m.queue == nil {
		return models.DefaultQueue()
	}
	return *m.queue
}

// SaveQueue stores the queue and mirrors it into the snapshot.
func (m *MemStore) SaveQueue(queue *models.QueueState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue.LastUpdate = models.FormatTime(time.Now())
	cp := *queue
	m.queue = &cp
	if m.snapshot != nil {
		mirror := cp
		m.snapshot.Queue = &mirror
	}
	return true
}

// SaveTicketDesign stores a design by name.
func (m *MemStore) SaveTicketDesign(name string, design models.TicketDesign) error {
	if err := ValidateDesignName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if design.Name == "" {
		design.Name = name
	}
	m.designs[name] = design
	return nil
}

// LoadTicketDesigns returns a copy of the stored designs.
func (m *MemStore) LoadTicketDesigns() map[string]models.TicketDesign {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.TicketDesign, len(m.designs))
	for k, v := range m.designs {
		out[k] = v
	}
	return out
}

// DeleteTicketDesign removes a stored design.
func (m *MemStore) DeleteTicketDesign(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.designs[name]; !ok {
		return fmt.Errorf("%w: %q", ErrDesignNotFound, name)
	}
	delete(m.designs, name)
	return nil
}

// ListBackups returns the names of simulated backups.
func (m *MemStore) ListBackups() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string{}, m.backups...)
	sort.Strings(out)
	return out, nil
}

// WriteEmergency records a minimal emergency save.
func (m *MemStore) WriteEmergency(currentNumber int, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emergency = &models.EmergencyRecord{
		Timestamp:       models.FormatTime(time.Now()),
		CurrentNumber:   currentNumber,
		SettingsVersion: version,
	}
	return nil
}

// HasSnapshot reports whether a snapshot is held.
func (m *MemStore) HasSnapshot() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot != nil
}

// ReadSnapshot returns a copy of the snapshot.
func (m *MemStore) ReadSnapshot() (*models.AutoSaveSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, fmt.Errorf("config: no snapshot")
	}
	cp := *m.snapshot
	cp.Settings = m.snapshot.Settings.Clone()
	return &cp, nil
}

// RemoveSnapshot drops the snapshot.
func (m *MemStore) RemoveSnapshot() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = nil
	return nil
}

// Path returns ":memory:" to indicate this is an in-memory store.
func (m *MemStore) Path() string { return ":memory:" }

// Ensure MemStore implements config.Store
var _ Store = (*MemStore)(nil)
