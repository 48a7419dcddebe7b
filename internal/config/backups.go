package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/micro-nova/queuepi/internal/models"
)

const (
	backupPrefix = "backup_"
	backupSuffix = ".json"
)

// writeBackupLocked writes backups/backup_<stamp>.json and prunes the set
// down to the newest models.BackupRetention files.
func (s *JSONStore) writeBackupLocked(settings models.Settings, queue models.QueueState) error {
	now := s.now()
	name := backupPrefix + now.Format(models.StampLayout) + backupSuffix
	path := filepath.Join(s.backupDir, name)

	b := models.Backup{
		Timestamp: models.FormatTime(now),
		Settings:  settings.Clone(),
		Queue:     queue,
		Version:   settings.String("version", "unknown"),
	}
	if err := s.writeJSON(path, b); err != nil {
		return err
	}
	settings.Set("auto_save.last_backup", b.Timestamp)
	slog.Info("config: backup created", "file", name)

	s.pruneBackupsLocked(models.BackupRetention)
	return nil
}

// pruneBackupsLocked deletes all but the newest keep backups. Names embed a
// sortable timestamp, so lexical order is age order.
func (s *JSONStore) pruneBackupsLocked(keep int) {
	names, err := s.listBackups()
	if err != nil {
		slog.Error("config: cannot list backups for pruning", "err", err)
		return
	}
	if len(names) <= keep {
		return
	}
	for _, name := range names[:len(names)-keep] {
		path := filepath.Join(s.backupDir, name)
		if err := os.Remove(path); err != nil {
			slog.Warn("config: failed to delete old backup", "file", name, "err", err)
			continue
		}
		slog.Info("config: deleted old backup", "file", name)
	}
}

// ListBackups returns the backup file names, oldest first.
func (s *JSONStore) ListBackups() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listBackups()
}

func (s *JSONStore) listBackups() ([]string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read backups: %w", err)
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
