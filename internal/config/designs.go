package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/micro-nova/queuepi/internal/models"
)

const designBackupInfix = "_backup_"

var (
	designNameRe   = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ._-]*$`)
	designBackupRe = regexp.MustCompile(`_backup_\d{8}_\d{6}(_\d+)?\.json$`)
)

// ValidateDesignName rejects names that would escape the design directory or
// collide with backup copies.
func ValidateDesignName(name string) error {
	if name == "" || len(name) > 128 {
		return fmt.Errorf("%w: %q", ErrInvalidDesignName, name)
	}
	if !designNameRe.MatchString(name) || strings.Contains(name, designBackupInfix) {
		return fmt.Errorf("%w: %q", ErrInvalidDesignName, name)
	}
	return nil
}

func (s *JSONStore) designPath(name string) string {
	return filepath.Join(s.designDir, name+".json")
}

// backupPath returns a free <name>_backup_<stamp>.json path, adding _1, _2
// and so on when saves land in the same second.
func (s *JSONStore) backupPath(name, stamp string) string {
	base := filepath.Join(s.designDir, name+designBackupInfix+stamp)
	path := base + ".json"
	for i := 1; ; i++ {
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		path = fmt.Sprintf("%s_%d.json", base, i)
	}
}

// SaveTicketDesign writes ticket_designs/<name>.json. An existing file is
// first copied byte-for-byte to a new <name>_backup_<stamp>.json.
func (s *JSONStore) SaveTicketDesign(name string, design models.TicketDesign) error {
	if err := ValidateDesignName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.designPath(name)
	now := s.now()
	if prev, err := os.ReadFile(path); err == nil {
		backup := s.backupPath(name, now.Format(models.StampLayout))
		if err := writeFile(backup, prev); err != nil {
			return fmt.Errorf("config: back up design %q: %w", name, err)
		}
		slog.Info("config: design backup created", "design", name, "file", filepath.Base(backup))
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: read design %q: %w", name, err)
	}

	if design.Name == "" {
		design.Name = name
	}
	if design.Timestamp == "" {
		design.Timestamp = models.FormatTime(now)
	}
	if design.Elements == nil {
		design.Elements = map[string]models.DesignElement{}
	}
	design.LastSaved = models.FormatTime(now)

	if err := s.writeJSON(path, design); err != nil {
		return fmt.Errorf("config: save design %q: %w", name, err)
	}
	slog.Info("config: ticket design saved", "design", name)
	return nil
}

// LoadTicketDesigns reads every design in the directory. Backup copies and
// unparseable files are skipped.
func (s *JSONStore) LoadTicketDesigns() map[string]models.TicketDesign {
	designs := make(map[string]models.TicketDesign)
	entries, err := os.ReadDir(s.designDir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("config: cannot list designs", "dir", s.designDir, "err", err)
		}
		return designs
	}
	for _, e := range entries {
		fname := e.Name()
		if e.IsDir() || !strings.HasSuffix(fname, ".json") || IsDesignBackup(fname) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.designDir, fname))
		if err != nil {
			slog.Warn("config: cannot read design", "file", fname, "err", err)
			continue
		}
		var d models.TicketDesign
		if err := json.Unmarshal(jsonc.ToJSON(data), &d); err != nil {
			slog.Warn("config: skipping corrupt design", "file", fname, "err", err)
			continue
		}
		designs[strings.TrimSuffix(fname, ".json")] = d
	}
	return designs
}

// DeleteTicketDesign removes ticket_designs/<name>.json. Backup copies stay.
func (s *JSONStore) DeleteTicketDesign(name string) error {
	if err := ValidateDesignName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.designPath(name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %q", ErrDesignNotFound, name)
		}
		return fmt.Errorf("config: delete design %q: %w", name, err)
	}
	slog.Info("config: ticket design deleted", "design", name)
	return nil
}

// IsDesignBackup reports whether a file name is a timestamped design backup.
func IsDesignBackup(fileName string) bool {
	return designBackupRe.MatchString(fileName)
}
