// Package maintenance runs the kiosk's background housekeeping: the midnight
// day rollover and a daily tar.gz archive of the data directory.
package maintenance

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/natefinch/atomic"
)

// ArchivePrefix starts every archive file name.
const ArchivePrefix = "queuepi-data-"

// ArchiveHour is the local hour the daily archive runs.
const ArchiveHour = 2

// ErrArchiveDisabled is returned by RunArchiveNow when no archive directory
// is configured.
var ErrArchiveDisabled = errors.New("archiving disabled")

// Service manages background maintenance goroutines.
type Service struct {
	dataDir    string
	archiveDir string // empty disables archiving
	keep       time.Duration
	hostname   string
	onMidnight func() // called at each local midnight
	now        func() time.Time
}

// New creates a maintenance Service. keepDays bounds how long archives are
// kept; onMidnight may be nil.
func New(dataDir, archiveDir string, keepDays int, hostname string, onMidnight func()) *Service {
	return &Service{
		dataDir:    dataDir,
		archiveDir: archiveDir,
		keep:       time.Duration(keepDays) * 24 * time.Hour,
		hostname:   hostname,
		onMidnight: onMidnight,
		now:        time.Now,
	}
}

// Start launches all background maintenance goroutines.
// Blocks until ctx is cancelled; all goroutines respect the context.
func (s *Service) Start(ctx context.Context) {
	go s.runRollover(ctx)
	if s.archiveDir != "" {
		go s.runArchive(ctx)
	}

	<-ctx.Done()
}

// RunArchiveNow archives the data directory immediately and returns the
// archive path.
func (s *Service) RunArchiveNow() (string, error) {
	if s.archiveDir == "" {
		return "", ErrArchiveDisabled
	}
	path, err := writeArchive(s.dataDir, s.archiveDir, s.archiveName())
	if err != nil {
		return "", err
	}
	pruneOldArchives(s.archiveDir, s.keep, s.now())
	return path, nil
}

// Archives returns the archive file names, oldest first. It is empty when
// archiving is disabled.
func (s *Service) Archives() ([]string, error) {
	if s.archiveDir == "" {
		return []string{}, nil
	}
	paths, err := ListArchives(s.archiveDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names, nil
}

func (s *Service) archiveName() string {
	host := s.hostname
	if host == "" {
		host = "kiosk"
	}
	return fmt.Sprintf("%s%s-%s.tar.gz", ArchivePrefix, host, s.now().Format("2006-01-02"))
}

// ListArchives returns the archive files in dir sorted by name (newest last).
func ListArchives(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), ArchivePrefix) && strings.HasSuffix(e.Name(), ".tar.gz") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// nextAt returns the first time strictly after now at hour:00 local time.
func nextAt(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// runRollover calls onMidnight at every local midnight.
func (s *Service) runRollover(ctx context.Context) {
	for {
		delay := nextAt(s.now(), 0).Sub(s.now())

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			if s.onMidnight != nil {
				s.onMidnight()
			}
		}
	}
}

// runArchive performs daily archives at ArchiveHour.
func (s *Service) runArchive(ctx context.Context) {
	for {
		delay := nextAt(s.now(), ArchiveHour).Sub(s.now())

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			path, err := s.RunArchiveNow()
			if err != nil {
				slog.Error("maintenance: archive failed", "err", err)
			} else {
				slog.Info("maintenance: archive created", "file", path)
			}
		}
	}
}

// writeArchive writes a tar.gz of every regular file under src to
// archiveDir/name. Paths inside the archive are relative to src.
func writeArchive(src, archiveDir, name string) (string, error) {
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	dest := filepath.Join(archiveDir, name)
	tmp := dest + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if err := writeTarGz(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := atomic.ReplaceFile(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return dest, nil
}

func writeTarGz(w io.Writer, src string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
	if err != nil {
		return fmt.Errorf("tar: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	return nil
}

// pruneOldArchives deletes archive files older than maxAge from dir.
func pruneOldArchives(dir string, maxAge time.Duration, now time.Time) {
	if maxAge <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	cutoff := now.Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), ArchivePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				slog.Warn("maintenance: failed to prune old archive", "file", path, "err", err)
			} else {
				slog.Info("maintenance: pruned old archive", "file", path)
			}
		}
	}
}
