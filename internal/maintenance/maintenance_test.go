package maintenance

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	defer gz.Close()

	out := map[string]string{}
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar: %v", err)
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read %s: %v", hdr.Name, err)
		}
		out[hdr.Name] = string(data)
	}
	return out
}

func TestNextAt(t *testing.T) {
	loc := time.Local
	tests := []struct {
		name string
		now  time.Time
		hour int
		want time.Time
	}{
		{"before hour", time.Date(2024, 3, 1, 1, 30, 0, 0, loc), 2, time.Date(2024, 3, 1, 2, 0, 0, 0, loc)},
		{"exactly on hour", time.Date(2024, 3, 1, 2, 0, 0, 0, loc), 2, time.Date(2024, 3, 2, 2, 0, 0, 0, loc)},
		{"after hour", time.Date(2024, 3, 1, 14, 0, 0, 0, loc), 2, time.Date(2024, 3, 2, 2, 0, 0, 0, loc)},
		{"midnight", time.Date(2024, 3, 1, 23, 59, 59, 0, loc), 0, time.Date(2024, 3, 2, 0, 0, 0, 0, loc)},
		{"month end", time.Date(2024, 2, 29, 12, 0, 0, 0, loc), 0, time.Date(2024, 3, 1, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextAt(tt.now, tt.hour); !got.Equal(tt.want) {
				t.Errorf("nextAt(%v, %d) = %v; want %v", tt.now, tt.hour, got, tt.want)
			}
		})
	}
}

func TestArchive_ContainsDataFiles(t *testing.T) {
	dataDir := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archives")

	files := map[string]string{
		"settings.json":                  `{"current_number": 7}`,
		"queue_data.json":                `{"current_number": 7}`,
		"ticket_designs/morning.json":    `{"name": "morning"}`,
		"backups/settings_backup_x.json": `{}`,
	}
	for name, content := range files {
		p := filepath.Join(dataDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	svc := New(dataDir, archiveDir, 14, "kiosk1", nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 2, 0, 0, 0, time.Local) }

	path, err := svc.RunArchiveNow()
	if err != nil {
		t.Fatalf("RunArchiveNow: %v", err)
	}
	if filepath.Base(path) != "queuepi-data-kiosk1-2024-03-01.tar.gz" {
		t.Errorf("archive name = %q", filepath.Base(path))
	}

	got := readArchive(t, path)
	if len(got) != len(files) {
		t.Errorf("archive has %d entries; want %d: %v", len(got), len(files), got)
	}
	for name, want := range files {
		if got[name] != want {
			t.Errorf("%s = %q; want %q", name, got[name], want)
		}
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}

func TestArchive_Disabled(t *testing.T) {
	svc := New(t.TempDir(), "", 14, "kiosk1", nil)
	if _, err := svc.RunArchiveNow(); !errors.Is(err, ErrArchiveDisabled) {
		t.Errorf("RunArchiveNow = %v, want ErrArchiveDisabled", err)
	}
	if names, err := svc.Archives(); err != nil || len(names) != 0 {
		t.Errorf("Archives() = %v, %v; want empty, nil", names, err)
	}
}

func TestArchive_ReplacesSameDay(t *testing.T) {
	dataDir := t.TempDir()
	archiveDir := t.TempDir()
	data := filepath.Join(dataDir, "queue.json")
	if err := os.WriteFile(data, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}
	svc := New(dataDir, archiveDir, 14, "kiosk1", nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 2, 0, 0, 0, time.Local) }

	if _, err := svc.RunArchiveNow(); err != nil {
		t.Fatalf("first RunArchiveNow: %v", err)
	}
	if err := os.WriteFile(data, []byte("second"), 0644); err != nil {
		t.Fatal(err)
	}
	path, err := svc.RunArchiveNow()
	if err != nil {
		t.Fatalf("second RunArchiveNow: %v", err)
	}

	if got := readArchive(t, path)["queue.json"]; got != "second" {
		t.Errorf("queue.json = %q; want second", got)
	}
	names, err := svc.Archives()
	if err != nil {
		t.Fatalf("Archives: %v", err)
	}
	if len(names) != 1 || names[0] != "queuepi-data-kiosk1-2024-03-01.tar.gz" {
		t.Errorf("Archives() = %v", names)
	}
}

func TestArchive_PrunesOld(t *testing.T) {
	dir := t.TempDir()

	newFile := filepath.Join(dir, "queuepi-data-kiosk1-2099-01-01.tar.gz")
	if err := os.WriteFile(newFile, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}
	oldFile := filepath.Join(dir, "queuepi-data-kiosk1-2000-01-01.tar.gz")
	if err := os.WriteFile(oldFile, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-30 * 24 * time.Hour)
	for _, p := range []string{oldFile, other} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	pruneOldArchives(dir, 14*24*time.Hour, time.Now())

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Errorf("old archive %q still exists after pruning", oldFile)
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Errorf("new archive %q was incorrectly pruned: %v", newFile, err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Errorf("unrelated file %q was pruned: %v", other, err)
	}
}

func TestListArchives(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"queuepi-data-kiosk1-2024-06-15.tar.gz",
		"queuepi-data-kiosk1-2024-01-01.tar.gz",
		"queuepi-data-kiosk1-2024-01-02.tar.gz.tmp",
		"other-file.txt",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte{}, 0644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := ListArchives(dir)
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListArchives returned %d files; want 2: %v", len(files), files)
	}
	if !sort.StringsAreSorted(files) || !strings.HasSuffix(files[1], "2024-06-15.tar.gz") {
		t.Errorf("ListArchives not sorted: %v", files)
	}

	missing, err := ListArchives(filepath.Join(dir, "nope"))
	if err != nil || len(missing) != 0 {
		t.Errorf("ListArchives(missing) = %v, %v; want empty, nil", missing, err)
	}
}

func TestStart_ReturnsOnCancel(t *testing.T) {
	svc := New(t.TempDir(), t.TempDir(), 14, "kiosk1", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
