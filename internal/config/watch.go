package config

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// DesignWatcher reports changes to the ticket design directory so the UI can
// refresh its design list when files are added or removed outside the kiosk.
type DesignWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	onChange func(name string)
	done     chan struct{}
}

// WatchDesigns starts watching dir. onChange receives the design name of any
// current-version file that is created, written, removed or renamed.
func WatchDesigns(dir string, onChange func(name string)) (*DesignWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	dw := &DesignWatcher{
		watcher:  w,
		dir:      dir,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go dw.loop()
	return dw, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (dw *DesignWatcher) Close() {
	dw.watcher.Close()
	<-dw.done
}

func (dw *DesignWatcher) loop() {
	defer close(dw.done)
	for {
		select {
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			name, relevant := designEventName(event)
			if relevant && dw.onChange != nil {
				dw.onChange(name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config: design watcher error", "err", err)
		}
	}
}

func designEventName(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(event.Name)
	if !strings.HasSuffix(base, ".json") || IsDesignBackup(base) {
		return "", false
	}
	return strings.TrimSuffix(base, ".json"), true
}
