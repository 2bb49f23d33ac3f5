package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher tracks changes made to the data directory by other programs,
// so the adapters can warn that the file on disk no longer matches what was
// loaded.
type DirWatcher struct {
	watcher *fsnotify.Watcher
	log     *slog.Logger

	mu      sync.Mutex
	changes map[string]time.Time // base name -> mtime seen, or removal time

	done chan struct{}
}

// WatchDir starts watching dir. Call Close to stop.
func WatchDir(dir string, log *slog.Logger) (*DirWatcher, error) {
	if log == nil {
		log = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	d := &DirWatcher{
		watcher: w,
		log:     log.With("component", "watcher", "dir", dir),
		changes: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go d.run()
	return d, nil
}

func (d *DirWatcher) run() {
	defer close(d.done)
	for {
		select {
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.record(event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn("watch error", "error", err)
		}
	}
}

// record stores the file's new mtime. Saves made through the engine are
// recorded too, but RecordSourceInfo stats the same mtime afterwards, so
// ChangedSince stays false for them.
func (d *DirWatcher) record(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !hasCSVExt(name) {
		return
	}

	var stamp time.Time
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		st, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		stamp = st.ModTime()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		stamp = time.Now()
	default:
		return
	}

	d.mu.Lock()
	d.changes[name] = stamp
	d.mu.Unlock()
	d.log.Debug("file changed", "file", name, "op", event.Op.String())
}

// ChangedSince reports whether name changed after modified, the mtime that
// was recorded when the file was last loaded or saved.
func (d *DirWatcher) ChangedSince(name string, modified time.Time) bool {
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	stamp, ok := d.changes[name]
	return ok && stamp.After(modified)
}

// Close stops watching and waits for the event loop to exit.
func (d *DirWatcher) Close() error {
	err := d.watcher.Close()
	<-d.done
	return err
}
