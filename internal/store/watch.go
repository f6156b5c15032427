package store

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a snapshot directory for the rename that lands a new
// area_version (the shadow-file-then-rename commit internal/areastore
// performs), notifying callers so cached readers know to re-resolve the
// snapshot's timestamps instead of serving a stale generation.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *slog.Logger
}

// NewWatcher starts watching dir. The caller must call Close when done.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{fsw: fsw, logger: logger}, nil
}

// Run blocks, calling onCommit every time a file named "area_version" is
// created or renamed into place in the watched directory, until Close is
// called or the underlying watcher's event channel closes.
func (w *Watcher) Run(onCommit func()) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name == "" {
				continue
			}
			if (ev.Op&(fsnotify.Create|fsnotify.Rename) != 0) && isAreaVersionPath(ev.Name) {
				onCommit()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("snapshot watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func isAreaVersionPath(path string) bool {
	const suffix = "area_version"
	if len(path) < len(suffix) {
		return false
	}
	return path[len(path)-len(suffix):] == suffix
}
