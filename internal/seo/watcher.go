package seo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a Store when its snapshot file changes on disk. It only
// applies to the local storage backend, where snapshots can be replaced by
// hand or by cmd/parity-ingest running in another process.
type Watcher struct {
	store *Store
	file  string
	fsw   *fsnotify.Watcher

	// notify, when set, is called after each invalidation.
	notify func()
}

// NewWatcher watches the directory containing file. The directory is created
// when missing so the watch can be registered before the first snapshot.
func NewWatcher(store *Store, file string) (*Watcher, error) {
	file = filepath.Clean(file)
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{store: store, file: file, fsw: fsw}, nil
}

// Run handles events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	slog.Info("watching parity snapshot", "file", w.file)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("parity snapshot changed", "op", event.Op.String())
			w.store.Invalidate()
			if w.notify != nil {
				w.notify()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("parity snapshot watcher error", "error", err)
		}
	}
}
