package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches an accounts file for changes and reloads the Store.
// Rapid write bursts (editors, atomic renames) are debounced so a reload
// fires only after a quiet period.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a Watcher for the given accounts file. A zero
// debounce defaults to 100ms.
func NewWatcher(store *Store, path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce == 0 {
		debounce = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		store:    store,
		path:     path,
		debounce: debounce,
		logger:   logger,
	}, nil
}

// Watch blocks processing file events until the context is cancelled.
// The parent directory is watched rather than the file itself so that
// atomic replace (write temp + rename) is observed.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Info("accounts watcher started",
		"path", w.path,
		"debounce_ms", w.debounce.Milliseconds(),
	)

	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.shouldProcess(event) {
				continue
			}
			w.logger.Debug("accounts file event", "op", event.Op.String(), "name", event.Name)
			w.trigger()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Keep watching despite transient errors.
			w.logger.Error("accounts watcher error", "error", err)
		}
	}
}

// shouldProcess filters events down to writes touching the watched file.
func (w *Watcher) shouldProcess(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Clean(event.Name) == filepath.Clean(w.path)
}

// trigger arms (or re-arms) the debounce timer.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.store.ReloadFrom(w.path); err != nil {
			w.logger.Error("accounts reload failed, keeping previous table",
				"path", w.path,
				"error", err,
			)
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
