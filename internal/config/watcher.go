package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches files and directories and notifies typed handlers when
// any of them changes. The value is loaded fresh on each change so handlers
// never receive stale data.
//
// Files are watched through their parent directory, so a file that is
// replaced by rename (as results.Save does) keeps being watched.
type Watcher[T any] struct {
	paths    []string
	debounce time.Duration
	suffix   string
	loader   func(changed string) (T, error)
	handlers []func(T)
	onError  func(error)
	mu       sync.RWMutex
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	files map[string]bool // watched files, absolute
	dirs  map[string]bool // directories whose every matching entry counts
}

// WatcherOption configures a Watcher.
type WatcherOption[T any] func(*Watcher[T])

// WithDebounce sets the debounce duration for changes.
// Default is 1500ms.
func WithDebounce[T any](d time.Duration) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.debounce = d
	}
}

// WithErrorHandler sets a callback for load errors.
// If not set, errors are only logged.
func WithErrorHandler[T any](handler func(error)) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.onError = handler
	}
}

// WithSuffix limits watched directories to entries ending in suffix,
// e.g. ".otio" or ".enctest".
func WithSuffix[T any](suffix string) WatcherOption[T] {
	return func(w *Watcher[T]) {
		w.suffix = suffix
	}
}

// NewWatcher creates a watcher over paths, each a file or a directory.
// The loader receives the last path that changed within a debounce window.
func NewWatcher[T any](
	paths []string,
	loader func(changed string) (T, error),
	logger *slog.Logger,
	opts ...WatcherOption[T],
) *Watcher[T] {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher[T]{
		paths:    paths,
		debounce: 1500 * time.Millisecond,
		loader:   loader,
		handlers: make([]func(T), 0),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnReload registers a handler to be called after a change.
// Returns an unsubscribe function to remove the handler.
func (w *Watcher[T]) OnReload(handler func(T)) func() {
	w.mu.Lock()
	w.handlers = append(w.handlers, handler)
	idx := len(w.handlers) - 1
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if idx < len(w.handlers) {
			w.handlers[idx] = nil
		}
	}
}

// Start begins watching.
func (w *Watcher[T]) Start() error {
	if len(w.paths) == 0 {
		return fmt.Errorf("nothing to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	added := make(map[string]bool)
	for _, p := range w.paths {
		abs, absErr := filepath.Abs(p)
		if absErr != nil {
			watcher.Close()
			return absErr
		}
		dir := filepath.Dir(abs)
		if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
			dir = abs
			w.dirs[abs] = true
		} else {
			w.files[abs] = true
		}
		if added[dir] {
			continue
		}
		if addErr := watcher.Add(dir); addErr != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, addErr)
		}
		added[dir] = true
	}

	w.logger.Info("Watcher started", "paths", w.paths, "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop stops watching and cleans up resources.
func (w *Watcher[T]) Stop() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// matches reports whether an event on name concerns a watched path.
func (w *Watcher[T]) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	if !w.dirs[filepath.Dir(abs)] {
		return false
	}
	base := filepath.Base(abs)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return w.suffix == "" || strings.HasSuffix(base, w.suffix)
}

// watch is the main loop that listens for file changes.
func (w *Watcher[T]) watch() {
	var timer *time.Timer
	var timerC <-chan time.Time
	var changed string

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug("Watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// Editors and atomic saves show up as Create on the final name
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !w.matches(event.Name) {
				continue
			}
			w.logger.Debug("Change detected", "path", event.Name, "op", event.Op.String())
			changed = event.Name

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			w.logger.Info("Watched path changed, loading and notifying handlers", "path", changed)
			w.loadAndNotify(changed)
			timerC = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

// loadAndNotify loads fresh and notifies all handlers.
func (w *Watcher[T]) loadAndNotify(changed string) {
	value, err := w.loader(changed)
	if err != nil {
		w.logger.Warn("Failed to load after change", "path", changed, "error", err)
		if w.onError != nil {
			w.onError(err)
		}
		return
	}

	// All handlers receive the same snapshot
	w.mu.RLock()
	handlers := make([]func(T), 0, len(w.handlers))
	for _, h := range w.handlers {
		if h != nil {
			handlers = append(handlers, h)
		}
	}
	w.mu.RUnlock()

	for _, handler := range handlers {
		handler(value)
	}
}
