package patterns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a changed pack is reloaded.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a pattern pack file or directory and reloads the
// registry when it changes. A reload that fails leaves the previous
// registry in place.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for path. A zero debounce uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watch path is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     path,
		watcher:  fsw,
		logger:   logger,
		debounce: newDebouncer(debounce),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called. After each burst
// of changes it calls Load on the watched path and hands the new registry
// to onReload. Load errors are passed to onError and the previous
// registry stays active.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Registry), onError func(error)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	// Editors often replace files by rename, so watch the parent directory
	// when the target is a single file.
	dir := w.path
	if info, err := os.Stat(w.path); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	} else if !info.IsDir() {
		dir = filepath.Dir(w.path)
	}
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	w.logger.Info("pattern watcher started", "path", w.path, "dir", dir)

	reload := func() {
		reg, err := Load(w.path)
		if err != nil {
			w.logger.Error("pattern reload failed, keeping previous patterns", "path", w.path, "error", err)
			if onError != nil {
				onError(err)
			}
			return
		}
		w.logger.Info("patterns reloaded", "path", w.path, "patterns", reg.Len())
		if onReload != nil {
			onReload(reg)
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("pattern watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("pattern watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("pattern file event", "path", event.Name, "op", event.Op.String())
			w.debounce.trigger(reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("pattern watcher error", "error", err)
		}
	}
}

// Stop stops a running watcher and releases its resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	w.debounce.stop()
	return w.watcher.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || !isPackFile(base) {
		return false
	}
	if info, err := os.Stat(w.path); err == nil && !info.IsDir() {
		return filepath.Clean(event.Name) == filepath.Clean(w.path)
	}
	return true
}

// debouncer collapses bursts of events into one callback after a quiet period.
type debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

func (d *debouncer) trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			fn()
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
