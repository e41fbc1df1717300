package content

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a resume file into a Store whenever it changes on disk.
type Watcher struct {
	path     string
	store    *Store
	logger   *log.Logger
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu        sync.Mutex
	listeners []func(*Resume)
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// NewWatcher prepares a watcher for path. Call Start to begin watching.
func NewWatcher(path string, store *Store, logger *log.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve resume path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Watcher{
		path:     abs,
		store:    store,
		logger:   logger,
		watcher:  fw,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
	}, nil
}

// OnChange registers fn to run after each successful reload.
func (w *Watcher) OnChange(fn func(*Resume)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Start watches the file's directory (editors often replace files by
// rename) until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching resume for changes", "path", w.path)
	go w.loop(ctx)
	return nil
}

// Stop ends watching and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if err := w.watcher.Close(); err != nil {
			w.logger.Error("closing resume watcher", "err", err)
		}
	})
}

func (w *Watcher) loop(ctx context.Context) {
	name := filepath.Base(w.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("resume watcher error", "err", err)
		}
	}
}

// reload parses the file and, if valid, publishes it. A broken edit keeps
// the previous resume live.
func (w *Watcher) reload() {
	r, err := Load(w.path)
	if err != nil {
		w.logger.Error("resume reload failed, keeping previous version", "err", err)
		return
	}
	w.store.Set(r)
	w.logger.Info("resume reloaded", "path", w.path)

	w.mu.Lock()
	fns := append([]func(*Resume){}, w.listeners...)
	w.mu.Unlock()
	for _, fn := range fns {
		fn(r)
	}
}
