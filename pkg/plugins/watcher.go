package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultSettleDelay is how long an archive must stay unchanged before the
// watcher picks it up
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher loads archives dropped into the plugins directory while the host
// runs, and unloads plugins whose archive is removed
type Watcher struct {
	manager *Manager
	log     *logrus.Logger
	settle  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher for the manager's directory
func NewWatcher(manager *Manager, log *logrus.Logger, settle time.Duration) *Watcher {
	if log == nil {
		log = logrus.New()
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Watcher{
		manager: manager,
		log:     log,
		settle:  settle,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.manager.Dir()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.manager.Dir(), err)
	}
	w.log.WithField("dir", w.manager.Dir()).Info("Watching plugin directory")

	defer w.stopPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !IsPluginArchive(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.schedule(ctx, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.removed(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")
		}
	}
}

// schedule restarts the settle timer for path
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.added(ctx, path)
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) added(ctx context.Context, path string) {
	log := w.log.WithField("archive", path)
	if ctx.Err() != nil {
		return
	}

	// a rewritten archive replaces the plugin it provided
	w.removed(path)

	desc, err := w.manager.Register(path)
	if err != nil {
		log.WithError(err).Warn("Skipping new plugin archive")
		return
	}
	if err := w.manager.Load(ctx, desc.Name); err != nil {
		log.WithError(err).Error("Failed to load new plugin")
		return
	}
	if err := w.manager.Enable(desc.Name); err != nil {
		log.WithError(err).Error("Failed to enable new plugin")
	}
}

func (w *Watcher) removed(path string) {
	w.mu.Lock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	for _, info := range w.manager.List() {
		if info.Archive != path {
			continue
		}
		if err := w.manager.Unload(info.Name); err != nil {
			w.log.WithField("plugin", info.Name).WithError(err).Warn("Failed to unload removed plugin")
		}
	}
}
