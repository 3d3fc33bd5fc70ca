package completion

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SpecWatcher reloads YAML spec files into a manager when they change.
// Parent directories are watched so editors that replace files on save are
// still noticed.
type SpecWatcher struct {
	fsWatcher *fsnotify.Watcher
	manager   *CompletionManager
	logger    *zap.Logger

	debounceDelay time.Duration

	mu      sync.Mutex
	files   map[string]bool
	pending map[string]*time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpecWatcher starts watching files, which must already have been loaded
// once by the caller.
func NewSpecWatcher(manager *CompletionManager, files []string, debounce time.Duration) (*SpecWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	w := &SpecWatcher{
		fsWatcher:     fsWatcher,
		manager:       manager,
		logger:        manager.logger,
		debounceDelay: debounce,
		files:         make(map[string]bool),
		pending:       make(map[string]*time.Timer),
		done:          make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			_ = fsWatcher.Close()
			return nil, fmt.Errorf("failed to resolve path %s: %w", f, err)
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			_ = fsWatcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logger.Debug("watching completion directory", zap.String("dir", dir))
	}

	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

func (w *SpecWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("completion file watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

func (w *SpecWatcher) handleChange(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[abs] {
		return
	}
	if timer, ok := w.pending[abs]; ok {
		timer.Stop()
	}
	w.pending[abs] = time.AfterFunc(w.debounceDelay, func() {
		w.reload(abs)
	})
}

func (w *SpecWatcher) reload(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	if err := w.manager.LoadFile(path); err != nil {
		w.logger.Warn("failed to reload completion file", zap.String("file", path), zap.Error(err))
		return
	}
	w.logger.Info("reloaded completion file", zap.String("file", path))
}

// Close stops watching and cancels pending reloads.
func (w *SpecWatcher) Close() error {
	close(w.done)

	w.mu.Lock()
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsWatcher.Close()
}
