package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor produces for a single save.
const reloadDelay = 100 * time.Millisecond

// watcher is the implementation of the Watcher interface.
type watcher struct {
	mu *sync.Mutex

	path     string
	fs       *fsnotify.Watcher
	onChange func(Config, error)
	timer    *time.Timer
	done     chan struct{}
	closed   bool
}

// Watcher reloads a config file whenever it changes on disk.
type Watcher interface {
	// Close stops watching. Pending reloads are dropped.
	//
	// Returns:
	//   - error: an error from the underlying file watcher
	Close() error
}

var _ Watcher = &watcher{}

// Watch calls onChange with the result of Load each time path is written, created or
// replaced. The parent directory is watched so editors that save by renaming a temp file
// are still seen. onChange runs on a background goroutine.
//
// Parameters:
//   - path: the config file to watch
//   - onChange: receives the reloaded Config, or the Load error
//
// Returns:
//   - Watcher: the running watcher
//   - error: an error if the file watcher cannot be created
func Watch(path string, onChange func(Config, error)) (Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &watcher{
		mu:       &sync.Mutex{},
		path:     abs,
		fs:       fs,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			common.Logger().Warn("config watcher", "path", w.path, "error", err)
		}
	}
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDelay, w.reload)
}

func (w *watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		common.Logger().Warn("config reload failed", "path", w.path, "error", err)
	} else {
		common.Logger().Info("config reloaded", "path", w.path)
	}
	w.onChange(cfg, err)
}

func (w *watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.fs.Close()
}
