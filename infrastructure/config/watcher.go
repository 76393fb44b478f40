package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Overrides are the settings that may change while the process runs.
// Values left at zero keep whatever the environment configured.
type Overrides struct {
	QuiescenceWindow  time.Duration `yaml:"quiescence_window"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	LogLevel          string        `yaml:"log_level"`
	EnableRealtime    *bool         `yaml:"enable_realtime"`
}

// OverrideFunc is called with the freshly loaded overrides after every
// change to the watched file.
type OverrideFunc func(Overrides)

// Watcher reloads a YAML override file whenever it changes on disk.
// Editors replace files with rename+create, so the watcher follows the
// directory rather than the file itself.
type Watcher struct {
	path     string
	logger   *zap.Logger
	notify   OverrideFunc
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	current  Overrides
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher starts watching the file at path. A missing file is not an
// error; overrides apply once it appears.
func NewWatcher(path string, logger *zap.Logger, notify OverrideFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:   path,
		logger: logger,
		notify: notify,
		fsw:    fsw,
		done:   make(chan struct{}),
	}
	w.reload()
	go w.loop()
	return w, nil
}

// Current returns the last successfully loaded overrides.
func (w *Watcher) Current() Overrides {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.stopOnce.Do(func() { close(w.done) })
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Editors fire several events per save; a short settle
			// collapses them into one reload.
			time.Sleep(50 * time.Millisecond)
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("failed to read override file", zap.String("path", w.path), zap.Error(err))
		}
		return
	}

	var overrides Overrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		w.logger.Warn("invalid override file, keeping previous settings",
			zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = overrides
	w.mu.Unlock()

	w.logger.Info("configuration overrides loaded", zap.String("path", w.path))
	if w.notify != nil {
		w.notify(overrides)
	}
}
