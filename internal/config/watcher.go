package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/claritypixel/pixel-health/internal/engine"
	"github.com/claritypixel/pixel-health/internal/metrics"
)

// Watcher re-reads the config file when it changes and publishes the new
// health settings. Invalid files are logged and the previous settings stay.
type Watcher struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	current  engine.Settings
	onChange []func(engine.Settings)
}

// NewWatcher starts from the settings already loaded from path.
func NewWatcher(path string, initial engine.Settings, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, logger: logger, current: initial.Clone()}
}

// Settings returns the latest accepted settings.
func (w *Watcher) Settings() engine.Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current.Clone()
}

// OnChange registers a callback invoked after every accepted reload.
func (w *Watcher) OnChange(fn func(engine.Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Watch starts a background goroutine that hot-reloads on file changes.
// The parent directory is watched so editors that replace the file are seen.
// Call the returned stop function to clean up.
func (w *Watcher) Watch() (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	target := filepath.Clean(w.path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", filepath.Dir(target), err)
	}

	done := make(chan struct{})
	go func() {
		defer fw.Close()
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					w.Reload()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", slog.Any("error", err))
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}

// Reload forces an immediate re-read of the config file.
func (w *Watcher) Reload() (engine.Settings, error) {
	cfg, err := Load(w.path)
	if err != nil {
		metrics.SettingsReloaded(false)
		w.logger.Warn("config reload rejected; keeping previous settings", slog.String("path", w.path), slog.Any("error", err))
		return w.Settings(), err
	}

	w.mu.Lock()
	w.current = cfg.Health.Clone()
	callbacks := make([]func(engine.Settings), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	metrics.SettingsReloaded(true)
	w.logger.Info("health settings reloaded", slog.String("path", w.path))
	for _, fn := range callbacks {
		fn(cfg.Health.Clone())
	}
	return cfg.Health.Clone(), nil
}
