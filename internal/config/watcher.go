package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// MutableKnobs is the subset of Config safe to change on a running server
// without rebinding listeners or reshaping pools already dialed — token
// lifetime, the sweep interval, and rate-limit parameters. Mirrors the
// teacher's reload-only-what's-safe philosophy (pm.UpdateDefaults / r.Reload).
type MutableKnobs struct {
	TokenExpire     time.Duration
	CleanupInterval time.Duration
	RateLimit       RateLimitConfig
}

// Watcher watches an env file for changes and invokes a callback with the
// reloaded mutable knobs. Structurally identical to the teacher's
// config.Watcher (fsnotify.Watcher + debounce timer + stop channel).
type Watcher struct {
	path     string
	callback func(MutableKnobs)
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	stopCh   chan struct{}
}

// NewWatcher starts watching path for writes, debounced by 500ms, reloading
// via Load and invoking callback with the resulting MutableKnobs.
func NewWatcher(path string, callback func(MutableKnobs)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	cw := &Watcher{
		path:     path,
		callback: callback,
		watcher:  w,
		stopCh:   make(chan struct{}),
	}
	go cw.run()
	return cw, nil
}

func (cw *Watcher) run() {
	var debounce *time.Timer
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, cw.reload)
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "err", err)
		case <-cw.stopCh:
			return
		}
	}
}

func (cw *Watcher) reload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cfg, err := Load(cw.path)
	if err != nil {
		slog.Warn("config hot-reload failed", "path", cw.path, "err", err)
		return
	}

	slog.Info("config reloaded", "path", cw.path)
	cw.callback(MutableKnobs{
		TokenExpire:     cfg.TokenExpire,
		CleanupInterval: cfg.CleanupInterval,
		RateLimit:       cfg.RateLimit,
	})
}

// Stop stops the watcher.
func (cw *Watcher) Stop() error {
	close(cw.stopCh)
	return cw.watcher.Close()
}
