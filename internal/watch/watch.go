// Package watch reloads a file when it changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leandrodaf/midisynth/sdk/contracts"
)

// DefaultDebounce collapses the burst of events an editor or copy produces.
const DefaultDebounce = 200 * time.Millisecond

// Watcher calls a reload function after the watched file settles. It watches
// the parent directory so that files replaced by rename are still seen.
type Watcher struct {
	path     string
	reload   func(path string) error
	logger   contracts.Logger
	debounce time.Duration
	w        *fsnotify.Watcher
}

// New starts watching path.
func New(path string, reload func(path string) error, logger contracts.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	return &Watcher{path: abs, reload: reload, logger: logger, debounce: DefaultDebounce, w: w}, nil
}

// SetDebounce changes the settle delay. Call it before Run.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run dispatches reloads until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.w.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", w.logger.Field().Error("error", err))
		case <-fire:
			fire = nil
			if err := w.reload(w.path); err != nil {
				w.logger.Error("Reload failed", w.logger.Field().String("path", w.path), w.logger.Field().Error("error", err))
				continue
			}
			w.logger.Info("Reloaded", w.logger.Field().String("path", w.path))
		}
	}
}
