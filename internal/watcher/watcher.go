// Package watcher reports changes to a single directory so a browsing client
// knows when to reload its listing.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/voclinx/linkarr/internal/filter"
)

// DirWatcher watches one directory, non-recursively, using fsnotify.
type DirWatcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	debounce  time.Duration
	log       *slog.Logger
}

// New starts watching dir. Bursts of events closer together than debounce
// are reported once.
func New(dir string, debounce time.Duration, log *slog.Logger) (*DirWatcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(abs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}

	return &DirWatcher{
		fsWatcher: fsw,
		dir:       abs,
		debounce:  debounce,
		log:       log.With("component", "watcher", "dir", abs),
	}, nil
}

// Run calls notify once per debounced burst of changes until ctx is done,
// the watched directory goes away, or notify fails. Changes to partial
// download files are ignored.
func (w *DirWatcher) Run(ctx context.Context, notify func() error) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Name == w.dir && event.Has(fsnotify.Remove|fsnotify.Rename) {
				w.log.Info("Watched directory removed")
				return notify()
			}
			if filter.IsTempFile(event.Name) {
				continue
			}
			w.log.Debug("Directory changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			if err := notify(); err != nil {
				return err
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *DirWatcher) Close() error {
	return w.fsWatcher.Close()
}
