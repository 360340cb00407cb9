package region

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a regions override file into a Planner when it
// changes, so coverage can be retuned without restarting the service.
type Watcher struct {
	path    string
	planner *Planner
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// DebounceDelay is how long to wait for further writes before
	// reloading; editors and config managers write files in bursts.
	debounce time.Duration
}

// NewWatcher creates a watcher for the given regions file. The parent
// directory is watched rather than the file itself, since most tools
// replace files on save.
func NewWatcher(path string, planner *Planner, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		planner:  planner,
		watcher:  fsw,
		logger:   logger,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start processes change events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Regions watcher error", "error", err)
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) reload() {
	regions, err := LoadFile(w.path)
	if err != nil {
		// Keep the last good region list on a bad reload.
		w.logger.Warn("Regions reload failed, keeping current partition",
			"path", w.path, "error", err)
		return
	}

	w.planner.Set(regions)
	w.logger.Info("Regions reloaded", "path", w.path, "count", len(regions))
}
