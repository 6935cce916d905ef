package fswatch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Logger is a minimal logging interface used by the watcher.
type Logger interface {
	Warnw(msg string, keysAndValues ...any)
	Debugw(msg string, keysAndValues ...any)
}

// Watcher reports debounced changes to a single file. It watches the
// parent directory so that editors replacing the file by rename are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   Logger
	done     chan struct{}
}

// New creates a watcher for path.
func New(path string, debounce time.Duration, logger Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		watcher:  w,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start begins processing file events until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		_ = w.watcher.Close()
		close(w.done)
		return err
	}
	w.logger.Debugw("watching directory", "path", dir, "file", filepath.Base(w.path))

	go w.run(ctx, onChange)
	return nil
}

// Wait blocks until the event loop has exited.
func (w *Watcher) Wait() {
	<-w.done
}

func (w *Watcher) run(ctx context.Context, onChange func()) {
	defer close(w.done)
	defer w.watcher.Close()

	var timer *time.Timer
	var timerC <-chan time.Time

	trigger := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(w.debounce)
		timerC = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debugw("database file event", "path", event.Name, "op", event.Op.String())
			trigger()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warnw("watcher error", "err", err)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			onChange()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}
