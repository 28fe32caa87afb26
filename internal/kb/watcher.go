package kb

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce collapses editor save bursts into a single reload.
const reloadDebounce = 500 * time.Millisecond

// Watcher hot-reloads the solutions file when it changes on disk.
// Editors often replace files via rename, so the parent directory is
// watched rather than the file itself.
type Watcher struct {
	solutions *Solutions
	watcher   *fsnotify.Watcher
	logger    *zap.Logger
	stop      chan struct{}
}

// NewWatcher creates a watcher for the solutions file. Returns an error
// when the solutions store has no backing file.
func NewWatcher(solutions *Solutions, logger *zap.Logger) (*Watcher, error) {
	if solutions == nil || solutions.Path() == "" {
		return nil, fmt.Errorf("solutions file path required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &Watcher{
		solutions: solutions,
		watcher:   fsw,
		logger:    logger,
		stop:      make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Call Stop to clean up.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.solutions.Path())
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *Watcher) run(ctx context.Context) {
	target := filepath.Clean(w.solutions.Path())

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerC = timer.C
			} else {
				timer.Reset(reloadDebounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := w.solutions.Reload(); err != nil {
				w.logger.Warn("solutions reload failed, keeping previous entries",
					zap.String("path", target),
					zap.Error(err),
				)
				continue
			}
			w.logger.Info("reloaded knowledge base solutions",
				zap.String("path", target),
				zap.Int("entries", w.solutions.Len()),
			)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("solutions watcher error", zap.Error(err))
		}
	}
}
