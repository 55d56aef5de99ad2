// Package watch re-runs a callback when files in a directory change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher watches a single directory and invokes a callback, at most once per
// throttle interval, after relevant files change.
type Watcher struct {
	dir     string
	match   func(name string) bool
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Watcher for dir. match receives base names and selects the
// files whose changes trigger a run.
func New(dir string, match func(name string) bool, throttle time.Duration, logger *zap.Logger) *Watcher {
	if throttle <= 0 {
		throttle = time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:     dir,
		match:   match,
		limiter: rate.NewLimiter(rate.Every(throttle), 1),
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled. Change bursts collapse into a single
// pending run; runs never overlap. A failing run is logged and watching goes on.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// The initial token is spent so the first change after startup is also throttled.
	w.limiter.Allow()

	w.logger.Info("watching for changes", zap.String("dir", w.dir))
	return w.loop(ctx, fsw.Events, fsw.Errors, onChange)
}

// loop dispatches events until ctx is cancelled or either channel closes. The
// pending runner is stopped and awaited before loop returns.
func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, onChange func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	pending := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.runPending(ctx, pending, onChange)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			select {
			case pending <- struct{}{}:
			default:
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	return w.match(filepath.Base(event.Name))
}

func (w *Watcher) runPending(ctx context.Context, pending <-chan struct{}, onChange func(ctx context.Context) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-pending:
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		if err := onChange(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("re-run failed", zap.Error(err))
		}
	}
}
