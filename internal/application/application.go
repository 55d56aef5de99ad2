package application

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eugenenazirov/dbcreds/internal/config"
	"github.com/eugenenazirov/dbcreds/internal/reconcile"
	"github.com/eugenenazirov/dbcreds/internal/render"
	"github.com/eugenenazirov/dbcreds/internal/watch"
)

// App encapsulates the reconciler, renderer and optional watcher.
type App struct {
	cfg        config.Config
	reconciler *reconcile.Reconciler
	renderer   *render.Renderer
	out        io.Writer
	logger     *zap.Logger

	last    reconcile.Record
	printed bool
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger, out io.Writer) (*App, error) {
	reconciler, err := reconcile.New(
		reconcile.WithDir(cfg.Dir),
		reconcile.WithEnvFile(cfg.EnvFile),
		reconcile.WithPattern(cfg.Pattern),
		reconcile.WithMode(cfg.Extractor),
		reconcile.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build reconciler: %w", err)
	}

	renderer, err := render.New(cfg.Format, render.WithDSNAddr(cfg.DSNAddr))
	if err != nil {
		return nil, fmt.Errorf("failed to build renderer: %w", err)
	}

	return &App{
		cfg:        cfg,
		reconciler: reconciler,
		renderer:   renderer,
		out:        out,
		logger:     logger,
	}, nil
}

// Run reconciles once and prints the record. In watch mode it then keeps
// re-running on input changes until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.runOnce(ctx); err != nil {
		return err
	}
	if !a.cfg.Watch {
		return nil
	}

	w := watch.New(a.cfg.Dir, a.watches, a.cfg.WatchThrottle, a.logger)
	return w.Run(ctx, a.runOnce)
}

// runOnce reconciles and prints the record unless it equals the last one printed.
func (a *App) runOnce(ctx context.Context) error {
	logger := a.logger.With(zap.String("run_id", uuid.NewString()))

	rec, err := a.reconciler.Reconcile(ctx)
	if err != nil {
		return err
	}

	if a.printed && rec.Equal(a.last) {
		logger.Debug("credentials unchanged")
		return nil
	}

	if err := a.renderer.Render(a.out, rec); err != nil {
		return err
	}
	a.last, a.printed = rec, true
	logger.Info("credentials printed", zap.String("format", string(a.cfg.Format)))
	return nil
}

// watches reports whether a changed file name is one of the inputs.
func (a *App) watches(name string) bool {
	if name == filepath.Base(a.reconciler.EnvPath()) {
		return true
	}
	return reconcile.MatchName(a.cfg.Pattern, name)
}
