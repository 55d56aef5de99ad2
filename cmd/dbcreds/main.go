package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/dbcreds/internal/application"
	"github.com/eugenenazirov/dbcreds/internal/config"
	"github.com/eugenenazirov/dbcreds/internal/logging"
	"github.com/eugenenazirov/dbcreds/internal/reconcile"
	"github.com/eugenenazirov/dbcreds/internal/render"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("dbcreds", "Reconciles database credentials from .env and YAML files into MySQL container bootstrap values")
	configFile := kingpinApp.Flag("config", "Path to YAML or TOML configuration file").String()
	dir := kingpinApp.Flag("dir", "Directory containing the .env and YAML files").String()
	envFile := kingpinApp.Flag("env-file", "Env file name, relative to --dir unless absolute").String()
	pattern := kingpinApp.Flag("pattern", "Glob selecting YAML files inside --dir").String()
	format := kingpinApp.Flag("format", "Output format: "+strings.Join(render.Formats(), ", ")).String()
	extractor := kingpinApp.Flag("extractor", "YAML extractor: "+strings.Join(reconcile.Modes(), ", ")).String()
	dsnAddr := kingpinApp.Flag("dsn-addr", "host:port used by the dsn format").String()
	watchFlag := kingpinApp.Flag("watch", "Keep running and reprint when inputs change").Bool()
	watchThrottle := kingpinApp.Flag("watch-throttle", "Minimum interval between re-runs in watch mode").Duration()
	logLevel := kingpinApp.Flag("log-level", "Log level written to stderr").String()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:    *configFile,
		Dir:           dir,
		EnvFile:       envFile,
		Pattern:       pattern,
		Format:        format,
		Extractor:     extractor,
		DSNAddr:       dsnAddr,
		WatchThrottle: watchThrottle,
		LogLevel:      logLevel,
	}

	if *watchFlag {
		overrides.Watch = watchFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger, os.Stdout)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, stop := signalContext(logger)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Fatal("failed to reconcile credentials", zap.Error(err))
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-quit:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(quit)
		cancel()
	}
}
