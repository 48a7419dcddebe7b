// Command queuepi is the queue-ticket kiosk daemon. It owns the ticket
// counter, keeps it on disk through auto-save and crash recovery, prints
// tickets and serves the loopback control API the kiosk UI drives.
// Run with --mock to print to memory (no serial printer required).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/micro-nova/queuepi/internal/api"
	"github.com/micro-nova/queuepi/internal/appconfig"
	"github.com/micro-nova/queuepi/internal/autosave"
	"github.com/micro-nova/queuepi/internal/config"
	"github.com/micro-nova/queuepi/internal/controller"
	"github.com/micro-nova/queuepi/internal/events"
	"github.com/micro-nova/queuepi/internal/guard"
	"github.com/micro-nova/queuepi/internal/identity"
	"github.com/micro-nova/queuepi/internal/lock"
	"github.com/micro-nova/queuepi/internal/maintenance"
	"github.com/micro-nova/queuepi/internal/printer"
	"github.com/micro-nova/queuepi/internal/recovery"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string

	flagSet := pflag.NewFlagSet("queuepi", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML config file (default: $"+appconfig.EnvVar+")")
	dataDir := flagSet.String("data-dir", "", "data directory (settings, queue, backups, designs)")
	logsDir := flagSet.String("logs-dir", "", "log directory")
	addr := flagSet.String("addr", "", "control API listen address (loopback only)")
	port := flagSet.String("printer-port", "", "serial printer device")
	mock := flagSet.Bool("mock", false, "use the in-memory mock printer")
	debug := flagSet.Bool("debug", false, "enable debug logging")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return err
	}
	// Flags override the file.
	if flagSet.Changed("data-dir") {
		cfg.DataDir = *dataDir
	}
	if flagSet.Changed("logs-dir") {
		cfg.LogsDir = *logsDir
	}
	if flagSet.Changed("addr") {
		cfg.ListenAddr = *addr
	}
	if flagSet.Changed("printer-port") {
		cfg.Printer.Port = *port
	}
	if flagSet.Changed("mock") {
		cfg.Printer.Mock = *mock
	}
	if flagSet.Changed("debug") {
		cfg.Debug = *debug
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, dir := range []string{cfg.DataDir, cfg.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	// Configure logging
	logFile, err := os.OpenFile(filepath.Join(cfg.LogsDir, "system.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile), &slog.HandlerOptions{Level: logLevel})))

	// One process per data directory
	lk, err := lock.Acquire(cfg.DataDir)
	if err != nil {
		return err
	}
	defer lk.Release()

	store, err := config.NewJSONStore(cfg.DataDir)
	if err != nil {
		return err
	}

	// Recovery runs before anything reads settings.
	res := recovery.Resolve(store)
	slog.Info("recovery check", "recovered", res.Recovered, "reason", res.Reason)

	// Printer
	var drv printer.Driver
	if cfg.Printer.Mock {
		slog.Info("using mock printer")
		drv = printer.NewMock()
	} else {
		slog.Info("using serial printer", "port", cfg.Printer.Port, "baud", cfg.Printer.BaudRate)
		drv = printer.NewSerial(cfg.Printer.Port, cfg.Printer.BaudRate)
	}

	bus := events.NewBus()
	ctrl := controller.New(store, bus, controller.Options{Printer: drv})

	sched := autosave.New(ctrl, ctrl.AutoSaveInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signals write a snapshot and exit; cancel() is the graceful path.
	g := guard.New(ctrl, store, sched)
	g.Install(ctx)
	defer g.RecoverPanic()

	sched.Start()

	watcher, err := config.WatchDesigns(store.DesignDir(), ctrl.NotifyDesignsChanged)
	if err != nil {
		slog.Warn("design watcher unavailable", "err", err)
	} else {
		defer watcher.Close()
	}

	info := identity.Get(cfg.DataDir)

	// Maintenance goroutines (midnight rollover, daily archive)
	maint := maintenance.New(cfg.DataDir, cfg.Archive.Dir, cfg.Archive.KeepDays, info.Hostname,
		func() { ctrl.RolloverDay() })
	go maint.Start(ctx)

	// HTTP server
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      api.NewRouter(ctrl, bus, info, maint, cancel),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout (needed for SSE)
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("queuepi listening", "addr", cfg.ListenAddr, "data", cfg.DataDir, "version", info.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		slog.Error("server error", "err", runErr)
	}
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}

	if !g.Close() {
		return errors.New("final save failed; snapshot kept for recovery")
	}
	slog.Info("shutdown complete")
	return runErr
}
