package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/thereceipt/ticket-engine/internal/api"
	"github.com/thereceipt/ticket-engine/internal/command"
	"github.com/thereceipt/ticket-engine/internal/config"
	"github.com/thereceipt/ticket-engine/internal/events"
	"github.com/thereceipt/ticket-engine/internal/logging"
	"github.com/thereceipt/ticket-engine/internal/printer"
	"github.com/thereceipt/ticket-engine/internal/service"
	"github.com/thereceipt/ticket-engine/internal/tui"
	"go.uber.org/zap"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "ticket-engine.yaml", "Path to the YAML config file")
	port := flag.String("port", "", "API port (overrides config)")
	headless := flag.Bool("headless", false, "Run without the terminal dashboard")
	flag.Parse()

	if err := run(*configPath, *port, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "ticket-engine: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, portOverride string, headless bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if portOverride != "" {
		cfg.Server.Port = portOverride
	}
	if headless {
		cfg.TUI.Enabled = false
	}

	// The dashboard log pane is attached as a sink once the dashboard exists
	var dashboard *tui.TViewApp
	var sinks []io.Writer
	var deferredSink *lateWriter
	if cfg.TUI.Enabled {
		deferredSink = &lateWriter{}
		sinks = append(sinks, deferredSink)
	}

	logger, err := logging.New(cfg.Log.Level, sinks...)
	if err != nil {
		return err
	}
	defer logger.Sync()

	registryPath := cfg.Registry.Path
	if registryPath == "" {
		registryPath = defaultRegistryPath()
	}

	manager, err := printer.NewManager(registryPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create printer manager: %w", err)
	}

	printers, err := manager.DetectPrinters()
	if err != nil {
		logger.Warn("printer detection failed", zap.Error(err))
	}

	pool := printer.NewConnectionPool(logger)
	queue := printer.NewPrintQueue(pool, manager, cfg.Queue.Retries,
		printer.WithInterval(cfg.Queue.Interval),
		printer.WithRetryDelay(cfg.Queue.RetryDelay),
		printer.WithLogger(logger))

	svc := service.New(manager, queue, cfg.Ticket.Brand, logger)
	executor := command.NewExecutor(svc, manager, queue)
	server := api.NewServer(svc, manager, queue, executor, logger)

	if cfg.TUI.Enabled {
		dashboard = tui.NewTViewApp(executor, manager, queue, cfg.Server.Port)
		deferredSink.set(dashboard.LogWriter())
	}

	manager.OnPrinterAdded(func(p *printer.Printer) {
		logger.Info("printer connected", zap.String("printer_id", p.ID), zap.String("name", p.DisplayName()))
		server.BroadcastPrinterAdded(p)
		if dashboard != nil {
			dashboard.RefreshPrinters()
		}
	})
	manager.OnPrinterRemoved(func(id string) {
		logger.Info("printer disconnected", zap.String("printer_id", id))
		pool.Disconnect(id)
		server.BroadcastPrinterRemoved(id)
		if dashboard != nil {
			dashboard.RefreshPrinters()
		}
	})
	queue.OnJobUpdate(func(job printer.PrintJob) {
		server.BroadcastJobUpdated(job)
		if dashboard != nil {
			dashboard.RefreshJobs()
		}
	})

	monitor := printer.NewMonitor(manager, cfg.Monitor.Interval)
	monitor.Start()

	if cfg.NATS.URL != "" {
		subscriber, err := events.NewSubscriber(cfg.NATS.URL, svc, logger)
		if err != nil {
			return err
		}
		defer subscriber.Close()

		if err := subscriber.Subscribe(cfg.NATS.Subject, cfg.NATS.Queue); err != nil {
			return err
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("0.0.0.0:%s", cfg.Server.Port)
		logger.Info("starting API server", zap.String("addr", addr), zap.String("version", Version))
		serverErr <- server.Run(addr)
	}()

	logger.Info("ticket engine started", zap.Int("printers", len(printers)))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	tuiDone := make(chan struct{})
	if dashboard != nil {
		go func() {
			if err := dashboard.Run(); err != nil {
				logger.Error("dashboard failed", zap.Error(err))
			}
			close(tuiDone)
		}()
	}

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	case <-sigChan:
		logger.Info("shutting down")
	case <-tuiDone:
	}

	if dashboard != nil {
		dashboard.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("API shutdown failed", zap.Error(err))
	}

	monitor.Stop()
	queue.Stop()
	pool.DisconnectAll()

	return runErr
}

// defaultRegistryPath places the registry next to the executable when that
// directory is writable, then falls back to the working directory and the
// user config directory.
func defaultRegistryPath() string {
	const name = "printer_registry.json"

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		testFile := filepath.Join(exeDir, ".ticket-engine-write-test")
		if f, err := os.Create(testFile); err == nil {
			f.Close()
			os.Remove(testFile)
			return filepath.Join(exeDir, name)
		}
	}

	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, name)
	}

	var configDir string
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			configDir = filepath.Join(appData, "ticket-engine")
		}
	} else if home := os.Getenv("HOME"); home != "" {
		configDir = filepath.Join(home, ".config", "ticket-engine")
	}

	if configDir != "" {
		os.MkdirAll(configDir, 0755)
		return filepath.Join(configDir, name)
	}

	return name
}
