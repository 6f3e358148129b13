// Package daemon implements the daemon lifecycle manager.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/madlink306/antsdr-streamd/internal/command"
	"github.com/madlink306/antsdr-streamd/internal/config"
	logpkg "github.com/madlink306/antsdr-streamd/internal/log"
	"github.com/madlink306/antsdr-streamd/internal/metrics"
	"github.com/madlink306/antsdr-streamd/internal/source"
	"github.com/madlink306/antsdr-streamd/internal/stream"
)

// Daemon manages the antsdrd daemon process lifecycle.
type Daemon struct {
	config     *config.GlobalConfig
	configPath string
	socketPath string
	pidFile    string

	engine        *stream.Engine
	cmdHandler    *command.Handler
	udsServer     *command.UDSServer
	metricsServer *metrics.Server // nil if metrics disabled

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownChan chan struct{}
	sigChan      chan os.Signal
}

// New creates a new Daemon instance. socketPath and pidFile override
// the config file values when non-empty.
func New(configPath, socketPath, pidFile string) (*Daemon, error) {
	var cfg *config.GlobalConfig
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}
	if socketPath == "" {
		socketPath = cfg.Control.Socket
	}
	if pidFile == "" {
		pidFile = cfg.Control.PIDFile
	}

	d := &Daemon{
		config:       cfg,
		configPath:   configPath,
		socketPath:   socketPath,
		pidFile:      pidFile,
		shutdownChan: make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start initializes and starts all daemon components.
func (d *Daemon) Start() error {
	if err := logpkg.Init(d.config.Log); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	slog.Info("starting antsdrd daemon",
		"config", d.configPath,
		"socket", d.socketPath,
		"source", d.config.Source.Type,
		"pulse_mode", d.config.Stream.PulseMode,
	)

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	if err := d.startMetrics(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	src, err := source.New(d.config.Source.SourceSpec())
	if err != nil {
		return fmt.Errorf("failed to create transfer source: %w", err)
	}
	d.engine = stream.New(src, stream.Options{
		Mode:          d.config.PulseMode(),
		Destination:   d.config.Stream.Destination,
		QueueCapacity: d.config.Stream.QueueCapacity,
		RingCapacity:  d.config.Stream.RingCapacity,
		RingSlotSize:  d.config.Stream.RingSlotSize,
		AccumSize:     d.config.Stream.AccumSize,
		StopTimeout:   d.config.Stream.StopTimeout,
	}, slog.Default())

	if d.config.Stream.AutoStart {
		if err := d.engine.Start(); err != nil {
			return fmt.Errorf("failed to auto-start streaming: %w", err)
		}
	}

	d.cmdHandler = command.NewHandler(d.engine)
	d.cmdHandler.SetShutdownFunc(func() {
		slog.Info("shutdown triggered via daemon_shutdown command")
		d.TriggerShutdown()
	})

	d.udsServer = command.NewUDSServer(d.socketPath, d.cmdHandler)
	go func() {
		if err := d.udsServer.Start(d.ctx); err != nil && err != context.Canceled {
			slog.Error("uds server failed", "error", err)
		}
	}()

	if d.config.Metrics.Enabled {
		go d.collectMetrics()
	}

	slog.Info("daemon started successfully")
	return nil
}

// collectMetrics publishes engine snapshots to Prometheus on the
// configured interval.
func (d *Daemon) collectMetrics() {
	interval := d.config.Metrics.CollectInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.Update(d.engine.Stats())
		case <-d.ctx.Done():
			return
		}
	}
}

// Stop performs graceful shutdown of all daemon components.
func (d *Daemon) Stop() {
	slog.Info("initiating graceful shutdown")

	if d.engine != nil && d.engine.State() == stream.StateStreaming {
		if err := d.engine.Stop(); err != nil {
			slog.Error("error stopping stream", "error", err)
		}
	}

	if d.udsServer != nil {
		slog.Info("stopping uds server")
		d.udsServer.Stop()
	}

	if d.metricsServer != nil {
		slog.Info("stopping metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			slog.Error("error stopping metrics server", "error", err)
		}
	}

	d.cancel()

	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	if err := d.removePIDFile(); err != nil {
		slog.Error("error removing PID file", "error", err)
	}

	slog.Info("daemon stopped gracefully")
}

// Run runs the daemon main loop, blocking until shutdown is triggered
// by SIGTERM/SIGINT or the daemon_shutdown command.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT)

	slog.Info("daemon running, waiting for signals or commands")

	select {
	case sig := <-d.sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		d.Stop()
		return nil
	case <-d.shutdownChan:
		slog.Info("shutdown triggered by command")
		d.Stop()
		return nil
	case <-d.ctx.Done():
		slog.Info("context cancelled", "error", d.ctx.Err())
		d.Stop()
		return d.ctx.Err()
	}
}

// TriggerShutdown triggers graceful shutdown from an external caller.
func (d *Daemon) TriggerShutdown() {
	select {
	case d.shutdownChan <- struct{}{}:
	default:
	}
}

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		slog.Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")
	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}

	slog.Debug("PID file written", "path", d.pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}
