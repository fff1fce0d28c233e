package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tdevries60/bro/internal/logger"
	"github.com/tdevries60/bro/internal/protocol/ftp"
	"github.com/tdevries60/bro/internal/telemetry"
	"github.com/tdevries60/bro/pkg/adapter"
	"github.com/tdevries60/bro/pkg/adapter/tap"
	"github.com/tdevries60/bro/pkg/api"
	"github.com/tdevries60/bro/pkg/config"
	"github.com/tdevries60/bro/pkg/emit"
	"github.com/tdevries60/bro/pkg/expectation"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FTP control-channel monitor",
	Long: `Start the monitor with the specified configuration.

The monitor listens on tap.listen, relays every control connection to
tap.upstream and emits one record per logical FTP command.

Examples:
  # Start with default config location
  ftpmon start

  # Start with custom config file
  ftpmon start --config /etc/ftpmon/config.yaml

  # Start with environment variable overrides
  FTPMON_LOGGING_LEVEL=DEBUG ftpmon start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry (if enabled)
	telemetryShutdown, err := telemetry.Init(ctx, cfg.TelemetrySettings(Version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}

	// Initialize metrics (if enabled)
	analyzerMetrics, metricsSrv := config.InitializeMetrics(cfg)
	if metricsSrv != nil {
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logger.KeyError, err)
			}
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Expectation table with background sweeper
	table := expectation.New(cfg.Analyzer.ExpectationTTL, expectation.WithMetrics(analyzerMetrics))
	table.StartSweeper(ctx, cfg.Analyzer.ExpectationSweepInterval)

	// Record sink
	emitter, closeEmitter, err := buildEmitter(&cfg.Output)
	if err != nil {
		return err
	}
	defer closeEmitter()

	correlator := ftp.NewCorrelator(ftp.Config{
		MaxPendingCommands: cfg.Analyzer.MaxPendingCommands,
		LoggedCommands:     cfg.Analyzer.LoggedCommands,
		CapturePasswords:   cfg.Analyzer.CapturePasswords,
	}, table, emitter, emit.NewLogNotifier(), analyzerMetrics)

	frontend := tap.New(adapter.BaseConfig{
		ListenAddress:   cfg.Tap.Listen,
		MaxConnections:  cfg.Tap.MaxConnections,
		ShutdownTimeout: cfg.Tap.ShutdownTimeout,
	}, tap.Config{
		Upstream:    cfg.Tap.Upstream,
		DialTimeout: cfg.Tap.UpstreamDialTimeout,
	}, correlator)

	// Debug API (if enabled)
	if cfg.API.Enabled {
		apiServer := api.NewServer(api.ServerConfig{
			ListenAddress: cfg.API.ListenAddress,
			ReadTimeout:   cfg.API.ReadTimeout,
			WriteTimeout:  cfg.API.WriteTimeout,
		}, table, correlator)
		go func() {
			if err := apiServer.Start(ctx); err != nil {
				logger.Error("API server failed", logger.KeyError, err)
			}
		}()
	}

	// Live log-level changes from config edits
	if err := config.Watch(GetConfigFile(), func(c *config.Config) {
		logger.SetLevel(c.Logging.Level)
	}); err != nil {
		logger.Warn("config watch unavailable", logger.KeyError, err)
	}

	// Start the tap in background
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- frontend.Serve(ctx)
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Monitor is running. Press Ctrl+C to stop.",
		"listen", cfg.Tap.Listen, "upstream", cfg.Tap.Upstream)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Monitor shutdown error", logger.KeyError, err)
			return err
		}
		logger.Info("Monitor stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Monitor error", logger.KeyError, err)
			return err
		}
		logger.Info("Monitor stopped")
	}

	if metricsSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	return nil
}

// buildEmitter constructs the record sink from the output section. The
// returned close function flushes file-backed sinks on shutdown.
func buildEmitter(cfg *config.OutputConfig) (emit.Emitter, func(), error) {
	switch cfg.Format {
	case "jsonl":
		e, err := emit.NewJSONLEmitter(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open record output: %w", err)
		}
		return e, func() {
			if err := e.Close(); err != nil {
				logger.Error("record output close error", logger.KeyError, err)
			}
		}, nil
	default:
		return emit.NewLogEmitter(), func() {}, nil
	}
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
