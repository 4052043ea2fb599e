// FILE: scribelog/src/cmd/scribelog/bootstrap.go
package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scribelog/src/internal/config"
	"scribelog/src/internal/gelf"
	"scribelog/src/internal/retry"
	"scribelog/src/internal/service"
	"scribelog/src/internal/shipper"
	"scribelog/src/internal/version"

	"github.com/lixenwraith/log"
)

// loadConfig loads configuration and brings up output and logging for a command
func loadConfig(args []string) *config.Config {
	cfg, err := config.Load(args)
	if err != nil {
		FatalError(2, "Failed to load config: %v\n", err)
	}

	InitOutputHandler(cfg.Quiet)

	if err := initializeLogger(cfg); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	return cfg
}

// bootstrapCollector creates and starts the collector service
func bootstrapCollector(ctx context.Context, cfg *config.Config) (*service.Collector, error) {
	collector, err := service.NewCollector(cfg.Collector, logger)
	if err != nil {
		return nil, err
	}

	if err := collector.Start(ctx); err != nil {
		return nil, err
	}

	logger.Info("msg", "Scribelog collector started",
		"version", version.Short(),
		"address", fmt.Sprintf("%s:%d", cfg.Collector.Host, cfg.Collector.Port))

	Print("Scribe endpoint: tcp://%s:%d\n", cfg.Collector.Host, cfg.Collector.Port)
	if addr := collector.StatusAddr(); addr != "" {
		Print("Status endpoint: http://%s/status\n", addr)
	}

	return collector, nil
}

// bootstrapSender builds the blocking batch sender described by the shipper section
func bootstrapSender(cfg config.ShipperConfig) (*shipper.Sender, *gelf.Converter, error) {
	conn := shipper.NewConn(shipper.ConnConfig{
		Host:          cfg.Host,
		Port:          cfg.Port,
		SocketTimeout: time.Duration(cfg.SocketTimeoutMS) * time.Millisecond,
	})

	policy := retry.Policy{
		MaxRetries: int(cfg.MaxRetries),
		MinBackoff: time.Duration(cfg.MinBackoffMS) * time.Millisecond,
		MaxBackoff: time.Duration(cfg.MaxBackoffMS) * time.Millisecond,
	}

	sender, err := shipper.NewSender(conn, policy, retry.RealSleeper{}, logger)
	if err != nil {
		return nil, nil, err
	}

	converter := gelf.NewConverter(gelf.ConverterConfig{
		Facility:           cfg.Facility,
		ShortMessageLength: int(cfg.ShortMessageLength),
		UseLoggerName:      true,
	})

	return sender, converter, nil
}

// initializeLogger sets up the process logger from the logging section
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()
	logCfg := log.DefaultConfig()

	if cfg.Quiet {
		logCfg.EnableConsole = false
		logCfg.EnableFile = false
		if err := logger.ApplyConfig(logCfg); err != nil {
			return err
		}
		return logger.Start()
	}

	configureFile := func(file *config.LogFileConfig) {
		if file == nil {
			return
		}
		logCfg.Directory = file.Directory
		logCfg.Name = file.Name
		logCfg.MaxSizeKB = file.MaxSizeMB * 1000
		logCfg.MaxTotalSizeKB = file.MaxTotalSizeMB * 1000
		if file.RetentionHours > 0 {
			logCfg.RetentionPeriodHrs = file.RetentionHours
		}
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logCfg.Level = level

	switch cfg.Logging.Output {
	case "none":
		logCfg.EnableConsole = false
		logCfg.EnableFile = false
	case "stdout", "stderr", "split":
		logCfg.EnableConsole = true
		logCfg.ConsoleTarget = cfg.Logging.Output
		logCfg.EnableFile = false
	case "file":
		logCfg.EnableConsole = false
		logCfg.EnableFile = true
		configureFile(cfg.Logging.File)
	case "all":
		logCfg.EnableConsole = true
		logCfg.ConsoleTarget = "stderr"
		if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
			logCfg.ConsoleTarget = cfg.Logging.Console.Target
		}
		logCfg.EnableFile = true
		configureFile(cfg.Logging.File)
	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		logCfg.Format = cfg.Logging.Console.Format
	}

	if err := logger.ApplyConfig(logCfg); err != nil {
		return err
	}
	return logger.Start()
}

func parseLogLevel(level string) (int64, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int64(log.LevelDebug), nil
	case "info":
		return int64(log.LevelInfo), nil
	case "warn", "warning":
		return int64(log.LevelWarn), nil
	case "error":
		return int64(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
