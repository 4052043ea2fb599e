// FILE: scribelog/src/cmd/scribelog/collect.go
package main

import (
	"context"
	"os"
	"time"

	"scribelog/src/internal/version"
)

const shutdownTimeout = 10 * time.Second

// collectCommand runs the collector until a termination signal arrives
type collectCommand struct{}

func (c *collectCommand) Execute(args []string) error {
	cfg := loadConfig(args)
	defer shutdownLogger()

	logger.Info("msg", "Scribelog starting",
		"version", version.String(),
		"config_file", cfg.ConfigFile,
		"log_output", cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := NewSignalHandler()
	defer signals.Stop()

	collector, err := bootstrapCollector(ctx, cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap collector", "error", err)
		return err
	}

	if enableStatusReporter() {
		go statusReporter(collector, ctx)
	}

	sig := signals.Wait(ctx)
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown",
		"signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		collector.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		shutdownLogger()
		os.Exit(1)
	}
	return nil
}

func (c *collectCommand) Description() string {
	return "Run the scribe collector (default)"
}

func (c *collectCommand) Help() string {
	return `Collect Command - Receive scribe batches and write them to sinks

Usage:
  scribelog collect [options]
  scribelog [options]

Options:
  --config <path>                 Configuration file
  --collector.port=<port>         Scribe listen port (default: 1464)
  --collector.buffer.capacity=<n> Process buffer capacity (default: 1024)
  --logging.level=<level>         debug, info, warn, error

Signals:
  SIGINT, SIGTERM                 Graceful shutdown (10s timeout)
`
}
