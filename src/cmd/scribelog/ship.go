// FILE: scribelog/src/cmd/scribelog/ship.go
package main

import (
	"context"
	"os"

	"scribelog/src/internal/appender"
)

// shipCommand reads lines from stdin and ships them to a collector
type shipCommand struct{}

func (c *shipCommand) Execute(args []string) error {
	cfg := loadConfig(args)
	defer shutdownLogger()

	sender, converter, err := bootstrapSender(cfg.Shipper)
	if err != nil {
		logger.Error("msg", "Failed to create sender", "error", err)
		return err
	}
	defer sender.Close()

	lines := appender.NewLineShipper(sender, converter, appender.LineShipperConfig{
		Category:  cfg.Shipper.Category,
		BatchSize: int(cfg.Shipper.BatchSize),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := NewSignalHandler()
	defer signals.Stop()
	go func() {
		if sig := signals.Wait(ctx); sig != nil {
			logger.Info("msg", "Signal received, flushing and exiting", "signal", sig)
			cancel()
			// Unblock the pending stdin read
			_ = os.Stdin.Close()
		}
	}()

	logger.Info("msg", "Shipping stdin",
		"component", "ship",
		"target", cfg.Shipper.Host,
		"port", cfg.Shipper.Port,
		"category", cfg.Shipper.Category)

	runErr := lines.Run(ctx, os.Stdin)

	lineStats := lines.Stats()
	senderStats := sender.Stats()
	logger.Info("msg", "Ship finished",
		"component", "ship",
		"lines", lineStats.Lines,
		"batches", lineStats.Batches,
		"failed_batches", lineStats.FailedBatches,
		"entries_sent", senderStats.EntriesSent,
		"entries_failed", senderStats.EntriesFailed,
		"reconnects", senderStats.Reconnects)

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

func (c *shipCommand) Description() string {
	return "Ship stdin lines to a collector as GELF"
}

func (c *shipCommand) Help() string {
	return `Ship Command - Send lines from stdin to a scribe collector

Each non-empty line becomes one GELF message. Lines are sent in batches;
a batch refused with TRY_LATER or lost to a transport error is retried
with exponential backoff until max_retries is exhausted.

Usage:
  tail -F app.log | scribelog ship [options]

Options:
  --config <path>                  Configuration file
  --shipper.host=<host>            Collector host (default: 127.0.0.1)
  --shipper.port=<port>            Collector port (default: 1464)
  --shipper.category=<name>        Scribe category (default: gelf)
  --shipper.batch_size=<n>         Lines per batch (default: 100)
  --shipper.max_retries=<n>        Retries per batch (default: 50)
`
}
