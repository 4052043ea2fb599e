// FILE: scribelog/src/internal/sink/sink.go
package sink

import (
	"context"
	"fmt"
	"os"
	"time"

	"scribelog/src/internal/config"
	"scribelog/src/internal/format"
	"scribelog/src/internal/gelf"

	"github.com/lixenwraith/log"
)

const defaultBufferSize = 1000

// Sink represents an output destination for admitted messages
type Sink interface {
	// Input returns the channel for sending messages to this sink
	Input() chan<- *gelf.Message

	// Start begins processing messages
	Start(ctx context.Context) error

	// Stop gracefully shuts down the sink
	Stop()

	// GetStats returns sink statistics
	GetStats() SinkStats
}

// SinkStats contains statistics about a sink
type SinkStats struct {
	Type           string         `json:"type"`
	TotalProcessed uint64         `json:"total_processed"`
	FormatErrors   uint64         `json:"format_errors"`
	StartTime      time.Time      `json:"start_time"`
	LastProcessed  time.Time      `json:"last_processed"`
	Details        map[string]any `json:"details"`
}

// New builds a sink from its configuration
func New(cfg config.SinkConfig, logger *log.Logger) (Sink, error) {
	formatter, err := format.NewFormatter(cfg, logger)
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "stdout", "stderr", "split":
		return NewConsoleSink(cfg.Type, os.Stdout, os.Stderr, defaultBufferSize, logger, formatter), nil
	case "file":
		if cfg.File == nil {
			return nil, fmt.Errorf("file sink requires a file section")
		}
		return NewFileSink(*cfg.File, logger, formatter)
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Type)
	}
}
